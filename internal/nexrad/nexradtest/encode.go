// Package nexradtest builds synthetic Level II files for tests and mock data.
package nexradtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/dsnet/compress/bzip2"
)

// Reflectivity encoding used by operational radars.
const (
	RefScale  = 2.0
	RefOffset = 66.0
)

// Scan describes a synthetic volume.
type Scan struct {
	Station   string
	Time      time.Time
	Lat, Lon  float32
	FirstGate uint16 // meters
	GateWidth uint16 // meters
	Sweeps    []Sweep
	// Compress wraps the messages in bzip2 LDM records the way the archive
	// stores them. Otherwise the message stream follows the header directly.
	Compress bool
}

// Sweep is one elevation cut. Reflectivity is indexed [ray][gate] in dBZ;
// NaN is written as below threshold. A nil row omits the REF moment for that
// ray.
type Sweep struct {
	ElevationAngle float32
	Azimuths       []float32
	Reflectivity   [][]float64
}

// Encode renders scan as a Level II file.
func Encode(scan Scan) ([]byte, error) {
	var msgs bytes.Buffer
	for i, sw := range scan.Sweeps {
		if len(sw.Reflectivity) != 0 && len(sw.Reflectivity) != len(sw.Azimuths) {
			return nil, fmt.Errorf("sweep %d: %d azimuths but %d reflectivity rows", i, len(sw.Azimuths), len(sw.Reflectivity))
		}
		for j, az := range sw.Azimuths {
			var row []float64
			if len(sw.Reflectivity) != 0 {
				row = sw.Reflectivity[j]
			}
			writeMessage31(&msgs, scan, i+1, j+1, sw.ElevationAngle, az, row)
		}
	}

	var out bytes.Buffer
	out.WriteString("AR2V0006.")
	out.WriteString("001")
	days := uint32(scan.Time.UTC().Unix()/86400) + 1
	ms := uint32(scan.Time.UTC().Unix()%86400) * 1000
	_ = binary.Write(&out, binary.BigEndian, days)
	_ = binary.Write(&out, binary.BigEndian, ms)
	out.WriteString(fmt.Sprintf("%-4.4s", scan.Station))

	if !scan.Compress {
		// Leading metadata message, skipped by readers.
		out.Write(fixedMessage(5))
		out.Write(msgs.Bytes())
		return out.Bytes(), nil
	}

	if err := writeRecord(&out, fixedMessage(5)); err != nil {
		return nil, err
	}
	if err := writeRecord(&out, msgs.Bytes()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeRecord(out *bytes.Buffer, payload []byte) error {
	var z bytes.Buffer
	zw, err := bzip2.NewWriter(&z, &bzip2.WriterConfig{Level: bzip2.BestSpeed})
	if err != nil {
		return err
	}
	if _, err := zw.Write(payload); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	_ = binary.Write(out, binary.BigEndian, int32(z.Len()))
	out.Write(z.Bytes())
	return nil
}

func fixedMessage(msgType byte) []byte {
	b := make([]byte, 2432)
	binary.BigEndian.PutUint16(b[12:], uint16((2432-12)/2))
	b[12+3] = msgType
	return b
}

func writeMessage31(out *bytes.Buffer, scan Scan, elevNum, azNum int, elev, az float32, row []float64) {
	const (
		hdrLen = 68
		volLen = 44
	)

	var body bytes.Buffer
	body.Write(make([]byte, hdrLen))
	pointers := []uint32{hdrLen}

	vol := make([]byte, volLen)
	vol[0] = 'R'
	copy(vol[1:], "VOL")
	binary.BigEndian.PutUint16(vol[4:], volLen)
	binary.BigEndian.PutUint32(vol[8:], math.Float32bits(scan.Lat))
	binary.BigEndian.PutUint32(vol[12:], math.Float32bits(scan.Lon))
	body.Write(vol)

	if row != nil {
		pointers = append(pointers, uint32(body.Len()))
		moment := make([]byte, 28+len(row))
		moment[0] = 'D'
		copy(moment[1:], "REF")
		binary.BigEndian.PutUint16(moment[8:], uint16(len(row)))
		binary.BigEndian.PutUint16(moment[10:], scan.FirstGate)
		binary.BigEndian.PutUint16(moment[12:], scan.GateWidth)
		moment[19] = 8
		binary.BigEndian.PutUint32(moment[20:], math.Float32bits(RefScale))
		binary.BigEndian.PutUint32(moment[24:], math.Float32bits(RefOffset))
		for i, v := range row {
			moment[28+i] = EncodeReflectivity(v)
		}
		body.Write(moment)
	}
	if body.Len()%2 == 1 {
		body.WriteByte(0)
	}

	d := body.Bytes()
	copy(d[0:4], fmt.Sprintf("%-4.4s", scan.Station))
	binary.BigEndian.PutUint16(d[10:], uint16(azNum))
	binary.BigEndian.PutUint32(d[12:], math.Float32bits(az))
	binary.BigEndian.PutUint16(d[18:], uint16(len(d)))
	d[22] = byte(elevNum)
	binary.BigEndian.PutUint32(d[24:], math.Float32bits(elev))
	binary.BigEndian.PutUint16(d[30:], uint16(len(pointers)))
	for i, p := range pointers {
		binary.BigEndian.PutUint32(d[32+4*i:], p)
	}

	hdr := make([]byte, 12+16)
	binary.BigEndian.PutUint16(hdr[12:], uint16((16+len(d))/2))
	hdr[12+3] = 31
	out.Write(hdr)
	out.Write(d)
}

// EncodeReflectivity converts dBZ into the raw 8-bit value written to the
// file. NaN and values below the encodable range map to below threshold.
func EncodeReflectivity(dbz float64) byte {
	if math.IsNaN(dbz) {
		return 0
	}
	raw := math.Round(dbz*RefScale + RefOffset)
	switch {
	case raw < 2:
		return 0
	case raw > 255:
		return 255
	}
	return byte(raw)
}

// DecodeReflectivity is the inverse of EncodeReflectivity for encodable values.
func DecodeReflectivity(raw byte) float64 {
	if raw < 2 {
		return math.NaN()
	}
	return (float64(raw) - RefOffset) / RefScale
}
