// Package nexrad decodes NEXRAD Level II archive files into domain volumes.
//
// Only what the sweep transform needs is read: Message 31 radials with their
// azimuth, elevation, site position and generic data moments. Every other
// message type is skipped.
package nexrad

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dsnet/compress/bzip2"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
)

const (
	volumeHeaderLen = 24
	ctmLen          = 12
	msgHeaderLen    = 16
	msg31HeaderLen  = 68
	fixedMsgLen     = 2432

	msgTypeDigitalRadarData = 31
	maxDataBlocks           = 9
)

// Raw moment values with special meaning.
const (
	rawBelowThreshold = 0
	rawRangeFolded    = 1
)

// Decoder reads Level II volume scans. The zero value is ready to use.
type Decoder struct{}

// NewDecoder returns a Decoder.
func NewDecoder() *Decoder { return &Decoder{} }

// Decode parses a complete Level II file.
func (d *Decoder) Decode(r io.Reader) (*domain.Volume, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", domain.ErrDecode, err)
	}
	if len(raw) < volumeHeaderLen || !bytes.HasPrefix(raw, []byte("AR2V")) {
		return nil, fmt.Errorf("%w: missing AR2V volume header", domain.ErrDecode)
	}
	station := strings.TrimRight(string(raw[20:24]), "\x00 ")

	stream, err := messageStream(raw[volumeHeaderLen:])
	if err != nil {
		return nil, err
	}

	vol := &domain.Volume{Station: station}
	if err := readMessages(stream, vol); err != nil {
		return nil, err
	}
	if len(vol.Sweeps) == 0 {
		return nil, fmt.Errorf("%w: no digital radar data messages", domain.ErrDecode)
	}
	return vol, nil
}

// messageStream returns the concatenated message bytes, inflating the
// size-prefixed bzip2 LDM records when present.
func messageStream(body []byte) ([]byte, error) {
	if len(body) < 7 || !bytes.Equal(body[4:7], []byte("BZh")) {
		return body, nil
	}

	var out bytes.Buffer
	for off := 0; off+4 <= len(body); {
		size := int(int32(binary.BigEndian.Uint32(body[off:])))
		if size < 0 {
			size = -size
		}
		off += 4
		if size == 0 {
			break
		}
		if off+size > len(body) {
			return nil, fmt.Errorf("%w: truncated LDM record at offset %d", domain.ErrDecode, off)
		}
		zr, err := bzip2.NewReader(bytes.NewReader(body[off:off+size]), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: bzip2: %v", domain.ErrDecode, err)
		}
		_, err = io.Copy(&out, zr)
		_ = zr.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: bzip2 record at offset %d: %v", domain.ErrDecode, off, err)
		}
		off += size
	}
	return out.Bytes(), nil
}

func readMessages(b []byte, vol *domain.Volume) error {
	lastElevation := -1
	for off := 0; off+ctmLen+msgHeaderLen <= len(b); {
		hdr := b[off+ctmLen:]
		size := int(binary.BigEndian.Uint16(hdr[0:2]))
		msgType := hdr[3]

		next := off + fixedMsgLen
		if msgType == msgTypeDigitalRadarData {
			next = off + ctmLen + 2*size
			if size*2 < msgHeaderLen || next > len(b) {
				return fmt.Errorf("%w: bad message 31 size %d at offset %d", domain.ErrDecode, size, off)
			}
			elev, ray, err := parseRadial(b[off+ctmLen+msgHeaderLen : next])
			if err != nil {
				return fmt.Errorf("message at offset %d: %w", off, err)
			}
			if elev != lastElevation {
				vol.Sweeps = append(vol.Sweeps, domain.Sweep{Elevation: elev})
				lastElevation = elev
			}
			s := &vol.Sweeps[len(vol.Sweeps)-1]
			s.Rays = append(s.Rays, ray)
		}
		off = next
	}
	return nil
}

func parseRadial(d []byte) (int, domain.Ray, error) {
	if len(d) < msg31HeaderLen {
		return 0, domain.Ray{}, fmt.Errorf("%w: short message 31 header", domain.ErrDecode)
	}
	ray := domain.Ray{
		Azimuth:        float64(readFloat32(d[12:])),
		ElevationAngle: float64(readFloat32(d[24:])),
		Moments:        make(map[string]*domain.Moment),
	}
	elevation := int(d[22])
	blocks := int(binary.BigEndian.Uint16(d[30:32]))
	if blocks > maxDataBlocks {
		blocks = maxDataBlocks
	}

	for i := 0; i < blocks; i++ {
		p := int(binary.BigEndian.Uint32(d[32+4*i:]))
		if p == 0 {
			continue
		}
		if p+4 > len(d) {
			return 0, domain.Ray{}, fmt.Errorf("%w: block pointer %d out of bounds", domain.ErrDecode, p)
		}
		name := string(d[p+1 : p+4])
		switch {
		case d[p] == 'R' && name == "VOL":
			if p+16 > len(d) {
				return 0, domain.Ray{}, fmt.Errorf("%w: short VOL block", domain.ErrDecode)
			}
			ray.Lat = float64(readFloat32(d[p+8:]))
			ray.Lon = float64(readFloat32(d[p+12:]))
		case d[p] == 'D':
			m, err := parseMoment(d[p:])
			if err != nil {
				return 0, domain.Ray{}, fmt.Errorf("moment %s: %w", name, err)
			}
			ray.Moments[name] = m
		}
	}
	return elevation, ray, nil
}

func parseMoment(b []byte) (*domain.Moment, error) {
	if len(b) < 28 {
		return nil, fmt.Errorf("%w: short moment header", domain.ErrDecode)
	}
	gates := int(binary.BigEndian.Uint16(b[8:10]))
	first := float64(binary.BigEndian.Uint16(b[10:12])) / 1000
	width := float64(binary.BigEndian.Uint16(b[12:14])) / 1000
	wordSize := int(b[19])
	scale := float64(readFloat32(b[20:]))
	offset := float64(readFloat32(b[24:]))

	if wordSize != 8 && wordSize != 16 {
		return nil, fmt.Errorf("%w: unsupported word size %d", domain.ErrDecode, wordSize)
	}
	n := wordSize / 8
	data := b[28:]
	if len(data) < gates*n {
		return nil, fmt.Errorf("%w: moment data truncated (%d gates)", domain.ErrDecode, gates)
	}

	values := make([]float64, gates)
	for i := range values {
		var raw uint16
		if n == 1 {
			raw = uint16(data[i])
		} else {
			raw = binary.BigEndian.Uint16(data[2*i:])
		}
		if raw == rawBelowThreshold || raw == rawRangeFolded || scale == 0 {
			values[i] = math.NaN()
			continue
		}
		values[i] = (float64(raw) - offset) / scale
	}
	return &domain.Moment{NumGates: gates, FirstGate: first, GateWidth: width, Values: values}, nil
}

func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}
