package domain

import (
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// Grid is a rays x gates reflectivity matrix. NaN marks missing samples and
// is encoded as nil on the wire.
type Grid [][]float64

// EncodeMsgpack implements msgpack.CustomEncoder.
func (g Grid) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(len(g)); err != nil {
		return err
	}
	for _, row := range g {
		if err := enc.EncodeArrayLen(len(row)); err != nil {
			return err
		}
		for _, v := range row {
			var err error
			if math.IsNaN(v) {
				err = enc.EncodeNil()
			} else {
				err = enc.EncodeFloat64(v)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// SweepFrame is the render-ready form of one sweep.
type SweepFrame struct {
	CenterLon float64   `msgpack:"cent_lon"`
	CenterLat float64   `msgpack:"cent_lat"`
	Azimuths  []float64 `msgpack:"az"`        // degrees, rays+1 edges
	Ranges    []float64 `msgpack:"ref_range"` // meters, gates+1 edges
	Data      Grid      `msgpack:"data"`
	Timestamp int64     `msgpack:"timestamp"` // unix seconds
}

// Encode serializes the frame into the msgpack map served to clients.
func (f SweepFrame) Encode() ([]byte, error) {
	b, err := msgpack.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode sweep frame: %w", err)
	}
	return b, nil
}

// wireFrame mirrors SweepFrame with nullable grid cells for decoding.
type wireFrame struct {
	CenterLon float64      `msgpack:"cent_lon"`
	CenterLat float64      `msgpack:"cent_lat"`
	Azimuths  []float64    `msgpack:"az"`
	Ranges    []float64    `msgpack:"ref_range"`
	Data      [][]*float64 `msgpack:"data"`
	Timestamp int64        `msgpack:"timestamp"`
}

// DecodeFrame parses a payload produced by SweepFrame.Encode.
func DecodeFrame(b []byte) (SweepFrame, error) {
	var w wireFrame
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return SweepFrame{}, fmt.Errorf("decode sweep frame: %w", err)
	}
	grid := make(Grid, len(w.Data))
	for i, row := range w.Data {
		grid[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				grid[i][j] = math.NaN()
				continue
			}
			grid[i][j] = *v
		}
	}
	return SweepFrame{
		CenterLon: w.CenterLon,
		CenterLat: w.CenterLat,
		Azimuths:  w.Azimuths,
		Ranges:    w.Ranges,
		Data:      grid,
		Timestamp: w.Timestamp,
	}, nil
}
