package nexrad

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/nexrad/nexradtest"
)

func testScan(compress bool) nexradtest.Scan {
	return nexradtest.Scan{
		Station:   "KTLX",
		Time:      time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC),
		Lat:       35.333,
		Lon:       -97.278,
		FirstGate: 2125,
		GateWidth: 250,
		Compress:  compress,
		Sweeps: []nexradtest.Sweep{
			{
				ElevationAngle: 0.5,
				Azimuths:       []float32{359.5, 0.5, 1.5},
				Reflectivity: [][]float64{
					{10, 20.5, math.NaN()},
					{-32, 40, 55},
					{0, 0, 0},
				},
			},
			{
				ElevationAngle: 1.5,
				Azimuths:       []float32{10, 11},
				Reflectivity:   [][]float64{{5, 6}, {7, 8}},
			},
		},
	}
}

func TestDecoder_Decode(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "uncompressed"
		if compress {
			name = "bzip2 records"
		}
		t.Run(name, func(t *testing.T) {
			b, err := nexradtest.Encode(testScan(compress))
			require.NoError(t, err)

			vol, err := NewDecoder().Decode(bytes.NewReader(b))
			require.NoError(t, err)

			assert.Equal(t, "KTLX", vol.Station)
			require.Len(t, vol.Sweeps, 2)
			assert.Equal(t, 1, vol.Sweeps[0].Elevation)
			assert.Equal(t, 2, vol.Sweeps[1].Elevation)
			require.Len(t, vol.Sweeps[0].Rays, 3)
			require.Len(t, vol.Sweeps[1].Rays, 2)

			ray := vol.Sweeps[0].Rays[0]
			assert.InDelta(t, 359.5, ray.Azimuth, 1e-4)
			assert.InDelta(t, 0.5, ray.ElevationAngle, 1e-4)
			assert.InDelta(t, 35.333, ray.Lat, 1e-4)
			assert.InDelta(t, -97.278, ray.Lon, 1e-4)

			ref := ray.Moments[domain.MomentReflectivity]
			require.NotNil(t, ref)
			assert.Equal(t, 3, ref.NumGates)
			assert.InDelta(t, 2.125, ref.FirstGate, 1e-9)
			assert.InDelta(t, 0.25, ref.GateWidth, 1e-9)
			assert.InDelta(t, 10, ref.Values[0], 1e-9)
			assert.InDelta(t, 20.5, ref.Values[1], 1e-9)
			assert.True(t, math.IsNaN(ref.Values[2]), "below threshold must decode as NaN")

			assert.InDelta(t, 55, vol.Sweeps[0].Rays[1].Moments[domain.MomentReflectivity].Values[2], 1e-9)
			assert.InDelta(t, 8, vol.Sweeps[1].Rays[1].Moments[domain.MomentReflectivity].Values[1], 1e-9)
		})
	}
}

func TestDecoder_FeedsTransform(t *testing.T) {
	b, err := nexradtest.Encode(testScan(true))
	require.NoError(t, err)
	vol, err := NewDecoder().Decode(bytes.NewReader(b))
	require.NoError(t, err)

	frame, err := domain.TransformSweep(vol, 0, time.Unix(1714144200, 0))
	require.NoError(t, err)
	assert.Len(t, frame.Azimuths, 4)
	assert.Len(t, frame.Ranges, 4)
	assert.InDelta(t, 2000, frame.Ranges[0], 1e-6)
}

func TestDecoder_RangeFolded(t *testing.T) {
	scan := testScan(false)
	b, err := nexradtest.Encode(scan)
	require.NoError(t, err)

	// Overwrite the first REF gate of the first radial with raw 1.
	idx := bytes.Index(b, []byte("DREF"))
	require.Positive(t, idx)
	b[idx+28] = 1

	vol, err := NewDecoder().Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(vol.Sweeps[0].Rays[0].Moments[domain.MomentReflectivity].Values[0]))
}

func TestDecoder_MissingMoment(t *testing.T) {
	scan := testScan(false)
	scan.Sweeps = []nexradtest.Sweep{{ElevationAngle: 0.5, Azimuths: []float32{1, 2}}}
	b, err := nexradtest.Encode(scan)
	require.NoError(t, err)

	vol, err := NewDecoder().Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Empty(t, vol.Sweeps[0].Rays[0].Moments)

	_, err = domain.TransformSweep(vol, 0, time.Now())
	require.ErrorIs(t, err, domain.ErrNoReflectivity)
}

func TestDecoder_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"not level II", []byte("this is not a radar file at all")},
		{"header only", append([]byte("AR2V0006.001"), make([]byte, 12)...)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDecoder().Decode(bytes.NewReader(tc.input))
			require.ErrorIs(t, err, domain.ErrDecode)
		})
	}

	t.Run("truncated record", func(t *testing.T) {
		b, err := nexradtest.Encode(testScan(true))
		require.NoError(t, err)
		_, err = NewDecoder().Decode(bytes.NewReader(b[:len(b)-10]))
		require.ErrorIs(t, err, domain.ErrDecode)
	})
}

func TestEncodeReflectivity(t *testing.T) {
	assert.Equal(t, byte(0), nexradtest.EncodeReflectivity(math.NaN()))
	assert.Equal(t, byte(0), nexradtest.EncodeReflectivity(-40))
	assert.Equal(t, byte(255), nexradtest.EncodeReflectivity(120))
	assert.InDelta(t, 20.5, nexradtest.DecodeReflectivity(nexradtest.EncodeReflectivity(20.5)), 1e-9)
}
