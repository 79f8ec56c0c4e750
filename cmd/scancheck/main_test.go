package main

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
)

func validFrame(ts time.Time) domain.SweepFrame {
	return domain.SweepFrame{
		CenterLon: -97.278,
		CenterLat: 35.333,
		Azimuths:  []float64{-0.5, 0.5, 1.5},
		Ranges:    []float64{2000, 2250, 2500},
		Data:      domain.Grid{{10, math.NaN()}, {20, 30}},
		Timestamp: ts.Unix(),
	}
}

func TestCheckFrame_Valid(t *testing.T) {
	ts := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	assert.Empty(t, checkFrame(validFrame(ts), ts))
}

func TestCheckFrame_Violations(t *testing.T) {
	ts := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

	f := validFrame(ts)
	f.Azimuths = f.Azimuths[:2]
	assert.Contains(t, checkFrame(f, ts), "2 azimuth edges for 2 rays")

	f = validFrame(ts)
	f.Ranges = []float64{2000, 2500, 2250}
	assert.Contains(t, checkFrame(f, ts), "range edges not increasing at 2")

	f = validFrame(ts)
	f.Data[1] = []float64{20}
	assert.Contains(t, checkFrame(f, ts), "ray 1 has 1 gates, want 2")

	f = validFrame(ts)
	assert.Contains(t, checkFrame(f, ts.Add(time.Minute)), "timestamp 1714144200, want 1714144260")

	assert.Equal(t, []string{"no rays"}, checkFrame(domain.SweepFrame{}, ts))
}

func TestPhase(t *testing.T) {
	p := &phase{name: "x"}
	assert.True(t, p.passed())
	p.errorf("sweep %d: bad", 2)
	assert.False(t, p.passed())
	assert.Equal(t, []string{"sweep 2: bad"}, p.errors)
	assert.Equal(t, 1, report(p))
	assert.Equal(t, 0, report(&phase{name: "ok"}))
}
