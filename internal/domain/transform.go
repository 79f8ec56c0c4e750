package domain

import (
	"fmt"
	"math"
	"time"
)

// TransformSweep converts one sweep of a decoded volume into a SweepFrame.
//
// Ray-center azimuths become cell edges: interior edges are midpoints of
// adjacent rays and the two outer edges are extrapolated by the mean angular
// spacing. Gate centers become range edges offset by half a gate. The site
// position is read from the first ray of the volume.
func TransformSweep(vol *Volume, sweep int, ts time.Time) (SweepFrame, error) {
	if vol == nil || sweep < 0 || sweep >= len(vol.Sweeps) {
		n := 0
		if vol != nil {
			n = len(vol.Sweeps)
		}
		return SweepFrame{}, fmt.Errorf("%w: sweep %d of %d", ErrSweepOutOfRange, sweep, n)
	}
	rays := vol.Sweeps[sweep].Rays
	if len(rays) == 0 {
		return SweepFrame{}, fmt.Errorf("%w: sweep %d has no rays", ErrSweepOutOfRange, sweep)
	}
	hdr := rays[0].Moments[MomentReflectivity]
	if hdr == nil {
		return SweepFrame{}, fmt.Errorf("%w: sweep %d", ErrNoReflectivity, sweep)
	}

	az := make([]float64, len(rays))
	for i, r := range rays {
		az[i] = r.Azimuth
	}

	site := vol.Sweeps[0].Rays
	var lat, lon float64
	if len(site) > 0 {
		lat, lon = site[0].Lat, site[0].Lon
	}

	return SweepFrame{
		CenterLon: lon,
		CenterLat: lat,
		Azimuths:  AzimuthEdges(az),
		Ranges:    RangeEdges(hdr.NumGates, hdr.GateWidth, hdr.FirstGate),
		Data:      reflectivityGrid(rays, hdr.NumGates),
		Timestamp: ts.Unix(),
	}, nil
}

// AzimuthEdges turns ray-center azimuths (degrees, ray order) into len+1 cell
// edges. A step below -180 degrees is a crossing of north and is unwrapped by
// adding 360.
func AzimuthEdges(centers []float64) []float64 {
	n := len(centers)
	if n == 0 {
		return []float64{}
	}
	if n == 1 {
		return []float64{centers[0] - 0.5, centers[0] + 0.5}
	}

	var sum float64
	crossed := make([]bool, n-1)
	for i := 0; i < n-1; i++ {
		d := centers[i+1] - centers[i]
		if d < -180 {
			d += 360
			crossed[i] = true
		}
		sum += d
	}
	spacing := sum / float64(n-1)

	edges := make([]float64, n+1)
	for i := 0; i < n-1; i++ {
		mid := (centers[i] + centers[i+1]) / 2
		if crossed[i] {
			mid += 180
		}
		edges[i+1] = mid
	}
	edges[0] = edges[1] - spacing
	edges[n] = edges[n-1] + spacing
	return edges
}

// RangeEdges returns gates+1 range edges in meters for a moment whose gate
// spacing and first-gate center are given in kilometers.
func RangeEdges(gates int, gateWidthKm, firstGateKm float64) []float64 {
	if gates < 0 {
		gates = 0
	}
	edges := make([]float64, gates+1)
	for i := range edges {
		edges[i] = ((float64(i)-0.5)*gateWidthKm + firstGateKm) * 1000
	}
	return edges
}

// reflectivityGrid stacks each ray's REF gates into a rays x gates grid. Rays
// without the moment, or with fewer gates, are padded with NaN.
func reflectivityGrid(rays []Ray, gates int) Grid {
	grid := make(Grid, len(rays))
	for i, r := range rays {
		row := make([]float64, gates)
		var vals []float64
		if m := r.Moments[MomentReflectivity]; m != nil {
			vals = m.Values
		}
		for j := range row {
			if j < len(vals) {
				row[j] = vals[j]
			} else {
				row[j] = math.NaN()
			}
		}
		grid[i] = row
	}
	return grid
}
