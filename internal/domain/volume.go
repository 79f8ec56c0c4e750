package domain

// MomentReflectivity is the data block name of the reflectivity moment.
const MomentReflectivity = "REF"

// Volume is one decoded volume scan. It is built by the decoder, consumed by
// TransformSweep, and discarded afterwards.
type Volume struct {
	Station string
	Sweeps  []Sweep
}

// Sweep is a single elevation cut in ray (collection) order.
type Sweep struct {
	Elevation int // elevation number as reported by the radar, 1-based
	Rays      []Ray
}

// Ray is one radial of a sweep.
type Ray struct {
	Azimuth        float64 // degrees
	ElevationAngle float64 // degrees
	Lat            float64 // site latitude, degrees
	Lon            float64 // site longitude, degrees
	Moments        map[string]*Moment
}

// Moment is one data moment (REF, VEL, ...) sampled along a ray.
type Moment struct {
	NumGates  int
	GateWidth float64 // kilometers
	FirstGate float64 // kilometers, center of the first gate
	// Values holds one entry per gate; NaN marks below-threshold or
	// range-folded samples.
	Values []float64
}
