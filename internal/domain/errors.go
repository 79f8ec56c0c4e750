package domain

import "errors"

var (
	// ErrNoScansFound is returned when none of the searched listing windows
	// contain a volume scan for the station.
	ErrNoScansFound = errors.New("no radar scans found")

	// ErrInvalidOffset is returned when the requested offset is negative or
	// reaches past the oldest scan in the window.
	ErrInvalidOffset = errors.New("invalid scan offset")

	// ErrTimestampParse is returned when a listed key does not follow the
	// archive naming scheme.
	ErrTimestampParse = errors.New("parse scan timestamp")

	// ErrScanNotFound is returned when the exact scan object does not exist.
	ErrScanNotFound = errors.New("radar scan not found")

	// ErrUpstreamFetch wraps transport failures talking to the object store.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrDecode wraps failures of the Level II decoder.
	ErrDecode = errors.New("decode radar volume")

	// ErrSweepOutOfRange is returned when a sweep index is not present in the volume.
	ErrSweepOutOfRange = errors.New("sweep index out of range")

	// ErrNoReflectivity is returned when a sweep carries no reflectivity moment.
	ErrNoReflectivity = errors.New("sweep has no reflectivity moment")
)

// IsNotFound reports whether err means the requested scan or sweep does not
// exist (as opposed to an upstream or internal failure).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoScansFound) ||
		errors.Is(err, ErrInvalidOffset) ||
		errors.Is(err, ErrScanNotFound) ||
		errors.Is(err, ErrSweepOutOfRange) ||
		errors.Is(err, ErrNoReflectivity)
}
