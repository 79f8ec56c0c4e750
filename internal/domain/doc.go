// Package domain models NEXRAD Level II radar scans and the frames rendered
// from them.
//
// # Data Source
//
// Volume scans come from the public NOAA NEXRAD Level II archive on S3
// (bucket noaa-nexrad-level2). Each radar uploads one object per completed
// volume, typically every 4 to 10 minutes depending on the volume coverage
// pattern.
//
// # Key Conventions
//
// Object keys:
//
//	"YYYY/MM/DD/{STATION}/{STATION}YYYYMMDD_HHMMSS_V06"
//	e.g. "2024/04/26/KTLX/KTLX20240426_151000_V06"
//
// The date directories and the embedded timestamp are UTC. The timestamp is
// fixed width and zero padded, so sorting keys lexicographically sorts scans
// chronologically. Objects ending in "_MDM" are metadata sidecars and are not
// scans. See [HourPrefix], [ScanKey] and [ExtractTimestamp].
//
// Station identifiers are four-character ICAO codes (KTLX, KFWS, TJUA) and
// are uppercased everywhere. See [NormalizeStation].
//
// # Sweep Geometry
//
// A volume holds several elevation sweeps; each sweep is a sequence of rays
// in collection order. A ray reports the azimuth of its center and a set of
// data moments sampled at equally spaced range gates.
//
// Rendering works on cell boundaries rather than centers:
//
//	azimuth edges: midpoints of adjacent ray centers, plus one edge at each
//	               end extrapolated by the mean spacing (rays+1 values)
//	range edges:   (gate - 0.5) * gate width + first gate (gates+1 values)
//
// Azimuths wrap at north: a step like 355 -> 2 is read as +7 degrees, not
// -353. Ranges are converted from the decoder's kilometers to meters.
//
// Missing samples (below threshold or range folded) are NaN in memory and
// null in the serialized frame. They are never coerced to zero.
//
// # Frame Encoding
//
// [SweepFrame.Encode] produces a msgpack map with the keys cent_lon,
// cent_lat, az, ref_range, data and timestamp (Unix seconds), which is the
// payload cached and served to dashboards.
package domain
