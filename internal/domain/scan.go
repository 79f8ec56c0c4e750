package domain

import (
	"fmt"
	"regexp"
	"time"
)

const (
	// scanTimeLayout is the fixed-width timestamp embedded in archive keys.
	// Zero padding makes lexicographic key order equal chronological order.
	scanTimeLayout = "20060102_150405"

	// scanSuffix terminates every volume scan key.
	scanSuffix = "_V06"

	// MetadataSuffix marks metadata objects that share the scan prefix.
	MetadataSuffix = "_MDM"
)

// ScanReference is an opaque handle to one stored volume scan.
type ScanReference struct {
	Key string
}

// HourPrefix returns the listing prefix covering every scan a station
// produced during the UTC hour containing t, e.g.
// "2024/04/26/KTLX/KTLX20240426_15".
func HourPrefix(station string, t time.Time) string {
	station = NormalizeStation(station)
	t = t.UTC()
	return fmt.Sprintf("%s/%s/%s%s", t.Format("2006/01/02"), station, station, t.Format("20060102_15"))
}

// ScanKey builds the archive key of the scan a station produced at ts, e.g.
// "2024/04/26/KTLX/KTLX20240426_151000_V06". It is the exact inverse of
// ExtractTimestamp.
func ScanKey(station string, ts time.Time) string {
	station = NormalizeStation(station)
	ts = ts.UTC()
	return fmt.Sprintf("%s/%s/%s%s%s", ts.Format("2006/01/02"), station, station, ts.Format(scanTimeLayout), scanSuffix)
}

// ExtractTimestamp parses the scan time out of a reference's key.
func ExtractTimestamp(ref ScanReference, station string) (time.Time, error) {
	station = regexp.QuoteMeta(NormalizeStation(station))
	re, err := regexp.Compile(`^\d{4}/\d{2}/\d{2}/` + station + `/` + station + `(\d{8}_\d{6})` + scanSuffix + `$`)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTimestampParse, err)
	}
	m := re.FindStringSubmatch(ref.Key)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: key %q does not match station %s", ErrTimestampParse, ref.Key, station)
	}
	ts, err := time.ParseInLocation(scanTimeLayout, m[1], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTimestampParse, err)
	}
	return ts, nil
}
