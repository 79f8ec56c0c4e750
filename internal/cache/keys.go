package cache

import (
	"fmt"
	"time"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
)

// AlertPolygonTTL is how long NWS zone geometry responses are kept.
const AlertPolygonTTL = 365 * 24 * time.Hour

// SweepKey returns the key of an encoded sweep frame, e.g. "KTLX/0/1714144200".
func SweepKey(station string, sweep int, ts time.Time) string {
	return NormalizeKey(fmt.Sprintf("%s/%d/%d", domain.NormalizeStation(station), sweep, ts.Unix()))
}

// SkipKey marks a sweep that prefetch found absent or without reflectivity,
// e.g. "KTLX/5/1714144200/SKIP".
func SkipKey(station string, sweep int, ts time.Time) string {
	return SweepKey(station, sweep, ts) + "/SKIP"
}

// AlertPolygonKey returns the key of a cached zone geometry response.
func AlertPolygonKey(url string) string {
	return NormalizeKey("ALERT/POLYGON/" + url)
}
