package domain

import (
	"regexp"
	"strings"
)

// Wildcard is the registry key that matches every station.
const Wildcard = "*"

var stationRe = regexp.MustCompile(`^[A-Z][A-Z0-9]{3}$`)

// NormalizeStation canonicalizes a station identifier for keys and lookups.
func NormalizeStation(station string) string {
	return strings.ToUpper(strings.TrimSpace(station))
}

// ValidStation reports whether station looks like a four-character ICAO radar
// identifier such as KTLX. The check runs after normalization.
func ValidStation(station string) bool {
	return stationRe.MatchString(NormalizeStation(station))
}
