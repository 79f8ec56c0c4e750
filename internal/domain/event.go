package domain

import "time"

// ScanNotification is pushed to listeners when a station publishes a newer
// volume scan. It is also the JSON message sent to subscribers.
type ScanNotification struct {
	Station   string `json:"station"`
	Timestamp int64  `json:"timestamp"`
}

// NewScanNotification builds a notification for station at ts.
func NewScanNotification(station string, ts time.Time) ScanNotification {
	return ScanNotification{
		Station:   NormalizeStation(station),
		Timestamp: ts.Unix(),
	}
}

// Time returns the scan time as a UTC instant.
func (n ScanNotification) Time() time.Time {
	return time.Unix(n.Timestamp, 0).UTC()
}
