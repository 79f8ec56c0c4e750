// Package alerts fetches active National Weather Service alerts for a state
// and resolves each alert to a drawable geometry.
package alerts

import (
	"time"

	"github.com/paulmach/orb/geojson"
)

// Alert is one active NWS alert as served to dashboards.
type Alert struct {
	ID           string            `json:"id"`
	Geometry     *geojson.Geometry `json:"geometry"`
	Sent         *time.Time        `json:"sent"`
	Expires      *time.Time        `json:"expires"`
	Effective    *time.Time        `json:"effective"`
	Onset        *time.Time        `json:"onset"`
	Ends         *time.Time        `json:"ends"`
	MessageType  string            `json:"message_type"`
	Severity     string            `json:"severity"`
	Certainty    string            `json:"certainty"`
	Urgency      string            `json:"urgency"`
	Event        string            `json:"event"`
	Headline     string            `json:"headline"`
	Description  string            `json:"description"`
	Instruction  string            `json:"instruction"`
	AreaDesc     string            `json:"area_desc"`
	State        string            `json:"state"`
	MaxHailSize  []string          `json:"max_hail_size"`
	MaxWindSpeed []string          `json:"max_wind_speed"`
	Color        string            `json:"color"`
	IsWeather    bool              `json:"is_weather"`
}

// NWS API response types.

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string            `json:"type"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties properties        `json:"properties"`
}

type properties struct {
	ID            string     `json:"id"`
	AffectedZones []string   `json:"affectedZones"`
	Sent          *time.Time `json:"sent"`
	Expires       *time.Time `json:"expires"`
	Effective     *time.Time `json:"effective"`
	Onset         *time.Time `json:"onset"`
	Ends          *time.Time `json:"ends"`
	MessageType   string     `json:"messageType"`
	Severity      string     `json:"severity"`
	Certainty     string     `json:"certainty"`
	Urgency       string     `json:"urgency"`
	Event         string     `json:"event"`
	Headline      string     `json:"headline"`
	Description   string     `json:"description"`
	Instruction   string     `json:"instruction"`
	AreaDesc      string     `json:"areaDesc"`
	Parameters    struct {
		MaxHailSize  []string `json:"maxHailSize"`
		MaxWindSpeed []string `json:"maxWindSpeed"`
	} `json:"parameters"`
}

type zoneResponse struct {
	Geometry *geojson.Geometry `json:"geometry"`
}
