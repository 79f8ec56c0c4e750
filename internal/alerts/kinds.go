package alerts

// DefaultColor is used for event kinds without an assigned color.
const DefaultColor = "#FD6347"

type eventKind struct {
	color   string
	weather bool
}

// eventKinds maps NWS event names to their map color and whether they describe
// weather (as opposed to civil or technological hazards).
// See https://www.weather.gov/help-map and https://www.weather.gov/nwr/eventcodes.
var eventKinds = map[string]eventKind{
	"Blizzard Warning":            {"#FF4500", true},
	"Coastal Flood Watch":         {"#66CDAA", true},
	"Coastal Flood Warning":       {"#228B22", true},
	"Dust Storm Warning":          {"#FFE4C4", true},
	"Extreme Wind Warning":        {"#FF8C00", true},
	"Flash Flood Watch":           {"#2E8B57", true},
	"Flash Flood Warning":         {"#8B0000", true},
	"Flash Flood Statement":       {"#8B0000", true},
	"Flood Advisory":              {DefaultColor, true},
	"Flood Watch":                 {"#2E8B57", true},
	"Flood Warning":               {"#00FF00", true},
	"Flood Statement":             {"#00FF00", true},
	"High Wind Watch":             {"#B8860B", true},
	"High Wind Warning":           {"#DAA520", true},
	"Hurricane Watch":             {"#FF00FF", true},
	"Hurricane Warning":           {"#DC143C", true},
	"Hurricane Statement":         {"#FFE4B5", true},
	"Severe Thunderstorm Watch":   {"#DB7093", true},
	"Severe Thunderstorm Warning": {"#FFA500", true},
	"Severe Weather Statement":    {"#00FFFF", true},
	"Snow Squall Warning":         {"#C71585", true},
	"Special Marine Warning":      {"#FFA500", true},
	"Special Weather Statement":   {"#FFE4B5", true},
	"Storm Surge Watch":           {"#DB7FF7", true},
	"Storm Surge Warning":         {"#B524F7", true},
	"Tornado Watch":               {"#FFFF00", true},
	"Tornado Warning":             {"#FF0000", true},
	"Tropical Storm Watch":        {"#F08080", true},
	"Tropical Storm Warning":      {"#B22222", true},
	"Tsunami Watch":               {"#FF00FF", true},
	"Tsunami Warning":             {"#FD6347", true},
	"Winter Storm Watch":          {"#4682B4", true},
	"Winter Storm Warning":        {"#FF69B4", true},

	"Avalanche Watch":                {"#F4A460", false},
	"Avalanche Warning":              {"#1E90FF", false},
	"Blue Alert":                     {"#B0C4DE", false},
	"Child Abduction Emergency":      {"#800000", false},
	"Civil Danger Warning":           {"#FFB6C1", false},
	"Civil Emergency Message":        {"#FFB6C1", false},
	"Earthquake Warning":             {"#8B4513", false},
	"Evacuation Immediate":           {"#7FFF00", false},
	"Fire Warning":                   {"#A0522D", false},
	"Hazardous Materials Warning":    {"#4B0082", false},
	"Law Enforcement Warning":        {"#C0C0C0", false},
	"Local Area Emergency":           {"#C0C0C0", false},
	"911 Telephone Outage Emergency": {"#C0C0C0", false},
	"Nuclear Power Plant Warning":    {"#4B0082", false},
	"Radiological Hazard Warning":    {"#4B0082", false},
	"Shelter in Place Warning":       {"#FA8072", false},
	"Volcano Warning":                {"#2F4F4F", false},
}

// Classify returns the map color of an event and whether it is a weather
// event. Unknown events get DefaultColor and are not weather.
func Classify(event string) (color string, weather bool) {
	k, ok := eventKinds[event]
	if !ok {
		return DefaultColor, false
	}
	return k.color, k.weather
}
