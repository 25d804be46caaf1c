package aqi

// Label is the human-readable name of an AQI category.
type Label string

const (
	Good               Label = "Good"
	Moderate           Label = "Moderate"
	UnhealthySensitive Label = "Unhealthy for Sensitive Groups"
	Unhealthy          Label = "Unhealthy"
	VeryUnhealthy      Label = "Very Unhealthy"
	Hazardous          Label = "Hazardous"
)

// Level is a closed AQI range mapped to a category label.
type Level struct {
	Min   int   `json:"min"`
	Max   int   `json:"max"`
	Label Label `json:"label"`
}

// Contains reports whether index falls inside [Min, Max].
func (l Level) Contains(index int) bool {
	return l.Min <= index && index <= l.Max
}

// levels is ordered from least to most severe and covers [0, 500] without gaps.
var levels = []Level{
	{Min: 0, Max: 50, Label: Good},
	{Min: 51, Max: 100, Label: Moderate},
	{Min: 101, Max: 150, Label: UnhealthySensitive},
	{Min: 151, Max: 200, Label: Unhealthy},
	{Min: 201, Max: 300, Label: VeryUnhealthy},
	{Min: 301, Max: 500, Label: Hazardous},
}

// Levels returns a copy of the category table.
func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}

// Classify maps an AQI value to its level. Values outside every range
// (above 500 or negative) are reported as the most severe level so a bad
// reading is never under-classified.
func Classify(index int) Level {
	for _, l := range levels {
		if l.Contains(index) {
			return l
		}
	}
	return levels[len(levels)-1]
}

// legacyNames maps the upper-case level names written by earlier releases
// to their labels.
var legacyNames = map[string]Label{
	"GOOD":                Good,
	"MODERATE":            Moderate,
	"UNHEALTHY_SENSITIVE": UnhealthySensitive,
	"UNHEALTHY":           Unhealthy,
	"VERY_UNHEALTHY":      VeryUnhealthy,
	"HAZARDOUS":           Hazardous,
}

// ParseLabel normalises a stored level string. Unknown strings are returned unchanged.
func ParseLabel(s string) Label {
	if l, ok := legacyNames[s]; ok {
		return l
	}
	return Label(s)
}
