package heatmap

import "math"

// SeverityLevel buckets a harmful-organism count for display.
type SeverityLevel string

const (
	SeverityZero      SeverityLevel = "ZERO"
	SeverityLow       SeverityLevel = "LOW"
	SeverityModerate  SeverityLevel = "MODERATE"
	SeverityHigh      SeverityLevel = "HIGH"
	SeverityVeryHigh  SeverityLevel = "VERY_HIGH"
	SeverityEmergency SeverityLevel = "EMERGENCY"
)

type band struct {
	level    SeverityLevel
	min, max int
	color    string
}

// bands are ordered from ZERO to EMERGENCY; bounds are inclusive.
var bands = []band{
	{SeverityZero, 0, 0, "#2ecc71"},
	{SeverityLow, 1, 5, "#f1c40f"},
	{SeverityModerate, 6, 10, "#e67e22"},
	{SeverityHigh, 11, 20, "#e74c3c"},
	{SeverityVeryHigh, 21, 30, "#c0392b"},
	{SeverityEmergency, 31, math.MaxInt, "#7f0000"},
}

// SeverityFor maps a count to its level. Counts outside every band are EMERGENCY.
func SeverityFor(count int) SeverityLevel {
	for _, b := range bands {
		if count >= b.min && count <= b.max {
			return b.level
		}
	}
	return SeverityEmergency
}

// Color returns the display color of the level.
func (l SeverityLevel) Color() string {
	for _, b := range bands {
		if b.level == l {
			return b.color
		}
	}
	return ""
}

// LegendEntry is one row of the severity legend.
type LegendEntry struct {
	Level SeverityLevel `json:"level"`
	Color string        `json:"color"`
	Min   int           `json:"minInclusive"`
	// Max is nil for the open-ended top band.
	Max *int `json:"maxInclusive,omitempty"`
}

// Legend lists every level in ascending order.
func Legend() []LegendEntry {
	legend := make([]LegendEntry, 0, len(bands))
	for _, b := range bands {
		entry := LegendEntry{Level: b.level, Color: b.color, Min: b.min}
		if b.max != math.MaxInt {
			max := b.max
			entry.Max = &max
		}
		legend = append(legend, entry)
	}
	return legend
}
