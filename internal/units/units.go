// Package units provides shared constants and validation for the time
// units found in survey logs and image headers
package units

import "math"

// Time unit constants for the depth log time column
const (
	Seconds      = "seconds"
	Microseconds = "microseconds"
)

// ValidTimeUnits contains all valid time unit values
var ValidTimeUnits = []string{Seconds, Microseconds}

// IsValidTimeUnit checks if the given unit is in the list of valid units
func IsValidTimeUnit(unit string) bool {
	for _, validUnit := range ValidTimeUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidTimeUnitsString returns a comma-separated string of valid units for error messages
func GetValidTimeUnitsString() string {
	return "seconds, microseconds"
}

// ToSeconds converts a time value in the given unit to seconds since epoch.
// Unknown units are treated as seconds.
func ToSeconds(value float64, unit string) float64 {
	switch unit {
	case Microseconds:
		return value / 1e6
	default:
		return value
	}
}

// MicrosToSeconds converts integer microseconds since epoch, as stored in
// image headers, to float seconds.
func MicrosToSeconds(us uint64) float64 {
	return float64(us) / 1e6
}

// SecondsToMicros truncates float seconds to integer microseconds.
// Negative inputs return 0.
func SecondsToMicros(s float64) uint64 {
	if s <= 0 || math.IsNaN(s) {
		return 0
	}
	return uint64(s * 1e6)
}
