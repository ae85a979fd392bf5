// Package units provides shared constants and validation for speed units.
package units

import "strings"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// kphToMPH is the factor the sensor firmware documentation uses.
const kphToMPH = 0.6212712

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertFromKPH converts a sensor speed in km/h to the target units.
// Unknown units leave the value in km/h.
func ConvertFromKPH(speedKPH float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedKPH * kphToMPH
	case MPS:
		return speedKPH / 3.6
	default:
		return speedKPH
	}
}

// Label returns the display suffix for a unit, e.g. "km/h".
func Label(unit string) string {
	switch unit {
	case MPH:
		return "mph"
	case MPS:
		return "m/s"
	case KMPH, KPH:
		return "km/h"
	default:
		return unit
	}
}
