// Package units provides shared constants and validation for vibration
// velocity units.
package units

// Unit constants. Sensors and the database report velocity in mm/s.
const (
	MMPS = "mmps" // millimetres per second
	IPS  = "ips"  // inches per second
	MPS  = "mps"  // metres per second
)

// ValidUnits contains all valid unit values.
var ValidUnits = []string{MMPS, IPS, MPS}

// IsValid checks if the given unit is in the list of valid units.
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for
// error messages.
func GetValidUnitsString() string {
	return "mmps, ips, mps"
}

// ConvertVelocity converts a velocity from mm/s to the target units. Unknown
// units pass the value through unchanged.
func ConvertVelocity(velMMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case IPS:
		return velMMPS / 25.4
	case MPS:
		return velMMPS / 1000.0
	case MMPS:
		return velMMPS
	default:
		return velMMPS
	}
}
