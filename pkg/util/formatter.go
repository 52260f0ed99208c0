// Package util holds small presentation helpers shared by the CLI driver:
// engineering-notation value formatting and phasor magnitude/angle
// formatting for printing solved voltages and currents.
package util

import (
	"fmt"
	"math"
	"math/cmplx"
)

// FormatValueFactor renders a real value in engineering notation with an
// SI prefix sized to its magnitude, the way a multimeter reading would be
// written (e.g. "7.200 kV", "1.500 mA").
func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1e3:
		return fmt.Sprintf("%.3f k%s", value/1e3, unit)
	case absValue >= 1:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}

// FormatMagnitude renders a magnitude using scientific notation outside
// the 0.001-1000 band, engineering/fixed notation inside it.
func FormatMagnitude(value float64) string {
	if value >= 1000 || (value < 0.001 && value != 0) {
		return fmt.Sprintf("%8.2e", value)
	}
	return fmt.Sprintf("%8.3g", value)
}

// FormatPhase renders an angle in degrees to one decimal place.
func FormatPhase(degrees float64) string {
	return fmt.Sprintf("%6.1f", degrees)
}

// FormatPhasor renders a complex phasor as "name=mag<angle deg unit",
// used for printing per-phase voltage or current values.
func FormatPhasor(name string, value complex128, unit string) string {
	mag := cmplx.Abs(value)
	deg := cmplx.Phase(value) * 180 / math.Pi
	return fmt.Sprintf("%s=%s<%sdeg%s", name, FormatMagnitude(mag), FormatPhase(deg), unit)
}
