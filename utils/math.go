package utils

import "math"

// RoundFloat rounds a float64 to the specified number of decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// Percent returns part/whole as a percentage capped at 100, rounded to one
// decimal place. Returns 0 when whole is zero.
func Percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	p := float64(part) / float64(whole) * 100
	if p > 100 {
		p = 100
	}
	return RoundFloat(p, 1)
}
