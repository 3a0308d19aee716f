package brep

import "math"

// tau is a full turn in radians.
const tau = 2 * math.Pi

// Clamp x between a and b, assume a <= b
func Clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}

// Mix does a linear interpolation from x to y, a = [0,1]
func Mix(x, y, a float64) float64 {
	return x + (a * (y - x))
}

// wrapAngle returns the angle equivalent to a (mod 2π) closest to ref.
func wrapAngle(a, ref float64) float64 {
	return a + tau*math.Round((ref-a)/tau)
}

// IsInteger reports whether t has no fractional part.
func IsInteger(t float64) bool {
	return t == math.Trunc(t)
}
