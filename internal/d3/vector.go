package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// R3 vector routines shared by the solvers and topology code.

func Elem(sides float64) r3.Vec {
	return r3.Vec{
		X: sides,
		Y: sides,
		Z: sides,
	}
}

func EqualWithin(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// Near returns true if the euclidean distance between a and b is at most tol.
func Near(a, b r3.Vec, tol float64) bool {
	return r3.Norm2(r3.Sub(a, b)) <= tol*tol
}

// Dist returns the euclidean distance between a and b.
func Dist(a, b r3.Vec) float64 { return r3.Norm(r3.Sub(a, b)) }

// MinElem return a vector with the minimum components of two vectors.
func MinElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

// MaxElem return a vector with the maximum components of two vectors.
func MaxElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

// Lerp linearly interpolates from a to b. t=0 returns a.
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b r3.Vec) r3.Vec {
	return r3.Scale(0.5, r3.Add(a, b))
}
