package d2

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// R2 routines over surface parameters (u,v).

// Lerp linearly interpolates from a to b. t=0 returns a.
func Lerp(a, b r2.Vec, t float64) r2.Vec {
	return r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
}

// Solve2 solves the symmetric-or-not 2×2 system
//  [a b] x = r.X
//  [c d] x = r.Y
// ok is false when the matrix is singular.
func Solve2(a, b, c, d float64, r r2.Vec) (x r2.Vec, ok bool) {
	det := a*d - b*c
	scale := math.Max(math.Abs(a*d), math.Abs(b*c))
	if det == 0 || math.Abs(det) <= 1e-14*scale {
		return r2.Vec{}, false
	}
	return r2.Vec{
		X: (r.X*d - b*r.Y) / det,
		Y: (a*r.Y - c*r.X) / det,
	}, true
}
