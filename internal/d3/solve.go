package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// singularRatio is the smallest admissible ratio between the determinant
// of a 3×3 system and the product of its row norms.
const singularRatio = 1e-12

// Solve3 solves the 3×3 linear system whose rows are a0, a1 and a2:
//  a0·x = b.X
//  a1·x = b.Y
//  a2·x = b.Z
// ok is false when the rows are (numerically) linearly dependent.
func Solve3(a0, a1, a2, b r3.Vec) (x r3.Vec, ok bool) {
	c12 := r3.Cross(a1, a2)
	c20 := r3.Cross(a2, a0)
	c01 := r3.Cross(a0, a1)
	det := r3.Dot(a0, c12)
	scale := r3.Norm(a0) * r3.Norm(a1) * r3.Norm(a2)
	if scale == 0 || math.Abs(det) <= singularRatio*scale {
		return r3.Vec{}, false
	}
	x = r3.Add(r3.Add(r3.Scale(b.X, c12), r3.Scale(b.Y, c20)), r3.Scale(b.Z, c01))
	return r3.Scale(1/det, x), true
}
