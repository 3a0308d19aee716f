package nurbs

import (
	"math"

	"github.com/soypat/brep/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// collinearRatio bounds |a×b|² relative to |a|²|b|² below which three
// points are treated as collinear.
const collinearRatio = 1e-20

// ThreePointArc returns the rational quadratic Bézier over [0,1] tracing
// the circular arc that starts at p0, passes through transit and ends at p1.
// Collinear points yield the straight segment p0-p1 with unit weights so
// that the degree is preserved. The arc must subtend less than half a turn.
func ThreePointArc(p0, transit, p1 r3.Vec) (*Curve, error) {
	a := r3.Sub(p0, transit)
	b := r3.Sub(p1, transit)
	axb := r3.Cross(a, b)
	axb2 := r3.Norm2(axb)
	if axb2 <= collinearRatio*r3.Norm2(a)*r3.Norm2(b) {
		return &Curve{
			Knots:   BezierKnots(2),
			Degree:  2,
			Ctrl:    []r3.Vec{p0, d3.Midpoint(p0, p1), p1},
			Weights: []float64{1, 1, 1},
		}, nil
	}
	// Circumcenter of the triangle p0, transit, p1.
	num := r3.Cross(r3.Sub(r3.Scale(r3.Norm2(a), b), r3.Scale(r3.Norm2(b), a)), axb)
	center := r3.Add(transit, r3.Scale(1/(2*axb2), num))
	radius := d3.Dist(center, p0)

	// The middle control point lies on the bisector of the chord at
	// distance r/cos(θ/2) from the center, θ being the swept angle.
	dq := r3.Sub(d3.Midpoint(p0, p1), center)
	dq2 := r3.Norm2(dq)
	if dq2 == 0 || r3.Dot(dq, r3.Sub(transit, center)) <= 0 {
		return nil, ErrArcTooWide
	}
	w := math.Sqrt(dq2) / radius
	if w < 1e-8 {
		return nil, ErrArcTooWide
	}
	mid := r3.Add(center, r3.Scale(radius*radius/dq2, dq))
	return &Curve{
		Knots:   BezierKnots(2),
		Degree:  2,
		Ctrl:    []r3.Vec{p0, mid, p1},
		Weights: []float64{1, w, 1},
	}, nil
}

// Line returns the degree one segment from p0 to p1 over [0,1].
func Line(p0, p1 r3.Vec) *Curve {
	return Bezier(p0, p1)
}
