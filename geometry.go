// Package brep defines the geometric capability surface consumed by the
// intersection and blending algorithms of this module, together with a small
// set of analytic curves and surfaces that implement it.
//
// Algorithms never inspect a concrete representation: anything that can be
// evaluated, differentiated and searched qualifies as a Curve or Surface.
package brep

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// Tolerance is the geometric tolerance used for point coincidence.
	Tolerance = 1e-6
	// Tolerance2 is Tolerance squared.
	Tolerance2 = Tolerance * Tolerance
)

// Curve is a parametric curve in R3.
type Curve interface {
	// Subs returns the position at parameter t. Implementations should
	// extrapolate smoothly for t slightly outside Range.
	Subs(t float64) r3.Vec
	// Der returns the first derivative at t.
	Der(t float64) r3.Vec
	// Der2 returns the second derivative at t.
	Der2(t float64) r3.Vec
	// Range returns the parameter range of the curve.
	Range() (t0, t1 float64)
}

// Surface is a parametric surface in R3.
type Surface interface {
	Subs(u, v float64) r3.Vec
	UDer(u, v float64) r3.Vec
	VDer(u, v float64) r3.Vec
	UUDer(u, v float64) r3.Vec
	UVDer(u, v float64) r3.Vec
	VVDer(u, v float64) r3.Vec
	// Normal returns the unit normal at (u,v).
	Normal(u, v float64) r3.Vec
	// Range returns the parameter domain. Bounds may be infinite.
	Range() r2.Box
}

// NearestSearcher is implemented by surfaces that can locate the
// parameter of the nearest point without iterating.
type NearestSearcher interface {
	SearchNearestParameter(p r3.Vec, hint *r2.Vec, trials int) (r2.Vec, bool)
}

// CurveNearestSearcher is the curve counterpart of NearestSearcher.
type CurveNearestSearcher interface {
	SearchNearestParameter(p r3.Vec, hint *float64, trials int) (float64, bool)
}

// SubsUV evaluates s at the parameter vector uv.
func SubsUV(s Surface, uv r2.Vec) r3.Vec { return s.Subs(uv.X, uv.Y) }

// NormalUV returns the normal of s at the parameter vector uv.
func NormalUV(s Surface, uv r2.Vec) r3.Vec { return s.Normal(uv.X, uv.Y) }

// Front returns the start point of the curve.
func Front(c Curve) r3.Vec {
	t0, _ := c.Range()
	return c.Subs(t0)
}

// Back returns the end point of the curve.
func Back(c Curve) r3.Vec {
	_, t1 := c.Range()
	return c.Subs(t1)
}

// Length approximates the arc length of c with div chords.
func Length(c Curve, div int) (length float64) {
	t0, t1 := c.Range()
	prev := c.Subs(t0)
	for i := 1; i <= div; i++ {
		p := c.Subs(t0 + (t1-t0)*float64(i)/float64(div))
		length += r3.Norm(r3.Sub(p, prev))
		prev = p
	}
	return length
}
