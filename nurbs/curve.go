// Package nurbs implements rational B-spline curves and surfaces: the
// native representation of blend geometry built by package fillet.
package nurbs

import (
	"math"

	"github.com/soypat/brep"
	"github.com/soypat/brep/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ brep.Curve = (*Curve)(nil)

// Curve is a (possibly rational) B-spline curve. A nil Weights slice
// denotes a polynomial curve.
type Curve struct {
	Knots   KnotVector
	Degree  int
	Ctrl    []r3.Vec
	Weights []float64
}

// NewCurve validates its arguments and returns the curve they describe.
func NewCurve(knots KnotVector, degree int, ctrl []r3.Vec, weights []float64) (*Curve, error) {
	if err := knots.validate(degree, len(ctrl)); err != nil {
		return nil, err
	}
	if weights != nil {
		if len(weights) != len(ctrl) {
			return nil, errMsg("weight count must equal control point count")
		}
		for _, w := range weights {
			if w <= 0 || math.IsNaN(w) {
				return nil, errMsg("weights must be positive")
			}
		}
	}
	return &Curve{Knots: knots, Degree: degree, Ctrl: ctrl, Weights: weights}, nil
}

// Bezier returns the Bézier curve over [0,1] with the given control points.
func Bezier(ctrl ...r3.Vec) *Curve {
	if len(ctrl) < 2 {
		panic("bezier needs at least two control points")
	}
	return &Curve{Knots: BezierKnots(len(ctrl) - 1), Degree: len(ctrl) - 1, Ctrl: ctrl}
}

// Hermite returns the cubic Bézier over [0,1] starting at p0 with
// derivative d0 and ending at p1 with derivative d1.
func Hermite(p0, d0, p1, d1 r3.Vec) *Curve {
	return Bezier(
		p0,
		r3.Add(p0, r3.Scale(1./3, d0)),
		r3.Sub(p1, r3.Scale(1./3, d1)),
		p1,
	)
}

func (c *Curve) weight(i int) float64 {
	if c.Weights == nil {
		return 1
	}
	return c.Weights[i]
}

// IsRational reports whether the curve carries weights.
func (c *Curve) IsRational() bool { return c.Weights != nil }

// homogeneous returns the derivatives up to second order of the
// weighted point function A(t) and the weight function W(t).
func (c *Curve) homogeneous(t float64) (a [3]r3.Vec, w [3]float64) {
	p := c.Degree
	span := c.Knots.span(p, t)
	n := c.Knots.basisDers(span, p, 2, t)
	for j := 0; j <= p; j++ {
		idx := span - p + j
		wi := c.weight(idx)
		for k := 0; k < 3; k++ {
			nw := n[k][j] * wi
			a[k] = r3.Add(a[k], r3.Scale(nw, c.Ctrl[idx]))
			w[k] += nw
		}
	}
	return a, w
}

// ders returns the position and its first two derivatives at t.
func (c *Curve) ders(t float64) (pt, d1, d2 r3.Vec) {
	a, w := c.homogeneous(t)
	pt = r3.Scale(1/w[0], a[0])
	d1 = r3.Scale(1/w[0], r3.Sub(a[1], r3.Scale(w[1], pt)))
	d2 = r3.Scale(1/w[0], r3.Sub(r3.Sub(a[2], r3.Scale(2*w[1], d1)), r3.Scale(w[2], pt)))
	return pt, d1, d2
}

func (c *Curve) Subs(t float64) r3.Vec {
	a, w := c.homogeneous(t)
	return r3.Scale(1/w[0], a[0])
}

func (c *Curve) Der(t float64) r3.Vec {
	_, d1, _ := c.ders(t)
	return d1
}

func (c *Curve) Der2(t float64) r3.Vec {
	_, _, d2 := c.ders(t)
	return d2
}

func (c *Curve) Range() (t0, t1 float64) { return c.Knots.Range(c.Degree) }

// Clone returns a deep copy of c.
func (c *Curve) Clone() *Curve {
	out := &Curve{
		Knots:  c.Knots.Clone(),
		Degree: c.Degree,
		Ctrl:   append([]r3.Vec(nil), c.Ctrl...),
	}
	if c.Weights != nil {
		out.Weights = append([]float64(nil), c.Weights...)
	}
	return out
}

// Normalize returns a copy of c reparametrized affinely over [0,1].
func (c *Curve) Normalize() *Curve {
	return c.Reparametrize(0, 1)
}

// Reparametrize returns a copy of c reparametrized affinely over [t0,t1].
func (c *Curve) Reparametrize(t0, t1 float64) *Curve {
	out := c.Clone()
	out.Knots = c.Knots.Transform(c.Degree, t0, t1)
	return out
}

// Reverse returns c traversed in the opposite direction over the same range.
func (c *Curve) Reverse() *Curve {
	t0, t1 := c.Range()
	out := c.Clone()
	n := len(c.Knots)
	for i, t := range c.Knots {
		out.Knots[n-1-i] = t0 + t1 - t
	}
	for i := range c.Ctrl {
		out.Ctrl[len(c.Ctrl)-1-i] = c.Ctrl[i]
		if c.Weights != nil {
			out.Weights[len(c.Ctrl)-1-i] = c.Weights[i]
		}
	}
	return out
}

// Concat joins a and b end to end. The back of a must coincide with
// the front of b within tol and both must share the same degree. The
// range of b is shifted to start where the range of a ends.
func Concat(a, b *Curve, tol float64) (*Curve, error) {
	if a.Degree != b.Degree {
		return nil, errMsg("degree mismatch")
	}
	if !d3.Near(a.Ctrl[len(a.Ctrl)-1], b.Ctrl[0], tol) {
		return nil, errMsg("curves are not connected")
	}
	out := &Curve{
		Knots:  concatKnots(a.Knots, b.Knots, a.Degree),
		Degree: a.Degree,
		Ctrl:   append(append([]r3.Vec(nil), a.Ctrl...), b.Ctrl[1:]...),
	}
	if a.IsRational() || b.IsRational() {
		// Rescale b so the weights agree at the joint. A rational curve
		// is invariant under uniform weight scaling.
		s := a.weight(len(a.Ctrl)-1) / b.weight(0)
		out.Weights = make([]float64, 0, len(out.Ctrl))
		for i := range a.Ctrl {
			out.Weights = append(out.Weights, a.weight(i))
		}
		for i := 1; i < len(b.Ctrl); i++ {
			out.Weights = append(out.Weights, s*b.weight(i))
		}
	}
	return out, nil
}
