package nurbs

import (
	"math"

	"github.com/soypat/brep"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// FromCurve converts c to a B-spline curve over the same parameter range.
// Lines and NURBS convert exactly, arcs convert to the exact circle with a
// rational parametrization, and other curves are interpolated by div cubic
// Hermite spans matching position and derivative at the span ends.
func FromCurve(c brep.Curve, div int) *Curve {
	t0, t1 := c.Range()
	switch cc := c.(type) {
	case *Curve:
		return cc.Clone()
	case brep.Line:
		return Bezier(cc.P0, cc.P1).Reparametrize(t0, t1)
	case brep.Arc:
		return fromArc(cc).Reparametrize(t0, t1)
	case brep.Reversed:
		if inner, ok := cc.Curve.(*Curve); ok {
			return inner.Reverse()
		}
	}
	return hermiteApprox(c, div)
}

// fromArc splits the arc into spans of at most a quarter turn, each an
// exact rational quadratic.
func fromArc(a brep.Arc) *Curve {
	sweep := a.T1 - a.T0
	n := int(math.Ceil(math.Abs(sweep) / (math.Pi / 2)))
	if n < 1 {
		n = 1
	}
	h := sweep / float64(n) / 2
	w := math.Cos(h)
	var out *Curve
	for i := 0; i < n; i++ {
		ts := a.T0 + float64(2*i)*h
		mid := r3.Add(a.Center, r3.Scale(1/w, r3.Sub(a.Subs(ts+h), a.Center)))
		span := &Curve{
			Knots:   BezierKnots(2),
			Degree:  2,
			Ctrl:    []r3.Vec{a.Subs(ts), mid, a.Subs(ts + 2*h)},
			Weights: []float64{1, w, 1},
		}
		if out == nil {
			out = span
			continue
		}
		var err error
		out, err = Concat(out, span, brep.Tolerance)
		if err != nil {
			panic(err)
		}
	}
	return out
}

func hermiteApprox(c brep.Curve, div int) *Curve {
	if div < 1 {
		div = 1
	}
	t0, t1 := c.Range()
	ts := floats.Span(make([]float64, div+1), t0, t1)
	dt := (t1 - t0) / float64(div)
	var out *Curve
	for i := 0; i < div; i++ {
		span := Hermite(
			c.Subs(ts[i]), r3.Scale(dt, c.Der(ts[i])),
			c.Subs(ts[i+1]), r3.Scale(dt, c.Der(ts[i+1])),
		)
		if out == nil {
			out = span
			continue
		}
		// Sampling the same parameter yields the same point, so the joint is exact.
		out.Knots = concatKnots(out.Knots, span.Knots, 3)
		out.Ctrl = append(out.Ctrl, span.Ctrl[1:]...)
	}
	return out.Reparametrize(t0, t1)
}
