package brep

import (
	"math"

	"github.com/soypat/brep/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	_ Curve                = Line{}
	_ CurveNearestSearcher = Line{}
	_ Curve                = Arc{}
	_ CurveNearestSearcher = Arc{}
	_ Curve                = Polyline{}
	_ Curve                = Trimmed{}
	_ Curve                = Reversed{}
)

// Line is the straight segment from P0 (t=0) to P1 (t=1).
type Line struct {
	P0, P1 r3.Vec
}

func (l Line) Subs(t float64) r3.Vec  { return d3.Lerp(l.P0, l.P1, t) }
func (l Line) Der(t float64) r3.Vec   { return r3.Sub(l.P1, l.P0) }
func (l Line) Der2(t float64) r3.Vec  { return r3.Vec{} }
func (l Line) Range() (t0, t1 float64) { return 0, 1 }

// SearchNearestParameter returns the parameter of the orthogonal
// projection of p on the line's support. The result may fall outside [0,1].
func (l Line) SearchNearestParameter(p r3.Vec, _ *float64, _ int) (float64, bool) {
	d := r3.Sub(l.P1, l.P0)
	d2 := r3.Norm2(d)
	if d2 == 0 {
		return 0, false
	}
	return r3.Dot(r3.Sub(p, l.P0), d) / d2, true
}

// Arc is a circular arc parametrized by angle in radians:
//  Subs(t) = Center + Radius*(cos(t)*Ref + sin(t)*(Axis × Ref))
// Axis and Ref must be orthonormal.
type Arc struct {
	Center r3.Vec
	Axis   r3.Vec
	Ref    r3.Vec
	Radius float64
	T0, T1 float64
}

func (a Arc) binormal() r3.Vec { return r3.Cross(a.Axis, a.Ref) }

func (a Arc) Subs(t float64) r3.Vec {
	s, c := math.Sincos(t)
	return r3.Add(a.Center, r3.Scale(a.Radius, r3.Add(r3.Scale(c, a.Ref), r3.Scale(s, a.binormal()))))
}

func (a Arc) Der(t float64) r3.Vec {
	s, c := math.Sincos(t)
	return r3.Scale(a.Radius, r3.Add(r3.Scale(-s, a.Ref), r3.Scale(c, a.binormal())))
}

func (a Arc) Der2(t float64) r3.Vec {
	s, c := math.Sincos(t)
	return r3.Scale(-a.Radius, r3.Add(r3.Scale(c, a.Ref), r3.Scale(s, a.binormal())))
}

func (a Arc) Range() (t0, t1 float64) { return a.T0, a.T1 }

// SearchNearestParameter returns the angle of p around the arc's axis,
// wrapped to lie closest to the hint or to the middle of the arc.
func (a Arc) SearchNearestParameter(p r3.Vec, hint *float64, _ int) (float64, bool) {
	d := r3.Sub(p, a.Center)
	x, y := r3.Dot(d, a.Ref), r3.Dot(d, a.binormal())
	if math.Hypot(x, y) < Tolerance2 {
		return 0, false
	}
	ref := (a.T0 + a.T1) / 2
	if hint != nil {
		ref = *hint
	}
	return wrapAngle(math.Atan2(y, x), ref), true
}

// Polyline is the piecewise linear curve through its points, with
// parameter t in [0, len-1]. Integer parameters land on the points.
type Polyline []r3.Vec

func (p Polyline) segment(t float64) int {
	i := int(math.Floor(t))
	if i < 0 {
		return 0
	}
	if i > len(p)-2 {
		return len(p) - 2
	}
	return i
}

func (p Polyline) Subs(t float64) r3.Vec {
	if len(p) == 1 {
		return p[0]
	}
	i := p.segment(t)
	return d3.Lerp(p[i], p[i+1], t-float64(i))
}

func (p Polyline) Der(t float64) r3.Vec {
	if len(p) == 1 {
		return r3.Vec{}
	}
	i := p.segment(t)
	return r3.Sub(p[i+1], p[i])
}

func (p Polyline) Der2(t float64) r3.Vec { return r3.Vec{} }

func (p Polyline) Range() (t0, t1 float64) { return 0, float64(len(p) - 1) }

// Trimmed restricts a curve to the parameter range [T0, T1].
type Trimmed struct {
	Curve  Curve
	T0, T1 float64
}

func (c Trimmed) Subs(t float64) r3.Vec  { return c.Curve.Subs(t) }
func (c Trimmed) Der(t float64) r3.Vec   { return c.Curve.Der(t) }
func (c Trimmed) Der2(t float64) r3.Vec  { return c.Curve.Der2(t) }
func (c Trimmed) Range() (t0, t1 float64) { return c.T0, c.T1 }

// Trim returns c restricted to [t0, t1]. Nested trims collapse.
func Trim(c Curve, t0, t1 float64) Trimmed {
	if tc, ok := c.(Trimmed); ok {
		c = tc.Curve
	}
	return Trimmed{Curve: c, T0: t0, T1: t1}
}

// Reversed traverses a curve in the opposite direction over the same range.
type Reversed struct {
	Curve Curve
}

func (c Reversed) flip(t float64) float64 {
	t0, t1 := c.Curve.Range()
	return t0 + t1 - t
}

func (c Reversed) Subs(t float64) r3.Vec  { return c.Curve.Subs(c.flip(t)) }
func (c Reversed) Der(t float64) r3.Vec   { return r3.Scale(-1, c.Curve.Der(c.flip(t))) }
func (c Reversed) Der2(t float64) r3.Vec  { return c.Curve.Der2(c.flip(t)) }
func (c Reversed) Range() (t0, t1 float64) { return c.Curve.Range() }

// Reverse returns the reversed curve. Reversing twice returns the original curve.
func Reverse(c Curve) Curve {
	if rc, ok := c.(Reversed); ok {
		return rc.Curve
	}
	return Reversed{Curve: c}
}
