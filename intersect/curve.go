package intersect

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/brep"
	"github.com/soypat/brep/internal/d3"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrNotConverged is returned when a sample cannot be projected onto
	// both surfaces within the build tolerance.
	ErrNotConverged = errors.New("intersect: double projection did not converge")
	// ErrNotImplemented is the panic value of operations intersection
	// curves do not support.
	ErrNotImplemented = errors.New("intersect: not implemented")
)

const (
	// divisionDepth caps the adaptive subdivision of ParameterDivision.
	divisionDepth = 16
	// integerSnap is the distance to an integer below which a parameter
	// is treated as landing on a stored sample.
	integerSnap = 1e-9
)

var _ brep.Curve = (*Curve)(nil)

// Curve is the intersection curve of two surfaces, represented by a
// polyline of verified points. For every sample i, both surfaces
// evaluated at their parameters coincide with point i within the build
// tolerance. Positions between samples are computed on demand by
// double projection from the polyline.
//
// A Curve is immutable and safe for concurrent use provided its
// surfaces are.
type Curve struct {
	s0, s1  brep.Surface
	leader  brep.Polyline
	params0 []r2.Vec
	params1 []r2.Vec
	tol     float64
}

// New refines the approximate polyline poly into an intersection curve
// of s0 and s1. Every vertex is moved onto both surfaces by double
// projection along the local polyline direction.
func New(s0, s1 brep.Surface, poly []r3.Vec, tol float64) (*Curve, error) {
	return NewWithHints(s0, s1, poly, nil, nil, tol)
}

// NewWithHints is like New but seeds the parameter searches with the given
// per-vertex parameters. Either hint slice may be nil.
func NewWithHints(s0, s1 brep.Surface, poly []r3.Vec, hints0, hints1 []r2.Vec, tol float64) (*Curve, error) {
	switch {
	case len(poly) < 2:
		return nil, errors.New("intersect: polyline needs at least two points")
	case hints0 != nil && len(hints0) != len(poly), hints1 != nil && len(hints1) != len(poly):
		return nil, errors.New("intersect: hint count does not match polyline")
	case tol < brep.Tolerance:
		return nil, fmt.Errorf("intersect: tolerance %g below geometric tolerance", tol)
	}
	c := &Curve{s0: s0, s1: s1, tol: tol}
	var prev0, prev1 *r2.Vec
	for i, p := range poly {
		h0, h1 := prev0, prev1
		if hints0 != nil {
			h0 = &hints0[i]
		}
		if hints1 != nil {
			h1 = &hints1[i]
		}
		pt, uv0, uv1, ok := DoubleProjection(s0, h0, s1, h1, p, polylineTangent(poly, i), ProjectionTrials)
		if !ok {
			return nil, fmt.Errorf("sample %d at %v: %w", i, p, ErrNotConverged)
		}
		if !d3.Near(brep.SubsUV(s0, uv0), pt, tol) || !d3.Near(brep.SubsUV(s1, uv1), pt, tol) {
			return nil, fmt.Errorf("sample %d off surfaces: %w", i, ErrNotConverged)
		}
		if n := len(c.leader); n > 0 && d3.Near(c.leader[n-1], pt, tol) {
			// Drop consecutive duplicates.
			continue
		}
		c.leader = append(c.leader, pt)
		c.params0 = append(c.params0, uv0)
		c.params1 = append(c.params1, uv1)
		prev0, prev1 = &c.params0[len(c.params0)-1], &c.params1[len(c.params1)-1]
	}
	if len(c.leader) < 2 {
		return nil, fmt.Errorf("polyline collapsed to a point: %w", ErrNotConverged)
	}
	return c, nil
}

// polylineTangent returns the direction of the polyline at vertex i.
// Closed polylines wrap around at their ends.
func polylineTangent(poly []r3.Vec, i int) r3.Vec {
	n := len(poly)
	closed := n > 2 && d3.Near(poly[0], poly[n-1], brep.Tolerance)
	switch {
	case i == 0 && closed:
		return r3.Sub(poly[1], poly[n-2])
	case i == n-1 && closed:
		return r3.Sub(poly[1], poly[n-2])
	case i == 0:
		return r3.Sub(poly[1], poly[0])
	case i == n-1:
		return r3.Sub(poly[n-1], poly[n-2])
	}
	return r3.Sub(poly[i+1], poly[i-1])
}

// Surface0 returns the first surface.
func (c *Curve) Surface0() brep.Surface { return c.s0 }

// Surface1 returns the second surface.
func (c *Curve) Surface1() brep.Surface { return c.s1 }

// Points returns the verified sample points. The slice must not be modified.
func (c *Curve) Points() []r3.Vec { return c.leader }

// Params0 returns the sample parameters on the first surface.
func (c *Curve) Params0() []r2.Vec { return c.params0 }

// Params1 returns the sample parameters on the second surface.
func (c *Curve) Params1() []r2.Vec { return c.params1 }

// Tolerance returns the tolerance the curve was built with.
func (c *Curve) Tolerance() float64 { return c.tol }

// Len returns the number of samples.
func (c *Curve) Len() int { return len(c.leader) }

// Front returns the first sample.
func (c *Curve) Front() r3.Vec { return c.leader[0] }

// Back returns the last sample.
func (c *Curve) Back() r3.Vec { return c.leader[len(c.leader)-1] }

// Range returns [0, Len()-1]. Integer parameters land on samples.
func (c *Curve) Range() (t0, t1 float64) { return c.leader.Range() }

// sampleIndex returns the sample index t lands on, if any.
func (c *Curve) sampleIndex(t float64) (int, bool) {
	r := math.Round(t)
	if math.Abs(t-r) > integerSnap || r < 0 || int(r) >= len(c.leader) {
		return 0, false
	}
	return int(r), true
}

// SearchTriple returns the point at t together with its parameters on
// both surfaces. At sample parameters the stored values are returned.
// Elsewhere the polyline position is refined by double projection along
// the polyline direction. ok is false if the projection failed, in which
// case the polyline position is returned.
func (c *Curve) SearchTriple(t float64) (pt r3.Vec, uv0, uv1 r2.Vec, ok bool) {
	if i, on := c.sampleIndex(t); on {
		return c.leader[i], c.params0[i], c.params1[i], true
	}
	i := int(math.Floor(t))
	if i < 0 {
		i = 0
	} else if i >= len(c.leader) {
		i = len(c.leader) - 1
	}
	h0, h1 := c.params0[i], c.params1[i]
	anchor := c.leader.Subs(t)
	pt, uv0, uv1, ok = DoubleProjection(c.s0, &h0, c.s1, &h1, anchor, c.leader.Der(t), ProjectionTrials)
	if !ok {
		return anchor, h0, h1, false
	}
	return pt, uv0, uv1, true
}

// Subs returns the point at t. It never fails: if the projection does not
// converge the polyline position is returned.
func (c *Curve) Subs(t float64) r3.Vec {
	pt, _, _, _ := c.SearchTriple(t)
	return pt
}

// Der returns the derivative at t: the direction in which the two
// surface normals cross, oriented and scaled like the polyline.
func (c *Curve) Der(t float64) r3.Vec {
	_, uv0, uv1, _ := c.SearchTriple(t)
	lead := c.leader.Der(t)
	dir := r3.Cross(brep.NormalUV(c.s0, uv0), brep.NormalUV(c.s1, uv1))
	n2 := r3.Norm2(dir)
	if n2 < brep.Tolerance2*brep.Tolerance2 {
		// Tangential contact: no crossing direction.
		return lead
	}
	dir = r3.Scale(1/math.Sqrt(n2), dir)
	if r3.Dot(dir, lead) < 0 {
		dir = r3.Scale(-1, dir)
	}
	return r3.Scale(r3.Norm(lead), dir)
}

// Der2 is not supported. Piecewise sampling does not guarantee second
// order continuity. It panics with ErrNotImplemented.
func (c *Curve) Der2(t float64) r3.Vec {
	panic(ErrNotImplemented)
}

// Cut splits c at t into two curves over disjoint sample ranges sharing
// both surfaces. When t lies strictly inside a sampling interval the
// split point is obtained by double projection. ok is false if t is not
// an interior parameter or the split point could not be projected.
func (c *Curve) Cut(t float64) (part0, part1 *Curve, ok bool) {
	t0, t1 := c.Range()
	if t <= t0 || t >= t1 {
		return nil, nil, false
	}
	var i0, i1 int // last sample of part0, first sample of part1 (exclusive split)
	var mid []r3.Vec
	var mid0, mid1 []r2.Vec
	if i, on := c.sampleIndex(t); on {
		if i == 0 || i == len(c.leader)-1 {
			return nil, nil, false
		}
		i0, i1 = i, i
	} else {
		pt, uv0, uv1, solved := c.SearchTriple(t)
		if !solved {
			return nil, nil, false
		}
		i0 = int(math.Floor(t))
		i1 = i0 + 1
		mid, mid0, mid1 = []r3.Vec{pt}, []r2.Vec{uv0}, []r2.Vec{uv1}
	}
	part0 = &Curve{
		s0: c.s0, s1: c.s1, tol: c.tol,
		leader:  append(append(brep.Polyline(nil), c.leader[:i0+1]...), mid...),
		params0: append(append([]r2.Vec(nil), c.params0[:i0+1]...), mid0...),
		params1: append(append([]r2.Vec(nil), c.params1[:i0+1]...), mid1...),
	}
	part1 = &Curve{
		s0: c.s0, s1: c.s1, tol: c.tol,
		leader:  append(append(brep.Polyline(nil), mid...), c.leader[i1:]...),
		params0: append(append([]r2.Vec(nil), mid0...), c.params0[i1:]...),
		params1: append(append([]r2.Vec(nil), mid1...), c.params1[i1:]...),
	}
	return part0, part1, true
}

// Reverse returns the curve traversed backwards.
func (c *Curve) Reverse() *Curve {
	n := len(c.leader)
	r := &Curve{
		s0: c.s0, s1: c.s1, tol: c.tol,
		leader:  make(brep.Polyline, n),
		params0: make([]r2.Vec, n),
		params1: make([]r2.Vec, n),
	}
	for i := 0; i < n; i++ {
		r.leader[i] = c.leader[n-1-i]
		r.params0[i] = c.params0[n-1-i]
		r.params1[i] = c.params1[n-1-i]
	}
	return r
}

// ParameterDivision returns parameters and points approximating the curve
// within tol. When tol is no tighter than the curve's own tolerance the
// stored samples are returned. Otherwise each sampling interval is
// subdivided adaptively until chord midpoints deviate less than tol.
func (c *Curve) ParameterDivision(tol float64) (ts []float64, pts []r3.Vec) {
	if tol >= c.tol {
		ts = make([]float64, len(c.leader))
		for i := range ts {
			ts[i] = float64(i)
		}
		return ts, append([]r3.Vec(nil), c.leader...)
	}
	ts, pts = []float64{0}, []r3.Vec{c.leader[0]}
	for i := 1; i < len(c.leader); i++ {
		ts, pts = c.subdivide(float64(i-1), float64(i), c.leader[i-1], c.leader[i], tol, divisionDepth, ts, pts)
	}
	return ts, pts
}

func (c *Curve) subdivide(ta, tb float64, pa, pb r3.Vec, tol float64, depth int, ts []float64, pts []r3.Vec) ([]float64, []r3.Vec) {
	tm := (ta + tb) / 2
	pm := c.Subs(tm)
	flat := d3.Near(pm, d3.Midpoint(pa, pb), tol)
	if flat {
		// A chord can pass near the midpoint of an S-shaped span, in
		// which case the tangent there is tilted against the chord.
		chord := r3.Sub(pb, pa)
		if dm := c.Der(tm); r3.Norm2(dm) > 0 {
			flat = r3.Norm(r3.Cross(chord, r3.Unit(dm)))/4 <= tol
		}
	}
	if flat || depth == 0 {
		return append(ts, tb), append(pts, pb)
	}
	ts, pts = c.subdivide(ta, tm, pa, pm, tol, depth-1, ts, pts)
	return c.subdivide(tm, tb, pm, pb, tol, depth-1, ts, pts)
}
