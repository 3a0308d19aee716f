package brep

import (
	"math"

	"github.com/soypat/brep/internal/d2"
	"github.com/soypat/brep/internal/d3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// presearchDivision is the grid size used to seed searches without a hint.
	presearchDivision = 16
	// curvePresearchDivision is the number of samples used for curves.
	curvePresearchDivision = 64
	// stepTolerance2 is the squared step length at which iterations stop.
	stepTolerance2 = 1e-18
)

// SearchNearestParameter returns the parameter of the point on s nearest to p.
// If hint is nil the search is seeded by sampling s. Surfaces implementing
// NearestSearcher answer directly. ok is false if the search did not
// converge within trials Newton iterations.
func SearchNearestParameter(s Surface, p r3.Vec, hint *r2.Vec, trials int) (r2.Vec, bool) {
	if ns, ok := s.(NearestSearcher); ok {
		return ns.SearchNearestParameter(p, hint, trials)
	}
	return searchNearest(s, p, hint, trials)
}

func searchNearest(s Surface, p r3.Vec, hint *r2.Vec, trials int) (r2.Vec, bool) {
	var uv r2.Vec
	if hint != nil {
		uv = *hint
	} else {
		uv = Presearch(s, p, presearchDivision)
	}
	for i := 0; i < trials; i++ {
		u, v := uv.X, uv.Y
		d := r3.Sub(s.Subs(u, v), p)
		su, sv := s.UDer(u, v), s.VDer(u, v)
		a := r3.Dot(su, su) + r3.Dot(d, s.UUDer(u, v))
		b := r3.Dot(su, sv) + r3.Dot(d, s.UVDer(u, v))
		c := r3.Dot(sv, sv) + r3.Dot(d, s.VVDer(u, v))
		delta, ok := d2.Solve2(a, b, b, c, r2.Vec{X: r3.Dot(su, d), Y: r3.Dot(sv, d)})
		if !ok {
			return uv, false
		}
		uv = r2.Sub(uv, delta)
		if r2.Norm2(delta) < stepTolerance2 {
			return uv, true
		}
	}
	return uv, false
}

// SearchParameter returns the parameter of p on s. ok is false if p is
// not on s within Tolerance or the search failed.
func SearchParameter(s Surface, p r3.Vec, hint *r2.Vec, trials int) (r2.Vec, bool) {
	uv, ok := SearchNearestParameter(s, p, hint, trials)
	if !ok || !d3.Near(SubsUV(s, uv), p, Tolerance) {
		return uv, false
	}
	return uv, true
}

// sampleWindow returns the range of s with infinite bounds replaced by ±1.
func sampleWindow(s Surface) d2.Box {
	rng := d2.Box(s.Range())
	window := func(x, fallback float64) float64 {
		if math.IsInf(x, 0) {
			return fallback
		}
		return x
	}
	rng.Min = r2.Vec{X: window(rng.Min.X, -1), Y: window(rng.Min.Y, -1)}
	rng.Max = r2.Vec{X: window(rng.Max.X, 1), Y: window(rng.Max.Y, 1)}
	return rng
}

// Presearch samples s on a div×div grid over its range and returns the
// parameter of the sample nearest to p. Unbounded directions are sampled
// over [-1,1].
func Presearch(s Surface, p r3.Vec, div int) r2.Vec {
	rng := sampleWindow(s)
	us := floats.Span(make([]float64, div+1), rng.Min.X, rng.Max.X)
	vs := floats.Span(make([]float64, div+1), rng.Min.Y, rng.Max.Y)
	best := math.Inf(1)
	var uv r2.Vec
	for _, u := range us {
		for _, v := range vs {
			d := r3.Norm2(r3.Sub(s.Subs(u, v), p))
			if d < best {
				best = d
				uv = r2.Vec{X: u, Y: v}
			}
		}
	}
	return uv
}

// SearchNearestCurveParameter returns the parameter of the point on c
// nearest to p. The search uses only first derivatives so curves whose
// second derivative is unavailable can be searched.
func SearchNearestCurveParameter(c Curve, p r3.Vec, hint *float64, trials int) (float64, bool) {
	if ns, ok := c.(CurveNearestSearcher); ok {
		return ns.SearchNearestParameter(p, hint, trials)
	}
	var t float64
	if hint != nil {
		t = *hint
	} else {
		t = presearchCurve(c, p)
	}
	for i := 0; i < trials; i++ {
		der := c.Der(t)
		den := r3.Norm2(der)
		if den == 0 {
			return t, false
		}
		dt := r3.Dot(r3.Sub(c.Subs(t), p), der) / den
		t -= dt
		if dt*dt*den < stepTolerance2 {
			return t, true
		}
	}
	return t, false
}

func presearchCurve(c Curve, p r3.Vec) float64 {
	t0, t1 := c.Range()
	ts := floats.Span(make([]float64, curvePresearchDivision+1), t0, t1)
	best, bestT := math.Inf(1), t0
	for _, t := range ts {
		d := r3.Norm2(r3.Sub(c.Subs(t), p))
		if d < best {
			best, bestT = d, t
		}
	}
	return bestT
}

// SearchClosestParameters returns the parameters s and t at which the
// curves c0 and c1 come closest, starting from the given hints.
// For crossing curves this locates the crossing.
func SearchClosestParameters(c0, c1 Curve, hint0, hint1 float64, trials int) (s, t float64, ok bool) {
	s, t = hint0, hint1
	for i := 0; i < trials; i++ {
		r := r3.Sub(c0.Subs(s), c1.Subs(t))
		d0, d1 := c0.Der(s), c1.Der(t)
		a, b, c := r3.Dot(d0, d0), r3.Dot(d0, d1), r3.Dot(d1, d1)
		delta, solved := d2.Solve2(a, -b, -b, c, r2.Vec{X: -r3.Dot(d0, r), Y: r3.Dot(d1, r)})
		if !solved {
			return s, t, false
		}
		s += delta.X
		t += delta.Y
		step := r3.Sub(r3.Scale(delta.X, d0), r3.Scale(delta.Y, d1))
		if r3.Norm2(step) < stepTolerance2 {
			return s, t, true
		}
	}
	return s, t, false
}

// SearchCurveCrossing returns the parameter t on c and uv on s at which c
// passes through s, starting from the given hints. Curves whose samples
// are only accurate to Tolerance are accepted once the iteration stalls
// within it.
func SearchCurveCrossing(c Curve, s Surface, hintT float64, hintUV r2.Vec, trials int) (t float64, uv r2.Vec, ok bool) {
	t, uv = hintT, hintUV
	for i := 0; i < trials; i++ {
		r := r3.Sub(c.Subs(t), SubsUV(s, uv))
		su, sv, dc := s.UDer(uv.X, uv.Y), s.VDer(uv.X, uv.Y), c.Der(t)
		// su·du + sv·dv - dc·dt = r
		delta, solved := d3.Solve3(
			r3.Vec{X: su.X, Y: sv.X, Z: -dc.X},
			r3.Vec{X: su.Y, Y: sv.Y, Z: -dc.Y},
			r3.Vec{X: su.Z, Y: sv.Z, Z: -dc.Z},
			r,
		)
		if !solved {
			return t, uv, false
		}
		uv.X += delta.X
		uv.Y += delta.Y
		t += delta.Z
		if r3.Norm2(r) < stepTolerance2 {
			return t, uv, true
		}
	}
	r := r3.Sub(c.Subs(t), SubsUV(s, uv))
	return t, uv, r3.Norm2(r) < Tolerance2
}
