package fillet

import (
	"fmt"
	"math"

	"github.com/soypat/brep"
	"github.com/soypat/brep/internal/d2"
	"github.com/soypat/brep/internal/d3"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// MarchTrials caps the iterations of one relay sphere solve.
	MarchTrials = 100
	// nearestTrials caps the nearest-parameter searches seeding a sample.
	nearestTrials = 10
)

// ContactPoint is a point on a surface together with its parameter.
type ContactPoint struct {
	Point r3.Vec
	UV    r2.Vec
}

// RelaySphere is a sphere of given radius tangent to two surfaces.
type RelaySphere struct {
	Center   r3.Vec
	Radius   float64
	Contact0 ContactPoint
	Contact1 ContactPoint
	// Transit lies on the sphere halfway between the contacts, on the
	// great circle through both.
	Transit r3.Vec
	// Converged is false when the solve ran out of iterations. The
	// sphere then holds the last iterate.
	Converged bool
}

// RelaySphereAt solves for the sphere of the given radius tangent to s0
// and s1 whose center lies on the plane through point with normal tangent.
// hint0 and hint1 are the starting contact parameters, usually those of
// point on each surface. The normals of s0 and s1 must point away from the
// sphere center.
//
// Each iteration places the center at depth radius below both tangent
// planes, then takes one Gauss-Newton step on each surface toward the
// foot of the center's offset point.
func RelaySphereAt(s0, s1 brep.Surface, hint0, hint1 r2.Vec, point, tangent r3.Vec, radius float64) RelaySphere {
	rs := RelaySphere{
		Radius:   radius,
		Contact0: ContactPoint{Point: brep.SubsUV(s0, hint0), UV: hint0},
		Contact1: ContactPoint{Point: brep.SubsUV(s1, hint1), UV: hint1},
	}
	for i := 0; i < MarchTrials; i++ {
		p0, uv0 := rs.Contact0.Point, rs.Contact0.UV
		p1, uv1 := rs.Contact1.Point, rs.Contact1.UV
		n0, n1 := brep.NormalUV(s0, uv0), brep.NormalUV(s1, uv1)
		center, ok := d3.Solve3(n0, n1, tangent, r3.Vec{
			X: r3.Dot(n0, p0) - radius,
			Y: r3.Dot(n1, p1) - radius,
			Z: r3.Dot(tangent, point),
		})
		if !ok {
			// Tangent surfaces: no unique center.
			break
		}
		rs.Center = center
		q0 := r3.Add(center, r3.Scale(radius, n0))
		q1 := r3.Add(center, r3.Scale(radius, n1))
		if d3.Near(p0, q0, brep.Tolerance) && d3.Near(p1, q1, brep.Tolerance) {
			rs.Converged = true
			break
		}
		uv0 = stepToward(s0, uv0, p0, q0)
		uv1 = stepToward(s1, uv1, p1, q1)
		rs.Contact0 = ContactPoint{Point: brep.SubsUV(s0, uv0), UV: uv0}
		rs.Contact1 = ContactPoint{Point: brep.SubsUV(s1, uv1), UV: uv1}
	}
	mid := d3.Midpoint(rs.Contact0.Point, rs.Contact1.Point)
	if dir := r3.Sub(mid, rs.Center); r3.Norm2(dir) > 0 {
		rs.Transit = r3.Add(rs.Center, r3.Scale(radius, r3.Unit(dir)))
	} else {
		rs.Transit = mid
	}
	return rs
}

// stepToward returns the parameter after one Gauss-Newton step moving
// S(uv)=p toward target.
func stepToward(s brep.Surface, uv r2.Vec, p, target r3.Vec) r2.Vec {
	su, sv := s.UDer(uv.X, uv.Y), s.VDer(uv.X, uv.Y)
	d := r3.Sub(target, p)
	a, b, c := r3.Dot(su, su), r3.Dot(su, sv), r3.Dot(sv, sv)
	delta, ok := d2.Solve2(a, b, b, c, r2.Vec{X: r3.Dot(su, d), Y: r3.Dot(sv, d)})
	if !ok {
		return uv
	}
	return r2.Add(uv, delta)
}

// Marcher samples relay spheres along a guide curve.
type Marcher struct {
	// Division is the number of intervals between samples.
	Division int
	// Extend adds one sample beyond each end of the guide.
	Extend bool
	// Overshoot is the guide parameter distance of the extension samples
	// from the guide ends. It is at least one interval.
	Overshoot float64
	// Workers bounds the goroutines solving samples. Values below two
	// solve sequentially. Results do not depend on Workers.
	Workers int
}

// RelaySpheres marches division intervals along guide with a sequential
// Marcher.
func RelaySpheres(s0, s1 brep.Surface, guide brep.Curve, division int, radius func(s float64) float64, extend bool) ([]RelaySphere, error) {
	return Marcher{Division: division, Extend: extend}.March(s0, s1, guide, radius)
}

// March returns relay spheres between s0 and s1 sampled at evenly spaced
// guide parameters, ordered by increasing arc length. radius receives the
// normalized arc length of the sample, clamped to [0,1].
//
// Samples are seeded in order, each contact search hinted by the previous
// one. A failed search at the first sample aborts with ErrMarchAborted;
// later failures reuse the previous sample's contact parameters.
func (m Marcher) March(s0, s1 brep.Surface, guide brep.Curve, radius func(s float64) float64) ([]RelaySphere, error) {
	if m.Division < 1 {
		return nil, fmt.Errorf("fillet: march division must be positive, got %d", m.Division)
	}
	t0, t1 := guide.Range()
	first, last := 0, m.Division
	if m.Extend {
		first, last = -1, m.Division+1
	}
	n := last - first + 1
	ts := make([]float64, n)
	pts := make([]r3.Vec, n)
	step := (t1 - t0) / float64(m.Division)
	ext := math.Max(step, m.Overshoot)
	for i := range ts {
		switch {
		case m.Extend && i == 0:
			ts[i] = t0 - ext
		case m.Extend && i == n-1:
			ts[i] = t1 + ext
		default:
			ts[i] = t0 + step*float64(first+i)
		}
		pts[i] = guide.Subs(ts[i])
	}
	arc := arcLengths(guide, ts, first, m.Division)

	type seed struct {
		uv0, uv1 r2.Vec
		s        float64
	}
	seeds := make([]seed, n)
	var hint0, hint1 *r2.Vec
	for i, p := range pts {
		uv0, ok0 := brep.SearchNearestParameter(s0, p, hint0, nearestTrials)
		uv1, ok1 := brep.SearchNearestParameter(s1, p, hint1, nearestTrials)
		if !ok0 || !ok1 {
			if i == 0 {
				return nil, fmt.Errorf("seed at %v: %w", p, ErrMarchAborted)
			}
			uv0, uv1 = seeds[i-1].uv0, seeds[i-1].uv1
		}
		seeds[i] = seed{uv0: uv0, uv1: uv1, s: arc[i]}
		hint0, hint1 = &seeds[i].uv0, &seeds[i].uv1
	}

	spheres := make([]RelaySphere, n)
	solve := func(i int) {
		sd := seeds[i]
		spheres[i] = RelaySphereAt(s0, s1, sd.uv0, sd.uv1, pts[i], guide.Der(ts[i]), radius(brep.Clamp(sd.s, 0, 1)))
	}
	if m.Workers < 2 {
		for i := range spheres {
			solve(i)
		}
		return spheres, nil
	}
	var g errgroup.Group
	g.SetLimit(m.Workers)
	for i := range spheres {
		i := i
		g.Go(func() error {
			solve(i)
			return nil
		})
	}
	return spheres, g.Wait()
}

// arcLengths returns the normalized arc length of the guide at each
// parameter. Index -first is the guide start and index -first+division
// its end; extension samples get lengths outside [0,1].
func arcLengths(guide brep.Curve, ts []float64, first, division int) []float64 {
	const sub = 4
	lengths := make([]float64, len(ts))
	for i := 1; i < len(ts); i++ {
		lengths[i] = lengths[i-1] + brep.Length(brep.Trim(guide, ts[i-1], ts[i]), sub)
	}
	start := lengths[-first]
	total := lengths[-first+division] - start
	for i := range lengths {
		if total > 0 {
			lengths[i] = (lengths[i] - start) / total
		}
	}
	return lengths
}
