// Package intersect computes curves lying on the crossing of two
// parametric surfaces.
package intersect

import (
	"github.com/soypat/brep"
	"github.com/soypat/brep/internal/d3"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// NearestTrials caps each nearest-parameter sub-search.
	NearestTrials = 10
	// ProjectionTrials is the double projection budget used when
	// refining and querying intersection curves.
	ProjectionTrials = 100
)

// DoubleProjection finds a point on both s0 and s1 lying on the plane
// through anchor with normal dir. hint0 and hint1 seed the parameter
// searches and may be nil. Each trial projects the anchor onto both
// surfaces and, unless the three points already coincide within
// brep.Tolerance, moves the anchor to the crossing of the two tangent
// planes with the constraint plane.
//
// ok is false when the trial budget runs out, a nearest-parameter search
// fails or the tangent planes are parallel to each other or to dir.
func DoubleProjection(s0 brep.Surface, hint0 *r2.Vec, s1 brep.Surface, hint1 *r2.Vec, anchor, dir r3.Vec, trials int) (pt r3.Vec, uv0, uv1 r2.Vec, ok bool) {
	// The constraint plane stays fixed across trials.
	planeOffset := r3.Dot(dir, anchor)
	for ; trials > 0; trials-- {
		uv0, ok = brep.SearchNearestParameter(s0, anchor, hint0, NearestTrials)
		if !ok {
			return anchor, uv0, uv1, false
		}
		uv1, ok = brep.SearchNearestParameter(s1, anchor, hint1, NearestTrials)
		if !ok {
			return anchor, uv0, uv1, false
		}
		p0, p1 := brep.SubsUV(s0, uv0), brep.SubsUV(s1, uv1)
		if d3.Near(p0, anchor, brep.Tolerance) && d3.Near(p1, anchor, brep.Tolerance) && d3.Near(p0, p1, brep.Tolerance) {
			return anchor, uv0, uv1, true
		}
		n0, n1 := brep.NormalUV(s0, uv0), brep.NormalUV(s1, uv1)
		next, solved := d3.Solve3(n0, n1, dir, r3.Vec{
			X: r3.Dot(n0, p0),
			Y: r3.Dot(n1, p1),
			Z: planeOffset,
		})
		if !solved {
			return anchor, uv0, uv1, false
		}
		anchor = next
		h0, h1 := uv0, uv1
		hint0, hint1 = &h0, &h1
	}
	return anchor, uv0, uv1, false
}
