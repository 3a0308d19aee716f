package fillet

import (
	"fmt"

	"github.com/soypat/brep"
	"github.com/soypat/brep/nurbs"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Blend is a fillet or chamfer surface built from relay spheres. The
// surface is parametrized over [0,1]²: u runs along the spheres, v from
// the contact with the first surface (v=0) to the second (v=1).
type Blend struct {
	Surface *nurbs.Surface
	// Contact0 and Contact1 are the boundary rows v=0 and v=1.
	Contact0, Contact1 *nurbs.Curve
	Profile            Profile
	Samples            []RelaySphere
}

// Section returns the cross-section curve at u, from Contact0 to Contact1.
func (b *Blend) Section(u float64) *nurbs.Curve { return b.Surface.UIso(u) }

// SampleU returns the blend u parameter at which sample i lies.
func (b *Blend) SampleU(i int) float64 {
	return float64(i) / float64(len(b.Samples)-1)
}

// BuildBlend turns consecutive relay spheres into one blend surface.
// For each pair of spheres the straight parameter segment between their
// contacts on each surface is traced by a cubic Hermite curve, and so is
// the transit point. Each control point column of those curves becomes
// a circular arc through the contact and transit controls (Round) or a
// straight segment (Chamfer). The per-pair patches are joined along u
// and normalized.
func BuildBlend(s0, s1 brep.Surface, spheres []RelaySphere, profile Profile) (*Blend, error) {
	if len(spheres) < 2 {
		return nil, fmt.Errorf("fillet: blend needs at least two relay spheres, got %d", len(spheres))
	}
	var surface *nurbs.Surface
	for k := 0; k+1 < len(spheres); k++ {
		patch, err := blendPatch(s0, s1, spheres[k], spheres[k+1], profile)
		if err != nil {
			return nil, fmt.Errorf("blend patch %d: %w", k, err)
		}
		if surface == nil {
			surface = patch
			continue
		}
		surface, err = nurbs.ConcatU(surface, patch, brep.Tolerance)
		if err != nil {
			return nil, fmt.Errorf("blend patch %d: %w", k, err)
		}
	}
	surface = surface.Normalize()
	return &Blend{
		Surface:  surface,
		Contact0: surface.VIso(0),
		Contact1: surface.VIso(1),
		Profile:  profile,
		Samples:  spheres,
	}, nil
}

func blendPatch(s0, s1 brep.Surface, a, b RelaySphere, profile Profile) (*nurbs.Surface, error) {
	c0, d0a, d0b := contactCurve(s0, a.Contact0, b.Contact0)
	c1, d1a, d1b := contactCurve(s1, a.Contact1, b.Contact1)
	transit := nurbs.Hermite(
		a.Transit, r3.Scale(0.5, r3.Add(d0a, d1a)),
		b.Transit, r3.Scale(0.5, r3.Add(d0b, d1b)),
	)
	columns := make([]*nurbs.Curve, len(c0.Ctrl))
	for j := range columns {
		switch profile {
		case Chamfer:
			columns[j] = nurbs.Line(c0.Ctrl[j], c1.Ctrl[j])
		default:
			col, err := nurbs.ThreePointArc(c0.Ctrl[j], transit.Ctrl[j], c1.Ctrl[j])
			if err != nil {
				return nil, err
			}
			columns[j] = col
		}
	}
	return nurbs.FromColumns(c0.Knots.Clone(), c0.Degree, columns)
}

// contactCurve returns the cubic Hermite curve tracing s along the straight
// parameter segment from a to b, together with its end derivatives.
func contactCurve(s brep.Surface, a, b ContactPoint) (c *nurbs.Curve, da, db r3.Vec) {
	duv := r2.Sub(b.UV, a.UV)
	da = r3.Add(r3.Scale(duv.X, s.UDer(a.UV.X, a.UV.Y)), r3.Scale(duv.Y, s.VDer(a.UV.X, a.UV.Y)))
	db = r3.Add(r3.Scale(duv.X, s.UDer(b.UV.X, b.UV.Y)), r3.Scale(duv.Y, s.VDer(b.UV.X, b.UV.Y)))
	return nurbs.Hermite(a.Point, da, b.Point, db), da, db
}
