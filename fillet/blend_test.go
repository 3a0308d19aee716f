package fillet

import (
	"math"
	"testing"

	"github.com/soypat/brep"
	"github.com/soypat/brep/internal/d3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// cylinderSpheres marches a quarter of the rim of a unit cylinder capped at z=1.
func cylinderSpheres(t *testing.T, r float64) (brep.Surface, brep.Surface, []RelaySphere) {
	t.Helper()
	cyl := brep.Cylinder{Axis: r3.Vec{Z: 1}, Ref: r3.Vec{X: 1}, Radius: 1}
	rim := brep.Arc{Center: r3.Vec{Z: 1}, Axis: r3.Vec{Z: 1}, Ref: r3.Vec{X: 1}, Radius: 1, T1: math.Pi / 2}
	spheres, err := RelaySpheres(topPlane, cyl, rim, 6, func(float64) float64 { return r }, false)
	require.NoError(t, err)
	return topPlane, cyl, spheres
}

func TestBuildBlendRound(t *testing.T) {
	const r = 0.2
	s0, s1, spheres := cylinderSpheres(t, r)
	b, err := BuildBlend(s0, s1, spheres, Round)
	require.NoError(t, err)
	rng := b.Surface.Range()
	assert.Equal(t, 0., rng.Min.X)
	assert.Equal(t, 1., rng.Max.X)
	assert.Equal(t, 0., rng.Min.Y)
	assert.Equal(t, 1., rng.Max.Y)

	for i, rs := range spheres {
		u := b.SampleU(i)
		assert.True(t, d3.Near(b.Surface.Subs(u, 0), rs.Contact0.Point, 1e-9), "sample %d contact0", i)
		assert.True(t, d3.Near(b.Surface.Subs(u, 1), rs.Contact1.Point, 1e-9), "sample %d contact1", i)
		assert.True(t, d3.Near(b.Surface.Subs(u, 0.5), rs.Transit, 1e-9), "sample %d transit", i)
		// Sections are exact arcs on the relay sphere.
		for v := 0.; v <= 1; v += 0.125 {
			assert.InDelta(t, r, r3.Norm(r3.Sub(b.Surface.Subs(u, v), rs.Center)), 1e-9, "sample %d v=%g", i, v)
		}
	}
	// Boundary rows are the contact curves.
	for u := 0.; u <= 1; u += 1. / 64 {
		assert.True(t, d3.Near(b.Contact0.Subs(u), b.Surface.Subs(u, 0), 1e-12))
		assert.True(t, d3.Near(b.Contact1.Subs(u), b.Surface.Subs(u, 1), 1e-12))
		// The first contact curve lies on the plane.
		assert.InDelta(t, 1, b.Contact0.Subs(u).Z, 1e-12)
	}
	sec := b.Section(b.SampleU(3))
	assert.True(t, d3.Near(brep.Front(sec), spheres[3].Contact0.Point, 1e-9))
	assert.True(t, d3.Near(brep.Back(sec), spheres[3].Contact1.Point, 1e-9))
}

func TestBuildBlendChamfer(t *testing.T) {
	const r = 0.2
	s0, s1, spheres := cylinderSpheres(t, r)
	b, err := BuildBlend(s0, s1, spheres, Chamfer)
	require.NoError(t, err)
	assert.Equal(t, Chamfer, b.Profile)
	for i, rs := range spheres {
		u := b.SampleU(i)
		mid := d3.Midpoint(rs.Contact0.Point, rs.Contact1.Point)
		assert.True(t, d3.Near(b.Surface.Subs(u, 0.5), mid, 1e-9), "sample %d", i)
		assert.True(t, d3.Near(b.Surface.Subs(u, 0), rs.Contact0.Point, 1e-9), "sample %d", i)
		assert.True(t, d3.Near(b.Surface.Subs(u, 1), rs.Contact1.Point, 1e-9), "sample %d", i)
	}
}

func TestBuildBlendTooFewSpheres(t *testing.T) {
	_, _, spheres := cylinderSpheres(t, 0.1)
	_, err := BuildBlend(topPlane, frontPlane, spheres[:1], Round)
	assert.Error(t, err)
}
