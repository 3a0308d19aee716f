package fillet

import (
	"math"
	"testing"

	"github.com/soypat/brep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Top and front faces of the unit box, oriented outward.
var (
	topPlane   = brep.Plane{Origin: r3.Vec{Z: 1}, U: r3.Vec{X: 1}, V: r3.Vec{Y: 1}}
	frontPlane = brep.Plane{U: r3.Vec{X: 1}, V: r3.Vec{Z: 1}}
	topEdge    = brep.Line{P0: r3.Vec{Z: 1}, P1: r3.Vec{X: 1, Z: 1}}
)

func TestRelaySphereAtPlanes(t *testing.T) {
	const r = 0.25
	point := r3.Vec{X: 0.5, Z: 1}
	rs := RelaySphereAt(topPlane, frontPlane, r2.Vec{X: 0.5}, r2.Vec{X: 0.5, Y: 1}, point, r3.Vec{X: 1}, r)
	require.True(t, rs.Converged)
	assert.InDelta(t, 0, r3.Norm(r3.Sub(rs.Center, r3.Vec{X: 0.5, Y: r, Z: 1 - r})), 1e-9)
	assert.InDelta(t, 0, r3.Norm(r3.Sub(rs.Contact0.Point, r3.Vec{X: 0.5, Y: r, Z: 1})), 1e-9)
	assert.InDelta(t, 0, r3.Norm(r3.Sub(rs.Contact1.Point, r3.Vec{X: 0.5, Z: 1 - r})), 1e-9)
	assert.InDelta(t, r, r3.Norm(r3.Sub(rs.Transit, rs.Center)), 1e-12)
	// Transit bisects the contacts.
	d0 := r3.Norm(r3.Sub(rs.Transit, rs.Contact0.Point))
	d1 := r3.Norm(r3.Sub(rs.Transit, rs.Contact1.Point))
	assert.InDelta(t, d0, d1, 1e-9)
}

func TestRelaySphereAtCylinder(t *testing.T) {
	const r = 0.2
	cyl := brep.Cylinder{Axis: r3.Vec{Z: 1}, Ref: r3.Vec{X: 1}, Radius: 1}
	point := r3.Vec{X: 1, Z: 1}
	rs := RelaySphereAt(topPlane, cyl, r2.Vec{X: 1}, r2.Vec{Y: 1}, point, r3.Vec{Y: 1}, r)
	require.True(t, rs.Converged)
	assert.InDelta(t, 0, r3.Norm(r3.Sub(rs.Center, r3.Vec{X: 1 - r, Z: 1 - r})), 1e-9)
	assert.InDelta(t, 1, math.Hypot(rs.Contact1.Point.X, rs.Contact1.Point.Y), 1e-9)
	assert.InDelta(t, 1, rs.Contact0.Point.Z, 1e-12)
}

func TestRelaySpheresRadius(t *testing.T) {
	const div = 10
	radius := Linear(0.1, 0.3)
	spheres, err := RelaySpheres(topPlane, frontPlane, topEdge, div, func(s float64) float64 {
		return radius.at(0, s)
	}, false)
	require.NoError(t, err)
	require.Len(t, spheres, div+1)
	for i, rs := range spheres {
		require.True(t, rs.Converged, "sample %d", i)
		want := brep.Mix(0.1, 0.3, float64(i)/div)
		assert.InDelta(t, want, rs.Radius, 1e-12, "sample %d", i)
		assert.InDelta(t, want, r3.Norm(r3.Sub(rs.Contact0.Point, rs.Center)), 1e-7, "sample %d", i)
		assert.InDelta(t, want, r3.Norm(r3.Sub(rs.Contact1.Point, rs.Center)), 1e-7, "sample %d", i)
		if i > 0 {
			assert.Greater(t, rs.Center.X, spheres[i-1].Center.X, "samples out of order")
		}
	}
}

func TestRelaySpheresExtend(t *testing.T) {
	const div = 4
	spheres, err := RelaySpheres(topPlane, frontPlane, topEdge, div, func(float64) float64 { return 0.1 }, true)
	require.NoError(t, err)
	require.Len(t, spheres, div+3)
	assert.InDelta(t, -0.25, spheres[0].Center.X, 1e-9)
	assert.InDelta(t, 1.25, spheres[div+2].Center.X, 1e-9)

	// A longer overshoot moves only the extension samples.
	m := Marcher{Division: div, Extend: true, Overshoot: 0.6}
	far, err := m.March(topPlane, frontPlane, topEdge, func(float64) float64 { return 0.1 })
	require.NoError(t, err)
	require.Len(t, far, div+3)
	assert.InDelta(t, -0.6, far[0].Center.X, 1e-9)
	assert.InDelta(t, 1.6, far[div+2].Center.X, 1e-9)
	assert.Equal(t, spheres[1:div+2], far[1:div+2])
	// Shorter ones are raised to one interval.
	m.Overshoot = 0.1
	near, err := m.March(topPlane, frontPlane, topEdge, func(float64) float64 { return 0.1 })
	require.NoError(t, err)
	assert.Equal(t, spheres, near)
}

func TestMarcherWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)
	radius := func(s float64) float64 { return 0.1 + 0.05*math.Sin(3*s) }
	want, err := Marcher{Division: 32, Extend: true}.March(topPlane, frontPlane, topEdge, radius)
	require.NoError(t, err)
	got, err := Marcher{Division: 32, Extend: true, Workers: 4}.March(
		brep.Guard(topPlane), brep.Guard(frontPlane), topEdge, radius)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestMarchAborted(t *testing.T) {
	// Nearest parameter is undefined at the center of a sphere.
	sphere := brep.Sphere{Radius: 1}
	guide := brep.Line{P1: r3.Vec{X: 0.5}}
	_, err := RelaySpheres(sphere, topPlane, guide, 4, func(float64) float64 { return 0.1 }, false)
	assert.ErrorIs(t, err, ErrMarchAborted)

	_, err = Marcher{}.March(topPlane, frontPlane, topEdge, func(float64) float64 { return 0.1 })
	assert.Error(t, err)
}
