package intersect

import (
	"math"
	"testing"

	"github.com/soypat/brep"
	"github.com/soypat/brep/internal/d3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

const buildTol = 1e-5

func spherePair() (brep.Sphere, brep.Sphere) {
	return brep.Sphere{Center: r3.Vec{Z: 1}, Radius: math.Sqrt2},
		brep.Sphere{Center: r3.Vec{Z: -1}, Radius: math.Sqrt2}
}

func unitCircleCurve(t *testing.T) *Curve {
	t.Helper()
	s0, s1 := spherePair()
	poly := []r3.Vec{
		{X: 1}, {Y: 1}, {X: -1}, {Y: -1}, {X: 1},
	}
	c, err := New(s0, s1, poly, buildTol)
	require.NoError(t, err)
	return c
}

func TestDoubleProjectionSpheres(t *testing.T) {
	s0, s1 := spherePair()
	anchor := r3.Vec{X: 0.8, Y: 0.7, Z: 0.2}
	dir := r3.Vec{X: -0.7, Y: 0.8}
	pt, uv0, uv1, ok := DoubleProjection(s0, nil, s1, nil, anchor, dir, ProjectionTrials)
	require.True(t, ok)
	assert.InDelta(t, 1, r3.Norm(pt), brep.Tolerance)
	assert.InDelta(t, 0, pt.Z, brep.Tolerance)
	assert.InDelta(t, r3.Dot(dir, anchor), r3.Dot(dir, pt), 1e-9, "point left the constraint plane")
	assert.True(t, d3.Near(brep.SubsUV(s0, uv0), pt, brep.Tolerance))
	assert.True(t, d3.Near(brep.SubsUV(s1, uv1), pt, brep.Tolerance))

	// Idempotent: projecting the answer, or a point close to it, lands on it again.
	for _, offset := range []r3.Vec{{}, r3.Scale(1e-4, r3.Unit(r3.Vec{X: 0.8, Y: 0.7})), {Z: -2e-4}} {
		again, _, _, ok := DoubleProjection(s0, &uv0, s1, &uv1, r3.Add(pt, offset), dir, ProjectionTrials)
		require.True(t, ok)
		assert.True(t, d3.Near(again, pt, 10*brep.Tolerance), "offset %v: %v != %v", offset, again, pt)
	}
}

func TestDoubleProjectionPlaneCylinder(t *testing.T) {
	plane := brep.Plane{Origin: r3.Vec{Z: 0.5}, U: r3.Vec{X: 1}, V: r3.Vec{Y: 1}}
	cyl := brep.Cylinder{Axis: r3.Vec{Z: 1}, Ref: r3.Vec{X: 1}, Radius: 2}
	pt, _, _, ok := DoubleProjection(plane, nil, cyl, nil, r3.Vec{X: 2.3, Y: 0.4, Z: 0.1}, r3.Vec{Y: 1}, ProjectionTrials)
	require.True(t, ok)
	assert.InDelta(t, 0.5, pt.Z, brep.Tolerance)
	assert.InDelta(t, 2, math.Hypot(pt.X, pt.Y), brep.Tolerance)
	assert.InDelta(t, 0.4, pt.Y, brep.Tolerance)
}

func TestDoubleProjectionFails(t *testing.T) {
	// Parallel planes never meet.
	p0 := brep.Plane{U: r3.Vec{X: 1}, V: r3.Vec{Y: 1}}
	p1 := brep.Plane{Origin: r3.Vec{Z: 1}, U: r3.Vec{X: 1}, V: r3.Vec{Y: 1}}
	_, _, _, ok := DoubleProjection(p0, nil, p1, nil, r3.Vec{Z: 0.5}, r3.Vec{X: 1}, ProjectionTrials)
	assert.False(t, ok)
}

func TestUnitCircle(t *testing.T) {
	c := unitCircleCurve(t)
	t0, t1 := c.Range()
	ts := floats.Span(make([]float64, 100), t0, t1)
	var length float64
	prev := c.Subs(ts[0])
	for _, x := range ts {
		p := c.Subs(x)
		assert.InDelta(t, 1, r3.Norm(p), buildTol, "t=%g", x)
		assert.Less(t, math.Abs(p.Z), buildTol, "t=%g", x)
		length += d3.Dist(prev, p)
		prev = p
	}
	assert.InDelta(t, 2*math.Pi, length, 0.1)
}

func TestSampleInvariant(t *testing.T) {
	c := unitCircleCurve(t)
	for i, p := range c.Points() {
		assert.True(t, d3.Near(brep.SubsUV(c.Surface0(), c.Params0()[i]), p, c.Tolerance()), "sample %d surface0", i)
		assert.True(t, d3.Near(brep.SubsUV(c.Surface1(), c.Params1()[i]), p, c.Tolerance()), "sample %d surface1", i)
		assert.Equal(t, p, c.Subs(float64(i)), "integer parameter must return stored sample")
	}
}

func TestDerivative(t *testing.T) {
	c := unitCircleCurve(t)
	for _, x := range []float64{0.3, 1.5, 2.9} {
		p, d := c.Subs(x), c.Der(x)
		assert.InDelta(t, 0, r3.Dot(p, d), 1e-6, "derivative not tangent to circle")
		assert.InDelta(t, r3.Norm(r3.Sub(c.Points()[1], c.Points()[0])), r3.Norm(d), 1e-9)
		// Counter-clockwise like the polyline.
		assert.Greater(t, r3.Cross(p, d).Z, 0.)
	}
	assert.PanicsWithValue(t, ErrNotImplemented, func() { c.Der2(0.5) })
}

func TestCutRoundTrip(t *testing.T) {
	c := unitCircleCurve(t)
	for _, x := range []float64{0.5, 1, 2.25, 3.9} {
		part0, part1, ok := c.Cut(x)
		require.True(t, ok, "cut at %g", x)
		assert.Equal(t, c.Front(), part0.Front())
		assert.Equal(t, c.Back(), part1.Back())
		want := c.Subs(x)
		assert.True(t, d3.Near(part0.Back(), want, brep.Tolerance), "part0 back at %g", x)
		assert.True(t, d3.Near(part1.Front(), want, brep.Tolerance), "part1 front at %g", x)
		shared := 1
		if !brep.IsInteger(x) {
			shared = 2
		}
		assert.Equal(t, c.Len()+shared, part0.Len()+part1.Len())
	}
	_, _, ok := c.Cut(0)
	assert.False(t, ok)
	_, _, ok = c.Cut(4)
	assert.False(t, ok)
}

func TestParameterDivision(t *testing.T) {
	c := unitCircleCurve(t)
	ts, pts := c.ParameterDivision(buildTol)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, ts)
	assert.Equal(t, c.Points(), pts)

	ts, pts = c.ParameterDivision(1e-3)
	assert.Len(t, pts, len(ts))
	assert.Greater(t, len(ts), 20)
	for i := 1; i < len(pts); i++ {
		mid := c.Subs((ts[i-1] + ts[i]) / 2)
		assert.True(t, d3.Near(mid, d3.Midpoint(pts[i-1], pts[i]), 1e-3), "chord %d too coarse", i)
	}
}

func TestNewErrors(t *testing.T) {
	s0, s1 := spherePair()
	_, err := New(s0, s1, []r3.Vec{{X: 1}}, buildTol)
	assert.Error(t, err)

	far := brep.Sphere{Center: r3.Vec{X: 10}, Radius: 1}
	_, err = New(s0, far, []r3.Vec{{X: 1}, {Y: 1}}, buildTol)
	assert.ErrorIs(t, err, ErrNotConverged)
}
