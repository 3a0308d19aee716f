package topo

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/soypat/brep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestBox(t *testing.T) {
	s := Box(r3.Vec{}, r3.Vec{X: 1, Y: 2, Z: 3})
	require.NoError(t, s.Validate())
	assert.Equal(t, 8, s.NumVertices())
	assert.Equal(t, 12, s.NumEdges())
	assert.Equal(t, 6, s.NumFaces())
	assert.True(t, s.IsClosed())
	for _, e := range s.EdgeIDs() {
		assert.Len(t, s.FacesOfEdge(e), 2, "edge %d", e)
	}
	// Outward normals.
	center := r3.Vec{X: 0.5, Y: 1, Z: 1.5}
	for i := 0; i < s.NumFaces(); i++ {
		f := s.Face(FaceID(i))
		p := s.Vertex(s.Start(f.Boundaries[0][0]))
		n := f.OrientedSurface().Normal(0, 0)
		assert.Greater(t, r3.Dot(n, r3.Sub(p, center)), 0., "face %d normal points inward", i)
	}
}

func TestOpenBox(t *testing.T) {
	s := OpenBox(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	require.NoError(t, s.Validate())
	assert.Equal(t, 5, s.NumFaces())
	assert.False(t, s.IsClosed())
}

func TestCylinder(t *testing.T) {
	const n = 4
	s := Cylinder(r3.Vec{Z: -1}, 2, 3, n)
	require.NoError(t, s.Validate())
	assert.True(t, s.IsClosed())
	assert.Equal(t, n+2, s.NumFaces())
	top := s.Face(0)
	for _, oe := range top.Boundaries[0] {
		faces := s.FacesOfEdge(oe.Edge)
		require.Len(t, faces, 2)
		assert.Equal(t, FaceID(0), faces[0])
		c := s.Curve(oe)
		t0, t1 := c.Range()
		mid := c.Subs((t0 + t1) / 2)
		assert.InDelta(t, 2, math.Hypot(mid.X, mid.Y), 1e-12)
		assert.InDelta(t, 2, mid.Z, 1e-12)
	}
}

func TestConstructorChecks(t *testing.T) {
	s := NewShell()
	a := s.AddVertex(r3.Vec{})
	b := s.AddVertex(r3.Vec{X: 1})
	c := s.AddVertex(r3.Vec{Y: 1})
	_, err := s.AddEdge(a, b, brep.Line{P0: r3.Vec{}, P1: r3.Vec{X: 2}})
	assert.ErrorIs(t, err, ErrCurveEnds)
	_, err = s.AddEdge(a, 7, brep.Line{})
	assert.ErrorIs(t, err, ErrBadID)

	ab, err := s.AddEdge(a, b, brep.Line{P0: r3.Vec{}, P1: r3.Vec{X: 1}})
	require.NoError(t, err)
	bc, err := s.AddEdge(b, c, brep.Line{P0: r3.Vec{X: 1}, P1: r3.Vec{Y: 1}})
	require.NoError(t, err)
	ca, err := s.AddEdge(c, a, brep.Line{P0: r3.Vec{Y: 1}, P1: r3.Vec{}})
	require.NoError(t, err)

	_, err = s.NewWire(OrientedEdge{Edge: ab}, OrientedEdge{Edge: bc})
	assert.ErrorIs(t, err, ErrOpenWire)
	_, err = s.NewWire(OrientedEdge{Edge: ab}, OrientedEdge{Edge: ca}, OrientedEdge{Edge: bc})
	assert.ErrorIs(t, err, ErrDisconnected)

	w, err := s.NewWire(OrientedEdge{Edge: ab}, OrientedEdge{Edge: bc}, OrientedEdge{Edge: ca})
	require.NoError(t, err)
	plane := brep.Plane{U: r3.Vec{X: 1}, V: r3.Vec{Y: 1}}
	f0, err := s.AddFace(Face{Boundaries: []Wire{w}, Surface: plane})
	require.NoError(t, err)
	rev := Wire{{Edge: ca, Reversed: true}, {Edge: bc, Reversed: true}, {Edge: ab, Reversed: true}}
	_, err = s.AddFace(Face{Boundaries: []Wire{rev}, Surface: brep.Flip(plane)})
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	assert.True(t, s.IsClosed())

	// A third use of the same direction is rejected by Validate.
	_, err = s.AddFace(Face{Boundaries: []Wire{w}, Surface: plane})
	require.NoError(t, err)
	assert.Error(t, s.Validate())
	assert.Equal(t, []FaceID{0, 1, 2}, s.FacesOfEdge(ab))

	assert.Error(t, s.ReplaceFace(f0, Face{Boundaries: []Wire{{{Edge: ab}}}, Surface: plane}))
	assert.Error(t, s.ReplaceFace(9, Face{Boundaries: []Wire{w}, Surface: plane}))
}

func TestCloneIsDeep(t *testing.T) {
	s := Box(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	c := s.Clone()
	if diff := cmp.Diff(s.Boundaries(), c.Boundaries()); diff != "" {
		t.Fatalf("clone differs (-want +got):\n%s", diff)
	}
	f := c.Face(BoxTop)
	f.Boundaries[0][0], f.Boundaries[0][1] = f.Boundaries[0][1], f.Boundaries[0][0]
	c.faces[BoxTop] = f
	assert.NotEqual(t, s.Boundaries(), c.Boundaries())
	c.AddVertex(r3.Vec{X: 9})
	assert.Equal(t, 8, s.NumVertices())

	s.Assign(c)
	assert.Equal(t, 9, s.NumVertices())
}
