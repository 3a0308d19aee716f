package topo

import (
	"fmt"
	"math"

	"github.com/soypat/brep"
	"gonum.org/v1/gonum/spatial/r3"
)

// boxLoops lists the vertex loops of the box faces, each counter-clockwise
// seen from outside. Vertex i sits at the corner selected by bits x=1, y=2, z=4.
var boxLoops = [6][4]int{
	{0, 2, 3, 1}, // bottom
	{4, 5, 7, 6}, // top
	{0, 1, 5, 4}, // front
	{2, 6, 7, 3}, // back
	{0, 4, 6, 2}, // left
	{1, 3, 7, 5}, // right
}

// Box faces in the order returned by the box builders.
const (
	BoxBottom FaceID = iota
	BoxTop
	BoxFront
	BoxBack
	BoxLeft
	BoxRight
)

// Box returns the closed shell of the axis aligned box spanning min and max.
func Box(min, max r3.Vec) *Shell {
	return polyShell(boxCorners(min, max), boxLoops[:])
}

// OpenBox returns the box shell without its top face. Its faces are the
// bottom, front, back, left and right faces in that order.
func OpenBox(min, max r3.Vec) *Shell {
	loops := [][4]int{boxLoops[BoxBottom]}
	loops = append(loops, boxLoops[BoxFront:]...)
	return polyShell(boxCorners(min, max), loops)
}

func boxCorners(min, max r3.Vec) []r3.Vec {
	if min.X >= max.X || min.Y >= max.Y || min.Z >= max.Z {
		panic("box min must be below max")
	}
	corners := make([]r3.Vec, 8)
	for i := range corners {
		c := min
		if i&1 != 0 {
			c.X = max.X
		}
		if i&2 != 0 {
			c.Y = max.Y
		}
		if i&4 != 0 {
			c.Z = max.Z
		}
		corners[i] = c
	}
	return corners
}

// polyShell builds a shell of planar quadrilateral faces with straight
// edges. Edges are created in order of first use.
func polyShell(corners []r3.Vec, loops [][4]int) *Shell {
	s := NewShell()
	for _, c := range corners {
		s.AddVertex(c)
	}
	edges := make(map[[2]int]EdgeID)
	for _, loop := range loops {
		wire := make([]OrientedEdge, len(loop))
		for i, a := range loop {
			b := loop[(i+1)%len(loop)]
			if e, ok := edges[[2]int{b, a}]; ok {
				wire[i] = OrientedEdge{Edge: e, Reversed: true}
				continue
			}
			e := must(s.AddEdge(VertexID(a), VertexID(b), brep.Line{P0: corners[a], P1: corners[b]}))
			edges[[2]int{a, b}] = e
			wire[i] = OrientedEdge{Edge: e}
		}
		p0, p1, p3 := corners[loop[0]], corners[loop[1]], corners[loop[3]]
		must(s.AddFace(Face{
			Boundaries: []Wire{wire},
			Surface:    brep.NewPlane(p0, p1, p3),
		}))
	}
	return s
}

// Cylinder returns the closed shell of a cylinder standing on the plane
// z=base.Z, centered on base. The side is split into n patches so that the
// top and bottom circles consist of n arcs each. Faces are the top, the
// bottom and then the side patches in counter-clockwise order.
func Cylinder(base r3.Vec, radius, height float64, n int) *Shell {
	if radius <= 0 || height <= 0 {
		panic("cylinder radius and height must be positive")
	}
	if n < 2 {
		panic("cylinder needs at least two side patches")
	}
	axis, ref := r3.Vec{Z: 1}, r3.Vec{X: 1}
	top := r3.Add(base, r3.Vec{Z: height})
	s := NewShell()
	bottomV := make([]VertexID, n)
	topV := make([]VertexID, n)
	angle := func(i int) float64 { return 2 * math.Pi * float64(i) / float64(n) }
	for i := 0; i < n; i++ {
		sin, cos := math.Sincos(angle(i))
		off := r3.Vec{X: radius * cos, Y: radius * sin}
		bottomV[i] = s.AddVertex(r3.Add(base, off))
		topV[i] = s.AddVertex(r3.Add(top, off))
	}
	bottomArcs := make([]EdgeID, n)
	topArcs := make([]EdgeID, n)
	verticals := make([]EdgeID, n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		bottomArcs[i] = must(s.AddEdge(bottomV[i], bottomV[j], brep.Arc{
			Center: base, Axis: axis, Ref: ref, Radius: radius, T0: angle(i), T1: angle(i + 1),
		}))
		topArcs[i] = must(s.AddEdge(topV[i], topV[j], brep.Arc{
			Center: top, Axis: axis, Ref: ref, Radius: radius, T0: angle(i), T1: angle(i + 1),
		}))
		verticals[i] = must(s.AddEdge(bottomV[i], topV[i], brep.Line{
			P0: s.Vertex(bottomV[i]), P1: s.Vertex(topV[i]),
		}))
	}
	topWire := make(Wire, n)
	bottomWire := make(Wire, n)
	for i := 0; i < n; i++ {
		topWire[i] = OrientedEdge{Edge: topArcs[i]}
		bottomWire[i] = OrientedEdge{Edge: bottomArcs[n-1-i], Reversed: true}
	}
	must(s.AddFace(Face{
		Boundaries: []Wire{topWire},
		Surface:    brep.Plane{Origin: top, U: r3.Vec{X: 1}, V: r3.Vec{Y: 1}},
	}))
	must(s.AddFace(Face{
		Boundaries: []Wire{bottomWire},
		Surface:    brep.Plane{Origin: base, U: r3.Vec{Y: 1}, V: r3.Vec{X: 1}},
	}))
	side := brep.Cylinder{Origin: base, Axis: axis, Ref: ref, Radius: radius}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		must(s.AddFace(Face{
			Boundaries: []Wire{{
				{Edge: bottomArcs[i]},
				{Edge: verticals[j]},
				{Edge: topArcs[i], Reversed: true},
				{Edge: verticals[i], Reversed: true},
			}},
			Surface: side,
		}))
	}
	return s
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("topo builder: %v", err))
	}
	return v
}
