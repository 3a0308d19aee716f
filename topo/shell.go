// Package topo is an index-based boundary representation container:
// vertices, edges, oriented wires, faces and shells. Constructors check
// that new topology is geometrically consistent before it is stored.
package topo

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/soypat/brep"
	"github.com/soypat/brep/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Tolerance is the distance within which curve ends must meet vertices.
const Tolerance = 1e-5

type (
	VertexID int
	EdgeID   int
	FaceID   int
)

// Edge is a curve bounded by two vertices. The curve runs from V0 at the
// start of its range to V1 at the end.
type Edge struct {
	V0, V1 VertexID
	Curve  brep.Curve
}

// OrientedEdge is a use of an edge within a wire.
type OrientedEdge struct {
	Edge     EdgeID
	Reversed bool
}

// Inverse returns the opposite use of the same edge.
func (oe OrientedEdge) Inverse() OrientedEdge {
	return OrientedEdge{Edge: oe.Edge, Reversed: !oe.Reversed}
}

// Wire is a closed loop of oriented edges.
type Wire []OrientedEdge

// Face is a region of a surface bounded by wires. The outer wire runs
// counter-clockwise seen from outside the solid. When Flipped is set the
// outward normal of the face is opposite to the surface normal.
type Face struct {
	Boundaries []Wire
	Surface    brep.Surface
	Flipped    bool
}

// OrientedSurface returns the face surface with its normal pointing out
// of the solid.
func (f Face) OrientedSurface() brep.Surface {
	if f.Flipped {
		return brep.Flip(f.Surface)
	}
	return f.Surface
}

// Find returns the wire and position of the first use of e in the face.
func (f Face) Find(e EdgeID) (wire, index int, ok bool) {
	for i, w := range f.Boundaries {
		for j, oe := range w {
			if oe.Edge == e {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

func (f Face) clone() Face {
	out := Face{Surface: f.Surface, Flipped: f.Flipped, Boundaries: make([]Wire, len(f.Boundaries))}
	for i, w := range f.Boundaries {
		out.Boundaries[i] = append(Wire(nil), w...)
	}
	return out
}

var (
	ErrBadID        = errors.New("topo: invalid id")
	ErrDisconnected = errors.New("topo: wire is not connected")
	ErrOpenWire     = errors.New("topo: wire is not closed")
	ErrCurveEnds    = errors.New("topo: curve ends do not meet edge vertices")
)

// Shell is a collection of faces sharing edges and vertices. Ids are
// stable: faces are replaced in place or appended, edges and vertices are
// only appended. Callers mutating a shell that is shared between
// goroutines must hold its lock.
type Shell struct {
	mu       sync.Mutex
	vertices []r3.Vec
	edges    []Edge
	faces    []Face
}

// NewShell returns an empty shell.
func NewShell() *Shell { return &Shell{} }

// Lock acquires the structural lock of the shell.
func (s *Shell) Lock() { s.mu.Lock() }

// Unlock releases the structural lock of the shell.
func (s *Shell) Unlock() { s.mu.Unlock() }

// TryLock acquires the structural lock if it is free and reports whether it did.
func (s *Shell) TryLock() bool { return s.mu.TryLock() }

func (s *Shell) NumVertices() int { return len(s.vertices) }
func (s *Shell) NumEdges() int    { return len(s.edges) }
func (s *Shell) NumFaces() int    { return len(s.faces) }

// Vertex returns the position of vertex v. It panics on invalid ids.
func (s *Shell) Vertex(v VertexID) r3.Vec { return s.vertices[v] }

// Edge returns edge e. It panics on invalid ids.
func (s *Shell) Edge(e EdgeID) Edge { return s.edges[e] }

// Face returns a copy of face f. It panics on invalid ids.
func (s *Shell) Face(f FaceID) Face { return s.faces[f].clone() }

// Start returns the vertex an oriented edge starts at.
func (s *Shell) Start(oe OrientedEdge) VertexID {
	if oe.Reversed {
		return s.edges[oe.Edge].V1
	}
	return s.edges[oe.Edge].V0
}

// End returns the vertex an oriented edge ends at.
func (s *Shell) End(oe OrientedEdge) VertexID {
	if oe.Reversed {
		return s.edges[oe.Edge].V0
	}
	return s.edges[oe.Edge].V1
}

// Curve returns the curve of an oriented edge in traversal direction.
func (s *Shell) Curve(oe OrientedEdge) brep.Curve {
	c := s.edges[oe.Edge].Curve
	if oe.Reversed {
		return brep.Reverse(c)
	}
	return c
}

// AddVertex appends a vertex at p.
func (s *Shell) AddVertex(p r3.Vec) VertexID {
	s.vertices = append(s.vertices, p)
	return VertexID(len(s.vertices) - 1)
}

// AddEdge appends the edge from v0 to v1 along c. The ends of c must
// meet the vertices within Tolerance.
func (s *Shell) AddEdge(v0, v1 VertexID, c brep.Curve) (EdgeID, error) {
	if err := s.checkEdge(v0, v1, c); err != nil {
		return -1, err
	}
	s.edges = append(s.edges, Edge{V0: v0, V1: v1, Curve: c})
	return EdgeID(len(s.edges) - 1), nil
}

// SetCurve replaces the curve of edge e keeping its vertices.
func (s *Shell) SetCurve(e EdgeID, c brep.Curve) error {
	if !s.validEdge(e) {
		return fmt.Errorf("edge %d: %w", e, ErrBadID)
	}
	if err := s.checkEdge(s.edges[e].V0, s.edges[e].V1, c); err != nil {
		return err
	}
	s.edges[e].Curve = c
	return nil
}

func (s *Shell) checkEdge(v0, v1 VertexID, c brep.Curve) error {
	if !s.validVertex(v0) || !s.validVertex(v1) {
		return fmt.Errorf("vertices %d, %d: %w", v0, v1, ErrBadID)
	}
	if c == nil {
		return errors.New("topo: nil curve")
	}
	if front := brep.Front(c); !d3.Near(front, s.vertices[v0], Tolerance) {
		return fmt.Errorf("front %v, vertex %v: %w", front, s.vertices[v0], ErrCurveEnds)
	}
	if back := brep.Back(c); !d3.Near(back, s.vertices[v1], Tolerance) {
		return fmt.Errorf("back %v, vertex %v: %w", back, s.vertices[v1], ErrCurveEnds)
	}
	return nil
}

// NewWire checks that the oriented edges form a closed connected loop.
func (s *Shell) NewWire(oes ...OrientedEdge) (Wire, error) {
	if len(oes) == 0 {
		return nil, ErrOpenWire
	}
	for i, oe := range oes {
		if !s.validEdge(oe.Edge) {
			return nil, fmt.Errorf("wire edge %d: %w", oe.Edge, ErrBadID)
		}
		next := oes[(i+1)%len(oes)]
		if !s.validEdge(next.Edge) {
			return nil, fmt.Errorf("wire edge %d: %w", next.Edge, ErrBadID)
		}
		if s.End(oe) != s.Start(next) {
			if i == len(oes)-1 {
				return nil, ErrOpenWire
			}
			return nil, fmt.Errorf("edges %d and %d: %w", oe.Edge, next.Edge, ErrDisconnected)
		}
	}
	return Wire(oes), nil
}

func (s *Shell) checkFace(f Face) error {
	if f.Surface == nil {
		return errors.New("topo: face without surface")
	}
	if len(f.Boundaries) == 0 {
		return errors.New("topo: face without boundary")
	}
	for _, w := range f.Boundaries {
		if _, err := s.NewWire(w...); err != nil {
			return err
		}
	}
	return nil
}

// AddFace appends a face after checking its wires.
func (s *Shell) AddFace(f Face) (FaceID, error) {
	if err := s.checkFace(f); err != nil {
		return -1, err
	}
	s.faces = append(s.faces, f.clone())
	return FaceID(len(s.faces) - 1), nil
}

// ReplaceFace overwrites face id after checking the new face's wires.
func (s *Shell) ReplaceFace(id FaceID, f Face) error {
	if id < 0 || int(id) >= len(s.faces) {
		return fmt.Errorf("face %d: %w", id, ErrBadID)
	}
	if err := s.checkFace(f); err != nil {
		return fmt.Errorf("face %d: %w", id, err)
	}
	s.faces[id] = f.clone()
	return nil
}

func (s *Shell) validVertex(v VertexID) bool { return v >= 0 && int(v) < len(s.vertices) }
func (s *Shell) validEdge(e EdgeID) bool     { return e >= 0 && int(e) < len(s.edges) }

// FacesOfEdge returns the faces using edge e in ascending order. A face
// using the edge twice is listed twice.
func (s *Shell) FacesOfEdge(e EdgeID) []FaceID {
	var out []FaceID
	for i, f := range s.faces {
		for _, w := range f.Boundaries {
			for _, oe := range w {
				if oe.Edge == e {
					out = append(out, FaceID(i))
				}
			}
		}
	}
	return out
}

// Boundaries returns the edge ids of every wire of every face, in order.
func (s *Shell) Boundaries() [][][]EdgeID {
	out := make([][][]EdgeID, len(s.faces))
	for i, f := range s.faces {
		out[i] = make([][]EdgeID, len(f.Boundaries))
		for j, w := range f.Boundaries {
			ids := make([]EdgeID, len(w))
			for k, oe := range w {
				ids[k] = oe.Edge
			}
			out[i][j] = ids
		}
	}
	return out
}

// EdgeIDs returns the ids of all edges used by some face, ascending.
func (s *Shell) EdgeIDs() []EdgeID {
	used := make(map[EdgeID]bool)
	for _, f := range s.faces {
		for _, w := range f.Boundaries {
			for _, oe := range w {
				used[oe.Edge] = true
			}
		}
	}
	ids := make([]EdgeID, 0, len(used))
	for e := range used {
		ids = append(ids, e)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate checks every face wire and that every used edge is used at
// most twice, in opposite directions when twice.
func (s *Shell) Validate() error {
	type use struct{ fwd, rev int }
	uses := make(map[EdgeID]*use)
	for i, f := range s.faces {
		if err := s.checkFace(f); err != nil {
			return fmt.Errorf("face %d: %w", i, err)
		}
		for _, w := range f.Boundaries {
			for _, oe := range w {
				u := uses[oe.Edge]
				if u == nil {
					u = new(use)
					uses[oe.Edge] = u
				}
				if oe.Reversed {
					u.rev++
				} else {
					u.fwd++
				}
			}
		}
	}
	for e, u := range uses {
		if u.fwd > 1 || u.rev > 1 {
			return fmt.Errorf("topo: edge %d used %d times forward and %d reversed", e, u.fwd, u.rev)
		}
	}
	return nil
}

// IsClosed reports whether every used edge borders exactly two faces.
func (s *Shell) IsClosed() bool {
	for _, e := range s.EdgeIDs() {
		if len(s.FacesOfEdge(e)) != 2 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the shell structure. Curves and surfaces
// are shared since they are never mutated.
func (s *Shell) Clone() *Shell {
	out := &Shell{
		vertices: append([]r3.Vec(nil), s.vertices...),
		edges:    append([]Edge(nil), s.edges...),
		faces:    make([]Face, len(s.faces)),
	}
	for i, f := range s.faces {
		out.faces[i] = f.clone()
	}
	return out
}

// Assign replaces the contents of s with those of other. other must not
// be used afterwards.
func (s *Shell) Assign(other *Shell) {
	s.vertices = other.vertices
	s.edges = other.edges
	s.faces = other.faces
}
