// Package render tessellates shells into triangles and writes them as STL.
// Tessellation is approximate and meant for previews: four sided faces are
// meshed with a Coons patch of their boundary snapped onto the face
// surface, other faces with a fan around their projected centroid. Inner
// wires are ignored.
package render

import (
	"errors"
	"io"

	"github.com/soypat/brep"
	"github.com/soypat/brep/internal/d3"
	"github.com/soypat/brep/topo"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// snapTrials bounds the Newton iterations used to snap points onto a face.
	snapTrials = 30
	// minArea is the area below which triangles are dropped.
	minArea = 1e-12
)

// Triangle3 is a triangle in space. Vertices are counter-clockwise seen
// from the side its normal points to.
type Triangle3 struct {
	V [3]r3.Vec
}

// Normal returns the unit normal of the triangle.
func (t Triangle3) Normal() r3.Vec {
	return r3.Unit(t.cross())
}

// Area returns the area of the triangle.
func (t Triangle3) Area() float64 {
	return r3.Norm(t.cross()) / 2
}

// Centroid returns the average of the triangle's vertices.
func (t Triangle3) Centroid() r3.Vec {
	return r3.Scale(1./3, r3.Add(t.V[0], r3.Add(t.V[1], t.V[2])))
}

// Bounds returns the bounding box of model.
func Bounds(model []Triangle3) r3.Box {
	box := d3.EmptyBox()
	for _, t := range model {
		for _, v := range t.V {
			box = box.Include(v)
		}
	}
	return r3.Box(box)
}

func (t Triangle3) cross() r3.Vec {
	return r3.Cross(r3.Sub(t.V[1], t.V[0]), r3.Sub(t.V[2], t.V[0]))
}

// Renderer yields triangles. ReadTriangles returns io.EOF once exhausted.
type Renderer interface {
	ReadTriangles(t []Triangle3) (int, error)
}

// ShellRenderer reads the triangles of a shell face by face.
type ShellRenderer struct {
	shell *topo.Shell
	div   int
	next  topo.FaceID
	buf   triangle3Buffer
}

var _ Renderer = (*ShellRenderer)(nil)

// NewShellRenderer returns a renderer sampling every boundary edge of s
// with div segments.
func NewShellRenderer(s *topo.Shell, div int) (*ShellRenderer, error) {
	if s == nil {
		return nil, errors.New("nil shell")
	}
	if div < 1 {
		return nil, errors.New("division must be positive")
	}
	return &ShellRenderer{shell: s, div: div}, nil
}

func (r *ShellRenderer) ReadTriangles(t []Triangle3) (int, error) {
	r.shell.Lock()
	for r.buf.Len() < len(t) && int(r.next) < r.shell.NumFaces() {
		r.buf.Write(tessellate(r.shell, r.next, r.div))
		r.next++
	}
	done := int(r.next) >= r.shell.NumFaces()
	r.shell.Unlock()
	n := r.buf.Read(t)
	if n == 0 && done && len(t) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// tessellate meshes the outer wire of face id.
func tessellate(s *topo.Shell, id topo.FaceID, div int) []Triangle3 {
	f := s.Face(id)
	if len(f.Boundaries) == 0 || len(f.Boundaries[0]) == 0 {
		return nil
	}
	snap := snapper(f.Surface, div)
	wire := f.Boundaries[0]
	if len(wire) == 4 {
		var sides [4]brep.Curve
		for i, oe := range wire {
			sides[i] = s.Curve(oe)
		}
		return coons(sides, div, snap)
	}
	var ring []r3.Vec
	for _, oe := range wire {
		c := s.Curve(oe)
		for i := 0; i < div; i++ {
			ring = append(ring, at(c, float64(i)/float64(div)))
		}
	}
	return fan(ring, snap)
}

// snapper returns a function moving points onto surf. Points whose
// projection fails are left in place.
func snapper(surf brep.Surface, div int) func(r3.Vec) r3.Vec {
	sampler := brep.NewSampler(surf, div, div)
	return func(p r3.Vec) r3.Vec {
		uv, ok := sampler.SearchNearestParameter(p, snapTrials)
		if !ok {
			return p
		}
		return brep.SubsUV(surf, uv)
	}
}

// at evaluates c at the fraction s of its range.
func at(c brep.Curve, s float64) r3.Vec {
	t0, t1 := c.Range()
	return c.Subs(t0 + s*(t1-t0))
}

// coons meshes the patch bounded by four curves given in wire order.
func coons(sides [4]brep.Curve, div int, snap func(r3.Vec) r3.Vec) []Triangle3 {
	bottom := func(s float64) r3.Vec { return at(sides[0], s) }
	right := func(t float64) r3.Vec { return at(sides[1], t) }
	top := func(s float64) r3.Vec { return at(sides[2], 1-s) }
	left := func(t float64) r3.Vec { return at(sides[3], 1-t) }
	p00, p10 := bottom(0), bottom(1)
	p01, p11 := top(0), top(1)
	grid := make([][]r3.Vec, div+1)
	for i := range grid {
		s := float64(i) / float64(div)
		grid[i] = make([]r3.Vec, div+1)
		for j := range grid[i] {
			t := float64(j) / float64(div)
			switch {
			case j == 0:
				grid[i][j] = bottom(s)
			case j == div:
				grid[i][j] = top(s)
			case i == 0:
				grid[i][j] = left(t)
			case i == div:
				grid[i][j] = right(t)
			default:
				ruled := r3.Add(d3.Lerp(bottom(s), top(s), t), d3.Lerp(left(t), right(t), s))
				corner := d3.Lerp(d3.Lerp(p00, p10, s), d3.Lerp(p01, p11, s), t)
				grid[i][j] = snap(r3.Sub(ruled, corner))
			}
		}
	}
	tris := make([]Triangle3, 0, 2*div*div)
	for i := 0; i < div; i++ {
		for j := 0; j < div; j++ {
			a, b, c, d := grid[i][j], grid[i+1][j], grid[i+1][j+1], grid[i][j+1]
			tris = appendTriangle(tris, a, b, c)
			tris = appendTriangle(tris, a, c, d)
		}
	}
	return tris
}

// fan meshes a closed ring of points around its centroid.
func fan(ring []r3.Vec, snap func(r3.Vec) r3.Vec) []Triangle3 {
	var sum r3.Vec
	for _, p := range ring {
		sum = r3.Add(sum, p)
	}
	center := snap(r3.Scale(1/float64(len(ring)), sum))
	tris := make([]Triangle3, 0, len(ring))
	for i := range ring {
		tris = appendTriangle(tris, center, ring[i], ring[(i+1)%len(ring)])
	}
	return tris
}

func appendTriangle(dst []Triangle3, a, b, c r3.Vec) []Triangle3 {
	t := Triangle3{V: [3]r3.Vec{a, b, c}}
	if t.Area() < minArea {
		return dst
	}
	return append(dst, t)
}
