package render_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fogleman/fauxgl"
	"github.com/soypat/brep/fillet"
	"github.com/soypat/brep/internal/d3"
	"github.com/soypat/brep/render"
	"github.com/soypat/brep/topo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

const quality = 6

// filletedBox is the unit box with its top front edge rounded.
func filletedBox(t *testing.T) *topo.Shell {
	t.Helper()
	s := topo.Box(r3.Vec{}, d3.Elem(1))
	var edge topo.EdgeID = -1
	for _, e := range s.EdgeIDs() {
		ed := s.Edge(e)
		a, b := s.Vertex(ed.V0), s.Vertex(ed.V1)
		if a.Z == 1 && b.Z == 1 && a.Y == 0 && b.Y == 0 {
			edge = e
		}
	}
	if edge < 0 {
		t.Fatal("top front edge not found")
	}
	opts := fillet.DefaultOptions()
	opts.Radius = fillet.Constant(0.25)
	opts.Logger = zap.NewNop()
	if err := fillet.Apply(s, []topo.EdgeID{edge}, opts); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSTLCreateWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "box.stl")
	shell := filletedBox(t)
	r, err := render.NewShellRenderer(shell, quality)
	if err != nil {
		t.Fatal(err)
	}
	err = render.CreateSTL(path, r)
	if err != nil {
		t.Fatal(err)
	}
	bfile, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	r, _ = render.NewShellRenderer(shell, quality)
	model, err := render.RenderAll(r)
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	err = render.WriteSTL(&b, model)
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != len(bfile) {
		t.Fatal("WriteSTL and CreateSTL output length mismatch")
	}
	if b.String() != string(bfile) {
		t.Fatal("WriteSTL and CreateSTL output mismatch")
	}

	mesh, err := fauxgl.LoadSTL(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(mesh.Triangles) != len(model) {
		t.Errorf("fauxgl read %d triangles, want %d", len(mesh.Triangles), len(model))
	}
	box := mesh.BoundingBox()
	const tol = 1e-5
	if !d3.EqualWithin(r3.Vec{X: box.Min.X, Y: box.Min.Y, Z: box.Min.Z}, r3.Vec{}, tol) ||
		!d3.EqualWithin(r3.Vec{X: box.Max.X, Y: box.Max.Y, Z: box.Max.Z}, d3.Elem(1), tol) {
		t.Errorf("mesh bounds %v, want unit box", box)
	}
	if got := d3.Box(render.Bounds(model)); !got.Equals(d3.Box{Max: d3.Elem(1)}, 1e-9) {
		t.Errorf("model bounds %v, want unit box", got)
	}
}

func TestShellRendererOutwardNormals(t *testing.T) {
	center := d3.Elem(0.5)
	for name, shell := range map[string]*topo.Shell{
		"box":      topo.Box(r3.Vec{}, d3.Elem(1)),
		"filleted": filletedBox(t),
		"cylinder": topo.Cylinder(r3.Vec{X: 0.5, Y: 0.5}, 0.5, 1, 5),
	} {
		r, err := render.NewShellRenderer(shell, quality)
		if err != nil {
			t.Fatal(err)
		}
		model, err := render.RenderAll(r)
		if err != nil {
			t.Fatal(err)
		}
		inward := 0
		for _, tri := range model {
			if r3.Dot(tri.Normal(), r3.Sub(tri.Centroid(), center)) <= 0 {
				inward++
			}
		}
		if inward > 0 {
			t.Errorf("%s: %d of %d triangles face inward", name, inward, len(model))
		}
	}
}

func TestFilletedBoxArea(t *testing.T) {
	// Rounding one unit edge removes a strip of width r from both adjacent
	// faces and a corner square from both end faces, and adds a quarter
	// cylinder plus two quarter disks.
	const r = 0.25
	shell := filletedBox(t)
	rd, err := render.NewShellRenderer(shell, 12)
	if err != nil {
		t.Fatal(err)
	}
	model, err := render.RenderAll(rd)
	if err != nil {
		t.Fatal(err)
	}
	var area float64
	for _, tri := range model {
		area += tri.Area()
	}
	want := 6 - 2*r + math.Pi*r/2 - 2*r*r + math.Pi*r*r/2
	if d := area - want; d > 1e-2 || d < -1e-2 {
		t.Errorf("mesh area %.5f, want %.5f", area, want)
	}
}
