package render

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/soypat/brep/internal/d3"
	"github.com/soypat/brep/topo"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSTLWriteReadback(t *testing.T) {
	const (
		div = 4
		tol = 1e-6
	)
	shell := topo.Box(r3.Vec{}, r3.Vec{X: 3, Y: 2, Z: 1})
	r, err := NewShellRenderer(shell, div)
	if err != nil {
		t.Fatal(err)
	}
	input, err := RenderAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if want := 6 * 2 * div * div; len(input) != want {
		t.Fatalf("got %d triangles, want %d", len(input), want)
	}
	var b bytes.Buffer
	err = WriteSTL(&b, input)
	if err != nil {
		t.Fatal(err)
	}
	output, err := readSTL(&b)
	if err != nil {
		t.Fatal(err)
	}
	if len(output) != len(input) {
		t.Fatal("length of triangles written/read not equal")
	}
	for itri, expect := range input {
		got := output[itri]
		for i := range expect.V {
			if !d3.EqualWithin(got.V[i], expect.V[i], tol) {
				t.Errorf("%dth triangle out of tolerance. got vertex %0.5g, want %0.5g", itri, got.V[i], expect.V[i])
			}
		}
	}
}

func TestShellRendererSmallBuffer(t *testing.T) {
	shell := topo.Cylinder(r3.Vec{}, 1, 2, 3)
	r, err := NewShellRenderer(shell, 2)
	if err != nil {
		t.Fatal(err)
	}
	var model []Triangle3
	buf := make([]Triangle3, 5)
	for {
		n, err := r.ReadTriangles(buf)
		model = append(model, buf[:n]...)
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
	}
	r2, _ := NewShellRenderer(shell, 2)
	all, err := RenderAll(r2)
	if err != nil {
		t.Fatal(err)
	}
	if len(model) == 0 || len(model) != len(all) {
		t.Fatalf("got %d triangles reading in chunks, %d at once", len(model), len(all))
	}
}

func TestNewShellRendererErrors(t *testing.T) {
	if _, err := NewShellRenderer(nil, 2); err == nil {
		t.Error("expected error for nil shell")
	}
	if _, err := NewShellRenderer(topo.Box(r3.Vec{}, d3.Elem(1)), 0); err == nil {
		t.Error("expected error for zero division")
	}
}

func TestDecodeFacetRejects(t *testing.T) {
	var b bytes.Buffer
	tri := Triangle3{V: [3]r3.Vec{{}, {X: 1}, {Y: 1}}}
	if err := WriteSTL(&b, []Triangle3{tri}); err != nil {
		t.Fatal(err)
	}
	good := b.Bytes()
	if _, err := readSTL(bytes.NewReader(good)); err != nil {
		t.Fatal(err)
	}
	rec := good[stlHeaderSize:]

	degenerate := append([]byte(nil), rec...)
	copy(degenerate[36:48], degenerate[24:36])
	if _, err := decodeFacet(degenerate); err == nil {
		t.Error("expected degenerate triangle error")
	}
	nan := append([]byte(nil), rec...)
	binary.LittleEndian.PutUint32(nan[16:], math.Float32bits(float32(math.NaN())))
	if _, err := decodeFacet(nan); err == nil {
		t.Error("expected NaN vertex error")
	}
	if _, err := readSTL(bytes.NewReader(good[:len(good)-1])); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated STL: got %v", err)
	}
}

// emptyRenderer yields no triangles.
type emptyRenderer struct{}

func (emptyRenderer) ReadTriangles([]Triangle3) (int, error) { return 0, io.EOF }

func TestStreamSTLCount(t *testing.T) {
	var b bytes.Buffer
	r, err := NewShellRenderer(topo.Box(r3.Vec{}, d3.Elem(1)), 1)
	if err != nil {
		t.Fatal(err)
	}
	n, err := streamSTL(&b, r)
	if err != nil {
		t.Fatal(err)
	}
	if n != 12 || b.Len() != stlHeaderSize+12*stlFacetSize {
		t.Errorf("streamed %d facets in %d bytes", n, b.Len())
	}
	// The count is left for the caller to patch.
	if got := binary.LittleEndian.Uint32(b.Bytes()[stlCommentSize:]); got != 0 {
		t.Errorf("streamed header count %d", got)
	}
	if _, err := streamSTL(io.Discard, emptyRenderer{}); err == nil {
		t.Error("expected error for empty renderer")
	}
}
