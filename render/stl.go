package render

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

// Binary STL layout: an 80 byte comment, a little endian triangle count
// and one 50 byte record per facet.
const (
	stlCommentSize = 80
	stlHeaderSize  = stlCommentSize + 4
	stlFacetSize   = 50
	// facetBatch is the number of triangles requested from a renderer at once.
	facetBatch = 1 << 10
)

// CreateSTL renders r into a binary STL file at path. Triangles are
// streamed as the renderer yields them and the facet count is written
// once r is exhausted.
func CreateSTL(path string, r Renderer) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := streamSTL(file, r)
	if err == nil {
		err = patchCount(file, n)
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteSTL writes model to w as a binary STL.
func WriteSTL(w io.Writer, model []Triangle3) error {
	if len(model) == 0 {
		return errors.New("empty triangle slice")
	}
	fw := newFacetWriter(w)
	if err := fw.header(uint32(len(model))); err != nil {
		return err
	}
	for _, t := range model {
		if err := fw.facet(t); err != nil {
			return err
		}
	}
	return fw.flush()
}

// streamSTL writes an STL with a zero count followed by every triangle of
// r and returns the number of facets written.
func streamSTL(w io.Writer, r Renderer) (uint32, error) {
	fw := newFacetWriter(w)
	if err := fw.header(0); err != nil {
		return 0, err
	}
	batch := make([]Triangle3, facetBatch)
	for {
		n, err := r.ReadTriangles(batch)
		for _, t := range batch[:n] {
			if werr := fw.facet(t); werr != nil {
				return fw.count, werr
			}
		}
		if err == io.EOF {
			break
		} else if err != nil {
			return fw.count, err
		}
	}
	if fw.count == 0 {
		return 0, errors.New("renderer yielded no triangles")
	}
	return fw.count, fw.flush()
}

// patchCount overwrites the facet count of the STL in w.
func patchCount(w io.WriterAt, n uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], n)
	_, err := w.WriteAt(b[:], stlCommentSize)
	return err
}

// facetWriter buffers STL records on their way to an io.Writer.
type facetWriter struct {
	w     *bufio.Writer
	count uint32
	rec   [stlFacetSize]byte
}

func newFacetWriter(w io.Writer) *facetWriter {
	return &facetWriter{w: bufio.NewWriterSize(w, facetBatch*stlFacetSize)}
}

func (fw *facetWriter) header(count uint32) error {
	var b [stlHeaderSize]byte
	binary.LittleEndian.PutUint32(b[stlCommentSize:], count)
	_, err := fw.w.Write(b[:])
	return err
}

// facet encodes t with the normal of its vertex winding.
func (fw *facetWriter) facet(t Triangle3) error {
	putVec(fw.rec[0:], t.Normal())
	for i, v := range t.V {
		putVec(fw.rec[12*(i+1):], v)
	}
	// Attribute byte count.
	fw.rec[48], fw.rec[49] = 0, 0
	fw.count++
	_, err := fw.w.Write(fw.rec[:])
	return err
}

func (fw *facetWriter) flush() error { return fw.w.Flush() }

func putVec(b []byte, v r3.Vec) {
	_ = b[11]
	binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(float32(v.Z)))
}

// getVec decodes a single precision vector. ok is false for NaN or
// infinite components.
func getVec(b []byte) (v r3.Vec, ok bool) {
	_ = b[11]
	var f [3]float32
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		if math32.IsNaN(f[i]) || math32.IsInf(f[i], 0) {
			return r3.Vec{}, false
		}
	}
	return r3.Vec{X: float64(f[0]), Y: float64(f[1]), Z: float64(f[2])}, true
}

// readSTL decodes a binary STL. The stored normals are ignored; triangles
// carry their orientation in the vertex order.
func readSTL(r io.Reader) ([]Triangle3, error) {
	var head [stlHeaderSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("STL header: %w", err)
	}
	count := binary.LittleEndian.Uint32(head[stlCommentSize:])
	if count == 0 {
		return nil, errors.New("STL holds no triangles")
	}
	model := make([]Triangle3, 0, count)
	var rec [stlFacetSize]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, fmt.Errorf("STL facet %d/%d: %w", i+1, count, err)
		}
		t, err := decodeFacet(rec[:])
		if err != nil {
			return nil, fmt.Errorf("STL facet %d/%d: %w", i+1, count, err)
		}
		model = append(model, t)
	}
	return model, nil
}

func decodeFacet(rec []byte) (Triangle3, error) {
	var t Triangle3
	if _, ok := getVec(rec); !ok {
		return t, errors.New("inf/NaN normal")
	}
	for i := range t.V {
		v, ok := getVec(rec[12*(i+1):])
		if !ok {
			return t, errors.New("inf/NaN vertex")
		}
		t.V[i] = v
	}
	if t.Area() < minArea {
		return t, errors.New("degenerate triangle")
	}
	return t, nil
}
