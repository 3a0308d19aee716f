package brep

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	_ kdtree.Interface  = samplePoints{}
	_ kdtree.Comparable = samplePoint{}
)

// Sampler answers repeated nearest-parameter hint queries against one
// surface using a kd-tree over a grid of surface samples.
type Sampler struct {
	surface Surface
	tree    *kdtree.Tree
}

// NewSampler samples s on a (udiv+1)×(vdiv+1) grid over its range.
// Surfaces with an infinite range are sampled over [-1,1] in the unbounded directions.
func NewSampler(s Surface, udiv, vdiv int) *Sampler {
	rng := sampleWindow(s)
	us := floats.Span(make([]float64, udiv+1), rng.Min.X, rng.Max.X)
	vs := floats.Span(make([]float64, vdiv+1), rng.Min.Y, rng.Max.Y)
	pts := make(samplePoints, 0, len(us)*len(vs))
	for _, u := range us {
		for _, v := range vs {
			pts = append(pts, samplePoint{p: s.Subs(u, v), uv: r2.Vec{X: u, Y: v}})
		}
	}
	return &Sampler{surface: s, tree: kdtree.New(pts, false)}
}

// Hint returns the parameter of the sample nearest to p.
func (s *Sampler) Hint(p r3.Vec) r2.Vec {
	got, _ := s.tree.Nearest(samplePoint{p: p})
	return got.(samplePoint).uv
}

// SearchNearestParameter seeds SearchNearestParameter with the sampler's hint.
func (s *Sampler) SearchNearestParameter(p r3.Vec, trials int) (r2.Vec, bool) {
	hint := s.Hint(p)
	return SearchNearestParameter(s.surface, p, &hint, trials)
}

type samplePoint struct {
	p  r3.Vec
	uv r2.Vec
}

// Compare returns the signed distance of a from the plane passing through
// b and perpendicular to the dimension d.
func (a samplePoint) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	return sampleComp(a, b.(samplePoint), int(d))
}

// Dims returns the number of dimensions described in the Comparable.
func (a samplePoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between the receiver and
// the parameter.
func (a samplePoint) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(a.p, b.(samplePoint).p))
}

// c = a.dim - b.dim
func sampleComp(a, b samplePoint, dim int) float64 {
	switch dim {
	case 0:
		return a.p.X - b.p.X
	case 1:
		return a.p.Y - b.p.Y
	case 2:
		return a.p.Z - b.p.Z
	}
	panic("unreachable")
}

type samplePoints []samplePoint

func (k samplePoints) Index(i int) kdtree.Comparable { return k[i] }

// Len returns the length of the list.
func (k samplePoints) Len() int { return len(k) }

// Pivot partitions the list based on the dimension specified.
func (k samplePoints) Pivot(d kdtree.Dim) int {
	p := samplePlane{dim: int(d), points: k}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// Slice returns a slice of the list using zero-based half
// open indexing equivalent to built-in slice indexing.
func (k samplePoints) Slice(start, end int) kdtree.Interface {
	return k[start:end]
}

type samplePlane struct {
	dim    int
	points samplePoints
}

func (p samplePlane) Less(i, j int) bool {
	return sampleComp(p.points[i], p.points[j], p.dim) < 0
}
func (p samplePlane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
func (p samplePlane) Len() int {
	return len(p.points)
}
func (p samplePlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
