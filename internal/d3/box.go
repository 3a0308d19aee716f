package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// d3.Box is a 3d bounding box.
type Box r3.Box

// EmptyBox returns a box that contains nothing. Including
// any point in it yields a degenerate box around that point.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{Min: Elem(inf), Max: Elem(-inf)}
}

// Equals test the equality of 3d boxes.
func (a Box) Equals(b Box, tol float64) bool {
	return EqualWithin(a.Min, b.Min, tol) && EqualWithin(a.Max, b.Max, tol)
}

// Include enlarges a 3d box to include a point.
func (a Box) Include(v r3.Vec) Box {
	return Box{
		Min: MinElem(a.Min, v),
		Max: MaxElem(a.Max, v),
	}
}
