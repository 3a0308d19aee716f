package d2

import "gonum.org/v1/gonum/spatial/r2"

// Box is a 2d parameter-space box.
type Box r2.Box
