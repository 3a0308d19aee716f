package fillet

import (
	"math"

	"github.com/soypat/brep"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ brep.Curve = path{}

// path joins curves end to end. Piece k is mapped affinely onto the
// parameter interval [k, k+1]. Parameters outside [0, len] extrapolate
// the first and last pieces.
type path []brep.Curve

func (p path) piece(t float64) (brep.Curve, float64, float64) {
	k := int(math.Floor(t))
	if k < 0 {
		k = 0
	} else if k > len(p)-1 {
		k = len(p) - 1
	}
	c := p[k]
	t0, t1 := c.Range()
	return c, t0 + (t-float64(k))*(t1-t0), t1 - t0
}

func (p path) Subs(t float64) r3.Vec {
	c, s, _ := p.piece(t)
	return c.Subs(s)
}

func (p path) Der(t float64) r3.Vec {
	c, s, scale := p.piece(t)
	return r3.Scale(scale, c.Der(s))
}

func (p path) Der2(t float64) r3.Vec {
	c, s, scale := p.piece(t)
	return r3.Scale(scale*scale, c.Der2(s))
}

func (p path) Range() (t0, t1 float64) { return 0, float64(len(p)) }
