package nurbs

import (
	"math"

	"github.com/soypat/brep"
	"github.com/soypat/brep/internal/d3"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ brep.Surface = (*Surface)(nil)

// Surface is a (possibly rational) tensor product B-spline surface.
// Ctrl[i][j] is the control point at u index i and v index j. A nil
// Weights denotes a polynomial surface.
type Surface struct {
	UKnots, VKnots   KnotVector
	UDegree, VDegree int
	Ctrl             [][]r3.Vec
	Weights          [][]float64
}

// NewSurface validates its arguments and returns the surface they describe.
func NewSurface(uknots, vknots KnotVector, udegree, vdegree int, ctrl [][]r3.Vec, weights [][]float64) (*Surface, error) {
	if len(ctrl) == 0 {
		return nil, errMsg("no control points")
	}
	if err := uknots.validate(udegree, len(ctrl)); err != nil {
		return nil, err
	}
	nv := len(ctrl[0])
	for _, row := range ctrl {
		if len(row) != nv {
			return nil, errMsg("ragged control net")
		}
	}
	if err := vknots.validate(vdegree, nv); err != nil {
		return nil, err
	}
	if weights != nil {
		if len(weights) != len(ctrl) {
			return nil, errMsg("weight net shape mismatch")
		}
		for _, row := range weights {
			if len(row) != nv {
				return nil, errMsg("weight net shape mismatch")
			}
			for _, w := range row {
				if w <= 0 || math.IsNaN(w) {
					return nil, errMsg("weights must be positive")
				}
			}
		}
	}
	return &Surface{
		UKnots: uknots, VKnots: vknots,
		UDegree: udegree, VDegree: vdegree,
		Ctrl: ctrl, Weights: weights,
	}, nil
}

// FromColumns builds the surface whose v-direction control columns are
// the given curves, one per u control point. All columns must share knots
// and degree. The u direction is polynomial with the given knots.
func FromColumns(uknots KnotVector, udegree int, columns []*Curve) (*Surface, error) {
	if len(columns) == 0 {
		return nil, errMsg("no columns")
	}
	c0 := columns[0]
	ctrl := make([][]r3.Vec, len(columns))
	var weights [][]float64
	rational := false
	for _, c := range columns {
		if c.Degree != c0.Degree || len(c.Ctrl) != len(c0.Ctrl) {
			return nil, errMsg("incompatible columns")
		}
		rational = rational || c.IsRational()
	}
	if rational {
		weights = make([][]float64, len(columns))
	}
	for i, c := range columns {
		ctrl[i] = append([]r3.Vec(nil), c.Ctrl...)
		if rational {
			weights[i] = make([]float64, len(c.Ctrl))
			for j := range c.Ctrl {
				weights[i][j] = c.weight(j)
			}
		}
	}
	return NewSurface(uknots, c0.Knots.Clone(), udegree, c0.Degree, ctrl, weights)
}

func (s *Surface) weight(i, j int) float64 {
	if s.Weights == nil {
		return 1
	}
	return s.Weights[i][j]
}

// IsRational reports whether the surface carries weights.
func (s *Surface) IsRational() bool { return s.Weights != nil }

// surfaceDers holds the position and partial derivatives up to second order.
type surfaceDers struct {
	s, su, sv, suu, suv, svv r3.Vec
}

// ders evaluates the rational surface and its partials at (u,v).
func (s *Surface) ders(u, v float64) surfaceDers {
	p, q := s.UDegree, s.VDegree
	uspan := s.UKnots.span(p, u)
	vspan := s.VKnots.span(q, v)
	nu := s.UKnots.basisDers(uspan, p, 2, u)
	nv := s.VKnots.basisDers(vspan, q, 2, v)
	// a[k][l] is the k-th u, l-th v derivative of the weighted point function.
	var a [3][3]r3.Vec
	var w [3][3]float64
	for i := 0; i <= p; i++ {
		iu := uspan - p + i
		for j := 0; j <= q; j++ {
			jv := vspan - q + j
			wij := s.weight(iu, jv)
			pw := r3.Scale(wij, s.Ctrl[iu][jv])
			for k := 0; k < 3; k++ {
				for l := 0; k+l < 3; l++ {
					b := nu[k][i] * nv[l][j]
					a[k][l] = r3.Add(a[k][l], r3.Scale(b, pw))
					w[k][l] += b * wij
				}
			}
		}
	}
	inv := 1 / w[0][0]
	var d surfaceDers
	d.s = r3.Scale(inv, a[0][0])
	d.su = r3.Scale(inv, r3.Sub(a[1][0], r3.Scale(w[1][0], d.s)))
	d.sv = r3.Scale(inv, r3.Sub(a[0][1], r3.Scale(w[0][1], d.s)))
	d.suu = r3.Scale(inv, r3.Sub(a[2][0], r3.Add(r3.Scale(2*w[1][0], d.su), r3.Scale(w[2][0], d.s))))
	d.svv = r3.Scale(inv, r3.Sub(a[0][2], r3.Add(r3.Scale(2*w[0][1], d.sv), r3.Scale(w[0][2], d.s))))
	d.suv = r3.Scale(inv, r3.Sub(a[1][1], r3.Add(
		r3.Add(r3.Scale(w[1][0], d.sv), r3.Scale(w[0][1], d.su)),
		r3.Scale(w[1][1], d.s),
	)))
	return d
}

// Subs evaluates only the position, skipping derivative terms.
func (s *Surface) Subs(u, v float64) r3.Vec {
	p, q := s.UDegree, s.VDegree
	uspan := s.UKnots.span(p, u)
	vspan := s.VKnots.span(q, v)
	nu := s.UKnots.basisDers(uspan, p, 0, u)
	nv := s.VKnots.basisDers(vspan, q, 0, v)
	var a r3.Vec
	var w float64
	for i := 0; i <= p; i++ {
		iu := uspan - p + i
		for j := 0; j <= q; j++ {
			jv := vspan - q + j
			b := nu[0][i] * nv[0][j] * s.weight(iu, jv)
			a = r3.Add(a, r3.Scale(b, s.Ctrl[iu][jv]))
			w += b
		}
	}
	return r3.Scale(1/w, a)
}

func (s *Surface) UDer(u, v float64) r3.Vec  { return s.ders(u, v).su }
func (s *Surface) VDer(u, v float64) r3.Vec  { return s.ders(u, v).sv }
func (s *Surface) UUDer(u, v float64) r3.Vec { return s.ders(u, v).suu }
func (s *Surface) UVDer(u, v float64) r3.Vec { return s.ders(u, v).suv }
func (s *Surface) VVDer(u, v float64) r3.Vec { return s.ders(u, v).svv }

// Normal returns the unit normal Su × Sv. Where one partial vanishes the
// normal is taken from the cross product of the other partial with the
// second derivative across it.
func (s *Surface) Normal(u, v float64) r3.Vec {
	d := s.ders(u, v)
	n := r3.Cross(d.su, d.sv)
	if r3.Norm2(n) > brep.Tolerance2*brep.Tolerance2 {
		return r3.Unit(n)
	}
	switch {
	case r3.Norm2(d.su) < brep.Tolerance2:
		n = r3.Cross(d.suv, d.sv)
	default:
		n = r3.Cross(d.su, d.suv)
	}
	return r3.Unit(n)
}

func (s *Surface) Range() r2.Box {
	u0, u1 := s.UKnots.Range(s.UDegree)
	v0, v1 := s.VKnots.Range(s.VDegree)
	return r2.Box{Min: r2.Vec{X: u0, Y: v0}, Max: r2.Vec{X: u1, Y: v1}}
}

// Clone returns a deep copy of s.
func (s *Surface) Clone() *Surface {
	out := &Surface{
		UKnots: s.UKnots.Clone(), VKnots: s.VKnots.Clone(),
		UDegree: s.UDegree, VDegree: s.VDegree,
		Ctrl: make([][]r3.Vec, len(s.Ctrl)),
	}
	for i, row := range s.Ctrl {
		out.Ctrl[i] = append([]r3.Vec(nil), row...)
	}
	if s.Weights != nil {
		out.Weights = make([][]float64, len(s.Weights))
		for i, row := range s.Weights {
			out.Weights[i] = append([]float64(nil), row...)
		}
	}
	return out
}

// Normalize returns a copy of s reparametrized over [0,1]².
func (s *Surface) Normalize() *Surface {
	return s.NormalizeU().NormalizeV()
}

// NormalizeU returns a copy of s with its u range mapped to [0,1].
func (s *Surface) NormalizeU() *Surface {
	out := s.Clone()
	out.UKnots = s.UKnots.Transform(s.UDegree, 0, 1)
	return out
}

// NormalizeV returns a copy of s with its v range mapped to [0,1].
func (s *Surface) NormalizeV() *Surface {
	out := s.Clone()
	out.VKnots = s.VKnots.Transform(s.VDegree, 0, 1)
	return out
}

// VIso returns the iso-parametric curve s(·, v) exactly.
func (s *Surface) VIso(v float64) *Curve {
	q := s.VDegree
	vspan := s.VKnots.span(q, v)
	nv := s.VKnots.basisDers(vspan, q, 0, v)
	c := &Curve{
		Knots:  s.UKnots.Clone(),
		Degree: s.UDegree,
		Ctrl:   make([]r3.Vec, len(s.Ctrl)),
	}
	if s.IsRational() {
		c.Weights = make([]float64, len(s.Ctrl))
	}
	for i := range s.Ctrl {
		var a r3.Vec
		var w float64
		for j := 0; j <= q; j++ {
			jv := vspan - q + j
			b := nv[0][j] * s.weight(i, jv)
			a = r3.Add(a, r3.Scale(b, s.Ctrl[i][jv]))
			w += b
		}
		c.Ctrl[i] = r3.Scale(1/w, a)
		if c.Weights != nil {
			c.Weights[i] = w
		}
	}
	return c
}

// UIso returns the iso-parametric curve s(u, ·) exactly.
func (s *Surface) UIso(u float64) *Curve {
	p := s.UDegree
	uspan := s.UKnots.span(p, u)
	nu := s.UKnots.basisDers(uspan, p, 0, u)
	nv := len(s.Ctrl[0])
	c := &Curve{
		Knots:  s.VKnots.Clone(),
		Degree: s.VDegree,
		Ctrl:   make([]r3.Vec, nv),
	}
	if s.IsRational() {
		c.Weights = make([]float64, nv)
	}
	for j := 0; j < nv; j++ {
		var a r3.Vec
		var w float64
		for i := 0; i <= p; i++ {
			iu := uspan - p + i
			b := nu[0][i] * s.weight(iu, j)
			a = r3.Add(a, r3.Scale(b, s.Ctrl[iu][j]))
			w += b
		}
		c.Ctrl[j] = r3.Scale(1/w, a)
		if c.Weights != nil {
			c.Weights[j] = w
		}
	}
	return c
}

// ConcatU joins a and b along u with a C0 joint. The last control column
// of a must coincide with the first of b within tol, and both must share
// the u degree and the v knot structure. The u range of b is shifted to
// start where that of a ends.
func ConcatU(a, b *Surface, tol float64) (*Surface, error) {
	if a.UDegree != b.UDegree || a.VDegree != b.VDegree || len(a.VKnots) != len(b.VKnots) {
		return nil, errMsg("incompatible surfaces")
	}
	ia := len(a.Ctrl) - 1
	last := a.Ctrl[ia]
	for j := range last {
		if !d3.Near(last[j], b.Ctrl[0][j], tol) {
			return nil, errMsg("surfaces are not connected")
		}
		if math.Abs(a.weight(ia, j)-b.weight(0, j)) > tol {
			return nil, errMsg("joint weights differ")
		}
	}
	out := &Surface{
		UKnots:  concatKnots(a.UKnots, b.UKnots, a.UDegree),
		VKnots:  a.VKnots.Clone(),
		UDegree: a.UDegree,
		VDegree: a.VDegree,
	}
	for _, row := range a.Ctrl {
		out.Ctrl = append(out.Ctrl, append([]r3.Vec(nil), row...))
	}
	for _, row := range b.Ctrl[1:] {
		out.Ctrl = append(out.Ctrl, append([]r3.Vec(nil), row...))
	}
	if a.IsRational() || b.IsRational() {
		nv := len(last)
		for i := range a.Ctrl {
			row := make([]float64, nv)
			for j := range row {
				row[j] = a.weight(i, j)
			}
			out.Weights = append(out.Weights, row)
		}
		for i := 1; i < len(b.Ctrl); i++ {
			row := make([]float64, nv)
			for j := range row {
				row[j] = b.weight(i, j)
			}
			out.Weights = append(out.Weights, row)
		}
	}
	return out, nil
}
