package brep

import (
	"math"

	"github.com/soypat/brep/internal/d2"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	_ Surface         = Plane{}
	_ NearestSearcher = Plane{}
	_ Surface         = Sphere{}
	_ NearestSearcher = Sphere{}
	_ Surface         = Cylinder{}
	_ NearestSearcher = Cylinder{}
	_ Surface         = Flipped{}
	_ NearestSearcher = Flipped{}
)

func unbounded() r2.Box {
	inf := math.Inf(1)
	return r2.Box{Min: r2.Vec{X: -inf, Y: -inf}, Max: r2.Vec{X: inf, Y: inf}}
}

// Plane is the infinite plane Origin + u*U + v*V. Its normal is U × V normalized.
type Plane struct {
	Origin r3.Vec
	U, V   r3.Vec
}

// NewPlane returns the plane through three points, parametrized so that
// p0 is at (0,0), p1 at (1,0) and the normal is (p1-p0) × (p2-p0) normalized.
func NewPlane(p0, p1, p2 r3.Vec) Plane {
	return Plane{Origin: p0, U: r3.Sub(p1, p0), V: r3.Sub(p2, p0)}
}

func (p Plane) Subs(u, v float64) r3.Vec {
	return r3.Add(p.Origin, r3.Add(r3.Scale(u, p.U), r3.Scale(v, p.V)))
}
func (p Plane) UDer(u, v float64) r3.Vec  { return p.U }
func (p Plane) VDer(u, v float64) r3.Vec  { return p.V }
func (p Plane) UUDer(u, v float64) r3.Vec { return r3.Vec{} }
func (p Plane) UVDer(u, v float64) r3.Vec { return r3.Vec{} }
func (p Plane) VVDer(u, v float64) r3.Vec { return r3.Vec{} }
func (p Plane) Normal(u, v float64) r3.Vec {
	return r3.Unit(r3.Cross(p.U, p.V))
}
func (p Plane) Range() r2.Box { return unbounded() }

// SearchNearestParameter returns the parameter of the orthogonal projection of pt.
func (p Plane) SearchNearestParameter(pt r3.Vec, _ *r2.Vec, _ int) (r2.Vec, bool) {
	d := r3.Sub(pt, p.Origin)
	uu, uv, vv := r3.Dot(p.U, p.U), r3.Dot(p.U, p.V), r3.Dot(p.V, p.V)
	return d2.Solve2(uu, uv, uv, vv, r2.Vec{X: r3.Dot(p.U, d), Y: r3.Dot(p.V, d)})
}

// Sphere is parametrized by longitude u in [0, 2π] and latitude v in [-π/2, π/2].
// Its normal points outward.
type Sphere struct {
	Center r3.Vec
	Radius float64
}

func (s Sphere) Subs(u, v float64) r3.Vec {
	su, cu := math.Sincos(u)
	sv, cv := math.Sincos(v)
	return r3.Add(s.Center, r3.Scale(s.Radius, r3.Vec{X: cv * cu, Y: cv * su, Z: sv}))
}

func (s Sphere) UDer(u, v float64) r3.Vec {
	su, cu := math.Sincos(u)
	cv := math.Cos(v)
	return r3.Scale(s.Radius, r3.Vec{X: -cv * su, Y: cv * cu})
}

func (s Sphere) VDer(u, v float64) r3.Vec {
	su, cu := math.Sincos(u)
	sv, cv := math.Sincos(v)
	return r3.Scale(s.Radius, r3.Vec{X: -sv * cu, Y: -sv * su, Z: cv})
}

func (s Sphere) UUDer(u, v float64) r3.Vec {
	su, cu := math.Sincos(u)
	cv := math.Cos(v)
	return r3.Scale(s.Radius, r3.Vec{X: -cv * cu, Y: -cv * su})
}

func (s Sphere) UVDer(u, v float64) r3.Vec {
	su, cu := math.Sincos(u)
	sv := math.Sin(v)
	return r3.Scale(s.Radius, r3.Vec{X: sv * su, Y: -sv * cu})
}

func (s Sphere) VVDer(u, v float64) r3.Vec {
	su, cu := math.Sincos(u)
	sv, cv := math.Sincos(v)
	return r3.Scale(s.Radius, r3.Vec{X: -cv * cu, Y: -cv * su, Z: -sv})
}

func (s Sphere) Normal(u, v float64) r3.Vec {
	su, cu := math.Sincos(u)
	sv, cv := math.Sincos(v)
	return r3.Vec{X: cv * cu, Y: cv * su, Z: sv}
}

func (s Sphere) Range() r2.Box {
	return r2.Box{Min: r2.Vec{X: 0, Y: -math.Pi / 2}, Max: r2.Vec{X: tau, Y: math.Pi / 2}}
}

// SearchNearestParameter returns the spherical coordinates of pt. The
// longitude is wrapped to lie closest to the hint's.
func (s Sphere) SearchNearestParameter(pt r3.Vec, hint *r2.Vec, _ int) (r2.Vec, bool) {
	d := r3.Sub(pt, s.Center)
	rxy := math.Hypot(d.X, d.Y)
	if rxy < Tolerance2 {
		// On the axis the longitude is arbitrary.
		if math.Abs(d.Z) < Tolerance2 {
			return r2.Vec{}, false
		}
		uv := r2.Vec{Y: math.Copysign(math.Pi/2, d.Z)}
		if hint != nil {
			uv.X = hint.X
		}
		return uv, true
	}
	u := math.Atan2(d.Y, d.X)
	if hint != nil {
		u = wrapAngle(u, hint.X)
	} else if u < 0 {
		u += tau
	}
	return r2.Vec{X: u, Y: math.Atan2(d.Z, rxy)}, true
}

// Cylinder is the infinite circular cylinder
//  Origin + Radius*(cos(u)*Ref + sin(u)*(Axis × Ref)) + v*Axis
// Axis and Ref must be orthonormal. The normal points away from the axis.
type Cylinder struct {
	Origin r3.Vec
	Axis   r3.Vec
	Ref    r3.Vec
	Radius float64
}

func (c Cylinder) radial(u float64) r3.Vec {
	su, cu := math.Sincos(u)
	return r3.Add(r3.Scale(cu, c.Ref), r3.Scale(su, r3.Cross(c.Axis, c.Ref)))
}

func (c Cylinder) Subs(u, v float64) r3.Vec {
	return r3.Add(c.Origin, r3.Add(r3.Scale(c.Radius, c.radial(u)), r3.Scale(v, c.Axis)))
}

func (c Cylinder) UDer(u, v float64) r3.Vec {
	return r3.Scale(c.Radius, c.radial(u+math.Pi/2))
}

func (c Cylinder) VDer(u, v float64) r3.Vec  { return c.Axis }
func (c Cylinder) UUDer(u, v float64) r3.Vec { return r3.Scale(-c.Radius, c.radial(u)) }
func (c Cylinder) UVDer(u, v float64) r3.Vec { return r3.Vec{} }
func (c Cylinder) VVDer(u, v float64) r3.Vec { return r3.Vec{} }
func (c Cylinder) Normal(u, v float64) r3.Vec {
	return c.radial(u)
}

func (c Cylinder) Range() r2.Box {
	inf := math.Inf(1)
	return r2.Box{Min: r2.Vec{X: 0, Y: -inf}, Max: r2.Vec{X: tau, Y: inf}}
}

// SearchNearestParameter returns the cylindrical coordinates of pt.
func (c Cylinder) SearchNearestParameter(pt r3.Vec, hint *r2.Vec, _ int) (r2.Vec, bool) {
	d := r3.Sub(pt, c.Origin)
	v := r3.Dot(d, c.Axis)
	x, y := r3.Dot(d, c.Ref), r3.Dot(d, r3.Cross(c.Axis, c.Ref))
	if math.Hypot(x, y) < Tolerance2 {
		return r2.Vec{}, false
	}
	u := math.Atan2(y, x)
	if hint != nil {
		u = wrapAngle(u, hint.X)
	} else if u < 0 {
		u += tau
	}
	return r2.Vec{X: u, Y: v}, true
}

// Flipped is a surface whose normal is reversed. Parametrization
// and derivatives are those of the wrapped surface.
type Flipped struct {
	Surface Surface
}

// Flip returns s with its normal reversed. Flipping twice returns s.
func Flip(s Surface) Surface {
	if f, ok := s.(Flipped); ok {
		return f.Surface
	}
	return Flipped{Surface: s}
}

func (f Flipped) Subs(u, v float64) r3.Vec   { return f.Surface.Subs(u, v) }
func (f Flipped) UDer(u, v float64) r3.Vec   { return f.Surface.UDer(u, v) }
func (f Flipped) VDer(u, v float64) r3.Vec   { return f.Surface.VDer(u, v) }
func (f Flipped) UUDer(u, v float64) r3.Vec  { return f.Surface.UUDer(u, v) }
func (f Flipped) UVDer(u, v float64) r3.Vec  { return f.Surface.UVDer(u, v) }
func (f Flipped) VVDer(u, v float64) r3.Vec  { return f.Surface.VVDer(u, v) }
func (f Flipped) Normal(u, v float64) r3.Vec { return r3.Scale(-1, f.Surface.Normal(u, v)) }
func (f Flipped) Range() r2.Box              { return f.Surface.Range() }

func (f Flipped) SearchNearestParameter(p r3.Vec, hint *r2.Vec, trials int) (r2.Vec, bool) {
	return SearchNearestParameter(f.Surface, p, hint, trials)
}
