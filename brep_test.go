package brep

import (
	"math"
	"sync"
	"testing"

	"github.com/soypat/brep/internal/d3"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// bumpy is a surface without a closed-form nearest search.
type bumpy struct{}

func (bumpy) Subs(u, v float64) r3.Vec {
	return r3.Vec{X: u, Y: v, Z: 0.2 * math.Sin(u) * math.Cos(v)}
}
func (bumpy) UDer(u, v float64) r3.Vec  { return r3.Vec{X: 1, Z: 0.2 * math.Cos(u) * math.Cos(v)} }
func (bumpy) VDer(u, v float64) r3.Vec  { return r3.Vec{Y: 1, Z: -0.2 * math.Sin(u) * math.Sin(v)} }
func (bumpy) UUDer(u, v float64) r3.Vec { return r3.Vec{Z: -0.2 * math.Sin(u) * math.Cos(v)} }
func (bumpy) UVDer(u, v float64) r3.Vec { return r3.Vec{Z: -0.2 * math.Cos(u) * math.Sin(v)} }
func (bumpy) VVDer(u, v float64) r3.Vec { return r3.Vec{Z: -0.2 * math.Sin(u) * math.Cos(v)} }
func (b bumpy) Normal(u, v float64) r3.Vec {
	return r3.Unit(r3.Cross(b.UDer(u, v), b.VDer(u, v)))
}
func (bumpy) Range() r2.Box { return r2.Box{Min: r2.Vec{X: -2, Y: -2}, Max: r2.Vec{X: 2, Y: 2}} }

func TestSearchNearestParameter(t *testing.T) {
	var s bumpy
	for _, uv := range []r2.Vec{{X: 0.3, Y: -0.4}, {X: -1.2, Y: 1.1}, {X: 1.5, Y: 0}} {
		on := SubsUV(s, uv)
		p := r3.Add(on, r3.Scale(0.05, NormalUV(s, uv)))
		got, ok := SearchNearestParameter(s, p, nil, 50)
		if !ok {
			t.Fatalf("search for %v did not converge", uv)
		}
		if math.Hypot(got.X-uv.X, got.Y-uv.Y) > 1e-8 {
			t.Errorf("got %v, want %v", got, uv)
		}
		if _, ok := SearchParameter(s, on, &uv, 50); !ok {
			t.Errorf("exact search failed for %v", uv)
		}
		if _, ok := SearchParameter(s, p, nil, 50); ok {
			t.Errorf("exact search accepted point off surface")
		}
	}
}

func TestPrimitiveNearest(t *testing.T) {
	surfaces := []Surface{
		NewPlane(r3.Vec{Z: 1}, r3.Vec{X: 1, Z: 1}, r3.Vec{Y: 2, Z: 1}),
		Sphere{Center: r3.Vec{X: 1}, Radius: 2},
		Cylinder{Origin: r3.Vec{Y: 1}, Axis: r3.Vec{Z: 1}, Ref: r3.Vec{X: 1}, Radius: 0.5},
		Flip(Sphere{Radius: 1}),
	}
	uv := r2.Vec{X: 0.7, Y: 0.3}
	for i, s := range surfaces {
		on := SubsUV(s, uv)
		got, ok := SearchParameter(s, on, nil, 10)
		if !ok || math.Hypot(got.X-uv.X, got.Y-uv.Y) > 1e-9 {
			t.Errorf("surface %d: got %v, want %v", i, got, uv)
		}
		n := NormalUV(s, uv)
		if math.Abs(r3.Dot(n, s.UDer(uv.X, uv.Y))) > 1e-12 || math.Abs(r3.Norm(n)-1) > 1e-12 {
			t.Errorf("surface %d: bad normal %v", i, n)
		}
	}
	if n := NormalUV(Flip(Sphere{Radius: 1}), uv); r3.Dot(n, SubsUV(Sphere{Radius: 1}, uv)) > 0 {
		t.Error("flipped sphere normal should point inward")
	}
	if _, ok := Flip(Flip(Sphere{})).(Sphere); !ok {
		t.Error("double flip should unwrap")
	}
}

func TestSphereLongitudeWrap(t *testing.T) {
	s := Sphere{Radius: 1}
	p := s.Subs(0.1, 0)
	hint := r2.Vec{X: 2*math.Pi - 0.1}
	got, ok := s.SearchNearestParameter(p, &hint, 0)
	if !ok || math.Abs(got.X-(2*math.Pi+0.1)) > 1e-12 {
		t.Errorf("want longitude wrapped next to hint, got %v", got)
	}
}

func TestPeriodicRanges(t *testing.T) {
	want := r2.Box{Min: r2.Vec{Y: -math.Pi / 2}, Max: r2.Vec{X: 2 * math.Pi, Y: math.Pi / 2}}
	if got := (Sphere{Radius: 1}).Range(); got != want {
		t.Errorf("sphere range %v, want %v", got, want)
	}
	c := Cylinder{Axis: r3.Vec{Z: 1}, Ref: r3.Vec{X: 1}, Radius: 2}
	if got := c.Range(); got.Max.X != 2*math.Pi {
		t.Errorf("cylinder longitude ends at %v", got.Max.X)
	}
	// The north pole has an arbitrary longitude.
	uv, ok := (Sphere{Radius: 1}).SearchNearestParameter(r3.Vec{Z: 1}, nil, 0)
	if !ok || uv.Y != math.Pi/2 {
		t.Errorf("pole at %v, want latitude π/2", uv)
	}
	if got := wrapAngle(-0.5, 3*math.Pi); math.Abs(got-(4*math.Pi-0.5)) > 1e-12 {
		t.Errorf("wrapAngle(-0.5, 3π) = %v", got)
	}
}

func TestCurveSearches(t *testing.T) {
	arc := Arc{Axis: r3.Vec{Z: 1}, Ref: r3.Vec{X: 1}, Radius: 2, T0: 0, T1: math.Pi}
	if got, _ := SearchNearestCurveParameter(arc, r3.Vec{X: -3, Y: 3}, nil, 10); math.Abs(got-3*math.Pi/4) > 1e-12 {
		t.Errorf("arc nearest %g", got)
	}
	// A line crossing the arc at angle π/3.
	cross := arc.Subs(math.Pi / 3)
	line := Line{P0: r3.Vec{}, P1: r3.Scale(1.5, cross)}
	s, u, ok := SearchClosestParameters(arc, line, 1, 0.5, 50)
	if !ok {
		t.Fatal("closest parameters did not converge")
	}
	if math.Abs(s-math.Pi/3) > 1e-9 || math.Abs(u-1/1.5) > 1e-9 {
		t.Errorf("got s=%g t=%g", s, u)
	}
	// A diagonal ray leaving a cylinder.
	cyl := Cylinder{Axis: r3.Vec{Z: 1}, Ref: r3.Vec{X: 1}, Radius: 2}
	ray := Line{P0: r3.Vec{Z: 0.5}, P1: r3.Vec{X: 4, Y: 4, Z: 1.5}}
	tc, uv, ok := SearchCurveCrossing(ray, cyl, 0.5, r2.Vec{X: 1, Y: 0.5}, 50)
	if !ok {
		t.Fatal("curve crossing did not converge")
	}
	want := 1 / (2 * math.Sqrt2)
	if math.Abs(tc-want) > 1e-9 || math.Abs(uv.X-math.Pi/4) > 1e-9 || math.Abs(uv.Y-0.5-want) > 1e-9 {
		t.Errorf("crossing at t=%g uv=%v", tc, uv)
	}
	// Generic curves go through Gauss-Newton.
	tr := Trim(Polyline{{}, {X: 1}, {X: 1, Y: 1}}, 0, 2)
	got, ok := SearchNearestCurveParameter(tr, r3.Vec{X: 1.2, Y: 0.4}, nil, 20)
	if !ok || math.Abs(got-1.4) > 1e-9 {
		t.Errorf("polyline nearest %g", got)
	}
}

func TestReverseTrim(t *testing.T) {
	l := Line{P0: r3.Vec{X: 1}, P1: r3.Vec{X: 3}}
	r := Reverse(l)
	if !d3.EqualWithin(Front(r), l.P1, 0) || !d3.EqualWithin(Back(r), l.P0, 0) {
		t.Error("reverse ends")
	}
	if _, ok := Reverse(r).(Line); !ok {
		t.Error("double reverse should unwrap")
	}
	tr := Trim(Trim(l, 0.1, 0.9), 0.2, 0.5)
	if _, ok := tr.Curve.(Line); !ok {
		t.Error("nested trim should collapse")
	}
	if math.Abs(Length(tr, 4)-0.6) > 1e-12 {
		t.Errorf("length %g", Length(tr, 4))
	}
}

func TestSampler(t *testing.T) {
	var s bumpy
	smp := NewSampler(s, 20, 20)
	want := r2.Vec{X: -0.9, Y: 1.3}
	p := SubsUV(s, want)
	hint := smp.Hint(p)
	if math.Abs(hint.X-want.X) > 0.2 || math.Abs(hint.Y-want.Y) > 0.2 {
		t.Errorf("hint %v far from %v", hint, want)
	}
	got, ok := smp.SearchNearestParameter(p, 20)
	if !ok || math.Hypot(got.X-want.X, got.Y-want.Y) > 1e-8 {
		t.Errorf("sampler search got %v", got)
	}
	// Unbounded surfaces sample a window around the origin.
	pl := Plane{U: r3.Vec{X: 1}, V: r3.Vec{Y: 1}}
	if h := NewSampler(pl, 4, 4).Hint(r3.Vec{X: 0.4, Y: -0.6}); h != (r2.Vec{X: 0.5, Y: -0.5}) {
		t.Errorf("plane hint %v", h)
	}
}

func TestGuardConcurrent(t *testing.T) {
	g := Guard(bumpy{})
	if Guard(g) != g {
		t.Error("guarding twice should return the same handle")
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uv := r2.Vec{X: float64(i) / 8, Y: -float64(i) / 8}
			if _, ok := SearchParameter(g, SubsUV(g, uv), nil, 50); !ok {
				t.Errorf("guarded search %d failed", i)
			}
		}(i)
	}
	wg.Wait()
	// Closed-form searches pass through the lock.
	sg := Guard(Sphere{Radius: 1})
	if _, ok := SearchParameter(sg, r3.Vec{X: 1}, nil, 1); !ok {
		t.Error("guarded sphere search failed")
	}
}
