package nurbs

import (
	"sort"
)

// KnotVector is a non-decreasing sequence of knots.
type KnotVector []float64

// BezierKnots returns the clamped knot vector of a single Bézier span
// of the given degree over [0,1].
func BezierKnots(degree int) KnotVector {
	k := make(KnotVector, 2*degree+2)
	for i := degree + 1; i < len(k); i++ {
		k[i] = 1
	}
	return k
}

// UniformKnots returns a clamped knot vector over [0,1] for n control
// points with uniformly spaced interior knots.
func UniformKnots(degree, n int) KnotVector {
	k := make(KnotVector, n+degree+1)
	spans := n - degree
	for i := degree + 1; i < len(k); i++ {
		if i >= n {
			k[i] = 1
			continue
		}
		k[i] = float64(i-degree) / float64(spans)
	}
	return k
}

func (k KnotVector) validate(degree, n int) error {
	if degree < 1 {
		return errMsg("degree < 1")
	}
	if n < degree+1 {
		return errMsg("too few control points for degree")
	}
	if len(k) != n+degree+1 {
		return errMsg("knot count must equal control point count + degree + 1")
	}
	for i := 1; i < len(k); i++ {
		if k[i] < k[i-1] {
			return errMsg("knots not in ascending order")
		}
	}
	if k[degree] == k[n] {
		return errMsg("empty knot range")
	}
	return nil
}

// Range returns the parameter range of a spline of the given degree.
func (k KnotVector) Range(degree int) (t0, t1 float64) {
	return k[degree], k[len(k)-degree-1]
}

// Clone returns a copy of the knot vector.
func (k KnotVector) Clone() KnotVector {
	return append(KnotVector(nil), k...)
}

// Transform maps the knot vector affinely so that its range for the
// given degree becomes [t0, t1].
func (k KnotVector) Transform(degree int, t0, t1 float64) KnotVector {
	a, b := k.Range(degree)
	scale := (t1 - t0) / (b - a)
	out := make(KnotVector, len(k))
	for i, t := range k {
		out[i] = t0 + (t-a)*scale
	}
	// Pin the ends exactly.
	for i := 0; i <= degree; i++ {
		out[i] = t0
		out[len(out)-1-i] = t1
	}
	return out
}

// span returns the knot span index i such that k[i] <= t < k[i+1],
// clamped to the valid spans. Parameters outside the range land in
// the first or last span so evaluation extrapolates polynomially.
func (k KnotVector) span(degree int, t float64) int {
	n := len(k) - degree - 2
	if t >= k[n+1] {
		for n > degree && k[n] == k[n+1] {
			n--
		}
		return n
	}
	if t <= k[degree] {
		i := degree
		for i < n && k[i] == k[i+1] {
			i++
		}
		return i
	}
	i := sort.Search(len(k), func(i int) bool { return k[i] > t }) - 1
	if i < degree {
		return degree
	}
	if i > n {
		return n
	}
	return i
}

// basisDers computes the nonzero basis functions of the span and their
// derivatives up to order n. ders[k][j] is the k-th derivative of the
// basis function N_{span-degree+j}.
func (k KnotVector) basisDers(span, degree, n int, t float64) [][]float64 {
	p := degree
	ders := make([][]float64, n+1)
	for i := range ders {
		ders[i] = make([]float64, p+1)
	}
	ndu := make([][]float64, p+1)
	for i := range ndu {
		ndu[i] = make([]float64, p+1)
	}
	left := make([]float64, p+1)
	right := make([]float64, p+1)
	ndu[0][0] = 1
	for j := 1; j <= p; j++ {
		left[j] = t - k[span+1-j]
		right[j] = k[span+j] - t
		saved := 0.0
		for r := 0; r < j; r++ {
			ndu[j][r] = right[r+1] + left[j-r]
			temp := ndu[r][j-1] / ndu[j][r]
			ndu[r][j] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		ndu[j][j] = saved
	}
	for j := 0; j <= p; j++ {
		ders[0][j] = ndu[j][p]
	}
	nn := n
	if nn > p {
		nn = p
	}
	a := [2][]float64{make([]float64, p+1), make([]float64, p+1)}
	for r := 0; r <= p; r++ {
		s1, s2 := 0, 1
		a[0][0] = 1
		for kk := 1; kk <= nn; kk++ {
			d := 0.0
			rk, pk := r-kk, p-kk
			if r >= kk {
				a[s2][0] = a[s1][0] / ndu[pk+1][rk]
				d = a[s2][0] * ndu[rk][pk]
			}
			j1, j2 := 1, kk-1
			if rk < -1 {
				j1 = -rk
			}
			if r-1 > pk {
				j2 = p - r
			}
			for j := j1; j <= j2; j++ {
				a[s2][j] = (a[s1][j] - a[s1][j-1]) / ndu[pk+1][rk+j]
				d += a[s2][j] * ndu[rk+j][pk]
			}
			if r <= pk {
				a[s2][kk] = -a[s1][kk-1] / ndu[pk+1][r]
				d += a[s2][kk] * ndu[r][pk]
			}
			ders[kk][r] = d
			s1, s2 = s2, s1
		}
	}
	r := float64(p)
	for kk := 1; kk <= nn; kk++ {
		for j := 0; j <= p; j++ {
			ders[kk][j] *= r
		}
		r *= float64(p - kk)
	}
	return ders
}

// concat joins the knot vectors of two clamped splines of equal degree
// end to end with a C0 joint, shifting b so its range starts where a ends.
func concatKnots(a, b KnotVector, degree int) KnotVector {
	_, a1 := a.Range(degree)
	b0, _ := b.Range(degree)
	out := append(KnotVector(nil), a[:len(a)-1]...)
	for _, t := range b[degree+1:] {
		out = append(out, t-b0+a1)
	}
	return out
}
