package fillet

import (
	"fmt"
	"math"
	"sort"

	"github.com/soypat/brep"
	"github.com/soypat/brep/internal/d2"
	"github.com/soypat/brep/internal/d3"
	"github.com/soypat/brep/intersect"
	"github.com/soypat/brep/topo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// seamSegments is the number of chord segments refined into a cap or
	// mitre seam curve.
	seamSegments = 8
	// smoothAngle is the sine below which the opposite faces of two runs
	// are considered tangent at their shared vertex.
	smoothAngle = 1e-6
	// lengthDivision is the subdivision used to estimate edge lengths.
	lengthDivision = 16
)

// run is a part of a chain whose edges share the opposite face and radius.
// Each run gets one blend.
type run struct {
	uses  []topo.OrientedEdge // in the owning face, traversal order
	other topo.FaceID
	req   int // request index of the first edge
	// lo and hi delimit the run as a fraction of the chain length.
	lo, hi float64

	blend        *Blend
	flipped      bool
	uStart, uEnd float64
	start, end   *runEnd
}

// runEnd is where a blend is cut off: by a cap, a section or a mitre seam.
// path runs from x on the owning face to z on the opposite face. Caps
// crossing several faces have one edge per face.
type runEnd struct {
	u0, u1 float64 // contact parameters of x and z
	x, z   topo.VertexID
	path   []topo.OrientedEdge
}

// trim shortens an edge to [t0,t1] between new vertices.
type trim struct {
	t0, t1     float64
	v0, v1     topo.VertexID
	cut0, cut1 bool
}

// insertion puts oe between the adjacent edges from and to of a face
// wire. oe runs from the end it shares with from.
type insertion struct {
	face     topo.FaceID
	from, to topo.EdgeID
	oe       topo.OrientedEdge
}

// fanStep is a face around a vertex with its two edges meeting there.
type fanStep struct {
	face     topo.FaceID
	from, to topo.OrientedEdge
}

type faceEdge struct {
	face topo.FaceID
	edge topo.EdgeID
}

// builder constructs the blends of one chain and splices them into shell.
// Geometry is computed first. Faces are edited on copies that are
// written back once every new edge exists.
type builder struct {
	shell *topo.Shell
	opts  Options
	log   *zap.Logger

	faces   map[topo.FaceID]*topo.Face
	trims   map[topo.EdgeID]*trim
	replace map[faceEdge][]topo.OrientedEdge
	inserts []insertion
	// trimmed maps edges replaced by shortened copies to the copies.
	trimmed map[topo.EdgeID]topo.EdgeID
}

func newBuilder(shell *topo.Shell, opts Options, log *zap.Logger) *builder {
	return &builder{
		shell:   shell,
		opts:    opts,
		log:     log,
		faces:   make(map[topo.FaceID]*topo.Face),
		trims:   make(map[topo.EdgeID]*trim),
		replace: make(map[faceEdge][]topo.OrientedEdge),
		trimmed: make(map[topo.EdgeID]topo.EdgeID),
	}
}

func constructionErr(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConstruction)
}

// construct fillets the chain. req holds the request index of each chain
// edge. A chain of one edge is capped at both ends. Longer chains are
// split into runs joined by sections where the opposite faces are tangent
// and by mitre seams elsewhere.
func (b *builder) construct(chain Chain, req []int) error {
	fid := chain.Face
	face := b.shell.Face(fid)
	wi, _, ok := face.Find(chain.Edges[0])
	if !ok {
		return constructionErr("edge %d not on face %d", chain.Edges[0], fid)
	}
	wire := face.Boundaries[wi]
	pos := make([]int, len(chain.Edges))
	for i, e := range chain.Edges {
		pos[i] = indexOf(wire, e)
		if pos[i] < 0 {
			return constructionErr("edge %d not on face %d", e, fid)
		}
		if i > 0 && pos[i] != (pos[i-1]+1)%len(wire) {
			return constructionErr("chain on face %d is not contiguous", fid)
		}
	}
	runs, err := b.splitRuns(chain, req, wire, pos)
	if err != nil {
		return err
	}
	for _, rn := range runs {
		if err := b.march(face, rn); err != nil {
			return err
		}
	}

	for k := range runs {
		if !chain.Cyclic && k == len(runs)-1 {
			break
		}
		if err := b.joint(runs[k], runs[(k+1)%len(runs)]); err != nil {
			return err
		}
	}
	if !chain.Cyclic {
		first, last := runs[0], runs[len(runs)-1]
		if err := b.capEnd(fid, wire, pos[0], first, false); err != nil {
			return err
		}
		if err := b.capEnd(fid, wire, pos[len(pos)-1], last, true); err != nil {
			return err
		}
	}

	if err := b.applyTrims(); err != nil {
		return err
	}
	var blendFaces []topo.Face
	for _, rn := range runs {
		f, err := b.blendFace(fid, rn)
		if err != nil {
			return err
		}
		blendFaces = append(blendFaces, f)
	}
	if err := b.commit(); err != nil {
		return err
	}
	for _, f := range blendFaces {
		if _, err := b.shell.AddFace(f); err != nil {
			return constructionErr("blend face: %v", err)
		}
	}
	if err := b.shell.Validate(); err != nil {
		return constructionErr("spliced shell: %v", err)
	}
	return nil
}

// splitRuns orders the chain and splits it where the opposite face or the
// per-edge radius changes. Cyclic chains are rotated to start at such a
// change so no run wraps around.
func (b *builder) splitRuns(chain Chain, req []int, wire topo.Wire, pos []int) ([]*run, error) {
	n := len(chain.Edges)
	others := make([]topo.FaceID, n)
	for i, e := range chain.Edges {
		var found []topo.FaceID
		for _, f := range b.shell.FacesOfEdge(e) {
			if f != chain.Face {
				found = append(found, f)
			}
		}
		if len(found) != 1 {
			return nil, constructionErr("edge %d has %d opposite faces", e, len(found))
		}
		others[i] = found[0]
	}
	same := func(i, j int) bool {
		return others[i] == others[j] && b.opts.Radius.at(req[i], 0) == b.opts.Radius.at(req[j], 0)
	}
	order := make([]int, n)
	rot := 0
	if chain.Cyclic {
		for i := 0; i < n; i++ {
			if !same(i, (i+n-1)%n) {
				rot = i
				break
			}
		}
	}
	for i := range order {
		order[i] = (rot + i) % n
	}

	lengths := make([]float64, n+1)
	for k, i := range order {
		lengths[k+1] = lengths[k] + brep.Length(b.shell.Curve(wire[pos[i]]), lengthDivision)
	}
	total := lengths[n]
	var runs []*run
	for k, i := range order {
		oe := wire[pos[i]]
		if len(runs) > 0 && same(order[k-1], i) {
			rn := runs[len(runs)-1]
			rn.uses = append(rn.uses, oe)
			rn.hi = lengths[k+1] / total
			continue
		}
		runs = append(runs, &run{
			uses:  []topo.OrientedEdge{oe},
			other: others[i],
			req:   req[i],
			lo:    lengths[k] / total,
			hi:    lengths[k+1] / total,
		})
	}
	return runs, nil
}

// march samples relay spheres along the run and builds its blend.
func (b *builder) march(face topo.Face, rn *run) error {
	other := b.shell.Face(rn.other)
	guide := make(path, len(rn.uses))
	for i, oe := range rn.uses {
		guide[i] = b.shell.Curve(oe)
	}
	s0, s1 := face.OrientedSurface(), other.OrientedSurface()
	mid := float64(len(guide)) / 2
	p, tangent := guide.Subs(mid), guide.Der(mid)
	uv0, ok0 := brep.SearchNearestParameter(s0, p, nil, nearestTrials)
	uv1, ok1 := brep.SearchNearestParameter(s1, p, nil, nearestTrials)
	if !ok0 || !ok1 {
		return constructionErr("edge %d not on its faces", rn.uses[0].Edge)
	}
	convex := r3.Dot(r3.Cross(brep.NormalUV(s0, uv0), brep.NormalUV(s1, uv1)), tangent) > 0
	if !convex {
		s0, s1 = brep.Flip(s0), brep.Flip(s1)
	}
	if b.opts.Workers > 1 {
		s0, s1 = brep.Guard(s0), brep.Guard(s1)
	}
	radius := func(s float64) float64 {
		return b.opts.Radius.at(rn.req, brep.Mix(rn.lo, rn.hi, s))
	}
	m := Marcher{Division: b.opts.Division * len(guide), Extend: true, Workers: b.opts.Workers}
	// Caps and mitres cut the blend up to about a radius past the run ends.
	if speed := math.Min(r3.Norm(guide.Der(0)), r3.Norm(guide.Der(float64(len(guide))))); speed > 0 {
		m.Overshoot = b.opts.Radius.max(rn.req) / speed
	}
	spheres, err := m.March(s0, s1, guide, radius)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConstruction, err)
	}
	for i, sp := range spheres {
		if !sp.Converged {
			return constructionErr("relay sphere %d at %v did not converge", i, sp.Center)
		}
	}
	blend, err := BuildBlend(s0, s1, spheres, b.opts.Profile)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConstruction, err)
	}
	rn.blend = blend
	rn.uStart = blend.SampleU(1)
	rn.uEnd = blend.SampleU(len(spheres) - 2)

	// The blend face's outward normal points away from the sphere centers
	// of convex edges and toward them for concave ones.
	i := len(spheres) / 2
	sp := spheres[i]
	out := r3.Sub(sp.Transit, sp.Center)
	if !convex {
		out = r3.Scale(-1, out)
	}
	rn.flipped = r3.Dot(blend.Surface.Normal(blend.SampleU(i), 0.5), out) < 0
	b.log.Debug("marched run",
		zap.Int("face", int(rn.other)),
		zap.Int("edges", len(rn.uses)),
		zap.Int("samples", len(spheres)),
		zap.Bool("convex", convex),
	)
	return nil
}

// joint closes run ra and opens run rb at their shared vertex.
func (b *builder) joint(ra, rb *run) error {
	last, first := ra.uses[len(ra.uses)-1], rb.uses[0]
	v := b.shell.End(last)
	vp := b.shell.Vertex(v)
	ga, gb := b.shell.Face(ra.other), b.shell.Face(rb.other)
	smooth := ra.other == rb.other
	if !smooth {
		na, oka := faceNormal(ga, vp)
		nb, okb := faceNormal(gb, vp)
		if !oka || !okb {
			return constructionErr("vertex %d not on faces %d and %d", v, ra.other, rb.other)
		}
		smooth = r3.Norm(r3.Cross(na, nb)) < smoothAngle
	}
	var c topo.EdgeID = -1
	if ra.other != rb.other {
		var err error
		c, err = b.jointEdge(ga, last, gb, first)
		if err != nil {
			return err
		}
	}
	if smooth {
		return b.sectionJoint(ra, rb, v, c)
	}
	return b.mitreJoint(ra, rb, v, c)
}

// sectionJoint joins two runs along the blend cross-section at the vertex.
func (b *builder) sectionJoint(ra, rb *run, v topo.VertexID, c topo.EdgeID) error {
	sa, sb := ra.blend.Samples[len(ra.blend.Samples)-2], rb.blend.Samples[1]
	if math.Abs(sa.Radius-sb.Radius) > brep.Tolerance {
		return constructionErr("radius changes from %g to %g across tangent joint at vertex %d", sa.Radius, sb.Radius, v)
	}
	sec := ra.blend.Section(ra.uEnd)
	x, z := brep.Front(sec), brep.Back(sec)
	if !d3.Near(rb.blend.Contact0.Subs(rb.uStart), x, topo.Tolerance) ||
		!d3.Near(rb.blend.Contact1.Subs(rb.uStart), z, topo.Tolerance) {
		return constructionErr("blends disagree at vertex %d", v)
	}
	xv, zv := b.shell.AddVertex(x), b.shell.AddVertex(z)
	e, err := b.shell.AddEdge(xv, zv, sec)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConstruction, err)
	}
	path := []topo.OrientedEdge{{Edge: e}}
	ra.end = &runEnd{u0: ra.uEnd, u1: ra.uEnd, x: xv, z: zv, path: path}
	rb.start = &runEnd{u0: rb.uStart, u1: rb.uStart, x: xv, z: zv, path: path}
	if c < 0 {
		return nil
	}
	cc := b.shell.Edge(c).Curve
	tc, ok := brep.SearchNearestCurveParameter(cc, z, nil, nearestTrials)
	if !ok || !d3.Near(cc.Subs(tc), z, topo.Tolerance) {
		return constructionErr("section does not end on edge %d", c)
	}
	return b.trimAt(c, v, tc, zv)
}

// mitreJoint joins two runs along the intersection of their blends.
func (b *builder) mitreJoint(ra, rb *run, v topo.VertexID, c topo.EdgeID) error {
	if c < 0 {
		return constructionErr("no edge to mitre at vertex %d", v)
	}
	cc := b.shell.Edge(c).Curve
	vp := b.shell.Vertex(v)
	ua0, ub0, ok := brep.SearchClosestParameters(ra.blend.Contact0, rb.blend.Contact0, ra.uEnd, rb.uStart, MarchTrials)
	x := ra.blend.Contact0.Subs(ua0)
	if !ok || !d3.Near(x, rb.blend.Contact0.Subs(ub0), topo.Tolerance) {
		return constructionErr("contact curves do not cross at vertex %d", v)
	}
	th := edgeHint(cc, vp)
	ua1, tc, za, err := crossing(ra.blend.Contact1, ra.uEnd, cc, th)
	if err != nil {
		return err
	}
	ub1, _, zb, err := crossing(rb.blend.Contact1, rb.uStart, cc, th)
	if err != nil {
		return err
	}
	if !d3.Near(za, zb, topo.Tolerance) {
		return constructionErr("blends meet edge %d at %v and %v", c, za, zb)
	}
	seam, err := intersect.NewWithHints(ra.blend.Surface, rb.blend.Surface, chord(x, za),
		hintLine(r2.Vec{X: ua0}, r2.Vec{X: ua1, Y: 1}),
		hintLine(r2.Vec{X: ub0}, r2.Vec{X: ub1, Y: 1}), topo.Tolerance)
	if err != nil {
		return fmt.Errorf("mitre at vertex %d: %w: %w", v, ErrConstruction, err)
	}
	xv, zv := b.shell.AddVertex(x), b.shell.AddVertex(za)
	e, err := b.shell.AddEdge(xv, zv, seam)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConstruction, err)
	}
	path := []topo.OrientedEdge{{Edge: e}}
	ra.end = &runEnd{u0: ua0, u1: ua1, x: xv, z: zv, path: path}
	rb.start = &runEnd{u0: ub0, u1: ub1, x: xv, z: zv, path: path}
	return b.trimAt(c, v, tc, zv)
}

// jointEdge returns the edge at the vertex between two runs that lies on
// both opposite faces: the edge preceding last reversed in ga, which must
// follow first reversed in gb.
func (b *builder) jointEdge(ga topo.Face, last topo.OrientedEdge, gb topo.Face, first topo.OrientedEdge) (topo.EdgeID, error) {
	ca, okA := neighbor(ga, last.Edge, -1)
	cb, okB := neighbor(gb, first.Edge, +1)
	if !okA || !okB || ca.Edge != cb.Edge {
		return -1, constructionErr("vertex after edge %d does not join exactly three edges", last.Edge)
	}
	return ca.Edge, nil
}

// capEnd closes the open start (or end) of a chain. The blend is cut by
// every face around the chain's end vertex between the edges that follow
// the chain on both faces, or along its cross-section when those edges
// are free boundaries.
func (b *builder) capEnd(fid topo.FaceID, wire topo.Wire, pos int, rn *run, atEnd bool) error {
	oe, u := rn.uses[0], rn.uStart
	v := b.shell.Start(oe)
	nbF := wire[(pos+len(wire)-1)%len(wire)]
	dir := +1
	if atEnd {
		oe, u = rn.uses[len(rn.uses)-1], rn.uEnd
		v = b.shell.End(oe)
		nbF = wire[(pos+1)%len(wire)]
		dir = -1
	}
	nbG, ok := neighbor(b.shell.Face(rn.other), oe.Edge, dir)
	if !ok {
		return constructionErr("edge %d not on face %d", oe.Edge, rn.other)
	}
	vp := b.shell.Vertex(v)
	cf, cg := b.shell.Edge(nbF.Edge).Curve, b.shell.Edge(nbG.Edge).Curve
	u0, tf, p0, err := crossing(rn.blend.Contact0, u, cf, edgeHint(cf, vp))
	if err != nil {
		return err
	}
	u1, tg, p1, err := crossing(rn.blend.Contact1, u, cg, edgeHint(cg, vp))
	if err != nil {
		return err
	}

	var end *runEnd
	if len(b.shell.FacesOfEdge(nbF.Edge)) == 1 && len(b.shell.FacesOfEdge(nbG.Edge)) == 1 {
		end, err = b.sectionCap(rn, v, u0, p0, p1)
	} else {
		end, err = b.fanCap(fid, rn, v, nbF.Edge, nbG.Edge, r2.Vec{X: u0}, r2.Vec{X: u1, Y: 1}, p0, p1)
	}
	if err != nil {
		return err
	}
	if atEnd {
		rn.end = end
	} else {
		rn.start = end
	}
	if err := b.trimAt(nbF.Edge, v, tf, end.x); err != nil {
		return err
	}
	return b.trimAt(nbG.Edge, v, tg, end.z)
}

// sectionCap ends the blend along its cross-section at u0, which must
// reach p1.
func (b *builder) sectionCap(rn *run, v topo.VertexID, u0 float64, p0, p1 r3.Vec) (*runEnd, error) {
	sec := rn.blend.Section(u0)
	if !d3.Near(brep.Back(sec), p1, topo.Tolerance) {
		return nil, constructionErr("free boundary at vertex %d is not a blend section", v)
	}
	xv, zv := b.shell.AddVertex(p0), b.shell.AddVertex(p1)
	e, err := b.shell.AddEdge(xv, zv, sec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConstruction, err)
	}
	return &runEnd{u0: u0, u1: u0, x: xv, z: zv, path: []topo.OrientedEdge{{Edge: e}}}, nil
}

// fanCap cuts the blend by each face around v from edge nbF to edge nbG.
// Consecutive faces share an edge, which is cut where it pierces the
// blend. h0 and h1 are the blend parameters of p0 and p1.
func (b *builder) fanCap(fid topo.FaceID, rn *run, v topo.VertexID, nbF, nbG topo.EdgeID, h0, h1 r2.Vec, p0, p1 r3.Vec) (*runEnd, error) {
	steps, err := b.fan(v, fid, rn.other, nbF, nbG)
	if err != nil {
		return nil, err
	}
	vp := b.shell.Vertex(v)
	n := len(steps)
	pts := make([]r3.Vec, n+1)
	hints := make([]r2.Vec, n+1)
	ts := make([]float64, n+1)
	pts[0], pts[n] = p0, p1
	hints[0], hints[n] = h0, h1
	for k := 1; k < n; k++ {
		e := steps[k].from.Edge
		c := b.shell.Edge(e).Curve
		t, uv, ok := brep.SearchCurveCrossing(c, rn.blend.Surface, edgeHint(c, vp), d2.Lerp(h0, h1, float64(k)/float64(n)), MarchTrials)
		if !ok {
			return nil, constructionErr("edge %d does not pierce the blend near vertex %d", e, v)
		}
		pts[k], hints[k], ts[k] = c.Subs(t), uv, t
	}
	verts := make([]topo.VertexID, n+1)
	for k, p := range pts {
		verts[k] = b.shell.AddVertex(p)
	}
	end := &runEnd{u0: h0.X, u1: h1.X, x: verts[0], z: verts[n]}
	for k, st := range steps {
		sf := b.shell.Face(st.face)
		piece, err := intersect.NewWithHints(rn.blend.Surface, sf.Surface, chord(pts[k], pts[k+1]),
			hintLine(hints[k], hints[k+1]), nil, topo.Tolerance)
		if err != nil {
			return nil, fmt.Errorf("cap at vertex %d on face %d: %w: %w", v, st.face, ErrConstruction, err)
		}
		e, err := b.shell.AddEdge(verts[k], verts[k+1], piece)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConstruction, err)
		}
		oe := topo.OrientedEdge{Edge: e}
		end.path = append(end.path, oe)
		b.inserts = append(b.inserts, insertion{face: st.face, from: st.from.Edge, to: st.to.Edge, oe: oe})
		if k == 0 {
			continue
		}
		if err := b.trimAt(st.from.Edge, v, ts[k], verts[k]); err != nil {
			return nil, err
		}
	}
	b.log.Debug("capped chain end", zap.Int("vertex", int(v)), zap.Int("faces", n))
	return end, nil
}

// fan walks the faces around v, starting across edge first from face f
// and stopping at the face holding edge last. The walk may not reach f or g.
func (b *builder) fan(v topo.VertexID, f, g topo.FaceID, first, last topo.EdgeID) ([]fanStep, error) {
	var steps []fanStep
	prev, e := f, first
	for len(steps) < b.shell.NumFaces() {
		next := topo.FaceID(-1)
		for _, id := range b.shell.FacesOfEdge(e) {
			if id != prev {
				next = id
				break
			}
		}
		if next < 0 || next == f || next == g {
			return nil, constructionErr("faces around vertex %d do not close", v)
		}
		face := b.shell.Face(next)
		wi, i, _ := face.Find(e)
		w := face.Boundaries[wi]
		st := fanStep{face: next, from: w[i]}
		if b.shell.End(st.from) == v {
			st.to = w[(i+1)%len(w)]
		} else {
			st.to = w[(i+len(w)-1)%len(w)]
		}
		steps = append(steps, st)
		if st.to.Edge == last {
			return steps, nil
		}
		prev, e = next, st.to.Edge
	}
	return nil, constructionErr("faces around vertex %d do not close", v)
}

// blendFace creates the contact edges of a run, records their
// substitution for the run's edges and returns the blend face.
func (b *builder) blendFace(fid topo.FaceID, rn *run) (topo.Face, error) {
	s, e := rn.start, rn.end
	if s == nil || e == nil {
		return topo.Face{}, constructionErr("run on face %d left open", rn.other)
	}
	if s.u0 >= e.u0 || s.u1 >= e.u1 {
		return topo.Face{}, constructionErr("blend on face %d trimmed away", rn.other)
	}
	c0, err := b.shell.AddEdge(s.x, e.x, brep.Trim(rn.blend.Contact0, s.u0, e.u0))
	if err != nil {
		return topo.Face{}, fmt.Errorf("%w: %w", ErrConstruction, err)
	}
	c1, err := b.shell.AddEdge(s.z, e.z, brep.Trim(rn.blend.Contact1, s.u1, e.u1))
	if err != nil {
		return topo.Face{}, fmt.Errorf("%w: %w", ErrConstruction, err)
	}
	for i, oe := range rn.uses {
		var onF, onG []topo.OrientedEdge
		if i == 0 {
			onF = []topo.OrientedEdge{{Edge: c0}}
			onG = []topo.OrientedEdge{{Edge: c1, Reversed: true}}
		}
		b.replace[faceEdge{fid, oe.Edge}] = onF
		b.replace[faceEdge{rn.other, oe.Edge}] = onG
	}
	wire := topo.Wire{{Edge: c1}}
	for i := len(e.path) - 1; i >= 0; i-- {
		wire = append(wire, e.path[i].Inverse())
	}
	wire = append(wire, topo.OrientedEdge{Edge: c0, Reversed: true})
	wire = append(wire, s.path...)
	return topo.Face{
		Boundaries: []topo.Wire{wire},
		Surface:    rn.blend.Surface,
		Flipped: rn.flipped,
	}, nil
}

// trimAt cuts edge e at parameter t, replacing its end at vertex at by v.
func (b *builder) trimAt(e topo.EdgeID, at topo.VertexID, t float64, v topo.VertexID) error {
	edge := b.shell.Edge(e)
	tr := b.trims[e]
	if tr == nil {
		t0, t1 := edge.Curve.Range()
		tr = &trim{t0: t0, t1: t1, v0: edge.V0, v1: edge.V1}
		b.trims[e] = tr
	}
	switch {
	case edge.V0 == edge.V1:
		return constructionErr("cannot trim closed edge %d", e)
	case at == edge.V0 && !tr.cut0:
		tr.t0, tr.v0, tr.cut0 = t, v, true
	case at == edge.V1 && !tr.cut1:
		tr.t1, tr.v1, tr.cut1 = t, v, true
	default:
		return constructionErr("edge %d trimmed twice at vertex %d", e, at)
	}
	return nil
}

// applyTrims replaces every trimmed edge by its shortened copy in all faces.
func (b *builder) applyTrims() error {
	ids := make([]topo.EdgeID, 0, len(b.trims))
	for e := range b.trims {
		ids = append(ids, e)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, e := range ids {
		tr := b.trims[e]
		if tr.t0 >= tr.t1 {
			return constructionErr("edge %d trimmed away", e)
		}
		ne, err := b.shell.AddEdge(tr.v0, tr.v1, brep.Trim(b.shell.Edge(e).Curve, tr.t0, tr.t1))
		if err != nil {
			return fmt.Errorf("trim edge %d: %w: %w", e, ErrConstruction, err)
		}
		b.trimmed[e] = ne
		for id := 0; id < b.shell.NumFaces(); id++ {
			f := b.face(topo.FaceID(id), e)
			if f == nil {
				continue
			}
			for _, w := range f.Boundaries {
				for k := range w {
					if w[k].Edge == e {
						w[k].Edge = ne
					}
				}
			}
		}
	}
	return nil
}

// face returns the working copy of face id, loading it if it uses e.
func (b *builder) face(id topo.FaceID, e topo.EdgeID) *topo.Face {
	f, ok := b.faces[id]
	if !ok {
		cp := b.shell.Face(id)
		if _, _, found := cp.Find(e); !found {
			return nil
		}
		f = &cp
		b.faces[id] = f
	}
	return f
}

func (b *builder) current(e topo.EdgeID) topo.EdgeID {
	if ne, ok := b.trimmed[e]; ok {
		return ne
	}
	return e
}

// commit applies edge replacements and cap insertions to the working
// faces and writes them back in ascending id order.
func (b *builder) commit() error {
	for key := range b.replace {
		b.face(key.face, key.edge)
	}
	for id, f := range b.faces {
		for i, w := range f.Boundaries {
			var out topo.Wire
			for _, oe := range w {
				if r, ok := b.replace[faceEdge{id, oe.Edge}]; ok {
					out = append(out, r...)
					continue
				}
				out = append(out, oe)
			}
			f.Boundaries[i] = out
		}
	}
	for _, ins := range b.inserts {
		from, to := b.current(ins.from), b.current(ins.to)
		f := b.face(ins.face, from)
		if f == nil || !insertBetween(f, from, to, ins.oe) {
			return constructionErr("edges %d and %d not adjacent on face %d", from, to, ins.face)
		}
	}
	ids := make([]topo.FaceID, 0, len(b.faces))
	for id := range b.faces {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := b.shell.ReplaceFace(id, *b.faces[id]); err != nil {
			return fmt.Errorf("%w: %w", ErrConstruction, err)
		}
	}
	return nil
}

// insertBetween puts oe between the adjacent edges from and to of f. oe is
// reversed when the wire runs from to to from.
func insertBetween(f *topo.Face, from, to topo.EdgeID, oe topo.OrientedEdge) bool {
	for i, w := range f.Boundaries {
		for k := range w {
			next := w[(k+1)%len(w)].Edge
			use := oe
			switch {
			case w[k].Edge == from && next == to:
			case w[k].Edge == to && next == from:
				use = oe.Inverse()
			default:
				continue
			}
			out := make(topo.Wire, 0, len(w)+1)
			out = append(out, w[:k+1]...)
			out = append(out, use)
			out = append(out, w[k+1:]...)
			f.Boundaries[i] = out
			return true
		}
	}
	return false
}

func indexOf(w topo.Wire, e topo.EdgeID) int {
	for i, oe := range w {
		if oe.Edge == e {
			return i
		}
	}
	return -1
}

// neighbor returns the oriented edge dir steps after e in the face's wire.
func neighbor(f topo.Face, e topo.EdgeID, dir int) (topo.OrientedEdge, bool) {
	wi, i, ok := f.Find(e)
	if !ok {
		return topo.OrientedEdge{}, false
	}
	w := f.Boundaries[wi]
	return w[((i+dir)%len(w)+len(w))%len(w)], true
}

// faceNormal returns the outward normal of f at p.
func faceNormal(f topo.Face, p r3.Vec) (r3.Vec, bool) {
	s := f.OrientedSurface()
	uv, ok := brep.SearchNearestParameter(s, p, nil, nearestTrials)
	if !ok {
		return r3.Vec{}, false
	}
	return brep.NormalUV(s, uv), true
}

// crossing locates where curve a, starting from parameter ha, crosses c.
func crossing(a brep.Curve, ha float64, c brep.Curve, hc float64) (ta, tc float64, p r3.Vec, err error) {
	ta, tc, ok := brep.SearchClosestParameters(a, c, ha, hc, MarchTrials)
	pa, pc := a.Subs(ta), c.Subs(tc)
	if !ok || !d3.Near(pa, pc, topo.Tolerance) {
		return ta, tc, pa, constructionErr("curves do not cross near %v", pc)
	}
	return ta, tc, d3.Midpoint(pa, pc), nil
}

func edgeHint(c brep.Curve, p r3.Vec) float64 {
	t, _ := brep.SearchNearestCurveParameter(c, p, nil, nearestTrials)
	return t
}

// chord returns the straight polyline from p0 to p1.
func chord(p0, p1 r3.Vec) []r3.Vec {
	pts := make([]r3.Vec, seamSegments+1)
	for i := range pts {
		pts[i] = d3.Lerp(p0, p1, float64(i)/seamSegments)
	}
	return pts
}

// hintLine returns blend parameters from a to b matching chord.
func hintLine(a, b r2.Vec) []r2.Vec {
	hints := make([]r2.Vec, seamSegments+1)
	for i := range hints {
		hints[i] = d2.Lerp(a, b, float64(i)/seamSegments)
	}
	return hints
}
