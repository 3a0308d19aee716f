// Package fillet replaces sharp edges of a shell by rolling-ball fillets
// or chamfers.
//
// A fillet is built by marching relay spheres between the two faces along
// the edge, turning consecutive spheres into exact rational patches and
// splicing the resulting blend face into the shell. Selected edges are
// first grouped into chains along face boundaries so that connected edges
// are blended together.
package fillet

import (
	"fmt"
	"runtime/debug"

	"github.com/soypat/brep"
	"github.com/soypat/brep/nurbs"
	"github.com/soypat/brep/topo"
	"go.uber.org/zap"
)

// genericDivision is the Hermite span count used when converting curves
// without an exact NURBS form.
const genericDivision = 16

// Apply fillets or chamfers the given edges of shell in place.
//
// The request is validated before the shell is touched: faults from
// missing, non-manifold or too short edges and a per-edge radius count
// mismatch leave the shell unchanged and are reported as *EdgeError or
// ErrRadiusCount. Chains are then built one at a time, longest first.
// When a chain fails with ErrConstruction the chains already built stay
// applied unless opts.Transactional is set.
func Apply(shell *topo.Shell, edges []topo.EdgeID, opts Options) error {
	log := opts.logger()
	if err := opts.validate(); err != nil {
		return err
	}
	shell.Lock()
	reqs, err := validateEdges(shell, edges, opts)
	boundaries := shell.Boundaries()
	shell.Unlock()
	if err != nil {
		log.Info("fillet request rejected", zap.Error(err))
		return err
	}
	selected := make([]topo.EdgeID, 0, len(reqs))
	reqIndex := make(map[topo.EdgeID]int, len(reqs))
	for _, r := range reqs {
		selected = append(selected, r.edge)
		reqIndex[r.edge] = r.index
	}
	chains := GroupChains(boundaries, selected)
	log.Debug("grouped edges", zap.Int("edges", len(selected)), zap.Int("chains", len(chains)))

	target := shell
	if opts.Transactional {
		shell.Lock()
		target = shell.Clone()
		shell.Unlock()
	}
	replaced := make(map[topo.EdgeID]topo.EdgeID)
	current := func(e topo.EdgeID) topo.EdgeID {
		for {
			ne, ok := replaced[e]
			if !ok {
				return e
			}
			e = ne
		}
	}
	for i, chain := range chains {
		req := make([]int, len(chain.Edges))
		for k, e := range chain.Edges {
			req[k] = reqIndex[e]
			chain.Edges[k] = current(e)
		}
		trimmed, err := applyChain(target, chain, req, opts, log)
		if err != nil {
			log.Warn("chain failed",
				zap.Int("chain", i),
				zap.Int("face", int(chain.Face)),
				zap.Int("applied", i),
				zap.Error(err),
			)
			return fmt.Errorf("chain %d on face %d: %w", i, chain.Face, err)
		}
		for old, ne := range trimmed {
			replaced[old] = ne
		}
		log.Debug("chain applied",
			zap.Int("chain", i),
			zap.Int("face", int(chain.Face)),
			zap.Int("edges", len(chain.Edges)),
			zap.Bool("cyclic", chain.Cyclic),
		)
	}
	if opts.Transactional {
		shell.Lock()
		shell.Assign(target)
		shell.Unlock()
	}
	log.Info("fillet applied", zap.Int("chains", len(chains)), zap.Stringer("profile", opts.Profile))
	return nil
}

// applyChain builds one chain on a copy of shell and swaps the copy in on
// success. The shell is locked only while it is copied and swapped, so
// readers are not held up by construction. Changes made to shell by other
// goroutines in between are overwritten by the swap.
func applyChain(shell *topo.Shell, chain Chain, req []int, opts Options, log *zap.Logger) (trimmed map[topo.EdgeID]topo.EdgeID, err error) {
	shell.Lock()
	work := shell.Clone()
	shell.Unlock()
	b := newBuilder(work, opts, log)
	defer func() {
		if a := recover(); a != nil {
			err = fmt.Errorf("%w: %w", ErrConstruction, &panicErr{panicObj: a, stack: string(debug.Stack())})
		}
	}()
	if err := b.construct(chain, req); err != nil {
		return nil, err
	}
	shell.Lock()
	shell.Assign(work)
	shell.Unlock()
	return b.trimmed, nil
}

// ApplyGeneric is Apply for shells whose edges use arbitrary curve
// representations. Edge curves are converted to NURBS on a copy of the
// shell before filleting, and the copy replaces shell only on success.
//
// Only edge curves are converted. Face surfaces keep their own
// representation, and converted edges are never converted back: on
// success every edge of shell not created by the fillet is a *nurbs.Curve.
func ApplyGeneric(shell *topo.Shell, edges []topo.EdgeID, opts Options) error {
	shell.Lock()
	work := shell.Clone()
	shell.Unlock()
	for _, e := range work.EdgeIDs() {
		c := nurbs.FromCurve(work.Edge(e).Curve, genericDivision)
		if err := work.SetCurve(e, c); err != nil {
			return fmt.Errorf("convert edge %d: %w", e, err)
		}
	}
	opts.Transactional = false
	if err := Apply(work, edges, opts); err != nil {
		return err
	}
	shell.Lock()
	shell.Assign(work)
	shell.Unlock()
	return nil
}

type request struct {
	edge  topo.EdgeID
	index int
}

// validateEdges checks the request against shell and returns the distinct
// requested edges with their request index.
func validateEdges(shell *topo.Shell, edges []topo.EdgeID, opts Options) ([]request, error) {
	if opts.Radius.IsPerEdge() && len(opts.Radius.perEdge) != len(edges) {
		return nil, fmt.Errorf("%w: %d radii for %d edges", ErrRadiusCount, len(opts.Radius.perEdge), len(edges))
	}
	used := make(map[topo.EdgeID]bool)
	for _, e := range shell.EdgeIDs() {
		used[e] = true
	}
	seen := make(map[topo.EdgeID]bool, len(edges))
	var reqs []request
	for i, e := range edges {
		if seen[e] {
			continue
		}
		seen[e] = true
		if !used[e] {
			return nil, &EdgeError{Edge: e, Err: ErrEdgeNotFound}
		}
		faces := shell.FacesOfEdge(e)
		if n := distinct(faces); n != 2 || len(faces) != 2 {
			return nil, &EdgeError{Edge: e, Faces: n, Err: ErrNonManifold}
		}
		r := opts.Radius.max(i)
		if l := brep.Length(shell.Edge(e).Curve, lengthDivision); l <= 2*r {
			return nil, &EdgeError{Edge: e, Err: fmt.Errorf("%w: length %g, radius %g", ErrDegenerateEdge, l, r)}
		}
		reqs = append(reqs, request{edge: e, index: i})
	}
	return reqs, nil
}

func distinct(faces []topo.FaceID) int {
	n := 0
	for i, f := range faces {
		if i == 0 || f != faces[i-1] {
			n++
		}
	}
	return n
}
