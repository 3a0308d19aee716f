package fillet

import (
	"sort"

	"github.com/soypat/brep/topo"
)

// Chain is a maximal run of selected edges along one wire of a face,
// listed in the wire's traversal order.
type Chain struct {
	Face  topo.FaceID
	Edges []topo.EdgeID
	// Cyclic is set when the chain is a whole wire.
	Cyclic bool
}

// GroupChains partitions the selected edges into disjoint chains.
// boundaries[f][w] lists the edges of wire w of face f in order.
//
// Every face wire contributes its maximal runs of selected edges. A wire
// that is not entirely selected is rotated to start at an unselected edge
// so no run is split at the wrap-around. Runs are then claimed longest
// first, ties going to the lower face index, and each run is split where
// its edges were already claimed. The result is sorted longest first.
func GroupChains(boundaries [][][]topo.EdgeID, selected []topo.EdgeID) []Chain {
	sel := make(map[topo.EdgeID]bool, len(selected))
	for _, e := range selected {
		sel[e] = true
	}
	var runs []Chain
	for f, wires := range boundaries {
		for _, w := range wires {
			runs = append(runs, wireRuns(topo.FaceID(f), w, sel)...)
		}
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if len(runs[i].Edges) != len(runs[j].Edges) {
			return len(runs[i].Edges) > len(runs[j].Edges)
		}
		return runs[i].Face < runs[j].Face
	})

	claimed := make(map[topo.EdgeID]bool, len(selected))
	var chains []Chain
	for _, run := range runs {
		for _, piece := range splitClaimed(run, claimed) {
			for _, e := range piece.Edges {
				claimed[e] = true
			}
			chains = append(chains, piece)
		}
	}
	sort.SliceStable(chains, func(i, j int) bool {
		return len(chains[i].Edges) > len(chains[j].Edges)
	})
	return chains
}

// wireRuns returns the maximal runs of selected edges of one wire.
func wireRuns(face topo.FaceID, wire []topo.EdgeID, sel map[topo.EdgeID]bool) []Chain {
	start := -1
	for i, e := range wire {
		if !sel[e] {
			start = i
			break
		}
	}
	if start < 0 {
		if len(wire) == 0 {
			return nil
		}
		return []Chain{{Face: face, Edges: append([]topo.EdgeID(nil), wire...), Cyclic: true}}
	}
	var runs []Chain
	var cur []topo.EdgeID
	for k := 0; k < len(wire); k++ {
		e := wire[(start+k)%len(wire)]
		if sel[e] {
			cur = append(cur, e)
			continue
		}
		if len(cur) > 0 {
			runs = append(runs, Chain{Face: face, Edges: cur})
			cur = nil
		}
	}
	if len(cur) > 0 {
		runs = append(runs, Chain{Face: face, Edges: cur})
	}
	return runs
}

// splitClaimed returns the pieces of run made of unclaimed edges.
func splitClaimed(run Chain, claimed map[topo.EdgeID]bool) []Chain {
	edges := run.Edges
	first := -1
	for i, e := range edges {
		if claimed[e] {
			first = i
			break
		}
	}
	if first < 0 {
		return []Chain{run}
	}
	if run.Cyclic {
		// Start right after a claimed edge so the wrap-around does not split a piece.
		edges = append(append([]topo.EdgeID(nil), edges[first+1:]...), edges[:first+1]...)
	}
	var pieces []Chain
	var cur []topo.EdgeID
	for _, e := range edges {
		if claimed[e] {
			if len(cur) > 0 {
				pieces = append(pieces, Chain{Face: run.Face, Edges: cur})
				cur = nil
			}
			continue
		}
		cur = append(cur, e)
	}
	if len(cur) > 0 {
		pieces = append(pieces, Chain{Face: run.Face, Edges: cur})
	}
	return pieces
}
