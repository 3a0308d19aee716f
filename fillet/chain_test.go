package fillet

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/soypat/brep/topo"
)

func TestGroupChains(t *testing.T) {
	const a, b, c, d = 0, 1, 2, 3
	// Face 0 is bounded by [A,B,C,D]. Every edge also borders its own
	// neighbour face.
	boundaries := [][][]topo.EdgeID{
		{{a, b, c, d}},
		{{a, 4, 5}},
		{{b, 6, 4}},
		{{c, 7, 6}},
		{{d, 5, 7}},
	}
	for _, test := range []struct {
		selected []topo.EdgeID
		want     []Chain
	}{
		{
			selected: []topo.EdgeID{a, c},
			// Runs of one face are listed from the first unselected edge.
			want: []Chain{
				{Face: 0, Edges: []topo.EdgeID{c}},
				{Face: 0, Edges: []topo.EdgeID{a}},
			},
		},
		{
			selected: []topo.EdgeID{a, b, c},
			want:     []Chain{{Face: 0, Edges: []topo.EdgeID{a, b, c}}},
		},
		{
			selected: []topo.EdgeID{c, a, b},
			want:     []Chain{{Face: 0, Edges: []topo.EdgeID{a, b, c}}},
		},
		{
			selected: []topo.EdgeID{a, b, c, d},
			want:     []Chain{{Face: 0, Edges: []topo.EdgeID{a, b, c, d}, Cyclic: true}},
		},
		{
			// The run across the wrap-around is not split.
			selected: []topo.EdgeID{d, a},
			want:     []Chain{{Face: 0, Edges: []topo.EdgeID{d, a}}},
		},
		{
			// Every face holds a run of two. Face 1 claims first and
			// splits the runs of faces 2 and 3.
			selected: []topo.EdgeID{4, 5, 6, 7},
			want: []Chain{
				{Face: 1, Edges: []topo.EdgeID{4, 5}},
				{Face: 2, Edges: []topo.EdgeID{6}},
				{Face: 3, Edges: []topo.EdgeID{7}},
			},
		},
		{
			selected: nil,
			want:     nil,
		},
	} {
		got := GroupChains(boundaries, test.selected)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("selection %v: chains mismatch (-want +got):\n%s", test.selected, diff)
		}
	}
}

func TestGroupChainsClaimed(t *testing.T) {
	// Face 0 holds the cyclic run [1,2,3]; face 1 holds [2,3,4,5] partially.
	boundaries := [][][]topo.EdgeID{
		{{1, 2, 3}},
		{{9, 2, 3, 4, 5}},
		{{1, 8}},
	}
	got := GroupChains(boundaries, []topo.EdgeID{1, 2, 3, 4, 5})
	want := []Chain{
		{Face: 1, Edges: []topo.EdgeID{2, 3, 4, 5}},
		{Face: 0, Edges: []topo.EdgeID{1}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("chains mismatch (-want +got):\n%s", diff)
	}
}
