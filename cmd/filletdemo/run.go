package main

import (
	"fmt"
	"os"

	"github.com/soypat/brep/fillet"
	"github.com/soypat/brep/render"
	"github.com/soypat/brep/topo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

var flags struct {
	shape     string
	options   string
	radius    float64
	profile   string
	selection string
	edges     []int
	generic   bool
	output    string
	png       string
	quality   int
}

// cylinderSides is the number of side patches of the demo cylinder.
const cylinderSides = 4

func buildShape(name string) (*topo.Shell, error) {
	unit := r3.Vec{X: 1, Y: 1, Z: 1}
	switch name {
	case "box":
		return topo.Box(r3.Vec{}, unit), nil
	case "openbox":
		return topo.OpenBox(r3.Vec{}, unit), nil
	case "cylinder":
		return topo.Cylinder(r3.Vec{X: 0.5, Y: 0.5}, 0.5, 1, cylinderSides), nil
	}
	return nil, fmt.Errorf("unknown shape %q", name)
}

// selectEdges returns the edges named by ids or, if ids is empty, by preset.
func selectEdges(s *topo.Shell, preset string, ids []int) ([]topo.EdgeID, error) {
	if len(ids) > 0 {
		edges := make([]topo.EdgeID, len(ids))
		for i, id := range ids {
			edges[i] = topo.EdgeID(id)
		}
		return edges, nil
	}
	var keep func(z0, z1 float64) bool
	switch preset {
	case "top":
		keep = func(z0, z1 float64) bool { return z0 == 1 && z1 == 1 }
	case "vertical":
		keep = func(z0, z1 float64) bool { return z0 != z1 }
	case "all":
		keep = func(z0, z1 float64) bool { return true }
	default:
		return nil, fmt.Errorf("unknown edge preset %q", preset)
	}
	var edges []topo.EdgeID
	for _, e := range s.EdgeIDs() {
		edge := s.Edge(e)
		if keep(s.Vertex(edge.V0).Z, s.Vertex(edge.V1).Z) {
			edges = append(edges, e)
		}
	}
	if len(edges) == 0 {
		return nil, fmt.Errorf("preset %q selects no edges", preset)
	}
	return edges, nil
}

func loadOptions() (fillet.Options, error) {
	if flags.options != "" {
		fp, err := os.Open(flags.options)
		if err != nil {
			return fillet.Options{}, err
		}
		defer fp.Close()
		return fillet.LoadOptions(fp)
	}
	opts := fillet.DefaultOptions()
	opts.Radius = fillet.Constant(flags.radius)
	profile, err := fillet.ParseProfile(flags.profile)
	if err != nil {
		return opts, err
	}
	opts.Profile = profile
	return opts, nil
}

func runFillet(cmd *cobra.Command, args []string) error {
	shell, err := buildShape(flags.shape)
	if err != nil {
		return err
	}
	edges, err := selectEdges(shell, flags.selection, flags.edges)
	if err != nil {
		return err
	}
	opts, err := loadOptions()
	if err != nil {
		return err
	}
	opts.Logger = logger
	logger.Info("blending edges",
		zap.String("shape", flags.shape),
		zap.Ints("edges", flags.edges),
		zap.Int("selected", len(edges)),
		zap.Stringer("profile", opts.Profile),
	)
	apply := fillet.Apply
	if flags.generic {
		apply = fillet.ApplyGeneric
	}
	if err := apply(shell, edges, opts); err != nil {
		return fmt.Errorf("blend failed: %w", err)
	}
	r, err := render.NewShellRenderer(shell, flags.quality)
	if err != nil {
		return err
	}
	if err := render.CreateSTL(flags.output, r); err != nil {
		return fmt.Errorf("failed to write STL: %w", err)
	}
	logger.Info("wrote STL", zap.String("path", flags.output), zap.Int("faces", shell.NumFaces()))
	if flags.png == "" {
		return nil
	}
	if err := stlToPNG(flags.output, flags.png, defaultView); err != nil {
		return fmt.Errorf("failed to render preview: %w", err)
	}
	logger.Info("wrote preview", zap.String("path", flags.png))
	return nil
}

func listEdges(cmd *cobra.Command, args []string) error {
	shell, err := buildShape(flags.shape)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, e := range shell.EdgeIDs() {
		edge := shell.Edge(e)
		fmt.Fprintf(out, "%3d  faces %v  %.3g -> %.3g\n", e, shell.FacesOfEdge(e),
			shell.Vertex(edge.V0), shell.Vertex(edge.V1))
	}
	return nil
}
