// Command filletdemo builds a demo solid, fillets or chamfers a selection
// of its edges and writes the result as STL, optionally with a PNG preview.
//
//	filletdemo --shape box --select top --radius 0.2 -o box.stl --png box.png
//	filletdemo --options fillet.yaml --edge 0 --edge 3
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "filletdemo",
	Short: "Fillet or chamfer edges of a demo solid and export it as STL",
	Long: `filletdemo builds one of a few demo solids (box, openbox, cylinder),
rounds or chamfers the selected edges and writes the resulting shell
as a binary STL. Fillet parameters come from flags or from a YAML file:

  radius:
    linear: [0.1, 0.2]
  division: 8
  profile: chamfer`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runFillet,
}

var edgesCmd = &cobra.Command{
	Use:   "edges",
	Short: "List the edges of the demo solid with their faces and end points",
	RunE:  listEdges,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&flags.shape, "shape", "box", "demo solid: box, openbox or cylinder")

	f := rootCmd.Flags()
	f.StringVar(&flags.options, "options", "", "YAML fillet options file")
	f.Float64Var(&flags.radius, "radius", 0.1, "constant blend radius when no options file is given")
	f.StringVar(&flags.profile, "profile", "round", "blend profile when no options file is given: round or chamfer")
	f.StringVar(&flags.selection, "select", "top", "edge preset: top, vertical or all")
	f.IntSliceVar(&flags.edges, "edge", nil, "edge ids to blend, overrides --select")
	f.BoolVar(&flags.generic, "generic", false, "convert edges to NURBS before blending")
	f.StringVarP(&flags.output, "output", "o", "out.stl", "STL output path")
	f.StringVar(&flags.png, "png", "", "optional PNG preview path")
	f.IntVar(&flags.quality, "quality", 8, "tessellation segments per edge")

	rootCmd.AddCommand(edgesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
