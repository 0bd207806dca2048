package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/pyragen/internal/variant"
)

var planShowPaths bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "List the variants a run would generate, without side effects",
	Long: `List every variant the configured axes enumerate, in registry order.

Nothing is generated, written, or staged.

Examples:
  # Show variant names
  pyragen plan

  # Show the artifact paths each variant owns
  pyragen plan --paths`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		writePlan(os.Stdout, cfg.WarpCounts, cfg.TileDims, planShowPaths)
		return nil
	},
}

func init() {
	planCmd.Flags().BoolVar(&planShowPaths, "paths", false, "also list each variant's artifact paths")
	rootCmd.AddCommand(planCmd)
}

// writePlan prints one line per variant, in enumeration order, followed
// by a count footer.
func writePlan(w io.Writer, warpCounts, tileDims []int, showPaths bool) {
	for v := range variant.Enumerate(warpCounts, tileDims) {
		fmt.Fprintln(w, v.Name())
		if showPaths {
			for _, p := range v.ArtifactPaths() {
				fmt.Fprintf(w, "  %s\n", p)
			}
		}
	}
	fmt.Fprintf(w, "%d variants (%d warp counts x %d tile dims)\n",
		variant.Count(warpCounts, tileDims), len(warpCounts), len(tileDims))
}
