package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/pyragen/internal/registry"
	"github.com/zjrosen/pyragen/internal/variant"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the registry file matches the configured axes",
	Long: `Compare the registry file against the entries a full run over the
configured warp counts and tile dimensions would produce. The comparison
is byte-exact, including entry order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := verifyRegistry(cfg.OutputPath(), cfg.WarpCounts, cfg.TileDims); err != nil {
			return err
		}
		fmt.Printf("%s matches the configured axes (%d entries)\n",
			cfg.OutputPath(), variant.Count(cfg.WarpCounts, cfg.TileDims))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// expectedRegistry renders the registry content a full run would write.
func expectedRegistry(warpCounts, tileDims []int) string {
	var b strings.Builder
	for v := range variant.Enumerate(warpCounts, tileDims) {
		b.WriteString(registry.FormatEntry(registry.Entry{Name: v.Name()}))
	}
	return b.String()
}

// verifyRegistry compares the file at path against the expected content
// byte for byte and reports the first divergent line.
func verifyRegistry(path string, warpCounts, tileDims []int) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from config
	if err != nil {
		return fmt.Errorf("reading registry: %w", err)
	}

	want := expectedRegistry(warpCounts, tileDims)
	if string(data) == want {
		return nil
	}

	gotLines := strings.Split(string(data), "\n")
	wantLines := strings.Split(want, "\n")
	for i := range min(len(gotLines), len(wantLines)) {
		if gotLines[i] != wantLines[i] {
			return fmt.Errorf("registry mismatch at line %d: got %q, want %q",
				i+1, gotLines[i], wantLines[i])
		}
	}
	return fmt.Errorf("registry has %d lines, want %d", len(gotLines)-1, len(wantLines)-1)
}
