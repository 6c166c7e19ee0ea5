package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Compact the database and refresh statistics",
	Long: `Runs VACUUM and ANALYZE on the SQLite database. Useful after
deleting many documents to reclaim disk space.`,
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	if contentStore == nil {
		return errors.New("store not configured")
	}

	before, err := contentStore.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	if err := contentStore.Optimize(cmd.Context()); err != nil {
		return fmt.Errorf("optimize failed: %w", err)
	}

	after, err := contentStore.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	cmd.Printf("Optimized %s: %s -> %s\n", contentStore.Path(),
		humanSize(before.SizeBytes), humanSize(after.SizeBytes))
	return nil
}
