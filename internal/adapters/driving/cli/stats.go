package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	stats, err := searchService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	if statsJSON {
		data, err := json.MarshalIndent(map[string]int64{
			"documents":  stats.Documents,
			"chunks":     stats.Chunks,
			"embeddings": stats.Embeddings,
			"size_bytes": stats.SizeBytes,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Documents:  %d\n", stats.Documents)
	cmd.Printf("Chunks:     %d\n", stats.Chunks)
	cmd.Printf("Embeddings: %d\n", stats.Embeddings)
	cmd.Printf("Size:       %s\n", humanSize(stats.SizeBytes))
	if contentStore != nil {
		cmd.Printf("Database:   %s\n", contentStore.Path())
	}
	return nil
}

// humanSize renders a byte count with a binary unit suffix.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
