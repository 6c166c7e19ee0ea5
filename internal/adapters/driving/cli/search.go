package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vectlabs/vectdb/internal/core/domain"
)

var (
	searchTopK      int
	searchThreshold float64
	searchModel     string
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored documents by similarity",
	Long: `Embeds the query and ranks every stored chunk by cosine
similarity, best match first. Results below the threshold are dropped
before the top-k cut.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().Float64VarP(&searchThreshold, "threshold", "t", 0, "minimum similarity in [-1, 1] (default from config)")
	searchCmd.Flags().StringVarP(&searchModel, "model", "m", "", "embedding model (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{
		Model:     searchModel,
		TopK:      cfg.Search.TopK,
		Threshold: cfg.Search.Threshold,
	}
	if cmd.Flags().Changed("top-k") {
		opts.TopK = searchTopK
	}
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = searchThreshold
	}

	results, err := searchService.Search(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	type jsonResult struct {
		ChunkID    string  `json:"chunk_id"`
		DocumentID string  `json:"document_id"`
		Source     string  `json:"source"`
		Index      int     `json:"chunk_index"`
		Similarity float64 `json:"similarity"`
		Content    string  `json:"content"`
	}

	out := make([]jsonResult, len(results))
	for i, r := range results {
		out[i] = jsonResult{
			ChunkID:    r.Chunk.ID,
			DocumentID: r.Document.ID,
			Source:     r.Document.Source,
			Index:      r.Chunk.Index,
			Similarity: r.Similarity,
			Content:    r.Chunk.Content,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s #%d (%.4f)\n", i+1, r.Document.Source, r.Chunk.Index, r.Similarity)
		cmd.Printf("      %s\n", snippet(r.Chunk.Content, 160))
		cmd.Println()
	}
	return nil
}

// snippet shortens content to at most n runes for table display.
func snippet(content string, n int) string {
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "…"
}
