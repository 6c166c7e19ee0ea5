package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vectlabs/vectdb/internal/core/domain"
)

var (
	ingestModel     string
	ingestStrategy  string
	ingestSize      int
	ingestOverlap   int
	ingestMaxSize   int
	ingestRecursive bool
	ingestJSON      bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Ingest text files into the store",
	Long: `Reads each file, chunks its content, generates embeddings, and
stores everything locally. Files whose content is already stored are
skipped; a failure in one file does not stop the rest. Directories are
walked with --recursive, picking up .txt, .md, and .markdown files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestModel, "model", "m", "", "embedding model (default from config)")
	ingestCmd.Flags().StringVar(&ingestStrategy, "strategy", "", "chunking strategy: fixed or semantic (default from config)")
	ingestCmd.Flags().IntVar(&ingestSize, "size", 0, "chunk size in graphemes for the fixed strategy")
	ingestCmd.Flags().IntVar(&ingestOverlap, "overlap", 0, "chunk overlap in graphemes for the fixed strategy")
	ingestCmd.Flags().IntVar(&ingestMaxSize, "max-size", 0, "maximum chunk size for the semantic strategy")
	ingestCmd.Flags().BoolVarP(&ingestRecursive, "recursive", "r", false, "walk directories for text files")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil || embeddingService == nil {
		return errors.New("ingestion service not configured")
	}

	model := ingestModel
	if model == "" {
		model = cfg.Model()
	}
	strategy, err := ingestStrategyFromFlags(cmd)
	if err != nil {
		return err
	}

	if !embeddingService.HealthCheck(cmd.Context()) {
		return errors.New("embedding service is unreachable")
	}
	ok, err := embeddingService.HasModel(cmd.Context(), model)
	if err != nil {
		return fmt.Errorf("checking model availability: %w", err)
	}
	if !ok {
		return fmt.Errorf("model %q is not available, run \"vectdb models\" to list installed models", model)
	}

	paths, err := collectInputs(args)
	if err != nil {
		return err
	}

	results, err := ingestionService.IngestFiles(cmd.Context(), paths, model, strategy)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if ingestJSON {
		return outputIngestJSON(cmd, results)
	}
	return outputIngestSummary(cmd, results)
}

// collectInputs expands directory arguments. Directories require
// --recursive and contribute their text files; plain files pass
// through untouched so per-file errors surface in the results.
func collectInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		if !ingestRecursive {
			return nil, fmt.Errorf("%s is a directory, use --recursive to ingest its contents", arg)
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isTextFile(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	return paths, nil
}

func isTextFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown":
		return true
	}
	return false
}

// ingestStrategyFromFlags starts from the configured strategy and
// applies any explicit flag overrides.
func ingestStrategyFromFlags(cmd *cobra.Command) (domain.ChunkStrategy, error) {
	strategy := cfg.Strategy()

	if cmd.Flags().Changed("strategy") {
		switch ingestStrategy {
		case domain.StrategyFixed:
			strategy = domain.FixedStrategy(cfg.Chunking.Size, cfg.Chunking.Overlap)
		case domain.StrategySemantic:
			maxSize := cfg.Chunking.MaxSize
			if maxSize <= 0 {
				maxSize = domain.DefaultChunkSize
			}
			strategy = domain.SemanticStrategy(maxSize)
		default:
			return domain.ChunkStrategy{}, fmt.Errorf("%w: unknown strategy %q",
				domain.ErrInvalidChunkConfig, ingestStrategy)
		}
	}

	if cmd.Flags().Changed("size") {
		strategy.Size = ingestSize
	}
	if cmd.Flags().Changed("overlap") {
		strategy.Overlap = ingestOverlap
	}
	if cmd.Flags().Changed("max-size") {
		strategy.MaxSize = ingestMaxSize
	}
	return strategy, nil
}

func outputIngestJSON(cmd *cobra.Command, results []domain.IngestionResult) error {
	type jsonResult struct {
		Source            string `json:"source"`
		DocumentID        string `json:"document_id,omitempty"`
		ChunksCreated     int    `json:"chunks_created"`
		EmbeddingsCreated int    `json:"embeddings_created"`
		Skipped           bool   `json:"skipped"`
		Error             string `json:"error,omitempty"`
	}

	out := make([]jsonResult, len(results))
	for i, r := range results {
		out[i] = jsonResult{
			Source:            r.Source,
			DocumentID:        r.DocumentID,
			ChunksCreated:     r.ChunksCreated,
			EmbeddingsCreated: r.EmbeddingsCreated,
			Skipped:           r.Skipped,
		}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return ingestExitError(results)
}

func outputIngestSummary(cmd *cobra.Command, results []domain.IngestionResult) error {
	var stored, skipped, failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			cmd.Printf("  ✗ %s: %v\n", r.Source, r.Err)
		case r.Skipped:
			skipped++
			cmd.Printf("  - %s: already stored\n", r.Source)
		default:
			stored++
			cmd.Printf("  ✓ %s: %d chunks, %d embeddings\n", r.Source, r.ChunksCreated, r.EmbeddingsCreated)
		}
	}

	cmd.Println()
	cmd.Printf("Ingested %d, skipped %d, failed %d\n", stored, skipped, failed)
	return ingestExitError(results)
}

// ingestExitError makes the process exit non-zero when every input
// failed.
func ingestExitError(results []domain.IngestionResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 && failed == len(results) {
		return fmt.Errorf("all %d inputs failed", failed)
	}
	return nil
}
