// Package cli implements the vectdb command line interface on top of
// the driving ports. Commands talk to the core services only through
// those interfaces, so tests can swap in fakes.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vectlabs/vectdb/internal/adapters/driven/config/file"
	"github.com/vectlabs/vectdb/internal/adapters/driven/embedding/ollama"
	"github.com/vectlabs/vectdb/internal/adapters/driven/embedding/openai"
	"github.com/vectlabs/vectdb/internal/adapters/driven/storage/sqlite"
	"github.com/vectlabs/vectdb/internal/core/ports/driven"
	"github.com/vectlabs/vectdb/internal/core/ports/driving"
	"github.com/vectlabs/vectdb/internal/core/services"
	"github.com/vectlabs/vectdb/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgFile string
	verbose bool

	cfg              file.Config
	ingestionService driving.IngestionService
	searchService    driving.SearchService
	embeddingService driven.EmbeddingService
	contentStore     *sqlite.Store
)

var rootCmd = &cobra.Command{
	Use:   "vectdb",
	Short: "Local vector document store",
	Long: `vectdb ingests text documents into a local SQLite database,
chunks them, generates embeddings through Ollama or OpenAI, and answers
semantic similarity queries. Everything runs on a single node with no
external index.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)

		switch cmd.Name() {
		case "init", "version", "help", "completion":
			return nil
		}
		return initServices()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if contentStore != nil {
			if err := contentStore.Close(); err != nil {
				logger.Error("Closing store: %v", err)
			}
			contentStore = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.vectdb/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// initServices wires the adapters and services from configuration.
// Already-populated services (from tests) are left alone.
func initServices() error {
	if ingestionService != nil && searchService != nil && embeddingService != nil {
		return nil
	}

	var err error
	cfg, err = file.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	contentStore, err = sqlite.NewStore(cfg.Database.Dir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	embeddingService, err = buildEmbedder(cfg)
	if err != nil {
		return err
	}

	ingestionService = services.NewIngestionService(contentStore, embeddingService, 0)
	searchService = services.NewSearchService(contentStore, embeddingService, cfg.Model())
	return nil
}

// buildEmbedder constructs the embedding adapter selected in config.
func buildEmbedder(cfg file.Config) (driven.EmbeddingService, error) {
	if cfg.Embedding.Provider == file.ProviderOpenAI {
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("configuring OpenAI embeddings: %w", err)
		}
		return svc, nil
	}

	return ollama.NewEmbeddingService(ollama.Config{
		BaseURL:    cfg.Ollama.BaseURL,
		Timeout:    time.Duration(cfg.Ollama.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.Ollama.MaxRetries,
	}), nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
