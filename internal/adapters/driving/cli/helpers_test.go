package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/pflag"

	"github.com/vectlabs/vectdb/internal/adapters/driven/config/file"
	"github.com/vectlabs/vectdb/internal/core/domain"
	"github.com/vectlabs/vectdb/internal/core/ports/driven"
)

// stubIngestion is a canned driving.IngestionService.
type stubIngestion struct {
	results     []domain.IngestionResult
	err         error
	gotModel    string
	gotStrategy domain.ChunkStrategy
	gotPaths    []string
}

func (s *stubIngestion) IngestFile(_ context.Context, path, model string, strategy domain.ChunkStrategy) (*domain.IngestionResult, error) {
	s.gotModel, s.gotStrategy = model, strategy
	if s.err != nil {
		return nil, s.err
	}
	return &s.results[0], nil
}

func (s *stubIngestion) IngestText(_ context.Context, source, _, model string, strategy domain.ChunkStrategy) (*domain.IngestionResult, error) {
	s.gotModel, s.gotStrategy = model, strategy
	if s.err != nil {
		return nil, s.err
	}
	return &s.results[0], nil
}

func (s *stubIngestion) IngestFiles(_ context.Context, paths []string, model string, strategy domain.ChunkStrategy) ([]domain.IngestionResult, error) {
	s.gotModel, s.gotStrategy, s.gotPaths = model, strategy, paths
	return s.results, s.err
}

// stubSearch is a canned driving.SearchService.
type stubSearch struct {
	results []domain.SearchResult
	stats   domain.Stats
	err     error
	gotOpts domain.SearchOptions
}

func (s *stubSearch) Search(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	s.gotOpts = opts
	return s.results, s.err
}

func (s *stubSearch) Stats(context.Context) (domain.Stats, error) {
	return s.stats, s.err
}

// stubEmbedder is a canned driven.EmbeddingService.
type stubEmbedder struct {
	healthy bool
	models  []driven.ModelInfo
}

func (s *stubEmbedder) Embed(context.Context, string, string) ([]float32, error) {
	return []float32{1}, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, _ string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func (s *stubEmbedder) HealthCheck(context.Context) bool { return s.healthy }

func (s *stubEmbedder) ListModels(context.Context) ([]driven.ModelInfo, error) {
	return s.models, nil
}

func (s *stubEmbedder) HasModel(_ context.Context, name string) (bool, error) {
	if s.models == nil {
		return true, nil
	}
	for _, m := range s.models {
		if m.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// setupTestServices injects stubs into the package-level services and
// restores the previous state when the test ends.
func setupTestServices(t *testing.T, ingest *stubIngestion, search *stubSearch, embed *stubEmbedder) {
	t.Helper()

	prevIngest, prevSearch, prevEmbed, prevCfg := ingestionService, searchService, embeddingService, cfg
	if ingest != nil {
		ingestionService = ingest
	} else {
		ingestionService = &stubIngestion{results: []domain.IngestionResult{{}}}
	}
	if search != nil {
		searchService = search
	} else {
		searchService = &stubSearch{}
	}
	if embed != nil {
		embeddingService = embed
	} else {
		embeddingService = &stubEmbedder{healthy: true}
	}
	cfg = file.Default()

	t.Cleanup(func() {
		ingestionService, searchService, embeddingService, cfg = prevIngest, prevSearch, prevEmbed, prevCfg
	})
}

// resetFlags clears flag values and Changed state left behind by a
// previous Execute call.
func resetFlags() {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
	}
}

// execute runs the root command with args and captures output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}
