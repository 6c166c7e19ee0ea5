package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/vectlabs/vectdb/internal/core/domain"
	"github.com/vectlabs/vectdb/internal/core/ports/driven"
	"github.com/vectlabs/vectdb/internal/core/ports/driving"
	"github.com/vectlabs/vectdb/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultTopK is the result count used when the caller does not set one.
const DefaultTopK = 10

// SearchService performs exact similarity search by scanning every
// stored embedding and recomputing cosine similarity against the query
// vector.
type SearchService struct {
	store        driven.ContentStore
	embedder     driven.EmbeddingService
	defaultModel string
}

// NewSearchService creates a new search service. defaultModel is used
// when a request does not name a model.
func NewSearchService(store driven.ContentStore, embedder driven.EmbeddingService, defaultModel string) *SearchService {
	return &SearchService{
		store:        store,
		embedder:     embedder,
		defaultModel: defaultModel,
	}
}

// Search embeds the query and ranks stored chunks by cosine similarity.
// Candidates below the threshold are dropped before top-k truncation,
// so a high threshold can return fewer than k results. Ties in score
// break towards the smaller chunk ID.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	model := opts.Model
	if model == "" {
		model = s.defaultModel
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	logger.Debug("Model: %s, TopK: %d, Threshold: %v", model, topK, opts.Threshold)

	queryVec, err := s.embedder.Embed(ctx, model, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	scan, err := s.store.ScanEmbeddings(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("scanning embeddings: %w", err)
	}
	defer scan.Close()

	var results []domain.SearchResult
	scanned := 0
	for scan.Next() {
		row := scan.Row()
		scanned++

		sim := cosineSimilarity(queryVec, row.Vector)
		if sim < opts.Threshold {
			continue
		}

		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				ID:         row.ChunkID,
				DocumentID: row.DocumentID,
				Index:      row.ChunkIndex,
				Content:    row.ChunkContent,
				TokenCount: row.TokenCount,
			},
			Document: domain.Document{
				ID:       row.DocumentID,
				Source:   row.Source,
				Metadata: row.Metadata,
			},
			Similarity: sim,
		})
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("scanning embeddings: %w", err)
	}
	logger.Debug("Scanned %d embeddings, %d above threshold", scanned, len(results))

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	logger.Info("Returning %d results", len(results))

	return results, nil
}

// Stats returns store-level counts.
func (s *SearchService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.store.Stats(ctx)
}

// cosineSimilarity computes the cosine of the angle between two vectors
// using float64 accumulation. Mismatched dimensions and zero-magnitude
// vectors score 0 rather than erroring, so one bad row cannot fail a
// whole scan.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
