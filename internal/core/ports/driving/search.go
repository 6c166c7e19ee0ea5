package driving

import (
	"context"

	"github.com/vectlabs/vectdb/internal/core/domain"
)

// SearchService performs exact-recompute semantic similarity search over
// the stored embeddings.
type SearchService interface {
	// Search embeds the query text and returns the top-scoring chunks
	// above the threshold, best first. An empty result set is not an
	// error.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// Stats returns store-level counts.
	Stats(ctx context.Context) (domain.Stats, error)
}
