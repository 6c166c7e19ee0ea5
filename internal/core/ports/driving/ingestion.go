package driving

import (
	"context"

	"github.com/vectlabs/vectdb/internal/core/domain"
)

// IngestionService turns raw text into stored documents, chunks, and
// embeddings. An ingestion either completes the whole document or leaves
// the store exactly as it was before the request.
type IngestionService interface {
	// IngestFile loads a file from disk and ingests its content.
	IngestFile(ctx context.Context, path, model string, strategy domain.ChunkStrategy) (*domain.IngestionResult, error)

	// IngestText ingests already-loaded text under the given source
	// descriptor.
	IngestText(ctx context.Context, source, text, model string, strategy domain.ChunkStrategy) (*domain.IngestionResult, error)

	// IngestFiles ingests a list of files, continuing past per-file
	// failures. One result is returned per input path.
	IngestFiles(ctx context.Context, paths []string, model string, strategy domain.ChunkStrategy) ([]domain.IngestionResult, error)
}
