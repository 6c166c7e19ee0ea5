package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vectlabs/vectdb/internal/chunker"
	"github.com/vectlabs/vectdb/internal/core/domain"
	"github.com/vectlabs/vectdb/internal/core/ports/driven"
	"github.com/vectlabs/vectdb/internal/core/ports/driving"
	"github.com/vectlabs/vectdb/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// DefaultEmbedBatchSize bounds how many chunks are sent to the
// embedding service per request.
const DefaultEmbedBatchSize = 16

// IngestionService orchestrates the ingestion pipeline: hash the input,
// dedup against stored documents, chunk, embed, and persist. A failure
// anywhere after document creation rolls the document back, so the
// store never holds a partially ingested document.
type IngestionService struct {
	store     driven.ContentStore
	embedder  driven.EmbeddingService
	batchSize int
}

// NewIngestionService creates a new ingestion service. batchSize <= 0
// selects DefaultEmbedBatchSize.
func NewIngestionService(store driven.ContentStore, embedder driven.EmbeddingService, batchSize int) *IngestionService {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &IngestionService{
		store:     store,
		embedder:  embedder,
		batchSize: batchSize,
	}
}

// IngestFile loads a file from disk and ingests its content under the
// file path as source descriptor.
func (s *IngestionService) IngestFile(ctx context.Context, path, model string, strategy domain.ChunkStrategy) (*domain.IngestionResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return s.IngestText(ctx, path, string(content), model, strategy)
}

// IngestText ingests already-loaded text under the given source
// descriptor.
func (s *IngestionService) IngestText(ctx context.Context, source, text, model string, strategy domain.ChunkStrategy) (*domain.IngestionResult, error) {
	logger.Section("Ingestion")
	logger.Debug("Source: %s, model: %s, strategy: %s", source, model, strategy.Kind)

	// Blank input stores nothing.
	if strings.TrimSpace(text) == "" {
		logger.Info("Input is empty, skipping")
		return &domain.IngestionResult{Source: source, Skipped: true}, nil
	}

	doc := domain.NewDocument(source, text)
	stored, created, err := s.store.CreateDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}
	if !created {
		logger.Info("Content already stored as document %s, skipping", stored.ID)
		return &domain.IngestionResult{
			Source:     source,
			DocumentID: stored.ID,
			Skipped:    true,
		}, nil
	}

	result, err := s.populate(ctx, stored, text, model, strategy)
	if err != nil {
		s.rollback(ctx, stored.ID)
		return nil, err
	}
	return result, nil
}

// populate chunks, embeds, and stores everything below an already
// created document. The caller owns rollback on failure.
func (s *IngestionService) populate(ctx context.Context, doc *domain.Document, text, model string, strategy domain.ChunkStrategy) (*domain.IngestionResult, error) {
	pieces, err := chunker.Split(text, strategy)
	if err != nil {
		return nil, fmt.Errorf("chunking %s: %w", doc.Source, err)
	}
	logger.Debug("Split into %d chunks", len(pieces))

	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.NewChunk(doc.ID, i, piece)
	}
	if err := s.store.InsertChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("storing chunks: %w", err)
	}

	embedded := 0
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := s.embedder.EmbedBatch(ctx, model, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding service returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		for i, vec := range vectors {
			emb := domain.NewEmbedding(batch[i].ID, model, vec)
			if err := s.store.UpsertEmbedding(ctx, emb); err != nil {
				return nil, fmt.Errorf("storing embedding for chunk %s: %w", batch[i].ID, err)
			}
			embedded++
		}
		logger.Debug("Embedded %d/%d chunks", embedded, len(chunks))
	}

	logger.Info("Ingested %s: %d chunks, %d embeddings", doc.Source, len(chunks), embedded)
	return &domain.IngestionResult{
		Source:            doc.Source,
		DocumentID:        doc.ID,
		ChunksCreated:     len(chunks),
		EmbeddingsCreated: embedded,
	}, nil
}

// rollback deletes a partially ingested document; the cascade removes
// its chunks and embeddings. Uses a background context so cancellation
// of the request cannot leave partial state behind.
func (s *IngestionService) rollback(_ context.Context, documentID string) {
	if err := s.store.DeleteDocument(context.Background(), documentID); err != nil {
		logger.Error("Rollback of document %s failed, partial state may remain: %v", documentID, err)
	}
}

// IngestFiles ingests each path in order, continuing past per-file
// failures. One result is returned per input path; failed inputs carry
// their error in Err.
func (s *IngestionService) IngestFiles(ctx context.Context, paths []string, model string, strategy domain.ChunkStrategy) ([]domain.IngestionResult, error) {
	results := make([]domain.IngestionResult, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := s.IngestFile(ctx, path, model, strategy)
		if err != nil {
			logger.Warn("Ingesting %s failed: %v", path, err)
			results = append(results, domain.IngestionResult{Source: path, Err: err})
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}
