package driven

import (
	"context"

	"github.com/vectlabs/vectdb/internal/core/domain"
)

// ContentStore persists documents, chunks, and embeddings.
// Backed by SQLite with WAL journaling: writers serialise, readers see a
// consistent snapshot and never block on writers.
type ContentStore interface {
	// CreateDocument inserts a document. If a document with the same
	// content hash already exists the existing record is returned and
	// created is false; no second row is inserted. The check is atomic
	// with respect to concurrent inserts of the same hash.
	CreateDocument(ctx context.Context, doc *domain.Document) (stored *domain.Document, created bool, err error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentByHash retrieves a document by content hash, or
	// domain.ErrNotFound when absent.
	GetDocumentByHash(ctx context.Context, hash string) (*domain.Document, error)

	// DeleteDocument removes a document and, through cascade, all of its
	// chunks and embeddings. Returns domain.ErrNotFound for unknown IDs.
	DeleteDocument(ctx context.Context, id string) error

	// InsertChunk stores a single chunk. Returns
	// domain.ErrConstraintViolation when the (document, index) pair
	// already exists.
	InsertChunk(ctx context.Context, chunk domain.Chunk) error

	// InsertChunks stores a batch of chunks in one transaction.
	InsertChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunksByDocument returns a document's chunks ordered by index.
	GetChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// UpsertEmbedding stores an embedding, replacing any existing one for
	// the same chunk. Returns domain.ErrValidation when the declared
	// dimension does not match the vector length or the model is empty.
	UpsertEmbedding(ctx context.Context, emb domain.Embedding) error

	// GetEmbedding retrieves the embedding stored for a chunk. The
	// decoded vector is checked against the stored dimension;
	// a mismatch (a truncated blob) is domain.ErrValidation.
	GetEmbedding(ctx context.Context, chunkID string) (*domain.Embedding, error)

	// ScanEmbeddings opens a one-shot cursor over all embeddings produced
	// by the given model, joined with their chunk and document rows. The
	// caller must Close the scan. Rows whose vector does not decode to
	// the stored dimension stop the scan with domain.ErrValidation.
	ScanEmbeddings(ctx context.Context, model string) (EmbeddingScan, error)

	// Stats returns document, chunk, and embedding counts.
	Stats(ctx context.Context) (domain.Stats, error)
}

// EmbeddingScan is a lazy cursor over stored embeddings. It is finite,
// forward-only, and not restartable once consumed.
type EmbeddingScan interface {
	// Next advances the cursor. It returns false when the scan is
	// exhausted or an error occurred; check Err after the loop.
	Next() bool

	// Row returns the current joined row. Valid only after Next
	// returned true.
	Row() EmbeddingRow

	// Err returns the first error encountered while scanning.
	Err() error

	// Close releases the underlying cursor.
	Close() error
}

// EmbeddingRow is one joined (embedding, chunk, document) row.
type EmbeddingRow struct {
	ChunkID      string
	ChunkIndex   int
	ChunkContent string
	TokenCount   int
	DocumentID   string
	Source       string
	Metadata     map[string]string
	Vector       []float32
}
