package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Document represents an ingested source unit. Documents are immutable
// after creation; re-ingesting identical content returns the existing
// record instead of creating a second one.
type Document struct {
	// ID is the unique identifier, assigned on creation.
	ID string

	// Source is the original location (file path, URL, etc).
	Source string

	// ContentHash is the SHA-256 hex digest of the raw text,
	// used as the deduplication key.
	ContentHash string

	// Metadata contains arbitrary string key-value pairs.
	Metadata map[string]string

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time
}

// NewDocument builds a document for the given source and computes the
// content hash from the raw text.
func NewDocument(source, content string) *Document {
	sum := sha256.Sum256([]byte(content))

	return &Document{
		ID:          uuid.New().String(),
		Source:      source,
		ContentHash: hex.EncodeToString(sum[:]),
		Metadata:    make(map[string]string),
		CreatedAt:   time.Now().UTC(),
	}
}

// WithMetadata adds a metadata key-value pair and returns the document.
func (d *Document) WithMetadata(key, value string) *Document {
	d.Metadata[key] = value
	return d
}

// Chunk is a contiguous text segment belonging to exactly one document.
// The (DocumentID, Index) pair is unique within the store.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Index is the zero-based position within the document.
	Index int

	// Content is the text content of this chunk.
	Content string

	// TokenCount is an approximate token count, for reference.
	TokenCount int
}

// NewChunk builds a chunk with a fresh ID and a rough token estimate
// (about four characters per token).
func NewChunk(documentID string, index int, content string) Chunk {
	return Chunk{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		Index:      index,
		Content:    content,
		TokenCount: len(content) / 4,
	}
}

// Embedding is the vector representation of exactly one chunk under one
// generation model. A chunk has at most one stored embedding at any time;
// writing a new one replaces the previous regardless of model.
type Embedding struct {
	// ChunkID identifies the chunk this embedding belongs to. It doubles
	// as the embedding's own identifier.
	ChunkID string

	// Model is the name of the model that produced the vector.
	Model string

	// Vector holds the embedding components.
	Vector []float32

	// Dimension is the declared vector length, stored alongside the
	// encoded vector and validated against it on read.
	Dimension int
}

// NewEmbedding builds an embedding whose dimension matches the vector.
func NewEmbedding(chunkID, model string, vector []float32) Embedding {
	return Embedding{
		ChunkID:   chunkID,
		Model:     model,
		Vector:    vector,
		Dimension: len(vector),
	}
}

// Stats reports store-level counts.
type Stats struct {
	Documents  int64
	Chunks     int64
	Embeddings int64
	SizeBytes  int64
}
