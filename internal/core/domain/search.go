package domain

// SearchOptions configures a similarity search.
type SearchOptions struct {
	// Model restricts the scan to embeddings produced by this model.
	Model string

	// TopK is the maximum number of results to return.
	TopK int

	// Threshold is the minimum cosine similarity a candidate must reach
	// to be included. Filtering happens before top-k truncation.
	Threshold float64
}

// SearchResult is one ranked hit from a similarity search.
type SearchResult struct {
	// Chunk is the matching chunk.
	Chunk Chunk

	// Document is the chunk's owning document.
	Document Document

	// Similarity is the cosine similarity to the query vector, in [-1, 1].
	Similarity float64
}

// IngestionResult reports the outcome of a single ingestion request.
type IngestionResult struct {
	// Source is the descriptor of the ingested input.
	Source string

	// DocumentID identifies the created document, or the existing one
	// when Skipped is true.
	DocumentID string

	// ChunksCreated is the number of chunks stored.
	ChunksCreated int

	// EmbeddingsCreated is the number of embeddings stored.
	EmbeddingsCreated int

	// Skipped is true when identical content was already present and the
	// request was an idempotent no-op.
	Skipped bool

	// Err records why this input failed when ingesting a batch of files;
	// nil on success.
	Err error
}
