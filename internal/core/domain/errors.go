package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation indicates a uniqueness or foreign-key breach
	// outside the normal dedup path. This is a logic bug, not user error.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrValidation indicates malformed input such as a vector whose
	// declared dimension does not match its component count.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidChunkConfig indicates invalid chunking parameters
	// (size must be greater than overlap, overlap must be positive).
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrModelNotFound indicates the embedding model is absent upstream.
	// This is terminal: the acquisition adapter must not retry it.
	ErrModelNotFound = errors.New("embedding model not found")

	// ErrEmbeddingUnavailable indicates the embedding service could not be
	// reached or kept failing after retries were exhausted.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
