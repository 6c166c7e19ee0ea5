package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations wrap an external generation capability (Ollama, OpenAI)
// and own retry policy: transient failures (network, timeout, server
// errors) are retried with exponential backoff, while a missing model is
// terminal and surfaces immediately as domain.ErrModelNotFound.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, model, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. The result
	// preserves input order and length.
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error)

	// HealthCheck reports whether the service is reachable.
	// Unreachability is reported as false, never as an error.
	HealthCheck(ctx context.Context) bool

	// ListModels returns the models available upstream.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// HasModel reports whether the named model is available, accepting
	// both "model" and "model:tag" forms.
	HasModel(ctx context.Context, name string) (bool, error)
}

// ModelInfo describes one model available from the embedding service.
type ModelInfo struct {
	// Name is the model identifier, possibly including a tag.
	Name string

	// Size is the model size in bytes, when reported.
	Size int64

	// ModifiedAt is the upstream modification timestamp, when reported.
	ModifiedAt string
}
