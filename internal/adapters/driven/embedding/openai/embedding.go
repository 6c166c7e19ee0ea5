// Package openai provides an embedding service adapter backed by the
// OpenAI embeddings API, or any compatible endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/vectlabs/vectdb/internal/core/domain"
	"github.com/vectlabs/vectdb/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries bounds how often a transient failure is retried.
	DefaultMaxRetries = 3

	// initialBackoff is the delay before the first retry; it doubles on
	// each subsequent one.
	initialBackoff = 100 * time.Millisecond
)

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL, for Azure OpenAI or
	// compatible endpoints. Empty uses the OpenAI default.
	BaseURL string

	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration

	// MaxRetries is the number of retries after a transient failure
	// (default: 3). Negative disables retrying.
	MaxRetries int
}

// EmbeddingService generates embeddings using the OpenAI API.
type EmbeddingService struct {
	client     *gopenai.Client
	maxRetries int
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrValidation)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	clientCfg := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &EmbeddingService{
		client:     gopenai.NewClientWithConfig(clientCfg),
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Embed generates a vector embedding for the given text. Transient
// failures are retried with exponential backoff; an unknown model
// surfaces immediately as domain.ErrModelNotFound.
func (s *EmbeddingService) Embed(ctx context.Context, model, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, model, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call.
// The result preserves input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		resp, err := s.client.CreateEmbeddings(ctx, gopenai.EmbeddingRequest{
			Model: gopenai.EmbeddingModel(model),
			Input: texts,
		})
		if err != nil {
			if isModelNotFound(err) {
				return nil, fmt.Errorf("%w: model %q", domain.ErrModelNotFound, model)
			}
			if !isRetryable(err) {
				return nil, fmt.Errorf("creating embeddings: %w", err)
			}
			lastErr = err
			continue
		}

		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
		}

		// The API may reorder entries; Index restores input order.
		embeddings := make([][]float32, len(texts))
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(embeddings) {
				return nil, fmt.Errorf("openai returned out-of-range index %d", item.Index)
			}
			embeddings[item.Index] = item.Embedding
		}
		return embeddings, nil
	}

	return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, lastErr)
}

// HealthCheck reports whether the API is reachable with the configured
// credentials.
func (s *EmbeddingService) HealthCheck(ctx context.Context) bool {
	_, err := s.client.ListModels(ctx)
	return err == nil
}

// ListModels returns the models available to the configured API key.
func (s *EmbeddingService) ListModels(ctx context.Context) ([]driven.ModelInfo, error) {
	list, err := s.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	models := make([]driven.ModelInfo, len(list.Models))
	for i, m := range list.Models {
		models[i] = driven.ModelInfo{
			Name:       m.ID,
			ModifiedAt: time.Unix(m.CreatedAt, 0).UTC().Format(time.RFC3339),
		}
	}
	return models, nil
}

// HasModel reports whether the named model is available.
func (s *EmbeddingService) HasModel(ctx context.Context, name string) (bool, error) {
	models, err := s.ListModels(ctx)
	if err != nil {
		return false, err
	}

	for _, m := range models {
		if m.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// isModelNotFound reports whether err is the API telling us the model
// does not exist.
func isModelNotFound(err error) bool {
	var apiErr *gopenai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.HTTPStatusCode == http.StatusNotFound
}

// isRetryable reports whether err is worth retrying: network failures,
// rate limiting, and server-side errors.
func isRetryable(err error) bool {
	var apiErr *gopenai.APIError
	if !errors.As(err, &apiErr) {
		// Transport-level failure.
		return true
	}
	return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
		apiErr.HTTPStatusCode >= http.StatusInternalServerError
}
