// Package file provides TOML-backed configuration for the CLI.
//
// Configuration lives at ~/.vectdb/config.toml by default. A missing
// file is not an error; defaults apply, and `vectdb init` writes them
// out for editing.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/vectlabs/vectdb/internal/core/domain"
)

// Embedding provider names.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config is the full application configuration.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Ollama    OllamaConfig    `toml:"ollama"`
	OpenAI    OpenAIConfig    `toml:"openai"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Search    SearchConfig    `toml:"search"`
}

// EmbeddingConfig selects which embedding backend to use.
type EmbeddingConfig struct {
	// Provider is "ollama" or "openai".
	Provider string `toml:"provider"`
}

// DatabaseConfig configures the SQLite content store.
type DatabaseConfig struct {
	// Dir is the directory holding the database file. Empty means
	// ~/.vectdb.
	Dir string `toml:"dir"`
}

// OllamaConfig configures the Ollama embedding backend.
type OllamaConfig struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

// OpenAIConfig configures the OpenAI embedding backend. The API key may
// also come from the OPENAI_API_KEY environment variable, which takes
// precedence over the file.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// ChunkingConfig configures the default chunking strategy.
type ChunkingConfig struct {
	Strategy string `toml:"strategy"`
	Size     int    `toml:"size"`
	Overlap  int    `toml:"overlap"`
	MaxSize  int    `toml:"max_size"`
}

// SearchConfig configures search defaults.
type SearchConfig struct {
	TopK      int     `toml:"top_k"`
	Threshold float64 `toml:"threshold"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Embedding: EmbeddingConfig{
			Provider: ProviderOllama,
		},
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost:11434",
			Model:          "nomic-embed-text",
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
		OpenAI: OpenAIConfig{
			Model: "text-embedding-3-small",
		},
		Chunking: ChunkingConfig{
			Strategy: domain.StrategyFixed,
			Size:     domain.DefaultChunkSize,
			Overlap:  domain.DefaultChunkOverlap,
			MaxSize:  domain.DefaultChunkSize,
		},
		Search: SearchConfig{
			TopK:      10,
			Threshold: 0.0,
		},
	}
}

// DefaultPath returns the default config file location,
// ~/.vectdb/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".vectdb", "config.toml"), nil
}

// Load reads configuration from path, falling back to DefaultPath when
// path is empty. A missing file yields the defaults. Values in the
// OPENAI_API_KEY environment variable override the file.
func Load(path string) (Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return Config{}, err
		}
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	} else if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the configuration to path with restricted permissions,
// creating parent directories as needed.
func (c Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	// The file may hold an API key
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrValidation, c.Embedding.Provider)
	}

	switch c.Chunking.Strategy {
	case domain.StrategyFixed:
		if c.Chunking.Overlap <= 0 || c.Chunking.Size <= c.Chunking.Overlap {
			return fmt.Errorf("%w: chunk size %d must exceed overlap %d and overlap must be positive",
				domain.ErrInvalidChunkConfig, c.Chunking.Size, c.Chunking.Overlap)
		}
	case domain.StrategySemantic:
		if c.Chunking.MaxSize <= 0 {
			return fmt.Errorf("%w: chunk max size %d must be positive",
				domain.ErrInvalidChunkConfig, c.Chunking.MaxSize)
		}
	default:
		return fmt.Errorf("%w: unknown chunking strategy %q",
			domain.ErrInvalidChunkConfig, c.Chunking.Strategy)
	}

	if c.Search.TopK <= 0 {
		return fmt.Errorf("%w: search top_k %d must be positive", domain.ErrValidation, c.Search.TopK)
	}
	if c.Search.Threshold < -1 || c.Search.Threshold > 1 {
		return fmt.Errorf("%w: search threshold %v must be within [-1, 1]", domain.ErrValidation, c.Search.Threshold)
	}
	return nil
}

// Model returns the default embedding model for the selected provider.
func (c Config) Model() string {
	if c.Embedding.Provider == ProviderOpenAI {
		return c.OpenAI.Model
	}
	return c.Ollama.Model
}

// Strategy converts the chunking section into a domain strategy.
func (c Config) Strategy() domain.ChunkStrategy {
	if c.Chunking.Strategy == domain.StrategySemantic {
		return domain.SemanticStrategy(c.Chunking.MaxSize)
	}
	return domain.FixedStrategy(c.Chunking.Size, c.Chunking.Overlap)
}
