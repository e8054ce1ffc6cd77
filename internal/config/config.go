// Package config loads the server configuration from a TOML file with
// environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultListenAddr    = ":8000"
	DefaultWorkers       = 4
	DefaultMaxUploadMiB  = 50
	DefaultTopK          = 4
	DefaultEmbedProvider = "nomic"
)

// Config is the full server configuration.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `toml:"server"`

	// Storage configures metadata and upload persistence.
	Storage StorageConfig `toml:"storage"`

	// Qdrant configures the vector index.
	Qdrant QdrantConfig `toml:"qdrant"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `toml:"embedding"`

	// LLM configures answer generation.
	LLM LLMConfig `toml:"llm"`

	// Ingestion configures the background processing pool.
	Ingestion IngestionConfig `toml:"ingestion"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// ListenAddr is the address to bind, e.g. ":8000".
	ListenAddr string `toml:"listen_addr"`
}

// StorageConfig configures metadata and upload persistence.
type StorageConfig struct {
	// DataDir holds the SQLite database. Empty means ~/.documind/data.
	DataDir string `toml:"data_dir"`

	// UploadDir holds raw uploaded files. Empty means ~/.documind/uploads.
	UploadDir string `toml:"upload_dir"`
}

// QdrantConfig configures the vector index.
type QdrantConfig struct {
	// URL is the Qdrant base URL.
	URL string `toml:"url"`

	// APIKey authenticates requests. Overridden by QDRANT_API_KEY.
	APIKey string `toml:"api_key"`

	// Collection is the collection name.
	Collection string `toml:"collection"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider selects the adapter: nomic or openai.
	Provider string `toml:"provider"`

	// APIKey authenticates requests. Overridden by NOMIC_API_KEY or
	// OPENAI_API_KEY depending on the provider.
	APIKey string `toml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url"`

	// Model overrides the provider's default model.
	Model string `toml:"model"`

	// RequestsPerSecond caps embedding provider calls. Zero disables the
	// limiter.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// LLMConfig configures answer generation.
type LLMConfig struct {
	// APIKey authenticates requests. Overridden by OPENROUTER_API_KEY.
	APIKey string `toml:"api_key"`

	// BaseURL overrides the default OpenRouter endpoint.
	BaseURL string `toml:"base_url"`

	// Model overrides the default chat model.
	Model string `toml:"model"`
}

// IngestionConfig configures the background processing pool.
type IngestionConfig struct {
	// Workers is the number of concurrent ingestion workers.
	Workers int `toml:"workers"`

	// MaxUploadMiB is the upload size ceiling in MiB.
	MaxUploadMiB int `toml:"max_upload_mib"`

	// TopK is the number of chunks retrieved per chat query.
	TopK int `toml:"top_k"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{ListenAddr: DefaultListenAddr},
		Qdrant: QdrantConfig{URL: "http://localhost:6333"},
		Embedding: EmbeddingConfig{
			Provider: DefaultEmbedProvider,
		},
		Ingestion: IngestionConfig{
			Workers:      DefaultWorkers,
			MaxUploadMiB: DefaultMaxUploadMiB,
			TopK:         DefaultTopK,
		},
	}
}

// Load reads configuration from the TOML file at path, falling back to
// defaults for anything unset. If path is empty, ~/.documind/config.toml
// is used when present; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".documind", "config.toml")
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
			// No config file yet - that's fine, run on defaults
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides secrets from the environment. Keys in the config
// file are a convenience; the environment always wins.
func (c *Config) applyEnv() {
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		c.Qdrant.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}

	switch c.Embedding.Provider {
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.Embedding.APIKey = v
		}
	default:
		if v := os.Getenv("NOMIC_API_KEY"); v != "" {
			c.Embedding.APIKey = v
		}
	}
}

// validate checks the parts that cannot be defaulted.
func (c *Config) validate() error {
	if c.Embedding.Provider != "nomic" && c.Embedding.Provider != "openai" {
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Ingestion.Workers <= 0 {
		return fmt.Errorf("ingestion workers must be positive, got %d", c.Ingestion.Workers)
	}
	if c.Ingestion.MaxUploadMiB <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.Ingestion.MaxUploadMiB)
	}
	if c.Ingestion.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.Ingestion.TopK)
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %g", c.Embedding.RequestsPerSecond)
	}
	return nil
}
