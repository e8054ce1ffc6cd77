package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	// Point at a missing file in an explicit-less way by loading a
	// directory with no config present.
	cfg := Default()

	assert.Equal(t, ":8000", cfg.Server.ListenAddr)
	assert.Equal(t, "nomic", cfg.Embedding.Provider)
	assert.Equal(t, 4, cfg.Ingestion.Workers)
	assert.Equal(t, 50, cfg.Ingestion.MaxUploadMiB)
	assert.Equal(t, 4, cfg.Ingestion.TopK)
	assert.NoError(t, cfg.validate())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
[server]
listen_addr = ":9000"

[qdrant]
url = "http://qdrant.internal:6333"
collection = "custom"

[embedding]
provider = "openai"
model = "text-embedding-3-small"
requests_per_second = 2.5

[ingestion]
workers = 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.Equal(t, "http://qdrant.internal:6333", cfg.Qdrant.URL)
	assert.Equal(t, "custom", cfg.Qdrant.Collection)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 2.5, cfg.Embedding.RequestsPerSecond)
	assert.Equal(t, 8, cfg.Ingestion.Workers)
	// Sections missing from the file keep their defaults.
	assert.Equal(t, 4, cfg.Ingestion.TopK)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, "[server\nbroken")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesSecrets(t *testing.T) {
	path := writeConfig(t, `
[llm]
api_key = "from-file"
`)

	t.Setenv("OPENROUTER_API_KEY", "from-env")
	t.Setenv("NOMIC_API_KEY", "nomic-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "nomic-env", cfg.Embedding.APIKey)
}

func TestEnvKeyFollowsProvider(t *testing.T) {
	path := writeConfig(t, `
[embedding]
provider = "openai"
`)

	t.Setenv("OPENAI_API_KEY", "openai-env")
	t.Setenv("NOMIC_API_KEY", "nomic-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai-env", cfg.Embedding.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"zero workers", func(c *Config) { c.Ingestion.Workers = 0 }},
		{"zero upload ceiling", func(c *Config) { c.Ingestion.MaxUploadMiB = 0 }},
		{"zero top_k", func(c *Config) { c.Ingestion.TopK = 0 }},
		{"negative rate limit", func(c *Config) { c.Embedding.RequestsPerSecond = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}
