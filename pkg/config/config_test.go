package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/memory"
)

func lookupFrom(env map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 800, cfg.Chunker.Size)
	assert.Equal(t, 100, cfg.Chunker.Overlap)
	assert.Equal(t, 6, cfg.TopK)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docqa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunker:
  size: 400
  overlap: 50
top_k: 8
embedder:
  type: hash
  dimension: 128
vector_store:
  type: inmemory
store:
  type: redis
  dsn: redis://localhost:6379/0
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Chunker.Size)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
	assert.Equal(t, 8, cfg.TopK)
	assert.Equal(t, "hash", cfg.Embedder.Type)
	assert.Equal(t, 128, cfg.Embedder.Dimension)
	assert.Equal(t, "inmemory", cfg.VectorStore.Type)
	assert.Equal(t, memory.TypeRedis, cfg.Store.Type)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Store.ConnectionString)
	// Unset keys keep their defaults.
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Chunker, cfg.Chunker)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k: [oops"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := applyEnv(cfg, lookupFrom(map[string]string{
		"DOCQA_CHUNK_SIZE":        "500",
		"DOCQA_EMBED_CONCURRENCY": "4",
		"OPENAI_API_KEY":          "sk-openai",
		"OPENROUTER_API_KEY":      "sk-router",
		"DOCQA_STORE":             "Mongo",
		"DOCQA_STORE_DSN":         "mongodb://localhost",
		"QDRANT_USE_TLS":          "true",
		"DOCQA_DEBUG":             "1",
	}))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunker.Size)
	assert.Equal(t, 4, cfg.Ingest.EmbedConcurrency)
	assert.Equal(t, "sk-router", cfg.LLM.APIKey)
	assert.Equal(t, "sk-openai", cfg.Embedder.APIKey)
	assert.Equal(t, memory.TypeMongo, cfg.Store.Type)
	assert.Equal(t, "mongodb://localhost", cfg.Store.ConnectionString)
	assert.True(t, cfg.VectorStore.Qdrant.UseTLS)
	assert.True(t, cfg.Debug)
}

func TestApplyEnv_BadNumber(t *testing.T) {
	err := applyEnv(Default(), lookupFrom(map[string]string{"DOCQA_TOP_K": "six"}))
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equals size", func(c *Config) { c.Chunker.Overlap = c.Chunker.Size }},
		{"zero size", func(c *Config) { c.Chunker.Size = 0 }},
		{"zero top_k", func(c *Config) { c.TopK = 0 }},
		{"zero concurrency", func(c *Config) { c.Ingest.EmbedConcurrency = 0 }},
		{"unknown embedder", func(c *Config) { c.Embedder.Type = "word2vec" }},
		{"unknown vector store", func(c *Config) { c.VectorStore.Type = "chroma" }},
		{"zero dimension", func(c *Config) { c.Embedder.Dimension = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidConfiguration)
		})
	}
}
