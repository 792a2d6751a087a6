// Package config loads docqa settings from an optional YAML file, a .env
// file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/knowledge"
	"github.com/barekit/docqa/pkg/memory"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs"`
	MaxUploadBytes   int64  `yaml:"max_upload_bytes"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// ChunkerConfig configures the fixed-size window chunker.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	UploadDir        string `yaml:"upload_dir"`
	EmbedConcurrency int    `yaml:"embed_concurrency"`
}

// LLMConfig configures the OpenAI-compatible chat provider.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// EmbedderConfig selects the embedder: "openai" or "hash".
type EmbedderConfig struct {
	Type      string `yaml:"type"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

// VectorStoreConfig selects the vector index: "qdrant", "postgres" or
// "inmemory".
type VectorStoreConfig struct {
	Type        string       `yaml:"type"`
	Qdrant      QdrantConfig `yaml:"qdrant"`
	PostgresDSN string       `yaml:"postgres_dsn"`
}

// Config is the root application configuration.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	TopK        int               `yaml:"top_k"`
	Ingest      IngestConfig      `yaml:"ingest"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Store       memory.Config     `yaml:"store"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             ":8000",
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 120,
			MaxUploadBytes:   10 << 20,
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Chunker: ChunkerConfig{Size: knowledge.DefaultChunkSize, Overlap: knowledge.DefaultChunkOverlap},
		TopK:    knowledge.DefaultTopK,
		Ingest:  IngestConfig{UploadDir: "uploads", EmbedConcurrency: 1},
		LLM:     LLMConfig{Model: "gpt-4o-mini"},
		Embedder: EmbedderConfig{
			Type:      "openai",
			Model:     "text-embedding-3-small",
			Dimension: 1536,
		},
		VectorStore: VectorStoreConfig{
			Type:   "qdrant",
			Qdrant: QdrantConfig{Host: "localhost", Port: 6334, Collection: "docqa_chunks"},
		},
		Store: memory.Config{Type: memory.TypeSQLite, ConnectionString: "docqa.db"},
	}
}

// Load reads path (if non-empty and present), then .env, then the
// environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipelines cannot run with.
func (c *Config) Validate() error {
	if _, err := knowledge.NewChunker(c.Chunker.Size, c.Chunker.Overlap); err != nil {
		return err
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", domain.ErrInvalidConfiguration)
	}
	if c.Ingest.EmbedConcurrency < 1 {
		return fmt.Errorf("%w: embed_concurrency must be at least 1", domain.ErrInvalidConfiguration)
	}
	switch c.Embedder.Type {
	case "openai", "hash":
	default:
		return fmt.Errorf("%w: unknown embedder %q", domain.ErrInvalidConfiguration, c.Embedder.Type)
	}
	switch c.VectorStore.Type {
	case "qdrant", "postgres", "inmemory":
	default:
		return fmt.Errorf("%w: unknown vector store %q", domain.ErrInvalidConfiguration, c.VectorStore.Type)
	}
	if c.Embedder.Dimension <= 0 {
		return fmt.Errorf("%w: embedder dimension must be positive", domain.ErrInvalidConfiguration)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	var errs []error
	num := func(dst *int, key string) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q is not a number", domain.ErrInvalidConfiguration, key, v))
				return
			}
			*dst = n
		}
	}
	flag := func(dst *bool, key string) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q is not a boolean", domain.ErrInvalidConfiguration, key, v))
				return
			}
			*dst = b
		}
	}

	flag(&cfg.Debug, "DOCQA_DEBUG")
	str(&cfg.Server.Addr, "DOCQA_ADDR")
	str(&cfg.Log.Level, "DOCQA_LOG_LEVEL")
	str(&cfg.Log.Format, "DOCQA_LOG_FORMAT")

	num(&cfg.Chunker.Size, "DOCQA_CHUNK_SIZE")
	num(&cfg.Chunker.Overlap, "DOCQA_CHUNK_OVERLAP")
	num(&cfg.TopK, "DOCQA_TOP_K")
	num(&cfg.Ingest.EmbedConcurrency, "DOCQA_EMBED_CONCURRENCY")
	str(&cfg.Ingest.UploadDir, "DOCQA_UPLOAD_DIR")

	str(&cfg.LLM.APIKey, "DOCQA_LLM_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY")
	str(&cfg.LLM.BaseURL, "DOCQA_LLM_BASE_URL", "OPENAI_BASE_URL")
	str(&cfg.LLM.Model, "DOCQA_LLM_MODEL")

	str(&cfg.Embedder.Type, "DOCQA_EMBEDDER")
	str(&cfg.Embedder.APIKey, "DOCQA_EMBEDDER_API_KEY", "OPENAI_API_KEY")
	str(&cfg.Embedder.BaseURL, "DOCQA_EMBEDDER_BASE_URL", "OPENAI_BASE_URL")
	str(&cfg.Embedder.Model, "DOCQA_EMBEDDER_MODEL")
	num(&cfg.Embedder.Dimension, "DOCQA_EMBEDDER_DIMENSION")

	str(&cfg.VectorStore.Type, "DOCQA_VECTOR_STORE")
	str(&cfg.VectorStore.Qdrant.Host, "QDRANT_HOST")
	num(&cfg.VectorStore.Qdrant.Port, "QDRANT_PORT")
	str(&cfg.VectorStore.Qdrant.APIKey, "QDRANT_API_KEY")
	flag(&cfg.VectorStore.Qdrant.UseTLS, "QDRANT_USE_TLS")
	str(&cfg.VectorStore.Qdrant.Collection, "QDRANT_COLLECTION")
	str(&cfg.VectorStore.PostgresDSN, "PGVECTOR_DSN")

	var storeType string
	str(&storeType, "DOCQA_STORE")
	if storeType != "" {
		cfg.Store.Type = memory.Type(strings.ToLower(storeType))
	}
	str(&cfg.Store.ConnectionString, "DOCQA_STORE_DSN")
	str(&cfg.Store.Username, "DOCQA_STORE_USERNAME")
	str(&cfg.Store.Password, "DOCQA_STORE_PASSWORD")
	str(&cfg.Store.DBName, "DOCQA_STORE_DB")

	return errors.Join(errs...)
}
