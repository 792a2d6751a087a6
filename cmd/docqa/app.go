package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/option"

	"github.com/barekit/docqa/pkg/account"
	"github.com/barekit/docqa/pkg/answer"
	"github.com/barekit/docqa/pkg/config"
	"github.com/barekit/docqa/pkg/files"
	"github.com/barekit/docqa/pkg/knowledge"
	"github.com/barekit/docqa/pkg/knowledge/hash"
	vecmem "github.com/barekit/docqa/pkg/knowledge/inmemory"
	embedopenai "github.com/barekit/docqa/pkg/knowledge/openai"
	"github.com/barekit/docqa/pkg/knowledge/postgres"
	"github.com/barekit/docqa/pkg/knowledge/qdrant"
	"github.com/barekit/docqa/pkg/llm"
	llmopenai "github.com/barekit/docqa/pkg/llm/openai"
	"github.com/barekit/docqa/pkg/memory"
	"github.com/barekit/docqa/pkg/rag"
)

// app holds the wired dependencies of one process.
type app struct {
	cfg      *config.Config
	service  *rag.Service
	accounts *account.Service
	closers  []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func openAIOptions(apiKey, baseURL string) []option.RequestOption {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return opts
}

func buildEmbedder(cfg config.EmbedderConfig) knowledge.Embedder {
	if cfg.Type == "hash" {
		return hash.New(cfg.Dimension)
	}
	e := embedopenai.NewEmbedder(openAIOptions(cfg.APIKey, cfg.BaseURL)...)
	e.SetModel(cfg.Model)
	return e
}

func buildVectorStore(ctx context.Context, cfg *config.Config) (knowledge.VectorStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.VectorStore.Type {
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		store, err := qdrant.New(ctx, qdrant.Config{
			Host:           q.Host,
			Port:           q.Port,
			APIKey:         q.APIKey,
			UseTLS:         q.UseTLS,
			CollectionName: q.Collection,
			VectorSize:     uint64(cfg.Embedder.Dimension),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize qdrant: %w", err)
		}
		return store, store.Close, nil
	case "postgres":
		store, err := postgres.New(cfg.VectorStore.PostgresDSN, cfg.Embedder.Dimension)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize pgvector: %w", err)
		}
		return store, noop, nil
	default:
		return vecmem.New(), noop, nil
	}
}

func buildLLM(cfg config.LLMConfig) llm.Provider {
	p := llmopenai.New(openAIOptions(cfg.APIKey, cfg.BaseURL)...)
	p.SetModel(cfg.Model)
	return p
}

// newApp loads configuration and wires every backend it names.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cfg.Log, stderr))

	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	vectors, closeVectors, err := buildVectorStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeVectors)

	store, err := memory.NewFactory(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	a.closers = append(a.closers, func() error { return store.Close(context.Background()) })

	local, err := files.NewLocal(cfg.Ingest.UploadDir)
	if err != nil {
		return nil, err
	}

	chunker, err := knowledge.NewChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}

	kb := knowledge.NewKnowledgeBase(buildEmbedder(cfg.Embedder), vectors)
	composer := answer.New(buildLLM(cfg.LLM), answer.WithDebug(cfg.Debug))
	a.service = rag.New(kb, composer, store, local,
		rag.WithChunker(chunker),
		rag.WithTopK(cfg.TopK),
		rag.WithEmbedConcurrency(cfg.Ingest.EmbedConcurrency),
		rag.WithDebug(cfg.Debug),
	)
	a.accounts = account.New(store)

	slog.Info("docqa initialized",
		"vector_store", cfg.VectorStore.Type,
		"store", cfg.Store.Type,
		"embedder", cfg.Embedder.Type,
	)
	ok = true
	return a, nil
}

func requireUser() (string, error) {
	u := strings.ToLower(strings.TrimSpace(userID))
	if u == "" {
		return "", errors.New("--user is required")
	}
	return u, nil
}
