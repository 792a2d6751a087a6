package rag

import (
	"context"
	"log/slog"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Status reports the health of each dependency.
type Status struct {
	Backend     string `json:"backend"`
	Database    string `json:"database"`
	VectorIndex string `json:"vector_index"`
	Storage     string `json:"storage"`
	LLM         string `json:"llm"`
}

// Healthy reports whether every dependency is ok.
func (st Status) Healthy() bool {
	return st.Database == StatusOK && st.VectorIndex == StatusOK && st.Storage == StatusOK && st.LLM == StatusOK
}

// Status probes the stores and the model provider. The provider probe embeds
// a short string.
func (s *Service) Status(ctx context.Context) Status {
	return Status{
		Backend:     StatusOK,
		Database:    probe("database", s.Store.Ping(ctx)),
		VectorIndex: probe("vector index", s.Knowledge.VectorStore.Ping(ctx)),
		Storage:     probe("storage", s.Files.Ping(ctx)),
		LLM:         probe("llm", s.embedProbe(ctx)),
	}
}

func (s *Service) embedProbe(ctx context.Context) error {
	_, err := s.Knowledge.Embedder.Embed(ctx, []string{"health check"})
	return err
}

func probe(name string, err error) string {
	if err != nil {
		slog.Warn("health check failed", "component", name, "error", err)
		return StatusError
	}
	return StatusOK
}
