// Package rag wires chunking, embedding, retrieval and answer composition
// into the ingestion and query pipelines.
package rag

import (
	"time"

	"github.com/google/uuid"

	"github.com/barekit/docqa/pkg/answer"
	"github.com/barekit/docqa/pkg/files"
	"github.com/barekit/docqa/pkg/knowledge"
	"github.com/barekit/docqa/pkg/memory"
)

// Service runs the document pipelines for many owners. It holds no per-owner
// state and is safe for concurrent use.
type Service struct {
	Knowledge *knowledge.KnowledgeBase
	Composer  *answer.Composer
	Store     memory.Store
	Files     files.Store

	Chunker          *knowledge.Chunker
	TopK             int
	EmbedConcurrency int
	Debug            bool

	retriever *knowledge.Retriever
	now       func() time.Time
	newID     func() string
}

// Option is a function that configures a Service.
type Option func(*Service)

// WithChunker replaces the default 800/100 chunker.
func WithChunker(c *knowledge.Chunker) Option {
	return func(s *Service) {
		s.Chunker = c
	}
}

// WithTopK sets how many candidates are fetched before diversity selection.
func WithTopK(k int) Option {
	return func(s *Service) {
		s.TopK = k
	}
}

// WithEmbedConcurrency bounds parallel chunk embedding during ingestion.
// Values below 2 embed sequentially.
func WithEmbedConcurrency(n int) Option {
	return func(s *Service) {
		s.EmbedConcurrency = n
	}
}

// WithDebug enables debug logging.
func WithDebug(enable bool) Option {
	return func(s *Service) {
		s.Debug = enable
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides the document id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// New creates a Service.
func New(kb *knowledge.KnowledgeBase, composer *answer.Composer, store memory.Store, fileStore files.Store, opts ...Option) *Service {
	s := &Service{
		Knowledge:        kb,
		Composer:         composer,
		Store:            store,
		Files:            fileStore,
		TopK:             knowledge.DefaultTopK,
		EmbedConcurrency: 1,
		now:              time.Now,
		newID:            uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.Chunker == nil {
		// Defaults are always valid.
		s.Chunker, _ = knowledge.NewChunker(knowledge.DefaultChunkSize, knowledge.DefaultChunkOverlap)
	}
	s.retriever = knowledge.NewRetriever(kb.VectorStore, s.TopK)
	return s
}
