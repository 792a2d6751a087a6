package knowledge

import (
	"context"
	"fmt"
	"sync"

	"github.com/barekit/docqa/pkg/domain"
)

// Embedder is the interface for generating embeddings.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the interface for storing and retrieving chunk vectors.
// Every query is scoped to a single owner.
type VectorStore interface {
	// Insert stores chunks and their vectors. Both slices must have equal length.
	Insert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	// Query returns at most topK chunks owned by owner, nearest first.
	Query(ctx context.Context, vector []float32, owner string, topK int) ([]domain.Candidate, error)
	// Delete removes chunks by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error
	// DeleteDocument removes every chunk of one document. Deleting a document
	// with no chunks is not an error.
	DeleteDocument(ctx context.Context, owner, documentID string) error
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// KnowledgeBase combines an Embedder and a VectorStore.
type KnowledgeBase struct {
	Embedder    Embedder
	VectorStore VectorStore

	mu        sync.Mutex
	dimension int
}

// NewKnowledgeBase creates a new KnowledgeBase.
func NewKnowledgeBase(embedder Embedder, store VectorStore) *KnowledgeBase {
	return &KnowledgeBase{
		Embedder:    embedder,
		VectorStore: store,
	}
}

// EmbedText embeds a single text. Any provider failure, an empty result or a
// vector whose dimension differs from earlier calls is reported as
// domain.ErrEmbeddingUnavailable.
func (kb *KnowledgeBase) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := kb.Embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: provider returned no embedding", domain.ErrEmbeddingUnavailable)
	}

	vec := vectors[0]
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.dimension == 0 {
		kb.dimension = len(vec)
	} else if len(vec) != kb.dimension {
		return nil, fmt.Errorf("%w: embedding dimension changed from %d to %d",
			domain.ErrEmbeddingUnavailable, kb.dimension, len(vec))
	}
	return vec, nil
}

// Dimension returns the vector size observed so far, or 0 before the first
// successful embedding.
func (kb *KnowledgeBase) Dimension() int {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return kb.dimension
}
