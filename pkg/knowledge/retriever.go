package knowledge

import (
	"context"
	"fmt"

	"github.com/barekit/docqa/pkg/domain"
)

const (
	// DefaultTopK is how many candidates are fetched before selection.
	DefaultTopK = 6
	// MaxSelected bounds the context handed to the answer composer.
	MaxSelected = 4
)

// Retriever fetches an over-sized candidate set for an owner and narrows it
// to a small, cross-document context.
type Retriever struct {
	store VectorStore
	topK  int
}

// NewRetriever creates a Retriever. A non-positive topK uses DefaultTopK.
func NewRetriever(store VectorStore, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{store: store, topK: topK}
}

// Retrieve queries the vector store scoped to owner and applies SelectDiverse.
func (r *Retriever) Retrieve(ctx context.Context, vector []float32, owner string) ([]domain.Candidate, error) {
	candidates, err := r.store.Query(ctx, vector, owner, r.topK)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	return SelectDiverse(candidates, MaxSelected), nil
}

// SelectDiverse picks at most limit candidates from a best-first list.
// The first pass takes the best chunk of each distinct document name; if that
// leaves free slots, the second pass fills them with the remaining candidates
// in rank order. Selection is tracked by position, so identical chunk texts
// are still distinct candidates.
func SelectDiverse(candidates []domain.Candidate, limit int) []domain.Candidate {
	if len(candidates) == 0 || limit <= 0 {
		return nil
	}

	selected := make([]domain.Candidate, 0, min(limit, len(candidates)))
	taken := make([]bool, len(candidates))
	seen := make(map[string]struct{})

	for i, c := range candidates {
		if len(selected) >= limit {
			break
		}
		name := c.DocumentName()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		taken[i] = true
		selected = append(selected, c)
	}

	for i, c := range candidates {
		if len(selected) >= limit {
			break
		}
		if taken[i] {
			continue
		}
		taken[i] = true
		selected = append(selected, c)
	}

	return selected
}
