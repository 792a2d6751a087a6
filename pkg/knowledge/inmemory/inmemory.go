package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/barekit/docqa/pkg/domain"
)

type entry struct {
	chunk  domain.Chunk
	vector []float32
	seq    int
}

// Store implements knowledge.VectorStore with brute-force cosine distance.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	next    int
}

// New creates an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

func (s *Store) Insert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("number of vectors and chunks must match")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, ch := range chunks {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		s.entries[ch.ID] = entry{chunk: ch, vector: vec, seq: s.next}
		s.next++
	}
	return nil
}

func (s *Store) Query(ctx context.Context, vector []float32, owner string, topK int) ([]domain.Candidate, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		e        entry
		distance float32
	}
	var hits []scored
	for _, e := range s.entries {
		if e.chunk.Metadata.OwnerID != owner {
			continue
		}
		hits = append(hits, scored{e: e, distance: cosineDistance(vector, e.vector)})
	}

	// Insertion order breaks ties so results are deterministic.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].e.seq < hits[j].e.seq
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]domain.Candidate, len(hits))
	for i, h := range hits {
		out[i] = domain.Candidate{Chunk: h.e.chunk, Rank: i, Distance: h.distance}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, owner, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if e.chunk.Metadata.OwnerID == owner && e.chunk.Metadata.DocumentID == documentID {
			delete(s.entries, id)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

// Len returns the number of stored chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosineDistance(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}
