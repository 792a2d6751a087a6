package knowledge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/knowledge/inmemory"
)

func candidates(names ...string) []domain.Candidate {
	out := make([]domain.Candidate, len(names))
	for i, name := range names {
		out[i] = domain.Candidate{
			Rank: i,
			Chunk: domain.Chunk{
				ID:       fmt.Sprintf("%s_%d", name, i),
				Text:     fmt.Sprintf("text %d", i),
				Metadata: domain.ChunkMetadata{DocumentName: name},
			},
		}
	}
	return out
}

func ranks(cs []domain.Candidate) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.Rank
	}
	return out
}

func TestSelectDiverse_Empty(t *testing.T) {
	assert.Empty(t, SelectDiverse(nil, MaxSelected))
	assert.Empty(t, SelectDiverse([]domain.Candidate{}, MaxSelected))
}

func TestSelectDiverse_FourDistinctDocuments(t *testing.T) {
	got := SelectDiverse(candidates("a", "a", "b", "a", "c", "d", "e"), MaxSelected)
	assert.Equal(t, []int{0, 2, 4, 5}, ranks(got))

	names := map[string]struct{}{}
	for _, c := range got {
		names[c.DocumentName()] = struct{}{}
	}
	assert.Len(t, names, 4)
}

func TestSelectDiverse_FillPass(t *testing.T) {
	got := SelectDiverse(candidates("a", "a", "b", "a", "b", "a"), MaxSelected)
	// first occurrences of a and b, then the best remaining in rank order
	assert.Equal(t, []int{0, 2, 1, 3}, ranks(got))
}

func TestSelectDiverse_FewerThanLimit(t *testing.T) {
	got := SelectDiverse(candidates("a", "a", "a"), MaxSelected)
	assert.Equal(t, []int{0, 1, 2}, ranks(got))

	got = SelectDiverse(candidates("x"), MaxSelected)
	assert.Equal(t, []int{0}, ranks(got))
}

func TestSelectDiverse_IdenticalTextsAreDistinct(t *testing.T) {
	cs := candidates("a", "a", "a", "a", "a")
	for i := range cs {
		cs[i].Chunk.Text = "duplicate"
		cs[i].Chunk.ID = "same"
	}
	got := SelectDiverse(cs, MaxSelected)
	assert.Equal(t, []int{0, 1, 2, 3}, ranks(got))
}

func TestSelectDiverse_UnknownDocumentName(t *testing.T) {
	got := SelectDiverse(candidates("", "", "b"), MaxSelected)
	assert.Equal(t, []int{0, 2, 1}, ranks(got))
}

func TestSelectDiverse_Properties(t *testing.T) {
	lists := [][]string{
		{"a", "b", "c", "d"},
		{"d", "d", "c", "c", "b", "b", "a", "a"},
		{"a", "b", "a", "b", "a", "b"},
		{"a", "a", "a", "a", "a", "a"},
		{"a", "b", "c"},
		{"c", "a", "c", "b", "a", "d", "e", "f"},
	}
	for _, names := range lists {
		cs := candidates(names...)
		got := SelectDiverse(cs, MaxSelected)

		distinct := map[string]int{}
		for i, n := range names {
			if _, ok := distinct[n]; !ok {
				distinct[n] = i
			}
		}

		assert.Len(t, got, min(MaxSelected, len(cs)), "%v", names)
		if len(distinct) >= MaxSelected {
			seen := map[string]struct{}{}
			for _, c := range got {
				seen[c.DocumentName()] = struct{}{}
				// each pick is the best-ranked chunk of its document
				assert.Equal(t, distinct[c.DocumentName()], c.Rank, "%v", names)
			}
			assert.Len(t, seen, MaxSelected, "%v", names)
			continue
		}

		// pass-one picks form a prefix ordered by first occurrence
		for i := 0; i < len(distinct); i++ {
			assert.Equal(t, distinct[got[i].DocumentName()], got[i].Rank, "%v", names)
		}
	}
}

func TestSelectDiverse_Deterministic(t *testing.T) {
	cs := candidates("c", "a", "c", "b", "a")
	assert.Equal(t, SelectDiverse(cs, MaxSelected), SelectDiverse(cs, MaxSelected))
}

type failingStore struct {
	VectorStore
	err error
}

func (f failingStore) Query(context.Context, []float32, string, int) ([]domain.Candidate, error) {
	return nil, f.err
}

func TestRetriever_QueryError(t *testing.T) {
	boom := errors.New("index down")
	_, err := NewRetriever(failingStore{err: boom}, 0).Retrieve(context.Background(), []float32{1}, "alice")
	assert.ErrorIs(t, err, boom)
}

func TestRetriever_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()

	near := []float32{1, 0}
	far := []float32{0.6, 0.8}
	var chunks []domain.Chunk
	var vectors [][]float32
	for i := 0; i < 5; i++ {
		chunks = append(chunks, domain.Chunk{
			ID:       domain.ChunkID("bob-doc", i),
			Text:     "bob secret",
			Metadata: domain.ChunkMetadata{DocumentID: "bob-doc", DocumentName: "bob.txt", OwnerID: "bob"},
		})
		vectors = append(vectors, near)
	}
	chunks = append(chunks, domain.Chunk{
		ID:       domain.ChunkID("alice-doc", 0),
		Text:     "alice notes",
		Metadata: domain.ChunkMetadata{DocumentID: "alice-doc", DocumentName: "alice.txt", OwnerID: "alice"},
	})
	vectors = append(vectors, far)
	require.NoError(t, store.Insert(ctx, chunks, vectors))

	got, err := NewRetriever(store, DefaultTopK).Retrieve(ctx, near, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Chunk.Metadata.OwnerID)

	got, err = NewRetriever(store, DefaultTopK).Retrieve(ctx, near, "carol")
	require.NoError(t, err)
	assert.Empty(t, got)
}
