package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/knowledge/storetest"
)

func chunk(owner, doc string, ordinal int) domain.Chunk {
	return domain.Chunk{
		ID:   domain.ChunkID(doc, ordinal),
		Text: doc,
		Metadata: domain.ChunkMetadata{
			DocumentID:   doc,
			DocumentName: doc + ".txt",
			OwnerID:      owner,
		},
	}
}

func TestStore_InsertLengthMismatch(t *testing.T) {
	s := New()
	err := s.Insert(context.Background(), []domain.Chunk{chunk("a", "d", 0)}, nil)
	assert.Error(t, err)
	assert.Zero(t, s.Len())
}

func TestStore_QueryRanking(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Insert(ctx,
		[]domain.Chunk{chunk("a", "far", 0), chunk("a", "near", 0), chunk("a", "mid", 0), chunk("b", "other", 0)},
		[][]float32{{0, 1}, {1, 0}, {1, 1}, {1, 0}},
	))

	got, err := s.Query(ctx, []float32{1, 0}, "a", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "near_0", got[0].Chunk.ID)
	assert.Equal(t, "mid_0", got[1].Chunk.ID)
	assert.Equal(t, 0, got[0].Rank)
	assert.Equal(t, 1, got[1].Rank)
	assert.LessOrEqual(t, got[0].Distance, got[1].Distance)

	got, err = s.Query(ctx, []float32{1, 0}, "a", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Insert(ctx,
		[]domain.Chunk{chunk("a", "d1", 0), chunk("a", "d1", 1), chunk("a", "d2", 0), chunk("b", "d3", 0)},
		[][]float32{{1}, {1}, {1}, {1}},
	))

	require.NoError(t, s.DeleteDocument(ctx, "a", "d1"))
	assert.Equal(t, 2, s.Len())
	require.NoError(t, s.DeleteDocument(ctx, "a", "d1"))
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Delete(ctx, []string{"d2_0", "missing"}))
	require.NoError(t, s.Delete(ctx, []string{"d2_0"}))
	assert.Equal(t, 1, s.Len())
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, New())
}
