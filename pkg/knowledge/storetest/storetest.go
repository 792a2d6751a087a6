// Package storetest holds behaviour checks shared by every
// knowledge.VectorStore implementation.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/knowledge"
)

func makeChunks(owner, documentID, name string, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:   domain.ChunkID(documentID, i),
			Text: fmt.Sprintf("%s chunk %d", name, i),
			Metadata: domain.ChunkMetadata{
				DocumentID:   documentID,
				DocumentName: name,
				OwnerID:      owner,
			},
		}
	}
	return chunks
}

func repeat(v []float32, n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Run exercises store with 3-dimensional vectors. Owners and document ids are
// random so the checks can share a persistent backend.
func Run(t *testing.T, store knowledge.VectorStore) {
	ctx := context.Background()
	alice := "alice-" + uuid.NewString()
	bob := "bob-" + uuid.NewString()
	docA := uuid.NewString()
	docB := uuid.NewString()
	docBob := uuid.NewString()

	t.Run("LengthMismatch", func(t *testing.T) {
		err := store.Insert(ctx, makeChunks(alice, docA, "a.txt", 2), [][]float32{{1, 0, 0}})
		assert.Error(t, err)
	})

	require.NoError(t, store.Insert(ctx, makeChunks(alice, docA, "a.txt", 3), repeat([]float32{0, 1, 0}, 3)))
	require.NoError(t, store.Insert(ctx, makeChunks(alice, docB, "b.txt", 1), [][]float32{{1, 0.1, 0}}))
	require.NoError(t, store.Insert(ctx, makeChunks(bob, docBob, "secret.txt", 4), repeat([]float32{1, 0, 0}, 4)))

	t.Run("QueryRanksAndFiltersByOwner", func(t *testing.T) {
		got, err := store.Query(ctx, []float32{1, 0, 0}, alice, 10)
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, domain.ChunkID(docB, 0), got[0].Chunk.ID)
		assert.Equal(t, "b.txt", got[0].Chunk.Metadata.DocumentName)
		assert.Equal(t, docB, got[0].Chunk.Metadata.DocumentID)
		for i, c := range got {
			assert.Equal(t, alice, c.Chunk.Metadata.OwnerID)
			assert.Equal(t, i, c.Rank)
			assert.NotEmpty(t, c.Chunk.Text)
			if i > 0 {
				assert.LessOrEqual(t, got[i-1].Distance, c.Distance)
			}
		}
	})

	t.Run("QueryHonoursTopK", func(t *testing.T) {
		got, err := store.Query(ctx, []float32{0, 1, 0}, alice, 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("DeleteByID", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, []string{domain.ChunkID(docA, 0), "missing_0"}))
		require.NoError(t, store.Delete(ctx, []string{domain.ChunkID(docA, 0)}))
		got, err := store.Query(ctx, []float32{0, 1, 0}, alice, 10)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("DeleteDocumentIsIdempotent", func(t *testing.T) {
		require.NoError(t, store.DeleteDocument(ctx, alice, docA))
		require.NoError(t, store.DeleteDocument(ctx, alice, docA))
		require.NoError(t, store.DeleteDocument(ctx, alice, uuid.NewString()))

		got, err := store.Query(ctx, []float32{0, 1, 0}, alice, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, docB, got[0].Chunk.Metadata.DocumentID)

		// a document id belonging to someone else is untouched
		require.NoError(t, store.DeleteDocument(ctx, alice, docBob))
		got, err = store.Query(ctx, []float32{1, 0, 0}, bob, 10)
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
