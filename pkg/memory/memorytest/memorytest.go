// Package memorytest holds behaviour checks shared by every memory.Store
// backend.
package memorytest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barekit/docqa/pkg/domain"
)

// Store mirrors memory.Store without importing it; the memory package
// imports every backend.
type Store interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, email string) (*domain.User, error)
	InsertDocument(ctx context.Context, doc domain.Document) error
	ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error)
	GetDocument(ctx context.Context, ownerID, id string) (*domain.Document, error)
	DeleteDocument(ctx context.Context, ownerID, id string) error
	AppendHistory(ctx context.Context, entry domain.ChatEntry) error
	ListHistory(ctx context.Context, ownerID string) ([]domain.ChatEntry, error)
	ClearHistory(ctx context.Context, ownerID string) error
	Ping(ctx context.Context) error
}

// Run exercises store. Identifiers are random so the checks can share a
// persistent backend.
func Run(t *testing.T, store Store) {
	ctx := context.Background()
	suffix := uuid.NewString()[:8]
	alice := "alice-" + suffix + "@example.com"
	bob := "bob-" + suffix + "@example.com"
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Users", func(t *testing.T) {
		user := domain.User{ID: alice, Email: alice, PasswordHash: "hash", FullName: "Alice", CreatedAt: base}
		require.NoError(t, store.CreateUser(ctx, user))
		assert.ErrorIs(t, store.CreateUser(ctx, user), domain.ErrUserExists)

		got, err := store.GetUser(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, alice, got.ID)
		assert.Equal(t, alice, got.Email)
		assert.Equal(t, "hash", got.PasswordHash)
		assert.Equal(t, "Alice", got.FullName)

		_, err = store.GetUser(ctx, "nobody-"+suffix+"@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Documents", func(t *testing.T) {
		older := domain.Document{ID: uuid.NewString(), OwnerID: alice, Name: "b.txt", StoredName: "x/b.txt", UploadedAt: base}
		newer := domain.Document{ID: uuid.NewString(), OwnerID: alice, Name: "a.txt", StoredName: "x/a.txt", UploadedAt: base.Add(time.Minute)}
		other := domain.Document{ID: uuid.NewString(), OwnerID: bob, Name: "c.txt", StoredName: "y/c.txt", UploadedAt: base}
		require.NoError(t, store.InsertDocument(ctx, newer))
		require.NoError(t, store.InsertDocument(ctx, older))
		require.NoError(t, store.InsertDocument(ctx, other))

		docs, err := store.ListDocuments(ctx, alice)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, older.ID, docs[0].ID)
		assert.Equal(t, newer.ID, docs[1].ID)
		assert.Equal(t, "b.txt", docs[0].Name)
		assert.Equal(t, "x/b.txt", docs[0].StoredName)
		assert.True(t, older.UploadedAt.Equal(docs[0].UploadedAt))

		got, err := store.GetDocument(ctx, alice, newer.ID)
		require.NoError(t, err)
		assert.Equal(t, "a.txt", got.Name)
		assert.Equal(t, alice, got.OwnerID)

		_, err = store.GetDocument(ctx, alice, other.ID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
		assert.ErrorIs(t, store.DeleteDocument(ctx, alice, other.ID), domain.ErrDocumentNotFound)

		require.NoError(t, store.DeleteDocument(ctx, alice, older.ID))
		assert.ErrorIs(t, store.DeleteDocument(ctx, alice, older.ID), domain.ErrDocumentNotFound)

		docs, err = store.ListDocuments(ctx, alice)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, newer.ID, docs[0].ID)

		docs, err = store.ListDocuments(ctx, bob)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("History", func(t *testing.T) {
		sources := []domain.Source{
			{DocumentName: "a.txt", Content: "it's \"quoted\"\nline two"},
			{DocumentName: "b.txt", Content: "second"},
		}
		require.NoError(t, store.AppendHistory(ctx, domain.ChatEntry{
			OwnerID: alice, Question: "second?", Answer: "two", Timestamp: base.Add(2 * time.Second),
		}))
		require.NoError(t, store.AppendHistory(ctx, domain.ChatEntry{
			OwnerID: alice, Question: "first?", Answer: "one", Sources: sources, Timestamp: base.Add(time.Second),
		}))
		require.NoError(t, store.AppendHistory(ctx, domain.ChatEntry{
			OwnerID: bob, Question: "bob?", Answer: "b", Timestamp: base,
		}))

		entries, err := store.ListHistory(ctx, alice)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "first?", entries[0].Question)
		assert.Equal(t, "one", entries[0].Answer)
		assert.Equal(t, sources, entries[0].Sources)
		assert.True(t, base.Add(time.Second).Equal(entries[0].Timestamp))
		assert.Equal(t, "second?", entries[1].Question)
		assert.Empty(t, entries[1].Sources)

		require.NoError(t, store.ClearHistory(ctx, alice))
		require.NoError(t, store.ClearHistory(ctx, alice))
		entries, err = store.ListHistory(ctx, alice)
		require.NoError(t, err)
		assert.Empty(t, entries)

		entries, err = store.ListHistory(ctx, bob)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
