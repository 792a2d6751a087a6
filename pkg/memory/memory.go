package memory

import (
	"context"

	"github.com/barekit/docqa/pkg/domain"
)

// UserStore persists accounts.
type UserStore interface {
	// CreateUser inserts a user; domain.ErrUserExists if the email is taken.
	CreateUser(ctx context.Context, user domain.User) error
	// GetUser finds a user by email; domain.ErrNotFound if absent.
	GetUser(ctx context.Context, email string) (*domain.User, error)
}

// DocumentStore persists document metadata per owner.
type DocumentStore interface {
	InsertDocument(ctx context.Context, doc domain.Document) error
	// ListDocuments returns the owner's documents, oldest first.
	ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error)
	// GetDocument returns domain.ErrDocumentNotFound for unknown ids and for
	// ids owned by someone else.
	GetDocument(ctx context.Context, ownerID, id string) (*domain.Document, error)
	// DeleteDocument returns domain.ErrDocumentNotFound when nothing was deleted.
	DeleteDocument(ctx context.Context, ownerID, id string) error
}

// HistoryStore persists the append-only chat log per owner.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry domain.ChatEntry) error
	// ListHistory returns the owner's entries ordered by timestamp.
	ListHistory(ctx context.Context, ownerID string) ([]domain.ChatEntry, error)
	ClearHistory(ctx context.Context, ownerID string) error
}

// Store is the relational dependency of the pipelines.
type Store interface {
	UserStore
	DocumentStore
	HistoryStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
