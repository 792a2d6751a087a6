package inmemory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/barekit/docqa/pkg/domain"
)

// InMemory implements memory.Store using maps.
type InMemory struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	documents map[string][]domain.Document
	history   map[string][]domain.ChatEntry
	nextID    int
}

// New creates a new InMemory adapter.
func New() *InMemory {
	return &InMemory{
		users:     make(map[string]domain.User),
		documents: make(map[string][]domain.Document),
		history:   make(map[string][]domain.ChatEntry),
	}
}

func (m *InMemory) CreateUser(ctx context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Email]; ok {
		return domain.ErrUserExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *InMemory) GetUser(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *InMemory) InsertDocument(ctx context.Context, doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.documents[doc.OwnerID] = append(m.documents[doc.OwnerID], doc)
	return nil
}

func (m *InMemory) ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to avoid race conditions if the caller modifies the slice
	docs := make([]domain.Document, len(m.documents[ownerID]))
	copy(docs, m.documents[ownerID])
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].UploadedAt.Before(docs[j].UploadedAt) })
	return docs, nil
}

func (m *InMemory) GetDocument(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.documents[ownerID] {
		if d.ID == id {
			doc := d
			return &doc, nil
		}
	}
	return nil, domain.ErrDocumentNotFound
}

func (m *InMemory) DeleteDocument(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.documents[ownerID]
	for i, d := range docs {
		if d.ID == id {
			m.documents[ownerID] = append(docs[:i:i], docs[i+1:]...)
			return nil
		}
	}
	return domain.ErrDocumentNotFound
}

func (m *InMemory) AppendHistory(ctx context.Context, entry domain.ChatEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	entry.ID = strconv.Itoa(m.nextID)
	entry.Sources = append([]domain.Source{}, entry.Sources...)
	m.history[entry.OwnerID] = append(m.history[entry.OwnerID], entry)
	return nil
}

func (m *InMemory) ListHistory(ctx context.Context, ownerID string) ([]domain.ChatEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]domain.ChatEntry, len(m.history[ownerID]))
	copy(entries, m.history[ownerID])
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
	return entries, nil
}

func (m *InMemory) ClearHistory(ctx context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.history, ownerID)
	return nil
}

func (m *InMemory) Ping(ctx context.Context) error { return nil }

func (m *InMemory) Close(ctx context.Context) error { return nil }
