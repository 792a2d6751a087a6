package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/barekit/docqa/pkg/domain"
)

// RedisMemory implements memory.Store using Redis.
//
// Layout:
//
//	{prefix}user:{email}       JSON user record
//	{prefix}documents:{owner}  hash of document id -> JSON record
//	{prefix}history:{owner}    list of JSON chat entries, append order
//	{prefix}history:seq        counter for chat entry ids
type RedisMemory struct {
	client *redis.Client
	prefix string
}

type userRecord struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	FullName       string    `json:"full_name"`
	CreatedAt      time.Time `json:"created_at"`
}

type documentRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	StoredName string    `json:"stored_name"`
	UploadTime time.Time `json:"upload_time"`
}

type chatRecord struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Question  string          `json:"question"`
	Answer    string          `json:"answer"`
	Sources   []domain.Source `json:"sources"`
	Timestamp time.Time       `json:"timestamp"`
}

// New creates a new RedisMemory. An empty prefix defaults to "docqa:".
func New(client *redis.Client, prefix string) *RedisMemory {
	if prefix == "" {
		prefix = "docqa:"
	}
	return &RedisMemory{client: client, prefix: prefix}
}

func (m *RedisMemory) userKey(email string) string { return m.prefix + "user:" + email }

func (m *RedisMemory) documentsKey(owner string) string { return m.prefix + "documents:" + owner }

func (m *RedisMemory) historyKey(owner string) string { return m.prefix + "history:" + owner }

func (m *RedisMemory) CreateUser(ctx context.Context, user domain.User) error {
	b, err := json.Marshal(userRecord{
		ID:             user.ID,
		Email:          user.Email,
		HashedPassword: user.PasswordHash,
		FullName:       user.FullName,
		CreatedAt:      user.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	ok, err := m.client.SetNX(ctx, m.userKey(user.Email), b, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserExists
	}
	return nil
}

func (m *RedisMemory) GetUser(ctx context.Context, email string) (*domain.User, error) {
	raw, err := m.client.Get(ctx, m.userKey(email)).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec userRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &domain.User{
		ID:           rec.ID,
		Email:        rec.Email,
		PasswordHash: rec.HashedPassword,
		FullName:     rec.FullName,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func (m *RedisMemory) InsertDocument(ctx context.Context, doc domain.Document) error {
	b, err := json.Marshal(documentRecord{
		ID:         doc.ID,
		UserID:     doc.OwnerID,
		Name:       doc.Name,
		StoredName: doc.StoredName,
		UploadTime: doc.UploadedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	return m.client.HSet(ctx, m.documentsKey(doc.OwnerID), doc.ID, b).Err()
}

func (m *RedisMemory) ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error) {
	result, err := m.client.HGetAll(ctx, m.documentsKey(ownerID)).Result()
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(result))
	for id, raw := range result {
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		docs = append(docs, doc)
	}
	// Hash iteration order is random; id breaks upload time ties.
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.Before(docs[j].UploadedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (m *RedisMemory) GetDocument(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	raw, err := m.client.HGet(ctx, m.documentsKey(ownerID), id).Result()
	if err == redis.Nil {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *RedisMemory) DeleteDocument(ctx context.Context, ownerID, id string) error {
	n, err := m.client.HDel(ctx, m.documentsKey(ownerID), id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (m *RedisMemory) AppendHistory(ctx context.Context, entry domain.ChatEntry) error {
	seq, err := m.client.Incr(ctx, m.prefix+"history:seq").Result()
	if err != nil {
		return err
	}

	sources := entry.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	b, err := json.Marshal(chatRecord{
		ID:        strconv.FormatInt(seq, 10),
		UserID:    entry.OwnerID,
		Question:  entry.Question,
		Answer:    entry.Answer,
		Sources:   sources,
		Timestamp: entry.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal chat entry: %w", err)
	}
	return m.client.RPush(ctx, m.historyKey(entry.OwnerID), b).Err()
}

func (m *RedisMemory) ListHistory(ctx context.Context, ownerID string) ([]domain.ChatEntry, error) {
	result, err := m.client.LRange(ctx, m.historyKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.ChatEntry, len(result))
	for i, item := range result {
		var rec chatRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat entry at index %d: %w", i, err)
		}
		if rec.Sources == nil {
			rec.Sources = []domain.Source{}
		}
		entries[i] = domain.ChatEntry{
			ID:        rec.ID,
			OwnerID:   rec.UserID,
			Question:  rec.Question,
			Answer:    rec.Answer,
			Sources:   rec.Sources,
			Timestamp: rec.Timestamp,
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
	return entries, nil
}

func (m *RedisMemory) ClearHistory(ctx context.Context, ownerID string) error {
	return m.client.Del(ctx, m.historyKey(ownerID)).Err()
}

func (m *RedisMemory) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

func (m *RedisMemory) Close(ctx context.Context) error {
	return m.client.Close()
}

func decodeDocument(raw string) (domain.Document, error) {
	var rec documentRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.Document{}, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return domain.Document{
		ID:         rec.ID,
		OwnerID:    rec.UserID,
		Name:       rec.Name,
		StoredName: rec.StoredName,
		UploadedAt: rec.UploadTime,
	}, nil
}
