package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/memory/consts"
)

// Neo4jMemory stores users as (:User) nodes keyed by email, with
// (:User)-[:OWNS]->(:Document) and (:User)-[:ASKED]->(:ChatEntry).
type Neo4jMemory struct {
	driver neo4j.DriverWithContext
	dbName string
}

// New creates a new Neo4jMemory adapter.
func New(ctx context.Context, uri, username, password, dbName string) (*Neo4jMemory, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, err
	}

	m := &Neo4jMemory{
		driver: driver,
		dbName: dbName,
	}
	if err := m.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`CREATE CONSTRAINT docqa_user_email IF NOT EXISTS
		FOR (u:%s) REQUIRE u.%s IS UNIQUE`, consts.LabelUser, consts.ColEmail)
		_, err := tx.Run(ctx, query, nil)
		return nil, err
	}); err != nil {
		return nil, fmt.Errorf("failed to create constraint: %w", err)
	}
	return m, nil
}

func (m *Neo4jMemory) write(ctx context.Context, work neo4j.ManagedTransactionWork) error {
	_, err := m.writeResult(ctx, work)
	return err
}

func (m *Neo4jMemory) writeResult(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: m.dbName})
	defer session.Close(ctx)
	return session.ExecuteWrite(ctx, work)
}

func (m *Neo4jMemory) read(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: m.dbName})
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, work)
}

// CreateUser merges on email so that an owner node created by a document
// insert is completed rather than duplicated.
func (m *Neo4jMemory) CreateUser(ctx context.Context, user domain.User) error {
	existed, err := m.writeResult(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MERGE (u:%s {%s: $email})
		WITH u, u.%s IS NOT NULL AS existed
		FOREACH (_ IN CASE WHEN existed THEN [] ELSE [1] END |
			SET u.%s = $id, u.%s = $password, u.%s = $fullName, u.%s = $createdAt)
		RETURN existed
		`, consts.LabelUser, consts.ColEmail,
			consts.ColPassword,
			consts.ColID, consts.ColPassword, consts.ColFullName, consts.ColCreatedAt)

		result, err := tx.Run(ctx, query, map[string]any{
			"email":     user.Email,
			"id":        user.ID,
			"password":  user.PasswordHash,
			"fullName":  user.FullName,
			"createdAt": user.CreatedAt,
		})
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		existed, _ := record.Get("existed")
		return existed, nil
	})
	if err != nil {
		return err
	}
	if b, _ := existed.(bool); b {
		return domain.ErrUserExists
	}
	return nil
}

func (m *Neo4jMemory) GetUser(ctx context.Context, email string) (*domain.User, error) {
	result, err := m.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MATCH (u:%s {%s: $email})
		WHERE u.%s IS NOT NULL
		RETURN u.%s AS id, u.%s AS password, u.%s AS fullName, u.%s AS createdAt
		`, consts.LabelUser, consts.ColEmail, consts.ColPassword,
			consts.ColID, consts.ColPassword, consts.ColFullName, consts.ColCreatedAt)

		result, err := tx.Run(ctx, query, map[string]any{"email": email})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			return nil, result.Err()
		}
		record := result.Record()
		return &domain.User{
			ID:           stringValue(record, "id"),
			Email:        email,
			PasswordHash: stringValue(record, "password"),
			FullName:     stringValue(record, "fullName"),
			CreatedAt:    timeValue(record, "createdAt"),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	user, _ := result.(*domain.User)
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (m *Neo4jMemory) InsertDocument(ctx context.Context, doc domain.Document) error {
	return m.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MERGE (u:%s {%s: $owner})
		CREATE (u)-[:%s]->(d:%s {%s: $id, %s: $owner, %s: $name, %s: $storedName, %s: $uploadTime})
		`, consts.LabelUser, consts.ColEmail,
			consts.RelOwns, consts.LabelDocument,
			consts.ColID, consts.ColUserID, consts.ColName, consts.ColStoredName, consts.ColUploadTime)

		_, err := tx.Run(ctx, query, map[string]any{
			"owner":      doc.OwnerID,
			"id":         doc.ID,
			"name":       doc.Name,
			"storedName": doc.StoredName,
			"uploadTime": doc.UploadedAt,
		})
		return nil, err
	})
}

func (m *Neo4jMemory) documents(ctx context.Context, ownerID, id string) ([]domain.Document, error) {
	result, err := m.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MATCH (:%s {%s: $owner})-[:%s]->(d:%s)
		WHERE $id = '' OR d.%s = $id
		RETURN d.%s AS id, d.%s AS name, d.%s AS storedName, d.%s AS uploadTime
		ORDER BY d.%s ASC, d.%s ASC
		`, consts.LabelUser, consts.ColEmail, consts.RelOwns, consts.LabelDocument,
			consts.ColID,
			consts.ColID, consts.ColName, consts.ColStoredName, consts.ColUploadTime,
			consts.ColUploadTime, consts.ColID)

		result, err := tx.Run(ctx, query, map[string]any{"owner": ownerID, "id": id})
		if err != nil {
			return nil, err
		}

		docs := []domain.Document{}
		for result.Next(ctx) {
			record := result.Record()
			docs = append(docs, domain.Document{
				ID:         stringValue(record, "id"),
				OwnerID:    ownerID,
				Name:       stringValue(record, "name"),
				StoredName: stringValue(record, "storedName"),
				UploadedAt: timeValue(record, "uploadTime"),
			})
		}
		return docs, result.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Document), nil
}

func (m *Neo4jMemory) ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error) {
	return m.documents(ctx, ownerID, "")
}

func (m *Neo4jMemory) GetDocument(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	if id == "" {
		return nil, domain.ErrDocumentNotFound
	}
	docs, err := m.documents(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.ErrDocumentNotFound
	}
	return &docs[0], nil
}

func (m *Neo4jMemory) DeleteDocument(ctx context.Context, ownerID, id string) error {
	deleted, err := m.writeResult(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MATCH (:%s {%s: $owner})-[:%s]->(d:%s {%s: $id})
		DETACH DELETE d
		RETURN count(*) AS deleted
		`, consts.LabelUser, consts.ColEmail, consts.RelOwns, consts.LabelDocument, consts.ColID)

		result, err := tx.Run(ctx, query, map[string]any{"owner": ownerID, "id": id})
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := record.Get("deleted")
		return n, nil
	})
	if err != nil {
		return err
	}
	if n, _ := deleted.(int64); n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (m *Neo4jMemory) AppendHistory(ctx context.Context, entry domain.ChatEntry) error {
	sources, err := domain.EncodeSources(entry.Sources)
	if err != nil {
		return err
	}

	return m.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MERGE (u:%s {%s: $owner})
		CREATE (u)-[:%s]->(c:%s {
			%s: $question,
			%s: $answer,
			%s: $sources,
			%s: $timestamp,
			%s: timestamp()
		})
		`, consts.LabelUser, consts.ColEmail,
			consts.RelAsked, consts.LabelChatEntry,
			consts.ColQuestion, consts.ColAnswer, consts.ColSources, consts.ColTimestamp, consts.ColSeq)

		_, err := tx.Run(ctx, query, map[string]any{
			"owner":     entry.OwnerID,
			"question":  entry.Question,
			"answer":    entry.Answer,
			"sources":   sources,
			"timestamp": entry.Timestamp,
		})
		return nil, err
	})
}

func (m *Neo4jMemory) ListHistory(ctx context.Context, ownerID string) ([]domain.ChatEntry, error) {
	result, err := m.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MATCH (:%s {%s: $owner})-[:%s]->(c:%s)
		RETURN elementId(c) AS id, c.%s AS question, c.%s AS answer, c.%s AS sources, c.%s AS timestamp
		ORDER BY c.%s ASC, c.%s ASC
		`, consts.LabelUser, consts.ColEmail, consts.RelAsked, consts.LabelChatEntry,
			consts.ColQuestion, consts.ColAnswer, consts.ColSources, consts.ColTimestamp,
			consts.ColTimestamp, consts.ColSeq)

		result, err := tx.Run(ctx, query, map[string]any{"owner": ownerID})
		if err != nil {
			return nil, err
		}

		entries := []domain.ChatEntry{}
		for result.Next(ctx) {
			record := result.Record()
			sources, err := domain.DecodeSources(stringValue(record, "sources"))
			if err != nil {
				return nil, err
			}
			entries = append(entries, domain.ChatEntry{
				ID:        stringValue(record, "id"),
				OwnerID:   ownerID,
				Question:  stringValue(record, "question"),
				Answer:    stringValue(record, "answer"),
				Sources:   sources,
				Timestamp: timeValue(record, "timestamp"),
			})
		}
		return entries, result.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.ChatEntry), nil
}

func (m *Neo4jMemory) ClearHistory(ctx context.Context, ownerID string) error {
	return m.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MATCH (:%s {%s: $owner})-[:%s]->(c:%s)
		DETACH DELETE c
		`, consts.LabelUser, consts.ColEmail, consts.RelAsked, consts.LabelChatEntry)
		_, err := tx.Run(ctx, query, map[string]any{"owner": ownerID})
		return nil, err
	})
}

func (m *Neo4jMemory) Ping(ctx context.Context) error {
	return m.driver.VerifyConnectivity(ctx)
}

func (m *Neo4jMemory) Close(ctx context.Context) error {
	return m.driver.Close(ctx)
}

func stringValue(record *neo4j.Record, key string) string {
	v, _ := record.Get(key)
	s, _ := v.(string)
	return s
}

func timeValue(record *neo4j.Record, key string) time.Time {
	v, _ := record.Get(key)
	switch t := v.(type) {
	case time.Time:
		return t
	case neo4j.LocalDateTime:
		return t.Time()
	}
	return time.Time{}
}
