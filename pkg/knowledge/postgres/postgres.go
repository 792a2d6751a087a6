package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/barekit/docqa/pkg/domain"
)

// PostgresStore implements knowledge.VectorStore using pgvector.
type PostgresStore struct {
	db *gorm.DB
}

// ChunkModel represents the database schema for an indexed chunk.
type ChunkModel struct {
	ID           string `gorm:"primaryKey"`
	DocumentID   string `gorm:"index"`
	DocumentName string
	OwnerID      string `gorm:"index"`
	Content      string
	Embedding    pgvector.Vector
}

// TableName overrides the table name.
func (ChunkModel) TableName() string {
	return "chunks"
}

type scoredChunk struct {
	ChunkModel
	Distance float64
}

// New connects to dsn and creates the chunks table for vectors of the given
// dimension.
func New(dsn string, dimension int) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewWithDB(db, dimension)
}

// NewWithDB uses an already opened connection.
func NewWithDB(db *gorm.DB, dimension int) (*PostgresStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: vector dimension must be positive", domain.ErrInvalidConfiguration)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	// The column type depends on the dimension, which a struct tag cannot
	// express, so the table is created by hand.
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		document_name TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, dimension)
	if err := db.Exec(ddl).Error; err != nil {
		return nil, fmt.Errorf("failed to create chunks table: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_chunks_owner_document ON chunks (owner_id, document_id)").Error; err != nil {
		return nil, fmt.Errorf("failed to create chunks index: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(vectors) != len(chunks) {
		return fmt.Errorf("number of vectors and chunks must match")
	}
	if len(chunks) == 0 {
		return nil
	}

	models := make([]ChunkModel, len(chunks))
	for i, ch := range chunks {
		models[i] = ChunkModel{
			ID:           ch.ID,
			DocumentID:   ch.Metadata.DocumentID,
			DocumentName: ch.Metadata.DocumentName,
			OwnerID:      ch.Metadata.OwnerID,
			Content:      ch.Text,
			Embedding:    pgvector.NewVector(vectors[i]),
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"document_id", "document_name", "owner_id", "content", "embedding"}),
		}).CreateInBatches(&models, 100).Error
	})
}

func (s *PostgresStore) Query(ctx context.Context, vector []float32, owner string, topK int) ([]domain.Candidate, error) {
	if topK <= 0 {
		return nil, nil
	}

	// <=> is the pgvector cosine distance operator.
	var rows []scoredChunk
	err := s.db.WithContext(ctx).
		Model(&ChunkModel{}).
		Select("*, embedding <=> ? AS distance", pgvector.NewVector(vector)).
		Where("owner_id = ?", owner).
		Order("distance ASC").
		Limit(topK).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, len(rows))
	for i, r := range rows {
		candidates[i] = domain.Candidate{
			Chunk: domain.Chunk{
				ID:   r.ID,
				Text: r.Content,
				Metadata: domain.ChunkMetadata{
					DocumentID:   r.DocumentID,
					DocumentName: r.DocumentName,
					OwnerID:      r.OwnerID,
				},
			},
			Rank:     i,
			Distance: float32(r.Distance),
		}
	}

	return candidates, nil
}

func (s *PostgresStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&ChunkModel{}).Error
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, owner, documentID string) error {
	return s.db.WithContext(ctx).
		Where("owner_id = ? AND document_id = ?", owner, documentID).
		Delete(&ChunkModel{}).Error
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
