package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/barekit/docqa/pkg/domain"
)

// Payload keys stored with every point.
const (
	keyChunkID      = "chunk_id"
	keyText         = "text"
	keyDocumentID   = "document_id"
	keyDocumentName = "document_name"
	keyOwnerID      = "owner_id"
)

// Config holds connection details for a Qdrant collection.
type Config struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	CollectionName string
	VectorSize     uint64
}

// QdrantStore implements knowledge.VectorStore using Qdrant.
type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

// New creates a new QdrantStore and makes sure the collection and its
// payload indexes exist.
func New(ctx context.Context, cfg Config) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	store := &QdrantStore{
		client:         client,
		collectionName: cfg.CollectionName,
		vectorSize:     cfg.VectorSize,
	}

	if err := store.initCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return store, nil
}

func (s *QdrantStore) initCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Owner and document filters run on every query and delete.
	wait := true
	for _, field := range []string{keyOwnerID, keyDocumentID} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			Wait:           &wait,
		})
		if err != nil {
			return fmt.Errorf("failed to index payload field %s: %w", field, err)
		}
	}
	return nil
}

// pointID maps a chunk id to the UUID Qdrant requires. The mapping is stable
// so deletes by chunk id reach the same point.
func pointID(chunkID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String())
}

func (s *QdrantStore) Insert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(vectors) != len(chunks) {
		return fmt.Errorf("number of vectors and chunks must match")
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, ch := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      pointID(ch.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: map[string]*qdrant.Value{
				keyChunkID:      qdrant.NewValueString(ch.ID),
				keyText:         qdrant.NewValueString(ch.Text),
				keyDocumentID:   qdrant.NewValueString(ch.Metadata.DocumentID),
				keyDocumentName: qdrant.NewValueString(ch.Metadata.DocumentName),
				keyOwnerID:      qdrant.NewValueString(ch.Metadata.OwnerID),
			},
		}
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, vector []float32, owner string, topK int) ([]domain.Candidate, error) {
	if topK <= 0 {
		return nil, nil
	}

	limit := uint64(topK)
	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(keyOwnerID, owner)},
		},
		Limit:       &limit,
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	candidates := make([]domain.Candidate, len(res))
	for i, hit := range res {
		candidates[i] = domain.Candidate{
			Chunk: domain.Chunk{
				ID:   payloadString(hit.Payload, keyChunkID),
				Text: payloadString(hit.Payload, keyText),
				Metadata: domain.ChunkMetadata{
					DocumentID:   payloadString(hit.Payload, keyDocumentID),
					DocumentName: payloadString(hit.Payload, keyDocumentName),
					OwnerID:      payloadString(hit.Payload, keyOwnerID),
				},
			},
			Rank: i,
			// Cosine collections report similarity.
			Distance: 1 - hit.Score,
		}
	}

	return candidates, nil
}

func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

func (s *QdrantStore) DeleteDocument(ctx context.Context, owner, documentID string) error {
	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName,
		Wait:           &wait,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(keyOwnerID, owner),
				qdrant.NewMatch(keyDocumentID, documentID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document points: %w", err)
	}
	return nil
}

func (s *QdrantStore) Ping(ctx context.Context) error {
	_, err := s.client.HealthCheck(ctx)
	return err
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}
