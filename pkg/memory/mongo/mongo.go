package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/memory/consts"
)

type MongoMemory struct {
	client    *mongo.Client
	users     *mongo.Collection
	documents *mongo.Collection
	history   *mongo.Collection
}

type UserDoc struct {
	ID             string    `bson:"_id"`
	Email          string    `bson:"email"`
	HashedPassword string    `bson:"hashed_password"`
	FullName       string    `bson:"full_name"`
	CreatedAt      time.Time `bson:"created_at"`
}

type DocumentDoc struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	Name       string    `bson:"name"`
	StoredName string    `bson:"stored_name"`
	UploadTime time.Time `bson:"upload_time"`
}

type SourceDoc struct {
	DocumentName string `bson:"document_name"`
	Content      string `bson:"content"`
}

type ChatEntryDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Question  string             `bson:"question"`
	Answer    string             `bson:"answer"`
	Sources   []SourceDoc        `bson:"sources"`
	Timestamp time.Time          `bson:"timestamp"`
}

// New creates a new MongoMemory adapter over dbName and ensures its indexes.
func New(ctx context.Context, client *mongo.Client, dbName string) (*MongoMemory, error) {
	db := client.Database(dbName)
	m := &MongoMemory{
		client:    client,
		users:     db.Collection(consts.TableUsers),
		documents: db.Collection(consts.TableDocuments),
		history:   db.Collection(consts.TableChatHistory),
	}

	if _, err := m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: consts.ColEmail, Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, fmt.Errorf("failed to create user index: %w", err)
	}
	if _, err := m.documents.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: consts.ColUserID, Value: 1}, {Key: consts.ColUploadTime, Value: 1}},
	}); err != nil {
		return nil, fmt.Errorf("failed to create document index: %w", err)
	}
	if _, err := m.history.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: consts.ColUserID, Value: 1}, {Key: consts.ColTimestamp, Value: 1}},
	}); err != nil {
		return nil, fmt.Errorf("failed to create history index: %w", err)
	}
	return m, nil
}

func (m *MongoMemory) CreateUser(ctx context.Context, user domain.User) error {
	_, err := m.users.InsertOne(ctx, UserDoc{
		ID:             user.ID,
		Email:          user.Email,
		HashedPassword: user.PasswordHash,
		FullName:       user.FullName,
		CreatedAt:      user.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrUserExists
	}
	return err
}

func (m *MongoMemory) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var doc UserDoc
	err := m.users.FindOne(ctx, bson.M{consts.ColEmail: email}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.HashedPassword,
		FullName:     doc.FullName,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (m *MongoMemory) InsertDocument(ctx context.Context, doc domain.Document) error {
	_, err := m.documents.InsertOne(ctx, DocumentDoc{
		ID:         doc.ID,
		UserID:     doc.OwnerID,
		Name:       doc.Name,
		StoredName: doc.StoredName,
		UploadTime: doc.UploadedAt,
	})
	return err
}

func (m *MongoMemory) ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: consts.ColUploadTime, Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.documents.Find(ctx, bson.M{consts.ColUserID: ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []domain.Document{}
	for cursor.Next(ctx) {
		var doc DocumentDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (m *MongoMemory) GetDocument(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	var doc DocumentDoc
	err := m.documents.FindOne(ctx, bson.M{"_id": id, consts.ColUserID: ownerID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	d := doc.toDomain()
	return &d, nil
}

func (m *MongoMemory) DeleteDocument(ctx context.Context, ownerID, id string) error {
	res, err := m.documents.DeleteOne(ctx, bson.M{"_id": id, consts.ColUserID: ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (m *MongoMemory) AppendHistory(ctx context.Context, entry domain.ChatEntry) error {
	sources := make([]SourceDoc, len(entry.Sources))
	for i, s := range entry.Sources {
		sources[i] = SourceDoc{DocumentName: s.DocumentName, Content: s.Content}
	}
	_, err := m.history.InsertOne(ctx, ChatEntryDoc{
		UserID:    entry.OwnerID,
		Question:  entry.Question,
		Answer:    entry.Answer,
		Sources:   sources,
		Timestamp: entry.Timestamp,
	})
	return err
}

func (m *MongoMemory) ListHistory(ctx context.Context, ownerID string) ([]domain.ChatEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: consts.ColTimestamp, Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.history.Find(ctx, bson.M{consts.ColUserID: ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []domain.ChatEntry{}
	for cursor.Next(ctx) {
		var doc ChatEntryDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		sources := make([]domain.Source, len(doc.Sources))
		for i, s := range doc.Sources {
			sources[i] = domain.Source{DocumentName: s.DocumentName, Content: s.Content}
		}
		entries = append(entries, domain.ChatEntry{
			ID:        doc.ID.Hex(),
			OwnerID:   doc.UserID,
			Question:  doc.Question,
			Answer:    doc.Answer,
			Sources:   sources,
			Timestamp: doc.Timestamp,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (m *MongoMemory) ClearHistory(ctx context.Context, ownerID string) error {
	_, err := m.history.DeleteMany(ctx, bson.M{consts.ColUserID: ownerID})
	return err
}

func (m *MongoMemory) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoMemory) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (d DocumentDoc) toDomain() domain.Document {
	return domain.Document{
		ID:         d.ID,
		OwnerID:    d.UserID,
		Name:       d.Name,
		StoredName: d.StoredName,
		UploadedAt: d.UploadTime,
	}
}
