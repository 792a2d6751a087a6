// Package domain holds the types shared by the ingestion and query pipelines
// and by every storage backend.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnknownDocument is the name used when a chunk carries no document name.
const UnknownDocument = "Unknown Document"

// User is an account that owns documents and chat history.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Document is the metadata row of an uploaded file.
type Document struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	// StoredName is the key the raw bytes were written under.
	StoredName string    `json:"-"`
	UploadedAt time.Time `json:"upload_time"`
}

// ChunkMetadata is stored next to every vector in the index.
type ChunkMetadata struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	OwnerID      string `json:"owner_id"`
}

// Chunk is a contiguous span of a document's text.
type Chunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkID returns the index-wide id of the ordinal-th chunk of a document.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s_%d", documentID, ordinal)
}

// Candidate is one ranked hit of a similarity query.
type Candidate struct {
	Chunk Chunk
	// Rank is the zero-based position in the result list.
	Rank     int
	Distance float32
}

// DocumentName returns the chunk's document name, or UnknownDocument.
func (c Candidate) DocumentName() string {
	if c.Chunk.Metadata.DocumentName == "" {
		return UnknownDocument
	}
	return c.Chunk.Metadata.DocumentName
}

// Source is a citation attached to a document-grounded answer.
type Source struct {
	DocumentName string `json:"document_name"`
	Content      string `json:"content"`
}

// Answer is the result of one question.
type Answer struct {
	Text     string   `json:"answer"`
	IsCasual bool     `json:"is_casual"`
	Sources  []Source `json:"sources"`
}

// ChatEntry is one persisted question/answer exchange.
type ChatEntry struct {
	ID        string    `json:"id,omitempty"`
	OwnerID   string    `json:"-"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
}

// IngestResult reports what an ingestion produced.
type IngestResult struct {
	DocumentID string `json:"doc_id"`
	ChunkCount int    `json:"chunks"`
}

// EncodeSources serializes sources for a text column.
// A nil or empty list encodes as "[]".
func EncodeSources(sources []Source) (string, error) {
	if len(sources) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(sources)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sources: %w", err)
	}
	return string(b), nil
}

// DecodeSources parses the output of EncodeSources. An empty string decodes
// to an empty list.
func DecodeSources(s string) ([]Source, error) {
	sources := []Source{}
	if s == "" {
		return sources, nil
	}
	if err := json.Unmarshal([]byte(s), &sources); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
	}
	return sources, nil
}
