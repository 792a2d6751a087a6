package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/barekit/docqa/pkg/domain"
)

// Ask answers question from owner's documents and appends the exchange to
// owner's history. Nothing is written when any step fails.
func (s *Service) Ask(ctx context.Context, question, owner string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if s.Debug {
		slog.Info("Ask started", "owner", owner, "question", question)
	}

	vec, err := s.Knowledge.EmbedText(ctx, question)
	if err != nil {
		return nil, err
	}

	selected, err := s.retriever.Retrieve(ctx, vec, owner)
	if err != nil {
		return nil, err
	}
	if s.Debug {
		slog.Info("Ask retrieved context", "selected", len(selected))
	}

	ans, err := s.Composer.Compose(ctx, selected, question)
	if err != nil {
		return nil, err
	}

	entry := domain.ChatEntry{
		OwnerID:   owner,
		Question:  question,
		Answer:    ans.Text,
		Sources:   ans.Sources,
		Timestamp: s.now().UTC(),
	}
	if err := s.Store.AppendHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save chat history: %w", err)
	}
	return ans, nil
}

// History returns owner's chat log, oldest first.
func (s *Service) History(ctx context.Context, owner string) ([]domain.ChatEntry, error) {
	return s.Store.ListHistory(ctx, owner)
}

// ClearHistory deletes owner's chat log.
func (s *Service) ClearHistory(ctx context.Context, owner string) error {
	return s.Store.ClearHistory(ctx, owner)
}

// Documents lists owner's documents, oldest first.
func (s *Service) Documents(ctx context.Context, owner string) ([]domain.Document, error) {
	return s.Store.ListDocuments(ctx, owner)
}

// DeleteDocument removes a document's vectors, stored file and metadata row.
// Vectors go first so a failure leaves the document listed and retryable.
func (s *Service) DeleteDocument(ctx context.Context, owner, id string) error {
	doc, err := s.Store.GetDocument(ctx, owner, id)
	if err != nil {
		return err
	}

	if err := s.Knowledge.VectorStore.DeleteDocument(ctx, owner, doc.ID); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	if err := s.Files.Delete(ctx, doc.StoredName); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if err := s.Store.DeleteDocument(ctx, owner, doc.ID); err != nil {
		return err
	}

	if s.Debug {
		slog.Info("Document deleted", "owner", owner, "document_id", doc.ID)
	}
	return nil
}
