package rag

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/files"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// AllowedExtension is the only upload type accepted.
const AllowedExtension = ".txt"

// Decode validates data as UTF-8 text and strips a leading byte order mark.
func Decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", domain.ErrUnsupportedEncoding
	}
	return string(data), nil
}

// Ingest stores, chunks, embeds and indexes one uploaded file for owner.
// A failure after bytes or vectors were written removes both again, so a
// document is either fully indexed and listed or absent.
func (s *Service) Ingest(ctx context.Context, data []byte, filename, owner string) (*domain.IngestResult, error) {
	name := files.BaseName(filename)
	if !strings.EqualFold(path.Ext(name), AllowedExtension) {
		return nil, domain.ErrUnsupportedFileType
	}
	text, err := Decode(data)
	if err != nil {
		return nil, err
	}

	docID := s.newID()
	key := files.Key(owner, docID, name)
	if s.Debug {
		slog.Info("Ingest started", "owner", owner, "document_id", docID, "name", name, "bytes", len(data))
	}

	if err := s.Files.Save(ctx, key, data); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	count, err := s.index(ctx, text, docID, name, owner)
	if err == nil {
		err = s.Store.InsertDocument(ctx, domain.Document{
			ID:         docID,
			OwnerID:    owner,
			Name:       name,
			StoredName: key,
			UploadedAt: s.now().UTC(),
		})
		if err != nil {
			err = fmt.Errorf("failed to record document: %w", err)
		}
	}
	if err != nil {
		s.compensate(ctx, owner, docID, key, err)
		return nil, err
	}

	if s.Debug {
		slog.Info("Ingest completed", "document_id", docID, "chunks", count)
	}
	return &domain.IngestResult{DocumentID: docID, ChunkCount: count}, nil
}

func (s *Service) index(ctx context.Context, text, docID, name, owner string) (int, error) {
	texts := s.Chunker.Chunk(text)
	if len(texts) == 0 {
		return 0, nil
	}

	vectors, err := s.embedAll(ctx, texts)
	if err != nil {
		return 0, err
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{
			ID:   domain.ChunkID(docID, i),
			Text: t,
			Metadata: domain.ChunkMetadata{
				DocumentID:   docID,
				DocumentName: name,
				OwnerID:      owner,
			},
		}
	}
	if err := s.Knowledge.VectorStore.Insert(ctx, chunks, vectors); err != nil {
		return 0, fmt.Errorf("failed to index chunks: %w", err)
	}
	return len(chunks), nil
}

// embedAll embeds texts in order. With EmbedConcurrency > 1 calls run in a
// bounded group and results are placed by index.
func (s *Service) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	if s.EmbedConcurrency < 2 {
		for i, t := range texts {
			vec, err := s.Knowledge.EmbedText(ctx, t)
			if err != nil {
				return nil, err
			}
			vectors[i] = vec
		}
		return vectors, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.EmbedConcurrency)
	for i, t := range texts {
		g.Go(func() error {
			vec, err := s.Knowledge.EmbedText(gctx, t)
			if err != nil {
				return err
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// compensate undoes a partial ingestion. Cleanup errors are logged only; the
// caller reports cause.
func (s *Service) compensate(ctx context.Context, owner, docID, key string, cause error) {
	ctx = context.WithoutCancel(ctx)
	slog.Warn("Ingest failed, removing partial document", "document_id", docID, "error", cause)

	if err := s.Knowledge.VectorStore.DeleteDocument(ctx, owner, docID); err != nil {
		slog.Error("failed to remove vectors of failed ingestion", "document_id", docID, "error", err)
	}
	if err := s.Files.Delete(ctx, key); err != nil {
		slog.Error("failed to remove file of failed ingestion", "document_id", docID, "error", err)
	}
}
