// Package server exposes the pipelines as a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/rag"
)

// Pipeline is the document question-answering surface the API serves.
type Pipeline interface {
	Ingest(ctx context.Context, data []byte, filename, owner string) (*domain.IngestResult, error)
	Ask(ctx context.Context, question, owner string) (*domain.Answer, error)
	History(ctx context.Context, owner string) ([]domain.ChatEntry, error)
	ClearHistory(ctx context.Context, owner string) error
	Documents(ctx context.Context, owner string) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, owner, id string) error
	Status(ctx context.Context) rag.Status
}

// Accounts registers and authenticates users.
type Accounts interface {
	Register(ctx context.Context, email, password, fullName string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

// Server routes HTTP requests to a Pipeline.
type Server struct {
	pipeline       Pipeline
	accounts       Accounts
	maxUploadBytes int64
	debug          bool
}

// Option is a function that configures a Server.
type Option func(*Server)

// WithMaxUploadBytes bounds the multipart body of an upload.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		s.maxUploadBytes = n
	}
}

// WithDebug enables request logging.
func WithDebug(enable bool) Option {
	return func(s *Server) {
		s.debug = enable
	}
}

// New creates a Server.
func New(pipeline Pipeline, accounts Accounts, opts ...Option) *Server {
	s := &Server{
		pipeline:       pipeline,
		accounts:       accounts,
		maxUploadBytes: 10 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/signup", s.handleSignup)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.Handle("POST /api/upload", s.authenticated(s.handleUpload))
	mux.Handle("POST /api/ask", s.authenticated(s.handleAsk))
	mux.Handle("GET /api/chat-history", s.authenticated(s.handleHistory))
	mux.Handle("DELETE /api/chat-history", s.authenticated(s.handleClearHistory))
	mux.Handle("GET /api/documents", s.authenticated(s.handleDocuments))
	mux.Handle("DELETE /api/documents/{id}", s.authenticated(s.handleDeleteDocument))
	return s.logRequests(mux)
}

// HTTPServer wraps Handler with the given address and timeouts.
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

type ownerKey struct{}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="docqa"`)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "Not authenticated"})
			return
		}
		user, err := s.accounts.Authenticate(r.Context(), email, password)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="docqa"`)
			writeError(w, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, user.ID)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.debug {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Invalid request body"})
		return
	}
	user, err := s.accounts.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Status(r.Context()))
}

type uploadResponse struct {
	Message string               `json:"message"`
	Details *domain.IngestResult `json:"details"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Detail: "File too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Missing file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Could not read file"})
		return
	}

	res, err := s.pipeline.Ingest(r.Context(), data, header.Filename, ownerFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{Message: "Uploaded successfully", Details: res})
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Invalid request body"})
		return
	}
	ans, err := s.pipeline.Ask(r.Context(), req.Question, ownerFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

type historyResponse struct {
	History []domain.ChatEntry `json:"history"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.pipeline.History(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.ChatEntry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{History: entries})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.ClearHistory(r.Context(), ownerFrom(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Chat history cleared"})
}

type documentsResponse struct {
	Documents []domain.Document `json:"documents"`
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.pipeline.Documents(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, documentsResponse{Documents: docs})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.DeleteDocument(r.Context(), ownerFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Deleted"})
}

// StatusCode maps an error kind to an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion),
		errors.Is(err, domain.ErrUnsupportedFileType),
		errors.Is(err, domain.ErrUnsupportedEncoding):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrDocumentNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmbeddingUnavailable), errors.Is(err, domain.ErrCompletionUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "status", code, "error", err)
	}
	writeJSON(w, code, errorResponse{Detail: domain.Message(err)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
