package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/barekit/docqa/pkg/account"
	"github.com/barekit/docqa/pkg/answer"
	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/files"
	"github.com/barekit/docqa/pkg/knowledge"
	"github.com/barekit/docqa/pkg/knowledge/hash"
	vecmem "github.com/barekit/docqa/pkg/knowledge/inmemory"
	"github.com/barekit/docqa/pkg/llm"
	"github.com/barekit/docqa/pkg/memory/inmemory"
	"github.com/barekit/docqa/pkg/rag"
)

const (
	email    = "alice@example.com"
	password = "secret"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := inmemory.New()
	local, err := files.NewLocal(t.TempDir())
	require.NoError(t, err)

	provider := llm.ProviderFunc(func(context.Context, []llm.Message) (*llm.Message, error) {
		return &llm.Message{Role: llm.RoleAssistant, Content: "[DOCUMENT] Saffron."}, nil
	})
	svc := rag.New(knowledge.NewKnowledgeBase(hash.New(64), vecmem.New()), answer.New(provider), store, local)

	accounts := account.New(store)
	accounts.Cost = bcrypt.MinCost
	_, err = accounts.Register(context.Background(), email, password, "Alice")
	require.NoError(t, err)

	srv := httptest.NewServer(New(svc, accounts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, req *http.Request, auth bool) (*http.Response, map[string]any) {
	t.Helper()
	if auth {
		req.SetBasicAuth(email, password)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func jsonRequest(t *testing.T, method, url string, v any) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	req, err := http.NewRequest(method, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, url, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url+"/api/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestServer_RequiresCredentials(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/documents", nil)
	resp, body := do(t, req, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Not authenticated", body["detail"])

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/documents", nil)
	req.SetBasicAuth(email, "wrong")
	resp, body = do(t, req, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", body["detail"])
}

func TestServer_Signup(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, jsonRequest(t, http.MethodPost, srv.URL+"/api/signup",
		signupRequest{Email: "bob@example.com", Password: "pw", FullName: "Bob"}), false)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "bob@example.com", body["id"])
	assert.NotContains(t, body, "PasswordHash")

	resp, body = do(t, jsonRequest(t, http.MethodPost, srv.URL+"/api/signup",
		signupRequest{Email: "bob@example.com", Password: "pw"}), false)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "User already exists", body["detail"])
}

func TestServer_UploadAskHistoryDelete(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, uploadRequest(t, srv.URL, "recipe.txt", "The recipe uses saffron."), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Uploaded successfully", body["message"])
	details := body["details"].(map[string]any)
	docID := details["doc_id"].(string)
	assert.NotEmpty(t, docID)
	assert.EqualValues(t, 1, details["chunks"])

	resp, body = do(t, jsonRequest(t, http.MethodPost, srv.URL+"/api/ask", askRequest{Question: "What spice?"}), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Saffron.", body["answer"])
	sources := body["sources"].([]any)
	require.Len(t, sources, 1)
	assert.Equal(t, "recipe.txt", sources[0].(map[string]any)["document_name"])

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/chat-history", nil)
	resp, body = do(t, req, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["history"], 1)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/documents", nil)
	_, body = do(t, req, true)
	docs := body["documents"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, "recipe.txt", docs[0].(map[string]any)["name"])
	assert.Contains(t, docs[0], "upload_time")

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/documents/"+docID, nil)
	resp, body = do(t, req, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Deleted", body["message"])

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/documents/"+docID, nil)
	resp, body = do(t, req, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Document not found", body["detail"])

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/chat-history", nil)
	resp, body = do(t, req, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Chat history cleared", body["message"])

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/chat-history", nil)
	_, body = do(t, req, true)
	assert.Empty(t, body["history"])
}

func TestServer_BadRequests(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, uploadRequest(t, srv.URL, "slides.pdf", "x"), true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Only .txt files allowed", body["detail"])

	resp, body = do(t, jsonRequest(t, http.MethodPost, srv.URL+"/api/ask", askRequest{Question: "   "}), true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Question cannot be empty", body["detail"])

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/ask", strings.NewReader("{"))
	resp, _ = do(t, req, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Status(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/status", nil)
	resp, body := do(t, req, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	for _, key := range []string{"backend", "database", "vector_index", "storage", "llm"} {
		assert.Equal(t, "ok", body[key], key)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrEmptyQuestion, http.StatusBadRequest},
		{domain.ErrUnsupportedFileType, http.StatusBadRequest},
		{domain.ErrUnsupportedEncoding, http.StatusBadRequest},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrDocumentNotFound, http.StatusNotFound},
		{domain.ErrUserExists, http.StatusConflict},
		{fmt.Errorf("%w: timeout", domain.ErrEmbeddingUnavailable), http.StatusServiceUnavailable},
		{domain.ErrCompletionUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), tt.err.Error())
	}
}
