package domain

import "errors"

var (
	// ErrInvalidConfiguration indicates a component was configured with
	// values it cannot operate on, such as a chunk overlap >= chunk size.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable indicates the embedding provider failed.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrCompletionUnavailable indicates the chat completion provider failed.
	ErrCompletionUnavailable = errors.New("completion service unavailable")

	// ErrUnsupportedEncoding indicates an upload is not valid UTF-8 text.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")

	// ErrUnsupportedFileType indicates an upload with a rejected extension.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrEmptyQuestion indicates a blank question.
	ErrEmptyQuestion = errors.New("empty question")

	// ErrDocumentNotFound indicates the document does not exist for the owner.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUserExists indicates a signup for an email that is already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var messages = []struct {
	err error
	msg string
}{
	{ErrEmptyQuestion, "Question cannot be empty"},
	{ErrUnsupportedFileType, "Only .txt files allowed"},
	{ErrUnsupportedEncoding, "The file is not valid UTF-8 text"},
	{ErrDocumentNotFound, "Document not found"},
	{ErrUserExists, "User already exists"},
	{ErrInvalidCredentials, "Invalid credentials"},
	{ErrEmbeddingUnavailable, "The embedding service is unavailable, please try again later"},
	{ErrCompletionUnavailable, "The language model is unavailable, please try again later"},
	{ErrInvalidConfiguration, "The server is misconfigured"},
	{ErrNotFound, "Not found"},
}

// Message returns a human-readable sentence for err suitable for end users.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Something went wrong"
}
