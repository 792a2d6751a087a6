package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/llm"
)

type mockProvider struct {
	response string
	err      error
	prompts  []string
}

func (m *mockProvider) Chat(_ context.Context, messages []llm.Message) (*llm.Message, error) {
	for _, msg := range messages {
		m.prompts = append(m.prompts, msg.Content)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Message{Role: llm.RoleAssistant, Content: m.response}, nil
}

func selection() []domain.Candidate {
	return []domain.Candidate{
		{Rank: 0, Chunk: domain.Chunk{Text: "The answer is 42.", Metadata: domain.ChunkMetadata{DocumentName: "guide.txt"}}},
		{Rank: 2, Chunk: domain.Chunk{Text: "Deep Thought computed it.", Metadata: domain.ChunkMetadata{DocumentName: "history.txt"}}},
	}
}

func TestCompose_EmptySelection(t *testing.T) {
	mock := &mockProvider{response: "[DOCUMENT] should not be used"}
	ans, err := New(mock).Compose(context.Background(), nil, "what?")
	require.NoError(t, err)

	assert.Equal(t, NoDocumentsAnswer, ans.Text)
	assert.False(t, ans.IsCasual)
	assert.Empty(t, ans.Sources)
	assert.Empty(t, mock.prompts, "provider must not be called")
}

func TestCompose_Casual(t *testing.T) {
	mock := &mockProvider{response: "[CASUAL] Hi there!"}
	ans, err := New(mock).Compose(context.Background(), selection(), "hello")
	require.NoError(t, err)

	assert.True(t, ans.IsCasual)
	assert.Equal(t, "Hi there!", ans.Text)
	assert.NotNil(t, ans.Sources)
	assert.Empty(t, ans.Sources)
}

func TestCompose_Document(t *testing.T) {
	mock := &mockProvider{response: "[DOCUMENT] The answer is 42."}
	ans, err := New(mock, WithDebug(true)).Compose(context.Background(), selection(), "What is the answer?")
	require.NoError(t, err)

	assert.False(t, ans.IsCasual)
	assert.Equal(t, "The answer is 42.", ans.Text)
	assert.Equal(t, []domain.Source{
		{DocumentName: "guide.txt", Content: "The answer is 42."},
		{DocumentName: "history.txt", Content: "Deep Thought computed it."},
	}, ans.Sources)

	require.Len(t, mock.prompts, 1)
	prompt := mock.prompts[0]
	assert.Contains(t, prompt, "Context:\nThe answer is 42.\n\nDeep Thought computed it.\n\nQuestion: What is the answer?")
	assert.Contains(t, prompt, "[CASUAL]")
	assert.Contains(t, prompt, "[DOCUMENT]")
	assert.True(t, strings.HasSuffix(prompt, "Answer:"))
}

func TestCompose_UntaggedReplyKeepsSources(t *testing.T) {
	mock := &mockProvider{response: "  Plain answer.  "}
	ans, err := New(mock).Compose(context.Background(), selection(), "q")
	require.NoError(t, err)

	assert.False(t, ans.IsCasual)
	assert.Equal(t, "Plain answer.", ans.Text)
	assert.Len(t, ans.Sources, 2)
}

func TestCompose_UnknownDocumentName(t *testing.T) {
	mock := &mockProvider{response: "[DOCUMENT] ok"}
	sel := []domain.Candidate{{Chunk: domain.Chunk{Text: "orphan"}}}
	ans, err := New(mock).Compose(context.Background(), sel, "q")
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownDocument, ans.Sources[0].DocumentName)
}

func TestCompose_ProviderFailure(t *testing.T) {
	mock := &mockProvider{err: errors.New("timeout")}
	_, err := New(mock).Compose(context.Background(), selection(), "q")
	assert.ErrorIs(t, err, domain.ErrCompletionUnavailable)

	mock = &mockProvider{response: "   "}
	_, err = New(mock).Compose(context.Background(), selection(), "q")
	assert.ErrorIs(t, err, domain.ErrCompletionUnavailable)
}

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		raw    string
		text   string
		casual bool
	}{
		{"[CASUAL] Hi there!", "Hi there!", true},
		{"[DOCUMENT] The answer is 42.", "The answer is 42.", false},
		{"[DOCUMENT]\n\nMulti\nline", "Multi\nline", false},
		{"\n[CASUAL]Hello", "Hello", true},
		{"No tag here", "No tag here", false},
		{"Mentions [CASUAL] later", "Mentions [CASUAL] later", false},
	} {
		text, casual := Classify(tc.raw)
		assert.Equal(t, tc.text, text, tc.raw)
		assert.Equal(t, tc.casual, casual, tc.raw)
	}
}
