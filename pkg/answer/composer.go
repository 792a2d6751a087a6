// Package answer turns a selected context and a question into an answer with
// citations.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/llm"
)

const (
	// NoDocumentsAnswer is returned without calling the model when nothing
	// was retrieved.
	NoDocumentsAnswer = "No relevant documents found."

	tagCasual   = "[CASUAL]"
	tagDocument = "[DOCUMENT]"
)

const promptTemplate = `You are a document Q&A assistant. Your ONLY job is to answer questions about the provided documents.

RULES:
1. If user says just "hi", "hello", "hey" etc., respond: "Hi! How can I help you with your documents?"
2. If user asks about anything NOT in the documents (sports, personal opinions, general knowledge, etc.), respond: "I'm here to help with questions about your documents. Is there anything from the uploaded files you'd like to know?"
3. For questions about the documents, answer using ONLY the context below
4. Do not mention what you cannot find unless the answer is completely absent
5. If document info is completely missing, say: "I don't have that information in the provided documents"
6. If asked for a list but only one item exists, provide that item without mentioning the lack of a list
7. Be direct and concise

Mark your response:
- ` + tagCasual + ` for greetings or off-topic questions
- ` + tagDocument + ` for document-related questions

Context:
%s

Question: %s

Answer:`

// Composer builds the grounding prompt, calls the model and classifies the
// reply.
type Composer struct {
	LLM   llm.Provider
	Debug bool
}

// Option is a function that configures a Composer.
type Option func(*Composer)

// WithDebug enables debug logging.
func WithDebug(enable bool) Option {
	return func(c *Composer) {
		c.Debug = enable
	}
}

// New creates a Composer.
func New(provider llm.Provider, opts ...Option) *Composer {
	c := &Composer{LLM: provider}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GroundingBlock joins the selected chunk texts with a blank line.
func GroundingBlock(selected []domain.Candidate) string {
	texts := make([]string, len(selected))
	for i, c := range selected {
		texts[i] = c.Chunk.Text
	}
	return strings.Join(texts, "\n\n")
}

// BuildPrompt renders the instruction template for a context and question.
func BuildPrompt(grounding, question string) string {
	return fmt.Sprintf(promptTemplate, grounding, question)
}

// Compose answers question from selected. An empty selection short-circuits
// with NoDocumentsAnswer. Model failures are reported as
// domain.ErrCompletionUnavailable.
func (c *Composer) Compose(ctx context.Context, selected []domain.Candidate, question string) (*domain.Answer, error) {
	if len(selected) == 0 {
		return &domain.Answer{Text: NoDocumentsAnswer, Sources: []domain.Source{}}, nil
	}

	prompt := BuildPrompt(GroundingBlock(selected), question)
	if c.Debug {
		slog.Info("Composer prompt built", "chunks", len(selected), "prompt_length", len(prompt))
	}

	resp, err := c.LLM.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		if c.Debug {
			slog.Error("LLM Chat failed", "error", err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCompletionUnavailable, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("%w: empty completion", domain.ErrCompletionUnavailable)
	}

	text, casual := Classify(resp.Content)
	if c.Debug {
		slog.Info("Composer classified reply", "casual", casual)
	}

	ans := &domain.Answer{Text: text, IsCasual: casual, Sources: []domain.Source{}}
	if !casual {
		for _, s := range selected {
			ans.Sources = append(ans.Sources, domain.Source{
				DocumentName: s.DocumentName(),
				Content:      s.Chunk.Text,
			})
		}
	}
	return ans, nil
}

// Classify strips a leading control tag and reports whether the model took
// the casual branch. Whitespace before the tag is tolerated.
func Classify(raw string) (text string, casual bool) {
	trimmed := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(trimmed, tagCasual):
		return strings.TrimSpace(strings.TrimPrefix(trimmed, tagCasual)), true
	case strings.HasPrefix(trimmed, tagDocument):
		return strings.TrimSpace(strings.TrimPrefix(trimmed, tagDocument)), false
	default:
		return trimmed, false
	}
}
