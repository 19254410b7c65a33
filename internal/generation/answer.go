package generation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Fixed answers returned instead of a generated one.
const (
	NoRelevantDataAnswer = "No relevant data found in the context."
	FailedAnswer         = "Failed to generate an answer."
	// NoContext is recorded as the retrieved context when nothing was retrieved.
	NoContext = "No relevant data found."
)

// BuildPrompt combines the retrieved context and the question.
func BuildPrompt(contextText, question string) string {
	return fmt.Sprintf("Context: %s\nQuestion: %s\nAnswer:", contextText, question)
}

// JoinContext joins chunk contents with newlines, preserving order.
func JoinContext(contents []string) string {
	return strings.Join(contents, "\n")
}

// Answer is the outcome of one generation attempt.
type Answer struct {
	Text    string
	Context string
	// Generated is true only when Text came from the model.
	Generated bool
}

// Answerer turns retrieved contents into an answer with at most one Generator call.
type Answerer struct {
	generator Generator
	logger    *zap.Logger
}

// AnswererOption configures an Answerer.
type AnswererOption func(*Answerer)

// WithLogger sets the answerer logger.
func WithLogger(l *zap.Logger) AnswererOption {
	return func(a *Answerer) { a.logger = l }
}

// NewAnswerer creates an Answerer backed by generator.
func NewAnswerer(generator Generator, opts ...AnswererOption) *Answerer {
	a := &Answerer{generator: generator, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer returns NoRelevantDataAnswer without calling the model when contents is empty.
// Otherwise it calls the model once; an error or blank output becomes FailedAnswer.
func (a *Answerer) Answer(ctx context.Context, question string, contents []string) *Answer {
	if len(contents) == 0 {
		return &Answer{Text: NoRelevantDataAnswer, Context: NoContext}
	}
	joined := JoinContext(contents)
	text, err := a.generator.Generate(ctx, BuildPrompt(joined, question))
	if err != nil {
		a.logger.Error("Generation failed", zap.Error(err))
		return &Answer{Text: FailedAnswer, Context: joined}
	}
	if strings.TrimSpace(text) == "" {
		a.logger.Error("Generation returned an empty answer")
		return &Answer{Text: FailedAnswer, Context: joined}
	}
	return &Answer{Text: text, Context: joined, Generated: true}
}
