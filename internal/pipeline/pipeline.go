// Package pipeline runs one question through retrieval, generation and logging.
package pipeline

import (
	"context"
	"strings"

	"github.com/hyperjump/medrag/internal/generation"
	"github.com/hyperjump/medrag/internal/models"
	"github.com/hyperjump/medrag/internal/retrieval"
	"go.uber.org/zap"
)

// Retriever returns ranked chunk contents for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (*retrieval.Result, error)
}

// InteractionLog records interactions and serves chat history.
type InteractionLog interface {
	Append(ctx context.Context, query, retrievedContext, answer string) error
	LoadHistory(ctx context.Context) []models.HistoryItem
	Clear(ctx context.Context) error
}

// Response is the outcome of Ask.
type Response struct {
	Question  string
	Answer    string
	Context   string
	ChunkIDs  []string
	Generated bool
	Dropped   int
}

// Pipeline wires the retrieval engine, the answerer and the interaction log.
type Pipeline struct {
	retriever Retriever
	answerer  *generation.Answerer
	log       InteractionLog
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline. log may be nil to answer without recording interactions.
func New(retriever Retriever, answerer *generation.Answerer, log InteractionLog, opts ...Option) *Pipeline {
	p := &Pipeline{retriever: retriever, answerer: answerer, log: log, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ask answers question with the top k chunks (k <= 0 uses the retriever default) and
// appends exactly one log entry. Only a blank question returns an error.
func (p *Pipeline) Ask(ctx context.Context, question string, k int) (*Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, models.ErrEmptyQuery
	}

	resp := &Response{Question: question, ChunkIDs: []string{}}
	result, err := p.retriever.Retrieve(ctx, question, k)
	if err != nil {
		p.logger.Error("Retrieval failed", zap.String("query", question), zap.Error(err))
		resp.Answer = generation.FailedAnswer
		resp.Context = generation.NoContext
	} else {
		ans := p.answerer.Answer(ctx, question, result.Contents)
		resp.Answer = ans.Text
		resp.Context = ans.Context
		resp.Generated = ans.Generated
		resp.ChunkIDs = result.ChunkIDs
		resp.Dropped = result.Dropped
	}

	if p.log != nil {
		if err := p.log.Append(ctx, question, resp.Context, resp.Answer); err != nil {
			p.logger.Error("Failed to record interaction", zap.Error(err))
		}
	}
	return resp, nil
}

// History returns the chat history, oldest first.
func (p *Pipeline) History(ctx context.Context) []models.HistoryItem {
	if p.log == nil {
		return []models.HistoryItem{}
	}
	return p.log.LoadHistory(ctx)
}

// ClearHistory empties the interaction log.
func (p *Pipeline) ClearHistory(ctx context.Context) error {
	if p.log == nil {
		return nil
	}
	return p.log.Clear(ctx)
}

// WithoutLog returns a copy of the pipeline that does not record interactions.
func (p *Pipeline) WithoutLog() *Pipeline {
	cp := *p
	cp.log = nil
	return &cp
}
