// Package retrieval embeds a query, searches the matching vector collection and resolves
// the returned chunk ids back to their content through the chunk corpus.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/hyperjump/medrag/internal/embedding"
	"github.com/hyperjump/medrag/internal/fileid"
	"github.com/hyperjump/medrag/internal/models"
	"github.com/hyperjump/medrag/internal/vector"
	"go.uber.org/zap"
)

// DefaultTopK is the number of chunks retrieved when k is not given.
const DefaultTopK = 5

// Resolver maps chunk ids to content. Ids it cannot find are absent from the result.
type Resolver interface {
	Resolve(ctx context.Context, ids []string) (map[string]string, error)
}

// Result is an ordered, best-first retrieval result.
type Result struct {
	Contents []string
	ChunkIDs []string
	Scores   []float64
	// Dropped counts ids returned by the index that the corpus could not resolve.
	Dropped int
}

// Empty reports whether nothing was retrieved.
func (r *Result) Empty() bool {
	return len(r.Contents) == 0
}

// Engine runs retrieval for a fixed serving model.
type Engine struct {
	registry     *embedding.Registry
	store        vector.Store
	resolver     Resolver
	servingModel string
	topK         int
	dropped      atomic.Int64
	logger       *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithTopK sets the default number of results.
func WithTopK(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// NewEngine creates a retrieval engine that serves queries with servingModel.
// The model must be present in the registry.
func NewEngine(registry *embedding.Registry, store vector.Store, resolver Resolver, servingModel string, opts ...EngineOption) (*Engine, error) {
	if _, err := registry.Get(servingModel); err != nil {
		return nil, fmt.Errorf("serving model: %w", err)
	}
	e := &Engine{
		registry:     registry,
		store:        store,
		resolver:     resolver,
		servingModel: servingModel,
		topK:         DefaultTopK,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ServingModel returns the embedding model used by Retrieve.
func (e *Engine) ServingModel() string {
	return e.servingModel
}

// DroppedTotal returns how many unresolved chunk ids have been dropped since start.
func (e *Engine) DroppedTotal() int64 {
	return e.dropped.Load()
}

// Retrieve returns up to k chunk contents for query using the serving model.
// k <= 0 means the configured default.
func (e *Engine) Retrieve(ctx context.Context, query string, k int) (*Result, error) {
	return e.retrieve(ctx, e.servingModel, query, k)
}

// Query runs retrieval against any registered model and returns the resolved contents.
func (e *Engine) Query(ctx context.Context, modelID, text string, k int) ([]string, error) {
	res, err := e.retrieve(ctx, modelID, text, k)
	if err != nil {
		return nil, err
	}
	return res.Contents, nil
}

func (e *Engine) retrieve(ctx context.Context, modelID, query string, k int) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.ErrEmptyQuery
	}
	if k <= 0 {
		k = e.topK
	}
	embedder, err := e.registry.Get(modelID)
	if err != nil {
		return nil, err
	}
	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	collection, err := e.store.OpenOrCreate(ctx, fileid.CollectionName(modelID))
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}
	matches, err := collection.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	result := &Result{Contents: []string{}, ChunkIDs: []string{}, Scores: []float64{}}
	if len(matches) == 0 {
		return result, nil
	}
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	contents, err := e.resolver.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chunks: %w", err)
	}
	for _, m := range matches {
		content, ok := contents[m.ID]
		if !ok {
			result.Dropped++
			e.logger.Warn("Dropping unresolved chunk id",
				zap.String("model", modelID),
				zap.String("chunk_id", m.ID))
			continue
		}
		result.Contents = append(result.Contents, content)
		result.ChunkIDs = append(result.ChunkIDs, m.ID)
		result.Scores = append(result.Scores, m.Score)
	}
	if result.Dropped > 0 {
		e.dropped.Add(int64(result.Dropped))
	}
	e.logger.Debug("Retrieved chunks",
		zap.String("model", modelID),
		zap.Int("matches", len(matches)),
		zap.Int("resolved", len(result.Contents)),
		zap.Int("dropped", result.Dropped))
	return result, nil
}
