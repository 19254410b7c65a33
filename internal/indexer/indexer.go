// Package indexer embeds chunks with every configured embedding model and upserts them
// into one vector collection per model.
package indexer

import (
	"context"
	"fmt"

	"github.com/hyperjump/medrag/internal/embedding"
	"github.com/hyperjump/medrag/internal/fileid"
	"github.com/hyperjump/medrag/internal/models"
	"github.com/hyperjump/medrag/internal/vector"
	"go.uber.org/zap"
)

const defaultBatchSize = 32

// ChunkSource loads chunks from the corpus.
type ChunkSource interface {
	Load(disease string) ([]*models.Chunk, error)
	LoadAll(ctx context.Context) ([]*models.Chunk, error)
}

// flusher is implemented by stores that buffer writes (the file backend).
type flusher interface {
	Flush() error
}

// Indexer writes chunk embeddings into per-model collections.
type Indexer struct {
	registry  *embedding.Registry
	store     vector.Store
	batchSize int
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for progress and per-chunk failures.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize sets how many chunks are embedded per EmbedBatch call.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// NewIndexer creates an indexer over the registry's models and the given store.
func NewIndexer(registry *embedding.Registry, store vector.Store, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		registry:  registry,
		store:     store,
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Report summarizes an indexing run.
type Report struct {
	Chunks int
	// Indexed and Failed count chunks per model id.
	Indexed map[string]int
	Failed  map[string]int
	// Errors holds models that could not be indexed at all.
	Errors map[string]error
}

func newReport(chunks int) *Report {
	return &Report{
		Chunks:  chunks,
		Indexed: make(map[string]int),
		Failed:  make(map[string]int),
		Errors:  make(map[string]error),
	}
}

// TotalFailed returns the number of failed (model, chunk) pairs.
func (r *Report) TotalFailed() int {
	n := 0
	for _, f := range r.Failed {
		n += f
	}
	return n
}

// IndexCorpus embeds and upserts every chunk under every model, in registry order.
// A chunk that fails to embed or upsert is logged and skipped for that model only.
// A model whose collection cannot be opened is recorded in Report.Errors.
// The returned error is non-nil only when the context is cancelled.
func (idx *Indexer) IndexCorpus(ctx context.Context, chunks []*models.Chunk) (*Report, error) {
	report := newReport(len(chunks))
	for _, modelID := range idx.registry.Models() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := idx.indexModel(ctx, modelID, chunks, report); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Errors[modelID] = err
			idx.logger.Error("Failed to index model", zap.String("model", modelID), zap.Error(err))
		}
	}
	if f, ok := idx.store.(flusher); ok {
		if err := f.Flush(); err != nil {
			return report, fmt.Errorf("failed to flush vector store: %w", err)
		}
	}
	return report, nil
}

// IndexAll loads the whole corpus and indexes it.
func (idx *Indexer) IndexAll(ctx context.Context, source ChunkSource) (*Report, error) {
	chunks, err := source.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	return idx.IndexCorpus(ctx, chunks)
}

// IndexDisease re-indexes one disease's chunk file under every model.
func (idx *Indexer) IndexDisease(ctx context.Context, source ChunkSource, disease string) (*Report, error) {
	chunks, err := source.Load(disease)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks for %s: %w", disease, err)
	}
	return idx.IndexCorpus(ctx, chunks)
}

func (idx *Indexer) indexModel(ctx context.Context, modelID string, chunks []*models.Chunk, report *Report) error {
	embedder, err := idx.registry.Get(modelID)
	if err != nil {
		return err
	}
	name := fileid.CollectionName(modelID)
	collection, err := idx.store.OpenOrCreate(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to open collection %s: %w", name, err)
	}
	idx.logger.Info("Indexing chunks",
		zap.String("model", modelID),
		zap.String("collection", name),
		zap.Int("chunks", len(chunks)))

	for start := 0; start < len(chunks); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		vectors := idx.embedBatch(ctx, embedder, modelID, batch)
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, ch := range batch {
			if vectors[i] == nil {
				report.Failed[modelID]++
				continue
			}
			if err := collection.Upsert(ctx, ch.ChunkID, vectors[i], ch.Metadata.Map()); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				report.Failed[modelID]++
				idx.logger.Warn("Failed to upsert chunk",
					zap.String("model", modelID),
					zap.String("chunk_id", ch.ChunkID),
					zap.Error(err))
				continue
			}
			report.Indexed[modelID]++
		}
	}
	idx.logger.Info("Indexed model",
		zap.String("model", modelID),
		zap.Int("indexed", report.Indexed[modelID]),
		zap.Int("failed", report.Failed[modelID]))
	return nil
}

// embedBatch embeds a batch in one call, falling back to one call per chunk when the
// batch fails so a single bad chunk does not take the others down. Failed entries are nil.
func (idx *Indexer) embedBatch(ctx context.Context, e embedding.Embedder, modelID string, batch []*models.Chunk) [][]float32 {
	texts := make([]string, len(batch))
	for i, ch := range batch {
		texts[i] = ch.Content
	}
	vectors, err := e.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) == len(batch) {
		return vectors
	}

	vectors = make([][]float32, len(batch))
	for i, ch := range batch {
		if ctx.Err() != nil {
			return vectors
		}
		vec, err := e.Embed(ctx, ch.Content)
		if err != nil {
			idx.logger.Warn("Failed to embed chunk",
				zap.String("model", modelID),
				zap.String("chunk_id", ch.ChunkID),
				zap.Error(err))
			continue
		}
		vectors[i] = vec
	}
	return vectors
}
