package watcher

import (
	"context"
	"sync"

	"github.com/hyperjump/medrag/internal/fileid"
	"github.com/hyperjump/medrag/internal/indexer"
	"github.com/hyperjump/medrag/internal/models"
	"go.uber.org/zap"
)

// Rechunker rebuilds the chunk file of one raw document.
type Rechunker interface {
	BuildFile(path string) ([]*models.Chunk, error)
}

// Reindexer re-embeds one disease's chunks under every model.
type Reindexer interface {
	IndexDisease(ctx context.Context, source indexer.ChunkSource, disease string) (*indexer.Report, error)
}

// Refresher is a Handler that re-chunks and re-indexes a raw document when it changes.
// Removals are only logged; chunk files and vectors are left in place.
type Refresher struct {
	chunker Rechunker
	indexer Reindexer
	source  indexer.ChunkSource
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewRefresher creates a Refresher. A nil logger is replaced by a no-op logger.
func NewRefresher(chunker Rechunker, idx Reindexer, source indexer.ChunkSource, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{chunker: chunker, indexer: idx, source: source, logger: logger}
}

// Changed re-chunks path and re-indexes its disease. Failures are logged.
func (r *Refresher) Changed(ctx context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	disease := fileid.DiseaseFromPath(path)
	if _, err := r.chunker.BuildFile(path); err != nil {
		r.logger.Warn("Failed to re-chunk raw document", zap.String("path", path), zap.Error(err))
		return
	}
	report, err := r.indexer.IndexDisease(ctx, r.source, disease)
	if err != nil {
		r.logger.Warn("Failed to re-index disease", zap.String("disease", disease), zap.Error(err))
		return
	}
	r.logger.Info("Raw document refreshed",
		zap.String("disease", disease),
		zap.Int("chunks", report.Chunks),
		zap.Int("failed", report.TotalFailed()))
}

// Removed logs the removal.
func (r *Refresher) Removed(_ context.Context, path string) {
	r.logger.Info("Raw document removed; indexed chunks are kept",
		zap.String("path", path),
		zap.String("disease", fileid.DiseaseFromPath(path)))
}
