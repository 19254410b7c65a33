// Package chunker turns raw per-disease documents into addressable content chunks.
package chunker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/medrag/internal/fileid"
	"github.com/hyperjump/medrag/internal/models"
	"go.uber.org/zap"
)

// IDMode selects how chunk IDs are assigned.
type IDMode string

const (
	// IDModeStable derives the ID from (disease, category, subsection); re-chunking is idempotent.
	IDModeStable IDMode = "stable"
	// IDModeRandom assigns a fresh random UUID on every run.
	IDModeRandom IDMode = "random"
)

// ParseIDMode validates a configured id mode. Empty means stable.
func ParseIDMode(s string) (IDMode, error) {
	switch IDMode(strings.ToLower(strings.TrimSpace(s))) {
	case IDModeStable, "":
		return IDModeStable, nil
	case IDModeRandom:
		return IDModeRandom, nil
	default:
		return "", fmt.Errorf("unknown chunk id mode: %s (supported: stable, random)", s)
	}
}

// ChunkWriter persists the ordered chunks of one disease as a unit.
type ChunkWriter interface {
	Write(disease string, chunks []*models.Chunk) error
}

// Builder builds chunks and writes them through a ChunkWriter.
type Builder struct {
	writer ChunkWriter
	idMode IDMode
	logger *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets a logger for per-file progress and failures.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// WithIDMode sets the chunk id mode (default IDModeStable).
func WithIDMode(mode IDMode) BuilderOption {
	return func(b *Builder) { b.idMode = mode }
}

// NewBuilder creates a builder that writes chunk files through w.
func NewBuilder(w ChunkWriter, opts ...BuilderOption) *Builder {
	b := &Builder{writer: w, idMode: IDModeStable, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build emits one chunk per (category, subsection) pair in document order.
// Content is the subsection text, unmodified.
func (b *Builder) Build(doc *models.RawDocument) []*models.Chunk {
	chunks := make([]*models.Chunk, 0, doc.SubsectionCount())
	for _, category := range doc.Categories {
		for _, sub := range category.Subsections {
			chunks = append(chunks, &models.Chunk{
				ChunkID: b.chunkID(doc.Disease, category.Name, sub.Name),
				Metadata: models.ChunkMetadata{
					Category:    category.Name,
					SubCategory: sub.Name,
					Disease:     doc.Disease,
				},
				Content: sub.Text,
			})
		}
	}
	return chunks
}

func (b *Builder) chunkID(disease, category, subCategory string) string {
	if b.idMode == IDModeRandom {
		return uuid.New().String()
	}
	return fileid.StableChunkID(disease, category, subCategory)
}

// BuildFile chunks one raw document file and writes the disease's chunk file.
// The disease name is the file name without its extension.
func (b *Builder) BuildFile(path string) ([]*models.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw document: %w", err)
	}
	doc, err := ParseRawDocument(data)
	if err != nil {
		var m *models.MalformedInputError
		if errors.As(err, &m) {
			m.Path = path
		}
		return nil, err
	}
	doc.Disease = fileid.DiseaseFromPath(path)
	chunks := b.Build(doc)
	if err := b.writer.Write(doc.Disease, chunks); err != nil {
		return nil, fmt.Errorf("failed to write chunks for %s: %w", doc.Disease, err)
	}
	b.logger.Info("document chunked", zap.String("disease", doc.Disease), zap.Int("chunks", len(chunks)))
	return chunks, nil
}

// Report summarizes a directory build.
type Report struct {
	Files  int
	Chunks int
	Failed map[string]error
}

// BuildDirectory chunks every *.json file in rawDir in name order. A failing file is
// recorded in the report and does not stop the batch. Only an unreadable directory is an error.
func (b *Builder) BuildDirectory(ctx context.Context, rawDir string) (*Report, error) {
	entries, err := os.ReadDir(rawDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw document directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(rawDir, e.Name()))
	}
	sort.Strings(paths)

	report := &Report{Failed: make(map[string]error)}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		chunks, err := b.BuildFile(path)
		if err != nil {
			b.logger.Warn("skipping raw document", zap.String("path", path), zap.Error(err))
			report.Failed[path] = err
			continue
		}
		report.Files++
		report.Chunks += len(chunks)
	}
	return report, nil
}
