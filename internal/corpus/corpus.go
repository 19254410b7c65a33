// Package corpus stores chunk files on disk (one "<disease>_documents.json" per disease)
// and resolves chunk IDs back to their content by scanning those files.
package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/hyperjump/medrag/internal/fileid"
	"github.com/hyperjump/medrag/internal/models"
	"go.uber.org/zap"
)

// Corpus is a directory of chunk files.
type Corpus struct {
	dir    string
	logger *zap.Logger
}

// Option configures a Corpus.
type Option func(*Corpus)

// WithLogger sets a logger for skipped files and resolution diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Corpus) { c.logger = l }
}

// New returns a corpus rooted at dir. The directory is created on first Write.
func New(dir string, opts ...Option) *Corpus {
	c := &Corpus{dir: dir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the corpus directory.
func (c *Corpus) Dir() string {
	return c.dir
}

// Path returns the chunk file path for a disease.
func (c *Corpus) Path(disease string) string {
	return filepath.Join(c.dir, fileid.ChunkFileName(disease))
}

// Write replaces the chunk file for disease with chunks, in order.
// The file is written to a temporary name and renamed into place.
func (c *Corpus) Write(disease string, chunks []*models.Chunk) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create corpus directory: %w", err)
	}
	if chunks == nil {
		chunks = []*models.Chunk{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(chunks); err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}
	path := c.Path(disease)
	tmp, err := os.CreateTemp(c.dir, ".chunks-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp chunk file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write chunk file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close chunk file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace chunk file: %w", err)
	}
	c.logger.Debug("chunk file written", zap.String("disease", disease), zap.Int("chunks", len(chunks)), zap.String("path", path))
	return nil
}

// Diseases returns the diseases that have a chunk file, sorted by name.
// Returns an error if the corpus directory cannot be read.
func (c *Corpus) Diseases() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory: %w", err)
	}
	var diseases []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if disease, ok := fileid.DiseaseFromChunkFile(e.Name()); ok {
			diseases = append(diseases, disease)
		}
	}
	sort.Strings(diseases)
	return diseases, nil
}

// Load reads the chunks for one disease. A file that is not a JSON array of chunks
// yields a *models.MalformedInputError.
func (c *Corpus) Load(disease string) ([]*models.Chunk, error) {
	path := c.Path(disease)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk file: %w", err)
	}
	return decodeChunks(path, data)
}

func decodeChunks(path string, data []byte) ([]*models.Chunk, error) {
	var chunks []*models.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, &models.MalformedInputError{Path: path, Reason: "chunk file is not a JSON array of chunks", Err: err}
	}
	for i, ch := range chunks {
		if ch == nil || ch.ChunkID == "" {
			return nil, &models.MalformedInputError{Path: path, Reason: fmt.Sprintf("chunk %d has no chunk_id", i)}
		}
	}
	return chunks, nil
}

// LoadAll reads every chunk file in disease order. Unreadable or malformed files are
// logged and skipped; only an unreadable corpus directory is an error.
func (c *Corpus) LoadAll(ctx context.Context) ([]*models.Chunk, error) {
	diseases, err := c.Diseases()
	if err != nil {
		return nil, err
	}
	var all []*models.Chunk
	for _, disease := range diseases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks, err := c.Load(disease)
		if err != nil {
			c.logger.Warn("skipping chunk file", zap.String("disease", disease), zap.Error(err))
			continue
		}
		all = append(all, chunks...)
	}
	return all, nil
}

// Resolve looks up the content of each id by scanning the chunk files, stopping as soon
// as every id is found. Ids that appear in no file are absent from the result.
// A missing corpus directory resolves nothing and is not an error.
func (c *Corpus) Resolve(ctx context.Context, ids []string) (map[string]string, error) {
	found := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	diseases, err := c.Diseases()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return found, nil
		}
		return nil, err
	}
	for _, disease := range diseases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks, err := c.Load(disease)
		if err != nil {
			c.logger.Warn("skipping chunk file during resolve", zap.String("disease", disease), zap.Error(err))
			continue
		}
		for _, ch := range chunks {
			if _, ok := want[ch.ChunkID]; !ok {
				continue
			}
			if _, done := found[ch.ChunkID]; !done {
				found[ch.ChunkID] = ch.Content
			}
		}
		if len(found) == len(want) {
			break
		}
	}
	return found, nil
}

// Lookup resolves a single chunk id.
func (c *Corpus) Lookup(ctx context.Context, id string) (string, bool, error) {
	found, err := c.Resolve(ctx, []string{id})
	if err != nil {
		return "", false, err
	}
	content, ok := found[id]
	return content, ok, nil
}
