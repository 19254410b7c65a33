package interactions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyperjump/medrag/internal/models"
	"go.uber.org/zap"
)

// JSONFileStore keeps the log as a single JSON array file. Every append rewrites the
// whole file; writers are serialized by a mutex and the file is replaced atomically.
// A missing or unparsable file reads as an empty log.
type JSONFileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// StoreOption configures a JSONFileStore.
type StoreOption func(*JSONFileStore)

// WithStoreLogger sets the logger used to report a corrupt log file.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *JSONFileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewJSONFileStore returns a store backed by the file at path. The file is created on first write.
func NewJSONFileStore(path string, opts ...StoreOption) *JSONFileStore {
	s := &JSONFileStore{path: path, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the log file path.
func (s *JSONFileStore) Path() string {
	return s.path
}

// Append adds entry to the end of the log.
func (s *JSONFileStore) Append(ctx context.Context, entry models.InteractionLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.read()
	entries = append(entries, entry)
	return s.write(entries)
}

// Entries returns the logged entries; a corrupt or missing file yields an empty slice.
func (s *JSONFileStore) Entries(ctx context.Context) ([]models.InteractionLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(), nil
}

// Clear truncates the log to an empty array.
func (s *JSONFileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write([]models.InteractionLogEntry{})
}

// Close is a no-op.
func (s *JSONFileStore) Close() error {
	return nil
}

func (s *JSONFileStore) read() []models.InteractionLogEntry {
	entries := []models.InteractionLogEntry{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Interaction log unreadable, treating as empty", zap.String("path", s.path), zap.Error(err))
		}
		return entries
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return entries
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("Interaction log corrupt, treating as empty", zap.String("path", s.path), zap.Error(err))
		return []models.InteractionLogEntry{}
	}
	return entries
}

func (s *JSONFileStore) write(entries []models.InteractionLogEntry) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode interaction log: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".rag_log-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp log file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write interaction log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close interaction log: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace interaction log: %w", err)
	}
	return nil
}
