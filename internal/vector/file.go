package vector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const collectionFileExt = ".vec"

// FileStore keeps collections in memory and persists each to "<dir>/<name>.vec".
type FileStore struct {
	dir         string
	collections map[string]*MemoryCollection
	logger      *zap.Logger
	mu          sync.Mutex
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLogger sets the logger used by the file store.
func WithLogger(l *zap.Logger) FileStoreOption {
	return func(s *FileStore) { s.logger = l }
}

// NewFileStore returns a store rooted at dir, creating the directory if needed.
func NewFileStore(dir string, opts ...FileStoreOption) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("vector store directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vector store directory: %w", err)
	}
	s := &FileStore{dir: dir, collections: make(map[string]*MemoryCollection), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+collectionFileExt)
}

// OpenOrCreate returns the named collection, loading it from disk on first use.
func (s *FileStore) OpenOrCreate(ctx context.Context, name string) (Collection, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	c := NewMemoryCollection(name)
	if err := c.Load(s.path(name)); err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", name, err)
	}
	s.collections[name] = c
	s.logger.Debug("Opened collection", zap.String("collection", name), zap.Int("records", len(c.ids)))
	return c, nil
}

// Collections lists collections on disk and those opened in this process.
func (s *FileStore) Collections(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read vector store directory: %w", err)
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), collectionFileExt) {
			continue
		}
		seen[strings.TrimSuffix(e.Name(), collectionFileExt)] = true
	}
	s.mu.Lock()
	for name := range s.collections {
		seen[name] = true
	}
	s.mu.Unlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Flush writes every modified collection to disk.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, c := range s.collections {
		if !c.Dirty() {
			continue
		}
		if err := c.Save(s.path(name)); err != nil {
			errs = append(errs, fmt.Errorf("save collection %s: %w", name, err))
			continue
		}
		s.logger.Debug("Saved collection", zap.String("collection", name))
	}
	return errors.Join(errs...)
}

// Close flushes all collections.
func (s *FileStore) Close() error {
	return s.Flush()
}
