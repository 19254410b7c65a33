package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/medrag/internal/config"
	"go.uber.org/zap"
)

// Backend names a vector store implementation.
type Backend string

const (
	// BackendFile keeps collections in memory and persists one binary file per collection.
	BackendFile Backend = "file"
	// BackendSQLite stores all collections in one SQLite database.
	BackendSQLite Backend = "sqlite"
	// BackendPGVector stores collections in PostgreSQL with the pgvector extension.
	BackendPGVector Backend = "pgvector"
)

// NewStore creates the vector store selected by cfg.Backend.
// Supported backends: "file" (default), "sqlite", "pgvector".
func NewStore(ctx context.Context, cfg config.VectorConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch Backend(cfg.Backend) {
	case BackendFile, "":
		return NewFileStore(cfg.Path, WithLogger(logger))
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	case BackendPGVector:
		return NewPGVectorStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: file, sqlite, pgvector)", cfg.Backend)
	}
}
