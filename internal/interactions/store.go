// Package interactions persists the query/answer log and derives chat history from it.
package interactions

import (
	"context"
	"fmt"

	"github.com/hyperjump/medrag/internal/config"
	"github.com/hyperjump/medrag/internal/models"
	"go.uber.org/zap"
)

// Store is an ordered log of interaction entries.
type Store interface {
	Append(ctx context.Context, entry models.InteractionLogEntry) error
	// Entries returns all entries in append order.
	Entries(ctx context.Context) ([]models.InteractionLogEntry, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
	Close() error
}

// NewStore creates the store selected by cfg.Store: "json" (default) or "sqlite".
func NewStore(cfg config.InteractionsConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Store {
	case "json", "":
		return NewJSONFileStore(cfg.Path, WithStoreLogger(logger)), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown interaction store: %s (supported: json, sqlite)", cfg.Store)
	}
}
