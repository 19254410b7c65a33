package interactions

import (
	"context"
	"time"

	"github.com/hyperjump/medrag/internal/models"
	"go.uber.org/zap"
)

// Logger timestamps interactions into a Store and projects them into chat history.
type Logger struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithLogger sets the zap logger.
func WithLogger(l *zap.Logger) LoggerOption {
	return func(lg *Logger) { lg.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) LoggerOption {
	return func(lg *Logger) { lg.now = now }
}

// NewLogger returns a Logger writing to store.
func NewLogger(store Store, opts ...LoggerOption) *Logger {
	lg := &Logger{store: store, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(lg)
	}
	return lg
}

// Append records one completed query/answer cycle.
func (l *Logger) Append(ctx context.Context, query, retrievedContext, answer string) error {
	return l.store.Append(ctx, models.InteractionLogEntry{
		Timestamp:        l.now().Format(models.TimestampLayout),
		Query:            query,
		RetrievedContext: retrievedContext,
		GeneratedAnswer:  answer,
	})
}

// LoadHistory returns (query, answer) pairs in append order. Store failures yield an empty history.
func (l *Logger) LoadHistory(ctx context.Context) []models.HistoryItem {
	entries, err := l.store.Entries(ctx)
	if err != nil {
		l.logger.Warn("Failed to load interaction history", zap.Error(err))
		return []models.HistoryItem{}
	}
	history := make([]models.HistoryItem, len(entries))
	for i, e := range entries {
		history[i] = models.HistoryItem{Query: e.Query, Answer: e.GeneratedAnswer}
	}
	return history
}

// Entries returns the raw log entries.
func (l *Logger) Entries(ctx context.Context) ([]models.InteractionLogEntry, error) {
	return l.store.Entries(ctx)
}

// Clear empties the log.
func (l *Logger) Clear(ctx context.Context) error {
	return l.store.Clear(ctx)
}
