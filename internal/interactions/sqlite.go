package interactions

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/medrag/internal/models"
)

// SQLiteStore is an append-only interaction log in SQLite. Appends are single INSERTs,
// so concurrent writers never lose entries.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		query TEXT NOT NULL,
		retrieved_context TEXT NOT NULL,
		generated_answer TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Append inserts one entry.
func (s *SQLiteStore) Append(ctx context.Context, entry models.InteractionLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (timestamp, query, retrieved_context, generated_answer)
		 VALUES (?, ?, ?, ?)`,
		entry.Timestamp, entry.Query, entry.RetrievedContext, entry.GeneratedAnswer,
	)
	return err
}

// Entries returns all entries ordered by insertion.
func (s *SQLiteStore) Entries(ctx context.Context) ([]models.InteractionLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, query, retrieved_context, generated_answer
		 FROM interactions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.InteractionLogEntry{}
	for rows.Next() {
		var e models.InteractionLogEntry
		if err := rows.Scan(&e.Timestamp, &e.Query, &e.RetrievedContext, &e.GeneratedAnswer); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear deletes every entry.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM interactions`)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
