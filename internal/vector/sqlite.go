package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/medrag/internal/models"
)

// SQLiteStore keeps all collections in one SQLite database.
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
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimensions INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		vector BLOB NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (collection, id),
		FOREIGN KEY (collection) REFERENCES collections(name) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_seq ON embeddings(collection, seq);
	`
	_, err := db.Exec(schema)
	return err
}

// OpenOrCreate registers the collection if it does not exist.
func (s *SQLiteStore) OpenOrCreate(ctx context.Context, name string) (Collection, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return &sqliteCollection{db: s.db, name: name}, nil
}

// Collections returns all collection names.
func (s *SQLiteStore) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteCollection struct {
	db   *sql.DB
	name string
}

func (c *sqliteCollection) Name() string {
	return c.name
}

func (c *sqliteCollection) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	if id == "" {
		return fmt.Errorf("record id is required")
	}
	if len(vector) == 0 {
		return fmt.Errorf("empty vector for %s", id)
	}
	metadataJSON, err := json.Marshal(copyMetadata(metadata))
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var dims int
	if err := tx.QueryRowContext(ctx, `SELECT dimensions FROM collections WHERE name = ?`, c.name).Scan(&dims); err != nil {
		return fmt.Errorf("failed to read collection %s: %w", c.name, err)
	}
	if dims == 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE collections SET dimensions = ? WHERE name = ?`, len(vector), c.name); err != nil {
			return err
		}
	} else if dims != len(vector) {
		return fmt.Errorf("collection %s: got %d dimensions, expected %d: %w",
			c.name, len(vector), dims, models.ErrDimensionMismatch)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO embeddings (collection, id, seq, vector, metadata)
		 VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM embeddings WHERE collection = ?), ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET vector = excluded.vector, metadata = excluded.metadata`,
		c.name, id, c.name, float32SliceToBytes(vector), string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", id, err)
	}
	return tx.Commit()
}

func (c *sqliteCollection) Query(ctx context.Context, vector []float32, k int) ([]*Match, error) {
	if k <= 0 {
		return []*Match{}, nil
	}
	var dims int
	err := c.db.QueryRowContext(ctx, `SELECT dimensions FROM collections WHERE name = ?`, c.name).Scan(&dims)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if dims == 0 {
		return []*Match{}, nil
	}
	if len(vector) != dims {
		return nil, fmt.Errorf("collection %s: query has %d dimensions, expected %d: %w",
			c.name, len(vector), dims, models.ErrDimensionMismatch)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, vector, metadata FROM embeddings WHERE collection = ? ORDER BY seq`, c.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []candidate
	for rows.Next() {
		var id, metadataJSON string
		var blob []byte
		if err := rows.Scan(&id, &blob, &metadataJSON); err != nil {
			return nil, err
		}
		var meta map[string]string
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &meta); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", id, err)
			}
		}
		candidates = append(candidates, candidate{id: id, vector: bytesToFloat32Slice(blob), metadata: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankTopK(vector, candidates, k), nil
}

func (c *sqliteCollection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings WHERE collection = ?`, c.name).Scan(&n)
	return n, err
}
