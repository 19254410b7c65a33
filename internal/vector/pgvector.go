package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperjump/medrag/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGVectorStore keeps collections in PostgreSQL with the pgvector extension.
// The embedding column is an unsized vector so collections may differ in dimension.
type PGVectorStore struct {
	pool *pgxpool.Pool
}

// NewPGVectorStore connects to dsn and ensures the schema exists.
func NewPGVectorStore(ctx context.Context, dsn string) (*PGVectorStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required for the pgvector backend")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := ensurePGSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PGVectorStore{pool: pool}, nil
}

func ensurePGSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS medrag_collections (
			name TEXT PRIMARY KEY,
			dimensions INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS medrag_embeddings (
			collection TEXT NOT NULL REFERENCES medrag_collections(name) ON DELETE CASCADE,
			id TEXT NOT NULL,
			seq BIGSERIAL,
			embedding VECTOR NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		)`,
		"CREATE INDEX IF NOT EXISTS idx_medrag_embeddings_seq ON medrag_embeddings(collection, seq)",
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

// OpenOrCreate registers the collection if it does not exist.
func (s *PGVectorStore) OpenOrCreate(ctx context.Context, name string) (Collection, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO medrag_collections (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	return &pgCollection{pool: s.pool, name: name}, nil
}

// Collections returns all collection names.
func (s *PGVectorStore) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM medrag_collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan collections: %w", err)
	}
	return names, nil
}

// Close closes the connection pool.
func (s *PGVectorStore) Close() error {
	s.pool.Close()
	return nil
}

type pgCollection struct {
	pool *pgxpool.Pool
	name string
}

func (c *pgCollection) Name() string {
	return c.name
}

func (c *pgCollection) dimensions(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}) (int, error) {
	var dims int
	err := q.QueryRow(ctx, `SELECT dimensions FROM medrag_collections WHERE name = $1`, c.name).Scan(&dims)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return dims, err
}

func (c *pgCollection) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	if id == "" {
		return fmt.Errorf("record id is required")
	}
	if len(vector) == 0 {
		return fmt.Errorf("empty vector for %s", id)
	}
	metadataJSON, err := json.Marshal(copyMetadata(metadata))
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	dims, err := c.dimensions(ctx, tx)
	if err != nil {
		return fmt.Errorf("read collection %s: %w", c.name, err)
	}
	if dims == 0 {
		if _, err := tx.Exec(ctx, `UPDATE medrag_collections SET dimensions = $1 WHERE name = $2`, len(vector), c.name); err != nil {
			return fmt.Errorf("set collection dimensions: %w", err)
		}
	} else if dims != len(vector) {
		return fmt.Errorf("collection %s: got %d dimensions, expected %d: %w",
			c.name, len(vector), dims, models.ErrDimensionMismatch)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO medrag_embeddings (collection, id, embedding, metadata)
		VALUES ($1, $2, $3::vector, $4::jsonb)
		ON CONFLICT (collection, id) DO UPDATE
		SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata, updated_at = NOW()
	`, c.name, id, pgvector.NewVector(vector), string(metadataJSON)); err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}
	return tx.Commit(ctx)
}

func (c *pgCollection) Query(ctx context.Context, vector []float32, k int) ([]*Match, error) {
	if k <= 0 {
		return []*Match{}, nil
	}
	dims, err := c.dimensions(ctx, c.pool)
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", c.name, err)
	}
	if dims == 0 {
		return []*Match{}, nil
	}
	if len(vector) != dims {
		return nil, fmt.Errorf("collection %s: query has %d dimensions, expected %d: %w",
			c.name, len(vector), dims, models.ErrDimensionMismatch)
	}

	rows, err := c.pool.Query(ctx, `
		SELECT id, metadata, 1 - (embedding <=> $2::vector) AS score
		FROM medrag_embeddings
		WHERE collection = $1
		ORDER BY embedding <=> $2::vector, seq
		LIMIT $3
	`, c.name, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query similar records: %w", err)
	}
	defer rows.Close()

	matches := []*Match{}
	for rows.Next() {
		var m Match
		var metadataJSON []byte
		if err := rows.Scan(&m.ID, &metadataJSON, &m.Score); err != nil {
			return nil, fmt.Errorf("scan similar record: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", m.ID, err)
		}
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (c *pgCollection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.pool.QueryRow(ctx, `SELECT COUNT(*) FROM medrag_embeddings WHERE collection = $1`, c.name).Scan(&n)
	return n, err
}
