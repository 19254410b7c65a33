package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/medrag/internal/config"
)

func TestNewStore_File(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, config.VectorConfig{Backend: "file", Path: filepath.Join(t.TempDir(), "vectors")}, nil)
	if err != nil {
		t.Fatalf("NewStore(file): %v", err)
	}
	defer s.Close()
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("expected *FileStore, got %T", s)
	}

	coll, err := s.OpenOrCreate(ctx, "all-MiniLM-L6-v2")
	if err != nil {
		t.Fatalf("OpenOrCreate: %v", err)
	}
	if err := coll.Upsert(ctx, "a", []float32{1, 0, 0}, nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n, _ := coll.Count(ctx); n != 1 {
		t.Errorf("Count=%d, want 1", n)
	}
}

func TestNewStore_Empty(t *testing.T) {
	// Empty backend defaults to file
	s, err := NewStore(context.Background(), config.VectorConfig{Path: filepath.Join(t.TempDir(), "vectors")}, nil)
	if err != nil {
		t.Fatalf("NewStore(''): %v", err)
	}
	defer s.Close()
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("expected *FileStore, got %T", s)
	}
}

func TestNewStore_SQLite(t *testing.T) {
	s, err := NewStore(context.Background(), config.VectorConfig{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "v.db")}, nil)
	if err != nil {
		t.Fatalf("NewStore(sqlite): %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", s)
	}
}

func TestNewStore_Unknown(t *testing.T) {
	if _, err := NewStore(context.Background(), config.VectorConfig{Backend: "faiss"}, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewStore_PGVectorWithoutDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), config.VectorConfig{Backend: "pgvector"}, nil); err == nil {
		t.Error("expected error for pgvector without dsn")
	}
}
