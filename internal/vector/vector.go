// Package vector provides named collections of (id, vector, metadata) records with
// upsert-by-id and top-k cosine similarity queries, over file, SQLite and pgvector backends.
package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/medrag/internal/fileid"
)

// Store opens named collections. Collections are durable across restarts.
type Store interface {
	// OpenOrCreate returns the named collection, creating it on first use.
	OpenOrCreate(ctx context.Context, name string) (Collection, error)
	// Collections lists collection names in sorted order.
	Collections(ctx context.Context) ([]string, error)
	Close() error
}

// Collection is one named vector index. All vectors in a collection share a dimension,
// fixed by the first upsert.
type Collection interface {
	Name() string
	// Upsert replaces any record with the same id. A replaced record keeps its
	// original insertion position.
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	// Query returns at most k records by descending cosine similarity; ties go to the
	// earlier-inserted record. An empty collection or k <= 0 yields no matches.
	Query(ctx context.Context, vector []float32, k int) ([]*Match, error)
	Count(ctx context.Context) (int, error)
}

// Match is a single query hit.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// validateName rejects names that are not already in collection-safe form.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." || fileid.CollectionName(name) != name {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
