package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/medrag/internal/corpus"
	"github.com/hyperjump/medrag/internal/embedding"
	"github.com/hyperjump/medrag/internal/fileid"
	"github.com/hyperjump/medrag/internal/models"
	"github.com/hyperjump/medrag/internal/vector"
	"go.uber.org/zap"
)

const (
	modelA = "sentence-transformers/all-MiniLM-L6-v2"
	modelB = "sentence-transformers/all-MiniLM-L12-v2"
)

// flakyEmbedder fails for any text containing "boom".
type flakyEmbedder struct {
	*embedding.HashEmbedder
}

func (e flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, "boom") {
		return nil, errors.New("embedding backend unavailable")
	}
	return e.HashEmbedder.Embed(ctx, text)
}

func (e flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// failingStore refuses to open one collection.
type failingStore struct {
	vector.Store
	bad string
}

func (s failingStore) OpenOrCreate(ctx context.Context, name string) (vector.Collection, error) {
	if name == s.bad {
		return nil, errors.New("disk full")
	}
	return s.Store.OpenOrCreate(ctx, name)
}

func testChunks() []*models.Chunk {
	return []*models.Chunk{
		{ChunkID: "c1", Metadata: models.ChunkMetadata{Category: "Symptoms", SubCategory: "General", Disease: "flu"}, Content: "fever, cough"},
		{ChunkID: "c2", Metadata: models.ChunkMetadata{Category: "Causes", SubCategory: "Virus", Disease: "flu"}, Content: "boom influenza virus"},
		{ChunkID: "c3", Metadata: models.ChunkMetadata{Category: "Treatment", SubCategory: "Rest", Disease: "flu"}, Content: "rest and fluids"},
	}
}

func newTestStore(t *testing.T) *vector.FileStore {
	t.Helper()
	s, err := vector.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIndexCorpus_perModelCollections(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	reg := embedding.NewStaticRegistry(
		[]string{modelA, modelB},
		[]embedding.Embedder{embedding.NewHashEmbedder(16), embedding.NewHashEmbedder(8)},
	)
	idx := NewIndexer(reg, store, WithLogger(zap.NewNop()), WithBatchSize(2))

	report, err := idx.IndexCorpus(ctx, testChunks())
	if err != nil {
		t.Fatalf("IndexCorpus: %v", err)
	}
	if report.Indexed[modelA] != 3 || report.Indexed[modelB] != 3 || report.TotalFailed() != 0 {
		t.Errorf("report = %+v", report)
	}

	for _, m := range []string{modelA, modelB} {
		c, _ := store.OpenOrCreate(ctx, fileid.CollectionName(m))
		if n, _ := c.Count(ctx); n != 3 {
			t.Errorf("%s: Count=%d, want 3", m, n)
		}
	}

	// Self-retrieval: a chunk's own embedding returns its id first.
	emb, _ := reg.Get(modelA)
	vec, _ := emb.Embed(ctx, "rest and fluids")
	c, _ := store.OpenOrCreate(ctx, fileid.CollectionName(modelA))
	matches, err := c.Query(ctx, vec, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 || matches[0].ID != "c3" {
		t.Fatalf("self-retrieval failed: %+v", matches)
	}
	if matches[0].Metadata["category"] != "Treatment" || matches[0].Metadata["disease"] != "flu" {
		t.Errorf("metadata = %v", matches[0].Metadata)
	}
}

func TestIndexCorpus_reindexOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	reg := embedding.NewStaticRegistry([]string{modelA}, []embedding.Embedder{embedding.NewHashEmbedder(16)})
	idx := NewIndexer(reg, store)

	for i := 0; i < 2; i++ {
		if _, err := idx.IndexCorpus(ctx, testChunks()); err != nil {
			t.Fatal(err)
		}
	}
	c, _ := store.OpenOrCreate(ctx, fileid.CollectionName(modelA))
	if n, _ := c.Count(ctx); n != 3 {
		t.Errorf("Count after re-index = %d, want 3", n)
	}
}

func TestIndexCorpus_embeddingFailureSkipsChunk(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	reg := embedding.NewStaticRegistry(
		[]string{modelA, modelB},
		[]embedding.Embedder{flakyEmbedder{embedding.NewHashEmbedder(16)}, embedding.NewHashEmbedder(16)},
	)
	idx := NewIndexer(reg, store, WithBatchSize(10))

	report, err := idx.IndexCorpus(ctx, testChunks())
	if err != nil {
		t.Fatal(err)
	}
	if report.Indexed[modelA] != 2 || report.Failed[modelA] != 1 {
		t.Errorf("model A: indexed=%d failed=%d", report.Indexed[modelA], report.Failed[modelA])
	}
	if report.Indexed[modelB] != 3 || report.Failed[modelB] != 0 {
		t.Errorf("model B: indexed=%d failed=%d", report.Indexed[modelB], report.Failed[modelB])
	}
}

func TestIndexCorpus_collectionFailureIsolatedToModel(t *testing.T) {
	ctx := context.Background()
	store := failingStore{Store: newTestStore(t), bad: fileid.CollectionName(modelA)}
	reg := embedding.NewStaticRegistry(
		[]string{modelA, modelB},
		[]embedding.Embedder{embedding.NewHashEmbedder(16), embedding.NewHashEmbedder(16)},
	)
	report, err := NewIndexer(reg, store).IndexCorpus(ctx, testChunks())
	if err != nil {
		t.Fatal(err)
	}
	if report.Errors[modelA] == nil {
		t.Error("expected an error for model A")
	}
	if report.Indexed[modelB] != 3 {
		t.Errorf("model B indexed = %d, want 3", report.Indexed[modelB])
	}
}

func TestIndexCorpus_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reg := embedding.NewStaticRegistry([]string{modelA}, []embedding.Embedder{embedding.NewHashEmbedder(16)})
	if _, err := NewIndexer(reg, newTestStore(t)).IndexCorpus(ctx, testChunks()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestIndexDisease(t *testing.T) {
	ctx := context.Background()
	corp := corpus.New(t.TempDir())
	if err := corp.Write("flu", testChunks()[:2]); err != nil {
		t.Fatal(err)
	}
	if err := corp.Write("measles", testChunks()[2:]); err != nil {
		t.Fatal(err)
	}
	store := newTestStore(t)
	reg := embedding.NewStaticRegistry([]string{modelA}, []embedding.Embedder{embedding.NewHashEmbedder(16)})
	idx := NewIndexer(reg, store)

	report, err := idx.IndexDisease(ctx, corp, "measles")
	if err != nil {
		t.Fatal(err)
	}
	if report.Chunks != 1 || report.Indexed[modelA] != 1 {
		t.Errorf("report = %+v", report)
	}
	if _, err := idx.IndexDisease(ctx, corp, "unknown"); err == nil {
		t.Error("expected error for missing disease")
	}

	report, err = idx.IndexAll(ctx, corp)
	if err != nil {
		t.Fatal(err)
	}
	if report.Chunks != 3 || report.Indexed[modelA] != 3 {
		t.Errorf("IndexAll report = %+v", report)
	}
}
