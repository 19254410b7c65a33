package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/medrag/internal/models"
)

func chunk(id, disease, content string) *models.Chunk {
	return &models.Chunk{
		ChunkID:  id,
		Metadata: models.ChunkMetadata{Category: "Symptoms", SubCategory: "General", Disease: disease},
		Content:  content,
	}
}

func TestCorpus_WriteLoad(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "processed"))
	chunks := []*models.Chunk{chunk("a", "flu", "fever, cough"), chunk("b", "flu", "rest & fluids")}
	if err := c.Write("flu", chunks); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(c.Dir(), "flu_documents.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"chunk_id": "a"`) {
		t.Errorf("expected chunk_id field in file, got:\n%s", data)
	}
	if !strings.Contains(string(data), "rest & fluids") {
		t.Error("content should not be HTML-escaped")
	}
	got, err := c.Load("flu")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ChunkID != "a" || got[1].Content != "rest & fluids" {
		t.Errorf("Load: got %+v", got)
	}
	if got[0].Metadata.Disease != "flu" || got[0].Metadata.SubCategory != "General" {
		t.Errorf("metadata not preserved: %+v", got[0].Metadata)
	}
}

func TestCorpus_WriteOverwrites(t *testing.T) {
	c := New(t.TempDir())
	_ = c.Write("flu", []*models.Chunk{chunk("a", "flu", "old")})
	if err := c.Write("flu", []*models.Chunk{chunk("b", "flu", "new")}); err != nil {
		t.Fatal(err)
	}
	got, _ := c.Load("flu")
	if len(got) != 1 || got[0].ChunkID != "b" {
		t.Errorf("expected overwrite, got %+v", got)
	}
}

func TestCorpus_DiseasesIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	_ = c.Write("measles", nil)
	_ = c.Write("asthma", nil)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600)
	_ = os.Mkdir(filepath.Join(dir, "sub_documents.json"), 0755)
	got, err := c.Diseases()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "asthma" || got[1] != "measles" {
		t.Errorf("Diseases() = %v", got)
	}
}

func TestCorpus_LoadMalformed(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	_ = os.WriteFile(filepath.Join(dir, "flu_documents.json"), []byte(`{"not": "an array"}`), 0600)
	_, err := c.Load("flu")
	if !models.IsMalformedInput(err) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
	_ = os.WriteFile(filepath.Join(dir, "cold_documents.json"), []byte(`[{"content": "no id"}]`), 0600)
	if _, err := c.Load("cold"); !models.IsMalformedInput(err) {
		t.Fatalf("expected MalformedInputError for missing chunk_id, got %v", err)
	}
}

func TestCorpus_LoadAllSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	_ = c.Write("flu", []*models.Chunk{chunk("a", "flu", "fever")})
	_ = os.WriteFile(filepath.Join(dir, "broken_documents.json"), []byte(`[`), 0600)
	_ = c.Write("cold", []*models.Chunk{chunk("b", "cold", "sneezing")})
	all, err := c.LoadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ChunkID != "b" || all[1].ChunkID != "a" {
		t.Errorf("LoadAll: got %d chunks", len(all))
	}
}

func TestCorpus_LoadAllMissingDir(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "absent"))
	if _, err := c.LoadAll(context.Background()); err == nil {
		t.Error("expected error for missing corpus directory")
	}
}

func TestCorpus_Resolve(t *testing.T) {
	c := New(t.TempDir())
	_ = c.Write("flu", []*models.Chunk{chunk("a", "flu", "fever"), chunk("b", "flu", "cough")})
	_ = c.Write("cold", []*models.Chunk{chunk("c", "cold", "sneezing")})
	got, err := c.Resolve(context.Background(), []string{"c", "missing", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["a"] != "fever" || got["c"] != "sneezing" {
		t.Errorf("Resolve: got %v", got)
	}
	if _, ok := got["missing"]; ok {
		t.Error("unknown id should not resolve")
	}
}

func TestCorpus_ResolveMissingDir(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "absent"))
	got, err := c.Resolve(context.Background(), []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected nothing resolved, got %v", got)
	}
}

func TestCorpus_Lookup(t *testing.T) {
	c := New(t.TempDir())
	_ = c.Write("flu", []*models.Chunk{chunk("a", "flu", "fever")})
	content, ok, err := c.Lookup(context.Background(), "a")
	if err != nil || !ok || content != "fever" {
		t.Errorf("Lookup(a) = %q, %v, %v", content, ok, err)
	}
	if _, ok, _ := c.Lookup(context.Background(), "zzz"); ok {
		t.Error("Lookup(zzz) should miss")
	}
}
