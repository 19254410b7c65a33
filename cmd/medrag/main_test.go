package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/medrag/internal/config"
	"github.com/hyperjump/medrag/internal/models"
	"go.uber.org/zap"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after question are moved first",
			args:     []string{"what causes flu", "-k", "3"},
			expected: []string{"-k", "3", "what causes flu"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-k", "3", "what causes flu"},
			expected: []string{"-k", "3", "what causes flu"},
		},
		{
			name:     "question only returns unchanged",
			args:     []string{"what causes flu"},
			expected: []string{"what causes flu"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"flu", "symptoms", "-output", "json"},
			expected: []string{"-output", "json", "flu", "symptoms"},
		},
		{
			name:     "flag in the middle keeps word order",
			args:     []string{"What", "is", "--k", "3", "flu?"},
			expected: []string{"--k", "3", "What", "is", "flu?"},
		},
		{
			name:     "bool flag takes no value",
			args:     []string{"flu", "-debug", "symptoms"},
			expected: []string{"-debug", "flu", "symptoms"},
		},
		{
			name:     "inline value",
			args:     []string{"flu", "-k=2", "symptoms"},
			expected: []string{"-k=2", "flu", "symptoms"},
		},
		{
			name:     "double dash ends flags",
			args:     []string{"fever", "-k", "1", "--", "-5", "degrees"},
			expected: []string{"-k", "1", "--", "fever", "-5", "degrees"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("ask", flag.ContinueOnError)
			fs.Int("k", 0, "")
			fs.String("output", "text", "")
			fs.Bool("debug", false, "")
			got := argsReorder(fs, tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
			if err := fs.Parse(got); err != nil {
				t.Fatalf("Parse(%v): %v", got, err)
			}
		})
	}
}

func TestArgsReorder_QuestionSurvivesMidFlag(t *testing.T) {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	k := fs.Int("k", 0, "")
	if err := fs.Parse(argsReorder(fs, []string{"What", "is", "--k", "3", "flu?"})); err != nil {
		t.Fatal(err)
	}
	if *k != 3 {
		t.Errorf("k = %d, want 3", *k)
	}
	if got := buildQuestion(fs.Args()); got != "What is flu?" {
		t.Errorf("question = %q, want %q", got, "What is flu?")
	}
}

func TestBuildQuestion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"flu"}, "flu"},
		{"multiple words", []string{"flu", "symptoms"}, "flu symptoms"},
		{"quoted phrase", []string{"What are flu symptoms?"}, "What are flu symptoms?"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuestion(tt.args); got != tt.expected {
				t.Errorf("buildQuestion(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_PrefersConfigInWorkingDirectory(t *testing.T) {
	prevWD, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prevWD) })
	dir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	data := "retrieval:\n  top_k: 9\npaths:\n  chunk_dir: ./chunks\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != filepath.Join(dir, "config.yaml") {
		t.Errorf("resolved = %q", resolved)
	}
	if cfg.Retrieval.TopK != 9 {
		t.Errorf("top_k = %d, want 9", cfg.Retrieval.TopK)
	}
	if cfg.Paths.ChunkDir != filepath.Join(dir, "chunks") {
		t.Errorf("chunk_dir = %q", cfg.Paths.ChunkDir)
	}
}

func TestLoadConfig_FallsBackToDefaults(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("system config present")
	}
	dir := t.TempDir()
	prevWD, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prevWD) })
	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved = %q, want empty", resolved)
	}
	if cfg.Retrieval.TopK != 5 || cfg.Server.Port != 8080 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_ExplicitMissingPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

// testConfig returns a config that runs fully offline: hash embeddings, a file vector
// store and an Ollama generator pointed at genURL.
func testConfig(t *testing.T, genURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.Embedding.Models = []config.EmbeddingModelConfig{
		{ID: "sentence-transformers/all-MiniLM-L6-v2", Provider: "hash", Dimensions: 32},
		{ID: "sentence-transformers/all-MiniLM-L12-v2", Provider: "hash", Dimensions: 48},
	}
	cfg.Embedding.ServingModel = "sentence-transformers/all-MiniLM-L6-v2"
	cfg.Generation = config.GenerationConfig{Provider: "ollama", Model: "llama3.2", BaseURL: genURL}
	return cfg
}

func TestInitializeComponents_EndToEnd(t *testing.T) {
	gen := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": "Flu causes fever and cough."},
			"done":    true,
		})
	}))
	defer gen.Close()
	cfg := testConfig(t, gen.URL)
	if err := os.MkdirAll(cfg.Paths.RawDir, 0755); err != nil {
		t.Fatal(err)
	}
	raw := `{"Symptoms":{"General":"fever, cough"},"Treatment":{"Home care":"rest and fluids"}}`
	if err := os.WriteFile(filepath.Join(cfg.Paths.RawDir, "flu.json"), []byte(raw), 0600); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, zap.NewNop(), true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	chunkReport, err := c.Chunker.BuildDirectory(ctx, cfg.Paths.RawDir)
	if err != nil || chunkReport.Chunks != 2 {
		t.Fatalf("chunk: report=%+v err=%v", chunkReport, err)
	}
	indexReport, err := c.Indexer.IndexAll(ctx, c.Corpus)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range c.Registry.Models() {
		if indexReport.Indexed[id] != 2 {
			t.Errorf("model %s indexed %d, want 2", id, indexReport.Indexed[id])
		}
	}

	resp, err := c.Pipeline.Ask(ctx, "What are flu symptoms?", 1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "Flu causes fever and cough." || len(resp.ChunkIDs) != 1 {
		t.Errorf("resp = %+v", resp)
	}
	history := c.Pipeline.History(ctx)
	if len(history) != 1 || history[0].Query != "What are flu symptoms?" {
		t.Errorf("history = %+v", history)
	}
}

func TestInitializeComponents_IndexOnlySkipsGenerator(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Generation.Provider = "unknown"
	c, err := initializeComponents(context.Background(), cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatalf("index-only initialization should not build a generator: %v", err)
	}
	defer c.Close()
	if c.Pipeline != nil || c.Engine != nil {
		t.Error("pipeline should not be built")
	}
}

func TestInitializeComponents_BadGenerator(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Generation.Provider = "unknown"
	if _, err := initializeComponents(context.Background(), cfg, zap.NewNop(), true); err == nil {
		t.Error("expected error for unknown generation provider")
	}
}

func TestStatusDirect(t *testing.T) {
	cfg := testConfig(t, "")
	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	chunks := []*models.Chunk{{
		ChunkID:  "flu-1",
		Metadata: models.ChunkMetadata{Category: "Symptoms", SubCategory: "General", Disease: "flu"},
		Content:  "fever, cough",
	}}
	if _, err := c.Indexer.IndexCorpus(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	c.Close()

	status, err := statusDirect(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(status.Collections) != 2 {
		t.Errorf("collections = %v, want 2", status.Collections)
	}
	for name, n := range status.Collections {
		if n != 1 {
			t.Errorf("collection %s has %d vectors, want 1", name, n)
		}
	}
	if status.ServingModel != "sentence-transformers/all-MiniLM-L6-v2" {
		t.Errorf("serving model = %q", status.ServingModel)
	}
}

func TestAskViaHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ask" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req models.AskRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"question":  req.Question,
			"answer":    "Rest.",
			"context":   "rest and fluids",
			"chunk_ids": []string{"flu-2"},
			"generated": true,
		})
	}))
	defer srv.Close()

	resp, err := askViaHTTP(srv.URL, &models.AskRequest{Question: "flu treatment?"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Question != "flu treatment?" || resp.Answer != "Rest." || !resp.Generated || resp.ChunkIDs[0] != "flu-2" {
		t.Errorf("resp = %+v", resp)
	}

	if _, err := askViaHTTP(srv.URL+"/missing", &models.AskRequest{Question: "x"}); err == nil {
		t.Error("expected error for non-200 response")
	}
}
