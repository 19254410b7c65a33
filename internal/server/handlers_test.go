package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/medrag/internal/config"
	"github.com/hyperjump/medrag/internal/fileid"
	"github.com/hyperjump/medrag/internal/models"
	"github.com/hyperjump/medrag/internal/pipeline"
	"github.com/hyperjump/medrag/internal/vector"
	"go.uber.org/zap"
)

const testModel = "sentence-transformers/all-MiniLM-L6-v2"

type mockAnswerer struct {
	asked   []string
	k       []int
	history []models.HistoryItem
	askErr  error
	cleared bool
}

func (m *mockAnswerer) Ask(_ context.Context, question string, k int) (*pipeline.Response, error) {
	if m.askErr != nil {
		return nil, m.askErr
	}
	m.asked = append(m.asked, question)
	m.k = append(m.k, k)
	m.history = append(m.history, models.HistoryItem{Query: question, Answer: "Rest and fluids."})
	return &pipeline.Response{
		Question:  question,
		Answer:    "Rest and fluids.",
		Context:   "fever, cough",
		ChunkIDs:  []string{"flu-1"},
		Generated: true,
	}, nil
}

func (m *mockAnswerer) History(context.Context) []models.HistoryItem {
	out := make([]models.HistoryItem, len(m.history))
	copy(out, m.history)
	return out
}

func (m *mockAnswerer) ClearHistory(context.Context) error {
	m.cleared = true
	m.history = nil
	return nil
}

type mockDiagnostics struct{ dropped int64 }

func (d mockDiagnostics) ServingModel() string { return testModel }
func (d mockDiagnostics) DroppedTotal() int64  { return d.dropped }

func newTestServer(t *testing.T, ans *mockAnswerer) (*Server, *vector.FileStore) {
	t.Helper()
	store, err := vector.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	cfg := config.Default(t.TempDir())
	srv := NewServer(ans, mockDiagnostics{dropped: 2}, store, cfg, zap.NewNop())
	return srv, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleAsk(t *testing.T) {
	ans := &mockAnswerer{}
	srv, _ := newTestServer(t, ans)

	w := do(t, srv.Router(), http.MethodPost, "/api/v1/ask", `{"question":"  What are flu symptoms? ","k":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out askResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Answer != "Rest and fluids." || out.Context != "fever, cough" || !out.Generated {
		t.Errorf("response: got %+v", out)
	}
	if len(out.ChunkIDs) != 1 || out.ChunkIDs[0] != "flu-1" {
		t.Errorf("chunk_ids: got %v", out.ChunkIDs)
	}
	if len(ans.asked) != 1 || ans.asked[0] != "What are flu symptoms?" || ans.k[0] != 3 {
		t.Errorf("asked: got %v k=%v", ans.asked, ans.k)
	}
}

func TestHandleAsk_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"question":`},
		{"blank question", `{"question":"   "}`},
		{"missing question", `{}`},
		{"negative k", `{"question":"flu?","k":-1}`},
		{"huge k", `{"question":"flu?","k":1099511627776}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ans := &mockAnswerer{}
			srv, _ := newTestServer(t, ans)
			w := do(t, srv.Router(), http.MethodPost, "/api/v1/ask", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", w.Code)
			}
			if len(ans.asked) != 0 {
				t.Errorf("answerer should not be called, got %v", ans.asked)
			}
		})
	}
}

func TestHandleAsk_AnswererError(t *testing.T) {
	srv, _ := newTestServer(t, &mockAnswerer{askErr: errors.New("boom")})
	w := do(t, srv.Router(), http.MethodPost, "/api/v1/ask", `{"question":"flu?"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", w.Code)
	}
	var out map[string]string
	_ = json.NewDecoder(w.Body).Decode(&out)
	if out["error"] != "boom" {
		t.Errorf("error: got %q", out["error"])
	}
}

func TestHandleHistory_AndClear(t *testing.T) {
	ans := &mockAnswerer{}
	srv, _ := newTestServer(t, ans)
	h := srv.Router()

	w := do(t, h, http.MethodGet, "/api/v1/history", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("empty history: got %d %q", w.Code, w.Body.String())
	}

	do(t, h, http.MethodPost, "/api/v1/ask", `{"question":"flu?"}`)
	do(t, h, http.MethodPost, "/api/v1/ask", `{"question":"measles?"}`)
	w = do(t, h, http.MethodGet, "/api/v1/history", "")
	var items []models.HistoryItem
	if err := json.NewDecoder(w.Body).Decode(&items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Query != "flu?" || items[1].Query != "measles?" {
		t.Errorf("history: got %+v", items)
	}

	w = do(t, h, http.MethodDelete, "/api/v1/history", "")
	if w.Code != http.StatusOK || !ans.cleared {
		t.Errorf("clear: got %d cleared=%v", w.Code, ans.cleared)
	}
	w = do(t, h, http.MethodGet, "/api/v1/history", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("history after clear: got %q", w.Body.String())
	}
}

func TestHandleStatus(t *testing.T) {
	srv, store := newTestServer(t, &mockAnswerer{})
	ctx := context.Background()
	c, err := store.OpenOrCreate(ctx, fileid.CollectionName(testModel))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Upsert(ctx, "flu-1", []float32{1, 0}, map[string]string{"disease": "flu"}); err != nil {
		t.Fatal(err)
	}

	w := do(t, srv.Router(), http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		ServingModel string         `json:"serving_model"`
		Models       []string       `json:"models"`
		Collections  map[string]int `json:"collections"`
		DroppedTotal int64          `json:"dropped_total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.ServingModel != testModel {
		t.Errorf("serving_model: got %q", out.ServingModel)
	}
	if len(out.Models) == 0 {
		t.Error("models: expected configured models")
	}
	if out.Collections[fileid.CollectionName(testModel)] != 1 {
		t.Errorf("collections: got %v", out.Collections)
	}
	if out.DroppedTotal != 2 {
		t.Errorf("dropped_total: got %d", out.DroppedTotal)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, &mockAnswerer{})
	w := do(t, srv.Router(), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body: got %q", w.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t, &mockAnswerer{})
	w := do(t, srv.Router(), http.MethodGet, "/api/v1/search", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}
