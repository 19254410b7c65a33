package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/medrag/internal/models"
)

const defaultOllamaHost = "http://localhost:11434"

// OllamaEmbedder calls the Ollama /api/embeddings endpoint, one text per request.
type OllamaEmbedder struct {
	host       string
	model      string
	client     *http.Client

	mu         sync.Mutex
	dimensions int
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// NewOllamaEmbedder creates an embedder for model served at host (default http://localhost:11434).
// When dimensions is zero it is learned from the first response.
func NewOllamaEmbedder(host, model string, dimensions int) *OllamaEmbedder {
	host = strings.TrimRight(host, "/")
	if host == "" {
		host = defaultOllamaHost
	}
	return &OllamaEmbedder{
		host:       host,
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Embed returns the embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ollama request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama embeddings API: %w", err)
	}
	defer resp.Body.Close()

	var payload ollamaEmbeddingResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embeddings API returned status %d: %s", resp.StatusCode, payload.Error)
	}
	if len(payload.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding for model %q", e.model)
	}

	e.mu.Lock()
	if e.dimensions == 0 {
		e.dimensions = len(payload.Embedding)
	}
	dims := e.dimensions
	e.mu.Unlock()
	if len(payload.Embedding) != dims {
		return nil, fmt.Errorf("ollama embedding: expected %d dimensions, got %d: %w",
			dims, len(payload.Embedding), models.ErrDimensionMismatch)
	}

	vec := make([]float32, len(payload.Embedding))
	for i, v := range payload.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// EmbedBatch calls Embed for each text.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension, or 0 before the first call when unconfigured.
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimensions
}

// Close is a no-op.
func (e *OllamaEmbedder) Close() error {
	return nil
}
