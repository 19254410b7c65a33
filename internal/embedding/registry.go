package embedding

import (
	"errors"
	"fmt"

	"github.com/hyperjump/medrag/internal/config"
	"github.com/hyperjump/medrag/internal/models"
	"go.uber.org/zap"
)

// Registry holds one Embedder per configured model identifier.
type Registry struct {
	ids       []string
	embedders map[string]Embedder
	logger    *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry builds an embedder for every model in cfg. Each embedder is wrapped in an
// LRU cache when cfg.CacheSize > 0. If any model fails to load, the ones already built are closed.
func NewRegistry(cfg config.EmbeddingConfig, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{embedders: make(map[string]Embedder), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}

	for _, m := range cfg.Models {
		if m.ID == "" {
			_ = r.Close()
			return nil, fmt.Errorf("embedding model without id")
		}
		if _, dup := r.embedders[m.ID]; dup {
			_ = r.Close()
			return nil, fmt.Errorf("duplicate embedding model %q", m.ID)
		}
		emb, err := newEmbedder(m, cfg.ONNXLibraryPath)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("failed to load embedding model %q: %w", m.ID, err)
		}
		if cfg.CacheSize > 0 {
			emb = NewCachedEmbedder(emb, cfg.CacheSize)
		}
		r.add(m.ID, emb)
		r.logger.Info("Loaded embedding model",
			zap.String("model", m.ID),
			zap.String("provider", m.Provider),
			zap.Int("dimensions", emb.Dimensions()))
	}
	return r, nil
}

// NewStaticRegistry returns a registry over already-built embedders, in the given id order.
func NewStaticRegistry(ids []string, embedders []Embedder) *Registry {
	r := &Registry{embedders: make(map[string]Embedder), logger: zap.NewNop()}
	for i, id := range ids {
		r.add(id, embedders[i])
	}
	return r
}

func (r *Registry) add(id string, e Embedder) {
	r.ids = append(r.ids, id)
	r.embedders[id] = e
}

func newEmbedder(m config.EmbeddingModelConfig, onnxLibraryPath string) (Embedder, error) {
	switch m.Provider {
	case "hash":
		return NewHashEmbedder(m.Dimensions), nil
	case "onnx":
		return NewONNXEmbedder(ONNXConfig{
			ModelPath:   m.ModelPath,
			VocabPath:   m.VocabPath,
			LibraryPath: onnxLibraryPath,
			Dimensions:  m.Dimensions,
			MaxTokens:   m.MaxTokens,
			OutputName:  m.OutputName,
			Pooling:     Pooling(m.Pooling),
			InputNames:  m.InputNames,
		})
	case "openai":
		return NewOpenAIEmbedder(m.APIKey, m.BaseURL, m.RemoteName(), m.Dimensions)
	case "ollama":
		return NewOllamaEmbedder(m.BaseURL, m.RemoteName(), m.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", m.Provider)
	}
}

// Get returns the embedder for model id, or an error wrapping models.ErrNotFound.
func (r *Registry) Get(id string) (Embedder, error) {
	e, ok := r.embedders[id]
	if !ok {
		return nil, fmt.Errorf("embedding model %q: %w", id, models.ErrNotFound)
	}
	return e, nil
}

// Models returns the model identifiers in configuration order.
func (r *Registry) Models() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Close closes every embedder.
func (r *Registry) Close() error {
	var errs []error
	for _, id := range r.ids {
		if err := r.embedders[id].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
