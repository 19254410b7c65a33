package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/medrag/internal/fileid"
)

// DefaultModels are the MiniLM variants indexed when no models are configured.
var DefaultModels = []string{
	"sentence-transformers/all-MiniLM-L6-v2",
	"sentence-transformers/all-MiniLM-L12-v2",
	"sentence-transformers/all-MiniLM-L6-v1",
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Paths.RawDir == "" {
		cfg.Paths.RawDir = "./data/scraped_data"
	}
	if cfg.Paths.ChunkDir == "" {
		cfg.Paths.ChunkDir = "./data/processed_data"
	}
	if cfg.Paths.TestsetDir == "" {
		cfg.Paths.TestsetDir = "./data/generated_testset"
	}
	if cfg.Paths.AnswersDir == "" {
		cfg.Paths.AnswersDir = "./data/generated_answers"
	}
	if cfg.Chunking.IDMode == "" {
		cfg.Chunking.IDMode = "stable"
	}
	if len(cfg.Embedding.Models) == 0 {
		for _, id := range DefaultModels {
			cfg.Embedding.Models = append(cfg.Embedding.Models, EmbeddingModelConfig{
				ID:        id,
				Provider:  "onnx",
				ModelPath: "./data/models/" + fileid.CollectionName(id) + "/model.onnx",
			})
		}
	}
	for i := range cfg.Embedding.Models {
		m := &cfg.Embedding.Models[i]
		if m.Provider == "" {
			m.Provider = "onnx"
		}
		m.Provider = strings.ToLower(m.Provider)
		if m.Dimensions == 0 && (m.Provider == "onnx" || m.Provider == "hash") {
			m.Dimensions = 384
		}
		if m.Provider == "onnx" {
			if m.MaxTokens == 0 {
				m.MaxTokens = 256
			}
			if m.VocabPath == "" && m.ModelPath != "" {
				m.VocabPath = strings.TrimSuffix(m.ModelPath, filepath.Base(m.ModelPath)) + "vocab.txt"
			}
			if m.Pooling == "" {
				m.Pooling = "mean"
			}
		}
	}
	if cfg.Embedding.ServingModel == "" {
		cfg.Embedding.ServingModel = cfg.Embedding.Models[0].ID
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "file"
	}
	cfg.Vector.Backend = strings.ToLower(cfg.Vector.Backend)
	if cfg.Vector.Path == "" {
		switch cfg.Vector.Backend {
		case "sqlite":
			cfg.Vector.Path = "./data/vectors.db"
		case "file":
			cfg.Vector.Path = "./data/vectors"
		}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "openai"
	}
	cfg.Generation.Provider = strings.ToLower(cfg.Generation.Provider)
	if cfg.Generation.Model == "" {
		switch cfg.Generation.Provider {
		case "ollama":
			cfg.Generation.Model = "llama3.2"
		case "anthropic":
			cfg.Generation.Model = "claude-3-5-haiku-latest"
		default:
			cfg.Generation.Model = "gpt-4o-mini"
		}
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 60 * time.Second
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 1024
	}
	if cfg.Interactions.Store == "" {
		cfg.Interactions.Store = "json"
	}
	cfg.Interactions.Store = strings.ToLower(cfg.Interactions.Store)
	if cfg.Interactions.Path == "" {
		if cfg.Interactions.Store == "sqlite" {
			cfg.Interactions.Path = "./data/rag_log.db"
		} else {
			cfg.Interactions.Path = "./data/rag_log.json"
		}
	}
	if cfg.Testset.BatchSize == 0 {
		cfg.Testset.BatchSize = 5
	}
	if cfg.Testset.RequestsPerSecond == 0 {
		cfg.Testset.RequestsPerSecond = 0.5
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 400 * time.Millisecond
	}
}

// ApplySecrets fills empty API keys and DSNs from the environment via getenv.
func ApplySecrets(cfg *Config, getenv func(string) string) {
	if cfg.Generation.APIKey == "" {
		switch cfg.Generation.Provider {
		case "openai":
			cfg.Generation.APIKey = getenv("OPENAI_API_KEY")
		case "anthropic":
			cfg.Generation.APIKey = getenv("ANTHROPIC_API_KEY")
		}
	}
	for i := range cfg.Embedding.Models {
		m := &cfg.Embedding.Models[i]
		if m.APIKey == "" && m.Provider == "openai" {
			m.APIKey = getenv("OPENAI_API_KEY")
		}
	}
	if cfg.Vector.DSN == "" && cfg.Vector.Backend == "pgvector" {
		cfg.Vector.DSN = getenv("MEDRAG_POSTGRES_DSN")
	}
}

// ModelIDs returns the configured embedding model identifiers in order.
func (c *Config) ModelIDs() []string {
	ids := make([]string, len(c.Embedding.Models))
	for i, m := range c.Embedding.Models {
		ids[i] = m.ID
	}
	return ids
}
