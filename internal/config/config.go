// Package config provides configuration loading and structs for the medrag pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug        bool               `yaml:"debug"`
	Server       ServerConfig       `yaml:"server"`
	Paths        PathsConfig        `yaml:"paths"`
	Chunking     ChunkingConfig     `yaml:"chunking"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Vector       VectorConfig       `yaml:"vector"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Generation   GenerationConfig   `yaml:"generation"`
	Interactions InteractionsConfig `yaml:"interactions"`
	Testset      TestsetConfig      `yaml:"testset"`
	Watch        WatchConfig        `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// PathsConfig holds the data directories of the pipeline.
type PathsConfig struct {
	RawDir     string `yaml:"raw_dir"`
	ChunkDir   string `yaml:"chunk_dir"`
	TestsetDir string `yaml:"testset_dir"`
	AnswersDir string `yaml:"answers_dir"`
}

// ChunkingConfig holds Chunk Builder settings.
type ChunkingConfig struct {
	// IDMode is "stable" (derived from disease/category/subsection) or "random".
	IDMode string `yaml:"id_mode"`
}

// EmbeddingConfig lists the embedding models to index with and the one used for serving.
type EmbeddingConfig struct {
	Models          []EmbeddingModelConfig `yaml:"models"`
	ServingModel    string                 `yaml:"serving_model"`
	CacheSize       int                    `yaml:"cache_size"`
	ONNXLibraryPath string                 `yaml:"onnx_library_path"`
}

// EmbeddingModelConfig describes one embedding model variant.
type EmbeddingModelConfig struct {
	// ID is the model identifier; its collection name is derived from it.
	ID string `yaml:"id"`
	// Provider is one of onnx, openai, ollama, hash.
	Provider   string `yaml:"provider"`
	ModelPath string `yaml:"model_path"`
	// VocabPath is the WordPiece vocab.txt of an onnx export (default: next to model_path).
	VocabPath  string `yaml:"vocab_path"`
	Name       string `yaml:"name"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	// Pooling is "mean" over last_hidden_state (default) or "none" for a pooled output.
	Pooling    string   `yaml:"pooling"`
	OutputName string   `yaml:"output_name"`
	InputNames []string `yaml:"input_names"`
	BaseURL    string   `yaml:"base_url"`
	APIKey     string   `yaml:"api_key"`
}

// RemoteName returns the model name sent to a remote provider (Name, or ID when unset).
func (m *EmbeddingModelConfig) RemoteName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// VectorConfig selects the vector store backend.
type VectorConfig struct {
	// Backend is one of file, sqlite, pgvector.
	Backend string `yaml:"backend"`
	// Path is a directory for the file backend and a database file for sqlite.
	Path string `yaml:"path"`
	DSN  string `yaml:"dsn"`
}

// RetrievalConfig holds Retrieval Engine settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// GenerationConfig selects the generative model.
type GenerationConfig struct {
	// Provider is one of openai, ollama, anthropic.
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`
}

// InteractionsConfig selects the interaction log store.
type InteractionsConfig struct {
	// Store is "json" (single JSON array file) or "sqlite" (append-only table).
	Store string `yaml:"store"`
	Path  string `yaml:"path"`
}

// TestsetConfig holds batch test-set answering settings.
type TestsetConfig struct {
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// WatchConfig holds raw-document directory watch settings.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads and parses the config file at path, expands ${VAR} references and paths,
// applies defaults, and fills secrets from the environment.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplySecrets(&cfg, os.Getenv)
	expandPaths(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns the default configuration with paths relative to dir.
func Default(dir string) *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	ApplySecrets(&cfg, os.Getenv)
	expandPaths(&cfg, dir)
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func expandPaths(cfg *Config, configDir string) {
	cfg.Paths.RawDir = expandPath(cfg.Paths.RawDir, configDir)
	cfg.Paths.ChunkDir = expandPath(cfg.Paths.ChunkDir, configDir)
	cfg.Paths.TestsetDir = expandPath(cfg.Paths.TestsetDir, configDir)
	cfg.Paths.AnswersDir = expandPath(cfg.Paths.AnswersDir, configDir)
	cfg.Vector.Path = expandPath(cfg.Vector.Path, configDir)
	cfg.Interactions.Path = expandPath(cfg.Interactions.Path, configDir)
	cfg.Embedding.ONNXLibraryPath = expandPath(cfg.Embedding.ONNXLibraryPath, configDir)
	for i := range cfg.Embedding.Models {
		cfg.Embedding.Models[i].ModelPath = expandPath(cfg.Embedding.Models[i].ModelPath, configDir)
		cfg.Embedding.Models[i].VocabPath = expandPath(cfg.Embedding.Models[i].VocabPath, configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
