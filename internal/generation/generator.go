// Package generation builds prompts from retrieved context and calls a generative model.
package generation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/medrag/internal/config"
)

// Generator produces an answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewGenerator creates the generator selected by cfg.Provider: openai (default), ollama or anthropic.
func NewGenerator(cfg config.GenerationConfig) (Generator, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens, timeout)
	case "ollama":
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model, timeout), nil
	case "anthropic":
		return NewAnthropicGenerator(AnthropicConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   timeout,
		})
	default:
		return nil, fmt.Errorf("unknown generation provider: %s (supported: openai, ollama, anthropic)", cfg.Provider)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
