package factory

import (
	"context"
	"fmt"
	"time"

	"startup-hunter-be/pkg/llm"
	"startup-hunter-be/pkg/llm/gemini"
	"startup-hunter-be/pkg/llm/ollama"
	"startup-hunter-be/pkg/llm/openai"
)

type Config struct {
	Provider string // "openai", "gemini", "ollama", "none"
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// NewLLMProvider returns nil with no error when the provider is "none" or
// the selected backend has no credentials. Callers treat a nil provider as
// unconfigured and fall back to synthetic content.
func NewLLMProvider(ctx context.Context, cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, nil
		}
		return openai.NewProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, nil
		}
		p, err := gemini.NewProvider(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		p, err := ollama.NewOllamaProvider(baseURL, cfg.Model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
