// Package llm builds SQL generation prompts and sends them to a hosted
// language model.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider defines the interface for LLM integrations.
type Provider interface {
	// Complete sends one request and returns the raw text of the first candidate.
	Complete(ctx context.Context, req GenerationRequest) (string, error)

	// Name returns the provider name for logging/metrics.
	Name() string
}

// GenerationRequest is the full input for one generation call.
type GenerationRequest struct {
	SystemInstructions string
	UserPrompt         string
	Temperature        float32
	MaxOutputTokens    int
}

// Config holds LLM provider configuration.
type Config struct {
	Provider string        // "openai" or "anthropic"
	APIKey   string        // API key for the provider
	Model    string        // Model name (e.g., "gpt-4o-mini", "claude-sonnet-4-20250514")
	BaseURL  string        // Base URL (for OpenRouter, proxies, etc.)
	Timeout  time.Duration // HTTP client timeout
}

// NewProvider creates an LLM provider based on configuration.
func NewProvider(cfg Config) (Provider, error) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	switch cfg.Provider {
	case "openai":
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
		return NewOpenAIProvider(cfg), nil

	case "anthropic":
		if cfg.Model == "" {
			cfg.Model = "claude-sonnet-4-20250514"
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.anthropic.com/v1"
		}
		return NewAnthropicProvider(cfg), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: openai, anthropic)", cfg.Provider)
	}
}

// StripCodeFence removes a Markdown code fence wrapped around the whole text.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// The rest of the opening line is the fence's language tag.
	if _, body, ok := strings.Cut(s, "\n"); ok {
		s = body
	}
	return strings.TrimSpace(s)
}
