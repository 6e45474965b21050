// Package llm defines the text generation provider contract and its
// OpenAI-compatible implementation.
package llm

import (
	"context"
	"fmt"

	"github.com/citypulse/trafficqa/config"
)

// Provider generates completions for prompts. Temperature and token limits
// are fixed at construction from configuration. Failures are wrapped as
// errs.ProviderError.
type Provider interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
	GetProviderType() string
}

// NewProvider creates an LLM provider from configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "dashscope":
		return newOpenAIProvider(cfg)
	case "":
		return nil, fmt.Errorf("llm provider not configured")
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
