// Package embedding defines the embedding provider contract and its
// OpenAI-compatible implementation.
package embedding

import (
	"context"
	"fmt"

	"github.com/citypulse/trafficqa/config"
)

// Provider produces dense vectors for text. Implementations must honor the
// context and wrap failures as errs.ProviderError.
type Provider interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	GetProviderType() string
}

// NewProvider creates an embedding provider from configuration. Both
// "openai" and "dashscope" map to the OpenAI-compatible client; dashscope is
// reached through its compatible-mode base URL.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "dashscope":
		return newOpenAIProvider(cfg)
	case "":
		return nil, fmt.Errorf("embedding provider not configured")
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
