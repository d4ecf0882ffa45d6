package ai

import (
	"fmt"

	"github.com/personify-ai/personify/internal/ai/mock"
	"github.com/personify-ai/personify/internal/ai/openai"
	"github.com/personify-ai/personify/internal/config"
	"github.com/personify-ai/personify/pkg/models"
)

// NewGenerator constructs the appropriate text generator based on config,
// wrapped in the configured retry policy. Called once at server startup.
func NewGenerator(cfg config.AIConfig) (models.Generator, error) {
	var gen models.Generator
	switch cfg.Provider {
	case "openai":
		gen = openai.NewProvider(cfg.OpenAI)
	case "mock":
		gen = mock.NewProvider()
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of openai, mock", cfg.Provider)
	}

	policy := RetryPolicy{
		MaxAttempts: cfg.MaxRetries + 1,
		BaseDelay:   cfg.RetryBaseDelay,
	}
	return WithRetry(gen, policy), nil
}
