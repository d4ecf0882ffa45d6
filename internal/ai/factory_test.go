package ai_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/personify-ai/personify/internal/ai"
	"github.com/personify-ai/personify/internal/config"
	"github.com/personify-ai/personify/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator_OpenAI(t *testing.T) {
	cfg := config.AIConfig{
		Provider: "openai",
		OpenAI:   config.OpenAIConfig{BaseURL: "https://api.openai.com", APIKey: "sk-test", Model: "gpt-4o-mini"},
	}
	gen, err := ai.NewGenerator(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", gen.Name())
}

func TestNewGenerator_Mock(t *testing.T) {
	cfg := config.AIConfig{Provider: "mock"}
	gen, err := ai.NewGenerator(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", gen.Name())

	summary, err := gen.GenerateSummary(context.Background(), models.AnalysisInput{Name: "Ann"})
	require.NoError(t, err)
	assert.Contains(t, summary, "Ann")
}

func TestNewGenerator_Unknown(t *testing.T) {
	cfg := config.AIConfig{Provider: "unknown-provider"}
	_, err := ai.NewGenerator(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown AI provider")
	assert.Contains(t, err.Error(), "unknown-provider")
}

func TestNewGenerator_Empty(t *testing.T) {
	cfg := config.AIConfig{Provider: ""}
	_, err := ai.NewGenerator(cfg)
	require.Error(t, err)
}

func TestNewGenerator_RetriesTransientFailures(t *testing.T) {
	cfg := config.AIConfig{
		Provider:       "mock",
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
	}
	gen, err := ai.NewGenerator(cfg)
	require.NoError(t, err)

	// The factory wraps the provider in the retry decorator, so the name
	// still passes through.
	assert.Equal(t, "mock", gen.Name())
}

// Exercises the factory-built OpenAI generator end to end: the provider's
// classified errors must flow back through the retry decorator unchanged.
func TestNewGenerator_OpenAIClassifiedErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := config.AIConfig{
		Provider:       "openai",
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
		OpenAI:         config.OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-bad", Model: "gpt-4o-mini"},
	}
	gen, err := ai.NewGenerator(cfg)
	require.NoError(t, err)

	_, err = gen.GenerateSummary(context.Background(), models.AnalysisInput{Name: "Ann", Age: 30, Description: "curious"})
	assert.ErrorIs(t, err, models.ErrAuth)
	assert.Equal(t, int32(1), calls.Load(), "auth failures are not retried")
}

func TestNewGenerator_OpenAIRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Ann is curious and bold."}}]}`))
	}))
	defer srv.Close()

	cfg := config.AIConfig{
		Provider:       "openai",
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
		OpenAI:         config.OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"},
	}
	gen, err := ai.NewGenerator(cfg)
	require.NoError(t, err)

	summary, err := gen.GenerateSummary(context.Background(), models.AnalysisInput{Name: "Ann", Age: 30, Description: "curious"})
	require.NoError(t, err)
	assert.Equal(t, "Ann is curious and bold.", summary)
	assert.Equal(t, int32(3), calls.Load())
}
