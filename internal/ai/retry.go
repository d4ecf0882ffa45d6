package ai

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/personify-ai/personify/pkg/models"
)

// RetryPolicy is a bounded exponential-backoff policy for generation calls.
// It is decoupled from the call site so it can be exercised against a fake
// flaky generator.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls including the first one.
	MaxAttempts int
	// BaseDelay is the backoff unit; attempt n waits BaseDelay * 2^n,
	// scaled by jitter in [0.5, 1.0).
	BaseDelay time.Duration
}

// nonRetryable enumerates error classes that a retry can never fix.
var nonRetryable = []error{
	models.ErrAuth,
	models.ErrMalformedRequest,
	models.ErrInvalidResponse,
}

func retryable(err error) bool {
	for _, class := range nonRetryable {
		if errors.Is(err, class) {
			return false
		}
	}
	return true
}

type retryingGenerator struct {
	inner  models.Generator
	policy RetryPolicy
}

// WithRetry wraps a generator in the given retry policy. Transient failures
// (rate limit, connection, timeout) are retried up to the attempt budget;
// non-retryable classes return immediately.
func WithRetry(gen models.Generator, policy RetryPolicy) models.Generator {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 2 * time.Second
	}
	return &retryingGenerator{inner: gen, policy: policy}
}

func (g *retryingGenerator) Name() string { return g.inner.Name() }

func (g *retryingGenerator) GenerateSummary(ctx context.Context, input models.AnalysisInput) (string, error) {
	var lastErr error

	for attempt := 0; attempt < g.policy.MaxAttempts; attempt++ {
		result, err := g.inner.GenerateSummary(ctx, input)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return "", err
		}
		if attempt == g.policy.MaxAttempts-1 {
			break
		}

		backoff := float64(g.policy.BaseDelay) * math.Pow(2, float64(attempt))
		// rand top-level functions are safe for concurrent use.
		jitter := 0.5 + rand.Float64()*0.5
		delay := time.Duration(backoff * jitter)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", lastErr
}
