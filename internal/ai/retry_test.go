package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/personify-ai/personify/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyGenerator fails failures times before succeeding.
type flakyGenerator struct {
	failures int
	err      error
	calls    int
}

func (g *flakyGenerator) Name() string { return "flaky" }

func (g *flakyGenerator) GenerateSummary(ctx context.Context, _ models.AnalysisInput) (string, error) {
	g.calls++
	if g.calls <= g.failures {
		return "", g.err
	}
	return "summary", nil
}

func testPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func TestWithRetry_FirstCallSucceeds(t *testing.T) {
	inner := &flakyGenerator{}
	gen := WithRetry(inner, testPolicy(3))

	result, err := gen.GenerateSummary(context.Background(), models.AnalysisInput{})
	require.NoError(t, err)
	assert.Equal(t, "summary", result)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetry_RecoversFromTransientFailures(t *testing.T) {
	inner := &flakyGenerator{failures: 2, err: fmt.Errorf("call provider: %w", models.ErrConnection)}
	gen := WithRetry(inner, testPolicy(3))

	result, err := gen.GenerateSummary(context.Background(), models.AnalysisInput{})
	require.NoError(t, err)
	assert.Equal(t, "summary", result)
	assert.Equal(t, 3, inner.calls)
}

func TestWithRetry_ExhaustsBudget(t *testing.T) {
	inner := &flakyGenerator{failures: 10, err: models.ErrRateLimited}
	gen := WithRetry(inner, testPolicy(3))

	_, err := gen.GenerateSummary(context.Background(), models.AnalysisInput{})
	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Equal(t, 3, inner.calls)
}

func TestWithRetry_NonRetryableReturnsImmediately(t *testing.T) {
	for _, class := range []error{models.ErrAuth, models.ErrMalformedRequest, models.ErrInvalidResponse} {
		inner := &flakyGenerator{failures: 10, err: class}
		gen := WithRetry(inner, testPolicy(5))

		_, err := gen.GenerateSummary(context.Background(), models.AnalysisInput{})
		assert.ErrorIs(t, err, class)
		assert.Equal(t, 1, inner.calls, "no retry for %v", class)
	}
}

func TestWithRetry_ContextCancelStopsBackoff(t *testing.T) {
	inner := &flakyGenerator{failures: 10, err: models.ErrConnection}
	gen := WithRetry(inner, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := gen.GenerateSummary(ctx, models.AnalysisInput{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetry_DefaultsApplied(t *testing.T) {
	inner := &flakyGenerator{failures: 10, err: errors.New("boom")}
	gen := WithRetry(inner, RetryPolicy{})

	_, err := gen.GenerateSummary(context.Background(), models.AnalysisInput{})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls, "MaxAttempts below 1 normalizes to a single attempt")
}

func TestWithRetry_PreservesName(t *testing.T) {
	gen := WithRetry(&flakyGenerator{}, testPolicy(2))
	assert.Equal(t, "flaky", gen.Name())
}
