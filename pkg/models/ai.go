package models

import (
	"context"
	"errors"
)

// Classified generation errors. The retry policy and the failure
// classification in the orchestrator branch on these with errors.Is; the
// concrete provider wraps transport and API failures into exactly one of
// them. They live here, below every provider package, so providers and
// their factory never depend on each other.
var (
	ErrAuth             = errors.New("ai provider rejected credentials")
	ErrRateLimited      = errors.New("ai provider rate limit exceeded")
	ErrConnection       = errors.New("ai provider unreachable")
	ErrTimeout          = errors.New("ai inference timeout")
	ErrMalformedRequest = errors.New("ai provider rejected request")
	ErrInvalidResponse  = errors.New("ai provider returned invalid response")
)

// Generator is the core interface every text-generation integration must
// implement. Never call specific providers directly — always inject this
// interface.
type Generator interface {
	// GenerateSummary produces a short personality summary from the input.
	GenerateSummary(ctx context.Context, input AnalysisInput) (string, error)
	// Name returns the provider identifier (e.g., "openai").
	Name() string
}
