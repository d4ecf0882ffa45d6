// Package mock provides a models.Generator for tests and local development.
package mock

import (
	"context"
	"fmt"

	"github.com/personify-ai/personify/pkg/models"
)

// Provider satisfies models.Generator for testing.
type Provider struct {
	Name_        string
	GenerateFunc func(ctx context.Context, input models.AnalysisInput) (string, error)
}

func (m *Provider) Name() string { return m.Name_ }

func (m *Provider) GenerateSummary(ctx context.Context, input models.AnalysisInput) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, input)
	}
	return "", nil
}

// NewProvider returns a Provider with a sensible default response.
func NewProvider() *Provider {
	return &Provider{
		Name_: "mock",
		GenerateFunc: func(_ context.Context, input models.AnalysisInput) (string, error) {
			return fmt.Sprintf("%s is a curious and thoughtful person who enjoys new challenges.", input.Name), nil
		},
	}
}

// NewFailingProvider returns a Provider that always returns the given error.
func NewFailingProvider(err error) *Provider {
	return &Provider{
		Name_: "mock-failing",
		GenerateFunc: func(_ context.Context, _ models.AnalysisInput) (string, error) {
			return "", err
		},
	}
}

var _ models.Generator = (*Provider)(nil)
