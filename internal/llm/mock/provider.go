// Package mock provides a models.ModelProvider for tests and local runs.
package mock

import (
	"context"

	"github.com/dealscope/dealscope/pkg/models"
)

// Provider satisfies models.ModelProvider for testing.
type Provider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, req models.ModelRequest) (models.ModelResponse, error)

	// Calls counts Complete invocations that reached this provider.
	Calls int
}

func (p *Provider) Name() string { return p.Name_ }

func (p *Provider) Complete(ctx context.Context, req models.ModelRequest) (models.ModelResponse, error) {
	p.Calls++
	if p.CompleteFunc != nil {
		return p.CompleteFunc(ctx, req)
	}
	return models.ModelResponse{}, nil
}

// NewProvider returns a Provider with a canned response.
func NewProvider() *Provider {
	return &Provider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, req models.ModelRequest) (models.ModelResponse, error) {
			return models.ModelResponse{
				Text:             "Mock completion for model " + req.ModelID,
				PromptTokens:     120,
				CompletionTokens: 80,
			}, nil
		},
	}
}

// NewFailingProvider returns a Provider that always returns the given error.
func NewFailingProvider(err error) *Provider {
	return &Provider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ models.ModelRequest) (models.ModelResponse, error) {
			return models.ModelResponse{}, err
		},
	}
}

// Compile-time check that Provider implements ModelProvider.
var _ models.ModelProvider = (*Provider)(nil)
