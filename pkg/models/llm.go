package models

import "context"

// ModelProvider is the interface every model integration must implement.
// Never call a provider's API directly; always inject this interface.
type ModelProvider interface {
	// Complete sends one prompt/content pair to the model and returns the
	// raw completion with token usage.
	Complete(ctx context.Context, req ModelRequest) (ModelResponse, error)
	// Name returns the provider identifier (e.g., "openai", "perplexity").
	Name() string
}

// ModelRequest is the input to a single model call.
type ModelRequest struct {
	ModelID      string  `json:"model_id"`
	ModelVersion string  `json:"model_version"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
	Prompt       string  `json:"prompt"`
	Content      string  `json:"content"`
}

// ModelResponse is the raw result of a model call.
type ModelResponse struct {
	Text             string `json:"text"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}
