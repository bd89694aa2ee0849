// Package openai implements models.ModelProvider against the OpenAI
// chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dealscope/dealscope/internal/config"
	"github.com/dealscope/dealscope/internal/llm/providererr"
	"github.com/dealscope/dealscope/pkg/models"
)

type Provider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

func NewProvider(cfg config.OpenAIConfig, timeout time.Duration) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return "openai" }

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *Provider) Complete(ctx context.Context, req models.ModelRequest) (models.ModelResponse, error) {
	body, err := json.Marshal(chatRequest{
		Model:       req.ModelID,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Messages: []chatMessage{
			{Role: "system", Content: req.Prompt},
			{Role: "user", Content: req.Content},
		},
	})
	if err != nil {
		return models.ModelResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return models.ModelResponse{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return models.ModelResponse{}, fmt.Errorf("%w: %v", providererr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := providererr.FromStatus(resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body)
		return models.ModelResponse{}, fmt.Errorf("openai status %d: %w", resp.StatusCode, err)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.ModelResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return models.ModelResponse{}, fmt.Errorf("openai returned no choices")
	}

	return models.ModelResponse{
		Text:             parsed.Choices[0].Message.Content,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}, nil
}

var _ models.ModelProvider = (*Provider)(nil)
