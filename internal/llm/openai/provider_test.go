package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscope/dealscope/internal/config"
	"github.com/dealscope/dealscope/internal/llm/providererr"
	"github.com/dealscope/dealscope/pkg/models"
)

func testProvider(baseURL string) *Provider {
	return NewProvider(config.OpenAIConfig{APIKey: "sk-test", BaseURL: baseURL}, 5*time.Second)
}

func modelRequest() models.ModelRequest {
	return models.ModelRequest{
		ModelID:     "gpt-4o",
		Temperature: 0.2,
		TopP:        0.9,
		Prompt:      "You are a deal analyst.",
		Content:     "Summarize deal D1.",
	}
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req["model"])
		msgs := req["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "user", msgs[1].(map[string]any)["role"])

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Looks promising."}},
			},
			"usage": map[string]any{"prompt_tokens": 42, "completion_tokens": 17},
		})
	}))
	defer srv.Close()

	resp, err := testProvider(srv.URL).Complete(context.Background(), modelRequest())
	require.NoError(t, err)
	assert.Equal(t, "Looks promising.", resp.Text)
	assert.Equal(t, 42, resp.PromptTokens)
	assert.Equal(t, 17, resp.CompletionTokens)
}

func TestComplete_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).Complete(context.Background(), modelRequest())
	assert.ErrorIs(t, err, providererr.ErrRateLimited)
}

func TestComplete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).Complete(context.Background(), modelRequest())
	assert.ErrorIs(t, err, providererr.ErrUnavailable)
}

func TestComplete_ClientErrorIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).Complete(context.Background(), modelRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, providererr.ErrRateLimited)
	assert.NotErrorIs(t, err, providererr.ErrUnavailable)
}

func TestComplete_TransportErrorIsUnavailable(t *testing.T) {
	// Point at a closed server.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := testProvider(srv.URL).Complete(context.Background(), modelRequest())
	assert.ErrorIs(t, err, providererr.ErrUnavailable)
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).Complete(context.Background(), modelRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
