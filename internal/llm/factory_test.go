package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscope/dealscope/internal/config"
)

func TestNewProviders_Mock(t *testing.T) {
	providers, def, err := NewProviders(config.LLMConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", def)
	require.Contains(t, providers, "mock")
	assert.Equal(t, "mock", providers["mock"].Name())
}

func TestNewProviders_AllConfigured(t *testing.T) {
	cfg := config.LLMConfig{
		Provider: "openai",
		Timeout:  30 * time.Second,
		OpenAI:   config.OpenAIConfig{APIKey: "sk-test", BaseURL: "https://api.openai.com"},
		Perplexity: config.PerplexityConfig{
			APIKey:  "pplx-test",
			BaseURL: "https://api.perplexity.ai",
		},
	}

	providers, def, err := NewProviders(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", def)
	assert.Contains(t, providers, "openai")
	assert.Contains(t, providers, "perplexity")
	assert.NotContains(t, providers, "mock")
}

func TestNewProviders_DefaultNotConfigured(t *testing.T) {
	_, _, err := NewProviders(config.LLMConfig{Provider: "openai"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
