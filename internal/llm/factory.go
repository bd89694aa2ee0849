package llm

import (
	"fmt"

	"github.com/dealscope/dealscope/internal/config"
	"github.com/dealscope/dealscope/internal/llm/mock"
	"github.com/dealscope/dealscope/internal/llm/openai"
	"github.com/dealscope/dealscope/internal/llm/perplexity"
	"github.com/dealscope/dealscope/pkg/models"
)

// NewProviders constructs every configured model provider and returns them
// keyed by name, plus the default provider name. Called once at startup.
func NewProviders(cfg config.LLMConfig) (map[string]models.ModelProvider, string, error) {
	providers := make(map[string]models.ModelProvider)

	if cfg.OpenAI.APIKey != "" {
		providers["openai"] = openai.NewProvider(cfg.OpenAI, cfg.Timeout)
	}
	if cfg.Perplexity.APIKey != "" {
		providers["perplexity"] = perplexity.NewProvider(cfg.Perplexity, cfg.Timeout)
	}
	if cfg.Provider == "mock" {
		providers["mock"] = mock.NewProvider()
	}

	if _, ok := providers[cfg.Provider]; !ok {
		return nil, "", fmt.Errorf("default provider %q is not configured", cfg.Provider)
	}
	return providers, cfg.Provider, nil
}
