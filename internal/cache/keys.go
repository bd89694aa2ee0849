package cache

import "fmt"

func LLMResponseKey(cacheKey string) string {
	return fmt.Sprintf("llm:resp:%s", cacheKey)
}

func ModelRateLimitKey(provider, modelID string) string {
	return fmt.Sprintf("llm:rl:%s:%s", provider, modelID)
}

func ClientRateLimitKey(client string) string {
	return fmt.Sprintf("api:rl:%s", client)
}
