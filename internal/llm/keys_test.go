package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey_Deterministic(t *testing.T) {
	k1, p1, c1 := CacheKey("gpt-4o", "2024-11-20", 0.2, 0.9, "prompt", "content")
	k2, p2, c2 := CacheKey("gpt-4o", "2024-11-20", 0.2, 0.9, "prompt", "content")

	assert.Equal(t, k1, k2)
	assert.Equal(t, p1, p2)
	assert.Equal(t, c1, c2)
	assert.Len(t, k1, 64)
}

func TestCacheKey_SensitiveToEachInput(t *testing.T) {
	base, _, _ := CacheKey("gpt-4o", "2024-11-20", 0.2, 0.9, "prompt", "content")

	variants := []struct {
		name string
		key  string
	}{
		{"model", first(CacheKey("gpt-4o-mini", "2024-11-20", 0.2, 0.9, "prompt", "content"))},
		{"version", first(CacheKey("gpt-4o", "2024-12-01", 0.2, 0.9, "prompt", "content"))},
		{"temperature", first(CacheKey("gpt-4o", "2024-11-20", 0.3, 0.9, "prompt", "content"))},
		{"top_p", first(CacheKey("gpt-4o", "2024-11-20", 0.2, 0.95, "prompt", "content"))},
		{"prompt", first(CacheKey("gpt-4o", "2024-11-20", 0.2, 0.9, "other prompt", "content"))},
		{"content", first(CacheKey("gpt-4o", "2024-11-20", 0.2, 0.9, "prompt", "other content"))},
	}
	for _, v := range variants {
		assert.NotEqual(t, base, v.key, "changing %s must change the key", v.name)
	}
}

func TestCacheKey_PromptContentSwapDiffers(t *testing.T) {
	a, _, _ := CacheKey("gpt-4o", "", 0.2, 0.9, "alpha", "beta")
	b, _, _ := CacheKey("gpt-4o", "", 0.2, 0.9, "beta", "alpha")

	assert.NotEqual(t, a, b)
}

func TestCacheKey_HashesPromptAndContentIndependently(t *testing.T) {
	_, p1, c1 := CacheKey("gpt-4o", "", 0.2, 0.9, "prompt", "content")
	_, p2, c2 := CacheKey("gpt-4o-mini", "", 0.7, 0.5, "prompt", "content")

	// Prompt and content hashes depend only on their own text.
	assert.Equal(t, p1, p2)
	assert.Equal(t, c1, c2)
}

func first(key, _, _ string) string { return key }
