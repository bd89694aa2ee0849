package llm

import (
	"strconv"

	"github.com/dealscope/dealscope/internal/keyhash"
)

// CacheKey derives the response cache key for a model call, plus the
// independent prompt and content hashes. Prompt and content are hashed
// separately so prompt-only and content-only changes stay distinguishable
// in telemetry.
func CacheKey(modelID, modelVersion string, temperature, topP float64, prompt, content string) (key, promptHash, contentHash string) {
	promptHash = keyhash.Hash(prompt)
	contentHash = keyhash.Hash(content)
	key = keyhash.Hash(
		modelID,
		modelVersion,
		strconv.FormatFloat(temperature, 'f', -1, 64),
		strconv.FormatFloat(topP, 'f', -1, 64),
		promptHash,
		contentHash,
	)
	return key, promptHash, contentHash
}
