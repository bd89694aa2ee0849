package llm

type modelPricing struct {
	promptPer1K     float64
	completionPer1K float64
}

// Prices in USD per 1000 tokens. Models not listed fall back to
// defaultPricing, erring on the conservative side.
var pricing = map[string]modelPricing{
	"gpt-4o":      {promptPer1K: 0.0025, completionPer1K: 0.01},
	"gpt-4o-mini": {promptPer1K: 0.00015, completionPer1K: 0.0006},
	"o3-mini":     {promptPer1K: 0.0011, completionPer1K: 0.0044},
	"sonar":       {promptPer1K: 0.001, completionPer1K: 0.001},
	"sonar-pro":   {promptPer1K: 0.003, completionPer1K: 0.015},
}

var defaultPricing = modelPricing{promptPer1K: 0.0025, completionPer1K: 0.01}

// EstimateCost prices a call from its token counts.
func EstimateCost(modelID string, promptTokens, completionTokens int) float64 {
	p, ok := pricing[modelID]
	if !ok {
		p = defaultPricing
	}
	return float64(promptTokens)/1000*p.promptPer1K + float64(completionTokens)/1000*p.completionPer1K
}
