package llm

import "strings"

// modelPricing is USD per 1M tokens.
type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// priceTable is keyed by model family. Dated snapshots and OpenRouter
// "vendor/model" ids resolve to the longest matching family.
var priceTable = map[string]modelPricing{
	"claude-sonnet-4-5": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-haiku-4-5":  {InputPerMillion: 1.00, OutputPerMillion: 5.00},
	"claude-opus-4":     {InputPerMillion: 15.00, OutputPerMillion: 75.00},

	"gpt-4o":      {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini": {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4.1":     {InputPerMillion: 2.00, OutputPerMillion: 8.00},

	"gemini-2.0-flash": {InputPerMillion: 0.10, OutputPerMillion: 0.40},
	"gemini-1.5-pro":   {InputPerMillion: 1.25, OutputPerMillion: 5.00},
}

// lookupPricing finds the pricing of model, matching the longest known
// family the model id starts with.
func lookupPricing(model string) (modelPricing, bool) {
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	if p, ok := priceTable[model]; ok {
		return p, true
	}
	var (
		best    modelPricing
		bestLen int
	)
	for family, p := range priceTable {
		if len(family) > bestLen && strings.HasPrefix(model, family+"-") {
			best, bestLen = p, len(family)
		}
	}
	return best, bestLen > 0
}

// EstimateCost returns the USD cost of a request, or 0 for unknown models
// (local Ollama models are free).
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := lookupPricing(model)
	if !ok {
		return 0
	}
	return float64(inputTokens)/1_000_000*pricing.InputPerMillion +
		float64(outputTokens)/1_000_000*pricing.OutputPerMillion
}

// EstimateTokens approximates the token count of text at 4 characters per token.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		return 1
	}
	return n
}
