package observability

import (
	"strconv"
	"strings"

	"github.com/Little6thingys/lyric-mind/internal/llm"
)

// Pricing constants
const (
	tokensPerKilo       = 1000.0
	costFormatPrecision = 6

	// GPT-4o pricing
	gpt4oInputPrice  = 0.0025
	gpt4oOutputPrice = 0.01

	// GPT-4o-mini pricing
	gpt4oMiniInputPrice  = 0.00015
	gpt4oMiniOutputPrice = 0.0006

	// Gemini 2.5 Flash pricing
	geminiFlashInputPrice  = 0.0003
	geminiFlashOutputPrice = 0.0025
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // Price per 1K input tokens in USD
	OutputPricePer1K float64 // Price per 1K output tokens in USD
}

// PricingTable contains pricing for hosted models. Models not listed, such
// as self-hosted Llama 3, cost nothing.
var PricingTable = map[string]ModelPricing{
	"gpt-4o": {
		InputPricePer1K:  gpt4oInputPrice,
		OutputPricePer1K: gpt4oOutputPrice,
	},
	"gpt-4o-mini": {
		InputPricePer1K:  gpt4oMiniInputPrice,
		OutputPricePer1K: gpt4oMiniOutputPrice,
	},
	"gemini-2.5-flash": {
		InputPricePer1K:  geminiFlashInputPrice,
		OutputPricePer1K: geminiFlashOutputPrice,
	},
}

// CalculateCost calculates the cost in USD of one completion
func CalculateCost(model string, usage llm.Usage) float64 {
	pricing, exists := PricingTable[strings.ToLower(model)]
	if !exists {
		return 0
	}

	inputCost := (float64(usage.InputTokens) / tokensPerKilo) * pricing.InputPricePer1K
	outputCost := (float64(usage.OutputTokens) / tokensPerKilo) * pricing.OutputPricePer1K
	return inputCost + outputCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}
