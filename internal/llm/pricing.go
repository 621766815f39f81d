package llm

// Pricing is the USD price per million tokens.
type Pricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// ModelPricing contains pricing per 1M tokens for various models.
// Prices are in USD. Updated: 2026-01-30 from the providers' pricing pages.
var ModelPricing = map[string]Pricing{
	// Claude 4.5 models (latest)
	"claude-opus-4-5-20251101":   {InputPer1M: 5.0, OutputPer1M: 25.0},
	"claude-sonnet-4-5-20250929": {InputPer1M: 3.0, OutputPer1M: 15.0},
	"claude-haiku-4-5-20251001":  {InputPer1M: 1.0, OutputPer1M: 5.0},

	// Claude 4.x legacy models
	"claude-opus-4-1-20250805": {InputPer1M: 15.0, OutputPer1M: 75.0},
	"claude-sonnet-4-20250514": {InputPer1M: 3.0, OutputPer1M: 15.0},
	"claude-opus-4-20250514":   {InputPer1M: 15.0, OutputPer1M: 75.0},

	// Claude 3.x legacy models
	"claude-3-7-sonnet-20250219": {InputPer1M: 3.0, OutputPer1M: 15.0},
	"claude-3-haiku-20240307":    {InputPer1M: 0.25, OutputPer1M: 1.25},

	// OpenAI models
	"gpt-4o":      {InputPer1M: 2.5, OutputPer1M: 10.0},
	"gpt-4o-mini": {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo": {InputPer1M: 10.0, OutputPer1M: 30.0},
	"o1":          {InputPer1M: 15.0, OutputPer1M: 60.0},
	"o1-mini":     {InputPer1M: 1.10, OutputPer1M: 4.40},
	"o3":          {InputPer1M: 10.0, OutputPer1M: 40.0},
	"o3-mini":     {InputPer1M: 1.10, OutputPer1M: 4.40},

	// Gemini models
	"gemini-2.5-pro":        {InputPer1M: 1.25, OutputPer1M: 10.0},
	"gemini-2.5-flash":      {InputPer1M: 0.30, OutputPer1M: 2.50},
	"gemini-2.5-flash-lite": {InputPer1M: 0.10, OutputPer1M: 0.40},

	// Fallback for unknown models (use conservative estimate)
	"default": {InputPer1M: 5.0, OutputPer1M: 15.0},
}

// PricingFor returns the pricing for model and whether it was known.
func PricingFor(model string) (Pricing, bool) {
	p, ok := ModelPricing[model]
	if !ok {
		return ModelPricing["default"], false
	}
	return p, true
}

// EstimateTokens estimates token count from character count.
// Uses the approximation that 1 token ≈ 4 characters.
func EstimateTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	return chars / 4
}

// EstimateCost calculates the cost for a model given token counts, in USD.
// Unknown models use the default price.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, _ := PricingFor(model)

	inputCost := float64(inputTokens) * pricing.InputPer1M / 1_000_000
	outputCost := float64(outputTokens) * pricing.OutputPer1M / 1_000_000

	return inputCost + outputCost
}
