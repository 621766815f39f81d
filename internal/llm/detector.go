package llm

import (
	"os"
	"os/exec"
	"strings"
)

// Provider identifies who serves a model.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderUnknown   Provider = ""
)

// DefaultModel is used when neither the request nor the config names one.
const DefaultModel = "claude-haiku-4-5-20251001"

// ModelInfo describes an available model.
type ModelInfo struct {
	ID          string   // Model identifier (e.g., "claude-opus-4-5-20251101")
	Name        string   // Human-readable name (e.g., "Claude Opus 4.5")
	Description string   // Brief description
	Provider    Provider // Provider name (e.g., "anthropic", "openai")
}

// claudeModels lists Claude models.
// Updated: 2026-01-30 from https://docs.anthropic.com/en/docs/about-claude/models
var claudeModels = []ModelInfo{
	// Latest 4.5 models
	{ID: "claude-opus-4-5-20251101", Name: "Claude Opus 4.5", Description: "Premium model, maximum intelligence ($5/$25 per MTok)", Provider: ProviderAnthropic},
	{ID: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5", Description: "Best balance of speed and capability ($3/$15 per MTok)", Provider: ProviderAnthropic},
	{ID: "claude-haiku-4-5-20251001", Name: "Claude Haiku 4.5", Description: "Fastest, most cost-effective ($1/$5 per MTok)", Provider: ProviderAnthropic},
	// Legacy models
	{ID: "claude-opus-4-1-20250805", Name: "Claude Opus 4.1", Description: "Previous premium model ($15/$75 per MTok)", Provider: ProviderAnthropic},
	{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", Description: "Previous balanced model ($3/$15 per MTok)", Provider: ProviderAnthropic},
	{ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku", Description: "Legacy budget model ($0.25/$1.25 per MTok)", Provider: ProviderAnthropic},
}

var openaiModels = []ModelInfo{
	{ID: "o3", Name: "O3", Description: "Most capable reasoning model", Provider: ProviderOpenAI},
	{ID: "o3-mini", Name: "O3 Mini", Description: "Fast reasoning model", Provider: ProviderOpenAI},
	{ID: "gpt-4o", Name: "GPT-4o", Description: "Fast multimodal model", Provider: ProviderOpenAI},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Description: "Most cost-effective", Provider: ProviderOpenAI},
}

var geminiModels = []ModelInfo{
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Description: "Most capable Gemini model", Provider: ProviderGemini},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Description: "Fast and balanced", Provider: ProviderGemini},
	{ID: "gemini-2.5-flash-lite", Name: "Gemini 2.5 Flash-Lite", Description: "Lowest cost", Provider: ProviderGemini},
}

// ProviderFor maps a model id to its provider by naming convention.
func ProviderFor(model string) Provider {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude-"):
		return ProviderAnthropic
	case strings.HasPrefix(m, "gpt-"), strings.HasPrefix(m, "chatgpt-"), isReasoningModel(m):
		return ProviderOpenAI
	case strings.HasPrefix(m, "gemini-"):
		return ProviderGemini
	default:
		return ProviderUnknown
	}
}

// isReasoningModel matches o1, o3-mini, o4-mini and similar.
func isReasoningModel(m string) bool {
	return len(m) >= 2 && m[0] == 'o' && m[1] >= '0' && m[1] <= '9'
}

// AvailableModels returns models grouped by provider, for providers that
// have an API key configured or a CLI installed.
func AvailableModels(config Config) map[Provider][]ModelInfo {
	result := make(map[Provider][]ModelInfo)

	if config.AnthropicAPIKey != "" || os.Getenv("ANTHROPIC_API_KEY") != "" || onPath("claude") {
		result[ProviderAnthropic] = claudeModels
	}
	if config.OpenAIAPIKey != "" || os.Getenv("OPENAI_API_KEY") != "" || onPath("codex") {
		result[ProviderOpenAI] = openaiModels
	}
	if config.GeminiAPIKey != "" || os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		result[ProviderGemini] = geminiModels
	}

	return result
}

// AllModels returns every known model, Claude first.
func AllModels() []ModelInfo {
	result := make([]ModelInfo, 0, len(claudeModels)+len(openaiModels)+len(geminiModels))
	result = append(result, claudeModels...)
	result = append(result, openaiModels...)
	result = append(result, geminiModels...)
	return result
}

func onPath(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}
