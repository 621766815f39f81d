// Package llm runs prompts directly against model providers, without the
// remote prompt service in between.
package llm

import (
	"context"

	"go.uber.org/zap"
)

// Adapter is the interface all generation backends implement.
type Adapter interface {
	// Name returns the adapter identifier for logging.
	Name() string

	// IsAvailable checks if this adapter can be used (CLI installed, API key set, etc.)
	IsAvailable() bool

	// Generate sends one request and returns the raw text with token usage.
	Generate(ctx context.Context, req Request) (*Generation, error)
}

// Request is a single generation call.
// System may be empty, in which case only the user turn is sent.
type Request struct {
	Model     string
	System    string
	User      string
	MaxTokens int
}

// Generation is what a backend produced.
type Generation struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int

	// Estimated is set when the backend reports no usage and the token
	// counts were derived from text length.
	Estimated bool
}

// Config holds configuration for the backends.
type Config struct {
	// PreferCLI routes Claude and OpenAI models through the claude and codex
	// CLIs when they are installed (already authenticated).
	PreferCLI bool `yaml:"prefer_cli"`

	// Model used when a request names none.
	Model string `yaml:"model"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`

	// MaxTokens limits response length.
	MaxTokens int `yaml:"max_tokens"`

	Logger *zap.SugaredLogger `yaml:"-"`
}

// DefaultMaxTokens caps a response when no limit is configured.
const DefaultMaxTokens = 4096

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:     DefaultModel,
		MaxTokens: DefaultMaxTokens,
	}
}

func (c Config) maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return DefaultMaxTokens
}
