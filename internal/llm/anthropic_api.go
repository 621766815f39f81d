package llm

import (
	"context"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
)

// AnthropicAPIAdapter uses the Anthropic Messages API directly.
type AnthropicAPIAdapter struct {
	client anthropic.Client
	apiKey string
	config Config
}

// NewAnthropicAPIAdapter creates an Anthropic API adapter.
// The key comes from config or ANTHROPIC_API_KEY.
func NewAnthropicAPIAdapter(config Config, opts ...option.RequestOption) (*AnthropicAPIAdapter, error) {
	apiKey := config.AnthropicAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.WithHint(errors.New("ANTHROPIC_API_KEY not set"), "set anthropic_api_key in the config file or export ANTHROPIC_API_KEY")
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicAPIAdapter{
		client: anthropic.NewClient(opts...),
		apiKey: apiKey,
		config: config,
	}, nil
}

func (a *AnthropicAPIAdapter) Name() string {
	return "anthropic-api"
}

func (a *AnthropicAPIAdapter) IsAvailable() bool {
	return a.apiKey != ""
}

func (a *AnthropicAPIAdapter) Generate(ctx context.Context, req Request) (*Generation, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(a.config.maxTokens(req)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "anthropic API error")
	}

	var output string
	for _, block := range resp.Content {
		if block.Type == "text" {
			output += block.Text
		}
	}

	return &Generation{
		Text:         output,
		Model:        string(resp.Model),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}
