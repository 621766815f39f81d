package llm

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// OpenAIAPIAdapter uses the OpenAI Responses API.
type OpenAIAPIAdapter struct {
	client openai.Client
	apiKey string
	config Config
}

// NewOpenAIAPIAdapter creates an OpenAI adapter.
// The key comes from config or OPENAI_API_KEY.
func NewOpenAIAPIAdapter(config Config, opts ...option.RequestOption) (*OpenAIAPIAdapter, error) {
	apiKey := config.OpenAIAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.WithHint(errors.New("OPENAI_API_KEY not set"), "set openai_api_key in the config file or export OPENAI_API_KEY")
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIAPIAdapter{
		client: openai.NewClient(opts...),
		apiKey: apiKey,
		config: config,
	}, nil
}

func (a *OpenAIAPIAdapter) Name() string {
	return "openai-api"
}

func (a *OpenAIAPIAdapter) IsAvailable() bool {
	return a.apiKey != ""
}

func (a *OpenAIAPIAdapter) Generate(ctx context.Context, req Request) (*Generation, error) {
	input := make(responses.ResponseInputParam, 0, 2)
	if req.System != "" {
		input = append(input, responses.ResponseInputItemParamOfMessage(req.System, responses.EasyInputMessageRoleSystem))
	}
	input = append(input, responses.ResponseInputItemParamOfMessage(req.User, responses.EasyInputMessageRoleUser))

	resp, err := a.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:           shared.ResponsesModel(req.Model),
		Input:           responses.ResponseNewParamsInputUnion{OfInputItemList: input},
		MaxOutputTokens: openai.Int(int64(a.config.maxTokens(req))),
	})
	if err != nil {
		return nil, errors.Wrap(err, "openai API error")
	}
	if resp.Error.Message != "" {
		return nil, errors.Newf("openai API error: %s", resp.Error.Message)
	}

	return &Generation{
		Text:         resp.OutputText(),
		Model:        string(resp.Model),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}
