package llm

import (
	"context"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"google.golang.org/genai"
)

// GeminiAPIAdapter uses Google's Gemini API. The client is created on first use.
type GeminiAPIAdapter struct {
	apiKey string
	config Config

	once      sync.Once
	client    *genai.Client
	clientErr error
}

// NewGeminiAPIAdapter creates a Gemini adapter.
// The key comes from config, GEMINI_API_KEY or GOOGLE_API_KEY.
func NewGeminiAPIAdapter(config Config) (*GeminiAPIAdapter, error) {
	apiKey := config.GeminiAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.WithHint(errors.New("GEMINI_API_KEY not set"), "set gemini_api_key in the config file or export GEMINI_API_KEY")
	}
	return &GeminiAPIAdapter{apiKey: apiKey, config: config}, nil
}

func (a *GeminiAPIAdapter) Name() string {
	return "gemini-api"
}

func (a *GeminiAPIAdapter) IsAvailable() bool {
	return a.apiKey != ""
}

func (a *GeminiAPIAdapter) connect(ctx context.Context) (*genai.Client, error) {
	a.once.Do(func() {
		a.client, a.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  a.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if a.clientErr != nil {
		return nil, errors.Wrap(a.clientErr, "failed to create GenAI client")
	}
	return a.client, nil
}

func (a *GeminiAPIAdapter) Generate(ctx context.Context, req Request) (*Generation, error) {
	client, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(a.config.maxTokens(req)),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model,
		[]*genai.Content{genai.NewContentFromText(req.User, genai.RoleUser)}, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "gemini API error")
	}

	gen := &Generation{Text: resp.Text(), Model: req.Model}
	if resp.ModelVersion != "" {
		gen.Model = resp.ModelVersion
	}
	if usage := resp.UsageMetadata; usage != nil {
		gen.InputTokens = int(usage.PromptTokenCount)
		gen.OutputTokens = int(usage.CandidatesTokenCount)
	}
	return gen, nil
}
