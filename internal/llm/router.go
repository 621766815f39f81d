package llm

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dhabedank/promptbench/internal/core"
)

var _ core.Executor = (*Router)(nil)

// Router executes prompts by picking a backend from the model id.
// Backends are created on first use and reused afterwards.
type Router struct {
	config Config
	logger *zap.SugaredLogger

	mu       sync.Mutex
	adapters map[Provider]Adapter
}

// NewRouter creates a router over the configured providers.
func NewRouter(config Config) *Router {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	return &Router{
		config:   config,
		logger:   logger,
		adapters: make(map[Provider]Adapter),
	}
}

// Register installs adapter for provider, replacing any detected one.
func (r *Router) Register(provider Provider, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[provider] = adapter
}

// AdapterFor returns the backend serving model.
func (r *Router) AdapterFor(model string) (Adapter, error) {
	provider := ProviderFor(model)

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.adapters[provider]; ok {
		return a, nil
	}

	a, err := r.detect(provider, model)
	if err != nil {
		return nil, err
	}
	r.logger.Debugw("selected backend", "provider", string(provider), "adapter", a.Name())
	r.adapters[provider] = a
	return a, nil
}

// detect finds the best adapter for provider.
// Priority: CLI when preferred and installed > API key > CLI as last resort.
func (r *Router) detect(provider Provider, model string) (Adapter, error) {
	var cli Adapter
	switch provider {
	case ProviderAnthropic:
		cli = NewClaudeCLIAdapter()
	case ProviderOpenAI:
		cli = NewCodexCLIAdapter()
	}
	if r.config.PreferCLI && cli != nil && cli.IsAvailable() {
		return cli, nil
	}

	var (
		api Adapter
		err error
	)
	switch provider {
	case ProviderAnthropic:
		api, err = NewAnthropicAPIAdapter(r.config)
	case ProviderOpenAI:
		api, err = NewOpenAIAPIAdapter(r.config)
	case ProviderGemini:
		api, err = NewGeminiAPIAdapter(r.config)
	default:
		return nil, errors.WithHint(
			errors.Newf("no backend serves model %q", model),
			"use a claude-*, gpt-*, o* or gemini-* model, or the remote backend")
	}
	if err == nil {
		return api, nil
	}
	if cli != nil && cli.IsAvailable() {
		return cli, nil
	}
	return nil, err
}

// Execute runs one prompt. With a shared input the prompt text becomes the
// system instruction and the input the user turn; otherwise the prompt text
// is the user turn. Variables are expected to be substituted already.
func (r *Router) Execute(ctx context.Context, req core.ExecuteRequest) (*core.ExecuteResponse, error) {
	model := req.Model
	if model == "" {
		model = r.config.Model
	}

	adapter, err := r.AdapterFor(model)
	if err != nil {
		return nil, err
	}

	lreq := Request{Model: model, User: req.PromptText, MaxTokens: r.config.MaxTokens}
	if req.Input != "" {
		lreq.System = req.PromptText
		lreq.User = req.Input
	}

	gen, err := adapter.Generate(ctx, lreq)
	if err != nil {
		return nil, err
	}

	resp := &core.ExecuteResponse{
		OutputText:       gen.Text,
		InputTokenCount:  gen.InputTokens,
		OutputTokenCount: gen.OutputTokens,
		Model:            model,
	}
	if _, known := PricingFor(model); known {
		cost := EstimateCost(model, gen.InputTokens, gen.OutputTokens)
		resp.Cost = &cost
	}
	return resp, nil
}
