package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
	openaioption "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhabedank/promptbench/internal/core"
)

type fakeAdapter struct {
	name string
	got  []Request
	gen  Generation
	err  error
}

func (f *fakeAdapter) Name() string      { return f.name }
func (f *fakeAdapter) IsAvailable() bool { return true }

func (f *fakeAdapter) Generate(ctx context.Context, req Request) (*Generation, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	g := f.gen
	return &g, nil
}

func TestProviderFor(t *testing.T) {
	tests := []struct {
		model string
		want  Provider
	}{
		{"claude-haiku-4-5-20251001", ProviderAnthropic},
		{"gpt-4o-mini", ProviderOpenAI},
		{"o3-mini", ProviderOpenAI},
		{"o1", ProviderOpenAI},
		{"gemini-2.5-flash", ProviderGemini},
		{"GEMINI-2.5-pro", ProviderGemini},
		{"opus", ProviderUnknown},
		{"llama-3", ProviderUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, ProviderFor(tt.model))
		})
	}
}

func TestRouterMapsPromptAndInput(t *testing.T) {
	fake := &fakeAdapter{name: "fake", gen: Generation{Text: "Bonjour", InputTokens: 1000, OutputTokens: 500}}
	r := NewRouter(Config{MaxTokens: 256})
	r.Register(ProviderAnthropic, fake)

	resp, err := r.Execute(context.Background(), core.ExecuteRequest{
		PromptText: "Translate to French.",
		Model:      "claude-haiku-4-5-20251001",
		Input:      "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", resp.OutputText)
	assert.Equal(t, 1000, resp.InputTokenCount)
	assert.Equal(t, 500, resp.OutputTokenCount)
	require.NotNil(t, resp.Cost)
	assert.InDelta(t, 0.0035, *resp.Cost, 1e-9)

	require.Len(t, fake.got, 1)
	assert.Equal(t, Request{Model: "claude-haiku-4-5-20251001", System: "Translate to French.", User: "Hello", MaxTokens: 256}, fake.got[0])

	_, err = r.Execute(context.Background(), core.ExecuteRequest{PromptText: "Translate: Hello"})
	require.NoError(t, err)
	assert.Equal(t, Request{Model: DefaultModel, User: "Translate: Hello", MaxTokens: 256}, fake.got[1])
}

func TestRouterUnknownPricingLeavesCostUnset(t *testing.T) {
	fake := &fakeAdapter{name: "fake", gen: Generation{Text: "ok"}}
	r := NewRouter(Config{})
	r.Register(ProviderOpenAI, fake)

	resp, err := r.Execute(context.Background(), core.ExecuteRequest{PromptText: "x", Model: "gpt-5-experimental"})
	require.NoError(t, err)
	assert.Nil(t, resp.Cost)
}

func TestRouterUnknownModel(t *testing.T) {
	_, err := NewRouter(Config{}).Execute(context.Background(), core.ExecuteRequest{PromptText: "x", Model: "llama-3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llama-3")
}

func TestRouterPropagatesBackendError(t *testing.T) {
	r := NewRouter(Config{})
	r.Register(ProviderGemini, &fakeAdapter{name: "fake", err: errors.New("quota exceeded")})

	_, err := r.Execute(context.Background(), core.ExecuteRequest{PromptText: "x", Model: "gemini-2.5-flash"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestAnthropicAPIAdapterGenerate(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"), r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant",
			"model": "claude-haiku-4-5-20251001",
			"content": [{"type": "text", "text": "Bon"}, {"type": "text", "text": "jour"}],
			"stop_reason": "end_turn", "stop_sequence": null,
			"usage": {"input_tokens": 12, "output_tokens": 3}
		}`)
	}))
	defer server.Close()

	a, err := NewAnthropicAPIAdapter(Config{AnthropicAPIKey: "test-key"},
		anthropicoption.WithBaseURL(server.URL), anthropicoption.WithMaxRetries(0))
	require.NoError(t, err)
	assert.Equal(t, "anthropic-api", a.Name())

	gen, err := a.Generate(context.Background(), Request{Model: "claude-haiku-4-5-20251001", System: "Translate.", User: "Hello", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", gen.Text)
	assert.Equal(t, 12, gen.InputTokens)
	assert.Equal(t, 3, gen.OutputTokens)
	assert.False(t, gen.Estimated)

	assert.Equal(t, "claude-haiku-4-5-20251001", body["model"])
	assert.EqualValues(t, 64, body["max_tokens"])
}

func TestOpenAIAPIAdapterGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/responses"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "resp_1", "object": "response", "created_at": 1, "status": "completed",
			"model": "gpt-4o-mini",
			"output": [{"type": "message", "id": "msg_1", "role": "assistant", "status": "completed",
				"content": [{"type": "output_text", "text": "Hola", "annotations": []}]}],
			"usage": {"input_tokens": 5, "output_tokens": 2, "total_tokens": 7}
		}`)
	}))
	defer server.Close()

	a, err := NewOpenAIAPIAdapter(Config{OpenAIAPIKey: "test-key"},
		openaioption.WithBaseURL(server.URL+"/v1/"), openaioption.WithMaxRetries(0))
	require.NoError(t, err)

	gen, err := a.Generate(context.Background(), Request{Model: "gpt-4o-mini", User: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hola", gen.Text)
	assert.Equal(t, 5, gen.InputTokens)
	assert.Equal(t, 2, gen.OutputTokens)
}

func TestAPIAdaptersRequireKeys(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := NewAnthropicAPIAdapter(Config{})
	assert.Error(t, err)
	_, err = NewOpenAIAPIAdapter(Config{})
	assert.Error(t, err)
	_, err = NewGeminiAPIAdapter(Config{})
	assert.Error(t, err)

	g, err := NewGeminiAPIAdapter(Config{GeminiAPIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-api", g.Name())
	assert.True(t, g.IsAvailable())
}

func TestCLIAdapterNames(t *testing.T) {
	assert.Equal(t, "claude-cli", NewClaudeCLIAdapter().Name())
	assert.Equal(t, "codex-cli", NewCodexCLIAdapter().Name())
}

func TestEstimatedGeneration(t *testing.T) {
	gen := estimated(Request{Model: "o3", System: strings.Repeat("s", 40), User: strings.Repeat("u", 40)}, "twelve chars")
	assert.True(t, gen.Estimated)
	assert.Equal(t, 20, gen.InputTokens)
	assert.Equal(t, 3, gen.OutputTokens)
	assert.Equal(t, "o3", gen.Model)
}

func TestAllModelsHavePricing(t *testing.T) {
	for _, m := range AllModels() {
		_, known := PricingFor(m.ID)
		assert.True(t, known, m.ID)
		assert.Equal(t, ProviderFor(m.ID), m.Provider, m.ID)
	}
}
