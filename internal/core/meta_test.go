package core

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	for _, kind := range []MetaKind{KindTitle, KindDescription, KindVariation, KindVariations, KindTemplate} {
		t.Run(string(kind), func(t *testing.T) {
			prompt, err := Compose(kind, "  Summarize {text} in French  ")
			require.NoError(t, err)
			assert.Contains(t, prompt, "Summarize {text} in French")
		})
	}

	_, err := Compose(KindTitle, "   ")
	assert.Error(t, err)

	_, err = Compose(MetaKind("haiku"), "text")
	assert.Error(t, err)
}

func TestParsePlain(t *testing.T) {
	tests := []struct {
		name string
		kind MetaKind
		raw  string
		want string
	}{
		{"trimmed", KindTitle, "  French Summarizer \n", "French Summarizer"},
		{"double quotes", KindTitle, `"French Summarizer"`, "French Summarizer"},
		{"single quotes", KindVariation, `'Condense {text}'`, "Condense {text}"},
		{"smart quotes", KindDescription, "“Summarizes text.”", "Summarizes text."},
		{"fenced whole reply", KindVariation, "```\nCondense {text}\n```", "Condense {text}"},
		{"unbalanced quote kept", KindTitle, `"Title`, `"Title`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := Parse(tt.kind, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply.Text)
			assert.Equal(t, tt.kind, reply.Kind)
		})
	}

	_, err := Parse(KindTitle, `  ""  `)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestParseStructured(t *testing.T) {
	t.Run("fenced json", func(t *testing.T) {
		raw := "Here you go:\n```json\n[\"one\", \"two\"]\n```\nEnjoy."
		got, err := ParseVariations(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two"}, got)
	})

	t.Run("bare json", func(t *testing.T) {
		got, err := ParseVariations(`["only"]`)
		require.NoError(t, err)
		assert.Equal(t, []string{"only"}, got)
	})

	t.Run("invalid fenced content is malformed", func(t *testing.T) {
		_, err := Parse(KindTemplate, "```json\n{\"name\": \"x\", content: }\n```")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedResponse))
	})

	t.Run("prose without json is malformed", func(t *testing.T) {
		_, err := ParseVariations("Sure! Here are some ideas: one, two.")
		assert.True(t, errors.Is(err, ErrMalformedResponse))
	})

	t.Run("wrong shape is malformed", func(t *testing.T) {
		_, err := ParseVariations("```json\n{\"a\": 1}\n```")
		assert.True(t, errors.Is(err, ErrMalformedResponse))
	})

	t.Run("template draft", func(t *testing.T) {
		raw := "```json\n{\"name\": \"Summarizer\", \"description\": \"d\", \"content\": \"Summarize {text}\"}\n```"
		draft, err := ParseTemplateDraft(raw)
		require.NoError(t, err)
		assert.Equal(t, TemplateDraft{Name: "Summarizer", Description: "d", Content: "Summarize {text}"}, draft)
	})

	t.Run("template without content", func(t *testing.T) {
		_, err := ParseTemplateDraft(`{"name": "x"}`)
		assert.True(t, errors.Is(err, ErrMalformedResponse))
	})

	t.Run("template with unknown fields", func(t *testing.T) {
		_, err := ParseTemplateDraft(`{"name": "x", "content": "c", "extra": true}`)
		assert.True(t, errors.Is(err, ErrMalformedResponse))
	})
}

func TestHelperRun(t *testing.T) {
	var got ExecuteRequest
	exec := ExecutorFunc(func(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error) {
		got = req
		return &ExecuteResponse{OutputText: "\"Greeting Translator\""}, nil
	})

	h := NewHelper(exec, "claude-haiku-4-5-20251001")
	reply, err := h.Run(context.Background(), KindTitle, "Translate: {text}")
	require.NoError(t, err)

	assert.Equal(t, "Greeting Translator", reply.Text)
	assert.Equal(t, "claude-haiku-4-5-20251001", got.Model)
	assert.Equal(t, MetaSystemPrompt, got.PromptText)
	assert.Contains(t, got.Input, "Translate: {text}")
}

func TestHelperDoesNotRetryMalformed(t *testing.T) {
	calls := 0
	exec := ExecutorFunc(func(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error) {
		calls++
		return &ExecuteResponse{OutputText: "```json\nnot json\n```"}, nil
	})

	_, err := NewHelper(exec, "").Variations(context.Background(), "Translate: {text}")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
	assert.Equal(t, 1, calls)
}

func TestHelperPropagatesBackendError(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error) {
		return nil, errors.New("quota exceeded")
	})

	_, err := NewHelper(exec, "").Template(context.Background(), "a prompt for summaries")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.False(t, errors.Is(err, ErrMalformedResponse))
}
