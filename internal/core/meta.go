package core

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// MetaKind selects which helper prompt to build and how to read its reply.
type MetaKind string

const (
	KindTitle       MetaKind = "title"
	KindDescription MetaKind = "description"
	KindVariation   MetaKind = "variation"
	KindVariations  MetaKind = "variations" // Structured: JSON array of strings
	KindTemplate    MetaKind = "template"   // Structured: TemplateDraft object
)

// DefaultVariationCount is how many phrasings KindVariations asks for.
const DefaultVariationCount = 3

// Structured reports whether replies of this kind are parsed as JSON.
func (k MetaKind) Structured() bool {
	return k == KindVariations || k == KindTemplate
}

// TemplateDraft is the structured reply for KindTemplate.
type TemplateDraft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// Reply is a parsed helper response. Text is set for plain kinds,
// Data holds the fenced payload for structured kinds.
type Reply struct {
	Kind MetaKind
	Text string
	Data json.RawMessage
}

// Compose builds the helper prompt for kind around source.
func Compose(kind MetaKind, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", errors.Newf("cannot compose %s prompt from empty text", kind)
	}

	switch kind {
	case KindTitle:
		return fmt.Sprintf(titlePrompt, source), nil
	case KindDescription:
		return fmt.Sprintf(descriptionPrompt, source), nil
	case KindVariation:
		return fmt.Sprintf(variationPrompt, source), nil
	case KindVariations:
		return fmt.Sprintf(variationsPrompt, DefaultVariationCount, source), nil
	case KindTemplate:
		return fmt.Sprintf(templatePrompt, source), nil
	default:
		return "", errors.Newf("unknown helper kind %q", kind)
	}
}

// fencePattern captures the body of the first ``` fenced block, with an optional language tag.
var fencePattern = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)```")

// extractFenced returns the content of the first fenced block in raw.
func extractFenced(raw string) (string, bool) {
	m := fencePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Parse interprets a raw backend reply for kind.
// Plain kinds are trimmed and unquoted. Structured kinds take the fenced block
// (or the whole reply when there is none) as JSON; anything that does not
// decode yields an error wrapping ErrMalformedResponse. Nothing is guessed.
func Parse(kind MetaKind, raw string) (Reply, error) {
	if !kind.Structured() {
		text := strings.TrimSpace(raw)
		if body, ok := extractFenced(text); ok && strings.HasPrefix(text, "```") {
			text = body
		}
		text = unquote(text)
		if text == "" {
			return Reply{}, errors.Wrapf(ErrMalformedResponse, "empty %s reply", kind)
		}
		return Reply{Kind: kind, Text: text}, nil
	}

	payload, ok := extractFenced(raw)
	if !ok {
		payload = strings.TrimSpace(raw)
	}
	if payload == "" || !json.Valid([]byte(payload)) {
		return Reply{}, errors.Wrapf(ErrMalformedResponse, "%s reply is not valid JSON", kind)
	}
	return Reply{Kind: kind, Data: json.RawMessage(payload)}, nil
}

// ParseVariations parses a KindVariations reply into its phrasings.
func ParseVariations(raw string) ([]string, error) {
	reply, err := Parse(KindVariations, raw)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal(reply.Data, &out); err != nil {
		return nil, errors.Wrap(ErrMalformedResponse, "variations reply is not a list of strings")
	}
	cleaned := out[:0]
	for _, v := range out {
		if v = strings.TrimSpace(v); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.Wrap(ErrMalformedResponse, "variations reply is empty")
	}
	return cleaned, nil
}

// ParseTemplateDraft parses a KindTemplate reply.
func ParseTemplateDraft(raw string) (TemplateDraft, error) {
	reply, err := Parse(KindTemplate, raw)
	if err != nil {
		return TemplateDraft{}, err
	}
	var draft TemplateDraft
	dec := json.NewDecoder(strings.NewReader(string(reply.Data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&draft); err != nil {
		return TemplateDraft{}, errors.Wrap(ErrMalformedResponse, "template reply does not match the expected object")
	}
	if strings.TrimSpace(draft.Content) == "" {
		return TemplateDraft{}, errors.Wrap(ErrMalformedResponse, "template reply has no content")
	}
	return draft, nil
}

var quotePairs = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"`", "`"},
	{"“", "”"},
	{"‘", "’"},
}

// unquote strips one pair of matching surrounding quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range quotePairs {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			return strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
		}
	}
	return s
}

// Helper runs meta-prompts against an executor.
type Helper struct {
	exec  Executor
	model string
}

// NewHelper creates a helper that sends requests to exec using model.
func NewHelper(exec Executor, model string) *Helper {
	return &Helper{exec: exec, model: model}
}

// Run composes the helper prompt, executes it once and parses the reply.
// A parse failure is returned as is; the call is never retried.
func (h *Helper) Run(ctx context.Context, kind MetaKind, source string) (Reply, error) {
	prompt, err := Compose(kind, source)
	if err != nil {
		return Reply{}, err
	}

	resp, err := h.exec.Execute(ctx, ExecuteRequest{
		PromptText: MetaSystemPrompt,
		Input:      prompt,
		Model:      h.model,
	})
	if err != nil {
		return Reply{}, errors.Wrapf(err, "%s helper", kind)
	}

	return Parse(kind, resp.OutputText)
}

// Variations runs KindVariations and decodes the list.
func (h *Helper) Variations(ctx context.Context, source string) ([]string, error) {
	reply, err := h.Run(ctx, KindVariations, source)
	if err != nil {
		return nil, err
	}
	return ParseVariations(string(reply.Data))
}

// Template runs KindTemplate and decodes the draft.
func (h *Helper) Template(ctx context.Context, request string) (TemplateDraft, error) {
	reply, err := h.Run(ctx, KindTemplate, request)
	if err != nil {
		return TemplateDraft{}, err
	}
	return ParseTemplateDraft(string(reply.Data))
}
