package api

import (
	"net/url"
	"time"

	"github.com/dhabedank/promptbench/internal/core"
)

// Resource paths, also used as session cache keys.
const (
	ResourcePrompts   = "prompts"
	ResourceTemplates = "templates"
	ResourceMetrics   = "metrics"
)

// PromptsResource is the collection path for prompts, optionally including archived ones.
func PromptsResource(includeArchived bool) string {
	return withArchived(ResourcePrompts, includeArchived)
}

// TemplatesResource is the collection path for templates, optionally including archived ones.
func TemplatesResource(includeArchived bool) string {
	return withArchived(ResourceTemplates, includeArchived)
}

// MetricsResource is the metrics path, optionally for one prompt.
func MetricsResource(promptID string) string {
	if promptID == "" {
		return ResourceMetrics
	}
	return ResourceMetrics + "?prompt_id=" + url.QueryEscape(promptID)
}

func withArchived(resource string, includeArchived bool) string {
	if includeArchived {
		return resource + "?include_archived=true"
	}
	return resource
}

// Prompt is a saved prompt owned by the remote store.
type Prompt struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Content     string    `json:"content" yaml:"content"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	IsArchived  bool      `json:"is_archived" yaml:"is_archived"`
	Rating      *int      `json:"rating,omitempty" yaml:"rating,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

func (p Prompt) EntityID() string { return p.ID }

// Variables lists the placeholders used by the prompt's content.
func (p Prompt) Variables() []string {
	return core.FindVariables(p.Content)
}

// PromptInput creates a prompt.
type PromptInput struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// PromptPatch changes the non-nil fields of a prompt.
type PromptPatch struct {
	Title       *string   `json:"title,omitempty"`
	Content     *string   `json:"content,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	IsArchived  *bool     `json:"is_archived,omitempty"`
	Rating      *int      `json:"rating,omitempty"`
}

// Apply returns p with the patch applied, used to predict the server's answer.
func (pp PromptPatch) Apply(p Prompt) Prompt {
	if pp.Title != nil {
		p.Title = *pp.Title
	}
	if pp.Content != nil {
		p.Content = *pp.Content
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Tags != nil {
		p.Tags = *pp.Tags
	}
	if pp.IsArchived != nil {
		p.IsArchived = *pp.IsArchived
	}
	if pp.Rating != nil {
		r := *pp.Rating
		p.Rating = &r
	}
	return p
}

// Template is a reusable prompt skeleton owned by the remote store.
type Template struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Content     string    `json:"content" yaml:"content"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	IsArchived  bool      `json:"is_archived" yaml:"is_archived"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

func (t Template) EntityID() string { return t.ID }

// TemplateInput creates a template.
type TemplateInput struct {
	Name        string `json:"name"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
}

// TemplatePatch changes the non-nil fields of a template.
type TemplatePatch struct {
	Name        *string `json:"name,omitempty"`
	Content     *string `json:"content,omitempty"`
	Description *string `json:"description,omitempty"`
	IsArchived  *bool   `json:"is_archived,omitempty"`
}

// Apply returns t with the patch applied.
func (tp TemplatePatch) Apply(t Template) Template {
	if tp.Name != nil {
		t.Name = *tp.Name
	}
	if tp.Content != nil {
		t.Content = *tp.Content
	}
	if tp.Description != nil {
		t.Description = *tp.Description
	}
	if tp.IsArchived != nil {
		t.IsArchived = *tp.IsArchived
	}
	return t
}

// NamedTemplate is one side of a composition request.
type NamedTemplate struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Metric is a recorded execution of a saved prompt.
type Metric struct {
	ID           string    `json:"id" yaml:"id"`
	PromptID     string    `json:"prompt_id" yaml:"prompt_id"`
	Model        string    `json:"model" yaml:"model"`
	LatencyMs    int64     `json:"latency_ms" yaml:"latency_ms"`
	InputTokens  int       `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int       `json:"output_tokens" yaml:"output_tokens"`
	Cost         float64   `json:"cost" yaml:"cost"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// User is the identity behind the bearer credential.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SandboxRequest runs several variants against one shared input in a single call.
type SandboxRequest struct {
	Model       string
	Variants    []core.Variant
	SharedInput string
}

type sandboxVariant struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type sandboxRequest struct {
	Model       string           `json:"model"`
	Variants    []sandboxVariant `json:"variants"`
	SharedInput string           `json:"shared_input"`
}

type sandboxResult struct {
	VariantID    string   `json:"variant_id"`
	Output       *string  `json:"output"`
	LatencyMs    int64    `json:"latency_ms"`
	InputTokens  int      `json:"input_tokens"`
	OutputTokens int      `json:"output_tokens"`
	Cost         *float64 `json:"cost,omitempty"`
	Error        *string  `json:"error,omitempty"`
}

type sandboxResponse struct {
	Results []sandboxResult `json:"results"`
}

type composeRequest struct {
	First  NamedTemplate `json:"first"`
	Second NamedTemplate `json:"second"`
}

type composeResponse struct {
	Content string `json:"content"`
}
