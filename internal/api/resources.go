package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"
)

func archivedQuery(includeArchived bool) url.Values {
	if !includeArchived {
		return nil
	}
	return url.Values{"include_archived": {"true"}}
}

func requireID(kind, id string) error {
	if id == "" {
		return errors.Newf("%s id is required", kind)
	}
	return nil
}

// ListPrompts returns the caller's prompts.
func (c *Client) ListPrompts(ctx context.Context, includeArchived bool) ([]Prompt, error) {
	prompts := []Prompt{}
	if err := c.do(ctx, http.MethodGet, "prompts", archivedQuery(includeArchived), nil, &prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// GetPrompt fetches one prompt.
func (c *Client) GetPrompt(ctx context.Context, id string) (*Prompt, error) {
	if err := requireID("prompt", id); err != nil {
		return nil, err
	}
	var p Prompt
	if err := c.do(ctx, http.MethodGet, "prompts/"+url.PathEscape(id), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePrompt stores a new prompt.
func (c *Client) CreatePrompt(ctx context.Context, in PromptInput) (*Prompt, error) {
	if in.Content == "" {
		return nil, errors.New("prompt content is required")
	}
	var p Prompt
	if err := c.do(ctx, http.MethodPost, "prompts", nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PatchPrompt changes the fields set in patch.
func (c *Client) PatchPrompt(ctx context.Context, id string, patch PromptPatch) (*Prompt, error) {
	if err := requireID("prompt", id); err != nil {
		return nil, err
	}
	var p Prompt
	if err := c.do(ctx, http.MethodPatch, "prompts/"+url.PathEscape(id), nil, patch, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePrompt removes a prompt.
func (c *Client) DeletePrompt(ctx context.Context, id string) error {
	if err := requireID("prompt", id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "prompts/"+url.PathEscape(id), nil, nil, nil)
}

// ListTemplates returns the caller's templates.
func (c *Client) ListTemplates(ctx context.Context, includeArchived bool) ([]Template, error) {
	templates := []Template{}
	if err := c.do(ctx, http.MethodGet, "templates", archivedQuery(includeArchived), nil, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// GetTemplate fetches one template.
func (c *Client) GetTemplate(ctx context.Context, id string) (*Template, error) {
	if err := requireID("template", id); err != nil {
		return nil, err
	}
	var t Template
	if err := c.do(ctx, http.MethodGet, "templates/"+url.PathEscape(id), nil, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTemplate stores a new template.
func (c *Client) CreateTemplate(ctx context.Context, in TemplateInput) (*Template, error) {
	if in.Content == "" {
		return nil, errors.New("template content is required")
	}
	var t Template
	if err := c.do(ctx, http.MethodPost, "templates", nil, in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// PatchTemplate changes the fields set in patch.
func (c *Client) PatchTemplate(ctx context.Context, id string, patch TemplatePatch) (*Template, error) {
	if err := requireID("template", id); err != nil {
		return nil, err
	}
	var t Template
	if err := c.do(ctx, http.MethodPatch, "templates/"+url.PathEscape(id), nil, patch, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTemplate removes a template.
func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	if err := requireID("template", id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "templates/"+url.PathEscape(id), nil, nil, nil)
}

// ListMetrics returns recorded executions, optionally for one prompt.
func (c *Client) ListMetrics(ctx context.Context, promptID string) ([]Metric, error) {
	var query url.Values
	if promptID != "" {
		query = url.Values{"prompt_id": {promptID}}
	}
	metrics := []Metric{}
	if err := c.do(ctx, http.MethodGet, "metrics", query, nil, &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

// CurrentUser resolves the identity behind the configured token.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "users/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
