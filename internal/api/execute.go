package api

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/dhabedank/promptbench/internal/core"
)

var _ core.Executor = (*Client)(nil)

// Execute runs one prompt through the service's generation endpoint.
func (c *Client) Execute(ctx context.Context, req core.ExecuteRequest) (*core.ExecuteResponse, error) {
	var resp core.ExecuteResponse
	if err := c.do(ctx, http.MethodPost, "execute", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = req.Model
	}
	return &resp, nil
}

// Sandbox runs every variant against the shared input in one request and
// returns one result per variant in submission order.
func (c *Client) Sandbox(ctx context.Context, req SandboxRequest) ([]core.ExecutionResult, error) {
	if len(req.Variants) == 0 {
		return nil, core.ErrEmptyBatch
	}

	payload := sandboxRequest{
		Model:       req.Model,
		Variants:    make([]sandboxVariant, len(req.Variants)),
		SharedInput: req.SharedInput,
	}
	for i, v := range req.Variants {
		payload.Variants[i] = sandboxVariant{ID: v.ID, Text: v.Text}
	}

	var resp sandboxResponse
	if err := c.do(ctx, http.MethodPost, "sandbox", nil, payload, &resp); err != nil {
		return nil, err
	}

	results := make([]core.ExecutionResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = core.ExecutionResult{
			VariantID:    r.VariantID,
			Model:        req.Model,
			Output:       r.Output,
			LatencyMs:    r.LatencyMs,
			InputTokens:  r.InputTokens,
			OutputTokens: r.OutputTokens,
			Cost:         r.Cost,
		}
		if r.Error != nil && *r.Error != "" {
			results[i].Error = *r.Error
		}
	}
	return core.Reorder(req.Variants, results), nil
}

// ComposeTemplates asks the service to merge two templates into one text.
func (c *Client) ComposeTemplates(ctx context.Context, first, second NamedTemplate) (string, error) {
	var resp composeResponse
	if err := c.do(ctx, http.MethodPost, "templates/compose", nil, composeRequest{First: first, Second: second}, &resp); err != nil {
		return "", err
	}
	if resp.Content == "" {
		return "", errors.Wrap(core.ErrMalformedResponse, "compose returned no content")
	}
	return resp.Content, nil
}
