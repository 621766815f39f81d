package core

import (
	"context"
	"time"
)

// Variant is one candidate prompt in a comparison batch.
// ID is caller-assigned and stable for the life of the batch.
type Variant struct {
	ID    string `json:"id" yaml:"id"`
	Text  string `json:"text" yaml:"text"`
	Model string `json:"model,omitempty" yaml:"model,omitempty"` // Optional per-variant model (benchmarks)
}

// ExecutionResult is the outcome of one branch.
// Exactly one of Output and Error is populated.
type ExecutionResult struct {
	VariantID    string   `json:"variant_id" yaml:"variant_id"`
	Model        string   `json:"model,omitempty" yaml:"model,omitempty"`
	Output       *string  `json:"output" yaml:"output"`
	LatencyMs    int64    `json:"latency_ms" yaml:"latency_ms"`
	InputTokens  int      `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int      `json:"output_tokens" yaml:"output_tokens"`
	Cost         *float64 `json:"cost,omitempty" yaml:"cost,omitempty"`
	Error        string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the branch ended in an error.
func (r ExecutionResult) Failed() bool {
	return r.Error != ""
}

// OutputText returns the output or an empty string for failed branches.
func (r ExecutionResult) OutputText() string {
	if r.Output == nil {
		return ""
	}
	return *r.Output
}

// ExecuteRequest is a single generation call.
type ExecuteRequest struct {
	PromptText string            `json:"prompt_text"`
	Model      string            `json:"model,omitempty"`
	Input      string            `json:"input,omitempty"` // Shared user input, sent alongside the prompt
	Variables  map[string]string `json:"variables,omitempty"`
}

// ExecuteResponse is what a backend returns for one call.
// Numeric fields are optional on the wire; absent values decode as zero.
type ExecuteResponse struct {
	OutputText       string   `json:"output_text"`
	LatencyMs        *int64   `json:"latency_ms,omitempty"` // Informational only; the dispatcher measures its own
	InputTokenCount  int      `json:"input_token_count"`
	OutputTokenCount int      `json:"output_token_count"`
	Cost             *float64 `json:"cost,omitempty"`
	Model            string   `json:"model,omitempty"`
}

// Executor performs one generation call against some backend.
// Implemented by the remote API client and the direct LLM router.
type Executor interface {
	Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error)

func (f ExecutorFunc) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error) {
	return f(ctx, req)
}

// Mode identifies which flow produced a report.
type Mode string

const (
	ModeRun     Mode = "run"
	ModeCompare Mode = "compare"
	ModeBench   Mode = "bench"
)

// Report is a completed batch ready for output.
type Report struct {
	Mode        Mode              `json:"mode" yaml:"mode"`
	Model       string            `json:"model,omitempty" yaml:"model,omitempty"`
	SharedInput string            `json:"shared_input,omitempty" yaml:"shared_input,omitempty"`
	Variants    []Variant         `json:"variants" yaml:"variants"`
	Results     []ExecutionResult `json:"results" yaml:"results"`
	StartedAt   time.Time         `json:"started_at" yaml:"started_at"`
	Duration    time.Duration     `json:"duration" yaml:"duration"`
}

// Totals summarizes a report.
type Totals struct {
	InputTokens  int
	OutputTokens int
	Cost         float64
	Failures     int
}

// Totals sums token counts and cost across all results.
func (r *Report) Totals() Totals {
	var t Totals
	for _, res := range r.Results {
		t.InputTokens += res.InputTokens
		t.OutputTokens += res.OutputTokens
		if res.Cost != nil {
			t.Cost += *res.Cost
		}
		if res.Failed() {
			t.Failures++
		}
	}
	return t
}
