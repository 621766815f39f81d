package core

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxBatchSize is the documented ceiling for a comparison batch.
// The dispatcher itself does not enforce it; commands do.
const MaxBatchSize = 4

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Concurrency caps outstanding calls. Zero means every branch starts at once.
	Concurrency int

	// Timeout is a per-branch deadline. Zero leaves timing to the transport.
	Timeout time.Duration

	// Logger for branch diagnostics (nil = nop).
	Logger *zap.SugaredLogger
}

// DispatchContext is the input shared by every branch of a batch.
type DispatchContext struct {
	Model       string            // Default model for variants without one
	SharedInput string            // User input sent with every variant
	Variables   map[string]string // Substituted into every variant's text
}

// Dispatcher fans a batch out to an Executor, one call per variant.
type Dispatcher struct {
	exec   Executor
	config DispatcherConfig
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewDispatcher creates a dispatcher for exec.
func NewDispatcher(exec Executor, config DispatcherConfig) *Dispatcher {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dispatcher{
		exec:   exec,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Branch is the independent execution of one variant.
type Branch struct {
	Variant Variant
	Index   int

	ctx       context.Context
	done      chan struct{}
	result    ExecutionResult
	cancelled bool
}

// Done is closed once the branch has an outcome.
func (b *Branch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the branch completes or ctx ends.
// The second return is false if the branch was cancelled before it completed.
func (b *Branch) Wait(ctx context.Context) (ExecutionResult, bool, error) {
	select {
	case <-b.done:
		return b.result, !b.cancelled, nil
	case <-ctx.Done():
		return ExecutionResult{}, false, ctx.Err()
	}
}

// Dispatch starts one branch per variant and returns immediately.
// Branches never cancel one another; a failure only fills that branch's Error.
// Cancelling ctx marks still-running branches as cancelled.
func (d *Dispatcher) Dispatch(ctx context.Context, variants []Variant, dc DispatchContext) []*Branch {
	branches := make([]*Branch, len(variants))
	for i, v := range variants {
		branches[i] = &Branch{
			Variant: v,
			Index:   i,
			ctx:     ctx,
			done:    make(chan struct{}),
		}
	}

	// errgroup is used for its concurrency limit only: branch functions
	// always return nil so no branch can stop a sibling.
	var g errgroup.Group
	if d.config.Concurrency > 0 {
		g.SetLimit(d.config.Concurrency)
	}

	go func() {
		for _, b := range branches {
			g.Go(func() error {
				d.run(b, dc)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return branches
}

// Run dispatches variants and aggregates the outcome in submission order.
func (d *Dispatcher) Run(ctx context.Context, variants []Variant, dc DispatchContext) ([]ExecutionResult, error) {
	if len(variants) == 0 {
		return nil, ErrEmptyBatch
	}
	return Aggregate(ctx, d.Dispatch(ctx, variants, dc))
}

func (d *Dispatcher) run(b *Branch, dc DispatchContext) {
	defer close(b.done)

	ctx := b.ctx
	if err := ctx.Err(); err != nil {
		b.cancelled = true
		b.result = failure(b.Variant, modelFor(b.Variant, dc), 0, err)
		return
	}
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	model := modelFor(b.Variant, dc)
	req := ExecuteRequest{
		PromptText: Substitute(b.Variant.Text, dc.Variables),
		Model:      model,
		Input:      dc.SharedInput,
		Variables:  dc.Variables,
	}

	start := d.now()
	resp, err := d.call(ctx, req)
	latency := d.now().Sub(start).Milliseconds()

	// A result that arrives after the caller gave up is not reported.
	if b.ctx.Err() != nil {
		b.cancelled = true
	}

	if err != nil {
		d.logger.Warnw("branch failed",
			"variant_id", b.Variant.ID,
			"model", model,
			"latency_ms", latency,
			"error", err,
		)
		b.result = failure(b.Variant, model, latency, err)
		return
	}

	output := resp.OutputText
	if resp.Model != "" {
		model = resp.Model
	}
	b.result = ExecutionResult{
		VariantID:    b.Variant.ID,
		Model:        model,
		Output:       &output,
		LatencyMs:    latency,
		InputTokens:  resp.InputTokenCount,
		OutputTokens: resp.OutputTokenCount,
		Cost:         resp.Cost,
	}
	d.logger.Debugw("branch complete",
		"variant_id", b.Variant.ID,
		"model", model,
		"latency_ms", latency,
		"input_tokens", resp.InputTokenCount,
		"output_tokens", resp.OutputTokenCount,
	)
}

// call invokes the executor, turning panics and nil responses into branch errors.
func (d *Dispatcher) call(ctx context.Context, req ExecuteRequest) (resp *ExecuteResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, errors.Newf("executor panic: %v", r)
		}
	}()
	resp, err = d.exec.Execute(ctx, req)
	if err == nil && resp == nil {
		err = errors.New("executor returned no response")
	}
	return resp, err
}

// failedMessage stands in for an error with no text so a failed branch
// always carries one.
const failedMessage = "branch failed"

func failure(v Variant, model string, latency int64, err error) ExecutionResult {
	msg := err.Error()
	if strings.TrimSpace(msg) == "" {
		msg = failedMessage
	}
	return ExecutionResult{
		VariantID: v.ID,
		Model:     model,
		LatencyMs: latency,
		Error:     msg,
	}
}

func modelFor(v Variant, dc DispatchContext) string {
	if v.Model != "" {
		return v.Model
	}
	return dc.Model
}

// CrossModels expands variants into one variant per (variant, model) pair.
// Expanded ids take the form "<variant id>@<model>"; order is variant-major.
func CrossModels(variants []Variant, models []string) []Variant {
	if len(models) == 0 {
		return variants
	}
	out := make([]Variant, 0, len(variants)*len(models))
	for _, v := range variants {
		for _, m := range models {
			out = append(out, Variant{
				ID:    v.ID + "@" + m,
				Text:  v.Text,
				Model: m,
			})
		}
	}
	return out
}

// EnsureIDs assigns a fresh id to every variant without one.
// Ids must be unique within a batch; duplicates are rejected.
func EnsureIDs(variants []Variant) ([]Variant, error) {
	out := make([]Variant, len(variants))
	seen := make(map[string]bool, len(variants))
	for i, v := range variants {
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		if seen[v.ID] {
			return nil, errors.Newf("duplicate variant id %q", v.ID)
		}
		seen[v.ID] = true
		out[i] = v
	}
	return out, nil
}

// IndexedVariants builds variants with ids "v0", "v1", ... from texts.
func IndexedVariants(texts []string) []Variant {
	out := make([]Variant, len(texts))
	for i, t := range texts {
		out[i] = Variant{ID: variantID(i), Text: t}
	}
	return out
}

func variantID(i int) string {
	return "v" + strconv.Itoa(i)
}
