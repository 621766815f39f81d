package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dhabedank/promptbench/internal/api"
	"github.com/dhabedank/promptbench/internal/core"
	"github.com/dhabedank/promptbench/internal/tui"
)

// batchFile is the YAML shape accepted by --file.
type batchFile struct {
	Model     string            `yaml:"model"`
	Input     string            `yaml:"input"`
	Variables map[string]string `yaml:"variables"`
	Variants  []core.Variant    `yaml:"variants"`
}

// batch is a fully resolved comparison ready to dispatch.
type batch struct {
	mode     core.Mode
	variants []core.Variant
	dc       core.DispatchContext
}

func loadBatchFile(path string) (*batchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read batch file")
	}
	var bf batchFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, errors.Wrapf(err, "failed to parse batch file %s", path)
	}
	return &bf, nil
}

// readText returns the contents of path, or literal when path is empty.
func readText(literal, path string) (string, error) {
	if path == "" {
		return literal, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	return string(data), nil
}

// check enforces the dispatch preconditions: ids, size, and bound variables.
func (b *batch) check(maxVariants int) error {
	if len(b.variants) == 0 {
		return core.ErrEmptyBatch
	}
	if b.mode != core.ModeBench && len(b.variants) > maxVariants {
		return errors.WithHintf(
			errors.Newf("%d variants exceed the limit of %d", len(b.variants), maxVariants),
			"raise max_variants in %s", ConfigFileName)
	}

	variants, err := core.EnsureIDs(b.variants)
	if err != nil {
		return err
	}
	b.variants = variants

	for _, v := range b.variants {
		if err := core.CheckBindings(v.Text, b.dc.Variables); err != nil {
			return errors.Wrapf(err, "variant %s", v.ID)
		}
	}
	return nil
}

// runBatch dispatches b locally, shows progress, and emits the report.
func runBatch(cmd *cobra.Command, rt *runtime, b *batch) error {
	if err := b.check(rt.config.MaxVariants); err != nil {
		return err
	}
	rt.logger.Debugw("dispatching batch",
		"mode", string(b.mode),
		"variants", len(b.variants),
		"variables", core.SortedNames(b.dc.Variables),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	report := &core.Report{
		Mode:        b.mode,
		Model:       b.dc.Model,
		SharedInput: b.dc.SharedInput,
		Variants:    b.variants,
		StartedAt:   time.Now(),
	}

	branches := rt.dispatcher().Dispatch(ctx, b.variants, b.dc)
	if rt.interactive() {
		progress := tui.NewBatchProgress(branches, b.dc.Model, cancel)
		if _, err := tea.NewProgram(progress, tea.WithOutput(os.Stderr)).Run(); err != nil {
			rt.logger.Warnw("progress view failed", "error", err)
		}
	}

	// Cancelled branches still settle, so waiting must outlive ctx.
	results, err := core.Aggregate(context.WithoutCancel(ctx), branches)
	report.Results = results
	report.Duration = time.Since(report.StartedAt)

	if err != nil && !errors.Is(err, core.ErrBatchCancelled) {
		return err
	}
	if emitErr := rt.emit(cmd, report); emitErr != nil {
		return emitErr
	}
	return err
}

// runSandbox sends b to the remote sandbox endpoint in one request.
func runSandbox(cmd *cobra.Command, rt *runtime, b *batch) error {
	if err := b.check(rt.config.MaxVariants); err != nil {
		return err
	}

	// The sandbox endpoint takes final texts.
	variants := make([]core.Variant, len(b.variants))
	for i, v := range b.variants {
		v.Text = core.Substitute(v.Text, b.dc.Variables)
		variants[i] = v
	}

	report := &core.Report{
		Mode:        b.mode,
		Model:       b.dc.Model,
		SharedInput: b.dc.SharedInput,
		Variants:    b.variants,
		StartedAt:   time.Now(),
	}
	if rt.interactive() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s sending %d variants to the sandbox...\n",
			tui.SpinnerStyle.Render("•"), len(variants))
	}

	results, err := rt.client.Sandbox(cmd.Context(), api.SandboxRequest{
		Model:       b.dc.Model,
		Variants:    variants,
		SharedInput: b.dc.SharedInput,
	})
	if err != nil {
		return err
	}
	report.Results = results
	report.Duration = time.Since(report.StartedAt)
	return rt.emit(cmd, report)
}
