package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dhabedank/promptbench/internal/core"
)

// BranchRow is the display state of one branch.
type BranchRow struct {
	Variant   core.Variant
	Model     string
	StartTime time.Time
	Done      bool
	Dropped   bool
	Result    core.ExecutionResult
}

// branchDoneMsg reports that the branch at Index settled.
type branchDoneMsg struct {
	Index  int
	Result core.ExecutionResult
	OK     bool
}

// BatchProgress is a Bubble Tea model that shows a spinner per branch until
// every branch of a batch has an outcome.
type BatchProgress struct {
	spinner   spinner.Model
	branches  []*core.Branch
	rows      []BranchRow
	remaining int
	cancel    context.CancelFunc
	cancelled bool
}

// NewBatchProgress tracks branches. cancel is called when the user quits early.
func NewBatchProgress(branches []*core.Branch, model string, cancel context.CancelFunc) *BatchProgress {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	now := time.Now()
	rows := make([]BranchRow, len(branches))
	for i, b := range branches {
		m := b.Variant.Model
		if m == "" {
			m = model
		}
		rows[i] = BranchRow{Variant: b.Variant, Model: m, StartTime: now}
	}

	return &BatchProgress{
		spinner:   s,
		branches:  branches,
		rows:      rows,
		remaining: len(branches),
		cancel:    cancel,
	}
}

// Rows returns the current display state.
func (p *BatchProgress) Rows() []BranchRow {
	return p.rows
}

// Cancelled reports whether the user quit before the batch finished.
func (p *BatchProgress) Cancelled() bool {
	return p.cancelled
}

// waitFor blocks on one branch off the UI goroutine.
func waitFor(i int, b *core.Branch) tea.Cmd {
	return func() tea.Msg {
		result, ok, _ := b.Wait(context.Background())
		return branchDoneMsg{Index: i, Result: result, OK: ok}
	}
}

// Init implements tea.Model.
func (p *BatchProgress) Init() tea.Cmd {
	cmds := []tea.Cmd{p.spinner.Tick}
	for i, b := range p.branches {
		cmds = append(cmds, waitFor(i, b))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (p *BatchProgress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// Outstanding branches settle quickly once cancelled.
			if !p.cancelled && p.cancel != nil {
				p.cancel()
			}
			p.cancelled = true
		}

	case branchDoneMsg:
		if msg.Index < 0 || msg.Index >= len(p.rows) || p.rows[msg.Index].Done {
			return p, nil
		}
		row := &p.rows[msg.Index]
		row.Done = true
		row.Dropped = !msg.OK
		row.Result = msg.Result
		p.remaining--
		if p.remaining == 0 {
			return p, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	}

	return p, nil
}

// View implements tea.Model.
func (p *BatchProgress) View() string {
	var b strings.Builder
	for _, row := range p.rows {
		b.WriteString(p.renderRow(row))
		b.WriteString("\n")
	}
	if p.cancelled && p.remaining > 0 {
		b.WriteString(WarningStyle.Render("cancelling..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (p *BatchProgress) renderRow(row BranchRow) string {
	if !row.Done {
		elapsed := time.Since(row.StartTime).Truncate(100 * time.Millisecond)
		return fmt.Sprintf("%s %s  %s  %s",
			p.spinner.View(),
			VariantStyle.Render(row.Variant.ID),
			ModelStyle.Render(row.Model),
			HelpStyle.Render(elapsed.String()),
		)
	}
	if row.Dropped {
		return fmt.Sprintf("%s %s  %s",
			WarningStyle.Render("-"),
			VariantStyle.Render(row.Variant.ID),
			HelpStyle.Render("cancelled"),
		)
	}
	return RenderBranchComplete(row.Result)
}

// RenderBranchComplete returns a one-line outcome for a branch (non-interactive mode).
func RenderBranchComplete(r core.ExecutionResult) string {
	if r.Failed() {
		return fmt.Sprintf("%s %s  %s  %s",
			ErrorStyle.Render("✗"),
			VariantStyle.Render(r.VariantID),
			ModelStyle.Render(r.Model),
			ErrorStyle.Render(r.Error),
		)
	}
	return fmt.Sprintf("%s %s  %s  %s  %s tokens  %s",
		SuccessStyle.Render("✓"),
		VariantStyle.Render(r.VariantID),
		ModelStyle.Render(r.Model),
		HelpStyle.Render(FormatLatency(r.LatencyMs)),
		FormatTokens(r.InputTokens+r.OutputTokens),
		CostStyle.Render(FormatOptionalCost(r.Cost)),
	)
}

// RenderSummary returns a summary string for a finished batch.
func RenderSummary(report *core.Report) string {
	totals := report.Totals()
	status := SuccessStyle.Render(fmt.Sprintf("%d/%d succeeded", len(report.Results)-totals.Failures, len(report.Results)))
	if totals.Failures > 0 {
		status = WarningStyle.Render(fmt.Sprintf("%d/%d succeeded", len(report.Results)-totals.Failures, len(report.Results)))
	}

	return fmt.Sprintf("\n%s\n  %s  Tokens: %s in / %s out  Cost: %s  Time: %s\n",
		TitleStyle.Render("Batch Complete"),
		status,
		FormatTokens(totals.InputTokens),
		FormatTokens(totals.OutputTokens),
		CostStyle.Render(FormatCost(totals.Cost)),
		report.Duration.Truncate(time.Millisecond).String(),
	)
}
