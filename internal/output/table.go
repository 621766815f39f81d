package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dhabedank/promptbench/internal/core"
	"github.com/dhabedank/promptbench/internal/tui"
)

// TableAdapter renders a side-by-side comparison for the terminal.
type TableAdapter struct {
	previewWidth int
	showOutputs  bool
	renderer     *glamour.TermRenderer
}

// NewTableAdapter creates a table adapter. Markdown rendering falls back to
// plain text when no renderer can be built.
func NewTableAdapter(config Config) *TableAdapter {
	a := &TableAdapter{
		previewWidth: config.PreviewWidth,
		showOutputs:  config.ShowOutputs,
	}
	if config.Markdown {
		wrap := config.WrapWidth
		if wrap <= 0 {
			wrap = 80
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err == nil {
			a.renderer = renderer
		}
	}
	return a
}

// renderOutput formats one full output.
func (a *TableAdapter) renderOutput(text string) string {
	if a.renderer != nil {
		if rendered, err := a.renderer.Render(text); err == nil {
			return strings.TrimRight(rendered, "\n")
		}
	}
	return tui.OutputBoxStyle.Render(text)
}

func (a *TableAdapter) Name() string {
	return "table"
}

func (a *TableAdapter) Write(w io.Writer, report *core.Report) error {
	headers := []string{"VARIANT", "MODEL", "STATUS", "LATENCY", "TOKENS IN", "TOKENS OUT", "COST"}
	if a.previewWidth > 0 {
		headers = append(headers, "OUTPUT")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(tui.ColorMuted)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tui.HeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, r := range report.Results {
		status := "ok"
		if r.Failed() {
			status = "error"
		}
		row := []string{
			r.VariantID,
			r.Model,
			status,
			tui.FormatLatency(r.LatencyMs),
			tui.FormatTokens(r.InputTokens),
			tui.FormatTokens(r.OutputTokens),
			tui.FormatOptionalCost(r.Cost),
		}
		if a.previewWidth > 0 {
			text := r.OutputText()
			if r.Failed() {
				text = r.Error
			}
			row = append(row, preview(text, a.previewWidth))
		}
		t.Row(row...)
	}

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(tui.RenderSummary(report))

	if a.showOutputs {
		for _, r := range report.Results {
			b.WriteString("\n")
			b.WriteString(tui.VariantStyle.Render(r.VariantID))
			b.WriteString("\n")
			if r.Failed() {
				b.WriteString(tui.OutputBoxStyle.Render(tui.ErrorStyle.Render(r.Error)))
			} else {
				b.WriteString(a.renderOutput(r.OutputText()))
			}
			b.WriteString("\n")
		}
	}

	_, err := fmt.Fprint(w, b.String())
	return err
}

// preview flattens text onto one line and truncates it to width runes.
func preview(text string, width int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= width {
		return flat
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
