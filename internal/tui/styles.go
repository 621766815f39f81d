package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Each color has a light and a dark terminal variant.
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#7d3c98", Dark: "#bb8fce"}
	ColorVariant = lipgloss.AdaptiveColor{Light: "#1e8449", Dark: "#58d68d"}
	ColorModel   = lipgloss.AdaptiveColor{Light: "#2471a3", Dark: "#5dade2"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#717d7e", Dark: "#95a5a6"}
	ColorOK      = lipgloss.AdaptiveColor{Light: "#229954", Dark: "#2ecc71"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#b9770e", Dark: "#f39c12"}
	ColorFailed  = lipgloss.AdaptiveColor{Light: "#b03a2e", Dark: "#e74c3c"}
)

var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	SubtitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorMuted)
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	HelpStyle     = lipgloss.NewStyle().Italic(true).Foreground(ColorMuted)

	// Outcome markers for branches, mutations and notices.
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorOK)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorFailed)

	// Setup wizard step markers.
	SelectedStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	UnselectedStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	// VariantStyle renders variant ids wherever results are listed.
	VariantStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorVariant)
	ModelStyle   = lipgloss.NewStyle().Foreground(ColorModel)
	CostStyle    = lipgloss.NewStyle().Foreground(ColorVariant)
	SpinnerStyle = lipgloss.NewStyle().Foreground(ColorPrimary)
)

var (
	// BoxStyle frames saved prompt content.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(1, 2)

	// DraftBoxStyle frames generated drafts that have not been saved.
	DraftBoxStyle = BoxStyle.BorderForeground(ColorPrimary)

	// OutputBoxStyle marks one variant's full output with a left rule.
	OutputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorMuted).
			PaddingLeft(1)
)
