package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dhabedank/promptbench/internal/llm"
	"github.com/dhabedank/promptbench/internal/tui"
)

var resetConfig bool

// SetupCmd represents the setup command.
var SetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration wizard",
	Long: `Configure promptbench with an interactive wizard.

This wizard asks for:
- Backend: the remote prompt API, or model providers called directly
- Default model: used when a command or variant names none

Configuration is saved to ~/.promptbench.yaml (or --config). Other keys
already in the file are kept.`,
	RunE: runSetup,
}

func init() {
	SetupCmd.Flags().BoolVar(&resetConfig, "reset", false, "Reset configuration to defaults")
}

func runSetup(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = userConfigPath()
	}
	out := cmd.OutOrStdout()

	if resetConfig {
		if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "failed to remove config")
		}
		fmt.Fprintln(out, tui.SuccessStyle.Render("✓")+" Configuration reset to defaults")
		fmt.Fprintf(out, "  Removed: %s\n", configPath)
		return nil
	}

	existing, err := readConfigFile(configPath)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newSetupModel(llm.AllModels()))
	m, err := p.Run()
	if err != nil {
		return errors.Wrap(err, "wizard failed")
	}

	final := m.(setupModel)
	if final.cancelled {
		fmt.Fprintln(out, "Setup cancelled")
		return nil
	}

	existing.Backend = final.selected[stepBackend]
	existing.Model = final.selected[stepModel]
	if err := saveConfig(configPath, existing); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, tui.SuccessStyle.Render("✓")+" Configuration saved to "+configPath)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Backend: %s\n", tui.ModelStyle.Render(existing.Backend))
	fmt.Fprintf(out, "  Model:   %s\n", tui.ModelStyle.Render(existing.Model))
	return nil
}

// readConfigFile returns the file's values without defaults or environment.
func readConfigFile(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return cfg, nil
}

// Bubble Tea model for the setup wizard

const (
	stepBackend = iota
	stepModel
	stepCount
)

type setupModel struct {
	step      int
	lists     []list.Model
	selected  []string
	cancelled bool
	width     int
	height    int
}

type choiceItem struct {
	id    string
	title string
	desc  string
}

func (c choiceItem) Title() string       { return c.title }
func (c choiceItem) Description() string { return c.desc }
func (c choiceItem) FilterValue() string { return c.title }

func backendItems() []list.Item {
	return []list.Item{
		choiceItem{id: BackendRemote, title: "Remote prompt API", desc: "Execute through the prompt service and manage saved prompts"},
		choiceItem{id: BackendDirect, title: "Direct", desc: "Call Anthropic, OpenAI or Gemini yourself (API key or CLI)"},
	}
}

func modelItems(models []llm.ModelInfo) []list.Item {
	items := make([]list.Item, len(models))
	for i, m := range models {
		items[i] = choiceItem{id: m.ID, title: m.Name, desc: m.Description}
	}
	return items
}

func newSetupModel(models []llm.ModelInfo) setupModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(tui.ColorPrimary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(tui.ColorMuted)

	sources := [][]list.Item{backendItems(), modelItems(models)}
	titles := []string{"Select Backend", "Select Default Model"}

	lists := make([]list.Model, stepCount)
	for i := range lists {
		l := list.New(sources[i], delegate, 60, 14)
		l.Title = titles[i]
		l.SetShowStatusBar(false)
		l.SetFilteringEnabled(i == stepModel)
		l.Styles.Title = tui.TitleStyle
		lists[i] = l
	}

	return setupModel{
		lists:    lists,
		selected: make([]string, stepCount),
	}
}

func (m setupModel) Init() tea.Cmd {
	return nil
}

func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for i := range m.lists {
			m.lists[i].SetWidth(msg.Width)
			m.lists[i].SetHeight(msg.Height - 4)
		}
		return m, nil

	case tea.KeyMsg:
		if m.lists[m.step].FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancelled = true
			return m, tea.Quit

		case "enter":
			if item, ok := m.lists[m.step].SelectedItem().(choiceItem); ok {
				m.selected[m.step] = item.id
			}
			m.step++
			if m.step >= stepCount {
				return m, tea.Quit
			}
			return m, nil

		case "left", "h":
			if m.step > 0 {
				m.step--
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.lists[m.step], cmd = m.lists[m.step].Update(msg)
	return m, cmd
}

func (m setupModel) View() string {
	if m.cancelled || m.step >= stepCount {
		return ""
	}

	steps := []string{"Backend", "Model"}
	progress := "\n  "
	for i, s := range steps {
		if i == m.step {
			progress += tui.SelectedStyle.Render(fmt.Sprintf("[%s]", s))
		} else if i < m.step {
			progress += tui.SuccessStyle.Render(fmt.Sprintf("✓ %s", s))
		} else {
			progress += tui.UnselectedStyle.Render(fmt.Sprintf("○ %s", s))
		}
		if i < len(steps)-1 {
			progress += " → "
		}
	}
	progress += "\n\n"

	help := tui.HelpStyle.Render("\n  ↑/↓: navigate • /: filter models • enter: select • ←: back • q: quit")

	return progress + m.lists[m.step].View() + help
}
