package version

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dhabedank/promptbench/internal/tui"
)

// ConfigFileName is the user-level config file checked on first run.
const ConfigFileName = ".promptbench.yaml"

// IsFirstRun returns true if neither a config file nor the first-run marker exists.
func IsFirstRun() bool {
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	return isFirstRunIn(home)
}

func isFirstRunIn(home string) bool {
	if _, err := os.Stat(filepath.Join(home, ConfigFileName)); err == nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(home, ".promptbench", ".initialized")); err == nil {
		return false
	}
	return true
}

// MarkInitialized creates the first-run marker.
func MarkInitialized() {
	dir := stateDir()
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(dir, ".initialized"), []byte{}, 0644)
}

// PrintFirstRunNotice prints a welcome message for first-time users.
func PrintFirstRunNotice(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s Welcome to promptbench!\n", tui.TitleStyle.Render("*"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Quick start:")
	fmt.Fprintf(w, "    1. Run %s to pick a backend and default model\n", tui.ModelStyle.Render("promptbench setup"))
	fmt.Fprintf(w, "    2. Try a prompt: %s\n", tui.ModelStyle.Render(`promptbench run "Summarize: {text}" --var text=...`))
	fmt.Fprintf(w, "    3. Compare variants: %s\n", tui.ModelStyle.Render(`promptbench compare -v "Be brief." -v "Be thorough." --input "..."`))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", tui.HelpStyle.Render("Run 'promptbench --help' for all options"))
	fmt.Fprintln(w)

	MarkInitialized()
}
