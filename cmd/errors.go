package cmd

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/dhabedank/promptbench/internal/api"
	"github.com/dhabedank/promptbench/internal/session"
	"github.com/dhabedank/promptbench/internal/tui"
)

// FormatError renders err for the terminal with any hints attached to it.
func FormatError(err error) string {
	var b strings.Builder
	b.WriteString(tui.ErrorStyle.Render("Error: "))
	b.WriteString(err.Error())

	hints := errors.GetAllHints(err)
	var mErr *session.MutationError
	if errors.As(err, &mErr) {
		hints = append(hints, "the local view was restored to its state before the change")
	}
	if errors.Is(err, api.ErrUnauthorized) {
		hints = append(hints, "set a token with --token, PROMPTBENCH_TOKEN or the token key in "+ConfigFileName)
	}
	for _, h := range hints {
		b.WriteString("\n  ")
		b.WriteString(tui.HelpStyle.Render(h))
	}
	return b.String()
}
