package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhabedank/promptbench/internal/logging"
	"github.com/dhabedank/promptbench/internal/version"
)

// VersionCmd prints the version and looks for a newer release.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and check for updates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		current := cmd.Root().Version
		fmt.Fprintf(cmd.OutOrStdout(), "promptbench %s\n", current)

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		checker := version.NewChecker(logging.New(logging.Options{Verbose: verbose, JSON: logJSON}))
		version.PrintUpdateNotice(cmd.OutOrStdout(), checker.Check(ctx, current))
		return nil
	},
}

// Welcome prints the first-run notice once per machine.
func Welcome(cmd *cobra.Command) {
	if version.IsFirstRun() {
		version.PrintFirstRunNotice(cmd.ErrOrStderr())
	}
}
