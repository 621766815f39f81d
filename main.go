package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dhabedank/promptbench/cmd"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "promptbench",
		Short: "Compose, run and compare prompts across models",
		Long: `promptbench runs prompt variants against one input side by side,
benchmarks them across models, and manages saved prompts and templates
on the prompt API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(c *cobra.Command, args []string) {
			if c.Name() != "setup" && c.Name() != "version" {
				cmd.Welcome(c)
			}
		},
	}

	cmd.BindGlobalFlags(rootCmd)
	rootCmd.AddCommand(
		cmd.RunCmd,
		cmd.CompareCmd,
		cmd.BenchCmd,
		cmd.PromptsCmd,
		cmd.TemplatesCmd,
		cmd.MetaCmd,
		cmd.SetupCmd,
		cmd.VersionCmd,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cmd.FormatError(err))
		stop()
		os.Exit(1)
	}
}
