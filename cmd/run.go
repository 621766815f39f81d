package cmd

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dhabedank/promptbench/internal/core"
)

var (
	runFile     string
	runPromptID string
	runVars     []string
	runInput    string
	runModel    string
)

// RunCmd represents the run command.
var RunCmd = &cobra.Command{
	Use:   "run [prompt-text]",
	Short: "Execute one prompt",
	Long: `Execute a single prompt against the configured backend.

The prompt comes from the argument, a file (--file) or a saved prompt
(--prompt-id). Placeholders like {topic} must be bound with --var before
the prompt is sent.

Example:
  promptbench run "Summarize in one line: {text}" --var text="Go is fun"
  promptbench run --prompt-id 42 --input "Hello" --model gpt-4o-mini`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	RunCmd.Flags().StringVarP(&runFile, "file", "f", "", "Read the prompt from a file")
	RunCmd.Flags().StringVar(&runPromptID, "prompt-id", "", "Run a saved prompt")
	RunCmd.Flags().StringArrayVar(&runVars, "var", nil, "Variable binding key=value (repeatable)")
	RunCmd.Flags().StringVarP(&runInput, "input", "i", "", "User input sent alongside the prompt")
	RunCmd.Flags().StringVarP(&runModel, "model", "m", "", "Model to use")
	RunCmd.Flags().Int("concurrency", 0, "Maximum concurrent calls (0 = unbounded)")
	RunCmd.Flags().Duration("timeout", 0, "Per-call deadline (0 = transport default)")
}

func runRun(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	var literal string
	if len(args) == 1 {
		literal = args[0]
	}
	text, err := readText(literal, runFile)
	if err != nil {
		return err
	}

	id := "prompt"
	if runPromptID != "" {
		p, err := rt.client.GetPrompt(cmd.Context(), runPromptID)
		if err != nil {
			return err
		}
		text, id = p.Content, p.ID
	}
	if strings.TrimSpace(text) == "" {
		return errors.WithHint(errors.New("no prompt given"), "pass the prompt text, --file or --prompt-id")
	}

	values, err := core.ParseAssignments(runVars)
	if err != nil {
		return err
	}

	return runBatch(cmd, rt, &batch{
		mode:     core.ModeRun,
		variants: []core.Variant{{ID: id, Text: text}},
		dc: core.DispatchContext{
			Model:       rt.config.Model,
			SharedInput: runInput,
			Variables:   values,
		},
	})
}
