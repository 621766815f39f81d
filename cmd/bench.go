package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dhabedank/promptbench/internal/core"
)

var (
	benchVariants []string
	benchFile     string
	benchVars     []string
	benchInput    string
	benchModels   []string
)

// BenchCmd represents the bench command.
var BenchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run variants across several models",
	Long: `Run every variant against every model and report tokens, latency
and cost per pair. Result ids take the form <variant>@<model>.

Models come from --models or bench_models in the config file.

Example:
  promptbench bench -v "Summarize: {text}" --var text="..." \
    --models claude-haiku-4-5-20251001,gpt-4o-mini,gemini-2.5-flash`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	BenchCmd.Flags().StringArrayVarP(&benchVariants, "variant", "v", nil, "Variant prompt text (repeatable)")
	BenchCmd.Flags().StringVarP(&benchFile, "file", "f", "", "YAML batch file")
	BenchCmd.Flags().StringArrayVar(&benchVars, "var", nil, "Variable binding key=value (repeatable)")
	BenchCmd.Flags().StringVarP(&benchInput, "input", "i", "", "Shared user input")
	BenchCmd.Flags().StringSliceVar(&benchModels, "models", nil, "Models to compare (comma separated)")
	BenchCmd.Flags().Int("concurrency", 0, "Maximum concurrent calls (0 = unbounded)")
	BenchCmd.Flags().Duration("timeout", 0, "Per-call deadline (0 = transport default)")
}

func runBench(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	models := rt.config.BenchModels
	if cmd.Flags().Changed("models") {
		models = benchModels
	}
	if len(models) == 0 {
		return errors.WithHint(errors.New("no models to benchmark"), "pass --models or set bench_models")
	}

	b, err := buildBatch(cmd, core.ModeBench, "", benchVariants, benchFile, benchVars, benchInput)
	if err != nil {
		return err
	}
	if len(b.variants) > rt.config.MaxVariants {
		return errors.Newf("%d variants exceed the limit of %d", len(b.variants), rt.config.MaxVariants)
	}

	// Ids must exist before expansion so pairs stay traceable.
	variants, err := core.EnsureIDs(b.variants)
	if err != nil {
		return err
	}
	b.variants = core.CrossModels(variants, models)
	return runBatch(cmd, rt, b)
}
