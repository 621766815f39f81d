package cmd

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dhabedank/promptbench/internal/core"
)

var (
	compareVariants []string
	compareFile     string
	compareVars     []string
	compareInput    string
	compareModel    string
	compareRemote   bool
)

// CompareCmd represents the compare command.
var CompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run prompt variants side by side",
	Long: `Run up to max_variants prompt variants against the same input and
model, and report every outcome in the order the variants were given.

A failing variant never stops the others; its row shows the error.

Variants come from repeated --variant flags or a YAML batch file:

  model: claude-haiku-4-5-20251001
  input: "Hello world"
  variables: {tone: formal}
  variants:
    - {id: short, text: "Translate in a {tone} tone."}
    - {id: long, text: "Translate carefully, keeping a {tone} tone."}

Example:
  promptbench compare -v "Be brief." -v "Be thorough." --input "Explain DNS"
  promptbench compare --file batch.yaml --remote`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	CompareCmd.Flags().StringArrayVarP(&compareVariants, "variant", "v", nil, "Variant prompt text (repeatable)")
	CompareCmd.Flags().StringVarP(&compareFile, "file", "f", "", "YAML batch file")
	CompareCmd.Flags().StringArrayVar(&compareVars, "var", nil, "Variable binding key=value (repeatable)")
	CompareCmd.Flags().StringVarP(&compareInput, "input", "i", "", "Shared user input")
	CompareCmd.Flags().StringVarP(&compareModel, "model", "m", "", "Model for every variant")
	CompareCmd.Flags().BoolVar(&compareRemote, "remote", false, "Run the batch in one request on the prompt API's sandbox")
	CompareCmd.Flags().Int("concurrency", 0, "Maximum concurrent calls (0 = unbounded)")
	CompareCmd.Flags().Duration("timeout", 0, "Per-call deadline (0 = transport default)")
}

// buildBatch merges a batch file with flags; flags win.
func buildBatch(cmd *cobra.Command, mode core.Mode, model string, texts []string, file string, vars []string, input string) (*batch, error) {
	b := &batch{mode: mode, dc: core.DispatchContext{Model: model, Variables: map[string]string{}}}

	if file != "" {
		bf, err := loadBatchFile(file)
		if err != nil {
			return nil, err
		}
		b.variants = bf.Variants
		b.dc.SharedInput = bf.Input
		if bf.Model != "" && !cmd.Flags().Changed("model") {
			b.dc.Model = bf.Model
		}
		for k, v := range bf.Variables {
			b.dc.Variables[k] = v
		}
	}

	flagVariants := core.IndexedVariants(texts)
	if file != "" {
		// Flag variants are numbered after the file's.
		for i := range flagVariants {
			flagVariants[i].ID = fmt.Sprintf("v%d", len(b.variants)+i)
		}
	}
	b.variants = append(b.variants, flagVariants...)

	values, err := core.ParseAssignments(vars)
	if err != nil {
		return nil, err
	}
	for k, v := range values {
		b.dc.Variables[k] = v
	}
	if input != "" {
		b.dc.SharedInput = input
	}

	if len(b.variants) == 0 {
		return nil, errors.WithHint(core.ErrEmptyBatch, "pass --variant or --file")
	}
	return b, nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	b, err := buildBatch(cmd, core.ModeCompare, rt.config.Model, compareVariants, compareFile, compareVars, compareInput)
	if err != nil {
		return err
	}
	if compareRemote {
		return runSandbox(cmd, rt, b)
	}
	return runBatch(cmd, rt, b)
}
