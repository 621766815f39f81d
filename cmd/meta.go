package cmd

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dhabedank/promptbench/internal/api"
	"github.com/dhabedank/promptbench/internal/core"
	"github.com/dhabedank/promptbench/internal/tui"
)

var (
	metaFile    string
	metaModel   string
	metaSave    bool
	metaCompare bool
	metaInput   string
)

var metaKinds = []core.MetaKind{
	core.KindTitle,
	core.KindDescription,
	core.KindVariation,
	core.KindVariations,
	core.KindTemplate,
}

// MetaCmd represents the meta command.
var MetaCmd = &cobra.Command{
	Use:   "meta <title|description|variation|variations|template> [text]",
	Short: "Ask a model to write about a prompt",
	Long: `Run a helper prompt over a source text:

  title        a short title for the prompt
  description  a one or two sentence summary
  variation    one alternative phrasing
  variations   several alternative phrasings
  template     a reusable template drafted from a request

A reply that does not have the expected shape is reported as an error and
not retried.

Example:
  promptbench meta title "You are a SQL tutor. Explain {query} step by step."
  promptbench meta variations --file prompt.txt --compare --input "SELECT 1"
  promptbench meta template "a prompt that reviews Go code for races" --save`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runMeta,
}

func init() {
	MetaCmd.Flags().StringVarP(&metaFile, "file", "f", "", "Read the source text from a file")
	MetaCmd.Flags().StringVarP(&metaModel, "model", "m", "", "Model for the helper call")
	MetaCmd.Flags().BoolVar(&metaSave, "save", false, "Save a drafted template (template only)")
	MetaCmd.Flags().BoolVar(&metaCompare, "compare", false, "Compare the source with its variations (variations only)")
	MetaCmd.Flags().StringVarP(&metaInput, "input", "i", "", "Shared input for --compare")
}

func parseMetaKind(s string) (core.MetaKind, error) {
	for _, k := range metaKinds {
		if string(k) == s {
			return k, nil
		}
	}
	names := make([]string, len(metaKinds))
	for i, k := range metaKinds {
		names[i] = string(k)
	}
	return "", errors.WithHintf(errors.Newf("unknown helper %q", s), "use one of %s", strings.Join(names, ", "))
}

func runMeta(cmd *cobra.Command, args []string) error {
	kind, err := parseMetaKind(args[0])
	if err != nil {
		return err
	}

	var literal string
	if len(args) == 2 {
		literal = args[1]
	}
	source, err := readText(literal, metaFile)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	helper := core.NewHelper(rt.executor(), rt.config.Model)
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch kind {
	case core.KindVariations:
		variations, err := helper.Variations(ctx, source)
		if err != nil {
			return err
		}
		if !metaCompare {
			for i, v := range variations {
				fmt.Fprintf(out, "%s %s\n", tui.VariantStyle.Render(fmt.Sprintf("%d.", i+1)), v)
			}
			return nil
		}
		texts := append([]string{source}, variations...)
		if len(texts) > rt.config.MaxVariants {
			texts = texts[:rt.config.MaxVariants]
		}
		return runBatch(cmd, rt, &batch{
			mode:     core.ModeCompare,
			variants: core.IndexedVariants(texts),
			dc:       core.DispatchContext{Model: rt.config.Model, SharedInput: metaInput},
		})

	case core.KindTemplate:
		draft, err := helper.Template(ctx, source)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, tui.TitleStyle.Render(draft.Name))
		if draft.Description != "" {
			fmt.Fprintln(out, tui.SubtitleStyle.Render(draft.Description))
		}
		fmt.Fprintln(out, tui.DraftBoxStyle.Render(draft.Content))
		if !metaSave {
			return nil
		}
		return withStoreFrom(cmd, rt, func(store *api.Store) error {
			saved, err := store.CreateTemplate(ctx, api.TemplateInput{
				Name:        draft.Name,
				Content:     draft.Content,
				Description: draft.Description,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s Saved template %s\n", tui.SuccessStyle.Render("✓"), tui.VariantStyle.Render(saved.ID))
			return nil
		})

	default:
		reply, err := helper.Run(ctx, kind, source)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply.Text)
		return nil
	}
}

// withStoreFrom is withStore for a command that already built its runtime.
func withStoreFrom(cmd *cobra.Command, rt *runtime, fn func(store *api.Store) error) error {
	store, err := rt.store(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
