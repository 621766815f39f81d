package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dhabedank/promptbench/internal/api"
	"github.com/dhabedank/promptbench/internal/tui"
)

var (
	promptsArchived   bool
	promptTitle       string
	promptDescription string
	promptFile        string
	promptTags        []string
)

// PromptsCmd groups the saved-prompt commands.
var PromptsCmd = &cobra.Command{
	Use:     "prompts",
	Aliases: []string{"prompt"},
	Short:   "Manage saved prompts",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved prompts",
	Args:  cobra.NoArgs,
	RunE:  runPromptsList,
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a prompt with its variables and recent metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsShow,
}

var promptsCreateCmd = &cobra.Command{
	Use:   "create [content]",
	Short: "Save a new prompt",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPromptsCreate,
}

var promptsArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive a prompt",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setPromptArchived(cmd, args[0], true) },
}

var promptsUnarchiveCmd = &cobra.Command{
	Use:   "unarchive <id>",
	Short: "Restore an archived prompt",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setPromptArchived(cmd, args[0], false) },
}

var promptsRateCmd = &cobra.Command{
	Use:   "rate <id> <1-5>",
	Short: "Rate a prompt",
	Args:  cobra.ExactArgs(2),
	RunE:  runPromptsRate,
}

var promptsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a prompt",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsDelete,
}

func init() {
	promptsListCmd.Flags().BoolVarP(&promptsArchived, "archived", "a", false, "Include archived prompts")
	promptsCreateCmd.Flags().StringVarP(&promptTitle, "title", "t", "", "Prompt title (required)")
	promptsCreateCmd.Flags().StringVarP(&promptDescription, "description", "d", "", "Prompt description")
	promptsCreateCmd.Flags().StringVarP(&promptFile, "file", "f", "", "Read the content from a file")
	promptsCreateCmd.Flags().StringSliceVar(&promptTags, "tags", nil, "Tags (comma separated)")
	_ = promptsCreateCmd.MarkFlagRequired("title")

	PromptsCmd.AddCommand(promptsListCmd, promptsShowCmd, promptsCreateCmd,
		promptsArchiveCmd, promptsUnarchiveCmd, promptsRateCmd, promptsDeleteCmd)
}

// withStore runs fn with a resolved store that is closed afterwards.
func withStore(cmd *cobra.Command, fn func(rt *runtime, store *api.Store) error) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	return withStoreFrom(cmd, rt, func(store *api.Store) error {
		return fn(rt, store)
	})
}

func runPromptsList(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(rt *runtime, store *api.Store) error {
		prompts, err := store.Prompts(cmd.Context(), promptsArchived)
		if err != nil {
			return err
		}
		printPrompts(cmd, prompts)
		return nil
	})
}

func printPrompts(cmd *cobra.Command, prompts []api.Prompt) {
	out := cmd.OutOrStdout()
	if len(prompts) == 0 {
		fmt.Fprintln(out, tui.HelpStyle.Render("No prompts"))
		return
	}
	for _, p := range prompts {
		line := fmt.Sprintf("%s  %s", tui.VariantStyle.Render(p.ID), p.Title)
		if p.Rating != nil {
			line += "  " + tui.CostStyle.Render(strings.Repeat("★", *p.Rating))
		}
		if p.IsArchived {
			line += "  " + tui.HelpStyle.Render("(archived)")
		}
		fmt.Fprintln(out, line)
	}
}

func runPromptsShow(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(rt *runtime, store *api.Store) error {
		p, err := rt.client.GetPrompt(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		metrics, err := store.Metrics(cmd.Context(), p.ID)
		if err != nil {
			rt.logger.Warnw("failed to load metrics", "prompt_id", p.ID, "error", err)
		}
		printPrompt(cmd, p, metrics)
		return nil
	})
}

func printPrompt(cmd *cobra.Command, p *api.Prompt, metrics []api.Metric) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.TitleStyle.Render(p.Title))
	if p.Description != "" {
		fmt.Fprintln(out, tui.SubtitleStyle.Render(p.Description))
	}
	fmt.Fprintln(out, tui.BoxStyle.Render(p.Content))
	if vars := p.Variables(); len(vars) > 0 {
		fmt.Fprintf(out, "Variables: %s\n", tui.ModelStyle.Render(strings.Join(vars, ", ")))
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(p.Tags, ", "))
	}

	if len(metrics) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, tui.SubtitleStyle.Render("Recent runs"))
		for _, m := range metrics {
			fmt.Fprintf(out, "  %s  %s  %s  %s tokens  %s\n",
				m.CreatedAt.Format("2006-01-02 15:04"),
				tui.ModelStyle.Render(m.Model),
				tui.FormatLatency(m.LatencyMs),
				tui.FormatTokens(m.InputTokens+m.OutputTokens),
				tui.CostStyle.Render(tui.FormatCost(m.Cost)),
			)
		}
	}
}

func runPromptsCreate(cmd *cobra.Command, args []string) error {
	var literal string
	if len(args) == 1 {
		literal = args[0]
	}
	content, err := readText(literal, promptFile)
	if err != nil {
		return err
	}

	return withStore(cmd, func(rt *runtime, store *api.Store) error {
		// Loading first lets the list reflect the new prompt right away.
		if _, err := store.Prompts(cmd.Context(), false); err != nil {
			return err
		}
		p, err := store.CreatePrompt(cmd.Context(), api.PromptInput{
			Title:       promptTitle,
			Content:     content,
			Description: promptDescription,
			Tags:        promptTags,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Saved prompt %s\n", tui.SuccessStyle.Render("✓"), tui.VariantStyle.Render(p.ID))
		return nil
	})
}

// mutateAndList applies a change against the loaded list and prints the result.
func mutateAndList(cmd *cobra.Command, done string, change func(store *api.Store) error) error {
	return withStore(cmd, func(rt *runtime, store *api.Store) error {
		if _, err := store.Prompts(cmd.Context(), false); err != nil {
			return err
		}
		if err := change(store); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", tui.SuccessStyle.Render("✓"), done)

		prompts, err := store.Prompts(cmd.Context(), false)
		if err != nil {
			return err
		}
		printPrompts(cmd, prompts)
		return nil
	})
}

func setPromptArchived(cmd *cobra.Command, id string, archived bool) error {
	done := "Archived " + id
	if !archived {
		done = "Restored " + id
	}
	return mutateAndList(cmd, done, func(store *api.Store) error {
		return store.ArchivePrompt(cmd.Context(), id, archived)
	})
}

func runPromptsRate(cmd *cobra.Command, args []string) error {
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return errors.Wrap(err, "rating must be a number")
	}
	return mutateAndList(cmd, fmt.Sprintf("Rated %s %d/5", args[0], rating), func(store *api.Store) error {
		return store.RatePrompt(cmd.Context(), args[0], rating)
	})
}

func runPromptsDelete(cmd *cobra.Command, args []string) error {
	return mutateAndList(cmd, "Deleted "+args[0], func(store *api.Store) error {
		return store.DeletePrompt(cmd.Context(), args[0])
	})
}
