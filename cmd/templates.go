package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhabedank/promptbench/internal/api"
	"github.com/dhabedank/promptbench/internal/tui"
)

var (
	templatesArchived bool
	composeSaveAs     string
)

// TemplatesCmd groups the template commands.
var TemplatesCmd = &cobra.Command{
	Use:     "templates",
	Aliases: []string{"template"},
	Short:   "Manage prompt templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplatesList,
}

var templatesArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive a template",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setTemplateArchived(cmd, args[0], true) },
}

var templatesUnarchiveCmd = &cobra.Command{
	Use:   "unarchive <id>",
	Short: "Restore an archived template",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setTemplateArchived(cmd, args[0], false) },
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesDelete,
}

var templatesComposeCmd = &cobra.Command{
	Use:   "compose <first-id> <second-id>",
	Short: "Merge two templates into one",
	Long: `Ask the prompt API to merge two templates into a single text.

With --save the result is stored as a new template.`,
	Args: cobra.ExactArgs(2),
	RunE: runTemplatesCompose,
}

func init() {
	templatesListCmd.Flags().BoolVarP(&templatesArchived, "archived", "a", false, "Include archived templates")
	templatesComposeCmd.Flags().StringVar(&composeSaveAs, "save", "", "Save the result as a template with this name")

	TemplatesCmd.AddCommand(templatesListCmd, templatesArchiveCmd, templatesUnarchiveCmd,
		templatesDeleteCmd, templatesComposeCmd)
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(rt *runtime, store *api.Store) error {
		templates, err := store.Templates(cmd.Context(), templatesArchived)
		if err != nil {
			return err
		}
		printTemplates(cmd, templates)
		return nil
	})
}

func printTemplates(cmd *cobra.Command, templates []api.Template) {
	out := cmd.OutOrStdout()
	if len(templates) == 0 {
		fmt.Fprintln(out, tui.HelpStyle.Render("No templates"))
		return
	}
	for _, t := range templates {
		line := fmt.Sprintf("%s  %s", tui.VariantStyle.Render(t.ID), t.Name)
		if t.Description != "" {
			line += "  " + tui.HelpStyle.Render(t.Description)
		}
		if t.IsArchived {
			line += "  " + tui.HelpStyle.Render("(archived)")
		}
		fmt.Fprintln(out, line)
	}
}

func changeTemplates(cmd *cobra.Command, done string, change func(store *api.Store) error) error {
	return withStore(cmd, func(rt *runtime, store *api.Store) error {
		if _, err := store.Templates(cmd.Context(), false); err != nil {
			return err
		}
		if err := change(store); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", tui.SuccessStyle.Render("✓"), done)

		templates, err := store.Templates(cmd.Context(), false)
		if err != nil {
			return err
		}
		printTemplates(cmd, templates)
		return nil
	})
}

func setTemplateArchived(cmd *cobra.Command, id string, archived bool) error {
	done := "Archived " + id
	if !archived {
		done = "Restored " + id
	}
	return changeTemplates(cmd, done, func(store *api.Store) error {
		return store.ArchiveTemplate(cmd.Context(), id, archived)
	})
}

func runTemplatesDelete(cmd *cobra.Command, args []string) error {
	return changeTemplates(cmd, "Deleted "+args[0], func(store *api.Store) error {
		return store.DeleteTemplate(cmd.Context(), args[0])
	})
}

func runTemplatesCompose(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(rt *runtime, store *api.Store) error {
		ctx := cmd.Context()
		first, err := rt.client.GetTemplate(ctx, args[0])
		if err != nil {
			return err
		}
		second, err := rt.client.GetTemplate(ctx, args[1])
		if err != nil {
			return err
		}

		content, err := rt.client.ComposeTemplates(ctx,
			api.NamedTemplate{Name: first.Name, Content: first.Content},
			api.NamedTemplate{Name: second.Name, Content: second.Content},
		)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, tui.BoxStyle.Render(content))
		if composeSaveAs == "" {
			return nil
		}

		if _, err := store.Templates(ctx, false); err != nil {
			return err
		}
		saved, err := store.CreateTemplate(ctx, api.TemplateInput{
			Name:        composeSaveAs,
			Content:     content,
			Description: fmt.Sprintf("Composed from %s and %s", first.Name, second.Name),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s Saved template %s\n", tui.SuccessStyle.Render("✓"), tui.VariantStyle.Render(saved.ID))
		return nil
	})
}
