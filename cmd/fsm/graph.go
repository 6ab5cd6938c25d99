package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aleung/fsm/internal/cli"
	"github.com/aleung/fsm/internal/presentation/graph"
	"github.com/aleung/fsm/internal/presentation/tui"
)

func newGraphCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "graph FILE",
		Short: "Export the machine as a Mermaid diagram",
		Long:  `Loads the definition and outputs a Mermaid diagram (graph TD) of its states and rules.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, def, err := loadDefinition(a.cfg, a.logger, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, nil))
			return nil
		},
	}
}

func newDescribeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe FILE",
		Short: "Print a readable summary of the machine",
		Long: `Renders every state with its entry/exit actions and rules as Markdown.
Output is styled on a terminal and plain otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, def, err := loadDefinition(a.cfg, a.logger, args[0])
			if err != nil {
				return err
			}

			md := graph.GenerateMarkdown(doc.Name, def)
			raw, _ := cmd.Flags().GetBool("raw")
			if raw {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}

			plain, _ := cmd.Flags().GetBool("plain")
			if !cli.IsTerminal(os.Stdout) {
				plain = true
			}
			render, err := tui.NewRenderer(plain)
			if err != nil {
				return err
			}
			out, err := render(md)
			if err != nil {
				return fmt.Errorf("render failed: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().Bool("plain", false, "Disable colors and styling")
	cmd.Flags().Bool("raw", false, "Print the Markdown source")
	return cmd
}
