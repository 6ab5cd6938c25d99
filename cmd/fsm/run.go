package main

import (
	"github.com/spf13/cobra"

	"github.com/aleung/fsm/internal/cli"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Drive a machine interactively",
		Long: `Loads the definition, initializes one machine and reads events from stdin.
Each line is an event name optionally followed by JSON data, e.g.

  open
  lock {"by":"alice"}

With --json each line is an event object and each reply is an NDJSON line.
Banners and prompts are skipped when stdin is not a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			headless, _ := cmd.Flags().GetBool("headless")
			jsonMode, _ := cmd.Flags().GetBool("json")
			debug, _ := cmd.Flags().GetBool("debug")

			in := cmd.InOrStdin()
			if !cli.IsTerminal(in) {
				headless = true
			}

			mode, err := a.cfg.ConcurrencyMode()
			if err != nil {
				return err
			}

			return cli.Execute(cli.RunOptions{
				Path:             args[0],
				JSON:             jsonMode,
				Headless:         headless,
				Debug:            debug,
				Concurrency:      mode,
				Actions:          a.cfg.Actions,
				MaxEventNameSize: a.cfg.MaxEventNameSize,
				Input:            in,
				Output:           cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().Bool("headless", false, "Run in headless mode (no banner, prompts or colors)")
	cmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	cmd.Flags().Bool("debug", false, "Log actions and transitions to stderr")
	return cmd
}
