package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aleung/fsm/internal/config"
	"github.com/aleung/fsm/internal/logging"
)

// app carries the state resolved before any subcommand runs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "fsm",
		Short: "fsm runs declarative finite state machines",
		Long: `fsm loads state machine definitions from YAML or JSON files and lets you
validate, visualize, drive and host them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envFiles, _ := cmd.Flags().GetStringSlice("env-file")
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("actions") {
				cfg.Actions, _ = cmd.Flags().GetString("actions")
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Concurrency, _ = cmd.Flags().GetString("concurrency")
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			level, _ := cfg.Level()
			a.cfg = cfg
			a.logger = logging.NewWithWriter(cmd.ErrOrStderr(), level)
			slog.SetDefault(a.logger)
			return nil
		},
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "Env files to load before reading FSM_* variables (default ./.env when present)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error (overrides FSM_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("actions", "", "YAML or JSON file declaring process actions (overrides FSM_ACTIONS_FILE)")
	rootCmd.PersistentFlags().String("concurrency", "serialize", "Overlapping call policy: serialize or fail-fast (overrides FSM_CONCURRENCY)")

	rootCmd.AddCommand(
		newValidateCmd(a),
		newGraphCmd(a),
		newDescribeCmd(a),
		newRunCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}
