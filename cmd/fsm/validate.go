package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aleung/fsm/internal/validator"
)

var errValidationFailed = errors.New("validation failed")

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check definition files for consistency",
		Long: `Loads each definition file, resolves its action names and reports every
state that is referenced but never defined.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				_, def, err := loadDefinition(a.cfg, a.logger, path)
				if err != nil {
					failed++
					fmt.Fprintf(out, "✗ %v\n", err)
					continue
				}
				fmt.Fprintf(out, "✓ %s: %d states, %d referenced\n", path, len(def.States), len(validator.References(def)))
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d files", errValidationFailed, failed, len(args))
			}
			return nil
		},
	}
}
