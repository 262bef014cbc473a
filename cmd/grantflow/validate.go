package main

import (
	"github.com/spf13/cobra"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate extracted grant records",
		Long: `Check every extracted record for internal consistency: required
fields, date ordering, and budget arithmetic. The verdict is attached to
a validated artifact and the record advances to the validated state.

Validation flags are review signals, not failures. With
processing.auto_approve set, clean records advance straight to approved.

Examples:
  grantflow validate`,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
	app, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := app.engine.ValidateExtracted(cmd.Context())
	if err != nil {
		return err
	}
	printStats("Validated", stats)
	return nil
}
