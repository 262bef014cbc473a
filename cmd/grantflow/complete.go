package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark an approved document as completed",
		Long: `Mark one approved document as fully handled. Completed is the terminal
state; the record and its artifacts stay in place until cleanup.

Examples:
  grantflow complete 6b1f6a2e-8c1d-4f0e-9a37-2d1f08c21d55`,
		Args: cobra.ExactArgs(1),
		RunE: runComplete,
	}
}

func runComplete(cmd *cobra.Command, args []string) error {
	app, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	id := args[0]
	if err := app.engine.Complete(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to complete %s: %w", id, err)
	}
	fmt.Printf("completed %s\n", id)
	return nil
}
