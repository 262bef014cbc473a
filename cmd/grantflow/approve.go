package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a validated document",
		Long: `Approve one validated document. The validated artifact is copied into
the approved directory and the record advances to the approved state.

Examples:
  grantflow approve 6b1f6a2e-8c1d-4f0e-9a37-2d1f08c21d55`,
		Args: cobra.ExactArgs(1),
		RunE: runApprove,
	}
}

func runApprove(cmd *cobra.Command, args []string) error {
	app, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	id := args[0]
	if err := app.engine.Approve(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to approve %s: %w", id, err)
	}
	fmt.Printf("approved %s\n", id)
	return nil
}
