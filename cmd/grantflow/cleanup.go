package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func cleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove source files of old completed documents",
		Long: `Delete the staged source files of documents that completed longer ago
than the retention window. Workflow records and artifacts are kept.

Examples:
  grantflow cleanup
  grantflow cleanup --older-than 168h`,
		RunE: runCleanup,
	}

	cmd.Flags().Duration("older-than", 720*time.Hour, "retention window for completed documents")

	return cmd
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")

	app, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	removed, err := app.manager.CleanupCompleted(cmd.Context(), olderThan)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	if len(removed) == 0 {
		fmt.Println("Nothing to clean up.")
		return nil
	}

	for _, path := range removed {
		fmt.Println(path)
	}
	fmt.Printf("removed %d file(s)\n", len(removed))
	return nil
}
