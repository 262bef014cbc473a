package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show a document's transition history",
		Long: `Print every recorded state transition for one document, oldest first,
from the audit journal.

Examples:
  grantflow history 6b1f6a2e-8c1d-4f0e-9a37-2d1f08c21d55`,
		Args: cobra.ExactArgs(1),
		RunE: runHistory,
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	app, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	id := args[0]
	entries, err := app.journal.History(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to read history for %s: %w", id, err)
	}
	if len(entries) == 0 {
		fmt.Printf("No transitions recorded for %s.\n", id)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	fmt.Fprintf(w, "TIME\tFROM\tTO\tDETAIL\n")
	for _, entry := range entries {
		from := string(entry.From)
		if from == "" {
			from = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			from,
			entry.To,
			entry.Detail)
	}

	return nil
}
