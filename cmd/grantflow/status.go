package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chi-grants/grantflow/internal/model"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show document counts per workflow state",
		Long: `Summarize the workflow ledger as a count of documents per state.

Examples:
  grantflow status`,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	app, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := app.manager.Summary(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to summarize ledger: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	fmt.Fprintf(w, "STATE\tCOUNT\n")
	fmt.Fprintf(w, "%s\t%s\n", strings.Repeat("─", 10), strings.Repeat("─", 5))

	total := 0
	for _, state := range model.AllStates {
		count := summary[state]
		total += count
		fmt.Fprintf(w, "%s\t%d\n", state, count)
	}
	fmt.Fprintf(w, "%s\t%s\n", strings.Repeat("─", 10), strings.Repeat("─", 5))
	fmt.Fprintf(w, "total\t%d\n", total)

	return nil
}
