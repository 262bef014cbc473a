package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func recoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Scan for documents needing operator attention",
		Long: `Scan the workflow ledger for documents in the error state, documents
stuck in processing past the staleness threshold, and file moves a crash
left half-finished. Interrupted moves are reconciled during the scan.

With --reset, one errored document is returned to pending and its file
to the pending directory.

Examples:
  grantflow recover
  grantflow recover --reset 6b1f6a2e-8c1d-4f0e-9a37-2d1f08c21d55`,
		RunE: runRecover,
	}

	cmd.Flags().String("reset", "", "document id to reset from error back to pending")

	return cmd
}

func runRecover(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	resetID, _ := cmd.Flags().GetString("reset")

	app, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if resetID != "" {
		if err := app.manager.Reset(ctx, resetID); err != nil {
			return fmt.Errorf("failed to reset %s: %w", resetID, err)
		}
		fmt.Printf("reset %s to pending\n", resetID)
		return nil
	}

	findings, err := app.manager.RecoverScan(ctx)
	if err != nil {
		return fmt.Errorf("recovery scan failed: %w", err)
	}
	if len(findings) == 0 {
		fmt.Println("Nothing to recover.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	fmt.Fprintf(w, "ID\tNAME\tSTATE\tREASON\tDETAIL\n")
	for _, finding := range findings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			finding.Record.ID,
			finding.Record.OriginalName,
			finding.Record.State,
			finding.Reason,
			finding.Detail)
	}

	return nil
}
