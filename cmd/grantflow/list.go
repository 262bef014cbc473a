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

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [state]",
		Short: "List workflow records",
		Long: `List the documents the workflow ledger tracks, optionally filtered to
one state.

Examples:
  grantflow list
  grantflow list error
  grantflow list extracted`,
		Args: cobra.MaximumNArgs(1),
		RunE: runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	var state model.State
	if len(args) == 1 {
		parsed, ok := model.ParseState(args[0])
		if !ok {
			return fmt.Errorf("unknown state %q (one of: %s)", args[0], stateNames())
		}
		state = parsed
	}

	app, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := app.manager.List(cmd.Context(), state)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	fmt.Fprintf(w, "ID\tNAME\tSTATE\tUPDATED\tERROR\n")
	for _, doc := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			doc.ID,
			doc.OriginalName,
			doc.State,
			doc.StateUpdatedAt.Local().Format("2006-01-02 15:04:05"),
			doc.ErrorMessage)
	}

	return nil
}

func stateNames() string {
	names := make([]string, len(model.AllStates))
	for i, state := range model.AllStates {
		names[i] = string(state)
	}
	return strings.Join(names, ", ")
}
