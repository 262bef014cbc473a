package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run AI extraction over pending documents",
		Long: `Run every pending document through text extraction and AI extraction.

Documents are processed concurrently; each failure is recorded on the
document's workflow record and does not stop the batch. Without a
configured API key the extraction runs in deterministic simulation mode.

Examples:
  grantflow process
  grantflow process --concurrency 8`,
		RunE: runProcess,
	}

	cmd.Flags().Int("concurrency", 4, "documents processed in parallel")
	_ = viper.BindPFlag("processing.concurrency", cmd.Flags().Lookup("concurrency"))

	return cmd
}

func runProcess(cmd *cobra.Command, _ []string) error {
	app, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := app.engine.ProcessPending(cmd.Context())
	if err != nil {
		return err
	}
	printStats("Processed", stats)
	return nil
}
