package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chi-grants/grantflow/internal/intake"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the pending directory for dropped documents",
		Long: `Watch the pending intake directory and register documents as they are
dropped in. Files already present at startup are registered first.

With --process-interval, pending documents are additionally run through
extraction on a fixed schedule, turning the watcher into an unattended
pipeline. Runs until interrupted.

Examples:
  grantflow watch
  grantflow watch --process-interval 1m`,
		RunE: runWatch,
	}

	cmd.Flags().Duration("process-interval", 0, "run extraction over pending documents at this interval (0 disables)")

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	interval, _ := cmd.Flags().GetDuration("process-interval")

	app, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	watcher := intake.NewWatcher(app.store, app.manager)
	if interval > 0 {
		slog.Info("Scheduled processing enabled", "interval", interval)
	}

	if interval <= 0 {
		return ignoreCanceled(watcher.Run(ctx))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if _, processErr := app.engine.ProcessPending(gctx); processErr != nil && !errors.Is(processErr, context.Canceled) {
					slog.Error("Scheduled processing failed", "error", processErr)
				}
			}
		}
	})

	return ignoreCanceled(g.Wait())
}

// ignoreCanceled treats an interrupt-driven shutdown as a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		slog.Info("Watcher stopped")
		return nil
	}
	return err
}
