package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/chi-grants/grantflow/internal/config"
	"github.com/chi-grants/grantflow/internal/engine"
	"github.com/chi-grants/grantflow/internal/extract"
	"github.com/chi-grants/grantflow/internal/intake"
	"github.com/chi-grants/grantflow/internal/processor"
	"github.com/chi-grants/grantflow/internal/service"
	"github.com/chi-grants/grantflow/internal/storage"
	"github.com/chi-grants/grantflow/internal/validate"
	"github.com/chi-grants/grantflow/internal/workflow"
)

// app bundles the wired pipeline for one command invocation.
type app struct {
	cfg     config.Config
	store   *intake.Store
	manager *workflow.Manager
	journal *storage.Journal
	engine  *engine.Engine
}

// newApp wires the pipeline from configuration and returns it with a
// cleanup function.
func newApp() (*app, func(), error) {
	cfg := config.Load()

	store := intake.NewStore(cfg.DataDir, cfg.MaxFileBytes())
	if err := store.EnsureDirs(); err != nil {
		return nil, nil, fmt.Errorf("failed to prepare data directories: %w", err)
	}

	journal, err := storage.NewJournal(store.JournalPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open transition journal: %w", err)
	}

	manager, err := workflow.NewManager(store.LedgerPath(),
		workflow.WithJournal(journal),
		workflow.WithPendingDir(store.PendingDir()),
		workflow.WithStaleAfter(cfg.StaleAfter),
	)
	if err != nil {
		_ = journal.Close()
		return nil, nil, fmt.Errorf("failed to load workflow ledger: %w", err)
	}

	client, err := extract.NewClient(extractConfig(cfg))
	if err != nil {
		_ = journal.Close()
		return nil, nil, fmt.Errorf("failed to create extraction client: %w", err)
	}
	agent := extract.NewAgent(client, extractConfig(cfg))

	var opts []engine.Option
	if term.IsTerminal(int(os.Stdout.Fd())) {
		opts = append(opts, engine.WithProgress(os.Stdout))
	}

	eng := engine.New(store, manager,
		processor.New(cfg.MaxFileBytes()),
		agent,
		validate.New(cfg.BudgetTolerance, cfg.ConfidenceThreshold),
		engine.Config{
			Concurrency:  cfg.Processing.Concurrency,
			Timeout:      cfg.Processing.Timeout,
			MaxFileBytes: cfg.MaxFileBytes(),
			AutoApprove:  cfg.Processing.AutoApprove,
		}, opts...)

	cleanup := func() {
		if closeErr := journal.Close(); closeErr != nil {
			slog.Error("Failed to close journal", "error", closeErr)
		}
	}

	return &app{cfg: cfg, store: store, manager: manager, journal: journal, engine: eng}, cleanup, nil
}

func extractConfig(cfg config.Config) extract.Config {
	return extract.Config{
		Provider:            cfg.AI.Provider,
		APIKey:              cfg.AI.APIKey,
		Model:               cfg.AI.Model,
		RequestTimeout:      cfg.AI.RequestTimeout,
		MaxTextLength:       cfg.AI.MaxTextLength,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		Retry:               cfg.AI.Retry,
	}
}

func printStats(verb string, stats service.ProcessingStats) {
	fmt.Printf("%s %d document(s): %d succeeded, %d failed, %d skipped in %s\n",
		verb, stats.Total, stats.Succeeded, stats.Failed, stats.Skipped,
		stats.Duration.Round(time.Millisecond))
}
