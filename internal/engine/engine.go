// Package engine orchestrates the document pipeline. It drives pending
// documents through text extraction and AI extraction concurrently,
// validates extracted records, and applies operator or policy approvals,
// recording every outcome on the workflow ledger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/chi-grants/grantflow/internal/common"
	"github.com/chi-grants/grantflow/internal/intake"
	"github.com/chi-grants/grantflow/internal/model"
	"github.com/chi-grants/grantflow/internal/service"
)

// Engine coordinates the intake store, workflow ledger, document
// processor, extraction agent, and validator.
type Engine struct {
	store     DocumentStore
	ledger    service.Ledger
	processor service.TextExtractor
	agent     service.Extractor
	validator service.Validator
	progress  io.Writer
	cfg       Config
}

// Config holds the engine's processing options.
type Config struct {
	Concurrency  int
	Timeout      time.Duration
	MaxFileBytes int64
	AutoApprove  bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		Timeout:     5 * time.Minute,
	}
}

// Option customizes an engine.
type Option func(*Engine)

// WithProgress attaches a writer for the batch progress bar. Without it
// no bar is rendered.
func WithProgress(w io.Writer) Option {
	return func(e *Engine) { e.progress = w }
}

// New creates an engine with the given collaborators. Zero config values
// fall back to the defaults.
func New(store DocumentStore, ledger service.Ledger, processor service.TextExtractor, agent service.Extractor, validator service.Validator, cfg Config, opts ...Option) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	e := &Engine{
		store:     store,
		ledger:    ledger,
		processor: processor,
		agent:     agent,
		validator: validator,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessPending runs every pending document through text extraction and
// AI extraction, up to the configured number of workers. One document's
// failure is recorded on its ledger record and does not stop the batch;
// cancellation stops the batch and leaves unfinished documents where
// they are.
func (e *Engine) ProcessPending(ctx context.Context) (service.ProcessingStats, error) {
	start := time.Now()

	docs, err := e.ledger.List(ctx, model.StatePending)
	if err != nil {
		return service.ProcessingStats{}, fmt.Errorf("listing pending documents: %w", err)
	}

	stats := service.ProcessingStats{Total: len(docs)}
	if len(docs) == 0 {
		slog.Info("No pending documents")
		return stats, nil
	}

	slog.Info("Processing pending documents", "count", len(docs), "concurrency", e.cfg.Concurrency)

	var bar *progressbar.ProgressBar
	if e.progress != nil {
		bar = e.newProgressBar(len(docs))
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			err := e.processOne(gctx, doc)

			mu.Lock()
			switch {
			case err == nil:
				stats.Succeeded++
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				stats.Skipped++
			default:
				stats.Failed++
			}
			mu.Unlock()

			if bar != nil {
				if addErr := bar.Add(1); addErr != nil {
					slog.Warn("Failed to update progress bar", "error", addErr)
				}
			}

			// Failures are already recorded on the document; returning
			// them here would cancel the rest of the batch. Only
			// cancellation propagates.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	stats.Duration = time.Since(start)

	slog.Info("Batch finished",
		"total", stats.Total,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"duration", stats.Duration.Round(time.Millisecond))
	return stats, err
}

// processOne advances a single document from pending to extracted. Every
// failure except cancellation becomes a durable error state carrying the
// failure message.
func (e *Engine) processOne(parent context.Context, doc *model.DocumentRecord) error {
	if err := parent.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(parent, e.cfg.Timeout)
	defer cancel()

	logger := slog.With("document_id", doc.ID, "file", doc.StoredName)

	// Pre-flight runs before any content is read and before the file
	// leaves pending, so a violation is a pending→error transition.
	info, err := os.Stat(doc.Path)
	if err != nil {
		return e.failDocument(parent, logger, doc.ID, fmt.Sprintf("source file missing: %v", err), false)
	}
	if e.cfg.MaxFileBytes > 0 && info.Size() > e.cfg.MaxFileBytes {
		oversize := &common.OversizeError{Path: doc.Path, Size: info.Size(), Limit: e.cfg.MaxFileBytes}
		return e.failDocument(parent, logger, doc.ID, oversize.Error(), false)
	}

	if err := e.ledger.TransitionWithMove(ctx, doc.ID, model.StateProcessing, "processing started", e.store.ProcessingDir()); err != nil {
		return fmt.Errorf("moving %s to processing: %w", doc.ID, err)
	}
	procPath := filepath.Join(e.store.ProcessingDir(), filepath.Base(doc.Path))

	text, textInfo, err := e.processor.ExtractText(ctx, procPath, doc.Format)
	if err != nil {
		return e.classifyFailure(parent, ctx, logger, doc.ID, fmt.Errorf("text extraction: %w", err))
	}
	logger.Debug("Text extracted", "chars", textInfo.Chars, "pages", textInfo.Pages)

	data, err := e.agent.Extract(ctx, text, doc.Metadata)
	if err != nil {
		return e.classifyFailure(parent, ctx, logger, doc.ID, err)
	}
	data.Extraction.DocumentID = doc.ID
	data.Extraction.SourceFile = doc.StoredName

	name := intake.ArtifactName(doc.StoredName, time.Now().UTC())
	if _, err := intake.WriteArtifact(e.store.ExtractedDir(), name, data); err != nil {
		return e.failDocument(parent, logger, doc.ID, fmt.Sprintf("writing artifact: %v", err), true)
	}

	if err := e.ledger.TransitionWithMove(ctx, doc.ID, model.StateExtracted, "artifact "+name, e.store.ProcessedDir()); err != nil {
		return fmt.Errorf("moving %s to processed: %w", doc.ID, err)
	}

	logger.Info("Document extracted",
		"artifact", name,
		"provider", data.Extraction.Provider,
		"needs_review", len(data.Extraction.NeedsReview))
	return nil
}

// classifyFailure decides what a processing failure means for the
// document. Operator cancellation leaves the document in processing for
// the recovery scan; a per-document timeout and everything else become
// durable error states.
func (e *Engine) classifyFailure(parent, ctx context.Context, logger *slog.Logger, id string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded) {
		msg := fmt.Sprintf("processing timed out after %s", e.cfg.Timeout)
		return e.failDocument(parent, logger, id, msg, true)
	}
	return e.failDocument(parent, logger, id, err.Error(), true)
}

// failDocument records a failure as an error-state transition and
// reports it as an ordinary error so the batch keeps going. When the
// file has already moved to processing it is returned to pending, the
// directory a reset resumes from.
func (e *Engine) failDocument(ctx context.Context, logger *slog.Logger, id, msg string, backToPending bool) error {
	logger.Error("Document failed", "error", msg)

	var err error
	if backToPending {
		err = e.ledger.TransitionWithMove(ctx, id, model.StateError, msg, e.store.PendingDir())
	} else {
		err = e.ledger.Transition(ctx, id, model.StateError, msg)
	}
	if err != nil {
		logger.Error("Failed to record error state", "error", err)
	}
	return errors.New(msg)
}

// ValidateExtracted runs the validator over every extracted document,
// writes the verdict-carrying artifact, and advances the record. Clean
// verdicts are auto-approved when the policy allows it.
func (e *Engine) ValidateExtracted(ctx context.Context) (service.ProcessingStats, error) {
	start := time.Now()

	docs, err := e.ledger.List(ctx, model.StateExtracted)
	if err != nil {
		return service.ProcessingStats{}, fmt.Errorf("listing extracted documents: %w", err)
	}

	stats := service.ProcessingStats{Total: len(docs)}
	for _, doc := range docs {
		if ctx.Err() != nil {
			stats.Skipped = stats.Total - stats.Succeeded - stats.Failed
			stats.Duration = time.Since(start)
			return stats, ctx.Err()
		}
		if err := e.validateOne(ctx, doc); err != nil {
			stats.Failed++
			continue
		}
		stats.Succeeded++
	}
	stats.Duration = time.Since(start)

	slog.Info("Validation finished",
		"total", stats.Total,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"duration", stats.Duration.Round(time.Millisecond))
	return stats, nil
}

func (e *Engine) validateOne(ctx context.Context, doc *model.DocumentRecord) error {
	logger := slog.With("document_id", doc.ID, "file", doc.StoredName)

	artifact, err := intake.FindArtifact(e.store.ExtractedDir(), doc.StoredName)
	if err != nil {
		return e.failDocument(ctx, logger, doc.ID, err.Error(), false)
	}
	data, err := intake.ReadArtifact(artifact)
	if err != nil {
		return e.failDocument(ctx, logger, doc.ID, err.Error(), false)
	}

	flags := e.validator.Validate(data)
	name := filepath.Base(artifact)
	if _, err := intake.WriteValidatedArtifact(e.store.ValidatedDir(), name, data, flags); err != nil {
		return e.failDocument(ctx, logger, doc.ID, fmt.Sprintf("writing validated artifact: %v", err), false)
	}

	if err := e.ledger.Transition(ctx, doc.ID, model.StateValidated, flagsSummary(flags)); err != nil {
		return fmt.Errorf("advancing %s to validated: %w", doc.ID, err)
	}
	logger.Info("Document validated",
		"passed", flags.Passed,
		"flags", len(flags.Flags),
		"low_confidence", len(flags.LowConfidence))

	if e.cfg.AutoApprove && flags.Clean() {
		if _, err := intake.CopyArtifact(filepath.Join(e.store.ValidatedDir(), name), e.store.ApprovedDir()); err != nil {
			return e.failDocument(ctx, logger, doc.ID, fmt.Sprintf("copying approved artifact: %v", err), false)
		}
		if err := e.ledger.Transition(ctx, doc.ID, model.StateApproved, "auto-approved: validation clean"); err != nil {
			return fmt.Errorf("auto-approving %s: %w", doc.ID, err)
		}
		logger.Info("Document auto-approved")
	}
	return nil
}

// Approve advances one validated document and copies its artifact into
// the approved directory.
func (e *Engine) Approve(ctx context.Context, id string) error {
	doc, err := e.ledger.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.State != model.StateValidated {
		return &common.InvalidTransitionError{DocumentID: id, From: doc.State, To: model.StateApproved}
	}

	artifact, err := intake.FindArtifact(e.store.ValidatedDir(), doc.StoredName)
	if err != nil {
		return fmt.Errorf("locating validated artifact: %w", err)
	}
	if _, err := intake.CopyArtifact(artifact, e.store.ApprovedDir()); err != nil {
		return fmt.Errorf("copying approved artifact: %w", err)
	}
	if err := e.ledger.Transition(ctx, id, model.StateApproved, "operator approved"); err != nil {
		return err
	}

	slog.Info("Document approved", "document_id", id, "file", doc.StoredName)
	return nil
}

// Complete marks an approved document as fully handled. The record and
// its artifacts stay in place for cleanup policy.
func (e *Engine) Complete(ctx context.Context, id string) error {
	if err := e.ledger.Transition(ctx, id, model.StateCompleted, "operator completed"); err != nil {
		return err
	}
	slog.Info("Document completed", "document_id", id)
	return nil
}

// flagsSummary renders the one-line transition detail for a verdict.
func flagsSummary(flags model.ValidationFlags) string {
	if flags.Passed {
		if n := len(flags.LowConfidence); n > 0 {
			return fmt.Sprintf("validation passed; %d low-confidence fields", n)
		}
		return "validation passed"
	}

	codes := make([]string, 0, len(flags.Flags))
	seen := make(map[string]bool, len(flags.Flags))
	for _, f := range flags.Flags {
		if !seen[f.Code] {
			seen[f.Code] = true
			codes = append(codes, f.Code)
		}
	}
	return fmt.Sprintf("validation raised %d flag(s): %s", len(flags.Flags), strings.Join(codes, ", "))
}

func (e *Engine) newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(e.progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Processing documents...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(e.progress); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}
