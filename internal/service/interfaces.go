// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/chi-grants/grantflow/internal/model"
)

// Ledger defines the contract for the workflow state store. The workflow
// manager is its sole implementation; components that advance documents
// depend on this interface rather than the concrete manager.
type Ledger interface {
	Register(ctx context.Context, rec *model.DocumentRecord) error
	Transition(ctx context.Context, id string, to model.State, detail string) error
	TransitionWithMove(ctx context.Context, id string, to model.State, detail, destDir string) error
	Get(ctx context.Context, id string) (*model.DocumentRecord, error)
	List(ctx context.Context, state model.State) ([]*model.DocumentRecord, error)
	Summary(ctx context.Context) (map[model.State]int, error)
}

// Journal records every committed state transition for audit queries.
type Journal interface {
	Record(ctx context.Context, documentID string, from, to model.State, detail string) error
	History(ctx context.Context, documentID string) ([]JournalEntry, error)
	Close() error
}

// JournalEntry is one audit row.
type JournalEntry struct {
	CreatedAt  time.Time
	DocumentID string
	From       model.State
	To         model.State
	Detail     string
	ID         int64
}

// TextExtractor converts a source document into normalized text.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string, format model.Format) (string, ExtractionInfo, error)
}

// ExtractionInfo is the structural metadata a text extraction produces.
type ExtractionInfo struct {
	Format     model.Format
	SizeBytes  int64
	Pages      int
	Paragraphs int
	Chars      int
}

// Extractor turns normalized document text into a structured grant record.
type Extractor interface {
	Extract(ctx context.Context, text string, hints map[string]string) (*model.GrantData, error)
}

// Validator checks a grant record for internal consistency.
type Validator interface {
	Validate(data *model.GrantData) model.ValidationFlags
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// ProcessingStats shows the results of a pipeline batch.
type ProcessingStats struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
}
