// Package workflow tracks each document's progress through the intake
// pipeline. A Manager enforces the state machine per document and persists
// every committed transition to a JSON ledger, so workflow state survives
// restarts and interrupted file moves can be reconciled afterwards.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/chi-grants/grantflow/internal/common"
	"github.com/chi-grants/grantflow/internal/model"
	"github.com/chi-grants/grantflow/internal/service"
)

const defaultStaleAfter = 30 * time.Minute

var _ service.Ledger = (*Manager)(nil)

// ledgerFile is the on-disk shape of the workflow ledger.
type ledgerFile struct {
	UpdatedAt time.Time                        `json:"updated_at"`
	Documents map[string]*model.DocumentRecord `json:"documents"`
}

// Manager is the workflow state store. All transitions for one document
// serialize on a per-document lock; the ledger is written atomically
// before a transition is reported committed.
type Manager struct {
	ledgerPath string
	pendingDir string
	staleAfter time.Duration
	journal    service.Journal

	mu      sync.Mutex
	records map[string]*model.DocumentRecord
	locks   map[string]*sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithJournal attaches an audit journal. Journal writes are best-effort:
// a failed write is logged and never fails the transition.
func WithJournal(j service.Journal) Option {
	return func(m *Manager) { m.journal = j }
}

// WithStaleAfter sets how long a document may sit in processing before
// RecoverScan reports it as stale.
func WithStaleAfter(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.staleAfter = d
		}
	}
}

// WithPendingDir tells the manager where rejected documents return on
// Reset. Without it, Reset changes state but leaves the file in place.
func WithPendingDir(dir string) Option {
	return func(m *Manager) { m.pendingDir = dir }
}

// NewManager loads the ledger at ledgerPath. A missing file starts an
// empty ledger; an unreadable or undecodable one fails with
// ErrLedgerCorrupt rather than silently starting over.
func NewManager(ledgerPath string, opts ...Option) (*Manager, error) {
	m := &Manager{
		ledgerPath: ledgerPath,
		staleAfter: defaultStaleAfter,
		records:    make(map[string]*model.DocumentRecord),
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.ledgerPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading ledger %s: %w", m.ledgerPath, err)
	}

	var file ledgerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrLedgerCorrupt, m.ledgerPath, err)
	}
	for id, rec := range file.Documents {
		if rec == nil || rec.ID == "" || !rec.State.Valid() {
			return fmt.Errorf("%w: %s: document %q has an invalid record", common.ErrLedgerCorrupt, m.ledgerPath, id)
		}
		m.records[id] = rec
	}
	return nil
}

// Register adds a new document to the ledger in the pending state. The
// record is persisted before Register returns.
func (m *Manager) Register(ctx context.Context, rec *model.DocumentRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("document record requires an id")
	}

	m.mu.Lock()
	if _, exists := m.records[rec.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", common.ErrDuplicateDocument, rec.ID)
	}

	stored := rec.Clone()
	stored.State = model.StatePending
	stored.ErrorMessage = ""
	stored.MovePending = ""
	if stored.StateUpdatedAt.IsZero() {
		stored.StateUpdatedAt = time.Now().UTC()
	}
	m.records[rec.ID] = stored

	if err := m.persistLocked(); err != nil {
		delete(m.records, rec.ID)
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	m.journalRecord(ctx, rec.ID, "", model.StatePending, "registered")
	return nil
}

// Transition moves a document to a new state. Illegal transitions return
// InvalidTransitionError and leave the ledger untouched. The ledger is
// written atomically before the call returns; the audit journal row is
// written after commit and never fails the transition.
func (m *Manager) Transition(ctx context.Context, id string, to model.State, detail string) error {
	lock := m.docLock(id)
	lock.Lock()
	defer lock.Unlock()

	from, err := m.commit(id, to, detail, "")
	if err != nil {
		return err
	}
	m.journalRecord(ctx, id, from, to, detail)
	return nil
}

// TransitionWithMove commits a transition and relocates the document file
// into destDir. The ledger records the move before the file touches disk:
// a crash mid-move leaves a marker RecoverScan can reconcile against
// whichever location the file actually reached.
func (m *Manager) TransitionWithMove(ctx context.Context, id string, to model.State, detail, destDir string) error {
	lock := m.docLock(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	rec, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", common.ErrDocumentNotFound, id)
	}
	src := rec.Path
	dest := filepath.Join(destDir, filepath.Base(rec.Path))
	m.mu.Unlock()

	from, err := m.commit(id, to, detail, dest)
	if err != nil {
		return err
	}
	m.journalRecord(ctx, id, from, to, detail)

	if err := moveFile(src, dest); err != nil {
		// Marker stays set; RecoverScan reconciles the record to
		// wherever the file ended up.
		return fmt.Errorf("moving %s: %w", filepath.Base(src), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.records[id]
	updated := cur.Clone()
	updated.Path = dest
	updated.MovePending = ""
	m.records[id] = updated
	if err := m.persistLocked(); err != nil {
		m.records[id] = cur
		return err
	}
	return nil
}

// commit performs the locked check-apply-persist sequence shared by the
// transition paths. Caller holds the document lock. Returns the prior
// state on success.
func (m *Manager) commit(id string, to model.State, detail, movePending string) (model.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", common.ErrDocumentNotFound, id)
	}
	from := rec.State
	if !from.CanTransitionTo(to) {
		return "", &common.InvalidTransitionError{DocumentID: id, From: from, To: to}
	}

	updated := rec.Clone()
	updated.PrevState = from
	updated.State = to
	updated.StateUpdatedAt = time.Now().UTC()
	updated.MovePending = movePending
	if to == model.StateError {
		updated.ErrorMessage = detail
	} else {
		updated.ErrorMessage = ""
	}

	m.records[id] = updated
	if err := m.persistLocked(); err != nil {
		m.records[id] = rec
		return "", err
	}
	return from, nil
}

// Get returns a copy of one document record.
func (m *Manager) Get(ctx context.Context, id string) (*model.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrDocumentNotFound, id)
	}
	return rec.Clone(), nil
}

// List returns copies of the records in the given state, oldest upload
// first. An empty state returns every record.
func (m *Manager) List(ctx context.Context, state model.State) ([]*model.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.DocumentRecord
	for _, rec := range m.sortedLocked() {
		if state != "" && rec.State != state {
			continue
		}
		out = append(out, rec.Clone())
	}
	return out, nil
}

// Summary returns the document count per state.
func (m *Manager) Summary(ctx context.Context) (map[model.State]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[model.State]int)
	for _, rec := range m.records {
		counts[rec.State]++
	}
	return counts, nil
}

// Recovery reasons reported by RecoverScan.
const (
	RecoveryErrorState      = "error_state"
	RecoveryStaleProcessing = "stale_processing"
	RecoveryInterruptedMove = "interrupted_move"
)

// Recovery is one document RecoverScan surfaced for operator attention.
type Recovery struct {
	Record *model.DocumentRecord
	Reason string
	Detail string
}

// RecoverScan reports documents needing attention: those in the error
// state, those stuck in processing past the staleness threshold, and
// those with an interrupted file move. Interrupted moves are reconciled
// against the filesystem (the record's path is corrected to wherever the
// file actually is and the marker cleared); nothing is retried.
func (m *Manager) RecoverScan(ctx context.Context) ([]Recovery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Recovery
	reconciled := false

	for _, rec := range m.sortedLocked() {
		if rec.MovePending != "" {
			detail, fixed := reconcileMove(rec)
			out = append(out, Recovery{Record: rec.Clone(), Reason: RecoveryInterruptedMove, Detail: detail})
			reconciled = reconciled || fixed
		}

		switch {
		case rec.State == model.StateError:
			out = append(out, Recovery{Record: rec.Clone(), Reason: RecoveryErrorState, Detail: rec.ErrorMessage})
		case rec.State == model.StateProcessing && time.Since(rec.StateUpdatedAt) > m.staleAfter:
			out = append(out, Recovery{
				Record: rec.Clone(),
				Reason: RecoveryStaleProcessing,
				Detail: fmt.Sprintf("processing since %s", rec.StateUpdatedAt.Format(time.RFC3339)),
			})
		}
	}

	if reconciled {
		if err := m.persistLocked(); err != nil {
			return out, err
		}
	}
	return out, nil
}

// reconcileMove settles an interrupted move against the filesystem.
// Destination wins when the file reached it; a leftover source copy from
// an interrupted cross-device move is removed.
func reconcileMove(rec *model.DocumentRecord) (string, bool) {
	dest := rec.MovePending

	if _, err := os.Stat(dest); err == nil {
		if rec.Path != dest {
			if _, err := os.Stat(rec.Path); err == nil {
				if rmErr := os.Remove(rec.Path); rmErr != nil {
					slog.Warn("Failed to remove leftover source copy", "path", rec.Path, "error", rmErr)
				}
			}
		}
		rec.Path = dest
		rec.MovePending = ""
		return "move had completed; record path updated", true
	}

	if _, err := os.Stat(rec.Path); err == nil {
		rec.MovePending = ""
		return "move never happened; marker cleared", true
	}

	return fmt.Sprintf("file missing from both %s and %s", rec.Path, dest), false
}

// Reset returns an errored document to pending for another attempt. The
// error message is cleared and, when a pending directory is configured,
// the file is moved back there.
func (m *Manager) Reset(ctx context.Context, id string) error {
	if m.pendingDir != "" {
		return m.TransitionWithMove(ctx, id, model.StatePending, "operator reset", m.pendingDir)
	}
	return m.Transition(ctx, id, model.StatePending, "operator reset")
}

// CleanupCompleted deletes the source files of completed documents whose
// last transition is older than the cutoff. Records and extraction
// artifacts are kept; only the staged source file goes.
func (m *Manager) CleanupCompleted(ctx context.Context, olderThan time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for _, rec := range m.sortedLocked() {
		if rec.State != model.StateCompleted || rec.StateUpdatedAt.After(cutoff) {
			continue
		}
		if err := os.Remove(rec.Path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("removing %s: %w", rec.Path, err)
		}
		removed = append(removed, rec.Path)
	}
	return removed, nil
}

func (m *Manager) docLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

// sortedLocked returns the records ordered by upload time. Caller holds mu.
func (m *Manager) sortedLocked() []*model.DocumentRecord {
	out := make([]*model.DocumentRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out
}

// persistLocked writes the ledger atomically: full marshal to a temp file
// in the same directory, then rename. Caller holds mu.
func (m *Manager) persistLocked() error {
	file := ledgerFile{UpdatedAt: time.Now().UTC(), Documents: m.records}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.ledgerPath), 0o750); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}
	tmpPath := m.ledgerPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := os.Rename(tmpPath, m.ledgerPath); err != nil {
		return fmt.Errorf("committing ledger: %w", err)
	}
	return nil
}

func (m *Manager) journalRecord(ctx context.Context, id string, from, to model.State, detail string) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Record(ctx, id, from, to, detail); err != nil {
		slog.Warn("Journal write failed", "document_id", id, "from", from, "to", to, "error", err)
	}
}

// moveFile renames src to dst, falling back to copy-and-remove when the
// rename crosses filesystems.
func moveFile(src, dst string) error {
	if src == dst {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	tmpDst := dst + ".tmp"
	destination, err := os.Create(tmpDst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destination, source); err != nil {
		_ = destination.Close()
		_ = os.Remove(tmpDst)
		return err
	}
	if err := destination.Close(); err != nil {
		_ = os.Remove(tmpDst)
		return err
	}
	if err := os.Rename(tmpDst, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
