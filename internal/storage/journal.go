// Package storage persists the transition audit journal in SQLite. The
// journal is append-only: one row per committed state change, queried by
// document for triage and the history command.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chi-grants/grantflow/internal/model"
	"github.com/chi-grants/grantflow/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Validation errors.
var (
	ErrNilContext  = errors.New("context cannot be nil")
	ErrEmptyString = errors.New("string parameter cannot be empty")
)

var _ service.Journal = (*Journal)(nil)

// Journal is the SQLite-backed audit trail.
type Journal struct {
	db     *sql.DB
	dbPath string
}

// NewJournal opens (creating if necessary) the journal database at dbPath
// and applies the schema.
func NewJournal(dbPath string) (*Journal, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't benefit from multiple connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	j := &Journal{db: db, dbPath: dbPath}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id TEXT NOT NULL,
		from_state TEXT NOT NULL,
		to_state TEXT NOT NULL,
		detail TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_document_id ON transitions(document_id);`

	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply journal schema: %w", err)
	}
	return nil
}

// Record appends one transition row.
func (j *Journal) Record(ctx context.Context, documentID string, from, to model.State, detail string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(documentID, "documentID"); err != nil {
		return err
	}
	if err := validateString(string(to), "to"); err != nil {
		return err
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO transitions (document_id, from_state, to_state, detail) VALUES (?, ?, ?, ?)`,
		documentID, string(from), string(to), detail)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

// History returns every recorded transition for a document, oldest first.
// An unknown document yields an empty history, not an error.
func (j *Journal) History(ctx context.Context, documentID string) ([]service.JournalEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(documentID, "documentID"); err != nil {
		return nil, err
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, document_id, from_state, to_state, detail, created_at
		 FROM transitions WHERE document_id = ? ORDER BY id`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []service.JournalEntry
	for rows.Next() {
		var entry service.JournalEntry
		var from, to string
		var detail sql.NullString
		if err := rows.Scan(&entry.ID, &entry.DocumentID, &from, &to, &detail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entry.From = model.State(from)
		entry.To = model.State(to)
		entry.Detail = detail.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}
