// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"

	"github.com/chi-grants/grantflow/internal/model"
)

// Common application errors.
var (
	// Ledger errors.
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDuplicateDocument = errors.New("duplicate document")
	ErrLedgerCorrupt     = errors.New("workflow ledger corrupted")

	// Extraction errors.
	ErrNoAPIKey = errors.New("no AI service credential configured")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UnsupportedFormatError signals a file whose extension is outside the
// supported set. Detected before any parsing and never retried.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported document format %q (supported: .pdf, .docx, .txt, .md)", e.Ext)
}

// CorruptDocumentError signals a document whose structure cannot be opened,
// such as a malformed PDF or a password-protected file.
type CorruptDocumentError struct {
	Err    error
	Path   string
	Reason string
}

func (e *CorruptDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt document %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("corrupt document %s: %s", e.Path, e.Reason)
}

func (e *CorruptDocumentError) Unwrap() error {
	return e.Err
}

// OversizeError signals a file exceeding the configured size cap. The size
// policy is enforced before any content is read.
type OversizeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("document %s is %d bytes, over the %d byte limit", e.Path, e.Size, e.Limit)
}

// ServiceUnavailableError signals that the extraction service could not be
// reached even after exhausting the bounded retry budget.
type ServiceUnavailableError struct {
	Err      error
	Provider string
	Attempts int
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("extraction service unavailable (%s, %d attempts): %v", e.Provider, e.Attempts, e.Err)
}

func (e *ServiceUnavailableError) Unwrap() error {
	return e.Err
}

// MalformedResponseError signals a service reply that could not be parsed
// into the expected structure even after one corrective re-prompt.
type MalformedResponseError struct {
	Err    error
	Reason string
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed extraction response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed extraction response: %s", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError signals an attempt to move a document to a state
// that is not a direct successor of its current state. The ledger is left
// untouched when this is returned.
type InvalidTransitionError struct {
	DocumentID string
	From       model.State
	To         model.State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for document %s: %s -> %s", e.DocumentID, e.From, e.To)
}
