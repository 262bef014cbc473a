package model

import (
	"path/filepath"
	"strings"
	"time"
)

// Format identifies a supported source document format.
type Format string

// Supported document formats.
const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// FormatFromPath detects the format from a filename extension. The second
// return is false for unrecognized extensions.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, true
	case ".docx":
		return FormatDOCX, true
	case ".txt":
		return FormatText, true
	case ".md":
		return FormatMarkdown, true
	default:
		return "", false
	}
}

// DocumentRecord represents one uploaded source file. The identifier is
// stable for the record's whole life; the physical file may move between
// staging directories as the state advances, and MovePending carries the
// destination while such a move is in flight so recovery can reconcile a
// crash between the ledger write and the rename.
type DocumentRecord struct {
	ID             string            `json:"id"`
	OriginalName   string            `json:"original_name"`
	StoredName     string            `json:"stored_name"`
	Path           string            `json:"path"`
	Format         Format            `json:"format"`
	SizeBytes      int64             `json:"size_bytes"`
	UploadedAt     time.Time         `json:"uploaded_at"`
	State          State             `json:"state"`
	PrevState      State             `json:"prev_state,omitempty"`
	StateUpdatedAt time.Time         `json:"state_updated_at"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	MovePending    string            `json:"move_pending,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate ledger state.
func (d *DocumentRecord) Clone() *DocumentRecord {
	out := *d
	if d.Metadata != nil {
		out.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
