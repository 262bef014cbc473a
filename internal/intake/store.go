// Package intake stages source documents and extraction artifacts on
// disk. Files progress through the staging directories as their workflow
// state advances; every path the pipeline touches comes from here.
package intake

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chi-grants/grantflow/internal/common"
	"github.com/chi-grants/grantflow/internal/model"
)

// storedNamePattern matches names already carrying the upload timestamp
// prefix, meaning the file was staged by a previous run.
var storedNamePattern = regexp.MustCompile(`^\d{8}_\d{6}_`)

const nameTimestampLayout = "20060102_150405"

// Store owns the staging directory tree under one base directory.
type Store struct {
	base     string
	maxBytes int64
}

// NewStore creates a Store rooted at base. maxBytes caps accepted file
// sizes; zero or negative means no cap.
func NewStore(base string, maxBytes int64) *Store {
	return &Store{base: base, maxBytes: maxBytes}
}

// Staging directory layout.

// PendingDir holds uploads awaiting processing.
func (s *Store) PendingDir() string { return filepath.Join(s.base, "intake", "pending") }

// ProcessingDir holds documents currently going through extraction.
func (s *Store) ProcessingDir() string { return filepath.Join(s.base, "intake", "processing") }

// ProcessedDir holds source files whose extraction finished.
func (s *Store) ProcessedDir() string { return filepath.Join(s.base, "intake", "processed") }

// ExtractedDir holds extraction artifacts awaiting validation.
func (s *Store) ExtractedDir() string { return filepath.Join(s.base, "workflows", "extracted") }

// ValidatedDir holds artifacts that passed through validation.
func (s *Store) ValidatedDir() string { return filepath.Join(s.base, "workflows", "validated") }

// ApprovedDir holds artifacts approved for downstream processing.
func (s *Store) ApprovedDir() string { return filepath.Join(s.base, "workflows", "approved") }

// LedgerPath is the workflow status ledger location.
func (s *Store) LedgerPath() string {
	return filepath.Join(s.base, "workflows", "workflow_status.json")
}

// JournalPath is the transition audit database location.
func (s *Store) JournalPath() string { return filepath.Join(s.base, "journal.db") }

// EnsureDirs creates the staging tree.
func (s *Store) EnsureDirs() error {
	dirs := []string{
		s.PendingDir(), s.ProcessingDir(), s.ProcessedDir(),
		s.ExtractedDir(), s.ValidatedDir(), s.ApprovedDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// Upload copies an external file into the pending directory under a
// unique stored name and returns the document record for it. The source
// file is left untouched. The caller registers the record with the
// workflow manager.
func (s *Store) Upload(ctx context.Context, srcPath string, meta map[string]string) (*model.DocumentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, info, err := s.checkSource(srcPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.PendingDir(), 0o750); err != nil {
		return nil, fmt.Errorf("creating pending directory: %w", err)
	}

	original := filepath.Base(srcPath)
	storedName := uniqueName(s.PendingDir(), original, time.Now())
	destPath := filepath.Join(s.PendingDir(), storedName)
	if err := copyFile(srcPath, destPath); err != nil {
		return nil, fmt.Errorf("staging %s: %w", original, err)
	}

	return s.newRecord(original, storedName, destPath, format, info.Size(), meta), nil
}

// Adopt wraps a file already sitting in a staging directory, renaming it
// to the unique stored pattern unless it carries one from a previous
// staging. Used by the intake watcher and by recovery.
func (s *Store) Adopt(path string) (*model.DocumentRecord, error) {
	format, info, err := s.checkSource(path)
	if err != nil {
		return nil, err
	}

	original := filepath.Base(path)
	dir := filepath.Dir(path)
	storedName := original
	if !storedNamePattern.MatchString(original) {
		storedName = uniqueName(dir, original, time.Now())
		if err := os.Rename(path, filepath.Join(dir, storedName)); err != nil {
			return nil, fmt.Errorf("staging %s: %w", original, err)
		}
	}

	return s.newRecord(original, storedName, filepath.Join(dir, storedName), format, info.Size(), nil), nil
}

func (s *Store) newRecord(original, storedName, path string, format model.Format, size int64, meta map[string]string) *model.DocumentRecord {
	metadata := make(map[string]string, len(meta))
	for k, v := range meta {
		metadata[k] = v
	}
	now := time.Now().UTC()
	return &model.DocumentRecord{
		ID:             uuid.NewString(),
		OriginalName:   original,
		StoredName:     storedName,
		Path:           path,
		Format:         format,
		SizeBytes:      size,
		UploadedAt:     now,
		State:          model.StatePending,
		StateUpdatedAt: now,
		Metadata:       metadata,
	}
}

// checkSource applies the intake acceptance rules: supported extension,
// a real non-empty file, and the size cap. Rules run on metadata alone;
// no content is read.
func (s *Store) checkSource(path string) (model.Format, os.FileInfo, error) {
	format, ok := model.FormatFromPath(path)
	if !ok {
		return "", nil, &common.UnsupportedFormatError{Ext: strings.ToLower(filepath.Ext(path))}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading document: %w", err)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return "", nil, fmt.Errorf("document %s is empty", filepath.Base(path))
	}
	if s.maxBytes > 0 && info.Size() > s.maxBytes {
		return "", nil, &common.OversizeError{Path: path, Size: info.Size(), Limit: s.maxBytes}
	}
	return format, info, nil
}

// uniqueName builds the stored filename: upload timestamp, the cleaned
// original stem, and the original extension, with a numeric suffix on
// collision.
func uniqueName(dir, original string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	stem := cleanStem(strings.TrimSuffix(original, filepath.Ext(original)))
	prefix := at.Format(nameTimestampLayout)

	name := prefix + "_" + stem + ext
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s_%s_%d%s", prefix, stem, i, ext)
	}
}

// cleanStem collapses every run of non-alphanumeric characters to a
// single underscore.
func cleanStem(stem string) string {
	var b strings.Builder
	pending := false
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}

func copyFile(src, dst string) error {
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
	return os.Rename(tmpDst, dst)
}
