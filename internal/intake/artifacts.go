package intake

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chi-grants/grantflow/internal/model"
)

// ArtifactName derives the extraction artifact filename from the stored
// document name: write timestamp, then the document name with dots
// replaced by underscores.
func ArtifactName(storedName string, at time.Time) string {
	return at.Format(nameTimestampLayout) + "_" + strings.ReplaceAll(storedName, ".", "_") + ".json"
}

// validatedArtifact is a grant record with the validation verdict
// attached. The grant fields stay at the top level so readers of plain
// and validated artifacts share a shape.
type validatedArtifact struct {
	*model.GrantData
	Validation model.ValidationFlags `json:"validation"`
}

// WriteArtifact writes a grant record as a JSON artifact and returns the
// full path. The write is atomic.
func WriteArtifact(dir, name string, data *model.GrantData) (string, error) {
	return writeJSON(dir, name, data)
}

// WriteValidatedArtifact writes a grant record with its validation
// verdict attached under a top-level "validation" key.
func WriteValidatedArtifact(dir, name string, data *model.GrantData, flags model.ValidationFlags) (string, error) {
	return writeJSON(dir, name, validatedArtifact{GrantData: data, Validation: flags})
}

func writeJSON(dir, name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding artifact: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}

	path := filepath.Join(dir, name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("committing artifact: %w", err)
	}
	return path, nil
}

// ReadArtifact loads a grant record from an artifact file. Validated
// artifacts read back the same way; the attached verdict is ignored.
func ReadArtifact(path string) (*model.GrantData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	data := model.NewGrantData()
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("decoding artifact %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

// FindArtifact returns the newest artifact in dir written for the given
// stored document name. The timestamp prefix makes lexicographic order
// chronological.
func FindArtifact(dir, storedName string) (string, error) {
	suffix := "_" + strings.ReplaceAll(storedName, ".", "_") + ".json"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading artifact directory: %w", err)
	}

	var best string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasSuffix(name, suffix) && name > best {
			best = name
		}
	}
	if best == "" {
		return "", fmt.Errorf("no artifact for %s in %s", storedName, dir)
	}
	return filepath.Join(dir, best), nil
}

// CopyArtifact copies an artifact file into dstDir under the same base
// name and returns the destination path. The source is left in place so
// each workflow directory keeps its own stage record.
func CopyArtifact(src, dstDir string) (string, error) {
	raw, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("reading artifact: %w", err)
	}
	if err := os.MkdirAll(dstDir, 0o750); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}

	path := filepath.Join(dstDir, filepath.Base(src))
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("committing artifact: %w", err)
	}
	return path, nil
}
