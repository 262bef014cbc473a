package intake

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chi-grants/grantflow/internal/model"
)

func TestArtifactName(t *testing.T) {
	at := time.Date(2024, 8, 15, 9, 30, 0, 0, time.UTC)

	name := ArtifactName("20240601_120000_grant.pdf", at)
	assert.Equal(t, "20240815_093000_20240601_120000_grant_pdf.json", name)

	assert.Equal(t, name, ArtifactName("20240601_120000_grant.pdf", at), "deterministic for identical inputs")
}

func sampleGrant(t *testing.T) *model.GrantData {
	t.Helper()
	g := model.NewGrantData()
	g.GrantID = model.NewField("NSF-2024-001", model.ConfidenceHigh)
	g.GrantName = model.NewField("Coastal Resilience Study", model.ConfidenceMedium)
	g.AwardAmount = model.NewField(500000.0, model.ConfidenceHigh)
	start, err := model.ParseDate("2024-06-01")
	require.NoError(t, err)
	g.Timeline.StartDate = model.NewField(start, model.ConfidenceHigh)
	g.Extraction.Provider = "simulation"
	g.Extraction.Simulated = true
	return g
}

func TestArtifactRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := sampleGrant(t)

	path, err := WriteArtifact(dir, "20240815_093000_doc_pdf.json", want)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20240815_093000_doc_pdf.json"), path)

	got, err := ReadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "NSF-2024-001", got.GrantID.Get())
	assert.Equal(t, model.ConfidenceHigh, got.GrantID.Confidence)
	assert.Equal(t, 500000.0, got.AwardAmount.Get())
	assert.Equal(t, "2024-06-01", got.Timeline.StartDate.Get().Format("2006-01-02"))
	assert.True(t, got.Extraction.Simulated)
	assert.False(t, got.GrantType.Present())
}

func TestValidatedArtifact(t *testing.T) {
	dir := t.TempDir()
	grant := sampleGrant(t)
	flags := model.ValidationFlags{
		Flags:     []model.Flag{{Code: model.FlagMissingRequiredField, Field: "funding_agency", Message: "funding agency was not extracted"}},
		Passed:    false,
		Threshold: model.ConfidenceMedium,
	}

	path, err := WriteValidatedArtifact(dir, "artifact.json", grant, flags)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "grant_id", "grant fields stay at the top level")
	assert.Contains(t, decoded, "validation")

	var verdict model.ValidationFlags
	require.NoError(t, json.Unmarshal(decoded["validation"], &verdict))
	assert.False(t, verdict.Passed)
	require.Len(t, verdict.Flags, 1)
	assert.Equal(t, model.FlagMissingRequiredField, verdict.Flags[0].Code)

	// Validated artifacts read back as plain grant records.
	got, err := ReadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "NSF-2024-001", got.GrantID.Get())
}

func TestReadArtifactErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadArtifact(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o600))
	_, err = ReadArtifact(bad)
	require.Error(t, err)
}

func TestFindArtifact(t *testing.T) {
	dir := t.TempDir()
	grant := sampleGrant(t)

	older := ArtifactName("20240601_120000_grant.pdf", time.Date(2024, 8, 15, 9, 0, 0, 0, time.UTC))
	newer := ArtifactName("20240601_120000_grant.pdf", time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC))
	other := ArtifactName("20240601_130000_other.pdf", time.Date(2024, 8, 15, 11, 0, 0, 0, time.UTC))
	for _, name := range []string{older, newer, other} {
		_, err := WriteArtifact(dir, name, grant)
		require.NoError(t, err)
	}

	path, err := FindArtifact(dir, "20240601_120000_grant.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, newer), path)

	_, err = FindArtifact(dir, "20240601_140000_unknown.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no artifact")
}

func TestCopyArtifact(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "approved")

	name := ArtifactName("20240601_120000_grant.pdf", time.Date(2024, 8, 15, 9, 30, 0, 0, time.UTC))
	src, err := WriteArtifact(srcDir, name, sampleGrant(t))
	require.NoError(t, err)

	dst, err := CopyArtifact(src, dstDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dstDir, name), dst)

	got, err := ReadArtifact(dst)
	require.NoError(t, err)
	assert.Equal(t, "NSF-2024-001", got.GrantID.Get())

	_, err = os.Stat(src)
	assert.NoError(t, err, "source artifact stays in place")

	_, err = CopyArtifact(filepath.Join(srcDir, "missing.json"), dstDir)
	require.Error(t, err)
}
