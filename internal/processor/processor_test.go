package processor

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chi-grants/grantflow/internal/common"
	"github.com/chi-grants/grantflow/internal/model"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func writeDOCX(t *testing.T, dir, name, documentXML string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return writeFile(t, dir, name, buf.Bytes())
}

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Grant Proposal:</w:t></w:r><w:r><w:t> Water Quality Study</w:t></w:r></w:p>
    <w:p><w:r><w:t>Funding Agency: EPA</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Personnel</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>$100,000</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func TestExtractTextPlain(t *testing.T) {
	dir := t.TempDir()
	content := []byte("Grant ID: NSF-2024-001\n\n\n\nAmount:    $500,000\n")
	path := writeFile(t, dir, "sample.txt", content)

	p := New(0)
	text, info, err := p.ExtractText(context.Background(), path, model.FormatText)
	require.NoError(t, err)

	assert.Equal(t, "Grant ID: NSF-2024-001\n\nAmount: $500,000", text)
	assert.Equal(t, model.FormatText, info.Format)
	assert.Equal(t, int64(len(content)), info.SizeBytes)
	assert.Equal(t, 2, info.Paragraphs)
	assert.Equal(t, len(text), info.Chars)

	// The source file must never be mutated.
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, after)
}

func TestExtractTextMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.md", []byte("# Proposal\n\nBudget total: $150,000\n"))

	p := New(0)
	text, _, err := p.ExtractText(context.Background(), path, model.FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, text, "# Proposal")
	assert.Contains(t, text, "$150,000")
}

func TestExtractTextLatin1Fallback(t *testing.T) {
	dir := t.TempDir()
	// "résumé" encoded as Latin-1; not valid UTF-8.
	raw := []byte{'r', 0xE9, 's', 'u', 'm', 0xE9}
	path := writeFile(t, dir, "legacy.txt", raw)

	p := New(0)
	text, _, err := p.ExtractText(context.Background(), path, model.FormatText)
	require.NoError(t, err)
	assert.Equal(t, "résumé", text)
}

func TestExtractTextOversizeBeforeRead(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.txt", bytes.Repeat([]byte("x"), 2048))

	// Unreadable but stat-able: the size check must fire without a read.
	require.NoError(t, os.Chmod(path, 0o000))
	t.Cleanup(func() { _ = os.Chmod(path, 0o600) })

	p := New(1024)
	_, _, err := p.ExtractText(context.Background(), path, model.FormatText)

	var oversize *common.OversizeError
	require.ErrorAs(t, err, &oversize)
	assert.Equal(t, int64(2048), oversize.Size)
	assert.Equal(t, int64(1024), oversize.Limit)
}

func TestExtractTextMissingFile(t *testing.T) {
	p := New(0)
	_, _, err := p.ExtractText(context.Background(), filepath.Join(t.TempDir(), "gone.txt"), model.FormatText)
	assert.Error(t, err)
}

func TestExtractTextUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "legacy.doc", []byte("old word binary"))

	p := New(0)
	_, _, err := p.ExtractText(context.Background(), path, model.Format("doc"))

	var unsupported *common.UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, ".doc", unsupported.Ext)
}

func TestExtractTextCorruptPDF(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.pdf", []byte("this is not a pdf"))

	p := New(0)
	_, _, err := p.ExtractText(context.Background(), path, model.FormatPDF)

	var corrupt *common.CorruptDocumentError
	require.ErrorAs(t, err, &corrupt)
}

func TestExtractTextCorruptDOCX(t *testing.T) {
	dir := t.TempDir()

	t.Run("not a zip", func(t *testing.T) {
		path := writeFile(t, dir, "broken.docx", []byte("not a zip archive"))
		p := New(0)
		_, _, err := p.ExtractText(context.Background(), path, model.FormatDOCX)
		var corrupt *common.CorruptDocumentError
		require.ErrorAs(t, err, &corrupt)
	})

	t.Run("zip without document.xml", func(t *testing.T) {
		var buf bytes.Buffer
		w := zip.NewWriter(&buf)
		f, err := w.Create("word/styles.xml")
		require.NoError(t, err)
		_, err = f.Write([]byte("<styles/>"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		path := writeFile(t, dir, "empty.docx", buf.Bytes())

		p := New(0)
		_, _, extractErr := p.ExtractText(context.Background(), path, model.FormatDOCX)
		var corrupt *common.CorruptDocumentError
		require.ErrorAs(t, extractErr, &corrupt)
		assert.Contains(t, corrupt.Reason, "document.xml")
	})

	t.Run("malformed xml", func(t *testing.T) {
		path := writeDOCX(t, dir, "badxml.docx", "<w:document><unclosed")
		p := New(0)
		_, _, err := p.ExtractText(context.Background(), path, model.FormatDOCX)
		var corrupt *common.CorruptDocumentError
		require.ErrorAs(t, err, &corrupt)
	})
}

func TestExtractTextDOCX(t *testing.T) {
	dir := t.TempDir()
	path := writeDOCX(t, dir, "proposal.docx", sampleDocumentXML)

	p := New(0)
	text, info, err := p.ExtractText(context.Background(), path, model.FormatDOCX)
	require.NoError(t, err)

	assert.Contains(t, text, "Grant Proposal: Water Quality Study")
	assert.Contains(t, text, "Funding Agency: EPA")
	assert.Contains(t, text, "Personnel | $100,000")
	assert.Equal(t, 3, info.Paragraphs)
}

func TestExtractTextCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sample.txt", []byte("content"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(0)
	_, _, err := p.ExtractText(ctx, path, model.FormatText)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "collapses spaces", input: "a    b\tc", want: "a b c"},
		{name: "squeezes blank runs", input: "a\n\n\n\n\nb", want: "a\n\nb"},
		{name: "trims edges", input: "  \n a \n  ", want: "a"},
		{name: "empty", input: "", want: ""},
		{name: "keeps paragraphs", input: "one\n\ntwo", want: "one\n\ntwo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestPageMarker(t *testing.T) {
	assert.Equal(t, "--- page 3 ---", PageMarker(3))
	assert.True(t, isPageMarker(PageMarker(1)))
	assert.False(t, isPageMarker("--- intro ---"))
	assert.Equal(t, 1, countParagraphs("--- page 1 ---\nactual text"))
}
