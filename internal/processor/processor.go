// Package processor converts supported source documents into plain
// normalized text plus structural metadata. It never mutates source files
// and enforces the size cap before reading any content.
package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chi-grants/grantflow/internal/common"
	"github.com/chi-grants/grantflow/internal/model"
	"github.com/chi-grants/grantflow/internal/service"
)

// Processor performs format-specific text extraction.
type Processor struct {
	maxBytes int64
}

// New creates a Processor enforcing the given size cap in bytes. A zero or
// negative cap disables the check.
func New(maxBytes int64) *Processor {
	return &Processor{maxBytes: maxBytes}
}

// ExtractText converts the document at path into normalized text. The size
// policy is checked against a stat before any bytes are read; oversize
// files fail fast with no parsing attempt.
func (p *Processor) ExtractText(ctx context.Context, path string, format model.Format) (string, service.ExtractionInfo, error) {
	none := service.ExtractionInfo{}

	if err := ctx.Err(); err != nil {
		return "", none, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return "", none, fmt.Errorf("stat document: %w", err)
	}
	if p.maxBytes > 0 && stat.Size() > p.maxBytes {
		return "", none, &common.OversizeError{Path: path, Size: stat.Size(), Limit: p.maxBytes}
	}

	info := service.ExtractionInfo{Format: format, SizeBytes: stat.Size()}

	var text string
	switch format {
	case model.FormatPDF:
		text, info.Pages, err = p.extractPDF(path)
	case model.FormatDOCX:
		text, info.Paragraphs, err = p.extractDOCX(path)
	case model.FormatText, model.FormatMarkdown:
		text, err = p.extractPlain(path)
	default:
		return "", none, &common.UnsupportedFormatError{Ext: filepath.Ext(path)}
	}
	if err != nil {
		return "", none, err
	}

	text = Normalize(text)
	info.Chars = len(text)
	if info.Paragraphs == 0 {
		info.Paragraphs = countParagraphs(text)
	}
	return text, info, nil
}

// Normalize collapses whitespace within each line and squeezes runs of
// blank lines, preserving paragraph and page-marker structure.
func Normalize(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	joined := strings.Join(lines, "\n")
	for strings.Contains(joined, "\n\n\n") {
		joined = strings.ReplaceAll(joined, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(joined)
}

func countParagraphs(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" && !isPageMarker(line) {
			count++
		}
	}
	return count
}

// PageMarker renders the boundary line inserted between PDF pages.
func PageMarker(page int) string {
	return fmt.Sprintf("--- page %d ---", page)
}

func isPageMarker(line string) bool {
	return strings.HasPrefix(line, "--- page ") && strings.HasSuffix(line, " ---")
}
