package processor

import (
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// extractPlain reads a text or markdown file as-is. Content that is not
// valid UTF-8 is decoded as Latin-1 rather than rejected.
func (p *Processor) extractPlain(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}

	if utf8.Valid(raw) {
		return string(raw), nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode document as Latin-1: %w", err)
	}
	return string(decoded), nil
}
