package processor

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/chi-grants/grantflow/internal/common"
)

// extractPDF reads the text layer of each page, separated by page markers.
// The structure is validated first so encrypted or malformed files are
// rejected before the text reader touches them. No OCR: a scanned page
// contributes only its marker.
func (p *Processor) extractPDF(path string) (text string, pages int, err error) {
	conf := pdfcpumodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfcpumodel.ValidationRelaxed
	if vErr := api.ValidateFile(path, conf); vErr != nil {
		return "", 0, &common.CorruptDocumentError{Path: path, Reason: "cannot open PDF structure", Err: vErr}
	}

	pages, err = api.PageCountFile(path)
	if err != nil {
		return "", 0, &common.CorruptDocumentError{Path: path, Reason: "cannot count PDF pages", Err: err}
	}

	// The text reader panics on some malformed inputs that survive
	// relaxed validation.
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = &common.CorruptDocumentError{Path: path, Reason: fmt.Sprintf("PDF text layer unreadable: %v", r)}
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", 0, &common.CorruptDocumentError{Path: path, Reason: "cannot read PDF", Err: err}
	}
	defer func() { _ = f.Close() }()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(PageMarker(i))
		b.WriteString("\n")

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, pErr := page.GetPlainText(nil)
		if pErr != nil {
			continue
		}
		b.WriteString(content)
	}

	return b.String(), pages, nil
}
