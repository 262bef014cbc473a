package processor

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"

	"github.com/chi-grants/grantflow/internal/common"
)

// Minimal WordprocessingML mapping: enough of word/document.xml to pull
// paragraph and table text. Everything else is ignored.
type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
	Tables     []docxTable     `xml:"tbl"`
}

type docxTable struct {
	Rows []docxTableRow `xml:"tr"`
}

type docxTableRow struct {
	Cells []docxTableCell `xml:"tc"`
}

type docxTableCell struct {
	Paragraphs []docxParagraph `xml:"p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []string `xml:"t"`
}

func (p docxParagraph) text() string {
	var b strings.Builder
	for _, run := range p.Runs {
		for _, t := range run.Text {
			b.WriteString(t)
		}
	}
	return b.String()
}

// extractDOCX pulls paragraph and table text out of the document archive.
func (p *Processor) extractDOCX(path string) (string, int, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", 0, &common.CorruptDocumentError{Path: path, Reason: "not a DOCX archive", Err: err}
	}
	defer func() { _ = archive.Close() }()

	var docFile *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", 0, &common.CorruptDocumentError{Path: path, Reason: "missing word/document.xml"}
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", 0, &common.CorruptDocumentError{Path: path, Reason: "cannot open word/document.xml", Err: err}
	}
	defer func() { _ = rc.Close() }()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", 0, &common.CorruptDocumentError{Path: path, Reason: "cannot read word/document.xml", Err: err}
	}

	var doc docxDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", 0, &common.CorruptDocumentError{Path: path, Reason: "malformed document XML", Err: err}
	}

	var paragraphs []string
	for _, para := range doc.Body.Paragraphs {
		if t := strings.TrimSpace(para.text()); t != "" {
			paragraphs = append(paragraphs, t)
		}
	}
	for _, table := range doc.Body.Tables {
		for _, row := range table.Rows {
			var cells []string
			for _, cell := range row.Cells {
				for _, para := range cell.Paragraphs {
					if t := strings.TrimSpace(para.text()); t != "" {
						cells = append(cells, t)
					}
				}
			}
			if len(cells) > 0 {
				paragraphs = append(paragraphs, strings.Join(cells, " | "))
			}
		}
	}

	return strings.Join(paragraphs, "\n\n"), len(paragraphs), nil
}
