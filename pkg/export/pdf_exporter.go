package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const pdfTableWidth = 277.0

// PDFExporter renders a document as a landscape table. Rows sharing the value of
// GroupBy are preceded by a shaded group heading.
type PDFExporter struct {
	GroupBy string
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter(groupBy string) *PDFExporter {
	return &PDFExporter{GroupBy: groupBy}
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }
func (e *PDFExporter) Extension() string   { return "pdf" }

// Render creates a PDF document with an optional title, the table and trailing notes.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	columns := make([]string, 0, len(doc.Headers))
	for _, header := range doc.Headers {
		if header != e.GroupBy {
			columns = append(columns, header)
		}
	}
	colWidth := pdfTableWidth / float64(len(columns))

	pdf.SetFont("Arial", "B", 10)
	for _, header := range columns {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFillColor(230, 230, 230)
	group := "\x00"
	for _, row := range doc.Rows {
		if e.GroupBy != "" && row[e.GroupBy] != group {
			group = row[e.GroupBy]
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(pdfTableWidth, 7, group, "1", 1, "L", true, 0, "")
		}
		pdf.SetFont("Arial", "", 9)
		for _, header := range columns {
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(doc.Notes) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 8)
		for _, note := range doc.Notes {
			pdf.MultiCell(0, 5, note, "", "L", false)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
