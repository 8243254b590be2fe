package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth   = 190.0
	firstColPct = 0.4
)

// PDFExporter renders datasets into a single-table A4 document.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType is the media type of Render output.
func (e *PDFExporter) ContentType() string {
	return "application/pdf"
}

// Render creates a PDF document with the dataset title, subtitles and table.
// The first column is widened since it carries item names.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetTitle(data.Title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
	}
	if len(data.Subtitles) > 0 {
		pdf.SetFont("Arial", "", 10)
		for _, line := range data.Subtitles {
			pdf.CellFormat(0, 6, tr(line), "", 1, "C", false, 0, "")
		}
	}
	pdf.Ln(4)

	widths := columnWidths(len(data.Headers))
	pdf.SetFont("Arial", "B", 10)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			align := "C"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 7, tr(row[header]), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(n int) []float64 {
	widths := make([]float64, n)
	if n == 1 {
		widths[0] = pageWidth
		return widths
	}
	widths[0] = pageWidth * firstColPct
	rest := (pageWidth - widths[0]) / float64(n-1)
	for i := 1; i < n; i++ {
		widths[i] = rest
	}
	return widths
}
