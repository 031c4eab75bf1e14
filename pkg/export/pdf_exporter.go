package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth   = 277.0
	pdfLabelWidth  = 32.0
	pdfLineHeight  = 4.5
	pdfMinRowLines = 2
)

// PDFExporter renders a Grid as a landscape timetable.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with the grid title and one table row per slot.
// The first column holds slot labels; the remaining columns share the page width.
func (e *PDFExporter) Render(grid Grid) ([]byte, error) {
	if err := grid.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if grid.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(grid.Title)), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	widths := columnWidths(len(grid.Headers))

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	for i, header := range grid.Headers {
		pdf.CellFormat(widths[i], 8, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Arial", "", 8)
	for _, row := range grid.Rows {
		lines := make([][][]byte, len(grid.Headers))
		height := pdfMinRowLines
		for i := range grid.Headers {
			lines[i] = pdf.SplitLines([]byte(tr(grid.cell(row, i))), widths[i]-2)
			if len(lines[i]) > height {
				height = len(lines[i])
			}
		}
		rowHeight := float64(height) * pdfLineHeight
		if pdf.GetY()+rowHeight > 200 {
			pdf.AddPage()
		}
		x, y := pdf.GetXY()
		for i := range grid.Headers {
			pdf.Rect(x, y, widths[i], rowHeight, "D")
			for j, line := range lines[i] {
				pdf.SetXY(x+1, y+float64(j)*pdfLineHeight)
				pdf.CellFormat(widths[i]-2, pdfLineHeight, string(line), "", 0, "L", false, 0, "")
			}
			x += widths[i]
		}
		pdf.SetXY(10, y+rowHeight)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(columns int) []float64 {
	widths := make([]float64, columns)
	if columns == 1 {
		widths[0] = pdfPageWidth
		return widths
	}
	widths[0] = pdfLabelWidth
	rest := (pdfPageWidth - pdfLabelWidth) / float64(columns-1)
	for i := 1; i < columns; i++ {
		widths[i] = rest
	}
	return widths
}
