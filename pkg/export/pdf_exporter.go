package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidthLandscape = 277.0
	headerHeight       = 8.0
	rowHeight          = 6.5
)

// Document is a titled report around one table.
type Document struct {
	Title string
	Lines []string
	Data  Dataset
	// Weights sizes columns relative to each other; nil spreads them evenly.
	Weights []float64
}

// PDFExporter renders documents into landscape A4 tables.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays out the document, repeating the table header on every page.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	widths := columnWidths(len(doc.Data.Headers), doc.Weights)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(false, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	tableHeader := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, header := range doc.Data.Headers {
			pdf.CellFormat(widths[i], headerHeight, tr(header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	pdf.AddPage()
	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "L", false, 0, "")
	}
	if len(doc.Lines) > 0 {
		pdf.SetFont("Arial", "", 9)
		for _, line := range doc.Lines {
			pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}
	tableHeader()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, record := range doc.Data.Records() {
		if pdf.GetY()+rowHeight > pageHeight-bottom {
			pdf.AddPage()
			tableHeader()
		}
		for i, value := range record {
			pdf.CellFormat(widths[i], rowHeight, fit(pdf, tr, value, widths[i]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(n int, weights []float64) []float64 {
	widths := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		w := 1.0
		if i < len(weights) && weights[i] > 0 {
			w = weights[i]
		}
		widths[i] = w
		total += w
	}
	for i := range widths {
		widths[i] = widths[i] / total * pageWidthLandscape
	}
	return widths
}

// fit shortens value until its translated form fits width, keeping a small cell padding.
func fit(pdf *gofpdf.Fpdf, tr func(string) string, value string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(tr(value)) <= limit {
		return tr(value)
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(tr(string(runes)+"...")) > limit {
		runes = runes[:len(runes)-1]
	}
	return tr(string(runes) + "...")
}
