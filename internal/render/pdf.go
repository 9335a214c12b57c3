package render

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/p-n-ai/educonnect/internal/course"
)

// ErrRender wraps every failure of a drawing backend.
var ErrRender = errors.New("could not export document")

const pdfFontFamily = "Helvetica"

// PDFRenderer draws topic documents as A4 PDFs with the core Helvetica
// fonts.
type PDFRenderer struct {
	geom Geometry
}

// NewPDFRenderer creates a renderer for A4 pages.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{geom: A4()}
}

// InputFor builds the layout input of doc within courseName.
func InputFor(doc course.TopicDocument, courseName string) LayoutInput {
	return LayoutInput{
		CourseName:  courseName,
		ModuleTitle: doc.ModuleTitle,
		TopicTitle:  doc.TopicTitle,
		Day:         doc.ModuleDay,
		Body:        doc.PlainTextBody,
	}
}

// Layout places in using PDF font metrics, so the result matches what
// RenderLayout draws.
func (r *PDFRenderer) Layout(in LayoutInput) (*DocumentLayout, error) {
	return Layout(in, r.geom, pdfMeasurer{pdf: r.newDocument()})
}

// Render lays out doc and writes it to w as a PDF.
func (r *PDFRenderer) Render(w io.Writer, doc course.TopicDocument, courseName string) error {
	l, err := r.Layout(InputFor(doc, courseName))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return r.RenderLayout(w, l)
}

// RenderLayout draws a finished layout. Backend errors and panics are
// returned as ErrRender.
func (r *PDFRenderer) RenderLayout(w io.Writer, l *DocumentLayout) (err error) {
	if l == nil {
		return fmt.Errorf("%w: layout is nil", ErrRender)
	}
	defer func() {
		if p := recover(); p != nil {
			slog.Error("pdf backend panicked", "title", l.Title, "panic", p)
			err = fmt.Errorf("%w: %v", ErrRender, p)
		}
	}()

	pdf := r.newDocument()
	pdf.SetTitle(l.Title, true)
	if !l.Date.IsZero() {
		pdf.SetCreationDate(l.Date)
	}
	for _, page := range l.Pages {
		pdf.AddPage()
		for _, e := range page.Elements {
			drawPDF(pdf, e)
		}
	}

	if err := pdf.Output(w); err != nil {
		slog.Error("pdf output failed", "title", l.Title, "error", err)
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

func (r *PDFRenderer) newDocument() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(r.geom.Margin, r.geom.Margin, r.geom.Margin)
	// Page breaks come from the layout, never from the backend.
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreator("EduConnect", false)
	pdf.SetFont(pdfFontFamily, "", BodyFont.Size)
	return pdf
}

func drawPDF(pdf *fpdf.Fpdf, e Element) {
	switch e.Kind {
	case KindBorder:
		pdf.SetDrawColor(int(e.Ink.R), int(e.Ink.G), int(e.Ink.B))
		pdf.SetLineWidth(0.5)
		pdf.Rect(e.X, e.Y, e.W, e.H, "D")
	case KindBand:
		pdf.SetFillColor(int(e.Fill.R), int(e.Fill.G), int(e.Fill.B))
		pdf.Rect(e.X, e.Y, e.W, e.H, "F")
	case KindRule:
		pdf.SetDrawColor(int(e.Ink.R), int(e.Ink.G), int(e.Ink.B))
		pdf.SetLineWidth(0.4)
		pdf.Line(e.X, e.Y, e.X+e.W, e.Y)
	case KindText, KindFooter:
		pdf.SetFont(pdfFontFamily, e.Font.Style, e.Font.Size)
		pdf.SetTextColor(int(e.Ink.R), int(e.Ink.G), int(e.Ink.B))
		text := toWindows1252(e.Text)
		x := e.X
		if e.Align == AlignRight {
			x = e.X + e.W - pdf.GetStringWidth(text)
		}
		pdf.Text(x, baseline(e), text)
	}
}

// baseline places the text baseline inside the line box, leaving the extra
// line spacing split above and below the glyphs.
func baseline(e Element) float64 {
	fontH := e.Font.Size * ptToMM
	return e.Y + (e.H-fontH)/2 + fontH*0.8
}

// pdfMeasurer measures with the backend's own font metrics.
type pdfMeasurer struct {
	pdf *fpdf.Fpdf
}

func (m pdfMeasurer) TextWidth(text string, f Font) float64 {
	m.pdf.SetFont(pdfFontFamily, f.Style, f.Size)
	return m.pdf.GetStringWidth(toWindows1252(text))
}

// toWindows1252 transcodes s for the PDF core fonts, which only cover
// Windows-1252. Other runes become '?'.
func toWindows1252(s string) string {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			b = append(b, c)
			continue
		}
		b = append(b, '?')
	}
	return string(b)
}
