package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const pdfFont = "Helvetica"

// FontMeasurer measures strings with the core Helvetica metrics used by the encoder.
type FontMeasurer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// NewFontMeasurer returns a measurer backed by a scratch document.
func NewFontMeasurer() *FontMeasurer {
	pdf := fpdf.New("P", "mm", "A4", "")
	return &FontMeasurer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (m *FontMeasurer) StringWidth(text string, fontSize float64, bold bool) float64 {
	m.pdf.SetFont(pdfFont, fontStyle(bold), fontSize)
	return m.pdf.GetStringWidth(m.tr(text))
}

func fontStyle(bold bool) string {
	if bold {
		return "B"
	}
	return ""
}

// PDFRenderer lays reports out on A4 pages.
type PDFRenderer struct {
	Spec     PageSpec
	Measurer Measurer
}

// NewPDFRenderer returns an A4 renderer measuring with the core font metrics.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Spec: A4(), Measurer: NewFontMeasurer()}
}

// Format implements Renderer.
func (r *PDFRenderer) Format() Format { return FormatPDF }

// ContentType implements Renderer.
func (r *PDFRenderer) ContentType() string { return "application/pdf" }

// DefaultLabel is the file name label used when the request carries none.
func (r *PDFRenderer) DefaultLabel() string { return "Reconciliation_Report" }

func (r *PDFRenderer) Layout(report *Report) (Document, error) {
	if r.Measurer == nil {
		return nil, fmt.Errorf("pdf renderer has no measurer")
	}
	return &pdfDocument{header: report.Header, layout: LayoutPages(report, r.Spec, r.Measurer)}, nil
}

type pdfDocument struct {
	header Header
	layout *PagedLayout
}

// Pages exposes the laid out pages.
func (d *pdfDocument) Pages() []*Page { return d.layout.Pages }

func (d *pdfDocument) Encode() ([]byte, error) {
	s := d.layout.Spec
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: s.Width, Ht: s.Height},
	})
	pdf.SetMargins(s.Margin, s.Margin, s.Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(fmt.Sprintf("Reconciliation Report - %s", d.header.CompanyName), true)
	pdf.SetCreator("recon-report", true)
	if !d.header.GeneratedAt.IsZero() {
		pdf.SetCreationDate(d.header.GeneratedAt)
		pdf.SetModificationDate(d.header.GeneratedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range d.layout.Pages {
		pdf.AddPage()
		for _, el := range page.Elements {
			drawElement(pdf, tr, el)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("could not write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawElement(pdf *fpdf.Fpdf, tr func(string) string, el Element) {
	switch el.Kind {
	case ElemRect:
		if el.Fill != nil {
			pdf.SetFillColor(el.Fill.R, el.Fill.G, el.Fill.B)
			pdf.Rect(el.X, el.Y, el.W, el.H, "F")
		}
	case ElemLine:
		pdf.SetDrawColor(el.TextColor.R, el.TextColor.G, el.TextColor.B)
		pdf.SetLineWidth(0.2)
		pdf.Line(el.X, el.Y, el.X+el.W, el.Y+el.H)
	case ElemText:
		pdf.SetFont(pdfFont, fontStyle(el.Bold), el.FontSize)
		pdf.SetTextColor(el.TextColor.R, el.TextColor.G, el.TextColor.B)
		text := tr(el.Text)
		x := el.X
		if el.Align == AlignRight {
			x -= pdf.GetStringWidth(text)
		}
		pdf.Text(x, el.Y, text)
	case ElemCell:
		style := "D"
		if el.Fill != nil {
			pdf.SetFillColor(el.Fill.R, el.Fill.G, el.Fill.B)
			style = "FD"
		}
		pdf.SetDrawColor(BorderColor.R, BorderColor.G, BorderColor.B)
		pdf.SetLineWidth(0.1)
		pdf.Rect(el.X, el.Y, el.W, el.H, style)

		pdf.SetFont(pdfFont, fontStyle(el.Bold), el.FontSize)
		pdf.SetTextColor(el.TextColor.R, el.TextColor.G, el.TextColor.B)
		lh := lineHeight(el.FontSize)
		for i, line := range el.Lines {
			text := tr(line)
			x := el.X + cellPadding
			if el.Align == AlignRight {
				x = el.X + el.W - cellPadding - pdf.GetStringWidth(text)
			}
			pdf.Text(x, el.Y+cellPadding+lh*float64(i+1)-lh*0.25, text)
		}
	}
}
