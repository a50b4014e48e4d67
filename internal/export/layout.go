package export

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// PageSpec is the geometry of a paged document, in millimetres.
type PageSpec struct {
	Width         float64
	Height        float64
	Margin        float64
	HeaderBand    float64
	ContentTop    float64
	ReserveBottom float64
	FooterReserve float64
	SectionGap    float64
	TitleAdvance  float64
}

// A4 is the portrait page every paged report uses.
func A4() PageSpec {
	return PageSpec{
		Width:         210,
		Height:        297,
		Margin:        14,
		HeaderBand:    42,
		ContentTop:    55,
		ReserveBottom: 40,
		FooterReserve: 20,
		SectionGap:    15,
		TitleAdvance:  8,
	}
}

// ContentBottom is the lowest y a table row may reach before the footer area.
func (s PageSpec) ContentBottom() float64 { return s.Height - s.FooterReserve }

// ContentWidth is the printable width between the side margins.
func (s PageSpec) ContentWidth() float64 { return s.Width - 2*s.Margin }

// Color is an RGB fill or text colour.
type Color struct{ R, G, B int }

// Hex returns the colour as RRGGBB.
func (c Color) Hex() string { return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B) }

var (
	BrandColor  = Color{26, 35, 126}
	White       = Color{255, 255, 255}
	TextDark    = Color{30, 41, 59}
	TextMuted   = Color{100, 116, 139}
	RuleColor   = Color{220, 220, 220}
	BorderColor = Color{203, 213, 225}
	StripeColor = Color{248, 250, 252}
)

var sectionAccents = map[SectionID]Color{
	SectionSummary:         {30, 41, 59},
	SectionMatches:         {16, 185, 129},
	SectionUnmatchedBank:   {245, 158, 11},
	SectionUnmatchedLedger: {99, 102, 241},
}

// Accent is the table header colour of a section.
func Accent(s SectionID) Color {
	if c, ok := sectionAccents[s]; ok {
		return c
	}
	return BrandColor
}

// ElementKind is the primitive an element is drawn with.
type ElementKind int

const (
	ElemRect ElementKind = iota
	ElemLine
	ElemText
	ElemCell
)

// Role tells which part of the report an element belongs to.
type Role int

const (
	RoleHeaderBand Role = iota
	RoleSectionTitle
	RoleTableHead
	RoleTableRow
	RoleFooter
)

// Element is one positioned drawing instruction.
// Text elements are placed on their baseline at (X, Y); everything else uses the top-left corner.
type Element struct {
	Kind      ElementKind
	Role      Role
	Section   SectionID
	X, Y      float64
	W, H      float64
	Text      string
	Lines     []string
	FontSize  float64
	Bold      bool
	Align     Align
	Fill      *Color
	TextColor Color
}

// Page holds the elements drawn on one page.
type Page struct {
	Number   int
	Elements []Element
}

// PagedLayout is a report broken into pages.
type PagedLayout struct {
	Spec  PageSpec
	Pages []*Page
}

// Measurer reports the printed width of a string in millimetres.
type Measurer interface {
	StringWidth(text string, fontSize float64, bold bool) float64
}

const (
	cellPadding = 2.0
	ptToMM      = 25.4 / 72
	lineSpacing = 1.15
)

func lineHeight(fontSize float64) float64 { return fontSize * ptToMM * lineSpacing }

func tableFontSize(s SectionID) float64 {
	if s == SectionSummary {
		return 10
	}
	return 8
}

// Wrap breaks text into lines no wider than width. Words longer than a line are split.
func Wrap(m Measurer, text string, width, fontSize float64, bold bool) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := ""
		for _, word := range words {
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if m.StringWidth(candidate, fontSize, bold) <= width {
				current = candidate
				continue
			}
			if current != "" {
				lines = append(lines, current)
			}
			current = word
			for m.StringWidth(current, fontSize, bold) > width && utf8.RuneCountInString(current) > 1 {
				head, rest := splitToWidth(m, current, width, fontSize, bold)
				lines = append(lines, head)
				current = rest
			}
		}
		lines = append(lines, current)
	}
	return lines
}

func splitToWidth(m Measurer, word string, width, fontSize float64, bold bool) (string, string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && m.StringWidth(string(runes[:n+1]), fontSize, bold) <= width {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

type pager struct {
	spec    PageSpec
	measure Measurer
	header  Header
	layout  *PagedLayout
	page    *Page
	y       float64
}

// LayoutPages places every table of report onto pages.
//
// The first pass flows sections top to bottom. A section title is never left at the bottom of
// a page without its table header and first row, and a table that overflows continues on a new
// page with its header row repeated. A row too tall for a fresh page is cut to fit. The second
// pass stamps every page footer once the page count is known.
func LayoutPages(report *Report, spec PageSpec, m Measurer) *PagedLayout {
	p := &pager{spec: spec, measure: m, header: report.Header, layout: &PagedLayout{Spec: spec}}
	p.newPage()
	for _, t := range report.Tables {
		p.placeTable(t)
	}
	p.layout.stampFooters(report.Header)
	return p.layout
}

func (p *pager) add(e Element) {
	p.page.Elements = append(p.page.Elements, e)
}

func (p *pager) newPage() {
	p.page = &Page{Number: len(p.layout.Pages) + 1}
	p.layout.Pages = append(p.layout.Pages, p.page)
	p.drawHeaderBand()
	p.y = p.spec.ContentTop
}

func (p *pager) drawHeaderBand() {
	s := p.spec
	fill := BrandColor
	p.add(Element{Kind: ElemRect, Role: RoleHeaderBand, X: 0, Y: 0, W: s.Width, H: s.HeaderBand, Fill: &fill})
	p.add(Element{Kind: ElemText, Role: RoleHeaderBand, X: s.Margin, Y: 24, Text: "Reconciliation Report",
		FontSize: 28, Bold: true, TextColor: White})

	subtitle := p.header.CompanyName
	if p.header.AsAtDate != "" {
		subtitle = fmt.Sprintf("%s - As At %s", subtitle, p.header.AsAtDate)
	}
	p.add(Element{Kind: ElemText, Role: RoleHeaderBand, X: s.Margin, Y: 34, Text: subtitle,
		FontSize: 14, TextColor: White})

	if p.header.Classification != "" {
		p.add(Element{Kind: ElemText, Role: RoleHeaderBand, X: s.Width - s.Margin, Y: 18,
			Text: p.header.Classification, FontSize: 8, Bold: true, Align: AlignRight, TextColor: White})
	}
	generated := "Generated: " + p.header.GeneratedAt.Format("02/01/2006, 3:04 pm")
	p.add(Element{Kind: ElemText, Role: RoleHeaderBand, X: s.Width - s.Margin, Y: 24, Text: generated,
		FontSize: 8, Align: AlignRight, TextColor: White})
}

const ellipsis = "..."

// maxRowLines is how many wrapped lines a data row may keep so that it still fits on a fresh
// page below the section title and the table head.
func (p *pager) maxRowLines(t Table, headH float64) int {
	lh := lineHeight(tableFontSize(t.Section))
	room := p.spec.ContentBottom() - p.spec.ContentTop - p.spec.TitleAdvance - headH - 2*cellPadding
	n := int(math.Floor(room / lh))
	if float64(n)*lh > room {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}

// rowLines wraps the paged cells of row, or the column titles when row is nil, and returns
// them with the row height. A cell longer than maxLines is cut and ends with an ellipsis;
// maxLines <= 0 keeps every line.
func (p *pager) rowLines(t Table, cols []int, row []Cell, bold bool, maxLines int) ([][]string, float64) {
	size := tableFontSize(t.Section)
	out := make([][]string, len(cols))
	lines := 1
	for k, i := range cols {
		text := t.Columns[i].Title
		if row != nil {
			text = row[i].Text
		}
		width := t.Columns[i].Width - 2*cellPadding
		wrapped := Wrap(p.measure, text, width, size, bold)
		if maxLines > 0 && len(wrapped) > maxLines {
			wrapped = truncateLines(p.measure, wrapped[:maxLines], width, size, bold)
		}
		out[k] = wrapped
		if len(wrapped) > lines {
			lines = len(wrapped)
		}
	}
	return out, float64(lines)*lineHeight(size) + 2*cellPadding
}

func truncateLines(m Measurer, lines []string, width, fontSize float64, bold bool) []string {
	last := []rune(lines[len(lines)-1])
	for len(last) > 0 && m.StringWidth(string(last)+ellipsis, fontSize, bold) > width {
		last = last[:len(last)-1]
	}
	lines[len(lines)-1] = string(last) + ellipsis
	return lines
}

func (p *pager) placeTable(t Table) {
	cols := t.PagedColumns()
	headLines, headH := p.rowLines(t, cols, nil, true, 0)
	maxLines := p.maxRowLines(t, headH)

	lead := p.spec.TitleAdvance + headH
	if len(t.Rows) > 0 {
		_, firstH := p.rowLines(t, cols, t.Rows[0], false, maxLines)
		lead += firstH
	}
	if p.y > p.spec.Height-p.spec.ReserveBottom || p.y+lead > p.spec.ContentBottom() {
		p.newPage()
	}

	p.add(Element{Kind: ElemText, Role: RoleSectionTitle, Section: t.Section, X: p.spec.Margin, Y: p.y,
		Text: t.Title, FontSize: 14, Bold: true, TextColor: TextDark})
	p.y += p.spec.TitleAdvance

	p.placeRow(t, cols, nil, headLines, headH)
	for i, row := range t.Rows {
		lines, h := p.rowLines(t, cols, row, false, maxLines)
		if p.y+h > p.spec.ContentBottom() {
			p.newPage()
			p.placeRow(t, cols, nil, headLines, headH)
		}
		if i%2 == 1 {
			stripe := StripeColor
			p.add(Element{Kind: ElemRect, Role: RoleTableRow, Section: t.Section, X: p.spec.Margin, Y: p.y,
				W: p.spec.ContentWidth(), H: h, Fill: &stripe})
		}
		p.placeRow(t, cols, row, lines, h)
	}
	p.y += p.spec.SectionGap
}

// placeRow draws the header row when row is nil. lines holds the wrapped text of each paged column.
func (p *pager) placeRow(t Table, cols []int, row []Cell, lines [][]string, h float64) {
	size := tableFontSize(t.Section)
	head := row == nil
	role := RoleTableRow
	var fill *Color
	textColor := TextDark
	if head {
		role = RoleTableHead
		accent := Accent(t.Section)
		fill = &accent
		textColor = White
	}

	x := p.spec.Margin
	for k, i := range cols {
		col := t.Columns[i]
		text, align := col.Title, AlignLeft
		if col.Kind != CellText {
			align = AlignRight
		}
		if !head {
			text, align = row[i].Text, row[i].Align()
		}
		p.add(Element{
			Kind:      ElemCell,
			Role:      role,
			Section:   t.Section,
			X:         x,
			Y:         p.y,
			W:         col.Width,
			H:         h,
			Text:      text,
			Lines:     lines[k],
			FontSize:  size,
			Bold:      head,
			Align:     align,
			Fill:      fill,
			TextColor: textColor,
		})
		x += col.Width
	}
	p.y += h
}

func (l *PagedLayout) stampFooters(h Header) {
	s := l.Spec
	total := len(l.Pages)
	exportDate := "Export Date: " + h.GeneratedAt.Format("02/01/2006")
	for _, page := range l.Pages {
		footer := fmt.Sprintf("%s | Reconciliation Report Pro   Page %d of %d", h.CompanyName, page.Number, total)
		page.Elements = append(page.Elements,
			Element{Kind: ElemLine, Role: RoleFooter, X: s.Margin, Y: s.Height - 15, W: s.ContentWidth(), TextColor: RuleColor},
			Element{Kind: ElemText, Role: RoleFooter, X: s.Margin, Y: s.Height - 10, Text: footer, FontSize: 8, TextColor: TextMuted},
			Element{Kind: ElemText, Role: RoleFooter, X: s.Width - s.Margin, Y: s.Height - 10, Text: exportDate, FontSize: 8, Align: AlignRight, TextColor: TextMuted},
		)
	}
}
