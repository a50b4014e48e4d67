package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"recon-report/internal/aggregate"
	"recon-report/internal/apperror"
	"recon-report/internal/domain"
	"recon-report/internal/fixtures"
)

var generatedAt = time.Date(2024, 4, 2, 15, 4, 0, 0, time.UTC)

func sampleHeader() Header {
	return Header{CompanyName: "Acme Trading Ltd", AsAtDate: "2024-03-31", GeneratedAt: generatedAt}
}

func formatter() aggregate.Formatter { return aggregate.NewFormatter("") }

// runeMeasurer treats every rune as one millimetre wide.
type runeMeasurer struct{}

func (runeMeasurer) StringWidth(text string, _ float64, _ bool) float64 {
	return float64(utf8.RuneCountInString(text))
}

func bankRows(n int) []domain.Transaction {
	txs := make([]domain.Transaction, 0, n)
	for i := 0; i < n; i++ {
		txs = append(txs, domain.Transaction{
			Entry: domain.Entry{
				Date:        "2024-03-15",
				Description: fmt.Sprintf("Card purchase %d", i),
				Amount:      decimal.NewFromInt(int64(-10 - i)),
			},
			Ref:    fmt.Sprintf("REF-%d", i),
			Source: domain.SourceBank,
		})
	}
	return txs
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name       string
		view       *domain.ReconciliationResult
		sections   Sections
		wantTitles []string
		wantErr    apperror.ErrorCode
	}{
		{
			name:     "nothing selected",
			view:     fixtures.SampleResult(),
			sections: Sections{},
			wantErr:  apperror.ErrNothingSelected,
		},
		{
			name:     "all sections",
			view:     fixtures.SampleResult(),
			sections: AllSections(),
			wantTitles: []string{
				"1. Executive Summary",
				"2. Verified Matches (4)",
				"3. Unmatched Bank Statement Items (3)",
				"4. Unmatched Internal Ledger Entries (1)",
			},
		},
		{
			name:       "toggled off sections are skipped",
			view:       fixtures.SampleResult(),
			sections:   Sections{Matches: true, UnmatchedLedger: true},
			wantTitles: []string{"2. Verified Matches (4)", "4. Unmatched Internal Ledger Entries (1)"},
		},
		{
			name:       "empty collections are skipped but the summary is kept",
			view:       &domain.ReconciliationResult{},
			sections:   AllSections(),
			wantTitles: []string{"1. Executive Summary"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Build(tt.view, tt.sections, sampleHeader(), formatter())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, apperror.CodeOf(err))
				assert.Nil(t, report)
				return
			}
			require.NoError(t, err)
			titles := make([]string, 0, len(report.Tables))
			for _, table := range report.Tables {
				titles = append(titles, table.Title)
			}
			assert.Equal(t, tt.wantTitles, titles)
		})
	}
}

func TestBuild_SummaryUsesViewTotals(t *testing.T) {
	report, err := Build(fixtures.SampleResult(), Sections{Summary: true}, sampleHeader(), formatter())
	require.NoError(t, err)

	rows := report.Tables[0].Rows
	assert.Equal(t, "4", rows[0][1].Text)
	assert.Equal(t, "GH¢-245.99", rows[0][2].Text)
	assert.Equal(t, "GH¢207.00", rows[3][2].Text)
	assert.Equal(t, "GH¢207.00", rows[4][2].Text)
	assert.Equal(t, AlignRight, rows[0][2].Align())
	assert.Equal(t, AlignLeft, rows[0][0].Align())
}

func TestCSVRenderer_RoundTripsAwkwardText(t *testing.T) {
	view := fixtures.SampleResult()
	awkward := "Wire, \"urgent\"\nsecond line"
	view.UnmatchedBank[0].Description = awkward

	report, err := Build(view, Sections{UnmatchedBank: true}, sampleHeader(), formatter())
	require.NoError(t, err)
	doc, err := NewCSVRenderer().Layout(report)
	require.NoError(t, err)
	data, err := doc.Encode()
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 4)
	assert.Equal(t, []string{"Type", "Date", "Transaction Description", "Reference", "Value"}, records[0])
	assert.Equal(t, []string{"UNMATCHED_BANK", "2024-03-15", awkward, "STR-23", "-5.50"}, records[1])
}

func TestCSVRenderer_OneHeaderPerSection(t *testing.T) {
	report, err := Build(fixtures.SampleResult(), AllSections(), sampleHeader(), formatter())
	require.NoError(t, err)
	doc, err := NewCSVRenderer().Layout(report)
	require.NoError(t, err)
	data, err := doc.Encode()
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	var heads int
	for _, rec := range records {
		if rec[0] == "Type" {
			heads++
		}
	}
	assert.Equal(t, 4, heads)
	assert.Len(t, records, 4+5+4+3+1)
	assert.Equal(t, []string{"MATCHED", "2024-03-05", "Amazon.com*Purchase", "AMZ-99", "EXP-45", "84", "-45.99",
		"Posted one day after the ledger entry", "Amazon vs AMZN description similarity, amount identical"}, records[8])
}

func TestWrap(t *testing.T) {
	m := runeMeasurer{}

	assert.Equal(t, []string{"alpha beta", "gamma"}, Wrap(m, "alpha beta gamma", 10, 8, false))
	assert.Equal(t, []string{""}, Wrap(m, "", 10, 8, false))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, Wrap(m, "abcdefghij", 4, 8, false))
	assert.Equal(t, []string{"one", "two"}, Wrap(m, "one\ntwo", 10, 8, false))
}

func TestLayoutPages_NoOrphanedSectionTitles(t *testing.T) {
	spec := A4()
	for n := 1; n <= 60; n++ {
		view := fixtures.SampleResult()
		view.UnmatchedBank = bankRows(n)

		report, err := Build(view, AllSections(), sampleHeader(), formatter())
		require.NoError(t, err)
		layout := LayoutPages(report, spec, runeMeasurer{})

		for _, page := range layout.Pages {
			for i, el := range page.Elements {
				if el.Kind == ElemCell || (el.Kind == ElemRect && el.Role == RoleTableRow) {
					assert.LessOrEqual(t, el.Y+el.H, spec.ContentBottom()+1e-9, "rows=%d page=%d", n, page.Number)
				}
				if el.Role != RoleSectionTitle {
					continue
				}
				var sawHead, sawRow bool
				for _, next := range page.Elements[i+1:] {
					if next.Section != el.Section {
						continue
					}
					sawHead = sawHead || next.Role == RoleTableHead
					sawRow = sawRow || (next.Role == RoleTableRow && next.Kind == ElemCell)
				}
				assert.True(t, sawHead && sawRow, "rows=%d: %q orphaned on page %d", n, el.Text, page.Number)
			}
		}
	}
}

func TestLayoutPages_CutsRowTallerThanPage(t *testing.T) {
	spec := A4()
	rows := bankRows(3)
	rows[0].Description = strings.Repeat("wire transfer narrative ", 800)
	view := &domain.ReconciliationResult{UnmatchedBank: rows}

	report, err := Build(view, Sections{UnmatchedBank: true}, sampleHeader(), formatter())
	require.NoError(t, err)
	layout := LayoutPages(report, spec, runeMeasurer{})

	first := layout.Pages[0]
	var title, head, row *Element
	for i := range first.Elements {
		el := &first.Elements[i]
		switch {
		case el.Role == RoleSectionTitle && title == nil:
			title = el
		case el.Role == RoleTableHead && head == nil:
			head = el
		case el.Role == RoleTableRow && el.Kind == ElemCell && row == nil:
			row = el
		}
	}
	require.NotNil(t, title)
	require.NotNil(t, head, "table head left off the title page")
	require.NotNil(t, row, "first row left off the title page")

	for _, page := range layout.Pages {
		for _, el := range page.Elements {
			if el.Kind == ElemCell {
				assert.LessOrEqual(t, el.Y+el.H, spec.ContentBottom()+1e-9, "page %d", page.Number)
			}
		}
	}

	var description Element
	for _, el := range first.Elements {
		if el.Role == RoleTableRow && el.Kind == ElemCell && strings.HasPrefix(el.Text, "wire transfer") {
			description = el
		}
	}
	require.NotEmpty(t, description.Lines)
	last := description.Lines[len(description.Lines)-1]
	assert.True(t, strings.HasSuffix(last, "..."), "last line %q", last)
	assert.LessOrEqual(t, runeMeasurer{}.StringWidth(last, 8, false), 107-2*cellPadding)
	assert.Equal(t, rows[0].Description, description.Text)
}

func TestLayoutPages_RepeatsTableHeadOnContinuation(t *testing.T) {
	view := &domain.ReconciliationResult{UnmatchedBank: bankRows(150)}
	report, err := Build(view, Sections{UnmatchedBank: true}, sampleHeader(), formatter())
	require.NoError(t, err)

	layout := LayoutPages(report, A4(), runeMeasurer{})
	require.Greater(t, len(layout.Pages), 1)

	var rows int
	for _, page := range layout.Pages {
		firstRow, firstHead := -1, -1
		for i, el := range page.Elements {
			if el.Role == RoleTableHead && firstHead < 0 {
				firstHead = i
			}
			if el.Role == RoleTableRow && el.Kind == ElemCell {
				if firstRow < 0 {
					firstRow = i
				}
				if el.X == A4().Margin {
					rows++
				}
			}
		}
		require.GreaterOrEqual(t, firstHead, 0, "page %d has no table head", page.Number)
		assert.Less(t, firstHead, firstRow)
	}
	assert.Equal(t, 150, rows)
}

func TestLayoutPages_FootersCarryPageCount(t *testing.T) {
	view := &domain.ReconciliationResult{UnmatchedBank: bankRows(90)}
	report, err := Build(view, AllSections(), sampleHeader(), formatter())
	require.NoError(t, err)

	layout := LayoutPages(report, A4(), runeMeasurer{})
	total := len(layout.Pages)
	require.Greater(t, total, 1)

	for _, page := range layout.Pages {
		var footers []string
		for _, el := range page.Elements {
			if el.Role == RoleFooter && el.Kind == ElemText {
				footers = append(footers, el.Text)
			}
		}
		assert.Equal(t, []string{
			fmt.Sprintf("Acme Trading Ltd | Reconciliation Report Pro   Page %d of %d", page.Number, total),
			"Export Date: 02/04/2024",
		}, footers)
	}
}

func TestPDFRenderer_Encode(t *testing.T) {
	report, err := Build(fixtures.SampleResult(), AllSections(), sampleHeader(), formatter())
	require.NoError(t, err)

	r := NewPDFRenderer()
	doc, err := r.Layout(report)
	require.NoError(t, err)
	artifact, err := Finalize(r, doc, report.Header)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(artifact.Data, []byte("%PDF")))
	assert.Equal(t, "application/pdf", artifact.ContentType)
	assert.Equal(t, "Reconciliation_Report_Acme_Trading_Ltd_1712070240000.pdf", artifact.Filename)
}

func TestXLSXRenderer_ReadsBack(t *testing.T) {
	report, err := Build(fixtures.SampleResult(), AllSections(), sampleHeader(), formatter())
	require.NoError(t, err)

	r := NewXLSXRenderer()
	doc, err := r.Layout(report)
	require.NoError(t, err)
	artifact, err := Finalize(r, doc, report.Header)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(artifact.Data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Matches", "Unmatched Bank", "Unmatched Ledger"}, f.GetSheetList())

	title, err := f.GetCellValue("Matches", "A1")
	require.NoError(t, err)
	assert.Equal(t, "2. Verified Matches (4)", title)

	desc, err := f.GetCellValue("Unmatched Ledger", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Interest Income", desc)

	amount, err := f.GetCellValue("Unmatched Ledger", "D3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "12.5", amount)
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		label   string
		company string
		want    string
	}{
		{name: "csv has no timestamp", format: FormatCSV, label: "ReconReport", company: "Acme  Trading\tLtd", want: "ReconReport_Acme_Trading_Ltd.csv"},
		{name: "pdf is timestamped", format: FormatPDF, label: "Reconciliation_Report", company: "Acme", want: "Reconciliation_Report_Acme_1712070240000.pdf"},
		{name: "path separators are dropped", format: FormatCSV, label: "ReconReport", company: "A/B", want: "ReconReport_A_B.csv"},
		{name: "empty company", format: FormatXLSX, label: "Book", company: "  ", want: "Book_1712070240000.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.format, tt.label, tt.company, generatedAt))
		})
	}
}

func TestParseSectionsAndFormat(t *testing.T) {
	s, err := ParseSections([]string{"summary", " Unmatched_Bank "})
	require.NoError(t, err)
	assert.Equal(t, Sections{Summary: true, UnmatchedBank: true}, s)

	s, err = ParseSections([]string{"all"})
	require.NoError(t, err)
	assert.Equal(t, AllSections(), s)

	_, err = ParseSections([]string{"appendix"})
	assert.Error(t, err)

	f, err := ParseFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	_, err = ParseFormat("docx")
	assert.Error(t, err)
	assert.True(t, strings.HasPrefix(NewXLSXRenderer().ContentType(), "application/vnd.openxmlformats"))
}
