// Package export turns a filtered reconciliation into downloadable artifacts.
//
// Export runs in three steps. Build formats the selected sections into tables (the format
// phase). A Renderer lays the tables out into a Document (the layout phase). Encoding the
// Document produces the artifact bytes (the finalize phase). Nothing is written anywhere
// until the caller holds a complete Artifact.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"recon-report/internal/aggregate"
	"recon-report/internal/apperror"
	"recon-report/internal/domain"
)

// SectionID names one of the four report divisions.
type SectionID string

const (
	SectionSummary         SectionID = "summary"
	SectionMatches         SectionID = "matches"
	SectionUnmatchedBank   SectionID = "unmatched_bank"
	SectionUnmatchedLedger SectionID = "unmatched_ledger"
)

// Sections holds the per-section export toggles.
type Sections struct {
	Summary         bool `json:"summary"`
	Matches         bool `json:"matches"`
	UnmatchedBank   bool `json:"unmatchedBank"`
	UnmatchedLedger bool `json:"unmatchedLedger"`
}

// AllSections selects every section.
func AllSections() Sections {
	return Sections{Summary: true, Matches: true, UnmatchedBank: true, UnmatchedLedger: true}
}

// Any reports whether at least one section is selected.
func (s Sections) Any() bool {
	return s.Summary || s.Matches || s.UnmatchedBank || s.UnmatchedLedger
}

// ParseSections builds a selection from section ids such as "summary" or "unmatched_bank".
// "all" selects everything.
func ParseSections(ids []string) (Sections, error) {
	var s Sections
	for _, raw := range ids {
		switch id := SectionID(strings.ToLower(strings.TrimSpace(raw))); id {
		case "":
		case "all":
			s = AllSections()
		case SectionSummary:
			s.Summary = true
		case SectionMatches:
			s.Matches = true
		case SectionUnmatchedBank:
			s.UnmatchedBank = true
		case SectionUnmatchedLedger:
			s.UnmatchedLedger = true
		default:
			return Sections{}, fmt.Errorf("unknown report section %q", raw)
		}
	}
	return s, nil
}

// Header is the metadata printed on every report.
type Header struct {
	CompanyName    string    `json:"companyName"`
	AsAtDate       string    `json:"asAtDate"`
	Label          string    `json:"label,omitempty"`
	Classification string    `json:"classification,omitempty"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// CellKind decides how a cell is aligned and how spreadsheet renderers store it.
type CellKind int

const (
	CellText CellKind = iota
	CellNumber
	CellMoney
)

// Align is the horizontal alignment of a cell.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Cell is one formatted table value. Text is for display, Raw is machine readable.
type Cell struct {
	Kind   CellKind
	Text   string
	Raw    string
	Amount decimal.Decimal
}

// Align returns right alignment for numeric and monetary cells, left otherwise.
func (c Cell) Align() Align {
	if c.Kind == CellText {
		return AlignLeft
	}
	return AlignRight
}

// Column describes one table column. Width is in millimetres on the paged document.
// Detail columns only appear in tabular exports.
type Column struct {
	Title  string
	Width  float64
	Kind   CellKind
	Detail bool
}

// Table is one rendered section.
type Table struct {
	Section SectionID
	Code    string
	Title   string
	Columns []Column
	Rows    [][]Cell
}

// Report is the formatted, renderer-independent content of an export.
type Report struct {
	Header Header
	Tables []Table
}

// Build formats the selected sections of view.
//
// A section is skipped when its toggle is off or its collection is empty, except the summary
// which is always rendered when selected. Selecting nothing is rejected before any formatting.
func Build(view *domain.ReconciliationResult, sections Sections, header Header, f aggregate.Formatter) (*Report, error) {
	if !sections.Any() {
		return nil, apperror.New(apperror.ErrNothingSelected, "no report section selected")
	}

	report := &Report{Header: header}
	if sections.Summary {
		report.Tables = append(report.Tables, summaryTable(view, f))
	}
	if sections.Matches && len(view.Matches) > 0 {
		report.Tables = append(report.Tables, matchesTable(view.Matches, f))
	}
	if sections.UnmatchedBank && len(view.UnmatchedBank) > 0 {
		report.Tables = append(report.Tables, unmatchedTable(SectionUnmatchedBank, view.UnmatchedBank, f))
	}
	if sections.UnmatchedLedger && len(view.UnmatchedLedger) > 0 {
		report.Tables = append(report.Tables, unmatchedTable(SectionUnmatchedLedger, view.UnmatchedLedger, f))
	}
	return report, nil
}

func textCell(s string) Cell {
	return Cell{Kind: CellText, Text: s, Raw: s}
}

func countCell(n int) Cell {
	s := strconv.Itoa(n)
	return Cell{Kind: CellNumber, Text: s, Raw: s, Amount: decimal.NewFromInt(int64(n))}
}

func moneyCell(amount decimal.Decimal, f aggregate.Formatter) Cell {
	return Cell{Kind: CellMoney, Text: f.Format(amount), Raw: amount.StringFixed(2), Amount: amount}
}

func confidenceCell(v float64) Cell {
	raw := strconv.FormatFloat(v, 'f', -1, 64)
	return Cell{Kind: CellNumber, Text: raw + "%", Raw: raw, Amount: decimal.NewFromFloat(v)}
}

func summaryTable(view *domain.ReconciliationResult, f aggregate.Formatter) Table {
	totals := aggregate.ComputeTotals(view)
	return Table{
		Section: SectionSummary,
		Code:    "SUMMARY",
		Title:   "1. Executive Summary",
		Columns: []Column{
			{Title: "Metric", Width: 92, Kind: CellText},
			{Title: "Transaction Count", Width: 40, Kind: CellNumber},
			{Title: "Net Value", Width: 50, Kind: CellMoney},
		},
		Rows: [][]Cell{
			{textCell("Successfully Matched"), countCell(totals.TotalMatches), moneyCell(totals.MatchedAmount, f)},
			{textCell("Outstanding Bank Items"), countCell(totals.TotalUnmatchedBank), moneyCell(totals.UnmatchedBankAmount, f)},
			{textCell("Outstanding Ledger Items"), countCell(totals.TotalUnmatchedLedger), moneyCell(totals.UnmatchedLedgerAmount, f)},
			{textCell("Net Discrepancy (declared)"), textCell(""), moneyCell(view.Summary.NetDiscrepancy, f)},
			{textCell("Closing Balance Variance"), textCell(""), moneyCell(aggregate.Variance(view.Summary), f)},
		},
	}
}

func matchesTable(matches []domain.MatchedPair, f aggregate.Formatter) Table {
	t := Table{
		Section: SectionMatches,
		Code:    "MATCHED",
		Title:   fmt.Sprintf("2. Verified Matches (%d)", len(matches)),
		Columns: []Column{
			{Title: "Date", Width: 22, Kind: CellText},
			{Title: "Description", Width: 62, Kind: CellText},
			{Title: "Bank Reference", Width: 24, Kind: CellText},
			{Title: "Ledger Reference", Width: 24, Kind: CellText},
			{Title: "Confidence", Width: 20, Kind: CellNumber},
			{Title: "Amount", Width: 30, Kind: CellMoney},
			{Title: "Notes", Kind: CellText, Detail: true},
			{Title: "Reasoning", Kind: CellText, Detail: true},
		},
	}
	for _, m := range matches {
		t.Rows = append(t.Rows, []Cell{
			textCell(m.Date),
			textCell(m.Description),
			textCell(m.BankRef),
			textCell(m.LedgerRef),
			confidenceCell(m.MatchConfidence),
			moneyCell(m.Amount, f),
			textCell(m.Notes),
			textCell(m.Reasoning),
		})
	}
	return t
}

func unmatchedTable(section SectionID, txs []domain.Transaction, f aggregate.Formatter) Table {
	t := Table{
		Section: section,
		Columns: []Column{
			{Title: "Date", Width: 25, Kind: CellText},
			{Title: "Description", Width: 107, Kind: CellText},
			{Title: "Reference", Width: 20, Kind: CellText},
			{Title: "Value", Width: 30, Kind: CellMoney},
		},
	}
	if section == SectionUnmatchedBank {
		t.Code = "UNMATCHED_BANK"
		t.Title = fmt.Sprintf("3. Unmatched Bank Statement Items (%d)", len(txs))
		t.Columns[1].Title = "Transaction Description"
	} else {
		t.Code = "UNMATCHED_LEDGER"
		t.Title = fmt.Sprintf("4. Unmatched Internal Ledger Entries (%d)", len(txs))
		t.Columns[1].Title = "General Ledger Description"
	}
	for _, tx := range txs {
		t.Rows = append(t.Rows, []Cell{
			textCell(tx.Date),
			textCell(tx.Description),
			textCell(tx.Ref),
			moneyCell(tx.Amount, f),
		})
	}
	return t
}

// PagedColumns returns the indexes of the columns shown on the paged document.
func (t Table) PagedColumns() []int {
	idx := make([]int, 0, len(t.Columns))
	for i, c := range t.Columns {
		if !c.Detail {
			idx = append(idx, i)
		}
	}
	return idx
}
