// Package filter narrows the three record collections of a reconciliation result.
//
// Predicates combine with AND and never touch the source collections. Dates are compared as
// strings, which is only valid because ingestion normalizes every date to YYYY-MM-DD.
// A filter that nothing can satisfy (for instance an end date before the start date) is not
// an error: it simply yields empty collections.
package filter

import (
	"fmt"
	"strings"

	"recon-report/internal/domain"
)

// Category restricts records by amount sign.
type Category string

const (
	CategoryAll     Category = "all"
	CategoryInflow  Category = "inflow"
	CategoryOutflow Category = "outflow"
)

// ParseCategory accepts "all", "inflow" and "outflow". An empty string means all.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CategoryAll:
		return CategoryAll, nil
	case CategoryInflow, CategoryOutflow:
		return c, nil
	default:
		return "", fmt.Errorf("unknown transaction category %q", s)
	}
}

// Status keeps only one of the collections, as the detailed table view does.
type Status string

const (
	StatusAll             Status = "all"
	StatusMatched         Status = "matched"
	StatusUnmatchedBank   Status = "unmatched_bank"
	StatusUnmatchedLedger Status = "unmatched_ledger"
)

// ParseStatus accepts the four table scopes. An empty string means all.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case "", StatusAll:
		return StatusAll, nil
	case StatusMatched, StatusUnmatchedBank, StatusUnmatchedLedger:
		return st, nil
	default:
		return "", fmt.Errorf("unknown record status %q", s)
	}
}

// Criteria is the full filter state. The zero value lets everything through.
type Criteria struct {
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate,omitempty"`
	Category  Category `json:"category,omitempty"`
	Text      string   `json:"text,omitempty"`
	Status    Status   `json:"status,omitempty"`
}

// Normalize parses the category and status of c and brings both dates to YYYY-MM-DD.
// Criteria decoded straight from a request must pass through it before use.
func Normalize(c Criteria) (Criteria, error) {
	var err error
	if c.Category, err = ParseCategory(string(c.Category)); err != nil {
		return c, err
	}
	if c.Status, err = ParseStatus(string(c.Status)); err != nil {
		return c, err
	}
	if c.StartDate != "" {
		if c.StartDate, err = domain.NormalizeDate(c.StartDate); err != nil {
			return c, fmt.Errorf("invalid start date: %w", err)
		}
	}
	if c.EndDate != "" {
		if c.EndDate, err = domain.NormalizeDate(c.EndDate); err != nil {
			return c, fmt.Errorf("invalid end date: %w", err)
		}
	}
	return c, nil
}

// Match reports whether a single record passes every predicate.
func (c Criteria) Match(r domain.Record) bool {
	e := r.Base()
	return c.matchDate(e.Date) && c.matchCategory(e) && c.matchText(e.Description, r.SearchFields())
}

func (c Criteria) matchDate(date string) bool {
	return (c.StartDate == "" || date >= c.StartDate) && (c.EndDate == "" || date <= c.EndDate)
}

func (c Criteria) matchCategory(e domain.Entry) bool {
	switch c.Category {
	case "", CategoryAll:
		return true
	case CategoryInflow:
		return e.Amount.IsPositive()
	case CategoryOutflow:
		return e.Amount.IsNegative()
	default:
		return false
	}
}

func (c Criteria) matchText(description string, fields []string) bool {
	needle := strings.ToLower(strings.TrimSpace(c.Text))
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(description), needle) {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func (c Criteria) keeps(s Status) bool {
	return c.Status == "" || c.Status == StatusAll || c.Status == s
}

// Apply returns a new result holding the records of result that pass c.
// The summary is carried over untouched; collection order is preserved.
func Apply(result *domain.ReconciliationResult, c Criteria) *domain.ReconciliationResult {
	out := &domain.ReconciliationResult{Summary: result.Summary}
	if c.keeps(StatusMatched) {
		out.Matches = Records(result.Matches, c)
	} else {
		out.Matches = emptyLike(result.Matches)
	}
	if c.keeps(StatusUnmatchedBank) {
		out.UnmatchedBank = Records(result.UnmatchedBank, c)
	} else {
		out.UnmatchedBank = emptyLike(result.UnmatchedBank)
	}
	if c.keeps(StatusUnmatchedLedger) {
		out.UnmatchedLedger = Records(result.UnmatchedLedger, c)
	} else {
		out.UnmatchedLedger = emptyLike(result.UnmatchedLedger)
	}
	return out
}

// Records filters one collection into a new slice. A nil input stays nil.
func Records[T domain.Record](records []T, c Criteria) []T {
	if records == nil {
		return nil
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func emptyLike[T any](records []T) []T {
	if records == nil {
		return nil
	}
	return []T{}
}
