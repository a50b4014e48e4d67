package aggregate

import (
	"github.com/shopspring/decimal"

	"recon-report/internal/domain"
)

// DefaultTopN is the number of unmatched items the dashboard ranks.
const DefaultTopN = 5

// Slice is one labelled value of a dashboard chart.
type Slice struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
	Label string          `json:"label"`
}

// Dashboard is the read model behind the overview screen.
type Dashboard struct {
	Totals         Totals              `json:"totals"`
	TotalItems     int                 `json:"totalItems"`
	CountBreakdown []Slice             `json:"countBreakdown"`
	AmountCompare  []Slice             `json:"amountComparison"`
	TopUnmatched   []RankedTransaction `json:"topUnmatched"`
	BankBalance    decimal.Decimal     `json:"bankStatementBalance"`
	LedgerBalance  decimal.Decimal     `json:"ledgerBalance"`
	Variance       decimal.Decimal     `json:"variance"`
	NetDiscrepancy decimal.Decimal     `json:"netDiscrepancy"`
	AuditScore     *int                `json:"auditScore,omitempty"`
}

// BuildDashboard computes the dashboard for result. Labels are rendered with f.
// A nil result yields the zero Dashboard.
func BuildDashboard(result *domain.ReconciliationResult, topN int, f Formatter) Dashboard {
	if result == nil {
		return Dashboard{}
	}
	totals := ComputeTotals(result)
	s := result.Summary

	counts := []Slice{
		{Name: "Matched", Value: decimal.NewFromInt(int64(totals.TotalMatches))},
		{Name: "Unmatched (Bank)", Value: decimal.NewFromInt(int64(totals.TotalUnmatchedBank))},
		{Name: "Unmatched (Ledger)", Value: decimal.NewFromInt(int64(totals.TotalUnmatchedLedger))},
	}
	for i := range counts {
		counts[i].Label = counts[i].Value.String()
	}

	amounts := []Slice{
		{Name: "Matched", Value: totals.MatchedAmount},
		{Name: "Bank", Value: totals.UnmatchedBankAmount},
		{Name: "Ledger", Value: totals.UnmatchedLedgerAmount},
	}
	for i := range amounts {
		amounts[i].Label = f.Format(amounts[i].Value)
	}

	d := Dashboard{
		Totals:         totals,
		TotalItems:     totals.TotalMatches + totals.TotalUnmatchedBank + totals.TotalUnmatchedLedger,
		CountBreakdown: counts,
		AmountCompare:  amounts,
		TopUnmatched:   TopUnmatched(result.UnmatchedBank, result.UnmatchedLedger, topN),
		Variance:       Variance(s),
		NetDiscrepancy: s.NetDiscrepancy,
		AuditScore:     s.AuditScore,
	}
	if s.BankStatementBalance.Valid {
		d.BankBalance = s.BankStatementBalance.Decimal
	}
	if s.LedgerBalance.Valid {
		d.LedgerBalance = s.LedgerBalance.Decimal
	}
	return d
}
