// Package aggregate derives the summary figures, rankings and dashboard view of a reconciliation.
// Every function here is pure and leaves its input untouched.
package aggregate

import (
	"github.com/shopspring/decimal"

	"recon-report/internal/domain"
)

// Totals are the counts and sums that can be derived from the records alone.
type Totals struct {
	TotalMatches          int             `json:"totalMatches"`
	TotalUnmatchedBank    int             `json:"totalUnmatchedBank"`
	TotalUnmatchedLedger  int             `json:"totalUnmatchedLedger"`
	MatchedAmount         decimal.Decimal `json:"matchedAmount"`
	UnmatchedBankAmount   decimal.Decimal `json:"unmatchedBankAmount"`
	UnmatchedLedgerAmount decimal.Decimal `json:"unmatchedLedgerAmount"`
}

// Equal compares counts exactly and amounts by value.
func (t Totals) Equal(o Totals) bool {
	return t.TotalMatches == o.TotalMatches &&
		t.TotalUnmatchedBank == o.TotalUnmatchedBank &&
		t.TotalUnmatchedLedger == o.TotalUnmatchedLedger &&
		t.MatchedAmount.Equal(o.MatchedAmount) &&
		t.UnmatchedBankAmount.Equal(o.UnmatchedBankAmount) &&
		t.UnmatchedLedgerAmount.Equal(o.UnmatchedLedgerAmount)
}

// ComputeTotals counts and sums the three collections of result.
func ComputeTotals(result *domain.ReconciliationResult) Totals {
	if result == nil {
		return Totals{}
	}
	return Totals{
		TotalMatches:          len(result.Matches),
		TotalUnmatchedBank:    len(result.UnmatchedBank),
		TotalUnmatchedLedger:  len(result.UnmatchedLedger),
		MatchedAmount:         sum(result.Matches),
		UnmatchedBankAmount:   sum(result.UnmatchedBank),
		UnmatchedLedgerAmount: sum(result.UnmatchedLedger),
	}
}

// FromSummary reads the derivable figures a summary declares.
func FromSummary(s domain.Summary) Totals {
	return Totals{
		TotalMatches:          s.TotalMatches,
		TotalUnmatchedBank:    s.TotalUnmatchedBank,
		TotalUnmatchedLedger:  s.TotalUnmatchedLedger,
		MatchedAmount:         s.MatchedAmount,
		UnmatchedBankAmount:   s.UnmatchedBankAmount,
		UnmatchedLedgerAmount: s.UnmatchedLedgerAmount,
	}
}

// Apply returns a copy of s with the derivable figures replaced by t.
// NetDiscrepancy, the balances and the audit score are carried over unchanged.
func (t Totals) Apply(s domain.Summary) domain.Summary {
	s.TotalMatches = t.TotalMatches
	s.TotalUnmatchedBank = t.TotalUnmatchedBank
	s.TotalUnmatchedLedger = t.TotalUnmatchedLedger
	s.MatchedAmount = t.MatchedAmount
	s.UnmatchedBankAmount = t.UnmatchedBankAmount
	s.UnmatchedLedgerAmount = t.UnmatchedLedgerAmount
	return s
}

func sum[T domain.Record](records []T) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Base().Amount)
	}
	return total
}

// Variance is the absolute difference between the reported closing balances.
// A missing balance counts as zero. It is independent of the declared net discrepancy.
func Variance(s domain.Summary) decimal.Decimal {
	bank := decimal.Zero
	if s.BankStatementBalance.Valid {
		bank = s.BankStatementBalance.Decimal
	}
	ledger := decimal.Zero
	if s.LedgerBalance.Valid {
		ledger = s.LedgerBalance.Decimal
	}
	return bank.Sub(ledger).Abs()
}
