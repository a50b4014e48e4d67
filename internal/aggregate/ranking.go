package aggregate

import (
	"sort"

	"recon-report/internal/domain"
)

// RankedTransaction is an unmatched item tagged with the side it came from.
type RankedTransaction struct {
	domain.Transaction
	Side domain.Source `json:"side"`
}

// TopUnmatched merges both unmatched collections and returns the n items with the
// largest absolute amount. Ties keep bank items before ledger items, then input order.
func TopUnmatched(unmatchedBank, unmatchedLedger []domain.Transaction, n int) []RankedTransaction {
	if n <= 0 {
		return []RankedTransaction{}
	}

	merged := make([]RankedTransaction, 0, len(unmatchedBank)+len(unmatchedLedger))
	for _, tx := range unmatchedBank {
		merged = append(merged, RankedTransaction{Transaction: tx, Side: domain.SourceBank})
	}
	for _, tx := range unmatchedLedger {
		merged = append(merged, RankedTransaction{Transaction: tx, Side: domain.SourceLedger})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Amount.Abs().GreaterThan(merged[j].Amount.Abs())
	})

	if len(merged) > n {
		merged = merged[:n]
	}
	return merged
}
