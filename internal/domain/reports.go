package domain

import "github.com/shopspring/decimal"

// Summary holds the figures derived from a reconciliation.
//
// MatchedAmount, UnmatchedBankAmount and UnmatchedLedgerAmount always equal the sums of the
// respective collections. NetDiscrepancy is the matcher's declared residual and is reported as is.
type Summary struct {
	TotalMatches          int                 `json:"totalMatches"`
	TotalUnmatchedBank    int                 `json:"totalUnmatchedBank"`
	TotalUnmatchedLedger  int                 `json:"totalUnmatchedLedger"`
	NetDiscrepancy        decimal.Decimal     `json:"netDiscrepancy"`
	MatchedAmount         decimal.Decimal     `json:"matchedAmount"`
	UnmatchedBankAmount   decimal.Decimal     `json:"unmatchedBankAmount"`
	UnmatchedLedgerAmount decimal.Decimal     `json:"unmatchedLedgerAmount"`
	BankStatementBalance  decimal.NullDecimal `json:"bankStatementBalance"`
	LedgerBalance         decimal.NullDecimal `json:"ledgerBalance"`
	AuditScore            *int                `json:"auditScore,omitempty"`
}

// ReconciliationResult is the single output of a matching call.
// It is treated as immutable once built; filters and aggregations return new values.
type ReconciliationResult struct {
	Summary         Summary       `json:"summary"`
	Matches         []MatchedPair `json:"matches"`
	UnmatchedBank   []Transaction `json:"unmatchedBank"`
	UnmatchedLedger []Transaction `json:"unmatchedLedger"`
}
