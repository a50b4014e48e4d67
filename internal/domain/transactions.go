package domain

import (
	"github.com/shopspring/decimal"
)

// Source identifies which side of the reconciliation a transaction came from.
type Source string

const (
	SourceBank   Source = "Bank"
	SourceLedger Source = "Ledger"
)

// RecordKind tags every record the engine handles.
type RecordKind string

const (
	KindBank    RecordKind = "bank"
	KindLedger  RecordKind = "ledger"
	KindMatched RecordKind = "matched"
)

// Entry is the shape shared by every record kind.
// Date is always normalized to YYYY-MM-DD. Amount is signed: inflow positive, outflow negative.
type Entry struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Record is implemented by Transaction and MatchedPair.
type Record interface {
	Kind() RecordKind
	Base() Entry
	// SearchFields returns the optional fields free-text search looks at besides the description.
	// Absent fields are omitted.
	SearchFields() []string
}

// Transaction represents a single unmatched item on one side.
type Transaction struct {
	Entry
	Ref    string `json:"ref,omitempty"`
	Source Source `json:"source,omitempty"`
}

// Kind reports bank or ledger depending on the transaction's source.
func (t Transaction) Kind() RecordKind {
	if t.Source == SourceLedger {
		return KindLedger
	}
	return KindBank
}

// Base returns the shared entry.
func (t Transaction) Base() Entry { return t.Entry }

// SearchFields returns the reference when present.
func (t Transaction) SearchFields() []string {
	if t.Ref == "" {
		return nil
	}
	return []string{t.Ref}
}

// MatchedPair is one reconciled correspondence between a bank record and a ledger record.
// Amount is the value agreed by both sides. MatchConfidence is advisory and never used in arithmetic.
type MatchedPair struct {
	Entry
	BankRef         string  `json:"bankRef,omitempty"`
	LedgerRef       string  `json:"ledgerRef,omitempty"`
	MatchConfidence float64 `json:"matchConfidence"`
	Notes           string  `json:"notes"`
	Reasoning       string  `json:"reasoning,omitempty"`
}

// Kind always reports KindMatched.
func (m MatchedPair) Kind() RecordKind { return KindMatched }

// Base returns the shared entry.
func (m MatchedPair) Base() Entry { return m.Entry }

// SearchFields returns notes and references that are present.
func (m MatchedPair) SearchFields() []string {
	var fields []string
	for _, f := range []string{m.Notes, m.BankRef, m.LedgerRef} {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// ConfidenceBand buckets a match confidence for display.
type ConfidenceBand string

const (
	ConfidenceHigh   ConfidenceBand = "high"
	ConfidenceMedium ConfidenceBand = "medium"
	ConfidenceLow    ConfidenceBand = "low"
)

// Band returns the display band of the match confidence.
func (m MatchedPair) Band() ConfidenceBand {
	switch {
	case m.MatchConfidence >= 90:
		return ConfidenceHigh
	case m.MatchConfidence >= 70:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
