package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"recon-report/internal/apperror"
)

// The wire types mirror the declared output schema. Pointers let absent required fields
// be told apart from zero values.
type wireSummary struct {
	TotalMatches          *int             `json:"totalMatches"`
	TotalUnmatchedBank    *int             `json:"totalUnmatchedBank"`
	TotalUnmatchedLedger  *int             `json:"totalUnmatchedLedger"`
	NetDiscrepancy        *decimal.Decimal `json:"netDiscrepancy"`
	MatchedAmount         *decimal.Decimal `json:"matchedAmount"`
	UnmatchedBankAmount   *decimal.Decimal `json:"unmatchedBankAmount"`
	UnmatchedLedgerAmount *decimal.Decimal `json:"unmatchedLedgerAmount"`
	BankStatementBalance  *decimal.Decimal `json:"bankStatementBalance"`
	LedgerBalance         *decimal.Decimal `json:"ledgerBalance"`
	AuditScore            *int             `json:"auditScore"`
}

type wireMatch struct {
	Date            *string          `json:"date"`
	Description     *string          `json:"description"`
	Amount          *decimal.Decimal `json:"amount"`
	BankRef         string           `json:"bankRef"`
	LedgerRef       string           `json:"ledgerRef"`
	MatchConfidence *float64         `json:"matchConfidence"`
	Notes           *string          `json:"notes"`
	Reasoning       string           `json:"reasoning"`
}

type wireTransaction struct {
	Date        *string          `json:"date"`
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Ref         string           `json:"ref"`
	Source      string           `json:"source"`
}

type wireResult struct {
	Summary         *wireSummary      `json:"summary"`
	Matches         []wireMatch       `json:"matches"`
	UnmatchedBank   []wireTransaction `json:"unmatchedBank"`
	UnmatchedLedger []wireTransaction `json:"unmatchedLedger"`
}

func (w *wireResult) Validate() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Summary, validation.NotNil),
		validation.Field(&w.Matches, validation.NotNil),
		validation.Field(&w.UnmatchedBank, validation.NotNil),
		validation.Field(&w.UnmatchedLedger, validation.NotNil),
	)
}

func (s *wireSummary) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.TotalMatches, validation.NotNil),
		validation.Field(&s.TotalUnmatchedBank, validation.NotNil),
		validation.Field(&s.TotalUnmatchedLedger, validation.NotNil),
		validation.Field(&s.NetDiscrepancy, validation.NotNil),
		validation.Field(&s.MatchedAmount, validation.NotNil),
		validation.Field(&s.UnmatchedBankAmount, validation.NotNil),
		validation.Field(&s.UnmatchedLedgerAmount, validation.NotNil),
	)
}

func (m *wireMatch) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.Date, validation.NotNil),
		validation.Field(&m.Description, validation.NotNil),
		validation.Field(&m.Amount, validation.NotNil),
		validation.Field(&m.MatchConfidence, validation.NotNil),
		validation.Field(&m.Notes, validation.NotNil),
	)
}

func (t *wireTransaction) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Date, validation.NotNil),
		validation.Field(&t.Description, validation.NotNil),
		validation.Field(&t.Amount, validation.NotNil),
		validation.Field(&t.Source, validation.In(string(SourceBank), string(SourceLedger))),
	)
}

// ParseResult decodes a matcher payload and validates it against the record model.
// Any absent required field, unknown field, or unresolvable date rejects the whole payload.
func ParseResult(payload []byte) (*ReconciliationResult, error) {
	var wire wireResult
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return nil, apperror.Wrap(apperror.ErrMalformedOutput, "could not decode reconciliation result", err)
	}

	if err := wire.checkPresence(); err != nil {
		return nil, apperror.Wrap(apperror.ErrValidationFailed, "reconciliation result rejected", err)
	}

	result := wire.toDomain()
	if err := result.Validate(); err != nil {
		return nil, apperror.Wrap(apperror.ErrValidationFailed, "reconciliation result rejected", err)
	}
	return result, nil
}

func (w *wireResult) checkPresence() error {
	if err := w.Validate(); err != nil {
		return err
	}
	if err := w.Summary.Validate(); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	for i := range w.Matches {
		if err := w.Matches[i].Validate(); err != nil {
			return fmt.Errorf("matches[%d]: %w", i, err)
		}
	}
	for i := range w.UnmatchedBank {
		if err := w.UnmatchedBank[i].Validate(); err != nil {
			return fmt.Errorf("unmatchedBank[%d]: %w", i, err)
		}
	}
	for i := range w.UnmatchedLedger {
		if err := w.UnmatchedLedger[i].Validate(); err != nil {
			return fmt.Errorf("unmatchedLedger[%d]: %w", i, err)
		}
	}
	return nil
}

func (w *wireResult) toDomain() *ReconciliationResult {
	s := w.Summary
	result := &ReconciliationResult{
		Summary: Summary{
			TotalMatches:          *s.TotalMatches,
			TotalUnmatchedBank:    *s.TotalUnmatchedBank,
			TotalUnmatchedLedger:  *s.TotalUnmatchedLedger,
			NetDiscrepancy:        *s.NetDiscrepancy,
			MatchedAmount:         *s.MatchedAmount,
			UnmatchedBankAmount:   *s.UnmatchedBankAmount,
			UnmatchedLedgerAmount: *s.UnmatchedLedgerAmount,
			AuditScore:            s.AuditScore,
		},
		Matches:         make([]MatchedPair, 0, len(w.Matches)),
		UnmatchedBank:   make([]Transaction, 0, len(w.UnmatchedBank)),
		UnmatchedLedger: make([]Transaction, 0, len(w.UnmatchedLedger)),
	}
	if s.BankStatementBalance != nil {
		result.Summary.BankStatementBalance = decimal.NewNullDecimal(*s.BankStatementBalance)
	}
	if s.LedgerBalance != nil {
		result.Summary.LedgerBalance = decimal.NewNullDecimal(*s.LedgerBalance)
	}

	for _, m := range w.Matches {
		result.Matches = append(result.Matches, MatchedPair{
			Entry:           entryOf(*m.Date, *m.Description, *m.Amount),
			BankRef:         m.BankRef,
			LedgerRef:       m.LedgerRef,
			MatchConfidence: *m.MatchConfidence,
			Notes:           *m.Notes,
			Reasoning:       m.Reasoning,
		})
	}
	for _, t := range w.UnmatchedBank {
		result.UnmatchedBank = append(result.UnmatchedBank, Transaction{
			Entry:  entryOf(*t.Date, *t.Description, *t.Amount),
			Ref:    t.Ref,
			Source: sourceOr(t.Source, SourceBank),
		})
	}
	for _, t := range w.UnmatchedLedger {
		result.UnmatchedLedger = append(result.UnmatchedLedger, Transaction{
			Entry:  entryOf(*t.Date, *t.Description, *t.Amount),
			Ref:    t.Ref,
			Source: sourceOr(t.Source, SourceLedger),
		})
	}
	return result
}

// sourceOr keeps a declared source so a record filed under the wrong side is rejected.
func sourceOr(declared string, side Source) Source {
	if declared == "" {
		return side
	}
	return Source(declared)
}

// entryOf keeps an unresolvable date as is so Validate reports it.
func entryOf(date, description string, amount decimal.Decimal) Entry {
	if normalized, err := NormalizeDate(date); err == nil {
		date = normalized
	}
	return Entry{Date: date, Description: description, Amount: amount}
}
