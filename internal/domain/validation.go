package domain

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// NormalizeDate resolves s to a YYYY-MM-DD calendar date. RFC3339 timestamps are truncated to their date.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d.Format(time.DateOnly), nil
	}
	if d, err := time.Parse(time.RFC3339, s); err == nil {
		return d.Format(time.DateOnly), nil
	}
	return "", fmt.Errorf("%q is not a calendar date", s)
}

// Validate requires a YYYY-MM-DD date.
func (e Entry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Date, validation.Required, validation.Date(time.DateOnly)),
	)
}

// Validate checks the entry and requires a known source.
func (t Transaction) Validate() error {
	if err := t.Entry.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&t,
		validation.Field(&t.Source, validation.In(SourceBank, SourceLedger)),
	)
}

// Validate checks the entry and keeps the confidence within 0 to 100.
func (m MatchedPair) Validate() error {
	if err := m.Entry.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&m,
		validation.Field(&m.MatchConfidence, validation.Min(0.0), validation.Max(100.0)),
	)
}

// Validate rejects negative counts and an audit score above 100.
func (s Summary) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.TotalMatches, validation.Min(0)),
		validation.Field(&s.TotalUnmatchedBank, validation.Min(0)),
		validation.Field(&s.TotalUnmatchedLedger, validation.Min(0)),
		validation.Field(&s.AuditScore, validation.Min(0), validation.Max(100)),
	)
}

// Validate checks every record of the result. The first failing record rejects the whole result.
func (r *ReconciliationResult) Validate() error {
	if err := r.Summary.Validate(); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	for i, m := range r.Matches {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("matches[%d]: %w", i, err)
		}
	}
	if err := validateSide("unmatchedBank", r.UnmatchedBank, KindBank); err != nil {
		return err
	}
	return validateSide("unmatchedLedger", r.UnmatchedLedger, KindLedger)
}

func validateSide(name string, txs []Transaction, kind RecordKind) error {
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		if tx.Source != "" && tx.Kind() != kind {
			return fmt.Errorf("%s[%d]: source %q does not belong to this side", name, i, tx.Source)
		}
	}
	return nil
}
