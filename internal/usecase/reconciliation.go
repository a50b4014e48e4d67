package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"recon-report/internal/aggregate"
	"recon-report/internal/apperror"
	"recon-report/internal/domain"
)

// Reconcile reads both documents and sends them to the matcher. mode may be empty to use the
// configured default.
func (s *ReportSession) Reconcile(ctx context.Context, bankPath, ledgerPath string, mode domain.MatchMode) (*domain.ReconciliationResult, error) {
	if s.docs == nil {
		return nil, apperror.New(apperror.ErrUnsupported, "session has no document repository")
	}

	// Step 1: Document ingestion
	bank, err := s.docs.GetDocument(ctx, bankPath)
	if err != nil {
		return nil, fmt.Errorf("could not get bank document: %w", err)
	}
	ledger, err := s.docs.GetDocument(ctx, ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("could not get ledger document: %w", err)
	}

	// Step 2: Matching
	return s.ReconcileDocuments(ctx, bank, ledger, mode)
}

// ReconcileDocuments sends already normalized documents to the matcher and loads the result.
// Collaborator failures are never retried here.
func (s *ReportSession) ReconcileDocuments(ctx context.Context, bank, ledger domain.Document, mode domain.MatchMode) (*domain.ReconciliationResult, error) {
	if s.matcher == nil {
		return nil, apperror.New(apperror.ErrUnsupported, "session has no matcher")
	}
	if mode == "" {
		mode = s.settings.DefaultMode
	}
	if !mode.IsValid() {
		return nil, apperror.New(apperror.ErrInvalidInput, fmt.Sprintf("unknown match mode %q", mode))
	}

	log := s.log.WithFields(logrus.Fields{
		"bank":   bank.Filename,
		"ledger": ledger.Filename,
		"mode":   mode,
	})
	log.Info("requesting reconciliation")

	payload, err := s.matcher.Match(ctx, domain.MatchRequest{Bank: bank, Ledger: ledger, Mode: mode})
	if err != nil {
		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			err = apperror.Wrap(apperror.ErrMatcherUnavailable, "matching failed", err)
		}
		log.WithError(err).Warn("matcher call failed")
		return nil, err
	}

	// Step 3: Ingestion validation
	return s.Load(payload)
}

// Load validates a result payload and makes it the current result. The declared summary counts
// and sums are checked against the records and replaced when they disagree; the net discrepancy
// is kept as declared.
func (s *ReportSession) Load(payload []byte) (*domain.ReconciliationResult, error) {
	result, err := domain.ParseResult(payload)
	if err != nil {
		s.log.WithError(err).Warn("reconciliation result rejected")
		return nil, err
	}

	derived := aggregate.ComputeTotals(result)
	if declared := aggregate.FromSummary(result.Summary); !declared.Equal(derived) {
		s.log.WithFields(logrus.Fields{
			"declared": declared,
			"derived":  derived,
		}).Warn("declared summary disagrees with records, using derived totals")
		result.Summary = derived.Apply(result.Summary)
	}

	s.replace(result)
	s.log.WithFields(logrus.Fields{
		"matches":          derived.TotalMatches,
		"unmatched_bank":   derived.TotalUnmatchedBank,
		"unmatched_ledger": derived.TotalUnmatchedLedger,
	}).Info("reconciliation result loaded")
	return result, nil
}
