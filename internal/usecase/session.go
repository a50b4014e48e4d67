package usecase

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"recon-report/internal/aggregate"
	"recon-report/internal/apperror"
	"recon-report/internal/domain"
	"recon-report/internal/export"
	"recon-report/internal/filter"
)

// ReportSettings carries the report configuration a session needs. It is injected once and
// never read from global state.
type ReportSettings struct {
	CompanyName      string
	AsAtDate         string
	Classification   string
	Currency         aggregate.Formatter
	DocumentCurrency aggregate.Formatter
	Labels           map[export.Format]string
	TopN             int
	DefaultMode      domain.MatchMode
}

// DefaultReportSettings is used when no configuration is supplied.
func DefaultReportSettings() ReportSettings {
	return ReportSettings{
		Currency:    aggregate.NewFormatter(aggregate.DefaultCurrencySymbol),
		TopN:        aggregate.DefaultTopN,
		DefaultMode: domain.ModePrecise,
	}
}

// RendererFactory returns the renderer for an export format.
type RendererFactory func(export.Format) (export.Renderer, error)

// ReportSession owns the current reconciliation result of one user session.
//
// The result is replaced as a whole and only by a successful reconcile or load; a failed
// operation leaves the previous result in place. At most one export runs at a time.
type ReportSession struct {
	id        string
	docs      DocumentRepository
	matcher   Matcher
	settings  ReportSettings
	renderers RendererFactory
	log       *logrus.Entry
	now       func() time.Time

	mu     sync.RWMutex
	result *domain.ReconciliationResult

	exporting atomic.Bool
}

// Option customizes a ReportSession.
type Option func(*ReportSession)

// WithLogger sets the logger the session writes to.
func WithLogger(log *logrus.Entry) Option {
	return func(s *ReportSession) { s.log = log }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *ReportSession) { s.now = now }
}

// WithRenderers replaces the export renderer lookup.
func WithRenderers(f RendererFactory) Option {
	return func(s *ReportSession) { s.renderers = f }
}

// WithID fixes the session id.
func WithID(id string) Option {
	return func(s *ReportSession) { s.id = id }
}

// NewReportSession creates an empty session. docs and matcher may be nil when results are
// only loaded from payloads.
func NewReportSession(docs DocumentRepository, matcher Matcher, settings ReportSettings, opts ...Option) *ReportSession {
	if settings.TopN <= 0 {
		settings.TopN = aggregate.DefaultTopN
	}
	if settings.Currency.Symbol == "" {
		settings.Currency = aggregate.NewFormatter(aggregate.DefaultCurrencySymbol)
	}
	if settings.DefaultMode == "" {
		settings.DefaultMode = domain.ModePrecise
	}

	s := &ReportSession{
		id:        uuid.NewString(),
		docs:      docs,
		matcher:   matcher,
		settings:  settings,
		renderers: export.NewRenderer,
		log:       logrus.NewEntry(logrus.StandardLogger()),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("session", s.id)
	return s
}

// ID identifies the session.
func (s *ReportSession) ID() string { return s.id }

// Result returns the current reconciliation result.
func (s *ReportSession) Result() (*domain.ReconciliationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil, apperror.New(apperror.ErrNoResult, "no reconciliation result in session")
	}
	return s.result, nil
}

// Reset discards the current result.
func (s *ReportSession) Reset() {
	s.mu.Lock()
	s.result = nil
	s.mu.Unlock()
	s.log.Info("session reset")
}

func (s *ReportSession) replace(result *domain.ReconciliationResult) {
	s.mu.Lock()
	s.result = result
	s.mu.Unlock()
}

// Dashboard builds the overview of the current result. topN <= 0 uses the configured count.
func (s *ReportSession) Dashboard(topN int) (aggregate.Dashboard, error) {
	result, err := s.Result()
	if err != nil {
		return aggregate.Dashboard{}, err
	}
	if topN <= 0 {
		topN = s.settings.TopN
	}
	return aggregate.BuildDashboard(result, topN, s.settings.Currency), nil
}

// Records returns the records of the current result that pass c.
func (s *ReportSession) Records(c filter.Criteria) (*domain.ReconciliationResult, error) {
	result, err := s.Result()
	if err != nil {
		return nil, err
	}
	return filter.Apply(result, c), nil
}

// Settings returns the report settings of the session.
func (s *ReportSession) Settings() ReportSettings { return s.settings }
