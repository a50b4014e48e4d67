package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"recon-report/internal/aggregate"
	"recon-report/internal/apperror"
	"recon-report/internal/domain"
	"recon-report/internal/export"
	"recon-report/internal/filter"
)

// Phase is a stage of an export task.
type Phase string

const (
	PhaseAnalyze  Phase = "analyze"
	PhaseFormat   Phase = "format"
	PhaseLayout   Phase = "layout"
	PhaseFinalize Phase = "finalize"
	PhaseDone     Phase = "done"
)

// Progress is emitted once per phase.
type Progress struct {
	Phase   Phase  `json:"phase"`
	Percent int    `json:"percent"`
	Status  string `json:"status"`
}

var milestones = map[Phase]Progress{
	PhaseAnalyze:  {Phase: PhaseAnalyze, Percent: 5, Status: "Analyzing reconciliation data"},
	PhaseFormat:   {Phase: PhaseFormat, Percent: 25, Status: "Formatting report sections"},
	PhaseLayout:   {Phase: PhaseLayout, Percent: 50, Status: "Laying out document"},
	PhaseFinalize: {Phase: PhaseFinalize, Percent: 90, Status: "Finalizing artifact"},
	PhaseDone:     {Phase: PhaseDone, Percent: 100, Status: "Export complete"},
}

// ExportRequest describes one export. Empty Label and CompanyName fall back to the session
// settings.
type ExportRequest struct {
	Format      export.Format   `json:"format"`
	Sections    export.Sections `json:"sections"`
	Criteria    filter.Criteria `json:"filters"`
	Label       string          `json:"label,omitempty"`
	CompanyName string          `json:"companyName,omitempty"`
}

// ExportTask is a running export. Its progress channel is closed when the task ends.
type ExportTask struct {
	ID string

	ctx      context.Context
	cancel   context.CancelFunc
	progress chan Progress
	done     chan struct{}

	artifact *export.Artifact
	err      error
}

// Progress returns the milestones reached so far, closed once the task ends.
func (t *ExportTask) Progress() <-chan Progress { return t.progress }

// Done is closed once the task has ended.
func (t *ExportTask) Done() <-chan struct{} { return t.done }

// Cancel abandons the task. The current phase may still finish, but nothing is delivered.
func (t *ExportTask) Cancel() { t.cancel() }

// Wait blocks until the task ends and returns its artifact or its single terminal error.
func (t *ExportTask) Wait() (*export.Artifact, error) {
	<-t.done
	return t.artifact, t.err
}

// StartExport validates req and starts the export in the background.
//
// Selecting no section, having no result, or having another export running are rejected
// before any work starts. sink may be nil, in which case the artifact is only returned by Wait.
func (s *ReportSession) StartExport(ctx context.Context, req ExportRequest, sink ArtifactSink) (*ExportTask, error) {
	if !req.Sections.Any() {
		return nil, apperror.New(apperror.ErrNothingSelected, "no report section selected")
	}
	result, err := s.Result()
	if err != nil {
		return nil, err
	}
	renderer, err := s.renderers(req.Format)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "unsupported export format", err)
	}
	if !s.exporting.CompareAndSwap(false, true) {
		return nil, apperror.New(apperror.ErrExportInProgress, "an export is already running")
	}

	taskCtx, cancel := context.WithCancel(ctx)
	task := &ExportTask{
		ID:       uuid.NewString(),
		ctx:      taskCtx,
		cancel:   cancel,
		progress: make(chan Progress, len(milestones)),
		done:     make(chan struct{}),
	}
	go s.runExport(task, result, req, renderer, sink)
	return task, nil
}

// Export runs an export to completion and returns the artifact.
func (s *ReportSession) Export(ctx context.Context, req ExportRequest) (*export.Artifact, error) {
	task, err := s.StartExport(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	return task.Wait()
}

func (s *ReportSession) runExport(task *ExportTask, result *domain.ReconciliationResult, req ExportRequest, renderer export.Renderer, sink ArtifactSink) {
	log := s.log.WithFields(logrus.Fields{
		"task":   task.ID,
		"format": renderer.Format(),
	})
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("export panicked")
			task.artifact = nil
			task.err = apperror.New(apperror.ErrExportFailed, fmt.Sprintf("report generation failed: %v", r))
		}
		task.cancel()
		s.exporting.Store(false)
		close(task.progress)
		close(task.done)
	}()

	artifact, err := s.exportPhases(task, result, req, renderer)
	if err == nil && sink != nil {
		if err = task.checkpoint(); err == nil {
			if deliverErr := sink.Deliver(task.ctx, artifact); deliverErr != nil {
				err = apperror.Wrap(apperror.ErrExportFailed, "could not deliver artifact", deliverErr)
			}
		}
	}
	if err != nil {
		log.WithError(err).Warn("export failed")
		task.err = err
		return
	}

	task.emit(PhaseDone)
	task.artifact = artifact
	log.WithFields(logrus.Fields{
		"filename": artifact.Filename,
		"bytes":    len(artifact.Data),
		"elapsed":  s.now().Sub(start).String(),
	}).Info("export completed")
}

// exportPhases runs the four phases, checking for cancellation only between them.
func (s *ReportSession) exportPhases(task *ExportTask, result *domain.ReconciliationResult, req ExportRequest, renderer export.Renderer) (*export.Artifact, error) {
	if err := task.enter(PhaseAnalyze); err != nil {
		return nil, err
	}
	view := filter.Apply(result, req.Criteria)

	if err := task.enter(PhaseFormat); err != nil {
		return nil, err
	}
	header := s.header(req)
	report, err := export.Build(view, req.Sections, header, s.formatterFor(req.Format))
	if err != nil {
		return nil, err
	}

	if err := task.enter(PhaseLayout); err != nil {
		return nil, err
	}
	doc, err := renderer.Layout(report)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrExportFailed, "could not lay out report", err)
	}

	if err := task.enter(PhaseFinalize); err != nil {
		return nil, err
	}
	artifact, err := export.Finalize(renderer, doc, header)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrExportFailed, "could not finalize report", err)
	}
	return artifact, nil
}

func (t *ExportTask) checkpoint() error {
	if err := t.ctx.Err(); err != nil {
		return apperror.Wrap(apperror.ErrCancelled, "export abandoned", err)
	}
	return nil
}

func (t *ExportTask) enter(p Phase) error {
	if err := t.checkpoint(); err != nil {
		return err
	}
	t.emit(p)
	return nil
}

func (t *ExportTask) emit(p Phase) {
	select {
	case t.progress <- milestones[p]:
	default:
	}
}

func (s *ReportSession) header(req ExportRequest) export.Header {
	now := s.now()
	h := export.Header{
		CompanyName:    req.CompanyName,
		AsAtDate:       s.settings.AsAtDate,
		Label:          req.Label,
		Classification: s.settings.Classification,
		GeneratedAt:    now,
	}
	if h.CompanyName == "" {
		h.CompanyName = s.settings.CompanyName
	}
	if h.AsAtDate == "" {
		h.AsAtDate = now.Format(time.DateOnly)
	}
	if h.Label == "" {
		h.Label = s.settings.Labels[req.Format]
	}
	return h
}

func (s *ReportSession) formatterFor(f export.Format) aggregate.Formatter {
	if f == export.FormatPDF && s.settings.DocumentCurrency.Symbol != "" {
		return s.settings.DocumentCurrency
	}
	return s.settings.Currency
}
