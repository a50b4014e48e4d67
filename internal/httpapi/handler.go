// Package httpapi exposes report sessions over HTTP.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"recon-report/internal/apperror"
	"recon-report/internal/domain"
	"recon-report/internal/filter"
	"recon-report/internal/usecase"
)

const defaultMaxUpload = 40 << 20

// Normalizer turns an uploaded file into a matcher document.
type Normalizer interface {
	Normalize(filename string, content []byte) (domain.Document, error)
}

// Handler serves the report API over sessions held in a SessionStore.
type Handler struct {
	store     *SessionStore
	docs      Normalizer
	log       *logrus.Entry
	MaxUpload int64
}

// NewHandler returns a Handler. A nil log falls back to the standard logger.
func NewHandler(store *SessionStore, docs Normalizer, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{store: store, docs: docs, log: log, MaxUpload: defaultMaxUpload}
}

type sessionResponse struct {
	ID        string `json:"id"`
	HasResult bool   `json:"hasResult"`
}

type recordsResponse struct {
	Matches         []matchRow           `json:"matches"`
	UnmatchedBank   []domain.Transaction `json:"unmatchedBank"`
	UnmatchedLedger []domain.Transaction `json:"unmatchedLedger"`
	Total           int                  `json:"total"`
}

type matchRow struct {
	domain.MatchedPair
	Band domain.ConfidenceBand `json:"band"`
}

// CreateSession opens an empty session and returns its id.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.store.Create()
	h.log.WithField("session", session.ID()).Info("session created")
	writeJSON(w, http.StatusCreated, sessionResponse{ID: session.ID()})
}

// GetSession reports whether the session holds a result.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	_, err := session.Result()
	writeJSON(w, http.StatusOK, sessionResponse{ID: session.ID(), HasResult: err == nil})
}

// DeleteSession resets and forgets the session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.store.Delete(id) {
		h.writeError(w, r, apperror.New(apperror.ErrNotFound, "session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetResult returns the stored reconciliation result.
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := session.Result()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PutResult loads a reconciliation result produced elsewhere.
func (h *Handler) PutResult(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxUpload))
	if err != nil {
		h.writeError(w, r, apperror.Wrap(apperror.ErrInvalidInput, "could not read request body", err))
		return
	}
	result, err := session.Load(payload)
	if apperror.Is(err, apperror.ErrMalformedOutput) {
		err = apperror.Wrap(apperror.ErrInvalidInput, "request body is not a reconciliation result", err)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Reconcile matches the uploaded bank and ledger files.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload)
	if err := r.ParseMultipartForm(h.MaxUpload); err != nil {
		h.writeError(w, r, apperror.Wrap(apperror.ErrInvalidInput, "expected a multipart form with bank and ledger files", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	bank, err := h.document(r, "bank")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ledger, err := h.document(r, "ledger")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := session.ReconcileDocuments(r.Context(), bank, ledger, domain.MatchMode(r.FormValue("mode")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Dashboard returns the headline figures. ?top= sets how many unmatched items are listed.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	topN := 0
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, r, apperror.New(apperror.ErrInvalidInput, "top must be a positive number"))
			return
		}
		topN = n
	}
	dashboard, err := session.Dashboard(topN)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// Records returns the filtered collections for the table view.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := session.Records(criteria)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := recordsResponse{
		Matches:         make([]matchRow, 0, len(view.Matches)),
		UnmatchedBank:   view.UnmatchedBank,
		UnmatchedLedger: view.UnmatchedLedger,
		Total:           len(view.Matches) + len(view.UnmatchedBank) + len(view.UnmatchedLedger),
	}
	for _, m := range view.Matches {
		resp.Matches = append(resp.Matches, matchRow{MatchedPair: m, Band: m.Band()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Export renders the report and answers with it as an attachment. The export is abandoned
// when the client goes away.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req usecase.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperror.Wrap(apperror.ErrInvalidInput, "invalid export request", err))
		return
	}
	criteria, err := normalizeCriteria(req.Criteria)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req.Criteria = criteria

	task, err := session.StartExport(r.Context(), req, nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	log := h.log.WithFields(logrus.Fields{"session": session.ID(), "task": task.ID})
	for p := range task.Progress() {
		log.WithField("percent", p.Percent).Debug(p.Status)
	}
	artifact, err := task.Wait()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		log.WithError(err).Warn("could not write artifact")
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*usecase.ReportSession, bool) {
	session, found := h.store.Get(chi.URLParam(r, "id"))
	if !found {
		h.writeError(w, r, apperror.New(apperror.ErrNotFound, "session not found"))
		return nil, false
	}
	return session, true
}

func (h *Handler) document(r *http.Request, field string) (domain.Document, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return domain.Document{}, apperror.Wrap(apperror.ErrInvalidInput, "missing "+field+" file", err)
	}
	defer file.Close()
	return h.readUpload(file, header)
}

func (h *Handler) readUpload(file multipart.File, header *multipart.FileHeader) (domain.Document, error) {
	content, err := io.ReadAll(file)
	if err != nil {
		return domain.Document{}, fmt.Errorf("could not read upload %s: %w", header.Filename, err)
	}
	return h.docs.Normalize(header.Filename, content)
}

func criteriaFromQuery(r *http.Request) (filter.Criteria, error) {
	q := r.URL.Query()
	return normalizeCriteria(filter.Criteria{
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		Category:  filter.Category(q.Get("category")),
		Text:      q.Get("text"),
		Status:    filter.Status(q.Get("status")),
	})
}

func normalizeCriteria(c filter.Criteria) (filter.Criteria, error) {
	c, err := filter.Normalize(c)
	if err != nil {
		return c, apperror.Wrap(apperror.ErrInvalidInput, "invalid filters", err)
	}
	return c, nil
}
