package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"recon-report/internal/apperror"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    apperror.ErrorCode `json:"code"`
	Message string             `json:"message"`
	Detail  string             `json:"detail,omitempty"`
}

// NewRouter wires the session API. A nil limiter disables request rate limiting.
func NewRouter(h *Handler, limiter *rate.Limiter) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.log))
	if limiter != nil {
		r.Use(rateLimitMiddleware(limiter, h.log))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "sessions": h.store.Count()})
	})

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Get("/result", h.GetResult)
			r.Put("/result", h.PutResult)
			r.Post("/reconcile", h.Reconcile)
			r.Get("/dashboard", h.Dashboard)
			r.Get("/records", h.Records)
			r.Post("/exports", h.Export)
		})
	})
	return r
}

func rateLimitMiddleware(limiter *rate.Limiter, log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.WithField("path", r.URL.Path).Warn("rate limit exceeded")
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: errorBody{
					Code:    apperror.ErrRateLimited,
					Message: "Too many requests. Please slow down.",
				}})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Debug("request handled")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(r.Context().Err(), context.Canceled) {
		h.log.WithField("path", r.URL.Path).Info("client went away")
		return
	}

	code := apperror.CodeOf(err)
	status := apperror.HTTPStatus(err)
	entry := h.log.WithError(err).WithFields(logrus.Fields{"code": code, "path": r.URL.Path})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}

	body := errorBody{Code: code, Message: apperror.UserMessage(code)}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		body.Detail = appErr.Message
	}
	writeJSON(w, status, errorResponse{Error: body})
}
