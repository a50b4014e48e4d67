package gateway

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"recon-report/internal/apperror"
	"recon-report/internal/domain"
)

// ResultSchema is the output schema declared to the matching service.
//
//go:embed schema/reconciliation_result.json
var ResultSchema []byte

// MatcherConfig configures HTTPMatcher.
type MatcherConfig struct {
	URL               string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute int
}

// HTTPMatcher calls the external matching service over HTTP. Calls are paced client side and
// never retried; every failure is returned as a coded error.
type HTTPMatcher struct {
	url     string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	log     *logrus.Entry
}

// NewHTTPMatcher creates a matcher client. A nil client uses one with cfg.Timeout.
func NewHTTPMatcher(cfg MatcherConfig, client *http.Client, log *logrus.Entry) *HTTPMatcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	return &HTTPMatcher{
		url:     strings.TrimRight(cfg.URL, "/") + "/v1/reconcile",
		apiKey:  cfg.APIKey,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

type wireDocument struct {
	Kind     string `json:"kind"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType,omitempty"`
	Payload  string `json:"payload"`
}

type matchRequest struct {
	BankDocument   wireDocument    `json:"bankDocument"`
	LedgerDocument wireDocument    `json:"ledgerDocument"`
	Mode           string          `json:"mode"`
	Schema         json.RawMessage `json:"schema"`
}

func toWire(d domain.Document) wireDocument {
	w := wireDocument{Filename: d.Filename, MimeType: d.MimeType}
	if d.NormalizedType == domain.BinaryDocument {
		w.Kind = "binary"
		w.Payload = base64.StdEncoding.EncodeToString(d.Content)
	} else {
		w.Kind = "text"
		w.Payload = string(d.Content)
	}
	return w
}

// Match sends both documents and returns the raw result payload.
func (m *HTTPMatcher) Match(ctx context.Context, req domain.MatchRequest) ([]byte, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, apperror.Wrap(apperror.ErrRateLimited, "matcher call budget exhausted", err)
	}

	body, err := json.Marshal(matchRequest{
		BankDocument:   toWire(req.Bank),
		LedgerDocument: toWire(req.Ledger),
		Mode:           string(req.Mode),
		Schema:         ResultSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode match request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not build match request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if m.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	start := time.Now()
	resp, err := m.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, apperror.Wrap(apperror.ErrCancelled, "matcher call abandoned", err)
		}
		return nil, apperror.Wrap(apperror.ErrMatcherUnavailable, "matcher call failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrMatcherUnavailable, "could not read matcher response", err)
	}

	if m.log != nil {
		m.log.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"mode":    req.Mode,
			"bytes":   len(payload),
			"elapsed": time.Since(start).String(),
		}).Info("matcher responded")
	}

	if err := statusError(resp.StatusCode, payload); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(payload)) == 0 || !json.Valid(payload) {
		return nil, apperror.New(apperror.ErrMalformedOutput, "matcher returned an unreadable body")
	}
	return payload, nil
}

func statusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	msg := fmt.Sprintf("matcher returned %d: %s", status, detail)

	switch status {
	case http.StatusTooManyRequests:
		return apperror.New(apperror.ErrRateLimited, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperror.New(apperror.ErrUnauthorized, msg)
	case http.StatusNotFound:
		return apperror.New(apperror.ErrNotFound, msg)
	case http.StatusNotImplemented, http.StatusUnsupportedMediaType:
		return apperror.New(apperror.ErrUnsupported, msg)
	case http.StatusUnprocessableEntity:
		return apperror.New(apperror.ErrMalformedOutput, msg)
	default:
		return apperror.New(apperror.ErrMatcherUnavailable, msg)
	}
}

// StaticMatcher answers every request with a fixed payload. It backs offline runs.
type StaticMatcher struct {
	Payload []byte
}

func (m StaticMatcher) Match(ctx context.Context, _ domain.MatchRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Payload, nil
}
