package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recon-report/internal/apperror"
	"recon-report/internal/domain"
	"recon-report/internal/fixtures"
)

const matcherURL = "http://matcher.test/v1/reconcile"

func newMockedMatcher(t *testing.T, cfg MatcherConfig) *HTTPMatcher {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	cfg.URL = "http://matcher.test/"
	return NewHTTPMatcher(cfg, client, nil)
}

func sampleRequest() domain.MatchRequest {
	return domain.MatchRequest{
		Bank:   domain.Document{Filename: "bank.pdf", NormalizedType: domain.BinaryDocument, MimeType: "application/pdf", Content: []byte("%PDF-1.4")},
		Ledger: domain.Document{Filename: "ledger.csv", NormalizedType: domain.TabularText, MimeType: "text/csv", Content: []byte(fixtures.SampleLedgerCSV)},
		Mode:   domain.ModeFast,
	}
}

func TestHTTPMatcher_Match_SendsDocumentsAndSchema(t *testing.T) {
	m := newMockedMatcher(t, MatcherConfig{APIKey: "secret"})

	var sent map[string]json.RawMessage
	httpmock.RegisterResponder(http.MethodPost, matcherURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&sent))
		return httpmock.NewBytesResponse(http.StatusOK, fixtures.SamplePayload()), nil
	})

	payload, err := m.Match(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.JSONEq(t, string(fixtures.SamplePayload()), string(payload))

	var bank, ledger wireDocument
	require.NoError(t, json.Unmarshal(sent["bankDocument"], &bank))
	require.NoError(t, json.Unmarshal(sent["ledgerDocument"], &ledger))
	assert.Equal(t, "binary", bank.Kind)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), bank.Payload)
	assert.Equal(t, "text", ledger.Kind)
	assert.Equal(t, fixtures.SampleLedgerCSV, ledger.Payload)
	assert.JSONEq(t, `"fast"`, string(sent["mode"]))
	assert.JSONEq(t, string(ResultSchema), string(sent["schema"]))
}

func TestHTTPMatcher_Match_Failures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		wantCode  apperror.ErrorCode
	}{
		{name: "rate limited", responder: httpmock.NewStringResponder(http.StatusTooManyRequests, "quota"), wantCode: apperror.ErrRateLimited},
		{name: "bad key", responder: httpmock.NewStringResponder(http.StatusUnauthorized, "no"), wantCode: apperror.ErrUnauthorized},
		{name: "forbidden", responder: httpmock.NewStringResponder(http.StatusForbidden, "no"), wantCode: apperror.ErrUnauthorized},
		{name: "unknown model", responder: httpmock.NewStringResponder(http.StatusNotFound, "model"), wantCode: apperror.ErrNotFound},
		{name: "capability missing", responder: httpmock.NewStringResponder(http.StatusNotImplemented, ""), wantCode: apperror.ErrUnsupported},
		{name: "server error", responder: httpmock.NewStringResponder(http.StatusBadGateway, "upstream"), wantCode: apperror.ErrMatcherUnavailable},
		{name: "empty body", responder: httpmock.NewStringResponder(http.StatusOK, ""), wantCode: apperror.ErrMalformedOutput},
		{name: "not json", responder: httpmock.NewStringResponder(http.StatusOK, "Here is your reconciliation:"), wantCode: apperror.ErrMalformedOutput},
		{name: "transport error", responder: httpmock.NewErrorResponder(errors.New("connection refused")), wantCode: apperror.ErrMatcherUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockedMatcher(t, MatcherConfig{})
			httpmock.RegisterResponder(http.MethodPost, matcherURL, tt.responder)

			payload, err := m.Match(context.Background(), sampleRequest())
			assert.Nil(t, payload)
			assert.Equal(t, tt.wantCode, apperror.CodeOf(err))
			assert.Equal(t, 1, httpmock.GetTotalCallCount(), "failures are never retried")
		})
	}
}

func TestHTTPMatcher_Match_PacesCalls(t *testing.T) {
	m := newMockedMatcher(t, MatcherConfig{RequestsPerMinute: 1})
	httpmock.RegisterResponder(http.MethodPost, matcherURL, httpmock.NewBytesResponder(http.StatusOK, fixtures.SamplePayload()))

	_, err := m.Match(context.Background(), sampleRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = m.Match(ctx, sampleRequest())
	assert.Equal(t, apperror.ErrRateLimited, apperror.CodeOf(err))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestStaticMatcher(t *testing.T) {
	m := StaticMatcher{Payload: fixtures.SamplePayload()}
	payload, err := m.Match(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, fixtures.SamplePayload(), payload)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Match(ctx, sampleRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultSchema_IsValidJSON(t *testing.T) {
	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(ResultSchema, &schema))
	assert.Equal(t, "ReconciliationResult", schema["title"])
}
