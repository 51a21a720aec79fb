package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/core"
)

// stubOracle scores by substring so tests can script per-email outcomes
type stubOracle struct {
	mu      sync.Mutex
	calls   int
	scoreFn func(text string) (int, []float64, error)
}

func (o *stubOracle) Score(_ context.Context, text string) (int, []float64, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
	if o.scoreFn != nil {
		return o.scoreFn(text)
	}
	return 0, []float64{0.9, 0.1}, nil
}

func (o *stubOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func newTestServer(t *testing.T, oracle core.ScoringOracle) *Server {
	t.Helper()
	classifier, err := core.NewClassifierService(oracle, nil, nil, zap.NewNop(), false, 0, 0.7, 1)
	require.NoError(t, err)
	return NewServer(classifier, zap.NewNop(), "127.0.0.1:0", -1)
}

func doRequest(server *Server, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	server.router().ServeHTTP(rec, req)
	return rec
}

func decodeBatchResponse(t *testing.T, rec *httptest.ResponseRecorder) batchResponse {
	t.Helper()
	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func scriptedOracle() *stubOracle {
	return &stubOracle{scoreFn: func(text string) (int, []float64, error) {
		switch {
		case strings.Contains(text, "verify your account"):
			return 1, []float64{0.04, 0.96}, nil
		case strings.Contains(text, "weekly report"):
			return 0, []float64{0.91, 0.09}, nil
		default:
			return 1, []float64{0.45, 0.55}, nil
		}
	}}
}

func TestDetectBatchArrayPayload(t *testing.T) {
	server := newTestServer(t, scriptedOracle())

	payload := []byte(`[
		{"id": "101", "sender": "alert@bank.example", "subject": "Urgent", "body": "Please verify your account now"},
		{"id": "102", "sender": "boss@corp.example", "subject": "Numbers", "body": "The weekly report is attached"},
		{"id": "103", "sender": "noreply@shop.example", "subject": "Deal", "body": "Limited time offer"}
	]`)

	rec := doRequest(server, http.MethodPost, "/detect-phishing-batch", "application/json", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBatchResponse(t, rec)
	assert.Equal(t, "success", resp.Status)
	require.Len(t, resp.Results, 3)

	assert.Equal(t, "101", resp.Results[0].ID)
	assert.Equal(t, 1, resp.Results[0].Prediction)
	assert.InDelta(t, 0.96, resp.Results[0].Confidence, 1e-9)
	assert.Equal(t, "Phishing email detected", resp.Results[0].Message)
	assert.Equal(t, "alert@bank.example", resp.Results[0].InputSource.Sender)

	assert.Equal(t, "102", resp.Results[1].ID)
	assert.Equal(t, 0, resp.Results[1].Prediction)

	// Low confidence demotes to the configured suspicious code
	assert.Equal(t, "103", resp.Results[2].ID)
	assert.Equal(t, -1, resp.Results[2].Prediction)
	assert.Equal(t, "Suspicious email - uncertain classification", resp.Results[2].Message)

	assert.Equal(t, core.BatchSummary{Total: 3, Phishing: 1, Legitimate: 1, Suspicious: 1}, resp.Summary)
}

func TestDetectBatchEmailsWrapper(t *testing.T) {
	server := newTestServer(t, scriptedOracle())

	payload := []byte(`{"emails": [{"uid": "7", "subject": "Numbers", "body": "the weekly report"}]}`)
	rec := doRequest(server, http.MethodPost, "/detect-phishing-batch", "application/json", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBatchResponse(t, rec)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "7", resp.Results[0].ID)
	assert.Equal(t, 0, resp.Results[0].Prediction)
}

func TestDetectBatchRejectsSingleObject(t *testing.T) {
	server := newTestServer(t, scriptedOracle())

	payload := []byte(`{"id": "1", "subject": "hi", "body": "there"}`)
	rec := doRequest(server, http.MethodPost, "/detect-phishing-batch", "application/json", payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "emails")
}

func TestDetectBatchMalformedJSON(t *testing.T) {
	server := newTestServer(t, scriptedOracle())

	rec := doRequest(server, http.MethodPost, "/detect-phishing-batch", "application/json", []byte(`{{{not json`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "invalid JSON payload")
}

func TestDetectBatchOracleFailure(t *testing.T) {
	oracle := &stubOracle{scoreFn: func(string) (int, []float64, error) {
		return 0, nil, assert.AnError
	}}
	server := newTestServer(t, oracle)

	payload := []byte(`[{"id": "1", "subject": "hi", "body": "there"}]`)
	rec := doRequest(server, http.MethodPost, "/detect-phishing-batch", "application/json", payload)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "classification failed")
}

func TestDetectBatchEmptyContentBypassesOracle(t *testing.T) {
	oracle := &stubOracle{}
	server := newTestServer(t, oracle)

	payload := []byte(`[{"id": "55", "sender": "x@example.com", "subject": "", "body": ""}]`)
	rec := doRequest(server, http.MethodPost, "/detect-phishing-batch", "application/json", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBatchResponse(t, rec)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, -1, resp.Results[0].Prediction)
	assert.Equal(t, 0.0, resp.Results[0].Confidence)
	assert.Equal(t, "Empty email content", resp.Results[0].Message)
	assert.Equal(t, 0, oracle.callCount())
}

func TestDetectBatchEmptyArray(t *testing.T) {
	server := newTestServer(t, scriptedOracle())

	rec := doRequest(server, http.MethodPost, "/detect-phishing-batch", "application/json", []byte(`[]`))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBatchResponse(t, rec)
	assert.Empty(t, resp.Results)
	assert.Equal(t, core.BatchSummary{}, resp.Summary)
}

func TestUploadFileRawSingleObject(t *testing.T) {
	server := newTestServer(t, scriptedOracle())

	payload := []byte(`{"id": "solo", "subject": "Urgent", "body": "verify your account"}`)
	rec := doRequest(server, http.MethodPost, "/detect-phishing-upload-file", "application/json", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBatchResponse(t, rec)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "solo", resp.Results[0].ID)
	assert.Equal(t, 1, resp.Results[0].Prediction)
	assert.Equal(t, 1, resp.Summary.Total)
}

func TestUploadFileMultipart(t *testing.T) {
	server := newTestServer(t, scriptedOracle())

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "emails.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(`{"emails": [{"uid": "9", "subject": "Urgent", "body": "verify your account"}]}`))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	rec := doRequest(server, http.MethodPost, "/detect-phishing-upload-file", writer.FormDataContentType(), buf.Bytes())
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBatchResponse(t, rec)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "9", resp.Results[0].ID)
	assert.Equal(t, 1, resp.Results[0].Prediction)
}

func TestUploadFileMultipartMissingFileField(t *testing.T) {
	server := newTestServer(t, scriptedOracle())

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("other", "value"))
	require.NoError(t, writer.Close())

	rec := doRequest(server, http.MethodPost, "/detect-phishing-upload-file", writer.FormDataContentType(), buf.Bytes())
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "file")
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, scriptedOracle())

	rec := doRequest(server, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.OracleReady)
}

func TestDecodeEmailPayloadVariants(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{name: "array", payload: `[{"id": "1"}, {"id": "2"}]`, want: 2},
		{name: "wrapper", payload: `{"emails": [{"id": "1"}]}`, want: 1},
		{name: "single object", payload: `{"id": "1", "subject": "s"}`, want: 1},
		{name: "empty wrapper", payload: `{"emails": []}`, want: 0},
		{name: "garbage", payload: `]]]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emails, err := decodeEmailPayload([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, emails, tt.want)
		})
	}
}
