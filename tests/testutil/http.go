package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Envelope mirrors dto.Response with the payload left undecoded
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

// Response is a recorded API response
type Response struct {
	Code     int
	Header   http.Header
	Envelope Envelope
	Body     []byte
}

// APIClient sends requests straight into an http.Handler as one tenant
type APIClient struct {
	handler  http.Handler
	tenantID uuid.UUID
	base     string
}

// NewAPIClient creates a client for handler; paths are joined to /api/v1
func NewAPIClient(handler http.Handler, tenantID uuid.UUID) *APIClient {
	return &APIClient{handler: handler, tenantID: tenantID, base: "/api/v1"}
}

// Do sends body as JSON (nil sends nothing) with X-Tenant-ID set. headers
// are key/value pairs applied last, so they can override the tenant.
func (c *APIClient) Do(t *testing.T, method, path string, body any, headers ...string) *Response {
	t.Helper()
	require.Zero(t, len(headers)%2, "headers must be key/value pairs")

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, c.base+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Tenant-ID", c.tenantID.String())
	for i := 0; i < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)

	resp := &Response{Code: w.Code, Header: w.Header(), Body: w.Body.Bytes()}
	if len(resp.Body) > 0 {
		require.NoError(t, json.Unmarshal(resp.Body, &resp.Envelope), "Response is not an envelope: %s", resp.Body)
	}
	return resp
}

// RequireStatus fails the test unless the response has the given status
func (r *Response) RequireStatus(t *testing.T, status int) *Response {
	t.Helper()
	require.Equal(t, status, r.Code, "unexpected status, body: %s", r.Body)
	return r
}

// RequireError asserts an error envelope with the given status and code
func (r *Response) RequireError(t *testing.T, status int, code string) {
	t.Helper()
	r.RequireStatus(t, status)
	require.False(t, r.Envelope.Success)
	require.NotNil(t, r.Envelope.Error)
	require.Equal(t, code, r.Envelope.Error.Code, "message: %s", r.Envelope.Error.Message)
}

// Data decodes the payload of a successful response
func Data[T any](t *testing.T, r *Response) T {
	t.Helper()
	require.True(t, r.Envelope.Success, "expected success, body: %s", r.Body)

	var out T
	require.NoError(t, json.Unmarshal(r.Envelope.Data, &out), "Failed to decode data")
	return out
}
