// Package testutil provides helpers shared by the enrollment integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// Envelope mirrors the API response wrapper
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorBody      `json:"error"`
	Meta    *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	} `json:"meta"`
}

// ErrorBody mirrors the API error object
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field"`
	RequestID string `json:"request_id"`
}

// Result is one recorded API call
type Result struct {
	Status   int
	Header   http.Header
	Envelope Envelope
	Raw      []byte
}

// Decode unmarshals the data payload into T
func Decode[T any](t *testing.T, r *Result) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(r.Envelope.Data, &out), "decode data: %s", r.Raw)
	return out
}

// Client issues JSON requests against an in-process handler
type Client struct {
	Handler http.Handler
	// Headers are sent with every request
	Headers map[string]string
}

// NewClient creates a Client for handler
func NewClient(handler http.Handler) *Client {
	return &Client{Handler: handler, Headers: map[string]string{}}
}

// WithHeader returns a copy of the client that also sends key: value
func (c *Client) WithHeader(key, value string) *Client {
	headers := make(map[string]string, len(c.Headers)+1)
	for k, v := range c.Headers {
		headers[k] = v
	}
	headers[key] = value
	return &Client{Handler: c.Handler, Headers: headers}
}

// Do sends body (marshalled as JSON when non-nil) and records the response
func (c *Client) Do(t *testing.T, method, path string, body any) *Result {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	c.Handler.ServeHTTP(w, req)

	res := &Result{Status: w.Code, Header: w.Header(), Raw: w.Body.Bytes()}
	if len(res.Raw) > 0 {
		require.NoError(t, json.Unmarshal(res.Raw, &res.Envelope), "response is not JSON: %s", res.Raw)
	}
	return res
}

// RequireStatus fails the test unless the call returned status
func RequireStatus(t *testing.T, r *Result, status int) {
	t.Helper()
	require.Equal(t, status, r.Status, "unexpected status, body: %s", r.Raw)
}

// RequireError fails the test unless the call failed with status and code
func RequireError(t *testing.T, r *Result, status int, code string) {
	t.Helper()
	RequireStatus(t, r, status)
	require.NotNil(t, r.Envelope.Error, "expected error body: %s", r.Raw)
	require.Equal(t, code, r.Envelope.Error.Code, "message: %s", r.Envelope.Error.Message)
}
