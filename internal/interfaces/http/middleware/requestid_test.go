package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	router := okRouter(RequestID())

	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{name: "generated when absent", header: ""},
		{name: "client id reused", header: "req-abc-123", reuse: true},
		{name: "oversized id replaced", header: strings.Repeat("a", MaxRequestIDLength+1)},
		{name: "id with spaces replaced", header: "two words"},
		{name: "non-ascii id replaced", header: "réq-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			assert.Equal(t, got, w.Body.String())
			if tt.reuse {
				assert.Equal(t, tt.header, got)
				return
			}
			_, err := uuid.Parse(got)
			assert.NoError(t, err, "generated ids are UUIDs")
		})
	}
}

func TestRequestID_PropagatesToRequestContext(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, logger.GetRequestID(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "req-ctx-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-ctx-1", w.Body.String())
}
