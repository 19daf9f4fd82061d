package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperatorFromPath(t *testing.T) {
	assert.Equal(t, "alice", operatorFromPath("/v1/alice/session"))
	assert.Equal(t, "alice", operatorFromPath("/v1/alice"))
	assert.Equal(t, "-", operatorFromPath("/health"))
	assert.Equal(t, "-", operatorFromPath("/metrics"))
	assert.Equal(t, "-", operatorFromPath("/v1//dashboard"))
	assert.Equal(t, "-", operatorFromPath("/"))
}

func TestLoggingMiddlewareIncludesOperator(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/alice/session", nil))

	line := buf.String()
	assert.Contains(t, line, "operator=alice")
	assert.Contains(t, line, "method=GET")
	assert.Contains(t, line, "path=/v1/alice/session")
	assert.Contains(t, line, "status=418")
	assert.Contains(t, line, "bytes=15")

	buf.Reset()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, buf.String(), "operator=-")
}
