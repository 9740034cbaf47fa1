package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quilldocs/quill-api/internal/api/middleware"
	"github.com/quilldocs/quill-api/internal/api/shared"
	"github.com/quilldocs/quill-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddlewareAttachesTraceIDAndLogger(t *testing.T) {
	getLogs, cleanup := setupLogCapture()
	defer cleanup()

	var gotTraceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/documents", nil)
	recorder := httptest.NewRecorder()
	middleware.TraceMiddleware(next).ServeHTTP(recorder, req)

	// Hex encoding doubles the byte length
	require.Len(t, gotTraceID, shared.TraceIDLength*2)

	logs := getLogs()
	assert.Contains(t, logs, "request started")
	assert.Contains(t, logs, "inside handler")
	assert.Contains(t, logs, "trace_id="+gotTraceID)
}

func TestRequestLoggerRecordsStatusAndDuration(t *testing.T) {
	getLogs, cleanup := setupLogCapture()
	defer cleanup()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	})

	// RequestLogger sits inside TraceMiddleware so the completion line
	// carries the trace ID
	handler := middleware.TraceMiddleware(middleware.RequestLogger(next))

	req := httptest.NewRequest("POST", "/tasks", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusCreated, recorder.Code)

	logs := getLogs()
	assert.Contains(t, logs, "request completed")
	assert.Contains(t, logs, "method=POST")
	assert.Contains(t, logs, "path=/tasks")
	assert.Contains(t, logs, "status=201")
	assert.Contains(t, logs, "duration=")
	assert.Contains(t, logs, "bytes=2")
	assert.Contains(t, logs, "trace_id=")
}
