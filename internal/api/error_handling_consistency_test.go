package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quilldocs/quill-api/internal/api/shared"
	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrorResponseFormat verifies that every error written through
// HandleAPIError has the same shape: a JSON body with an error message
// and the request's trace ID.
func TestErrorResponseFormat(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		fallback       string
		expectedStatus int
	}{
		{
			name:           "validation error",
			err:            domain.ErrValidation,
			fallback:       "",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "not found error",
			err:            store.ErrDocumentNotFound,
			fallback:       "",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "server error with fallback message",
			err:            errors.New("database error"),
			fallback:       "An error occurred while processing your request",
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)

			traceID := "trace-" + tt.name
			req = req.WithContext(context.WithValue(req.Context(), shared.TraceIDKey, traceID))

			HandleAPIError(recorder, req, tt.err, tt.fallback)

			assert.Equal(t, tt.expectedStatus, recorder.Code)
			assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

			var response map[string]interface{}
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))

			assert.Contains(t, response, "error", "response should carry an error field")
			assert.NotEmpty(t, response["error"])
			assert.Equal(t, traceID, response["trace_id"], "response should echo the request trace ID")
		})
	}
}

// TestErrorResponseWithoutTrace verifies the trace field is dropped
// rather than sent empty when no trace ID was attached.
func TestErrorResponseWithoutTrace(t *testing.T) {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)

	HandleAPIError(recorder, req, store.ErrTaskNotFound, "")

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))

	assert.Equal(t, "Task not found", response["error"])
	assert.NotContains(t, response, "trace_id")
}
