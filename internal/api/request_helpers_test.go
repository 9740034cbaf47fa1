package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilldocs/quill-api/internal/api/shared"
	"github.com/quilldocs/quill-api/internal/domain"
)

func TestGetUserIDFromContext(t *testing.T) {
	tests := []struct {
		name           string
		setupContext   func() context.Context
		expectedUserID uuid.UUID
		expectedOK     bool
	}{
		{
			name: "valid user ID in context",
			setupContext: func() context.Context {
				userID := uuid.New()
				return context.WithValue(context.Background(), shared.UserIDContextKey, userID)
			},
			expectedOK: true,
		},
		{
			name: "missing user ID in context",
			setupContext: func() context.Context {
				return context.Background()
			},
			expectedUserID: uuid.Nil,
			expectedOK:     false,
		},
		{
			name: "nil user ID in context",
			setupContext: func() context.Context {
				return context.WithValue(context.Background(), shared.UserIDContextKey, uuid.Nil)
			},
			expectedUserID: uuid.Nil,
			expectedOK:     false,
		},
		{
			name: "wrong type in context",
			setupContext: func() context.Context {
				return context.WithValue(context.Background(), shared.UserIDContextKey, "not-a-uuid")
			},
			expectedUserID: uuid.Nil,
			expectedOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(tt.setupContext())

			userID, ok := getUserIDFromContext(req)

			assert.Equal(t, tt.expectedOK, ok)
			if tt.expectedOK {
				assert.NotEqual(t, uuid.Nil, userID)
			} else {
				assert.Equal(t, tt.expectedUserID, userID)
			}
		})
	}
}

func TestGetPathUUID(t *testing.T) {
	validUUID := uuid.New()

	t.Run("valid UUID parameter", func(t *testing.T) {
		req := withPathID(httptest.NewRequest(http.MethodGet, "/test/"+validUUID.String(), nil), validUUID.String())

		id, err := getPathUUID(req, "id")
		require.NoError(t, err)
		assert.Equal(t, validUUID, id)
	})

	t.Run("missing parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)

		id, err := getPathUUID(req, "id")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrValidation))
		assert.Equal(t, uuid.Nil, id)
	})

	t.Run("invalid UUID format", func(t *testing.T) {
		req := withPathID(httptest.NewRequest(http.MethodGet, "/test/invalid-uuid", nil), "invalid-uuid")

		id, err := getPathUUID(req, "id")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrValidation))
		assert.Equal(t, uuid.Nil, id)
	})
}

func TestHandleUserIDAndPathUUID(t *testing.T) {
	validUserID := uuid.New()
	validPathUUID := uuid.New()

	tests := []struct {
		name            string
		setupRequest    func() *http.Request
		expectedOK      bool
		expectedStatus  int
		expectedMessage string
		expectedUserID  uuid.UUID
		expectedPathID  uuid.UUID
	}{
		{
			name: "valid user ID and path UUID",
			setupRequest: func() *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/test/"+validPathUUID.String(), nil)
				return withPathID(withUser(req, validUserID), validPathUUID.String())
			},
			expectedOK:     true,
			expectedUserID: validUserID,
			expectedPathID: validPathUUID,
		},
		{
			name: "missing user ID",
			setupRequest: func() *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/test/"+validPathUUID.String(), nil)
				return withPathID(req, validPathUUID.String())
			},
			expectedOK:      false,
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Authentication required",
		},
		{
			name: "valid user ID but invalid path UUID",
			setupRequest: func() *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/test/invalid-uuid", nil)
				return withPathID(withUser(req, validUserID), "invalid-uuid")
			},
			expectedOK:      false,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid id format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()

			userID, pathID, ok := handleUserIDAndPathUUID(recorder, tt.setupRequest(), "id", discardLogger())

			assert.Equal(t, tt.expectedOK, ok)
			if tt.expectedOK {
				assert.Equal(t, tt.expectedUserID, userID)
				assert.Equal(t, tt.expectedPathID, pathID)
				return
			}

			assert.Equal(t, uuid.Nil, userID)
			assert.Equal(t, uuid.Nil, pathID)
			assert.Equal(t, tt.expectedStatus, recorder.Code)

			var errorResp shared.ErrorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&errorResp))
			assert.Equal(t, tt.expectedMessage, errorResp.Error)
		})
	}
}

func TestHandleUserIDAndPathUUIDWithNilLogger(t *testing.T) {
	// A nil logger falls back to the context logger instead of panicking.
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	recorder := httptest.NewRecorder()

	_, _, ok := handleUserIDAndPathUUID(recorder, req, "id", nil)

	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
