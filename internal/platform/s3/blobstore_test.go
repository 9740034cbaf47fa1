package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilldocs/quill-api/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, handler http.HandlerFunc) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := New(context.Background(), discardLogger(), config.StorageConfig{
		Bucket:          "quill-test-bucket",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	return store
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>%s</Code><Message>%s</Message><RequestId>test-request</RequestId></Error>`, code, message)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), discardLogger(), config.StorageConfig{Region: "us-east-1"})
	assert.ErrorContains(t, err, "bucket")

	_, err = New(context.Background(), discardLogger(), config.StorageConfig{Bucket: "documents"})
	assert.ErrorContains(t, err, "region")
}

func TestFetchBytes(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath string
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 fake document"))
	})

	data, err := store.FetchBytes(context.Background(), "documents/abc.pdf")
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-1.4 fake document"), data)
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/quill-test-bucket/documents/abc.pdf", gotPath)
}

func TestFetchBytesMissingObject(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
	})

	_, err := store.FetchBytes(context.Background(), "documents/missing.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFetchBytesServerFailure(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusForbidden, "AccessDenied", "Access Denied")
	})

	_, err := store.FetchBytes(context.Background(), "documents/abc.pdf")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorContains(t, err, "failed to fetch object")
}

func TestStoreBytes(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath, gotContentType string
	var gotBody []byte
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = body
	})

	err := store.StoreBytes(context.Background(), "documents/abc.pdf", []byte("file contents"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/quill-test-bucket/documents/abc.pdf", gotPath)
	assert.Equal(t, "application/pdf", gotContentType)
	assert.Equal(t, []byte("file contents"), gotBody)
}

func TestStoreBytesServerFailure(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusForbidden, "AccessDenied", "Access Denied")
	})

	err := store.StoreBytes(context.Background(), "documents/abc.pdf", []byte("file contents"), "application/pdf")
	assert.ErrorContains(t, err, "failed to store object")
}

func TestEmptyKeyRejected(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the server")
	})

	_, err := store.FetchBytes(context.Background(), "")
	assert.Error(t, err)

	assert.Error(t, store.StoreBytes(context.Background(), "", []byte("data"), "text/plain"))
}
