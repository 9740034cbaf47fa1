package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/service"
	"github.com/quilldocs/quill-api/internal/store"
)

func TestDocumentService_Upload(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	data := []byte("%PDF-1.7 fake document body")

	t.Run("stores bytes then metadata", func(t *testing.T) {
		t.Parallel()

		blobs := newRecordingBlobWriter()
		documents := &fakeDocumentStore{}
		svc := service.NewDocumentService(documents, blobs, discardLogger())

		doc, err := svc.Upload(context.Background(), ownerID, "report.pdf", "application/pdf", data)
		require.NoError(t, err)
		require.NotNil(t, doc)

		assert.Equal(t, ownerID, doc.UserID)
		assert.Equal(t, "report.pdf", doc.Filename)
		assert.Equal(t, "application/pdf", doc.MimeType)
		assert.Equal(t, int64(len(data)), doc.FileSize)

		prefix := fmt.Sprintf("documents/%s/", ownerID)
		assert.True(t, strings.HasPrefix(doc.StorageKey, prefix), "storage key %q should start with %q", doc.StorageKey, prefix)
		assert.True(t, strings.HasSuffix(doc.StorageKey, ".pdf"))

		assert.Equal(t, data, blobs.stored[doc.StorageKey])
		assert.Equal(t, "application/pdf", blobs.types[doc.StorageKey])

		require.Len(t, documents.created, 1)
		assert.Equal(t, doc.ID, documents.created[0].ID)
	})

	t.Run("generates a fresh key per upload", func(t *testing.T) {
		t.Parallel()

		blobs := newRecordingBlobWriter()
		svc := service.NewDocumentService(&fakeDocumentStore{}, blobs, discardLogger())

		first, err := svc.Upload(context.Background(), ownerID, "report.pdf", "application/pdf", data)
		require.NoError(t, err)
		second, err := svc.Upload(context.Background(), ownerID, "report.pdf", "application/pdf", data)
		require.NoError(t, err)

		assert.NotEqual(t, first.StorageKey, second.StorageKey)
	})

	t.Run("rejects an empty file", func(t *testing.T) {
		t.Parallel()

		blobs := newRecordingBlobWriter()
		svc := service.NewDocumentService(&fakeDocumentStore{}, blobs, discardLogger())

		doc, err := svc.Upload(context.Background(), ownerID, "empty.txt", "text/plain", nil)
		assert.Error(t, err)
		assert.Nil(t, doc)
		assert.Empty(t, blobs.stored)
	})

	t.Run("does not write metadata when the blob write fails", func(t *testing.T) {
		t.Parallel()

		blobs := newRecordingBlobWriter()
		blobs.err = errors.New("bucket unreachable")
		documents := &fakeDocumentStore{}
		svc := service.NewDocumentService(documents, blobs, discardLogger())

		doc, err := svc.Upload(context.Background(), ownerID, "report.pdf", "application/pdf", data)
		assert.Error(t, err)
		assert.Nil(t, doc)
		assert.Empty(t, documents.created)
	})

	t.Run("propagates metadata insert failures", func(t *testing.T) {
		t.Parallel()

		documents := &fakeDocumentStore{
			CreateFn: func(context.Context, *domain.Document) error {
				return errors.New("connection reset")
			},
		}
		svc := service.NewDocumentService(documents, newRecordingBlobWriter(), discardLogger())

		doc, err := svc.Upload(context.Background(), ownerID, "report.pdf", "application/pdf", data)
		assert.Error(t, err)
		assert.Nil(t, doc)
	})
}

func TestDocumentService_GetDocument(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	doc, err := domain.NewDocument(ownerID, "report.pdf", "documents/report.pdf", "application/pdf", 2048)
	require.NoError(t, err)

	newService := func(documents *fakeDocumentStore) service.DocumentService {
		return service.NewDocumentService(documents, newRecordingBlobWriter(), discardLogger())
	}

	t.Run("returns the owner's document", func(t *testing.T) {
		t.Parallel()

		documents := &fakeDocumentStore{
			GetByIDFn: func(context.Context, uuid.UUID) (*domain.Document, error) { return doc, nil },
		}

		got, err := newService(documents).GetDocument(context.Background(), doc.ID, ownerID)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, got.ID)
	})

	t.Run("reports a missing document", func(t *testing.T) {
		t.Parallel()

		got, err := newService(&fakeDocumentStore{}).GetDocument(context.Background(), uuid.New(), ownerID)
		assert.ErrorIs(t, err, store.ErrDocumentNotFound)
		assert.Nil(t, got)
	})

	t.Run("rejects a caller who does not own the document", func(t *testing.T) {
		t.Parallel()

		documents := &fakeDocumentStore{
			GetByIDFn: func(context.Context, uuid.UUID) (*domain.Document, error) { return doc, nil },
		}

		got, err := newService(documents).GetDocument(context.Background(), doc.ID, uuid.New())
		assert.ErrorIs(t, err, service.ErrNotOwned)
		assert.Nil(t, got)
	})
}
