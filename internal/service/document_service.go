package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/google/uuid"

	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/store"
)

// BlobWriter stores document bytes in object storage. The S3 blob store
// implements it.
type BlobWriter interface {
	StoreBytes(ctx context.Context, storageKey string, data []byte, contentType string) error
}

// DocumentService coordinates document upload and retrieval.
type DocumentService interface {
	// Upload writes the document bytes to object storage under a
	// generated key and persists the metadata row that tasks reference.
	Upload(ctx context.Context, ownerID uuid.UUID, filename, mimeType string, data []byte) (*domain.Document, error)

	// GetDocument retrieves document metadata. Returns
	// store.ErrDocumentNotFound if no such document exists and
	// ErrNotOwned if the caller does not own it.
	GetDocument(ctx context.Context, documentID, callerID uuid.UUID) (*domain.Document, error)
}

// DocumentServiceImpl implements the DocumentService interface
type DocumentServiceImpl struct {
	documents store.DocumentStore
	blobs     BlobWriter
	logger    *slog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(documents store.DocumentStore, blobs BlobWriter, logger *slog.Logger) DocumentService {
	return &DocumentServiceImpl{
		documents: documents,
		blobs:     blobs,
		logger:    logger.With("component", "document_service"),
	}
}

// Upload stores the bytes first and the metadata row second, so a row
// never references an object that failed to upload. An orphaned object
// from a failed insert is harmless and invisible.
func (s *DocumentServiceImpl) Upload(
	ctx context.Context,
	ownerID uuid.UUID,
	filename, mimeType string,
	data []byte,
) (*domain.Document, error) {
	if len(data) == 0 {
		return nil, errors.New("document is empty")
	}

	storageKey := fmt.Sprintf("documents/%s/%s%s", ownerID, uuid.New(), path.Ext(filename))

	doc, err := domain.NewDocument(ownerID, filename, storageKey, mimeType, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	if err := s.blobs.StoreBytes(ctx, storageKey, data, mimeType); err != nil {
		s.logger.Error("failed to store document bytes",
			"error", err,
			"storage_key", storageKey,
			"user_id", ownerID)
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		s.logger.Error("failed to persist document metadata",
			"error", err,
			"storage_key", storageKey,
			"user_id", ownerID)
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	s.logger.Info("document uploaded",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"file_size", doc.FileSize,
		"user_id", ownerID)

	return doc, nil
}

// GetDocument retrieves document metadata, enforcing ownership.
func (s *DocumentServiceImpl) GetDocument(ctx context.Context, documentID, callerID uuid.UUID) (*domain.Document, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		if !errors.Is(err, store.ErrDocumentNotFound) {
			s.logger.Error("failed to retrieve document",
				"error", err,
				"document_id", documentID)
		}
		return nil, err
	}

	if doc.UserID != callerID {
		s.logger.Warn("document access denied",
			"document_id", documentID,
			"owner_id", doc.UserID,
			"caller_id", callerID)
		return nil, ErrNotOwned
	}

	return doc, nil
}
