package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Document
var (
	ErrEmptyDocumentID         = errors.New("document ID cannot be empty")
	ErrEmptyDocumentUserID     = errors.New("document user ID cannot be empty")
	ErrEmptyDocumentFilename   = errors.New("document filename cannot be empty")
	ErrEmptyDocumentStorageKey = errors.New("document storage key cannot be empty")
)

// Document represents an uploaded file a task operates on. The bytes
// themselves live in object storage under StorageKey; this record only
// carries the metadata the pipeline needs to fetch and interpret them.
type Document struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Filename   string    `json:"filename"`
	StorageKey string    `json:"storage_key"`
	MimeType   string    `json:"mime_type"`
	FileSize   int64     `json:"file_size"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewDocument creates a Document owned by the given user.
// Returns an error if validation fails.
func NewDocument(userID uuid.UUID, filename, storageKey, mimeType string, fileSize int64) (*Document, error) {
	doc := &Document{
		ID:         uuid.New(),
		UserID:     userID,
		Filename:   filename,
		StorageKey: storageKey,
		MimeType:   mimeType,
		FileSize:   fileSize,
		CreatedAt:  time.Now().UTC(),
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return doc, nil
}

// Validate checks if the Document has valid data.
func (d *Document) Validate() error {
	if d.ID == uuid.Nil {
		return ErrEmptyDocumentID
	}

	if d.UserID == uuid.Nil {
		return ErrEmptyDocumentUserID
	}

	if d.Filename == "" {
		return ErrEmptyDocumentFilename
	}

	if d.StorageKey == "" {
		return ErrEmptyDocumentStorageKey
	}

	return nil
}
