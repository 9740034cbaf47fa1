package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/quilldocs/quill-api/internal/domain"
)

// DocumentStore defines the interface for document metadata persistence.
// The document bytes themselves live in object storage; this store only
// tracks the metadata rows tasks reference.
type DocumentStore interface {
	// Create saves a new document record to the store.
	// Returns validation errors from the domain Document if data is invalid.
	Create(ctx context.Context, doc *domain.Document) error

	// GetByID retrieves a document by its unique ID.
	// Returns ErrDocumentNotFound if the document does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)

	// WithTx returns a new DocumentStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) DocumentStore
}
