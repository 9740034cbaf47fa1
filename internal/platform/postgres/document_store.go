package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/platform/logger"
	"github.com/quilldocs/quill-api/internal/store"
)

// PostgresDocumentStore implements the store.DocumentStore interface
// using a PostgreSQL database.
type PostgresDocumentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// Ensure PostgresDocumentStore implements store.DocumentStore interface
var _ store.DocumentStore = (*PostgresDocumentStore)(nil)

// NewPostgresDocumentStore creates a new PostgreSQL implementation of the
// store.DocumentStore interface. It accepts a database connection or
// transaction that should be initialized and managed by the caller.
func NewPostgresDocumentStore(db store.DBTX, log *slog.Logger) *PostgresDocumentStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresDocumentStore{
		db:     db,
		logger: log.With(slog.String("component", "document_store")),
	}
}

// WithTx returns a new DocumentStore instance that uses the provided transaction.
func (s *PostgresDocumentStore) WithTx(tx *sql.Tx) store.DocumentStore {
	return &PostgresDocumentStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create saves a new document record to the database. The caller uploads
// the bytes to object storage first, so a failed insert never leaves a
// dangling row pointing at nothing.
func (s *PostgresDocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := doc.Validate(); err != nil {
		log.Warn("document validation failed during creation",
			slog.String("error", err.Error()),
			slog.String("document_id", doc.ID.String()))
		return err
	}

	query := `
		INSERT INTO documents (id, user_id, filename, storage_key, mime_type, file_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.Filename,
		doc.StorageKey,
		doc.MimeType,
		doc.FileSize,
		doc.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("document references missing user",
				slog.String("document_id", doc.ID.String()),
				slog.String("error", err.Error()))
			return fmt.Errorf("%w: referenced user does not exist", store.ErrInvalidEntity)
		}

		log.Error("failed to create document",
			slog.String("error", err.Error()),
			slog.String("document_id", doc.ID.String()))
		return MapError(err)
	}

	log.Debug("document created successfully",
		slog.String("document_id", doc.ID.String()),
		slog.String("filename", doc.Filename))
	return nil
}

// GetByID retrieves a document by its unique ID.
// Returns store.ErrDocumentNotFound if the document does not exist.
func (s *PostgresDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, filename, storage_key, mime_type, file_size, created_at
		FROM documents
		WHERE id = $1
	`

	var doc domain.Document
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Filename,
		&doc.StorageKey,
		&doc.MimeType,
		&doc.FileSize,
		&doc.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Debug("document not found", slog.String("document_id", id.String()))
			return nil, store.ErrDocumentNotFound
		}

		log.Error("failed to get document by ID",
			slog.String("error", err.Error()),
			slog.String("document_id", id.String()))
		return nil, MapError(err)
	}

	return &doc, nil
}
