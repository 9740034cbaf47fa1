package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/quilldocs/quill-api/internal/api/shared"
	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/platform/logger"
	"github.com/quilldocs/quill-api/internal/redact"
	"github.com/quilldocs/quill-api/internal/service"
)

// maxUploadBytes caps document uploads. Larger requests are rejected
// with 413 before any bytes reach object storage.
const maxUploadBytes = 50 << 20

// DocumentResponse represents the response data for a document
type DocumentResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentHandler handles document-related HTTP requests
type DocumentHandler struct {
	documentService service.DocumentService
	logger          *slog.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documentService service.DocumentService, log *slog.Logger) *DocumentHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for DocumentHandler")
	}

	return &DocumentHandler{
		documentService: documentService,
		logger:          log.With(slog.String("component", "document_handler")),
	}
}

// UploadDocument handles POST /documents requests
// It accepts a multipart form with a single file field, stores the bytes
// in object storage and persists the metadata row tasks will reference.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract user ID from context (set by auth middleware)
	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		if isRequestTooLarge(err) {
			shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "File exceeds the upload size limit")
			return
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, "A file form field is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		if isRequestTooLarge(err) {
			shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "File exceeds the upload size limit")
			return
		}
		log.Error("failed to read uploaded file",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	if len(data) == 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Uploaded file is empty")
		return
	}

	// Trust the declared content type when the client sent a specific
	// one, otherwise sniff it from the leading bytes.
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	doc, err := h.documentService.Upload(r.Context(), userID, header.Filename, mimeType, data)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to upload document")
		return
	}

	log.Debug("document upload accepted",
		slog.String("document_id", doc.ID.String()),
		slog.Int64("file_size", doc.FileSize),
		slog.String("user_id", userID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, documentToResponse(doc))
}

// GetDocument handles GET /documents/{id} requests
// It returns document metadata for the owner; the bytes stay in object
// storage and are only consumed by the task pipeline.
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract user ID from context and document ID from path
	userID, documentID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	doc, err := h.documentService.GetDocument(r.Context(), documentID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get document")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, documentToResponse(doc))
}

// isRequestTooLarge reports whether the error came from the request body
// exceeding the MaxBytesReader limit.
func isRequestTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

// documentToResponse converts a domain.Document to a DocumentResponse
func documentToResponse(doc *domain.Document) DocumentResponse {
	return DocumentResponse{
		ID:        doc.ID.String(),
		Filename:  doc.Filename,
		MimeType:  doc.MimeType,
		FileSize:  doc.FileSize,
		CreatedAt: doc.CreatedAt,
	}
}
