package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/quilldocs/quill-api/internal/api/shared"
	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/generation"
	"github.com/quilldocs/quill-api/internal/model"
	"github.com/quilldocs/quill-api/internal/service"
	"github.com/quilldocs/quill-api/internal/service/auth"
	"github.com/quilldocs/quill-api/internal/store"
	"github.com/quilldocs/quill-api/internal/tools"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so
// handlers never leak internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrDocumentNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, tools.ErrUnknownTool),
		errors.Is(err, tools.ErrInvalidParams),
		errors.Is(err, model.ErrUnknownTaskType),
		errors.Is(err, domain.ErrInvalidTaskStatus),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, generation.ErrEmptyPrompt),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// The call pool only rejects work during shutdown.
	case errors.Is(err, generation.ErrPoolClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for the
// error. Internal detail stays in the logs.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this resource"

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrDocumentNotFound):
		return "Document not found"

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	// Bad request errors
	case errors.Is(err, tools.ErrUnknownTool):
		return "Unknown tool"

	case errors.Is(err, tools.ErrInvalidParams):
		return "Invalid tool parameters"

	case errors.Is(err, model.ErrUnknownTaskType):
		return "Unknown task type"

	case errors.Is(err, domain.ErrInvalidTaskStatus):
		return "Invalid task status filter"

	case errors.Is(err, generation.ErrEmptyPrompt):
		return "Prompt cannot be empty"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	case errors.Is(err, generation.ErrPoolClosed):
		return "Service is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the sanitized error response for err and logs
// the redacted detail. fallbackMessage replaces the generic message for
// unclassified server errors; pass "" to keep the default.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallbackMessage != "" {
		message = fallbackMessage
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError converts a validator error into a short
// user-facing message naming only the first failing field.
func SanitizeValidationError(err error) string {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-facing fragments.
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gt", "gte":
		return "too small"
	case "lt", "lte":
		return "too large"
	default:
		return "validation failed"
	}
}
