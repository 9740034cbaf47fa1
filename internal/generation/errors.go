package generation

import "errors"

// Common errors returned by the generation package. Backends wrap
// transport failures with one of the classified sentinels; the executor
// treats every classified error as grounds to advance the fallback
// cascade rather than surface a failure.
var (
	// ErrEmptyPrompt is returned when a caller submits an empty prompt.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrGenerationFailed is the generic wrapper for backend failures
	// that fit no more specific class.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrModelUnavailable is returned when a model is unreachable or not
	// served by the backend.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrRateLimited is returned when the backend reports quota or rate
	// exhaustion.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrPermissionDenied is returned when the backend rejects the
	// caller's credentials for a model.
	ErrPermissionDenied = errors.New("permission denied by backend")

	// ErrBadRequest is returned when the backend classifies the request
	// itself as malformed.
	ErrBadRequest = errors.New("backend rejected request")

	// ErrInvalidResponse is returned when a backend response cannot be
	// decoded.
	ErrInvalidResponse = errors.New("invalid response from backend")

	// ErrInvalidConfig is returned when an executor or backend is
	// constructed with unusable configuration.
	ErrInvalidConfig = errors.New("invalid generation configuration")

	// ErrPoolClosed is returned when a call is submitted after shutdown.
	ErrPoolClosed = errors.New("call pool is closed")
)
