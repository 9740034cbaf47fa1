package task

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/tools"
)

// Common errors for the task package
var (
	ErrNilTaskStore     = errors.New("task store cannot be nil")
	ErrNilDocumentStore = errors.New("document store cannot be nil")
	ErrNilUserStore     = errors.New("user store cannot be nil")
	ErrNilBlobStore     = errors.New("blob store cannot be nil")
	ErrNilExtractor     = errors.New("text extractor cannot be nil")
	ErrNilToolRunner    = errors.New("tool runner cannot be nil")
	ErrNilNotifier      = errors.New("notifier cannot be nil")
	ErrNilLogger        = errors.New("logger cannot be nil")
	ErrNilProcessor     = errors.New("processor cannot be nil")
	ErrNilRunner        = errors.New("runner cannot be nil")
	ErrQueueFull        = errors.New("task queue is full")
)

// BlobStore fetches and stores document bytes in object storage. The
// database only carries storage keys; the bytes live behind this
// interface.
type BlobStore interface {
	// FetchBytes retrieves the object stored under the given key.
	FetchBytes(ctx context.Context, storageKey string) ([]byte, error)

	// StoreBytes writes the object under the given key with the given
	// content type, overwriting any previous object.
	StoreBytes(ctx context.Context, storageKey string, data []byte, contentType string) error
}

// TextExtractor turns raw document bytes into plain text for prompting.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

// ToolRunner executes one tool pipeline over extracted document text and
// returns the structured result payload.
type ToolRunner interface {
	Run(ctx context.Context, tool tools.Tool, docText string, params json.RawMessage) (json.RawMessage, error)
}

// Notifier reports terminal task outcomes to the owning user. Delivery
// is best-effort: failures are logged and never affect task state.
type Notifier interface {
	TaskCompleted(ctx context.Context, recipient string, task *domain.Task) error
	TaskFailed(ctx context.Context, recipient string, task *domain.Task) error
}
