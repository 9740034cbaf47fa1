package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/quilldocs/quill-api/internal/domain"
)

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListByUser retrieves the user's tasks, newest first. An empty
	// status matches every status. Limit caps the result set and offset
	// pages through it.
	ListByUser(ctx context.Context, userID uuid.UUID, status domain.TaskStatus, limit, offset int) ([]*domain.Task, error)

	// Claim atomically transitions a pending task to processing and
	// returns the claimed row. Of any number of concurrent claimers,
	// exactly one wins; the rest get ErrTaskNotClaimable, as do claims on
	// missing or terminal tasks.
	Claim(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// MarkCompleted transitions a processing task to completed and
	// records its result payload. Returns ErrTaskNotProcessing when the
	// task is not processing, leaving terminal rows untouched.
	MarkCompleted(ctx context.Context, id uuid.UUID, result json.RawMessage) error

	// MarkFailed transitions a processing task to failed and records its
	// error message. Returns ErrTaskNotProcessing when the task is not
	// processing, leaving terminal rows untouched.
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error

	// ListPending retrieves pending tasks oldest first, so work that was
	// persisted but never finished dispatching can be requeued on startup.
	ListPending(ctx context.Context, limit int) ([]*domain.Task, error)

	// ResetStuck returns every processing task that started before the
	// cutoff to pending, clearing its start time, and returns the reset
	// tasks so the caller can requeue them. Rows only stay processing
	// past the hard time limit when their worker died, so anything the
	// cutoff catches is orphaned.
	ResetStuck(ctx context.Context, cutoff time.Time) ([]*domain.Task, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction, so multiple operations can commit or roll back
	// together. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
