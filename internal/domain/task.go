package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the processing state of a task.
type TaskStatus string

// Possible task status values. Pending and processing are the only
// non-terminal states; completed and failed are terminal and a task
// must never leave them.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Progress maps a status to the coarse percentage reported to polling
// clients. It is derived, never persisted.
func (s TaskStatus) Progress() int {
	switch s {
	case TaskStatusProcessing:
		return 50
	case TaskStatusCompleted:
		return 100
	default:
		return 0
	}
}

// ParseTaskStatus validates a wire value against the known statuses.
// An empty string is allowed and means no status filter.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if s != "" && !isValidTaskStatus(status) {
		return "", ErrInvalidTaskStatus
	}
	return status, nil
}

// Common validation and transition errors for Task
var (
	ErrEmptyTaskID         = errors.New("task ID cannot be empty")
	ErrEmptyTaskUserID     = errors.New("task user ID cannot be empty")
	ErrEmptyTaskDocumentID = errors.New("task document ID cannot be empty")
	ErrEmptyTaskTool       = errors.New("task tool cannot be empty")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrTaskNotPending      = errors.New("task is not pending")
	ErrTaskNotProcessing   = errors.New("task is not processing")
	ErrEmptyTaskResult     = errors.New("completed task requires a result")
	ErrEmptyTaskError      = errors.New("failed task requires an error message")
)

// Task represents one asynchronous document operation requested by a
// user. It carries the tool tag selecting the pipeline, the submission
// parameters, and the terminal outcome. Once terminal, exactly one of
// Result and ErrorMessage is set, never both.
type Task struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	DocumentID   uuid.UUID       `json:"document_id"`
	Tool         string          `json:"tool"`
	Params       json.RawMessage `json:"params,omitempty"`
	Status       TaskStatus      `json:"status"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// NewTask creates a pending Task for the given owner, document and tool.
// It generates the task ID and sets the creation timestamp.
// Returns an error if validation fails.
func NewTask(userID, documentID uuid.UUID, tool string, params json.RawMessage) (*Task, error) {
	task := &Task{
		ID:         uuid.New(),
		UserID:     userID,
		DocumentID: documentID,
		Tool:       tool,
		Params:     params,
		Status:     TaskStatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTaskUserID
	}

	if t.DocumentID == uuid.Nil {
		return ErrEmptyTaskDocumentID
	}

	if t.Tool == "" {
		return ErrEmptyTaskTool
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	return nil
}

// MarkProcessing transitions the task from pending to processing and
// records when work began, which the stuck-task reaper measures against.
// Any other starting state is an error; terminal states are immutable.
func (t *Task) MarkProcessing() error {
	if t.Status != TaskStatusPending {
		return ErrTaskNotPending
	}

	now := time.Now().UTC()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	return nil
}

// Complete transitions the task from processing to completed and records
// the result payload. The result must be non-empty so that polling a
// completed task always yields one.
func (t *Task) Complete(result json.RawMessage) error {
	if t.Status != TaskStatusProcessing {
		return ErrTaskNotProcessing
	}

	if len(result) == 0 {
		return ErrEmptyTaskResult
	}

	now := time.Now().UTC()
	t.Status = TaskStatusCompleted
	t.Result = result
	t.ErrorMessage = ""
	t.CompletedAt = &now
	return nil
}

// Fail transitions the task from processing to failed and records the
// failure reason. The message must be non-empty so that polling a failed
// task always yields one.
func (t *Task) Fail(message string) error {
	if t.Status != TaskStatusProcessing {
		return ErrTaskNotProcessing
	}

	if message == "" {
		return ErrEmptyTaskError
	}

	now := time.Now().UTC()
	t.Status = TaskStatusFailed
	t.Result = nil
	t.ErrorMessage = message
	t.CompletedAt = &now
	return nil
}

// Progress returns the derived completion percentage for the task.
func (t *Task) Progress() int {
	return t.Status.Progress()
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}
