package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/events"
	"github.com/quilldocs/quill-api/internal/store"
	"github.com/quilldocs/quill-api/internal/tools"
)

// ToolValidator checks tool parameters before a task is persisted.
// tools.Registry implements it.
type ToolValidator interface {
	ValidateParams(tool tools.Tool, raw json.RawMessage) error
}

// TaskService coordinates task submission and polling.
type TaskService interface {
	// Submit validates the tool invocation and the caller's ownership of
	// the document, persists a pending task, and announces it to the
	// worker pool. The task is durable once Submit returns: even if
	// dispatch fails, the periodic sweep picks the row up later.
	Submit(ctx context.Context, ownerID, documentID uuid.UUID, tool string, params json.RawMessage) (*domain.Task, error)

	// GetTask retrieves a task for polling. Returns
	// store.ErrTaskNotFound if no such task exists and ErrNotOwned if
	// the caller does not own it. Safe to call arbitrarily often,
	// including after the task is terminal.
	GetTask(ctx context.Context, taskID, callerID uuid.UUID) (*domain.Task, error)

	// ListTasks retrieves the caller's tasks newest first. An empty
	// status matches every status.
	ListTasks(ctx context.Context, ownerID uuid.UUID, status domain.TaskStatus, limit, offset int) ([]*domain.Task, error)
}

// TaskServiceImpl implements the TaskService interface
type TaskServiceImpl struct {
	db        *sql.DB
	tasks     store.TaskStore
	documents store.DocumentStore
	validator ToolValidator
	emitter   events.Emitter
	logger    *slog.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(
	db *sql.DB,
	tasks store.TaskStore,
	documents store.DocumentStore,
	validator ToolValidator,
	emitter events.Emitter,
	logger *slog.Logger,
) TaskService {
	return &TaskServiceImpl{
		db:        db,
		tasks:     tasks,
		documents: documents,
		validator: validator,
		emitter:   emitter,
		logger:    logger.With("component", "task_service"),
	}
}

// Submit validates the submission, persists the pending task, and emits
// the submission event. Validation failures happen before any record
// exists, so a rejected submission never enters the queue.
func (s *TaskServiceImpl) Submit(
	ctx context.Context,
	ownerID, documentID uuid.UUID,
	tool string,
	params json.RawMessage,
) (*domain.Task, error) {
	parsed, err := tools.Parse(tool)
	if err != nil {
		s.logger.Debug("rejected submission with unknown tool",
			"tool", tool,
			"user_id", ownerID)
		return nil, err
	}

	if err := s.validator.ValidateParams(parsed, params); err != nil {
		s.logger.Debug("rejected submission with invalid params",
			"tool", tool,
			"user_id", ownerID,
			"error", err)
		return nil, err
	}

	task, err := domain.NewTask(ownerID, documentID, string(parsed), params)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	// Ownership check and insert share a transaction so the document
	// cannot change hands between them.
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		doc, err := s.documents.WithTx(tx).GetByID(ctx, documentID)
		if err != nil {
			return err
		}
		if doc.UserID != ownerID {
			return ErrNotOwned
		}
		return s.tasks.WithTx(tx).Create(ctx, task)
	})
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) || errors.Is(err, ErrNotOwned) {
			s.logger.Debug("rejected submission against inaccessible document",
				"document_id", documentID,
				"user_id", ownerID)
		} else {
			s.logger.Error("failed to persist task",
				"error", err,
				"document_id", documentID,
				"user_id", ownerID)
		}
		return nil, err
	}

	s.logger.Info("task submitted",
		"task_id", task.ID,
		"tool", task.Tool,
		"user_id", ownerID)

	s.announce(ctx, task)
	return task, nil
}

// announce emits the submission event. Failure is not fatal: the row is
// already pending and the runner's sweep requeues anything that never
// reached the queue.
func (s *TaskServiceImpl) announce(ctx context.Context, task *domain.Task) {
	event, err := events.NewEvent(events.TypeTaskSubmitted, events.TaskSubmittedPayload{
		TaskID: task.ID,
		Tool:   task.Tool,
	})
	if err != nil {
		s.logger.Warn("failed to build submission event, task waits for the sweep",
			"error", err,
			"task_id", task.ID)
		return
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Warn("failed to dispatch task, task waits for the sweep",
			"error", err,
			"task_id", task.ID)
	}
}

// GetTask retrieves a task for polling, enforcing ownership.
func (s *TaskServiceImpl) GetTask(ctx context.Context, taskID, callerID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			s.logger.Error("failed to retrieve task",
				"error", err,
				"task_id", taskID)
		}
		return nil, err
	}

	if task.UserID != callerID {
		s.logger.Warn("task access denied",
			"task_id", taskID,
			"owner_id", task.UserID,
			"caller_id", callerID)
		return nil, ErrNotOwned
	}

	return task, nil
}

// ListTasks retrieves the caller's tasks newest first.
func (s *TaskServiceImpl) ListTasks(
	ctx context.Context,
	ownerID uuid.UUID,
	status domain.TaskStatus,
	limit, offset int,
) ([]*domain.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, ownerID, status, limit, offset)
	if err != nil {
		s.logger.Error("failed to list tasks",
			"error", err,
			"user_id", ownerID)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}
