package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/events"
	"github.com/quilldocs/quill-api/internal/store"
)

// Enqueuer is the slice of the runner the event handler needs.
type Enqueuer interface {
	Enqueue(task *domain.Task) error
}

// SubmittedEventHandler reacts to task submission events by loading the
// persisted row and handing it to the worker pool.
type SubmittedEventHandler struct {
	tasks  store.TaskStore
	runner Enqueuer
	logger *slog.Logger
}

// NewSubmittedEventHandler creates a handler that feeds submitted tasks
// to the given runner.
func NewSubmittedEventHandler(tasks store.TaskStore, runner Enqueuer, log *slog.Logger) (*SubmittedEventHandler, error) {
	if tasks == nil {
		return nil, ErrNilTaskStore
	}
	if runner == nil {
		return nil, ErrNilRunner
	}
	if log == nil {
		return nil, ErrNilLogger
	}

	return &SubmittedEventHandler{
		tasks:  tasks,
		runner: runner,
		logger: log.With(slog.String("component", "task_event_handler")),
	}, nil
}

// HandleEvent enqueues the task named by a submission event. Events of
// other types are ignored. A full queue is not an error: the row stays
// pending and the runner's sweep resubmits it.
func (h *SubmittedEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeTaskSubmitted {
		h.logger.Debug("ignoring event with unsupported type",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID.String()),
		)
		return nil
	}

	var payload events.TaskSubmittedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to unmarshal task submission payload: %w", err)
	}

	task, err := h.tasks.GetByID(ctx, payload.TaskID)
	if err != nil {
		return fmt.Errorf("failed to load submitted task: %w", err)
	}

	if err := h.runner.Enqueue(task); err != nil {
		if errors.Is(err, ErrQueueFull) {
			h.logger.Warn("queue full, task stays pending until the sweep",
				slog.String("task_id", task.ID.String()),
			)
			return nil
		}
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	h.logger.Debug("task enqueued",
		slog.String("task_id", task.ID.String()),
		slog.String("tool", payload.Tool),
	)
	return nil
}

var _ events.Handler = (*SubmittedEventHandler)(nil)
