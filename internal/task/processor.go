package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/platform/logger"
	"github.com/quilldocs/quill-api/internal/redact"
	"github.com/quilldocs/quill-api/internal/store"
	"github.com/quilldocs/quill-api/internal/tools"
)

// softTimeoutMessage is the error message persisted when a task ran out
// of its soft time budget.
const softTimeoutMessage = "Task processing timed out."

// ToolProcessor runs the full pipeline for a single queued task: claim
// the row, fetch the document bytes, extract text, execute the tool, and
// persist the terminal state. The owner is notified after completion or
// failure on a best-effort basis.
type ToolProcessor struct {
	tasks      store.TaskStore
	documents  store.DocumentStore
	users      store.UserStore
	blobs      BlobStore
	extractor  TextExtractor
	toolRunner ToolRunner
	notifier   Notifier
	logger     *slog.Logger
}

// NewToolProcessor creates a ToolProcessor, validating that every
// collaborator is present.
func NewToolProcessor(
	tasks store.TaskStore,
	documents store.DocumentStore,
	users store.UserStore,
	blobs BlobStore,
	extractor TextExtractor,
	toolRunner ToolRunner,
	notifier Notifier,
	log *slog.Logger,
) (*ToolProcessor, error) {
	if tasks == nil {
		return nil, ErrNilTaskStore
	}
	if documents == nil {
		return nil, ErrNilDocumentStore
	}
	if users == nil {
		return nil, ErrNilUserStore
	}
	if blobs == nil {
		return nil, ErrNilBlobStore
	}
	if extractor == nil {
		return nil, ErrNilExtractor
	}
	if toolRunner == nil {
		return nil, ErrNilToolRunner
	}
	if notifier == nil {
		return nil, ErrNilNotifier
	}
	if log == nil {
		return nil, ErrNilLogger
	}

	return &ToolProcessor{
		tasks:      tasks,
		documents:  documents,
		users:      users,
		blobs:      blobs,
		extractor:  extractor,
		toolRunner: toolRunner,
		notifier:   notifier,
		logger:     log.With(slog.String("component", "tool_processor")),
	}, nil
}

// Process claims the queued task and drives it to a terminal state. A
// task that was already claimed by another worker is skipped without
// error. When the context is canceled mid-flight the row is left in
// processing so that startup recovery can requeue it.
func (p *ToolProcessor) Process(ctx context.Context, queued *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("task_id", queued.ID.String()),
		slog.String("tool", queued.Tool),
	)

	claimed, err := p.tasks.Claim(ctx, queued.ID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotClaimable) {
			log.Debug("task no longer pending, skipping")
			return nil
		}
		return fmt.Errorf("failed to claim task: %w", err)
	}

	log.Info("task processing started")

	result, runErr := p.run(ctx, claimed)
	if runErr != nil {
		return p.fail(ctx, log, claimed, runErr)
	}
	return p.complete(ctx, log, claimed, result)
}

// run executes the document pipeline and returns the tool output.
func (p *ToolProcessor) run(ctx context.Context, task *domain.Task) (json.RawMessage, error) {
	tool, err := tools.Parse(task.Tool)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tool: %w", err)
	}

	doc, err := p.documents.GetByID(ctx, task.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	data, err := p.blobs.FetchBytes(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document content: %w", err)
	}

	text, err := p.extractor.Extract(ctx, data, doc.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document text: %w", err)
	}

	result, err := p.toolRunner.Run(ctx, tool, text, task.Params)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// complete persists the result and notifies the owner. The write uses a
// context detached from cancellation so a task that finished just as its
// soft limit expired still records its result.
func (p *ToolProcessor) complete(ctx context.Context, log *slog.Logger, task *domain.Task, result json.RawMessage) error {
	persistCtx := context.WithoutCancel(ctx)

	if err := p.tasks.MarkCompleted(persistCtx, task.ID, result); err != nil {
		return fmt.Errorf("failed to persist task result: %w", err)
	}
	if err := task.Complete(result); err != nil {
		return fmt.Errorf("failed to finalize task: %w", err)
	}

	log.Info("task completed")
	p.notify(persistCtx, log, task)
	return nil
}

// fail classifies the pipeline error and persists the failure. A
// canceled context means the process is shutting down, so the row stays
// in processing for startup recovery to requeue.
func (p *ToolProcessor) fail(ctx context.Context, log *slog.Logger, task *domain.Task, runErr error) error {
	if errors.Is(runErr, context.Canceled) {
		log.Warn("task interrupted by shutdown, leaving row for recovery")
		return runErr
	}

	message := redact.Error(runErr)
	if errors.Is(runErr, context.DeadlineExceeded) {
		message = softTimeoutMessage
	}

	persistCtx := context.WithoutCancel(ctx)

	if err := p.tasks.MarkFailed(persistCtx, task.ID, message); err != nil {
		// The hard-limit watchdog may have force-failed the row already.
		if errors.Is(err, store.ErrTaskNotProcessing) {
			log.Warn("task already in a terminal state", slog.String("error", redact.Error(runErr)))
			return runErr
		}
		return fmt.Errorf("failed to persist task failure: %w", err)
	}
	if err := task.Fail(message); err != nil {
		return fmt.Errorf("failed to finalize task: %w", err)
	}

	log.Error("task failed", slog.String("error", redact.Error(runErr)))
	p.notify(persistCtx, log, task)
	return runErr
}

// notify looks up the task owner and sends the outcome email. Failures
// are logged and swallowed; notification never affects task state.
func (p *ToolProcessor) notify(ctx context.Context, log *slog.Logger, task *domain.Task) {
	user, err := p.users.GetByID(ctx, task.UserID)
	if err != nil {
		log.Warn("skipping notification, failed to load task owner", slog.String("error", redact.Error(err)))
		return
	}

	var notifyErr error
	switch task.Status {
	case domain.TaskStatusCompleted:
		notifyErr = p.notifier.TaskCompleted(ctx, user.Email, task)
	case domain.TaskStatusFailed:
		notifyErr = p.notifier.TaskFailed(ctx, user.Email, task)
	}
	if notifyErr != nil {
		log.Warn("failed to send task notification", slog.String("error", redact.Error(notifyErr)))
	}
}
