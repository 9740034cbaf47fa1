package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/platform/logger"
	"github.com/quilldocs/quill-api/internal/store"
)

// taskColumns is the column list every task query selects, kept in one
// place so scanTask stays in sync with the queries.
const taskColumns = "id, user_id, document_id, tool, params, status, result, error_message, created_at, started_at, completed_at"

// defaultTaskListLimit caps list queries when the caller passes no limit.
const defaultTaskListLimit = 10

// PostgresTaskStore implements the store.TaskStore interface using a
// PostgreSQL database.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// store.TaskStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresTaskStore(db store.DBTX, log *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default with component attribute
	if log == nil {
		log = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: log.With(slog.String("component", "task_store")),
	}
}

// WithTx returns a new TaskStore instance that uses the provided transaction.
// This allows for multiple operations to be executed within a single transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner abstracts over *sql.Row and *sql.Rows so one scan routine
// serves both single-row and multi-row queries.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one task row into a domain.Task, converting nullable
// columns into their Go representations.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		params      []byte
		result      []byte
		errMsg      sql.NullString
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.DocumentID,
		&task.Tool,
		&params,
		&task.Status,
		&result,
		&errMsg,
		&task.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(params) > 0 {
		task.Params = json.RawMessage(params)
	}
	if len(result) > 0 {
		task.Result = json.RawMessage(result)
	}
	if errMsg.Valid {
		task.ErrorMessage = errMsg.String
	}
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		task.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		task.CompletedAt = &t
	}

	return &task, nil
}

// Create saves a new task to the database.
// The task is persisted exactly as validated, so it reaches the queue in
// pending state before any worker can observe it.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during creation",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, user_id, document_id, tool, params, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.UserID,
		task.DocumentID,
		task.Tool,
		nullableJSON(task.Params),
		task.Status,
		task.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("task references missing user or document",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
			return fmt.Errorf("%w: referenced user or document does not exist", store.ErrInvalidEntity)
		}

		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Debug("task created successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("tool", task.Tool))
	return nil
}

// GetByID retrieves a task by its unique ID.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}

		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	return task, nil
}

// ListByUser retrieves tasks owned by the given user, newest first.
// An empty status matches all states. Non-positive limits fall back to
// the default page size.
func (s *PostgresTaskStore) ListByUser(ctx context.Context, userID uuid.UUID, status domain.TaskStatus, limit, offset int) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = defaultTaskListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var (
		rows *sql.Rows
		err  error
	)

	if status != "" {
		query := `
			SELECT ` + taskColumns + `
			FROM tasks
			WHERE user_id = $1 AND status = $2
			ORDER BY created_at DESC
			LIMIT $3 OFFSET $4
		`
		rows, err = s.db.QueryContext(ctx, query, userID, status, limit, offset)
	} else {
		query := `
			SELECT ` + taskColumns + `
			FROM tasks
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		`
		rows, err = s.db.QueryContext(ctx, query, userID, limit, offset)
	}

	if err != nil {
		log.Error("failed to query tasks for user",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error("error closing rows", slog.String("error", closeErr.Error()))
		}
	}()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()))
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}

	return tasks, nil
}

// Claim atomically transitions a pending task to processing and records
// the start time. The status guard in the WHERE clause makes concurrent
// claims race safely: exactly one caller gets the row back, everyone
// else gets store.ErrTaskNotClaimable.
func (s *PostgresTaskStore) Claim(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1, started_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + taskColumns + `
	`

	now := time.Now().UTC()
	task, err := scanTask(s.db.QueryRowContext(
		ctx,
		query,
		domain.TaskStatusProcessing,
		now,
		id,
		domain.TaskStatusPending,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			log.Debug("task not claimable", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotClaimable
		}

		log.Error("failed to claim task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	log.Debug("task claimed",
		slog.String("task_id", task.ID.String()),
		slog.String("tool", task.Tool))
	return task, nil
}

// MarkCompleted transitions a processing task to completed with the given
// result payload and clears any stale error message. The status guard
// keeps terminal tasks immutable; a second terminal write returns
// store.ErrTaskNotProcessing.
func (s *PostgresTaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(result) == 0 {
		return domain.ErrEmptyTaskResult
	}

	query := `
		UPDATE tasks
		SET status = $1, result = $2, error_message = NULL, completed_at = $3
		WHERE id = $4 AND status = $5
	`

	res, err := s.db.ExecContext(
		ctx,
		query,
		domain.TaskStatusCompleted,
		[]byte(result),
		time.Now().UTC(),
		id,
		domain.TaskStatusProcessing,
	)
	if err != nil {
		log.Error("failed to mark task completed",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		log.Warn("completion rejected, task is not processing",
			slog.String("task_id", id.String()))
		return store.ErrTaskNotProcessing
	}

	log.Debug("task marked completed", slog.String("task_id", id.String()))
	return nil
}

// MarkFailed transitions a processing task to failed with the given error
// message and clears any partial result. Like MarkCompleted, it refuses
// to touch tasks that are not processing.
func (s *PostgresTaskStore) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if message == "" {
		return domain.ErrEmptyTaskError
	}

	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, result = NULL, completed_at = $3
		WHERE id = $4 AND status = $5
	`

	res, err := s.db.ExecContext(
		ctx,
		query,
		domain.TaskStatusFailed,
		message,
		time.Now().UTC(),
		id,
		domain.TaskStatusProcessing,
	)
	if err != nil {
		log.Error("failed to mark task failed",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		log.Warn("failure rejected, task is not processing",
			slog.String("task_id", id.String()))
		return store.ErrTaskNotProcessing
	}

	log.Debug("task marked failed", slog.String("task_id", id.String()))
	return nil
}

// ListPending retrieves pending tasks oldest first, so startup recovery
// re-enqueues work in submission order. A non-positive limit returns all
// pending tasks.
func (s *PostgresTaskStore) ListPending(ctx context.Context, limit int) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		query := `
			SELECT ` + taskColumns + `
			FROM tasks
			WHERE status = $1
			ORDER BY created_at ASC
			LIMIT $2
		`
		rows, err = s.db.QueryContext(ctx, query, domain.TaskStatusPending, limit)
	} else {
		query := `
			SELECT ` + taskColumns + `
			FROM tasks
			WHERE status = $1
			ORDER BY created_at ASC
		`
		rows, err = s.db.QueryContext(ctx, query, domain.TaskStatusPending)
	}

	if err != nil {
		log.Error("failed to query pending tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error("error closing rows", slog.String("error", closeErr.Error()))
		}
	}()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return tasks, nil
}

// ResetStuck returns every processing task that started before the cutoff
// to pending and reports the reset rows for requeueing. started_at is the
// only honest measure of processing age, so rows without one are left
// alone.
func (s *PostgresTaskStore) ResetStuck(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1, started_at = NULL
		WHERE status = $2 AND started_at IS NOT NULL AND started_at < $3
		RETURNING ` + taskColumns + `
	`

	rows, err := s.db.QueryContext(
		ctx,
		query,
		domain.TaskStatusPending,
		domain.TaskStatusProcessing,
		cutoff,
	)
	if err != nil {
		log.Error("failed to reset stuck tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error("error closing rows", slog.String("error", closeErr.Error()))
		}
	}()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	if len(tasks) > 0 {
		log.Warn("reset stuck tasks to pending",
			slog.Int("count", len(tasks)),
			slog.Time("cutoff", cutoff))
	}

	return tasks, nil
}

// nullableJSON converts an optional JSON payload to a driver value,
// storing NULL rather than an empty byte slice.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
