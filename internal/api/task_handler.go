package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/quilldocs/quill-api/internal/api/shared"
	"github.com/quilldocs/quill-api/internal/domain"
	"github.com/quilldocs/quill-api/internal/platform/logger"
	"github.com/quilldocs/quill-api/internal/service"
)

// SubmitTaskRequest represents the request body for submitting a task
type SubmitTaskRequest struct {
	DocumentID uuid.UUID       `json:"document_id" validate:"required"`
	Tool       string          `json:"tool"        validate:"required"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// TaskSubmittedResponse acknowledges an accepted task submission
type TaskSubmittedResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskResponse represents the response data for a task
type TaskResponse struct {
	ID          string      `json:"id"`
	DocumentID  string      `json:"document_id"`
	Tool        string      `json:"tool"`
	Status      string      `json:"status"`
	Progress    int         `json:"progress"`
	Result      interface{} `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// TaskListResponse represents the response data for a task listing
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService service.TaskService, log *slog.Logger) *TaskHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskService: taskService,
		logger:      log.With(slog.String("component", "task_handler")),
	}
}

// SubmitTask handles POST /tasks requests
// It validates the submission and enqueues the task for asynchronous
// processing, acknowledging with 202 Accepted before any work runs.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract user ID from context (set by auth middleware)
	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	// Parse request body
	var req SubmitTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// Validate request
	if err := shared.Validate.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	// Submit to service. Tool and parameter validation happen there,
	// before any task record exists.
	task, err := h.taskService.Submit(r.Context(), userID, req.DocumentID, req.Tool, req.Params)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit task")
		return
	}

	log.Debug("task accepted",
		slog.String("task_id", task.ID.String()),
		slog.String("tool", task.Tool),
		slog.String("user_id", userID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskSubmittedResponse{
		TaskID: task.ID.String(),
		Status: string(task.Status),
	})
}

// GetTask handles GET /tasks/{id} requests
// It returns the task projection that polling clients consume until the
// task reaches a terminal status.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract user ID from context and task ID from path
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(r.Context(), taskID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// ListTasks handles GET /tasks requests
// It returns the caller's tasks newest first, optionally filtered by
// status and paginated with limit and offset.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	// Get logger from context or use default
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	// Extract user ID from context (set by auth middleware)
	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	// An empty status means no filter
	status, err := domain.ParseTaskStatus(r.URL.Query().Get("status"))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, GetSafeErrorMessage(err), err)
		return
	}

	limit, ok := parseQueryInt(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := parseQueryInt(w, r, "offset")
	if !ok {
		return
	}

	tasks, err := h.taskService.ListTasks(r.Context(), userID, status, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	// Transform domain objects to responses
	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, taskToResponse(task))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{
		Tasks: responses,
		Total: len(responses),
	})
}

// parseQueryInt reads a non-negative integer query parameter, writing a
// 400 response and returning ok=false when the value does not parse. An
// absent parameter yields zero, which the store treats as its default.
func parseQueryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid "+name+" parameter")
		return 0, false
	}
	return n, true
}

// taskToResponse converts a domain.Task to a TaskResponse
func taskToResponse(task *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID.String(),
		DocumentID:  task.DocumentID.String(),
		Tool:        task.Tool,
		Status:      string(task.Status),
		Progress:    task.Progress(),
		Error:       task.ErrorMessage,
		CreatedAt:   task.CreatedAt,
		StartedAt:   task.StartedAt,
		CompletedAt: task.CompletedAt,
	}

	if len(task.Result) > 0 {
		var result interface{}
		if err := json.Unmarshal(task.Result, &result); err != nil {
			// In case we can't unmarshal, return raw bytes as a string representation
			result = string(task.Result)
		}
		resp.Result = result
	}

	return resp
}
