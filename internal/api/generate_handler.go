package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/quilldocs/quill-api/internal/api/shared"
	"github.com/quilldocs/quill-api/internal/generation"
	"github.com/quilldocs/quill-api/internal/model"
	"github.com/quilldocs/quill-api/internal/platform/logger"
	"github.com/quilldocs/quill-api/internal/redact"
)

// GenerateRequest represents the request body for direct generation
type GenerateRequest struct {
	Prompt       string   `json:"prompt"    validate:"required"`
	TaskType     string   `json:"task_type" validate:"required"`
	Temperature  *float32 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens    int32    `json:"max_tokens,omitempty"  validate:"omitempty,gte=0"`
	Stream       bool     `json:"stream,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
}

// GenerateResponse represents a non-streaming generation result
type GenerateResponse struct {
	Text     string `json:"text"`
	TaskType string `json:"task_type"`
}

// streamEvent is the payload of one server-sent event. Exactly one of
// the fields is set per event.
type streamEvent struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// GenerateHandler handles direct generation HTTP requests. It exposes
// the executor without the task pipeline around it, for interactive
// callers that want text now rather than a polled task.
type GenerateHandler struct {
	executor *generation.Executor
	logger   *slog.Logger
}

// NewGenerateHandler creates a new GenerateHandler
func NewGenerateHandler(executor *generation.Executor, log *slog.Logger) *GenerateHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for GenerateHandler")
	}

	return &GenerateHandler{
		executor: executor,
		logger:   log.With(slog.String("component", "generate_handler")),
	}
}

// Generate handles POST /generate requests
// It runs one generation call, either returning the whole text in a JSON
// body or streaming fragments as server-sent events when stream is true.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
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
	var req GenerateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// Validate request
	if err := shared.Validate.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	taskType, err := model.ParseTaskType(req.TaskType)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	opts := generation.Options{
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
		SystemPrompt:    req.SystemPrompt,
	}

	log.Debug("generation requested",
		slog.String("task_type", string(taskType)),
		slog.Bool("stream", req.Stream),
		slog.String("user_id", userID.String()))

	if req.Stream {
		h.streamResponse(w, r, req.Prompt, taskType, opts)
		return
	}

	text, err := h.executor.Generate(r.Context(), req.Prompt, taskType, opts)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate response")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, GenerateResponse{
		Text:     text,
		TaskType: string(taskType),
	})
}

// streamResponse runs a streaming generation call and relays fragments
// as server-sent events. Each fragment becomes one data event carrying
// {"text": ...}; the stream ends with a [DONE] marker, or with an
// {"error": ...} event when the stream was cut short.
func (h *GenerateHandler) streamResponse(
	w http.ResponseWriter,
	r *http.Request,
	prompt string,
	taskType model.TaskType,
	opts generation.Options,
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming is not supported on this connection")
		return
	}

	// The request context ties the producer to the client: a disconnect
	// cancels it and releases the pool worker.
	stream, err := h.executor.Stream(r.Context(), prompt, taskType, opts)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate response")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		fragment, ok := stream.Next()
		if !ok {
			break
		}
		writeSSEEvent(w, streamEvent{Text: fragment})
		flusher.Flush()
	}

	if err := stream.Err(); err != nil {
		log.Warn("stream ended early",
			slog.String("error", redact.Error(err)))
		writeSSEEvent(w, streamEvent{Error: GetSafeErrorMessage(err)})
		flusher.Flush()
		return
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// writeSSEEvent encodes one event in the text/event-stream framing.
func writeSSEEvent(w io.Writer, event streamEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
