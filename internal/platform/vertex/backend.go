package vertex

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/quilldocs/quill-api/internal/generation"
)

// Config carries the settings for the Vertex AI REST client.
type Config struct {
	// Endpoint overrides the regional API host. Empty selects
	// https://{location}-aiplatform.googleapis.com.
	Endpoint string

	// AccessToken is sent as a bearer token on every request.
	AccessToken string

	// Project and Location identify the Vertex resource path.
	Project  string
	Location string

	// CallTimeout bounds non-streaming calls. Non-positive selects 2m.
	// Streaming calls are bounded by the caller's context only.
	CallTimeout time.Duration
}

// Backend is a raw REST implementation of generation.Backend. Unlike
// the gemini package it performs no internal retries; the executor's
// fallback cascade owns recovery.
type Backend struct {
	baseURL     string
	token       string
	project     string
	location    string
	client      *http.Client
	logger      *slog.Logger
	callTimeout time.Duration
}

// New creates a Vertex backend.
func New(logger *slog.Logger, cfg Config) (*Backend, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", generation.ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Project) == "" {
		return nil, fmt.Errorf("%w: vertex project cannot be empty", generation.ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Location) == "" {
		return nil, fmt.Errorf("%w: vertex location cannot be empty", generation.ErrInvalidConfig)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com", cfg.Location)
	}

	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 2 * time.Minute
	}

	return &Backend{
		baseURL:  baseURL,
		token:    strings.TrimSpace(cfg.AccessToken),
		project:  cfg.Project,
		location: cfg.Location,
		// No client-level timeout: it would cut long streams short.
		// Deadlines arrive via the request context.
		client:      &http.Client{},
		logger:      logger,
		callTimeout: callTimeout,
	}, nil
}

// Name reports the backend identifier used in logs and config.
func (b *Backend) Name() string { return "vertex" }

// Generate performs a single blocking generateContent call.
func (b *Backend) Generate(ctx context.Context, model string, req generation.Request) (*generation.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	resp, err := b.post(ctx, b.modelURL(model, "generateContent"), buildPayload(req))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", generation.ErrGenerationFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var decoded wireResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", generation.ErrInvalidResponse, err)
	}
	return decoded.toResult(), nil
}

// GenerateStream performs a streamGenerateContent call over SSE,
// passing each text fragment to yield as it arrives.
func (b *Backend) GenerateStream(ctx context.Context, model string, req generation.Request, yield func(string) error) (*generation.Result, error) {
	resp, err := b.post(ctx, b.modelURL(model, "streamGenerateContent")+"?alt=sse", buildPayload(req))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var chunk wireResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return nil, fmt.Errorf("%w: decoding stream chunk: %v", generation.ErrInvalidResponse, err)
		}
		if blocked := chunk.blockedResult(); blocked != nil {
			return blocked, nil
		}

		fragment := chunk.text()
		if fragment == "" {
			continue
		}
		if err := yield(fragment); err != nil {
			return nil, err
		}
		full.WriteString(fragment)
	}
	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: reading stream: %v", generation.ErrGenerationFailed, err)
	}

	return &generation.Result{Text: full.String()}, nil
}

func (b *Backend) modelURL(model, method string) string {
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		b.baseURL, b.project, b.location, model, method)
}

func (b *Backend) post(ctx context.Context, url string, payload wirePayload) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", generation.ErrBadRequest, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", generation.ErrBadRequest, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", generation.ErrModelUnavailable, err)
	}
	return resp, nil
}

// classifyStatus maps an HTTP error status onto the generation sentinel
// taxonomy, carrying a bounded excerpt of the response body.
func classifyStatus(status int, body []byte) error {
	excerpt := string(body)
	if len(excerpt) > 200 {
		excerpt = excerpt[:200]
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", generation.ErrRateLimited, excerpt)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", generation.ErrPermissionDenied, excerpt)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", generation.ErrModelUnavailable, excerpt)
	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", generation.ErrBadRequest, excerpt)
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", generation.ErrModelUnavailable, status, excerpt)
	default:
		return fmt.Errorf("%w: status %d: %s", generation.ErrGenerationFailed, status, excerpt)
	}
}

// Wire types for the generateContent JSON surface. Inline image bytes
// marshal to base64 automatically.

type wirePayload struct {
	Contents          []wireContent  `json:"contents"`
	SystemInstruction *wireContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *wireGenConfig `json:"generationConfig,omitempty"`
	SafetySettings    []wireSafety   `json:"safetySettings,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inlineData,omitempty"`
}

type wireInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type wireGenConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	MaxOutputTokens int32    `json:"maxOutputTokens,omitempty"`
}

type wireSafety struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type wireResponse struct {
	Candidates []struct {
		Content      wireContent `json:"content"`
		FinishReason string      `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func buildPayload(req generation.Request) wirePayload {
	parts := []wirePart{{Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, wirePart{InlineData: &wireInlineData{
			MIMEType: img.MIMEType,
			Data:     img.Data,
		}})
	}

	payload := wirePayload{
		Contents: []wireContent{{Role: "user", Parts: parts}},
	}
	if req.SystemPrompt != "" {
		payload.SystemInstruction = &wireContent{Parts: []wirePart{{Text: req.SystemPrompt}}}
	}
	if req.Temperature != nil || req.MaxOutputTokens > 0 {
		payload.GenerationConfig = &wireGenConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		}
	}
	for _, s := range generation.SafetySettings() {
		payload.SafetySettings = append(payload.SafetySettings, wireSafety{
			Category:  s.Category,
			Threshold: s.Threshold,
		})
	}
	return payload
}

func (r *wireResponse) blockedResult() *generation.Result {
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return &generation.Result{Blocked: true, BlockReason: r.PromptFeedback.BlockReason}
	}
	for _, cand := range r.Candidates {
		if cand.FinishReason == "SAFETY" {
			return &generation.Result{Blocked: true, BlockReason: "SAFETY"}
		}
	}
	return nil
}

func (r *wireResponse) text() string {
	var out strings.Builder
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			out.WriteString(part.Text)
		}
		break
	}
	return out.String()
}

func (r *wireResponse) toResult() *generation.Result {
	if blocked := r.blockedResult(); blocked != nil {
		return blocked
	}
	return &generation.Result{Text: r.text()}
}
