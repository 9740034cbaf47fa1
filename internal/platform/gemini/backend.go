package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/quilldocs/quill-api/internal/generation"
)

// Config carries the settings needed to talk to the Gemini API.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string

	// MaxRetries is the number of additional attempts after a transient
	// failure. Negative values select the default of 2.
	MaxRetries int

	// RetryBaseDelay is the first backoff interval; it doubles per
	// attempt with jitter. Non-positive values select 1s.
	RetryBaseDelay time.Duration
}

// Backend calls the Gemini API through the official genai client. It
// implements generation.Backend and model.Lister.
type Backend struct {
	client     *genai.Client
	logger     *slog.Logger
	maxRetries int
	baseDelay  time.Duration
}

// New creates a Gemini backend. The context is used only for client
// initialization.
func New(ctx context.Context, logger *slog.Logger, cfg Config) (*Backend, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", generation.ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: gemini api key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 2
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	return &Backend{
		client:     client,
		logger:     logger,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}, nil
}

// Name reports the backend identifier used in logs and config.
func (b *Backend) Name() string { return "gemini" }

// Generate performs a single blocking generation call, retrying
// transient API failures with exponential backoff.
func (b *Backend) Generate(ctx context.Context, model string, req generation.Request) (*generation.Result, error) {
	contents, cfg := buildCall(req)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var lastErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		resp, err := b.client.Models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			return resultFromResponse(resp), nil
		}

		classified := classifyError(err)
		if !isTransient(err) {
			return nil, classified
		}
		lastErr = classified

		if attempt == b.maxRetries {
			break
		}

		delay := backoffDelay(b.baseDelay, attempt, rng.Float64())
		b.logger.WarnContext(ctx, "gemini call failed, retrying",
			"model", model,
			"attempt", attempt+1,
			"max_attempts", b.maxRetries+1,
			"delay", delay,
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// GenerateStream performs a streaming generation call, passing each
// text fragment to yield as it arrives. Streaming calls are not
// retried here; the executor's cascade owns stream recovery.
func (b *Backend) GenerateStream(ctx context.Context, model string, req generation.Request, yield func(string) error) (*generation.Result, error) {
	contents, cfg := buildCall(req)

	var full strings.Builder
	for resp, err := range b.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
		if err != nil {
			return nil, classifyError(err)
		}
		if blocked := blockedResult(resp); blocked != nil {
			return blocked, nil
		}

		fragment := resp.Text()
		if fragment == "" {
			continue
		}
		if err := yield(fragment); err != nil {
			return nil, err
		}
		full.WriteString(fragment)
	}

	return &generation.Result{Text: full.String()}, nil
}

// ListImageModels returns the ids of live models usable for image
// generation, feeding the discovery cache.
func (b *Backend) ListImageModels(ctx context.Context) ([]string, error) {
	var ids []string
	for m, err := range b.client.Models.All(ctx) {
		if err != nil {
			return nil, classifyError(err)
		}
		if m == nil {
			continue
		}

		id := strings.TrimPrefix(m.Name, "models/")
		if !isImageCapable(id) {
			continue
		}
		if !supportsGenerate(m) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// isImageCapable matches the model families that accept image-generation
// prompts: the imagen line plus the flash experimental line.
func isImageCapable(id string) bool {
	lower := strings.ToLower(id)
	return strings.Contains(lower, "image") || strings.Contains(lower, "flash-exp")
}

func supportsGenerate(m *genai.Model) bool {
	for _, action := range m.SupportedActions {
		if action == "generateContent" {
			return true
		}
	}
	return false
}

// buildCall translates a generation request into genai call arguments.
func buildCall(req generation.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{
		SafetySettings: safetySettings(),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(*req.Temperature)
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = req.MaxOutputTokens
	}

	return contents, cfg
}

// safetySettings converts the process-wide policy into SDK settings.
// The wire enum strings are identical on both sides.
func safetySettings() []*genai.SafetySetting {
	policy := generation.SafetySettings()
	out := make([]*genai.SafetySetting, 0, len(policy))
	for _, s := range policy {
		out = append(out, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return out
}

// resultFromResponse maps an SDK response to a generation result.
func resultFromResponse(resp *genai.GenerateContentResponse) *generation.Result {
	if resp == nil {
		return &generation.Result{}
	}
	if blocked := blockedResult(resp); blocked != nil {
		return blocked
	}
	return &generation.Result{Text: resp.Text()}
}

// blockedResult reports a safety block carried in the response, either
// as prompt feedback or as the candidate's finish reason.
func blockedResult(resp *genai.GenerateContentResponse) *generation.Result {
	if resp == nil {
		return nil
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return &generation.Result{
			Blocked:     true,
			BlockReason: string(resp.PromptFeedback.BlockReason),
		}
	}
	for _, cand := range resp.Candidates {
		if cand != nil && cand.FinishReason == genai.FinishReasonSafety {
			return &generation.Result{
				Blocked:     true,
				BlockReason: string(genai.FinishReasonSafety),
			}
		}
	}
	return nil
}

// classifyError maps SDK failures onto the generation sentinel taxonomy.
// Context errors pass through unchanged so callers can abort the
// fallback cascade on cancellation.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return fmt.Errorf("%w: %s", generation.ErrRateLimited, apiErr.Message)
		case apiErr.Code == 401 || apiErr.Code == 403:
			return fmt.Errorf("%w: %s", generation.ErrPermissionDenied, apiErr.Message)
		case apiErr.Code == 404:
			return fmt.Errorf("%w: %s", generation.ErrModelUnavailable, apiErr.Message)
		case apiErr.Code == 400:
			return fmt.Errorf("%w: %s", generation.ErrBadRequest, apiErr.Message)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %s", generation.ErrModelUnavailable, apiErr.Message)
		}
	}

	return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
}

// isTransient reports whether a raw SDK error is worth retrying.
// Rate limits and server errors are; auth and request-shape errors are
// not, and neither is context cancellation.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	// No HTTP status means the request may never have reached the API.
	return true
}

// backoffDelay computes attempt's wait: base * 2^attempt scaled by a
// jitter factor between 0.5 and 1.0.
func backoffDelay(base time.Duration, attempt int, jitterSeed float64) time.Duration {
	backoff := float64(base) * math.Pow(2, float64(attempt))
	jitter := 0.5 + jitterSeed*0.5
	return time.Duration(backoff * jitter)
}
