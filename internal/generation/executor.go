package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/quilldocs/quill-api/internal/model"
)

// User-facing degradation strings. Their exact wording is load-bearing:
// they guarantee that a completed task always carries non-empty text
// even when the backend misbehaved.
const (
	blockedResponseTemplate = "Response was blocked or empty. Reason: %s"
	emptyResponseText       = "No response generated. Please try again."
	apologyTemplate         = "I apologize, but I couldn't generate a response. Please try again. (Error: %v)"
)

// Options control a single generation request. The zero value asks the
// router to pick a model, leaves the temperature at the model default,
// and caps output at the model's token ceiling.
type Options struct {
	// Temperature overrides the sampling temperature when non-nil.
	Temperature *float32

	// MaxOutputTokens caps the response length. Zero means the model's
	// registry ceiling.
	MaxOutputTokens int32

	// Images switch the request payload to multimodal.
	Images []ImageData

	// SystemPrompt sets the system instruction (persona) for the call.
	SystemPrompt string

	// Model pins a specific model, bypassing router selection. The
	// fallback cascade still applies if it fails.
	Model string
}

// ExecutorConfig carries the dependencies for NewExecutor.
type ExecutorConfig struct {
	Router  *model.Router
	Backend Backend
	Pool    *CallPool
	Logger  *slog.Logger

	// DefaultMaxOutputTokens is used for models absent from the
	// registry. Zero selects 8192.
	DefaultMaxOutputTokens int32
}

// Executor routes and runs generation requests. Backend failures walk
// the fixed fallback order and, when every candidate has failed, degrade
// into an apology string returned as a successful result. Only context
// cancellation and pool shutdown surface as errors, so callers can
// distinguish timeouts from low-quality output.
type Executor struct {
	router           *model.Router
	backend          Backend
	pool             *CallPool
	logger           *slog.Logger
	defaultMaxTokens int32
}

// NewExecutor validates the configuration and creates an Executor.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Router == nil {
		return nil, fmt.Errorf("%w: router cannot be nil", ErrInvalidConfig)
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("%w: backend cannot be nil", ErrInvalidConfig)
	}
	if cfg.Pool == nil {
		return nil, fmt.Errorf("%w: call pool cannot be nil", ErrInvalidConfig)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
	}

	defaultMax := cfg.DefaultMaxOutputTokens
	if defaultMax <= 0 {
		defaultMax = 8192
	}

	return &Executor{
		router:           cfg.Router,
		backend:          cfg.Backend,
		pool:             cfg.Pool,
		logger:           cfg.Logger,
		defaultMaxTokens: defaultMax,
	}, nil
}

// Generate produces text for the prompt. The router picks the model
// unless opts pins one; failures cascade through the fallback order and
// finally degrade into an apology string. The returned error is non-nil
// only for an empty prompt, context cancellation, or pool shutdown.
func (e *Executor) Generate(ctx context.Context, prompt string, task model.TaskType, opts Options) (string, error) {
	req, primary, err := e.prepare(prompt, task, opts)
	if err != nil {
		return "", err
	}

	order := e.cascadeOrder(primary)
	var lastErr error
	for i, id := range order {
		text, err := e.generateOnce(ctx, id, req)
		if err == nil {
			return text, nil
		}
		if isAbort(err) {
			return "", err
		}
		lastErr = err
		if i < len(order)-1 {
			e.logger.WarnContext(ctx, "model call failed, advancing cascade",
				"model", id,
				"next_model", order[i+1],
				"error", err)
		}
	}

	e.logger.ErrorContext(ctx, "generation cascade exhausted",
		"primary_model", primary,
		"attempts", len(order),
		"error", lastErr)
	return fmt.Sprintf(apologyTemplate, lastErr), nil
}

// Stream produces text fragments for the prompt. The returned Stream is
// finite and not restartable. The producer performs the blocking backend
// call on the shared pool and yields the scheduler after every fragment,
// so many streams can be multiplexed fairly. Failures follow the same
// cascade-then-degrade policy as Generate, delivered as stream text.
func (e *Executor) Stream(ctx context.Context, prompt string, task model.TaskType, opts Options) (*Stream, error) {
	req, primary, err := e.prepare(prompt, task, opts)
	if err != nil {
		return nil, err
	}

	s := newStream()
	go func() {
		defer s.close()
		if err := e.pool.Do(ctx, func() { e.streamCascade(ctx, s, primary, req) }); err != nil {
			s.setErr(err)
		}
	}()

	return s, nil
}

// prepare validates the prompt, resolves the model, and builds the
// backend request.
func (e *Executor) prepare(prompt string, task model.TaskType, opts Options) (Request, string, error) {
	if strings.TrimSpace(prompt) == "" {
		return Request{}, "", ErrEmptyPrompt
	}

	primary := opts.Model
	if primary == "" {
		primary = e.router.Select(task, len(opts.Images) > 0, len(prompt))
	}

	req := Request{
		Prompt:          prompt,
		SystemPrompt:    opts.SystemPrompt,
		Temperature:     opts.Temperature,
		MaxOutputTokens: opts.MaxOutputTokens,
		Images:          opts.Images,
	}
	if req.MaxOutputTokens <= 0 {
		req.MaxOutputTokens = e.maxTokensFor(primary)
	}

	return req, primary, nil
}

// maxTokensFor resolves the output ceiling for a model, falling back to
// the executor default for models absent from the registry.
func (e *Executor) maxTokensFor(modelID string) int32 {
	if d, ok := e.router.Registry().Get(modelID); ok && d.MaxOutputTokens > 0 {
		return d.MaxOutputTokens
	}
	return e.defaultMaxTokens
}

// cascadeOrder returns the models to attempt: the primary first, then
// the fixed fallback order minus the primary.
func (e *Executor) cascadeOrder(primary string) []string {
	order := make([]string, 0, 5)
	order = append(order, primary)
	for _, id := range model.FallbackOrder() {
		if id != primary {
			order = append(order, id)
		}
	}
	return order
}

// generateOnce performs a single non-streaming attempt on the pool and
// maps blocked or empty responses to their placeholder strings.
func (e *Executor) generateOnce(ctx context.Context, modelID string, req Request) (string, error) {
	var res *Result
	var callErr error

	if err := e.pool.Do(ctx, func() {
		res, callErr = e.backend.Generate(ctx, modelID, req)
	}); err != nil {
		return "", err
	}
	if callErr != nil {
		return "", callErr
	}
	if res == nil {
		return "", fmt.Errorf("%w: backend returned no result", ErrInvalidResponse)
	}

	if res.Blocked {
		return fmt.Sprintf(blockedResponseTemplate, reasonOrUnspecified(res.BlockReason)), nil
	}
	if strings.TrimSpace(res.Text) == "" {
		return emptyResponseText, nil
	}
	return res.Text, nil
}

// streamCascade walks the cascade for a streaming request, sending
// fragments to the stream channel. It runs on a pool worker.
func (e *Executor) streamCascade(ctx context.Context, s *Stream, primary string, req Request) {
	delivered := 0
	yield := func(fragment string) error {
		if fragment == "" {
			return nil
		}
		select {
		case s.ch <- fragment:
			delivered++
			// Keep a single consumer juggling many streams responsive.
			runtime.Gosched()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	deliverFinal := func(text string) {
		select {
		case s.ch <- text:
		case <-ctx.Done():
			s.setErr(ctx.Err())
		}
	}

	order := e.cascadeOrder(primary)
	var lastErr error
	for _, id := range order {
		start := delivered
		res, err := e.backend.GenerateStream(ctx, id, req, yield)
		if err != nil {
			if isAbort(err) {
				s.setErr(err)
				return
			}
			lastErr = err
			if delivered > start {
				// Partial output already reached the consumer; a
				// restart would duplicate it, so degrade in place.
				e.logger.WarnContext(ctx, "stream failed mid-flight",
					"model", id,
					"fragments", delivered-start,
					"error", err)
				deliverFinal(fmt.Sprintf(apologyTemplate, err))
				return
			}
			e.logger.WarnContext(ctx, "stream start failed, advancing cascade",
				"model", id,
				"error", err)
			continue
		}

		if res != nil && res.Blocked {
			if delivered == start {
				deliverFinal(fmt.Sprintf(blockedResponseTemplate, reasonOrUnspecified(res.BlockReason)))
			}
			return
		}
		if delivered == start {
			deliverFinal(emptyResponseText)
		}
		return
	}

	e.logger.ErrorContext(ctx, "stream cascade exhausted",
		"primary_model", primary,
		"attempts", len(order),
		"error", lastErr)
	deliverFinal(fmt.Sprintf(apologyTemplate, lastErr))
}

// isAbort reports whether the error must stop the cascade instead of
// advancing it.
func isAbort(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrPoolClosed)
}

func reasonOrUnspecified(reason string) string {
	if reason == "" {
		return "unspecified"
	}
	return reason
}
