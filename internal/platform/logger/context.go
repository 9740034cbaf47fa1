package logger

import (
	"context"
	"log/slog"
)

// ctxKey is the private context key type for logger propagation. Using an
// unexported struct type prevents collisions with keys from other packages.
type ctxKey struct{}

// WithLogger returns a copy of ctx carrying the given logger. Handlers
// attach request-scoped loggers here so lower layers log with the same
// correlation attributes.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger stored in ctx, or the process default
// logger when none is present. The result is never nil.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

// FromContextOrDefault returns the logger stored in ctx if present, then
// the provided fallback, then the process default. Components with their
// own component-tagged logger pass it as the fallback.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
