package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/quilldocs/quill-api/internal/platform/logger"
)

// RequestLogger logs one line per completed request with the method,
// path, status code and duration. It reads the request-scoped logger,
// so it must sit inside TraceMiddleware for the line to carry the
// trace ID.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.FromContext(r.Context()).Info("request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.Int("bytes", ww.BytesWritten()))
	})
}
