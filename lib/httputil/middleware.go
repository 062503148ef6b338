package httputil

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
)

const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestID tags every request with an id, reusing the caller's X-Request-Id when
// present. The id is echoed back in the response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestIDFrom returns the id assigned by RequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// AccessLog writes one structured log line per request.
func AccessLog(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, params handlers.LogFormatterParams) {
		level := slog.LevelInfo
		if params.StatusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(
			params.Request.Context(),
			level,
			"request",
			"id", params.Request.Header.Get(RequestIDHeader),
			"method", params.Request.Method,
			"path", params.URL.Path,
			"query", params.URL.RawQuery,
			"status", params.StatusCode,
			"size", params.Size,
			"duration_ms", time.Since(params.TimeStamp).Milliseconds(),
		)
	})
}

type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(values ...any) {
	l.logger.Error("handler panicked", "panic", values)
}

// Recover turns a panicking handler into a 500.
func Recover(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: logger}),
		handlers.PrintRecoveryStack(true),
	)(next)
}

// Wrap applies the middleware shared by every service.
func Wrap(logger *slog.Logger, handler http.Handler) http.Handler {
	return RequestID(AccessLog(logger, CORS(Recover(logger, handler))))
}
