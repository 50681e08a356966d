package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey string

const ctxKeyInvocationID ctxKey = "invocation_id"

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// Setup replaces the process logger. format is "json" or "text"; level is a
// slog level name ("debug", "info", "warn", "error").
func Setup(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	logger = slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func Logger() *slog.Logger {
	return logger
}

// WithFields returns the process logger with additional fields, for
// long-lived components that log outside any invocation.
func WithFields(kv ...any) *slog.Logger {
	return logger.With(kv...)
}

// WithInvocationID stores the id of the command invocation being handled.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyInvocationID, id)
}

// InvocationID returns the id stored by WithInvocationID, or "".
func InvocationID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyInvocationID).(string)
	return id
}

// LoggerFromContext adds invocation_id if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	id := InvocationID(ctx)
	if id == "" {
		return logger
	}
	return logger.With("invocation_id", id)
}
