// Package observability provides logging and metrics helpers shared by every layer.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// NewLogger builds the process logger. Production gets JSON output, every other
// environment gets the text handler.
func NewLogger(env, level string) *slog.Logger {
	return newLogger(os.Stdout, env, level)
}

func newLogger(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if env == "production" || env == "staging" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// RepoLogger logs repository operations for a single collection.
type RepoLogger struct {
	collection string
	logger     *slog.Logger
}

func NewRepoLogger(logger *slog.Logger, collection string) *RepoLogger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RepoLogger{collection: collection, logger: logger}
}

func (l *RepoLogger) log(ctx context.Context, operation string, fields map[string]any) {
	attrs := []any{
		slog.String("collection", l.collection),
		slog.String("operation", operation),
		slog.String("correlation_id", CorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.DebugContext(ctx, "repository "+operation, attrs...)
}

func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]any) {
	l.log(ctx, "create", fields)
}

func (l *RepoLogger) LogRead(ctx context.Context, fields map[string]any) {
	l.log(ctx, "read", fields)
}

func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]any) {
	l.log(ctx, "update", fields)
}

func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]any) {
	l.log(ctx, "delete", fields)
}

func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	l.logger.ErrorContext(ctx, "repository error",
		slog.String("collection", l.collection),
		slog.String("operation", operation),
		slog.String("correlation_id", CorrelationID(ctx)),
		slog.String("error", err.Error()),
	)
}
