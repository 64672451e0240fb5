// Package telemetry builds the structured JSON logger.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/basket/tasklist/internal/shared"
)

// textKeys carry user-entered task text. Their values are replaced by a
// length marker so task contents never reach the log file.
var textKeys = map[string]bool{"text": true, "task_text": true, "search_text": true}

// NewLogger writes JSON lines to homeDir/logs/system.jsonl, and to stdout as
// well unless quiet is set.
func NewLogger(homeDir, level string, quiet bool) (*slog.Logger, io.Closer, error) {
	logDir := filepath.Join(homeDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, err
	}

	logFilePath := filepath.Join(logDir, "system.jsonl")
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer
	if quiet {
		w = file
	} else {
		w = io.MultiWriter(os.Stdout, file)
	}
	logger := slog.New(traceHandler{Handler: newHandler(w, ParseLevel(level))}).With("component", "tasklist")
	return logger, file, nil
}

func newHandler(w io.Writer, lvl slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			if textKeys[a.Key] && a.Value.Kind() == slog.KindString {
				return slog.String(a.Key, fmt.Sprintf("[%d chars]", len(a.Value.String())))
			}
			if shouldRedactKey(a.Key) {
				return slog.String(a.Key, "[REDACTED]")
			}
			if a.Value.Kind() == slog.KindString {
				if redacted, ok := redactStringValue(a.Value.String()); ok {
					return slog.String(a.Key, redacted)
				}
			}
			return a
		},
	})
}

const traceKey = "trace_id"

// traceHandler writes trace_id="-" on records from loggers that have not
// been scoped with WithContext, so every line carries the key exactly once.
type traceHandler struct {
	slog.Handler
	bound bool
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := h.bound
	for _, a := range attrs {
		if a.Key == traceKey {
			bound = true
		}
	}
	return traceHandler{Handler: h.Handler.WithAttrs(attrs), bound: bound}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{Handler: h.Handler.WithGroup(name), bound: h.bound}
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.bound {
		has := false
		r.Attrs(func(a slog.Attr) bool {
			has = a.Key == traceKey
			return !has
		})
		if !has {
			r = r.Clone()
			r.AddAttrs(slog.String(traceKey, "-"))
		}
	}
	return h.Handler.Handle(ctx, r)
}

// WithContext scopes logger to the trace, task and operation carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	l := logger.With(traceKey, shared.TraceID(ctx))
	if id := shared.TaskID(ctx); id != "" {
		l = l.With("task_id", id)
	}
	if op := shared.Operation(ctx); op != "" {
		l = l.With("operation", op)
	}
	return l
}

func shouldRedactKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	if lower == "" {
		return false
	}
	sensitiveTokens := []string{"token", "secret", "password", "authorization", "api_key", "apikey", "bearer"}
	for _, token := range sensitiveTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func redactStringValue(v string) (string, bool) {
	lower := strings.ToLower(v)
	if strings.Contains(lower, "bearer ") || strings.Contains(lower, "authorization:") {
		return "[REDACTED]", true
	}
	redacted := shared.Redact(v)
	if redacted != v {
		return redacted, true
	}
	return v, false
}

// ParseLevel maps a config log level to slog; unknown values mean info.
func ParseLevel(level string) slog.Level {
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
