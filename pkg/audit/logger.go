// Package audit provides audit logging for tool calls.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger defines the interface for audit logging.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Close releases resources.
	Close() error
}

// Event represents an auditable event.
type Event struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	DurationMS   int64          `json:"duration_ms"`
	RequestID    string         `json:"request_id"`
	ToolName     string         `json:"tool_name"`
	ToolkitKind  string         `json:"toolkit_kind,omitempty"`
	ToolkitName  string         `json:"toolkit_name,omitempty"`
	Connection   string         `json:"connection,omitempty"`
	Transport    string         `json:"transport,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// SlogLogger writes audit events as structured log records.
type SlogLogger struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogLogger creates a Logger writing to logger at info level. A nil
// logger uses slog.Default().
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger, level: slog.LevelInfo}
}

// Log writes the event.
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	attrs := []slog.Attr{
		slog.String("id", event.ID),
		slog.String("type", string(event.Type)),
		slog.String("request_id", event.RequestID),
		slog.String("tool", event.ToolName),
		slog.Bool("success", event.Success),
		slog.Int64("duration_ms", event.DurationMS),
	}
	if event.ToolkitKind != "" {
		attrs = append(attrs, slog.String("toolkit_kind", event.ToolkitKind), slog.String("toolkit_name", event.ToolkitName))
	}
	if event.Connection != "" {
		attrs = append(attrs, slog.String("connection", event.Connection))
	}
	if event.Transport != "" {
		attrs = append(attrs, slog.String("transport", event.Transport))
	}
	if len(event.Parameters) > 0 {
		attrs = append(attrs, slog.Any("parameters", event.Parameters))
	}
	if event.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error", event.ErrorMessage))
	}
	l.logger.LogAttrs(ctx, l.level, "audit: tool call", attrs...)
	return nil
}

// Close is a no-op; the underlying handler is owned by the caller.
func (*SlogLogger) Close() error {
	return nil
}

var _ Logger = (*SlogLogger)(nil)
