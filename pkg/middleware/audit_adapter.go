package middleware

import (
	"context"
	"fmt"

	"github.com/txn2/mcp-pica/pkg/audit"
)

// auditLoggerAdapter adapts an audit.Logger to the AuditLogger interface.
type auditLoggerAdapter struct {
	logger audit.Logger
}

// NewAuditLoggerAdapter creates an AuditLogger that writes sanitized events
// to logger.
func NewAuditLoggerAdapter(logger audit.Logger) AuditLogger {
	return &auditLoggerAdapter{logger: logger}
}

// Log converts the event and records it.
func (a *auditLoggerAdapter) Log(ctx context.Context, event AuditEvent) error {
	auditEvent := audit.NewEvent(event.ToolName).
		WithRequestID(event.RequestID).
		WithToolkit(event.ToolkitKind, event.ToolkitName).
		WithConnection(event.Connection).
		WithTransport(event.Transport).
		WithParameters(audit.SanitizeParameters(event.Parameters)).
		WithResult(event.Success, event.ErrorMessage, event.DurationMS)

	auditEvent.Timestamp = event.Timestamp

	if err := a.logger.Log(ctx, *auditEvent); err != nil {
		return fmt.Errorf("logging audit event: %w", err)
	}
	return nil
}

// Close closes the underlying logger.
func (a *auditLoggerAdapter) Close() error {
	return a.logger.Close() //nolint:wrapcheck // passthrough of the wrapped logger's error
}
