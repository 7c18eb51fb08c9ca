package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes audit events.
type EventType string

// EventTypeToolCall is a tool invocation event.
const EventTypeToolCall EventType = "tool_call"

// redacted replaces sensitive values in audited parameters.
const redacted = "[REDACTED]"

// NewEvent creates a new tool call event.
func NewEvent(toolName string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      EventTypeToolCall,
		Timestamp: time.Now(),
		ToolName:  toolName,
	}
}

// WithToolkit adds toolkit information to the event.
func (e *Event) WithToolkit(kind, name string) *Event {
	e.ToolkitKind = kind
	e.ToolkitName = name
	return e
}

// WithConnection adds connection information to the event.
func (e *Event) WithConnection(connection string) *Event {
	e.Connection = connection
	return e
}

// WithTransport records the transport the call arrived on.
func (e *Event) WithTransport(transport string) *Event {
	e.Transport = transport
	return e
}

// WithParameters adds parameters to the event.
func (e *Event) WithParameters(params map[string]any) *Event {
	e.Parameters = params
	return e
}

// WithResult adds result information to the event.
func (e *Event) WithResult(success bool, errorMsg string, durationMS int64) *Event {
	e.Success = success
	e.ErrorMessage = errorMsg
	e.DurationMS = durationMS
	return e
}

// WithRequestID adds a request ID to the event.
func (e *Event) WithRequestID(requestID string) *Event {
	e.RequestID = requestID
	return e
}

// sensitiveKeys are parameter names whose values are never audited.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"authorization": true,
	"credentials":   true,
	"x-pica-secret": true,
}

// SanitizeParameters returns a copy of params with sensitive values
// redacted. Every value of a "headers" object is redacted, since request
// headers routinely carry credentials.
func SanitizeParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		switch {
		case sensitiveKeys[strings.ToLower(k)]:
			sanitized[k] = redacted
		case strings.EqualFold(k, "headers"):
			sanitized[k] = redactAll(v)
		default:
			if nested, ok := v.(map[string]any); ok {
				sanitized[k] = SanitizeParameters(nested)
				continue
			}
			sanitized[k] = v
		}
	}
	return sanitized
}

// redactAll keeps the keys of a header object and drops its values.
func redactAll(v any) any {
	headers, ok := v.(map[string]any)
	if !ok {
		return redacted
	}
	out := make(map[string]any, len(headers))
	for k := range headers {
		out[k] = redacted
	}
	return out
}
