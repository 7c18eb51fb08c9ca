package pica

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Configuration errors.
var (
	// ErrMissingSecret is returned when no Pica secret is configured.
	ErrMissingSecret = errors.New("pica secret is required")

	// ErrInvalidBaseURL is returned when the base URL cannot be parsed.
	ErrInvalidBaseURL = errors.New("invalid pica base URL")
)

// APIError is a non-2xx response from the Pica API.
type APIError struct {
	StatusCode int    `json:"status"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	Body       any    `json:"body,omitempty"`
}

func (e *APIError) Error() string {
	msg := upstreamMessage(e.Body)
	if msg == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, msg)
}

// Raw returns the JSON encoding of the error for display to callers.
func (e *APIError) Raw() string {
	data, err := json.Marshal(e)
	if err != nil {
		return e.Error()
	}
	return string(data)
}

// upstreamMessage extracts a human-readable message from an error body.
func upstreamMessage(body any) string {
	switch b := body.(type) {
	case string:
		return b
	case map[string]any:
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := b[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
