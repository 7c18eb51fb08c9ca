// Package passthrough builds and sends requests to the Pica passthrough
// endpoint on behalf of an action.
package passthrough

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"
)

// Credential placeholders substituted for the secret in returned configs.
const (
	// PreviewSecretPlaceholder replaces the secret in previewed requests.
	PreviewSecretPlaceholder = "YOUR_PICA_SECRET_KEY_HERE"

	// SentSecretPlaceholder replaces the secret in requests that were sent.
	SentSecretPlaceholder = "****REDACTED****"
)

// Encoding describes how a request body is encoded.
type Encoding string

// Body encodings.
const (
	EncodingNone       Encoding = "none"
	EncodingJSON       Encoding = "json"
	EncodingMultipart  Encoding = "multipart"
	EncodingURLEncoded Encoding = "urlencoded"
)

var (
	// ErrConnectionNotFound is returned when the connection key is not among
	// the active connections for the platform.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrInvalidMethod is returned for an unsupported HTTP method.
	ErrInvalidMethod = errors.New("invalid HTTP method")

	// ErrFormBodyNotObject is returned when a form encoding is requested for
	// data that is not an object.
	ErrFormBodyNotObject = errors.New("form data must be an object")

	// ErrMissingActionID is returned when no action identifier is supplied.
	ErrMissingActionID = errors.New("action id is required")
)

var validMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// Request describes one action invocation.
type Request struct {
	ActionID      string
	Platform      string
	ConnectionKey string
	Method        string
	Path          string

	// Data is the request body. Top-level keys that satisfy path
	// placeholders are moved out of it.
	Data any

	PathVariables map[string]any
	QueryParams   map[string]any
	Headers       map[string]string

	IsFormData       bool
	IsFormURLEncoded bool
}

// RequestConfig is the fully built request as shown to callers. The secret
// header never carries the real secret.
type RequestConfig struct {
	URL      string            `json:"url"`
	Method   string            `json:"method"`
	Headers  map[string]string `json:"headers"`
	Params   map[string]string `json:"params,omitempty"`
	Data     any               `json:"data,omitempty"`
	Encoding Encoding          `json:"encoding"`
}

// Result is the outcome of an executed request.
type Result struct {
	StatusCode    int           `json:"statusCode"`
	Data          any           `json:"data"`
	RequestConfig RequestConfig `json:"requestConfig"`
}

// normalizeMethod upper-cases and validates method.
func normalizeMethod(method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	if !validMethods[m] {
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
	return m, nil
}

// redact returns a copy of cfg with the secret header replaced.
func redact(cfg RequestConfig, placeholder string) RequestConfig {
	headers := maps.Clone(cfg.Headers)
	if headers == nil {
		headers = make(map[string]string, 1)
	}
	headers[secretHeader] = placeholder
	cfg.Headers = headers
	return cfg
}
