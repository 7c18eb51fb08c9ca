package passthrough

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/txn2/mcp-pica/pkg/pica"
)

// Client sends passthrough requests. *pica.Client satisfies it.
type Client interface {
	Secret() string
	PassthroughURL(path string) string
	Do(req *http.Request) (*pica.Response, error)
}

// ConnectionVerifier reports whether a connection is active for a platform.
// *catalog.Catalog satisfies it.
type ConnectionVerifier interface {
	ActiveConnection(ctx context.Context, platform, key string) (pica.Connection, bool, error)
}

// Options configures an Executor.
type Options struct {
	// PromptToConnect lets Preview proceed when the connection is not
	// active yet. Execute always requires an active connection.
	PromptToConnect bool
}

// Executor previews and executes passthrough requests.
type Executor struct {
	client   Client
	verifier ConnectionVerifier
	opts     Options
}

// New creates an Executor.
func New(client Client, verifier ConnectionVerifier, opts Options) *Executor {
	return &Executor{client: client, verifier: verifier, opts: opts}
}

// Preview builds the request without sending it. The secret is replaced by
// PreviewSecretPlaceholder.
func (e *Executor) Preview(ctx context.Context, req Request) (RequestConfig, error) {
	if err := e.authorize(ctx, req, !e.opts.PromptToConnect); err != nil {
		return RequestConfig{}, err
	}
	b, err := build(e.client.PassthroughURL(""), e.client.Secret(), req)
	if err != nil {
		return RequestConfig{}, err
	}
	return redact(b.config, PreviewSecretPlaceholder), nil
}

// Execute builds and sends the request once. Upstream failures are returned
// as received, including *pica.APIError with the response status and body.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	if err := e.authorize(ctx, req, true); err != nil {
		return nil, err
	}
	b, err := build(e.client.PassthroughURL(""), e.client.Secret(), req)
	if err != nil {
		return nil, err
	}

	httpReq, err := newHTTPRequest(ctx, b)
	if err != nil {
		return nil, err
	}

	slog.Debug("passthrough: sending request",
		"action_id", b.config.Headers[actionIDHeader],
		"platform", req.Platform,
		"method", b.config.Method,
		"url", b.config.URL)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		slog.Warn("passthrough: request failed",
			"action_id", b.config.Headers[actionIDHeader],
			"platform", req.Platform,
			"error", err)
		return nil, err
	}

	return &Result{
		StatusCode:    resp.StatusCode,
		Data:          resp.Data,
		RequestConfig: redact(b.config, SentSecretPlaceholder),
	}, nil
}

// authorize checks the connection key against the active connections. When
// required is false a missing connection is logged and tolerated.
func (e *Executor) authorize(ctx context.Context, req Request, required bool) error {
	_, ok, err := e.verifier.ActiveConnection(ctx, req.Platform, req.ConnectionKey)
	if err != nil {
		return fmt.Errorf("verifying connection: %w", err)
	}
	if ok {
		return nil
	}
	if !required {
		slog.Debug("passthrough: previewing without an active connection",
			"platform", req.Platform, "connection_key", req.ConnectionKey)
		return nil
	}
	return fmt.Errorf("%w: %q for platform %q", ErrConnectionNotFound, req.ConnectionKey, req.Platform)
}

// newHTTPRequest converts a built request to an *http.Request.
func newHTTPRequest(ctx context.Context, b *built) (*http.Request, error) {
	target := b.config.URL
	if len(b.config.Params) > 0 {
		values := url.Values{}
		for k, v := range b.config.Params {
			values.Set(k, v)
		}
		target += "?" + values.Encode()
	}

	var body io.Reader
	if b.body != nil {
		body = bytes.NewReader(b.body)
	}
	req, err := http.NewRequestWithContext(ctx, b.config.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating passthrough request: %w", err)
	}
	for k, v := range b.config.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
