// Package pica provides a client for the Pica platform API.
package pica

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production Pica API endpoint.
	DefaultBaseURL = "https://api.picaos.com"

	// defaultTimeout bounds a single HTTP exchange with the API.
	defaultTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 32 << 20

	// defaultUserAgent identifies this client to the API.
	defaultUserAgent = "mcp-pica"
)

// Header names understood by the Pica API.
const (
	HeaderSecret        = "x-pica-secret"
	HeaderConnectionKey = "x-pica-connection-key"
	HeaderActionID      = "x-pica-action-id"
)

// API paths.
const (
	connectionsPath = "/v1/vault/connections"
	connectorsPath  = "/v1/available-connectors"
	knowledgePath   = "/v1/knowledge"
	passthroughPath = "/v1/passthrough"
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Secret     string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// Client talks to the Pica API using a single secret.
type Client struct {
	baseURL    string
	secret     string
	userAgent  string
	httpClient *http.Client
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, base)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		baseURL:    strings.TrimSuffix(base, "/"),
		secret:     cfg.Secret,
		userAgent:  userAgent,
		httpClient: httpClient,
	}, nil
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Secret returns the secret used to authenticate with the API.
func (c *Client) Secret() string {
	return c.secret
}

// PassthroughURL returns the passthrough endpoint for an action path.
func (c *Client) PassthroughURL(path string) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + passthroughPath + path
}

// ListConnections fetches one page of connections.
func (c *Client) ListConnections(ctx context.Context, q ConnectionQuery, skip, limit int) (Page[Connection], error) {
	params := pageParams(skip, limit)
	setIf(params, "platform", q.Platform)
	setIf(params, "key", q.Key)
	setIf(params, "identity", q.Identity)
	setIf(params, "identityType", q.IdentityType)
	return getPage[Connection](ctx, c, connectionsPath, params)
}

// ListConnectionDefinitions fetches one page of available connectors.
func (c *Client) ListConnectionDefinitions(ctx context.Context, authkit bool, skip, limit int) (Page[ConnectionDefinition], error) {
	params := pageParams(skip, limit)
	if authkit {
		params.Set("authkit", "true")
	}
	return getPage[ConnectionDefinition](ctx, c, connectorsPath, params)
}

// ListActions fetches one page of actions from the knowledge catalog.
func (c *Client) ListActions(ctx context.Context, q ActionQuery, skip, limit int) (Page[Action], error) {
	params := pageParams(skip, limit)
	if q.ID != "" {
		params.Set("_id", q.ID)
	} else {
		params.Set("supported", "true")
		setIf(params, "connectionPlatform", q.Platform)
	}
	return getPage[Action](ctx, c, knowledgePath, params)
}

// Response is a decoded API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Data       any
}

// Do sends req with the client's HTTP client. The caller is responsible for
// setting headers. Non-2xx responses are returned as *APIError.
func (c *Client) Do(req *http.Request) (*Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, redactURL(req.URL), err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", redactURL(req.URL), err)
	}

	data := decodeBody(raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			URL:        redactURL(req.URL),
			Body:       data,
		}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Data: data}, nil
}

// getPage performs an authenticated GET and decodes a page.
func getPage[T any](ctx context.Context, c *Client, path string, params url.Values) (Page[T], error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return Page[T]{}, fmt.Errorf("creating request for %s: %w", path, err)
	}
	req.Header.Set(HeaderSecret, c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return Page[T]{}, err
	}

	// Re-encode the generic body into the typed page; decoding once into any
	// lets Do share error handling with passthrough calls.
	data, err := json.Marshal(resp.Data)
	if err != nil {
		return Page[T]{}, fmt.Errorf("encoding %s response: %w", path, err)
	}
	var page Page[T]
	if err := json.Unmarshal(data, &page); err != nil {
		return Page[T]{}, fmt.Errorf("parsing %s response: %w", path, err)
	}
	if page.Rows == nil {
		page.Rows = []T{}
	}
	return page, nil
}

// decodeBody decodes JSON bodies and returns other bodies as text. Numbers
// are kept as json.Number so large integers pass through unchanged.
func decodeBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err == nil {
			return v
		}
	}
	return string(raw)
}

// pageParams returns the skip/limit query parameters.
func pageParams(skip, limit int) url.Values {
	params := url.Values{}
	params.Set("skip", strconv.Itoa(skip))
	params.Set("limit", strconv.Itoa(limit))
	return params
}

// setIf sets key when value is non-empty.
func setIf(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

// redactURL drops user info from a URL before it is logged or returned.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Redacted()
}
