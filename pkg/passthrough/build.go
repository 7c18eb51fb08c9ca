package passthrough

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/txn2/mcp-pica/pkg/actionid"
	"github.com/txn2/mcp-pica/pkg/pathtemplate"
	"github.com/txn2/mcp-pica/pkg/pica"
)

// Canonical header names used in RequestConfig.Headers.
var (
	contentTypeHeader   = http.CanonicalHeaderKey("Content-Type")
	secretHeader        = http.CanonicalHeaderKey(pica.HeaderSecret)
	connectionKeyHeader = http.CanonicalHeaderKey(pica.HeaderConnectionKey)
	actionIDHeader      = http.CanonicalHeaderKey(pica.HeaderActionID)
)

const (
	jsonContentType       = "application/json"
	urlEncodedContentType = "application/x-www-form-urlencoded"
)

// built is a request ready to send. config carries the real secret and must
// be redacted before it leaves the package.
type built struct {
	config RequestConfig
	body   []byte
}

// build resolves the path and assembles headers and body for req.
func build(endpoint, secret string, req Request) (*built, error) {
	if strings.TrimSpace(req.ActionID) == "" {
		return nil, ErrMissingActionID
	}
	method, err := normalizeMethod(req.Method)
	if err != nil {
		return nil, err
	}

	binding, err := pathtemplate.Bind(req.Path, req.Data, req.PathVariables)
	if err != nil {
		return nil, err
	}
	path, err := pathtemplate.Resolve(req.Path, binding.Vars)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{contentTypeHeader: jsonContentType}
	for k, v := range req.Headers {
		headers[http.CanonicalHeaderKey(k)] = v
	}
	// The credential headers carry what was authorized; callers cannot
	// override them.
	headers[secretHeader] = secret
	headers[connectionKeyHeader] = req.ConnectionKey
	headers[actionIDHeader] = actionid.Normalize(req.ActionID)

	b := &built{config: RequestConfig{
		URL:      endpoint + pathWithSlash(path),
		Method:   method,
		Headers:  headers,
		Params:   queryParams(req.QueryParams),
		Encoding: EncodingNone,
	}}

	data := binding.Body
	switch {
	case method == http.MethodGet:
		// GET never carries a body.
	case data == nil:
		delete(headers, contentTypeHeader)
	case req.IsFormData:
		fields, err := formFields(data)
		if err != nil {
			return nil, err
		}
		body, contentType, err := encodeMultipart(fields)
		if err != nil {
			return nil, err
		}
		headers[contentTypeHeader] = contentType
		b.body = body
		b.config.Data = fields
		b.config.Encoding = EncodingMultipart
	case req.IsFormURLEncoded:
		fields, err := formFields(data)
		if err != nil {
			return nil, err
		}
		values := url.Values{}
		for k, v := range fields {
			values.Set(k, v)
		}
		encoded := values.Encode()
		headers[contentTypeHeader] = urlEncodedContentType
		b.body = []byte(encoded)
		b.config.Data = encoded
		b.config.Encoding = EncodingURLEncoded
	default:
		body, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		b.body = body
		b.config.Data = data
		b.config.Encoding = EncodingJSON
	}

	return b, nil
}

// pathWithSlash ensures path starts with a slash.
func pathWithSlash(path string) string {
	if path == "" || strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}

// queryParams renders query parameter values as strings.
func queryParams(params map[string]any) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = stringify(v)
	}
	return out
}

// formFields converts an object body into form fields.
func formFields(data any) (map[string]string, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrFormBodyNotObject, data)
	}
	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		fields[k] = stringify(v)
	}
	return fields, nil
}

// stringify returns scalars as-is and JSON-encodes objects and arrays.
func stringify(v any) string {
	if v == nil {
		return ""
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return pathtemplate.Format(v)
	}
}

// encodeMultipart writes fields as a multipart/form-data body in key order.
func encodeMultipart(fields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", fmt.Errorf("writing form field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
