package pica

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-pica/pkg/actionid"
	"github.com/txn2/mcp-pica/pkg/catalog"
	"github.com/txn2/mcp-pica/pkg/passthrough"
	picaapi "github.com/txn2/mcp-pica/pkg/pica"
)

type getAvailableActionsInput struct {
	Platform string `json:"platform" jsonschema:"the platform to list actions for, e.g. gmail"`
}

type actionSummary struct {
	ID     string   `json:"_id"`
	Title  string   `json:"title"`
	Method string   `json:"method,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

type getAvailableActionsOutput struct {
	Success  bool            `json:"success"`
	Platform string          `json:"platform"`
	Total    int             `json:"total"`
	Actions  []actionSummary `json:"actions"`
}

type getActionKnowledgeInput struct {
	ActionID string `json:"action_id" jsonschema:"the action id returned by get_available_actions"`
	Platform string `json:"platform" jsonschema:"the platform the action belongs to"`
}

type getActionKnowledgeOutput struct {
	Success  bool           `json:"success"`
	Platform string         `json:"platform"`
	Action   picaapi.Action `json:"action"`
}

type actionRef struct {
	ID   string `json:"id" jsonschema:"the action id"`
	Path string `json:"path,omitempty" jsonschema:"the action path template, e.g. /messages/{{id}}"`
}

type executeActionInput struct {
	Platform      string    `json:"platform" jsonschema:"the platform to execute against"`
	Action        actionRef `json:"action" jsonschema:"the action to execute"`
	Method        string    `json:"method,omitempty" jsonschema:"the HTTP method; looked up from the action when empty"`
	ConnectionKey string    `json:"connection_key" jsonschema:"the key of an active connection for the platform"`

	Data          any               `json:"data,omitempty" jsonschema:"the request body"`
	PathVariables map[string]any    `json:"path_variables,omitempty" jsonschema:"values for {{placeholders}} in the action path"`
	QueryParams   map[string]any    `json:"query_params,omitempty" jsonschema:"query string parameters"`
	Headers       map[string]string `json:"headers,omitempty" jsonschema:"extra request headers"`

	IsFormData       bool `json:"is_form_data,omitempty" jsonschema:"send data as multipart/form-data"`
	IsFormURLEncoded bool `json:"is_form_url_encoded,omitempty" jsonschema:"send data as application/x-www-form-urlencoded"`

	ReturnRequestConfigWithoutExecution bool `json:"return_request_config_without_execution,omitempty" jsonschema:"build the request without sending it"`
}

// executeActionSchema is the execute_action input schema. The tool is
// registered with a raw handler so numbers in the payload reach the
// passthrough request as json.Number instead of float64.
var executeActionSchema, executeActionResolved = mustSchema[executeActionInput]()

func mustSchema[T any]() (*jsonschema.Schema, *jsonschema.Resolved) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("pica: inferring schema: %v", err))
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("pica: resolving schema: %v", err))
	}
	return schema, resolved
}

// decodeExecuteActionInput validates raw tool arguments against the
// execute_action schema and decodes them with numbers preserved.
func decodeExecuteActionInput(raw json.RawMessage) (executeActionInput, error) {
	var input executeActionInput
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = json.RawMessage("{}")
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return input, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	if err := executeActionResolved.Validate(generic); err != nil {
		return input, fmt.Errorf("invalid arguments: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		return input, fmt.Errorf("decoding arguments: %w", err)
	}
	return input, nil
}

type executeActionOutput struct {
	Success       bool                      `json:"success"`
	Executed      bool                      `json:"executed"`
	StatusCode    int                       `json:"statusCode,omitempty"`
	Data          any                       `json:"data,omitempty"`
	RequestConfig passthrough.RequestConfig `json:"requestConfig"`
}

type promptToConnectInput struct {
	PlatformName string `json:"platform_name" jsonschema:"the platform the user should connect"`
}

type promptToConnectOutput struct {
	Success   bool   `json:"success"`
	Platform  string `json:"platform"`
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}

type listConnectionsInput struct{}

type listConnectionsOutput struct {
	Success   bool                        `json:"success"`
	Connected []catalog.ConnectedPlatform `json:"connected"`
	Available []catalog.AvailablePlatform `json:"available"`
}

// failureOutput is the error envelope returned by every tool.
type failureOutput struct {
	Success bool   `json:"success"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Raw     string `json:"raw"`
}

// handleGetAvailableActions handles the get_available_actions tool call.
func (t *Toolkit) handleGetAvailableActions(ctx context.Context, _ *mcp.CallToolRequest, input getAvailableActionsInput) (*mcp.CallToolResult, any, error) {
	platform := strings.TrimSpace(input.Platform)
	if platform == "" {
		return t.failure("Invalid input", errors.New("platform is required")), nil, nil
	}

	list, err := t.catalog.ListActionsForPlatform(ctx, platform)
	if err != nil {
		return t.failure("Failed to get available actions", err), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	out := getAvailableActionsOutput{
		Success:  true,
		Platform: platform,
		Total:    list.Total,
		Actions:  make([]actionSummary, 0, len(list.Actions)),
	}
	for _, a := range list.Actions {
		out.Actions = append(out.Actions, actionSummary{ID: a.ID, Title: a.Title, Method: a.Method, Tags: a.Tags})
	}
	return t.success(out), nil, nil
}

// handleGetActionKnowledge handles the get_action_knowledge tool call.
func (t *Toolkit) handleGetActionKnowledge(ctx context.Context, _ *mcp.CallToolRequest, input getActionKnowledgeInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.ActionID) == "" {
		return t.failure("Invalid input", errors.New("action_id is required")), nil, nil
	}

	action, err := t.catalog.GetAction(ctx, input.ActionID)
	if err != nil {
		title := "Failed to get action knowledge"
		if errors.Is(err, catalog.ErrActionNotFound) {
			title = "Action not found"
		}
		return t.failure(title, err), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return t.success(getActionKnowledgeOutput{
		Success:  true,
		Platform: input.Platform,
		Action:   action,
	}), nil, nil
}

// handleExecuteActionRaw decodes execute_action arguments and runs the call.
func (t *Toolkit) handleExecuteActionRaw(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var raw json.RawMessage
	if req != nil && req.Params != nil {
		raw = req.Params.Arguments
	}
	input, err := decodeExecuteActionInput(raw)
	if err != nil {
		return t.failure("Invalid input", err), nil
	}
	res, _, err := t.handleExecuteAction(ctx, req, input)
	return res, err
}

// handleExecuteAction handles the execute_action tool call.
func (t *Toolkit) handleExecuteAction(ctx context.Context, _ *mcp.CallToolRequest, input executeActionInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Action.ID) == "" {
		return t.failure("Invalid input", errors.New("action.id is required")), nil, nil
	}

	action := picaapi.Action{
		ID:                 actionid.Normalize(input.Action.ID),
		Method:             input.Method,
		Path:               input.Action.Path,
		ConnectionPlatform: input.Platform,
	}
	if action.Method == "" || action.Path == "" {
		found, err := t.catalog.GetAction(ctx, action.ID)
		if err != nil {
			return t.failure("Failed to resolve action", err), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
		}
		if action.Method == "" {
			action.Method = found.Method
		}
		if action.Path == "" {
			action.Path = found.Path
		}
	}

	if !t.catalog.Permits(action) {
		return t.failure("Action not permitted",
			errors.New("action "+action.ID+" with method "+strings.ToUpper(action.Method)+" is not permitted by this server's configuration")), nil, nil
	}

	req := passthrough.Request{
		ActionID:         action.ID,
		Platform:         input.Platform,
		ConnectionKey:    input.ConnectionKey,
		Method:           action.Method,
		Path:             action.Path,
		Data:             input.Data,
		PathVariables:    input.PathVariables,
		QueryParams:      input.QueryParams,
		Headers:          input.Headers,
		IsFormData:       input.IsFormData,
		IsFormURLEncoded: input.IsFormURLEncoded,
	}

	if input.ReturnRequestConfigWithoutExecution || t.config.KnowledgeAgent {
		cfg, err := t.executor.Preview(ctx, req)
		if err != nil {
			return t.executeFailure(err), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
		}
		return t.success(executeActionOutput{Success: true, RequestConfig: cfg}), nil, nil
	}

	res, err := t.executor.Execute(ctx, req)
	if err != nil {
		return t.executeFailure(err), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return t.success(executeActionOutput{
		Success:       true,
		Executed:      true,
		StatusCode:    res.StatusCode,
		Data:          res.Data,
		RequestConfig: res.RequestConfig,
	}), nil, nil
}

// executeFailure maps a passthrough error to a failure envelope.
func (t *Toolkit) executeFailure(err error) *mcp.CallToolResult {
	if errors.Is(err, passthrough.ErrConnectionNotFound) && t.config.AuthKit {
		return t.failure("Connection not found",
			errors.Join(err, errors.New("use prompt_to_connect_platform to ask the user to connect this platform")))
	}
	if errors.Is(err, passthrough.ErrConnectionNotFound) {
		return t.failure("Connection not found", err)
	}
	return t.failure("Failed to execute action", err)
}

// handlePromptToConnectPlatform handles the prompt_to_connect_platform tool
// call. It refreshes the platform's connections so a connection made since
// startup becomes usable.
func (t *Toolkit) handlePromptToConnectPlatform(ctx context.Context, _ *mcp.CallToolRequest, input promptToConnectInput) (*mcp.CallToolResult, any, error) {
	platform := strings.TrimSpace(input.PlatformName)
	if platform == "" {
		return t.failure("Invalid input", errors.New("platform_name is required")), nil, nil
	}

	if err := t.catalog.RefreshConnections(ctx, platform); err != nil {
		slog.Warn("pica: failed to refresh connections", "platform", platform, "error", err)
	}

	conns, err := t.catalog.Connections(ctx)
	if err != nil {
		return t.failure("Failed to check connections", err), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	connected := false
	for _, c := range conns {
		if c.Active && c.Platform == platform {
			connected = true
			break
		}
	}

	out := promptToConnectOutput{Success: true, Platform: platform, Connected: connected}
	if connected {
		out.Message = platform + " is already connected."
	} else {
		out.Message = "Ask the user to connect " + platform + " through AuthKit, then try again."
	}
	return t.success(out), nil, nil
}

// handleListConnections handles the list_pica_connections tool call.
func (t *Toolkit) handleListConnections(ctx context.Context, _ *mcp.CallToolRequest, _ listConnectionsInput) (*mcp.CallToolResult, any, error) {
	summary, err := t.catalog.Summary(ctx)
	if err != nil {
		return t.failure("Failed to list connections", err), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return t.success(listConnectionsOutput{
		Success:   true,
		Connected: summary.Connected,
		Available: summary.Available,
	}), nil, nil
}

// success marshals a success envelope.
func (t *Toolkit) success(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return t.failure("Internal error", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: t.scrub(string(data))},
		},
	}
}

// failure builds the error envelope for err. Upstream API errors carry their
// status and body in raw.
func (t *Toolkit) failure(title string, err error) *mcp.CallToolResult {
	out := failureOutput{
		Success: false,
		Title:   title,
		Message: err.Error(),
		Raw:     err.Error(),
	}
	if apiErr, ok := picaapi.AsAPIError(err); ok {
		out.Raw = apiErr.Raw()
	}

	slog.Debug("pica: tool failed", "title", title, "error", err)

	data, marshalErr := json.Marshal(out)
	if marshalErr != nil {
		data = []byte(`{"success":false,"title":"Internal error","message":"failed to encode error","raw":""}`)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: t.scrub(string(data))},
		},
		IsError: true,
	}
}

// scrub removes the secret from text sent back to the agent.
func (t *Toolkit) scrub(text string) string {
	secret := t.client.Secret()
	if secret == "" {
		return text
	}
	return strings.ReplaceAll(text, secret, passthrough.SentSecretPlaceholder)
}
