package pica

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/yosida95/uritemplate/v3"
)

// actionTemplateURI addresses one action's knowledge record. Reserved
// expansion lets canonical ids such as conn_mod_def::send_email appear
// unencoded.
const actionTemplateURI = "pica-action://{+action_id}"

// registerResourceTemplate registers the action knowledge resource template.
func (t *Toolkit) registerResourceTemplate(s *mcp.Server) {
	s.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: actionTemplateURI,
		Name:        "Pica Action",
		Description: "Knowledge record for a Pica action: method, path template and documentation",
		MIMEType:    "application/json",
	}, t.handleActionResource)
}

// handleActionResource handles pica-action://{+action_id} requests.
func (t *Toolkit) handleActionResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(actionTemplateURI, uri)
	if err != nil || vars["action_id"] == "" {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}

	action, err := t.catalog.GetAction(ctx, vars["action_id"])
	if err != nil {
		slog.Debug("pica: action resource lookup failed", "uri", uri, "error", err)
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}

	data, err := json.MarshalIndent(action, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     t.scrub(string(data)),
			},
		},
	}, nil
}

// parseTemplateVars extracts named variables from a URI using a URI template.
func parseTemplateVars(templateStr, uri string) (map[string]string, error) {
	tmpl, err := uritemplate.New(templateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", templateStr, err)
	}

	match := tmpl.Match(uri)
	if match == nil {
		return nil, fmt.Errorf("uri %q does not match template %q", uri, templateStr)
	}

	result := make(map[string]string)
	for _, name := range tmpl.Varnames() {
		result[name] = match.Get(name).String()
	}
	return result, nil
}

// registerPrompt registers the system prompt rendered from the catalog.
func (t *Toolkit) registerPrompt(s *mcp.Server) {
	s.AddPrompt(&mcp.Prompt{
		Name:        promptName,
		Description: "How to discover, inspect and execute Pica actions, with the current connections",
	}, func(ctx context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		text, err := t.SystemPrompt(ctx)
		if err != nil {
			return nil, err
		}
		return &mcp.GetPromptResult{
			Description: "Pica system prompt",
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: text},
				},
			},
		}, nil
	})
}
