package platform

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-pica/pkg/toolkit"
)

// connectionEntry describes a toolkit instance and the connections it
// reaches.
type connectionEntry struct {
	Kind        string                     `json:"kind"`
	Name        string                     `json:"name"`
	Connection  string                     `json:"connection"`
	Connections []toolkit.ConnectionDetail `json:"connections,omitempty"`
}

// listConnectionsOutput is the JSON response for the list_connections tool.
type listConnectionsOutput struct {
	Toolkits []connectionEntry `json:"toolkits"`
	Count    int               `json:"count"`
}

// listConnectionsInput is empty since this tool has no parameters.
type listConnectionsInput struct{}

// registerConnectionsTool registers the list_connections tool with the MCP server.
func (p *Platform) registerConnectionsTool() {
	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        "list_connections",
		Description: "List the configured toolkits and the active platform connections each one can use.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ listConnectionsInput) (*mcp.CallToolResult, any, error) {
		return p.handleListConnections(ctx, req)
	})
}

// handleListConnections handles the list_connections tool call.
func (p *Platform) handleListConnections(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, any, error) {
	toolkits := p.toolkitRegistry.All()

	out := listConnectionsOutput{Toolkits: make([]connectionEntry, 0, len(toolkits))}
	for _, tk := range toolkits {
		entry := connectionEntry{
			Kind:       tk.Kind(),
			Name:       tk.Name(),
			Connection: tk.Connection(),
		}
		if lister, ok := tk.(toolkit.ConnectionLister); ok {
			entry.Connections = lister.ListConnections(ctx)
		}
		out.Toolkits = append(out.Toolkits, entry)
		out.Count += len(entry.Connections)
	}

	return jsonResult(out)
}

// jsonResult renders v as an indented JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{ //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError, not as Go errors
			Content: []mcp.Content{
				&mcp.TextContent{Text: "Error: " + err.Error()},
			},
			IsError: true,
		}, nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}
