package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const methodToolsCall = "tools/call"

// ToolkitLookup resolves the toolkit that registered a tool.
type ToolkitLookup interface {
	GetToolkitForTool(toolName string) (kind, name, connection string, found bool)
}

// MCPToolCallMiddleware creates MCP protocol-level middleware that attaches a
// PlatformContext to every tools/call request. The context carries a uuid
// request ID and the owning toolkit so later middleware can audit the call.
func MCPToolCallMiddleware(lookup ToolkitLookup, transport string) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			toolName, err := extractToolName(req)
			if err != nil {
				return createErrorResult(fmt.Sprintf("invalid request: %v", err)), nil
			}

			pc := NewPlatformContext(uuid.NewString())
			pc.ToolName = toolName
			pc.Transport = transport
			if lookup != nil {
				pc.ToolkitKind, pc.ToolkitName, pc.Connection, _ = lookup.GetToolkitForTool(toolName)
			}

			return next(WithPlatformContext(ctx, pc), method, req)
		}
	}
}

// extractToolName extracts the tool name from a tools/call request.
func extractToolName(req mcp.Request) (string, error) {
	if req == nil {
		return "", errors.New("missing params")
	}
	params := req.GetParams()
	if params == nil {
		return "", errors.New("missing params")
	}

	callParams, ok := params.(*mcp.CallToolParamsRaw)
	if !ok {
		return "", fmt.Errorf("unexpected params type: %T", params)
	}
	// A typed nil pointer passes the assertion.
	if callParams == nil {
		return "", errors.New("missing params")
	}
	if callParams.Name == "" {
		return "", errors.New("missing tool name")
	}
	return callParams.Name, nil
}

// createErrorResult creates an MCP tool error result.
func createErrorResult(errMsg string) mcp.Result {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: errMsg},
		},
	}
}
