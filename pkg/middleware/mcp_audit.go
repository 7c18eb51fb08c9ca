package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPAuditMiddleware creates MCP protocol-level middleware that logs tool
// calls for auditing. It must run inside MCPToolCallMiddleware, which supplies
// the PlatformContext; calls without one are not audited. Events are logged
// asynchronously so the response is not delayed.
func MCPAuditMiddleware(logger AuditLogger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			startTime := time.Now()
			result, err := next(ctx, method, req)
			duration := time.Since(startTime)

			pc := GetPlatformContext(ctx)
			if pc == nil {
				return result, err
			}

			event := buildMCPAuditEvent(pc, req, result, err, startTime, duration)
			go func() {
				if logErr := logger.Log(context.Background(), event); logErr != nil {
					slog.Warn("audit: failed to log tool call", "tool", event.ToolName, "error", logErr)
				}
			}()

			return result, err
		}
	}
}

// buildMCPAuditEvent builds an audit event from the MCP request and response.
func buildMCPAuditEvent(
	pc *PlatformContext,
	req mcp.Request,
	result mcp.Result,
	err error,
	startTime time.Time,
	duration time.Duration,
) AuditEvent {
	success := err == nil
	errorMsg := ""
	if err != nil {
		errorMsg = err.Error()
	} else if callResult, ok := result.(*mcp.CallToolResult); ok && callResult != nil && callResult.IsError {
		success = false
		errorMsg = extractMCPErrorMessage(callResult)
	}

	return AuditEvent{
		Timestamp:    startTime,
		RequestID:    pc.RequestID,
		ToolName:     pc.ToolName,
		ToolkitKind:  pc.ToolkitKind,
		ToolkitName:  pc.ToolkitName,
		Connection:   pc.Connection,
		Transport:    pc.Transport,
		Parameters:   extractMCPParameters(req),
		Success:      success,
		ErrorMessage: errorMsg,
		DurationMS:   duration.Milliseconds(),
	}
}

// extractMCPParameters extracts the tool arguments from an MCP request.
func extractMCPParameters(req mcp.Request) map[string]any {
	if req == nil {
		return nil
	}
	params := req.GetParams()
	if params == nil {
		return nil
	}
	callParams, ok := params.(*mcp.CallToolParamsRaw)
	if !ok || callParams == nil || len(callParams.Arguments) == 0 {
		return nil
	}

	var args map[string]any
	if err := json.Unmarshal(callParams.Arguments, &args); err != nil {
		return nil
	}
	return args
}

// extractMCPErrorMessage extracts the error message from an MCP CallToolResult.
func extractMCPErrorMessage(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	if textContent, ok := result.Content[0].(*mcp.TextContent); ok {
		return textContent.Text
	}
	return ""
}
