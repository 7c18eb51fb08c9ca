package middleware

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// sessionLogger abstracts the ServerSession.Log method for testability.
type sessionLogger interface {
	Log(ctx context.Context, params *mcp.LoggingMessageParams) error
}

// ClientLoggingConfig configures server-to-client logging middleware.
type ClientLoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Logger  string `yaml:"logger"`
}

// MCPClientLoggingMiddleware creates MCP protocol-level middleware that sends
// a log notification to the client when a tool call fails. The client only
// receives it after calling logging/setLevel; otherwise ServerSession.Log is
// a silent no-op.
func MCPClientLoggingMiddleware(cfg ClientLoggingConfig) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		if !cfg.Enabled {
			return next
		}

		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			result, err := next(ctx, method, req)

			callReq, ok := req.(*mcp.CallToolRequest)
			if ok && callReq.Session != nil {
				sendClientLog(ctx, callReq.Session, cfg.Logger, result, err)
			}
			return result, err
		}
	}
}

// sendClientLog reports a failed tool call to the client. Errors are only
// logged locally.
func sendClientLog(ctx context.Context, logger sessionLogger, name string, result mcp.Result, handlerErr error) {
	pc := GetPlatformContext(ctx)
	if pc == nil {
		return
	}

	msg := ""
	if handlerErr != nil {
		msg = fmt.Sprintf("%s failed: %v", pc.ToolName, handlerErr)
	} else if callResult, ok := result.(*mcp.CallToolResult); ok && callResult != nil && callResult.IsError {
		msg = fmt.Sprintf("%s failed: %s", pc.ToolName, extractMCPErrorMessage(callResult))
	}
	if msg == "" {
		return
	}

	if name == "" {
		name = "mcp-pica"
	}
	if err := logger.Log(ctx, &mcp.LoggingMessageParams{
		Level:  "warning",
		Logger: name,
		Data:   msg,
	}); err != nil {
		slog.Debug("client logging: failed to send log notification", "error", err)
	}
}
