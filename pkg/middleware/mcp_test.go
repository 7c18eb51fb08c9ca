package middleware

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToolName = "execute_action"
	testKind     = "pica"
	testInstance = "default"
	testConn     = "pica-prod"
)

type staticLookup map[string][3]string

func (l staticLookup) GetToolkitForTool(toolName string) (kind, name, connection string, found bool) {
	v, ok := l[toolName]
	if !ok {
		return "", "", "", false
	}
	return v[0], v[1], v[2], true
}

func newCallRequest(t *testing.T, name string, args map[string]any) *mcp.CallToolRequest {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name, Arguments: raw},
	}
}

func TestMCPToolCallMiddleware_SetsPlatformContext(t *testing.T) {
	lookup := staticLookup{testToolName: {testKind, testInstance, testConn}}
	mw := MCPToolCallMiddleware(lookup, "http")

	var got *PlatformContext
	handler := mw(func(ctx context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		got = GetPlatformContext(ctx)
		return &mcp.CallToolResult{}, nil
	})

	_, err := handler(context.Background(), methodToolsCall, newCallRequest(t, testToolName, nil))
	require.NoError(t, err)
	require.NotNil(t, got)

	_, parseErr := uuid.Parse(got.RequestID)
	assert.NoError(t, parseErr)
	assert.Equal(t, testToolName, got.ToolName)
	assert.Equal(t, testKind, got.ToolkitKind)
	assert.Equal(t, testInstance, got.ToolkitName)
	assert.Equal(t, testConn, got.Connection)
	assert.Equal(t, "http", got.Transport)
	assert.False(t, got.StartTime.IsZero())
}

func TestMCPToolCallMiddleware_UnknownTool(t *testing.T) {
	mw := MCPToolCallMiddleware(staticLookup{}, "stdio")

	var got *PlatformContext
	handler := mw(func(ctx context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		got = GetPlatformContext(ctx)
		return &mcp.CallToolResult{}, nil
	})

	_, err := handler(context.Background(), methodToolsCall, newCallRequest(t, "other", nil))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "other", got.ToolName)
	assert.Empty(t, got.ToolkitKind)
}

func TestMCPToolCallMiddleware_NonToolsCall(t *testing.T) {
	mw := MCPToolCallMiddleware(nil, "stdio")

	called := false
	handler := mw(func(ctx context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		called = true
		assert.Nil(t, GetPlatformContext(ctx))
		return &mcp.ListToolsResult{}, nil
	})

	_, err := handler(context.Background(), "tools/list", nil)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestMCPToolCallMiddleware_InvalidRequest(t *testing.T) {
	mw := MCPToolCallMiddleware(nil, "stdio")
	handler := mw(func(context.Context, string, mcp.Request) (mcp.Result, error) {
		t.Fatal("handler should not run")
		return nil, nil
	})

	tests := []struct {
		name string
		req  mcp.Request
	}{
		{name: "nil request", req: nil},
		{name: "nil params", req: &mcp.CallToolRequest{}},
		{name: "missing name", req: &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handler(context.Background(), methodToolsCall, tt.req)
			require.NoError(t, err)
			callResult, ok := result.(*mcp.CallToolResult)
			require.True(t, ok)
			assert.True(t, callResult.IsError)
		})
	}
}

func TestGetPlatformContext_Missing(t *testing.T) {
	assert.Nil(t, GetPlatformContext(context.Background()))
}
