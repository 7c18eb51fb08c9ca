package platform

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Info contains information about the server deployment.
type Info struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Transport   string   `json:"transport"`
	Toolkits    []string `json:"toolkits"`
	Tools       []string `json:"tools"`
	Features    Features `json:"features"`
}

// Features describes enabled server features.
type Features struct {
	AuditLogging  bool `json:"audit_logging"`
	ClientLogging bool `json:"client_logging"`
	APIKeyAuth    bool `json:"api_key_auth"`
}

// platformInfoInput is empty since this tool has no parameters.
type platformInfoInput struct{}

// registerInfoTool registers the platform_info tool with the MCP server.
func (p *Platform) registerInfoTool() {
	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        "platform_info",
		Description: p.buildInfoToolDescription(),
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ platformInfoInput) (*mcp.CallToolResult, any, error) {
		return p.handleInfo(ctx, req)
	})
}

// buildInfoToolDescription builds the tool description from the server name.
func (p *Platform) buildInfoToolDescription() string {
	base := "Get information about this Pica MCP server"
	if p.config.Server.Name != "" && p.config.Server.Name != DefaultName {
		base = fmt.Sprintf("Get information about %s", p.config.Server.Name)
	}
	return base + ", including its toolkits, tools and enabled features."
}

// handleInfo handles the platform_info tool call.
func (p *Platform) handleInfo(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, any, error) {
	all := p.toolkitRegistry.All()
	toolkits := make([]string, 0, len(all))
	for _, tk := range all {
		toolkits = append(toolkits, tk.Kind()+":"+tk.Name())
	}

	tools := p.toolkitRegistry.AllTools()
	sort.Strings(tools)

	return jsonResult(Info{
		Name:        p.config.Server.Name,
		Version:     p.config.Server.Version,
		Description: p.config.Server.Description,
		Transport:   p.config.Server.Transport,
		Toolkits:    toolkits,
		Tools:       tools,
		Features: Features{
			AuditLogging:  p.config.Audit.Enabled,
			ClientLogging: p.config.ClientLogging.Enabled,
			APIKeyAuth:    p.config.Auth.APIKeys.Enabled,
		},
	})
}
