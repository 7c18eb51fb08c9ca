package platform

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPlatformPrompts registers operator-defined prompts from config.
func (p *Platform) registerPlatformPrompts() {
	for _, promptCfg := range p.config.Server.Prompts {
		p.registerPrompt(promptCfg)
	}
}

// registerPrompt registers a single static prompt with the MCP server.
func (p *Platform) registerPrompt(cfg PromptConfig) {
	content := cfg.Content
	description := cfg.Description
	if description == "" {
		description = "Operator prompt " + cfg.Name
	}

	p.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        cfg.Name,
		Description: description,
	}, func(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: description,
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: content},
				},
			},
		}, nil
	})
}
