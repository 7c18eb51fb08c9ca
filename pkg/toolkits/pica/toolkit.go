// Package pica provides the Pica toolkit: action discovery, action knowledge
// and passthrough execution exposed as MCP tools.
package pica

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-pica/pkg/catalog"
	"github.com/txn2/mcp-pica/pkg/passthrough"
	picaapi "github.com/txn2/mcp-pica/pkg/pica"
	"github.com/txn2/mcp-pica/pkg/prompt"
	"github.com/txn2/mcp-pica/pkg/toolkit"
)

// Kind is the registry kind of the Pica toolkit.
const Kind = "pica"

// Tool names.
const (
	toolGetAvailableActions     = "get_available_actions"
	toolGetActionKnowledge      = "get_action_knowledge"
	toolExecuteAction           = "execute_action"
	toolPromptToConnectPlatform = "prompt_to_connect_platform"
	toolListConnections         = "list_pica_connections"

	promptName = "pica_system_prompt"
)

// Toolkit exposes one Pica secret as MCP tools.
type Toolkit struct {
	name     string
	config   Config
	client   *picaapi.Client
	catalog  *catalog.Catalog
	executor *passthrough.Executor
}

// New creates a Pica toolkit and starts loading its catalog.
func New(name string, cfg Config) (*Toolkit, error) {
	cfg = applyDefaults(name, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := picaapi.New(picaapi.Config{
		BaseURL: cfg.BaseURL,
		Secret:  cfg.Secret,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating pica client: %w", err)
	}

	cat, err := catalog.New(client, catalog.Options{
		Connectors:   cfg.Connectors,
		Actions:      cfg.Actions,
		Permissions:  cfg.Permissions,
		Identity:     cfg.Identity,
		IdentityType: cfg.IdentityType,
		AuthKit:      cfg.AuthKit,
		PageSize:     cfg.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating catalog: %w", err)
	}

	return &Toolkit{
		name:     name,
		config:   cfg,
		client:   client,
		catalog:  cat,
		executor: passthrough.New(client, cat, passthrough.Options{PromptToConnect: cfg.AuthKit}),
	}, nil
}

// applyDefaults applies default values to the configuration.
func applyDefaults(name string, cfg Config) Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = picaapi.DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ConnectionName == "" {
		cfg.ConnectionName = name
	}
	return cfg
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return Kind
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// Connection returns the connection name for audit logging.
func (t *Toolkit) Connection() string {
	return t.config.ConnectionName
}

// Tools returns the tool names this toolkit registers.
func (t *Toolkit) Tools() []string {
	tools := []string{
		toolGetAvailableActions,
		toolGetActionKnowledge,
		toolExecuteAction,
		toolListConnections,
	}
	if t.config.AuthKit {
		tools = append(tools, toolPromptToConnectPlatform)
	}
	return tools
}

// RegisterTools registers the Pica tools, the action resource template and
// the system prompt with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetAvailableActions,
		Description: t.description(toolGetAvailableActions),
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.handleGetAvailableActions)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetActionKnowledge,
		Description: t.description(toolGetActionKnowledge),
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.handleGetActionKnowledge)

	destructive, openWorld := !t.config.KnowledgeAgent, true
	s.AddTool(&mcp.Tool{
		Name:        toolExecuteAction,
		Description: t.description(toolExecuteAction),
		InputSchema: executeActionSchema,
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:    t.config.KnowledgeAgent,
			DestructiveHint: &destructive,
			OpenWorldHint:   &openWorld,
		},
	}, t.handleExecuteActionRaw)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolListConnections,
		Description: t.description(toolListConnections),
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.handleListConnections)

	if t.config.AuthKit {
		mcp.AddTool(s, &mcp.Tool{
			Name:        toolPromptToConnectPlatform,
			Description: t.description(toolPromptToConnectPlatform),
		}, t.handlePromptToConnectPlatform)
	}

	t.registerResourceTemplate(s)
	t.registerPrompt(s)
}

// description returns the configured description override for a tool, or
// its default.
func (t *Toolkit) description(tool string) string {
	if d, ok := t.config.Descriptions[tool]; ok && d != "" {
		return d
	}
	return defaultDescriptions[tool]
}

var defaultDescriptions = map[string]string{
	toolGetAvailableActions: "List the actions available for a platform. " +
		"Call this first to find the action id for what you want to do.",
	toolGetActionKnowledge: "Get the documentation for an action: its method, path, path variables, " +
		"parameters and request body. Always call this before execute_action.",
	toolExecuteAction: "Execute an action against a connected platform through the Pica passthrough API. " +
		"Set return_request_config_without_execution to preview the request without sending it.",
	toolListConnections: "List the platforms connected to this Pica account and the platforms available to connect.",
	toolPromptToConnectPlatform: "Ask the user to connect a platform that has no active connection yet.",
}

// Variant returns the system prompt variant for this toolkit.
func (t *Toolkit) Variant() prompt.Variant {
	return prompt.VariantFor(t.config.AuthKit, t.config.KnowledgeAgent)
}

// SystemPrompt renders the system prompt from the current catalog state.
func (t *Toolkit) SystemPrompt(ctx context.Context) (string, error) {
	summary, err := t.catalog.Summary(ctx)
	if err != nil {
		return "", fmt.Errorf("summarizing catalog: %w", err)
	}
	text := prompt.Compose(t.Variant(), summary)
	if kac := t.config.KnowledgeAgentConfig; kac != nil && kac.IncludeEnvironmentVariables {
		text += "\n\n" + environmentVariableGuidance
	}
	return text, nil
}

const environmentVariableGuidance = `When you write code that calls the Pica API, read the secret from the PICA_SECRET_KEY environment variable instead of embedding it.`

// ListConnections returns the active connections admitted by the connector
// allow-list.
func (t *Toolkit) ListConnections(ctx context.Context) []toolkit.ConnectionDetail {
	conns, err := t.catalog.Connections(ctx)
	if err != nil {
		return nil
	}
	details := make([]toolkit.ConnectionDetail, 0, len(conns))
	for _, c := range conns {
		if !c.Active {
			continue
		}
		details = append(details, toolkit.ConnectionDetail{
			Name:        c.Key,
			Description: c.Platform,
		})
	}
	return details
}

// Catalog returns the toolkit's catalog.
func (t *Toolkit) Catalog() *catalog.Catalog {
	return t.catalog
}

// Config returns the toolkit configuration.
func (t *Toolkit) Config() Config {
	return t.config
}

// Ready blocks until the catalog's initial load has finished.
func (t *Toolkit) Ready(ctx context.Context) error {
	return t.catalog.Ready(ctx) //nolint:wrapcheck // already wrapped by the catalog
}

// Close stops catalog loading.
func (t *Toolkit) Close() error {
	return t.catalog.Close()
}

// Verify interface compliance.
var (
	_ interface {
		Kind() string
		Name() string
		Connection() string
		RegisterTools(s *mcp.Server)
		Tools() []string
		Close() error
	} = (*Toolkit)(nil)
	_ toolkit.ConnectionLister = (*Toolkit)(nil)
)
