package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-pica/pkg/audit"
	"github.com/txn2/mcp-pica/pkg/health"
	"github.com/txn2/mcp-pica/pkg/middleware"
	"github.com/txn2/mcp-pica/pkg/registry"
)

// ErrConfigRequired is returned by New without a configuration.
var ErrConfigRequired = errors.New("config is required")

// instructionProvider is implemented by toolkits that contribute to the
// server instructions.
type instructionProvider interface {
	SystemPrompt(ctx context.Context) (string, error)
}

// readinessProvider is implemented by toolkits that load state in the
// background.
type readinessProvider interface {
	Ready(ctx context.Context) error
}

// Platform is the main platform facade.
type Platform struct {
	config *Config

	mcpServer *mcp.Server
	lifecycle *Lifecycle
	health    *health.Checker

	toolkitRegistry *registry.Registry
	auditLogger     middleware.AuditLogger

	instructions string
}

// New creates a new platform instance.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, ErrConfigRequired
	}
	applyDefaults(options.Config)
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}

	p := &Platform{
		config:    options.Config,
		lifecycle: NewLifecycle(),
	}

	if err := p.initializeComponents(options); err != nil {
		return nil, fmt.Errorf("initializing components: %w", err)
	}

	return p, nil
}

// initializeComponents initializes all platform components.
func (p *Platform) initializeComponents(opts *Options) error {
	if err := p.initRegistry(opts); err != nil {
		return err
	}
	p.initAudit(opts)

	p.health = opts.HealthChecker
	if p.health == nil {
		p.health = health.NewChecker()
	}

	p.instructions = p.buildInstructions()
	p.finalizeSetup()
	return nil
}

// initRegistry creates the toolkit registry and loads the configured
// toolkits into it.
func (p *Platform) initRegistry(opts *Options) error {
	if opts.ToolkitRegistry != nil {
		p.toolkitRegistry = opts.ToolkitRegistry
		return nil
	}

	p.toolkitRegistry = registry.NewRegistry()
	registry.RegisterBuiltinFactories(p.toolkitRegistry)
	if err := registry.NewLoader(p.toolkitRegistry).LoadFromMap(p.config.Toolkits); err != nil {
		_ = p.toolkitRegistry.Close()
		return fmt.Errorf("loading toolkits: %w", err)
	}
	return nil
}

// initAudit selects the audit logger.
func (p *Platform) initAudit(opts *Options) {
	switch {
	case opts.AuditLogger != nil:
		p.auditLogger = opts.AuditLogger
	case p.config.Audit.Enabled:
		p.auditLogger = middleware.NewAuditLoggerAdapter(audit.NewSlogLogger(nil))
	default:
		p.auditLogger = &middleware.NoopAuditLogger{}
	}
}

// buildInstructions renders the server instructions: operator guidance
// followed by each toolkit's system prompt. Startup waits at most
// InstructionsTimeout for toolkits to load.
func (p *Platform) buildInstructions() string {
	var parts []string
	if s := strings.TrimSpace(p.config.Server.Instructions); s != "" {
		parts = append(parts, s)
	}

	timeout := p.config.Server.InstructionsTimeout
	if timeout <= 0 {
		timeout = DefaultInstructionsTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, tk := range p.toolkitRegistry.All() {
		provider, ok := tk.(instructionProvider)
		if !ok {
			continue
		}
		text, err := provider.SystemPrompt(ctx)
		if err != nil {
			slog.Warn("platform: toolkit instructions unavailable",
				"kind", tk.Kind(), "name", tk.Name(), "error", err)
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

// finalizeSetup creates the MCP server, installs middleware and registers
// tools, prompts and lifecycle hooks.
func (p *Platform) finalizeSetup() {
	p.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    p.config.Server.Name,
		Version: p.config.Server.Version,
	}, &mcp.ServerOptions{
		Instructions: p.instructions,
	})

	// The first middleware is outermost: the audit middleware needs the
	// platform context set by MCPToolCallMiddleware.
	mws := []mcp.Middleware{
		middleware.MCPToolCallMiddleware(p.toolkitRegistry, p.config.Server.Transport),
		middleware.MCPClientLoggingMiddleware(p.config.ClientLogging),
	}
	if p.config.Audit.Enabled {
		mws = append(mws, middleware.MCPAuditMiddleware(p.auditLogger))
	}
	p.mcpServer.AddReceivingMiddleware(mws...)

	p.toolkitRegistry.RegisterAllTools(p.mcpServer)
	p.registerConnectionsTool()
	p.registerInfoTool()
	p.registerPlatformPrompts()
	p.validateInstructions()

	for _, tk := range p.toolkitRegistry.All() {
		if r, ok := tk.(readinessProvider); ok {
			p.health.AddCheck(tk.Kind()+":"+tk.Name(), r.Ready)
		}
	}

	p.lifecycle.OnStart("health", func(context.Context) error {
		p.health.SetReady()
		return nil
	})
	p.lifecycle.OnStop("resources", func(context.Context) error {
		return p.closeResources()
	})
	p.lifecycle.OnStop("health", func(context.Context) error {
		p.health.SetDraining()
		return nil
	})
}

// Start starts the platform.
func (p *Platform) Start(ctx context.Context) error {
	return p.lifecycle.Start(ctx)
}

// Stop stops the platform.
func (p *Platform) Stop(ctx context.Context) error {
	return p.lifecycle.Stop(ctx)
}

// MCPServer returns the MCP server.
func (p *Platform) MCPServer() *mcp.Server {
	return p.mcpServer
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// ToolkitRegistry returns the toolkit registry.
func (p *Platform) ToolkitRegistry() *registry.Registry {
	return p.toolkitRegistry
}

// Health returns the readiness checker.
func (p *Platform) Health() *health.Checker {
	return p.health
}

// Instructions returns the server instructions rendered at startup.
func (p *Platform) Instructions() string {
	return p.instructions
}

// closeResources closes the toolkits and the audit logger.
func (p *Platform) closeResources() error {
	var errs []error
	if err := p.toolkitRegistry.Close(); err != nil {
		errs = append(errs, err)
	}
	if closer, ok := p.auditLogger.(Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing platform: %w", err)
	}
	return nil
}

// Close releases all platform resources, stopping the platform first if it
// was started.
func (p *Platform) Close() error {
	if p.lifecycle.IsStarted() {
		return p.Stop(context.Background())
	}
	return p.closeResources()
}
