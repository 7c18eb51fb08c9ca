package platform

import (
	"github.com/txn2/mcp-pica/pkg/health"
	"github.com/txn2/mcp-pica/pkg/middleware"
	"github.com/txn2/mcp-pica/pkg/registry"
)

// Options configures the platform.
type Options struct {
	// Config is the platform configuration.
	Config *Config

	// ToolkitRegistry (optional, will be created and loaded from config if not provided).
	ToolkitRegistry *registry.Registry

	// AuditLogger (optional, will be created from config if not provided).
	AuditLogger middleware.AuditLogger

	// HealthChecker (optional, will be created if not provided).
	HealthChecker *health.Checker
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithToolkitRegistry sets the toolkit registry.
func WithToolkitRegistry(reg *registry.Registry) Option {
	return func(o *Options) {
		o.ToolkitRegistry = reg
	}
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(logger middleware.AuditLogger) Option {
	return func(o *Options) {
		o.AuditLogger = logger
	}
}

// WithHealthChecker sets the health checker.
func WithHealthChecker(checker *health.Checker) Option {
	return func(o *Options) {
		o.HealthChecker = checker
	}
}
