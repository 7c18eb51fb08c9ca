// Package server provides a factory for creating the MCP server.
package server

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-pica/pkg/platform"
)

// Version is set at build time.
var Version = "dev"

// New creates a new MCP server with the given configuration. An empty
// server version is replaced by the build version.
func New(cfg *platform.Config) (*mcp.Server, *platform.Platform, error) {
	if cfg == nil {
		return nil, nil, platform.ErrConfigRequired
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = Version
	}

	p, err := platform.New(platform.WithConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("creating platform: %w", err)
	}

	return p.MCPServer(), p, nil
}

// NewWithConfig loads the configuration file at path and creates the server.
func NewWithConfig(path string) (*mcp.Server, *platform.Platform, error) {
	cfg, err := platform.LoadConfig(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return New(cfg)
}
