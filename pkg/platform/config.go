// Package platform provides the main platform orchestration.
package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	httpauth "github.com/txn2/mcp-pica/pkg/http"
	"github.com/txn2/mcp-pica/pkg/middleware"
	picakit "github.com/txn2/mcp-pica/pkg/toolkits/pica"
)

// CurrentConfigVersion is the current config API version.
const CurrentConfigVersion = "v1"

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Defaults.
const (
	DefaultName                = "mcp-pica"
	DefaultAddress             = ":8080"
	DefaultInstructionsTimeout = 5 * time.Second
	DefaultShutdownTimeout     = 10 * time.Second
)

// ErrMultiplePicaInstances is returned when more than one Pica toolkit
// instance is configured. Instances would register the same tool names.
var ErrMultiplePicaInstances = errors.New("at most one pica toolkit instance may be configured")

// Config holds the complete platform configuration.
type Config struct {
	APIVersion    string                         `yaml:"apiVersion"`
	Server        ServerConfig                   `yaml:"server"`
	Auth          AuthConfig                     `yaml:"auth"`
	Toolkits      map[string]any                 `yaml:"toolkits"`
	Audit         AuditConfig                    `yaml:"audit"`
	Logging       LoggingConfig                  `yaml:"logging"`
	ClientLogging middleware.ClientLoggingConfig `yaml:"client_logging"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`

	// Instructions is operator guidance prepended to the generated Pica
	// system prompt in the server instructions.
	Instructions string         `yaml:"instructions"`
	Prompts      []PromptConfig `yaml:"prompts"`
	Transport    string         `yaml:"transport"` // "stdio", "http"
	Address      string         `yaml:"address"`
	TLS          TLSConfig      `yaml:"tls"`

	// InstructionsTimeout bounds how long startup waits for the catalog
	// before rendering the instructions.
	InstructionsTimeout time.Duration `yaml:"instructions_timeout"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`
}

// PromptConfig defines a platform-level MCP prompt.
type PromptConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

// TLSConfig configures TLS for the HTTP transport.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// AuthConfig configures authentication for the HTTP transport.
type AuthConfig struct {
	APIKeys APIKeyAuthConfig `yaml:"api_keys"`
}

// APIKeyAuthConfig configures API key authentication.
type APIKeyAuthConfig struct {
	Enabled bool        `yaml:"enabled"`
	Keys    []APIKeyDef `yaml:"keys"`
}

// APIKeyDef defines an API key. Hash is a bcrypt hash and is preferred over
// a plaintext Key.
type APIKeyDef struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
	Hash string `yaml:"hash"`
}

// AuditConfig configures audit logging.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// SlogLevel returns the configured level, defaulting to info.
func (c LoggingConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// APIKeys converts the configured keys for the HTTP gate. It returns nil
// when API key auth is disabled.
func (c *Config) APIKeys() []httpauth.APIKey {
	if !c.Auth.APIKeys.Enabled {
		return nil
	}
	keys := make([]httpauth.APIKey, 0, len(c.Auth.APIKeys.Keys))
	for _, k := range c.Auth.APIKeys.Keys {
		keys = append(keys, httpauth.APIKey{Name: k.Name, Key: k.Key, Hash: k.Hash})
	}
	return keys
}

// LoadConfig loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, expanding ${VAR} references and
// applying defaults.
func ParseConfig(data []byte) (*Config, error) {
	if version := PeekVersion(data); version != CurrentConfigVersion {
		return nil, fmt.Errorf("unsupported config apiVersion %q; supported versions: %s", version, CurrentConfigVersion)
	}

	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// configEnvelope is a minimal struct for peeking at the apiVersion field
// without parsing the full config.
type configEnvelope struct {
	APIVersion string `yaml:"apiVersion"`
}

// PeekVersion extracts the apiVersion from raw YAML bytes.
// Returns the current version if the field is missing or empty.
func PeekVersion(data []byte) string {
	var envelope configEnvelope
	if err := yaml.Unmarshal(data, &envelope); err != nil || envelope.APIVersion == "" {
		return CurrentConfigVersion
	}
	return envelope.APIVersion
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = CurrentConfigVersion
	}
	if cfg.Server.Name == "" {
		cfg.Server.Name = DefaultName
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = DefaultAddress
	}
	if cfg.Server.InstructionsTimeout == 0 {
		cfg.Server.InstructionsTimeout = DefaultInstructionsTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Errorf("server.transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Server.Transport))
	}

	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		errs = append(errs, errors.New("server.tls.cert_file and server.tls.key_file are required when TLS is enabled"))
	}

	if c.Auth.APIKeys.Enabled && len(c.Auth.APIKeys.Keys) == 0 {
		errs = append(errs, errors.New("auth.api_keys.keys is required when API key auth is enabled"))
	}
	for i, k := range c.APIKeys() {
		if err := k.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("auth.api_keys.keys[%d]: %w", i, err))
		}
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	for i, p := range c.Server.Prompts {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("server.prompts[%d].name is required", i))
		}
	}

	if n := picaInstanceCount(c.Toolkits); n > 1 {
		errs = append(errs, fmt.Errorf("%w (found %d)", ErrMultiplePicaInstances, n))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %w", errors.Join(errs...))
	}

	return nil
}

// picaInstanceCount counts the configured instances of an enabled Pica
// toolkit.
func picaInstanceCount(toolkits map[string]any) int {
	kindCfg, ok := toolkits[picakit.Kind].(map[string]any)
	if !ok {
		return 0
	}
	if enabled, _ := kindCfg["enabled"].(bool); !enabled {
		return 0
	}
	instances, _ := kindCfg["instances"].(map[string]any)
	return len(instances)
}
