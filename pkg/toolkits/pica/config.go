package pica

import (
	"errors"
	"fmt"
	"time"

	"github.com/txn2/mcp-pica/pkg/catalog"
	picaapi "github.com/txn2/mcp-pica/pkg/pica"
)

const (
	// DefaultTimeout is the default HTTP client timeout for Pica API calls.
	DefaultTimeout = 30 * time.Second
)

var (
	// ErrKnowledgeAgentConfig is returned when knowledge_agent_config is set
	// while knowledge_agent is disabled.
	ErrKnowledgeAgentConfig = errors.New("knowledge_agent_config requires knowledge_agent to be enabled")

	// ErrInvalidPageSize is returned for a negative page size.
	ErrInvalidPageSize = errors.New("page_size must not be negative")
)

// Config holds Pica toolkit configuration.
type Config struct {
	Secret  string        `yaml:"secret"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`

	// Connectors is the connection key allow-list; "*" admits all.
	Connectors []string `yaml:"connectors"`

	// Actions is the action id allow-list; empty admits all.
	Actions []string `yaml:"actions"`

	Permissions  string `yaml:"permissions"`
	Identity     string `yaml:"identity"`
	IdentityType string `yaml:"identity_type"`

	AuthKit              bool                  `yaml:"authkit"`
	KnowledgeAgent       bool                  `yaml:"knowledge_agent"`
	KnowledgeAgentConfig *KnowledgeAgentConfig `yaml:"knowledge_agent_config"`

	PageSize       int    `yaml:"page_size"`
	ConnectionName string `yaml:"connection_name"`

	// Descriptions overrides tool descriptions by tool name.
	Descriptions map[string]string `yaml:"descriptions"`
}

// KnowledgeAgentConfig tunes knowledge-agent mode.
type KnowledgeAgentConfig struct {
	// IncludeEnvironmentVariables tells the agent to read the secret from
	// the PICA_SECRET_KEY environment variable in generated code.
	IncludeEnvironmentVariables bool `yaml:"include_environment_variables"`
}

// ParseConfig parses a Pica toolkit configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	c := Config{
		Timeout: DefaultTimeout,
	}

	c.Secret = getString(cfg, "secret")
	c.BaseURL = getStringDefault(cfg, "base_url", picaapi.DefaultBaseURL)
	c.Permissions = getString(cfg, "permissions")
	c.Identity = getString(cfg, "identity")
	c.IdentityType = getString(cfg, "identity_type")
	c.ConnectionName = getString(cfg, "connection_name")

	c.Connectors = getStringSlice(cfg, "connectors")
	c.Actions = getStringSlice(cfg, "actions")

	c.AuthKit = getBool(cfg, "authkit")
	c.KnowledgeAgent = getBool(cfg, "knowledge_agent")
	if raw, ok := cfg["knowledge_agent_config"].(map[string]any); ok {
		c.KnowledgeAgentConfig = &KnowledgeAgentConfig{
			IncludeEnvironmentVariables: getBool(raw, "include_environment_variables"),
		}
	}

	c.Timeout = getDuration(cfg, "timeout", c.Timeout)
	c.PageSize = getInt(cfg, "page_size", 0)

	c.Descriptions = getStringMap(cfg, "descriptions")

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the configuration for inconsistent settings.
func (c Config) Validate() error {
	if c.Secret == "" {
		return picaapi.ErrMissingSecret
	}
	if c.KnowledgeAgentConfig != nil && !c.KnowledgeAgent {
		return ErrKnowledgeAgentConfig
	}
	if c.PageSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, c.PageSize)
	}
	if _, err := catalog.ParsePermission(c.Permissions); err != nil {
		return fmt.Errorf("%w: %q", err, c.Permissions)
	}
	if !picaapi.ValidIdentityType(c.IdentityType) {
		return fmt.Errorf("%w: %q", catalog.ErrInvalidIdentityType, c.IdentityType)
	}
	return nil
}

// getStringMap extracts a map[string]string value from a config map.
func getStringMap(cfg map[string]any, key string) map[string]string {
	raw, ok := cfg[key].(map[string]any)
	if !ok {
		return nil
	}
	result := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			result[k] = s
		}
	}
	return result
}

// getStringSlice extracts a []string value from a config map. A single
// string is treated as a one-element list.
func getStringSlice(cfg map[string]any, key string) []string {
	switch v := cfg[key].(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case string:
		return []string{v}
	}
	return nil
}

// getString extracts a string value from a config map.
func getString(cfg map[string]any, key string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return ""
}

// getStringDefault extracts a string value from a config map with a default.
func getStringDefault(cfg map[string]any, key, defaultVal string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return defaultVal
}

// getBool extracts a bool value from a config map.
func getBool(cfg map[string]any, key string) bool {
	if v, ok := cfg[key].(bool); ok {
		return v
	}
	return false
}

// getInt extracts an int value from a config map with a default.
func getInt(cfg map[string]any, key string, defaultVal int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultVal
}

// getDuration extracts a duration value from a config map.
func getDuration(cfg map[string]any, key string, defaultVal time.Duration) time.Duration {
	if v, ok := cfg[key].(string); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	if v, ok := cfg[key].(int); ok {
		return time.Duration(v) * time.Second
	}
	if v, ok := cfg[key].(float64); ok {
		return time.Duration(v) * time.Second
	}
	return defaultVal
}
