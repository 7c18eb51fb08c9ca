package registry

import (
	"fmt"
	"maps"
	"sort"
)

// LoaderConfig holds configuration for loading toolkits.
type LoaderConfig struct {
	Toolkits map[string]ToolkitKindConfig `yaml:"toolkits"`
}

// ToolkitKindConfig holds configuration for a toolkit kind. Instance settings
// override kind-level Config settings.
type ToolkitKindConfig struct {
	Enabled   bool                      `yaml:"enabled"`
	Instances map[string]map[string]any `yaml:"instances"`
	Default   string                    `yaml:"default"`
	Config    map[string]any            `yaml:"config"`
}

// Loader loads toolkits from configuration.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new toolkit loader.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// Load creates and registers every instance of every enabled kind.
func (l *Loader) Load(cfg LoaderConfig) error {
	for _, kind := range sortedKeys(cfg.Toolkits) {
		kindCfg := cfg.Toolkits[kind]
		if !kindCfg.Enabled {
			continue
		}

		for _, name := range sortedKeys(kindCfg.Instances) {
			if err := l.registry.CreateAndRegister(ToolkitConfig{
				Kind:    kind,
				Name:    name,
				Enabled: true,
				Config:  mergeConfig(kindCfg.Config, kindCfg.Instances[name]),
				Default: name == kindCfg.Default,
			}); err != nil {
				return fmt.Errorf("loading toolkit %s/%s: %w", kind, name, err)
			}
		}
	}

	return nil
}

// LoadFromMap loads toolkits from an untyped map, as decoded from YAML.
func (l *Loader) LoadFromMap(toolkits map[string]any) error {
	cfg := LoaderConfig{Toolkits: make(map[string]ToolkitKindConfig, len(toolkits))}
	for kind, v := range toolkits {
		kindMap, ok := v.(map[string]any)
		if !ok {
			continue
		}

		kindCfg := ToolkitKindConfig{Instances: make(map[string]map[string]any)}
		kindCfg.Enabled, _ = kindMap["enabled"].(bool)
		kindCfg.Default, _ = kindMap["default"].(string)
		kindCfg.Config, _ = kindMap["config"].(map[string]any)

		instances, _ := kindMap["instances"].(map[string]any)
		for name, instanceV := range instances {
			instanceCfg, _ := instanceV.(map[string]any)
			kindCfg.Instances[name] = instanceCfg
		}
		cfg.Toolkits[kind] = kindCfg
	}

	return l.Load(cfg)
}

// mergeConfig overlays instance settings on kind-level settings.
func mergeConfig(kindCfg, instanceCfg map[string]any) map[string]any {
	merged := make(map[string]any, len(kindCfg)+len(instanceCfg))
	maps.Copy(merged, kindCfg)
	maps.Copy(merged, instanceCfg)
	return merged
}

// sortedKeys returns the keys of m in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
