package registry

import (
	picakit "github.com/txn2/mcp-pica/pkg/toolkits/pica"
)

// RegisterBuiltinFactories registers all built-in toolkit factories.
func RegisterBuiltinFactories(r *Registry) {
	r.RegisterFactory(picakit.Kind, PicaFactory)
}

// PicaFactory creates a Pica toolkit from configuration.
func PicaFactory(name string, cfg map[string]any) (Toolkit, error) {
	config, err := picakit.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return picakit.New(name, config)
}
