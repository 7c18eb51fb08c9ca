package catalog

import (
	"context"
	"sort"
)

// ConnectedPlatform is an active connection as shown to the agent.
type ConnectedPlatform struct {
	Platform string `json:"platform"`
	Key      string `json:"key"`
}

// AvailablePlatform is a platform the secret could connect to.
type AvailablePlatform struct {
	Platform string `json:"platform"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Summary is the catalog state handed to the prompt composer.
type Summary struct {
	Connected []ConnectedPlatform `json:"connected"`
	Available []AvailablePlatform `json:"available"`
}

// Summary returns the active connections and the available platforms.
func (c *Catalog) Summary(ctx context.Context) (Summary, error) {
	if err := c.Ready(ctx); err != nil {
		return Summary{}, err
	}

	s := Summary{
		Connected: []ConnectedPlatform{},
		Available: []AvailablePlatform{},
	}
	for _, conn := range *c.connections.Load() {
		if conn.Active {
			s.Connected = append(s.Connected, ConnectedPlatform{Platform: conn.Platform, Key: conn.Key})
		}
	}

	seen := make(map[string]bool)
	for _, def := range *c.definitions.Load() {
		if def.Platform == "" || seen[def.Platform] {
			continue
		}
		seen[def.Platform] = true
		s.Available = append(s.Available, AvailablePlatform{
			Platform: def.Platform,
			Name:     def.Name,
			Category: def.Category,
		})
	}
	sort.Slice(s.Available, func(i, j int) bool {
		return s.Available[i].Platform < s.Available[j].Platform
	})

	return s, nil
}
