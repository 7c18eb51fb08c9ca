package catalog

import (
	"net/http"
	"strings"

	"github.com/txn2/mcp-pica/pkg/actionid"
	"github.com/txn2/mcp-pica/pkg/pica"
)

// Permission limits which HTTP methods surface in action listings.
type Permission string

// Permission levels.
const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

// Wildcard in the connector allow-list admits every connection.
const Wildcard = "*"

// permittedMethods maps a permission level to the methods it may see.
// Levels not present here apply no filter.
var permittedMethods = map[Permission]map[string]bool{
	PermissionRead: {
		http.MethodGet: true,
	},
	PermissionWrite: {
		http.MethodPost:  true,
		http.MethodPut:   true,
		http.MethodPatch: true,
	},
}

// ParsePermission validates a permission level. The empty string means no
// restriction.
func ParsePermission(s string) (Permission, error) {
	switch p := Permission(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PermissionRead, PermissionWrite, PermissionAdmin:
		return p, nil
	default:
		return "", ErrInvalidPermissions
	}
}

// Allows reports whether an action with the given method is visible at this
// permission level.
func (p Permission) Allows(method string) bool {
	allowed, ok := permittedMethods[p]
	if !ok {
		return true
	}
	return allowed[strings.ToUpper(method)]
}

// filterByPermission keeps actions whose method is allowed.
func filterByPermission(actions []pica.Action, p Permission) []pica.Action {
	if _, ok := permittedMethods[p]; !ok {
		return actions
	}
	out := make([]pica.Action, 0, len(actions))
	for _, a := range actions {
		if p.Allows(a.Method) {
			out = append(out, a)
		}
	}
	return out
}

// filterByActionIDs keeps actions whose normalized ID is in allowed. A nil
// set applies no filter.
func filterByActionIDs(actions []pica.Action, allowed map[string]bool) []pica.Action {
	if allowed == nil {
		return actions
	}
	out := make([]pica.Action, 0, len(actions))
	for _, a := range actions {
		if allowed[a.ID] {
			out = append(out, a)
		}
	}
	return out
}

// normalizeActions rewrites every action ID to canonical form.
func normalizeActions(actions []pica.Action) []pica.Action {
	for i := range actions {
		actions[i].ID = actionid.Normalize(actions[i].ID)
	}
	return actions
}

// connectorFilter gates connections by key.
type connectorFilter struct {
	all  bool
	keys map[string]bool
}

// newConnectorFilter builds a filter from an allow-list. An empty list admits
// nothing; a list containing the wildcard admits everything.
func newConnectorFilter(keys []string) connectorFilter {
	f := connectorFilter{keys: make(map[string]bool, len(keys))}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == Wildcard {
			f.all = true
		}
		if k != "" {
			f.keys[k] = true
		}
	}
	return f
}

// apply returns the connections admitted by the filter.
func (f connectorFilter) apply(conns []pica.Connection) []pica.Connection {
	if f.all {
		return conns
	}
	out := make([]pica.Connection, 0, len(conns))
	for _, c := range conns {
		if f.keys[c.Key] {
			out = append(out, c)
		}
	}
	return out
}
