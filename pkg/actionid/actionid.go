// Package actionid canonicalizes Pica action identifiers.
//
// Action identifiers are namespaced as "<namespace>::<rest>". Only namespaces
// issued by the Pica catalog are recognized; anything else, including
// identifiers that happen to contain "::", is placed under the canonical
// namespace.
package actionid

import "strings"

// Separator divides a namespace from the rest of the identifier.
const Separator = "::"

// Namespace identifies the authority that issued an action identifier.
type Namespace string

// Recognized namespaces.
const (
	// NamespaceModelDefinition is the canonical namespace for catalog actions.
	NamespaceModelDefinition Namespace = "conn_mod_def"

	// NamespaceConnectionDefinition is used by connection-level definitions.
	NamespaceConnectionDefinition Namespace = "conn_def"
)

// CanonicalPrefix is prepended to identifiers without a recognized namespace.
const CanonicalPrefix = string(NamespaceModelDefinition) + Separator

// recognized is the set of namespaces that mark an identifier as already
// namespaced.
var recognized = map[Namespace]bool{
	NamespaceModelDefinition:      true,
	NamespaceConnectionDefinition: true,
}

// ID is a parsed action identifier.
type ID struct {
	Namespace Namespace
	Rest      string
}

// String returns the identifier in "<namespace>::<rest>" form.
func (id ID) String() string {
	return string(id.Namespace) + Separator + id.Rest
}

// Parse splits raw into namespace and remainder. It reports false when raw
// does not start with a recognized namespace.
func Parse(raw string) (ID, bool) {
	ns, rest, found := strings.Cut(strings.TrimSpace(raw), Separator)
	if !found || !recognized[Namespace(ns)] {
		return ID{}, false
	}
	return ID{Namespace: Namespace(ns), Rest: rest}, true
}

// Normalize returns the canonical form of raw. It is idempotent.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if _, ok := Parse(raw); ok {
		return raw
	}
	return CanonicalPrefix + raw
}

// NormalizeAll normalizes every identifier in ids, dropping empty entries.
func NormalizeAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n := Normalize(id); n != "" {
			out = append(out, n)
		}
	}
	return out
}
