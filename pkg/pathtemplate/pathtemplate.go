// Package pathtemplate resolves {{name}} placeholders in action paths.
package pathtemplate

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"
)

// placeholder matches {{name}} with optional inner whitespace.
var placeholder = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// MissingVariableError is returned by Resolve for the first placeholder
// without a usable value.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return "missing path variable: " + e.Name
}

// MissingVariablesError is returned by Bind and names every required
// variable that could not be found.
type MissingVariablesError struct {
	Names []string
}

func (e *MissingVariablesError) Error() string {
	return "missing required path variables: " + strings.Join(e.Names, ", ")
}

// Variables returns the placeholder names in path, in order of first
// appearance, without duplicates.
func Variables(path string) []string {
	matches := placeholder.FindAllStringSubmatch(path, -1)
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Resolve substitutes every placeholder in path with its value from vars.
func Resolve(path string, vars map[string]any) (string, error) {
	var missing string
	resolved := placeholder.ReplaceAllStringFunc(path, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		v, ok := lookup(vars, name)
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		return v
	})
	if missing != "" {
		return "", &MissingVariableError{Name: missing}
	}
	return resolved, nil
}

// Binding is the outcome of Bind.
type Binding struct {
	// Vars holds a value for every variable in the template.
	Vars map[string]any

	// Body is the request body with path-bound keys removed. It is a copy
	// when keys were removed; otherwise the original body.
	Body any

	// Moved lists the variables that were taken from the body.
	Moved []string
}

// Bind checks that every variable required by path can be satisfied, first
// from explicit and then from top-level keys of a map body. Values found only
// in the body are moved out of it so they are not sent twice. All missing
// names are reported together.
func Bind(path string, body any, explicit map[string]any) (Binding, error) {
	b := Binding{Vars: make(map[string]any, len(explicit)), Body: body}
	maps.Copy(b.Vars, explicit)

	bodyMap, _ := body.(map[string]any)
	var missing []string
	for _, name := range Variables(path) {
		if present(explicit, name) {
			continue
		}
		if present(bodyMap, name) {
			b.Vars[name] = bodyMap[name]
			b.Moved = append(b.Moved, name)
			continue
		}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		return Binding{}, &MissingVariablesError{Names: missing}
	}

	if len(b.Moved) > 0 {
		stripped := maps.Clone(bodyMap)
		for _, name := range b.Moved {
			delete(stripped, name)
		}
		b.Body = stripped
	}
	return b, nil
}

// present reports whether vars has a usable value for name. Absent keys, nil
// and the empty string count as missing; 0 and false are valid values.
func present(vars map[string]any, name string) bool {
	_, ok := lookup(vars, name)
	return ok
}

// lookup returns the string form of vars[name] if it is usable.
func lookup(vars map[string]any, name string) (string, bool) {
	v, ok := vars[name]
	if !ok || v == nil {
		return "", false
	}
	s := Format(v)
	if s == "" {
		return "", false
	}
	return s, true
}

// Format returns the string form of a scalar path value.
func Format(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
