package connections

import (
	"sort"
	"strings"
)

// Environment variable prefixes scanned during discovery.
const (
	URIVariable         = "DATABASE_URI"
	DescriptionVariable = "DATABASE_DESC"

	// DefaultName is the logical name of the unsuffixed variable.
	DefaultName = "default"
)

// DiscoverConnections returns connection URLs keyed by logical name.
// DATABASE_URI maps to "default" and DATABASE_URI_<SUFFIX> maps to the
// lowercased suffix.
func (r *Registry) DiscoverConnections() map[string]string {
	return scanVariables(r.environ(), URIVariable)
}

// DiscoverDescriptions returns connection descriptions keyed by logical name,
// using the same naming convention on DATABASE_DESC. A description does not
// need a matching URL.
func (r *Registry) DiscoverDescriptions() map[string]string {
	return scanVariables(r.environ(), DescriptionVariable)
}

// scanVariables collects KEY=VALUE entries whose key is base or base_<SUFFIX>.
// Keys are visited in sorted order, so when two suffixes differ only by case
// the one sorting last wins.
func scanVariables(environ []string, base string) map[string]string {
	vars := make(map[string]string)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		vars[key] = value
	}

	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make(map[string]string)
	for _, key := range keys {
		name, ok := connectionName(key, base)
		if !ok {
			continue
		}
		result[name] = vars[key]
	}
	return result
}

// connectionName maps a variable name to its logical connection name.
func connectionName(key, base string) (string, bool) {
	if key == base {
		return DefaultName, true
	}
	suffix, ok := strings.CutPrefix(key, base+"_")
	if !ok || suffix == "" {
		return "", false
	}
	return strings.ToLower(suffix), true
}
