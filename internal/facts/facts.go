// Package facts supplies per-host substitution values to the executor and
// health checker. A View is read-only at task-execution time; it is populated
// from the inventory during load.
package facts

import (
	"fmt"
	"sort"
	"strings"
)

// Reserved keys derived from the host record or cluster configuration.
const (
	KeyCluster        = "cluster"
	KeyHostname       = "hostname"
	KeyFQDN           = "fqdn"
	KeyHostIP         = "host_ip"
	KeyFrontendPort   = "frontend_port"
	KeyContainerized  = "containerized"
	KeyContainerImage = "container_image"
)

// View is an immutable set of facts for one host.
type View struct {
	m map[string]string
}

// New merges the given layers into a View. Later layers override earlier ones.
func New(layers ...map[string]string) View {
	m := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			m[k] = v
		}
	}
	return View{m: m}
}

// Lookup returns the value for key and whether it is defined.
func (v View) Lookup(key string) (string, bool) {
	val, ok := v.m[key]
	return val, ok
}

// Get returns the value for key, or "" when undefined.
func (v View) Get(key string) string {
	return v.m[key]
}

// Bool reports whether the fact holds a truthy value. Undefined facts are
// false.
func (v View) Bool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(v.m[key])) {
	case "true", "yes", "on", "1":
		return true
	default:
		return false
	}
}

// Keys returns the defined fact names, sorted.
func (v View) Keys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Expand substitutes every {name} placeholder in s with the named fact.
// An unterminated placeholder or an undefined fact is an error.
func (v View) Expand(s string) (string, error) {
	if !strings.Contains(s, "{") {
		return s, nil
	}

	var b strings.Builder
	rest := s
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		b.WriteString(rest[:open])
		rest = rest[open+1:]

		close := strings.IndexByte(rest, '}')
		if close < 0 {
			return "", fmt.Errorf("unterminated placeholder in %q", s)
		}
		name := rest[:close]
		rest = rest[close+1:]

		val, ok := v.m[name]
		if !ok {
			return "", fmt.Errorf("undefined fact %q in %q", name, s)
		}
		b.WriteString(val)
	}
}
