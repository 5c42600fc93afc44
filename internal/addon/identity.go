package addon

import (
	"reflect"
	"strings"
)

// TypeName returns the name of v's concrete type with pointers removed.
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}

// DisplayName is the human-facing name of an addon or module.
func DisplayName(v any) string {
	if n, ok := v.(Named); ok {
		if name := strings.TrimSpace(n.Name()); name != "" {
			return name
		}
	}
	return TypeName(v)
}

// ConfigName is the name used for an addon's config directory.
func ConfigName(a Addon) string {
	return strings.ToLower(DisplayName(a))
}

// ModuleKey is the stable key of a module inside the "modules" section.
// It is derived from the type, never from instance state.
func ModuleKey(m Module) string {
	if k, ok := m.(Keyed); ok {
		if key := strings.TrimSpace(k.ModuleKey()); key != "" {
			return strings.ToLower(key)
		}
	}
	return strings.ToLower(TypeName(m))
}
