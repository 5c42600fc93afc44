package plugin

import (
	"sort"
	"sync"

	"github.com/1broseidon/deskmod/internal/addon"
)

// Factory constructs an addon. It must not run addon logic.
type Factory func() addon.Addon

// Registry maps entry point names to factories for addons compiled into the
// binary.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry holds the built-in addons.
var DefaultRegistry = NewRegistry()

// Register adds a factory to DefaultRegistry.
func Register(entry string, f Factory) {
	DefaultRegistry.Register(entry, f)
}

// Register adds or replaces the factory for entry.
func (r *Registry) Register(entry string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[entry] = f
}

// Lookup returns the factory for entry.
func (r *Registry) Lookup(entry string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[entry]
	return f, ok
}

// Names returns the registered entry points, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
