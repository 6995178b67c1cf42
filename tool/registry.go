package tool

import (
	"fmt"
	"sync"
)

// Registration pairs a tool with its invocation kind resolved at registration.
type Registration struct {
	Tool Tool
	Kind Kind
}

// Registry holds the tools available to a single agent. Names are unique; a
// second registration under an existing name is rejected rather than silently
// replacing the first. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Registration
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Registration{}}
}

// Register adds a tool, resolving its kind from its capabilities.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool must not be nil")
	}

	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	r.tools[name] = Registration{Tool: t, Kind: KindOf(t)}
	r.order = append(r.order, name)

	return nil
}

// MustRegister registers all tools, panicking on the first failure. Intended
// for static setup at construction time.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get returns the registration for name.
func (r *Registry) Get(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.tools[name]
	return reg, ok
}

// All returns registrations in registration order.
func (r *Registry) All() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]Registration, 0, len(r.order))
	for _, name := range r.order {
		res = append(res, r.tools[name])
	}
	return res
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string{}, r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}
