package gateway

import (
	"fmt"
	"sync"
)

// Registry manages the configured chat-completion providers and picks
// one per turn.
type Registry struct {
	mu              sync.RWMutex
	completers      map[string]ChatCompleter
	defaultProvider string
}

// NewRegistry creates a provider registry with the given default.
func NewRegistry(defaultProvider string) *Registry {
	return &Registry{
		completers:      make(map[string]ChatCompleter),
		defaultProvider: defaultProvider,
	}
}

// Register adds a chat-completion provider.
func (r *Registry) Register(c ChatCompleter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completers[c.Name()] = c
}

// Get returns the provider with the given name, or the default provider
// when name is empty.
func (r *Registry) Get(name string) (ChatCompleter, error) {
	if name == "" {
		name = r.defaultProvider
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.completers[name]
	if !ok {
		return nil, fmt.Errorf("chat provider not found: %s", name)
	}
	return c, nil
}

// DefaultProvider returns the default provider name.
func (r *Registry) DefaultProvider() string {
	return r.defaultProvider
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.completers))
	for name := range r.completers {
		names = append(names, name)
	}
	return names
}
