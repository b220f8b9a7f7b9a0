package backend

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the configured backend clients and tracks which one is
// currently active for the session.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
	current string
}

// NewRegistry creates an empty registry with the given default backend name.
func NewRegistry(defaultBackend string) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		current: defaultBackend,
	}
}

// Register adds a client under the given name, replacing any existing one.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
}

// Switch changes the active backend. The target must be registered.
func (r *Registry) Switch(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[name]; !ok {
		return fmt.Errorf("unknown backend: %s", name)
	}
	r.current = name
	return nil
}

// Current returns the active backend's name and client. The client is nil
// when the active name was never registered.
func (r *Registry) Current() (string, Client) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.clients[r.current]
}

// Get returns the client registered under name.
func (r *Registry) Get(name string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	return c, ok
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
