package tracker

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roadmap-cli/roadmap/internal/storage"
)

// BackendFactory creates a configured backend. store is the local issue
// store PullIssue writes into.
type BackendFactory func(cfg *Config, store storage.Storage) (SyncBackend, error)

// Registry manages registered sync backends. Backends register themselves
// at init time.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]BackendFactory
}

// globalRegistry is the default registry used by Register and Get.
var globalRegistry = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]BackendFactory)}
}

// Register adds a backend factory to the global registry.
func Register(name string, factory BackendFactory) {
	globalRegistry.Register(name, factory)
}

// Get retrieves a backend factory from the global registry, or nil.
func Get(name string) BackendFactory {
	return globalRegistry.Get(name)
}

// List returns the names of all registered backends.
func List() []string {
	return globalRegistry.List()
}

// NewBackend creates the named backend from the global registry.
func NewBackend(name string, cfg *Config, store storage.Storage) (SyncBackend, error) {
	return globalRegistry.NewBackend(name, cfg, store)
}

func (r *Registry) Register(name string, factory BackendFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = factory
}

func (r *Registry) Get(name string) BackendFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.backends[name]
}

// List returns the registered names, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBackend creates an instance of the named backend.
func (r *Registry) NewBackend(name string, cfg *Config, store storage.Storage) (SyncBackend, error) {
	factory := r.Get(name)
	if factory == nil {
		return nil, fmt.Errorf("unknown sync backend %q (available: %v)", name, r.List())
	}
	if cfg == nil {
		cfg = NewConfig(name, nil)
	}
	return factory(cfg, store)
}

// IsRegistered checks if a backend with the given name is registered.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.backends[name]
	return ok
}
