package agentprovider

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// factory lazily constructs a provider, given an explicit executable
// override (empty string means "discover via PATH").
type factory func(executable string) Provider

// Registry is a static, name-keyed table of provider factories with a
// bounded LRU instantiation cache — grounded on the lazy-construction,
// name-keyed lookup pattern of the wider example pack's LLM-provider
// registries, adapted from LLM-API providers to agent-CLI providers.
type Registry struct {
	mu         sync.Mutex
	factories  map[string]factory
	executable map[string]string // provider name -> configured executable override
	cache      *lru.Cache[string, Provider]
}

// NewRegistry constructs the registry with the two spec-mandated
// providers pre-declared. Additional providers can be added via Register.
func NewRegistry() *Registry {
	cache, _ := lru.New[string, Provider](16)
	r := &Registry{
		factories:  make(map[string]factory),
		executable: make(map[string]string),
		cache:      cache,
	}
	r.Register("claude", func(exe string) Provider { return NewClaudeProvider(exe) })
	r.Register("codex", func(exe string) Provider { return NewCodexProvider(exe) })
	return r
}

// Register adds or replaces a provider factory under name.
func (r *Registry) Register(name string, f factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// SetExecutable configures an explicit executable path override for a
// provider, bypassing PATH discovery.
func (r *Registry) SetExecutable(name, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executable[name] = path
	r.cache.Remove(name) // force re-instantiation with the new override
}

// Get looks up a provider by name, instantiating and caching it on first
// use.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.cache.Get(name); ok {
		return p, nil
	}
	f, ok := r.factories[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	p := f(r.executable[name])
	r.cache.Add(name, p)
	return p, nil
}

// Names lists every registered provider name.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}
