package notify

import "fmt"

// Registry is a static name-keyed table of notification providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry constructs the registry with the spec's three named
// providers plus Slack, a supplemented fourth platform (§11).
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	r.Register(NewTelegramProvider())
	r.Register(NewDiscordProvider())
	r.Register(NewTeamsProvider())
	r.Register(NewSlackProvider())
	return r
}

// Register adds or replaces a provider under its own Name().
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get looks up a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("notify: unknown provider %q", name)
	}
	return p, nil
}
