package secret

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory builds a Provider from its settings. Factories run once
// per daemon start, when the configured provider names are instantiated.
type ProviderFactory func(settings map[string]string) (Provider, error)

// Registry maps provider names to factories so deployments can pick their
// credential sources ("env" locally, a vault-backed provider in
// production) without the config loader knowing any of them.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// Register adds a factory under name. The first registration of a name
// wins; registering it again is an error.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return errors.New("secret: provider registration needs a name and a factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.factories[name]; taken {
		return fmt.Errorf("secret: provider %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates the named provider.
func (r *Registry) Create(name string, settings map[string]string) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("secret: provider %q is not registered", name)
	}
	return factory(settings)
}

// Providers instantiates one provider per name, in order. The daemon uses
// this to turn --secret-provider flags into a Resolver.
func (r *Registry) Providers(names ...string) ([]Provider, error) {
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		p, err := r.Create(name, nil)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry carries the built-in provider factories. The env
// provider is always available; external providers register at init.
var DefaultRegistry = NewRegistry()

func init() {
	_ = DefaultRegistry.Register("env", func(map[string]string) (Provider, error) {
		return EnvProvider{}, nil
	})
}
