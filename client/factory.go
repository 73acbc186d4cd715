package client

import (
	"fmt"
	"sort"
	"sync"
)

// BuilderFunc produces a fresh, unshared *ClientBuilder configuration for
// a named client. It is called once per Factory.Client call that misses
// the cache, and once per Factory.Fresh call, which bypasses the cache.
type BuilderFunc func() *ClientBuilder

// Factory is a process-wide name -> builder-config registry: Register
// and Client play the role a RegisterAuthenticator/CreateAuthenticator
// pair would for a named strategy. A name can be resolved to a client
// anywhere in the process without threading a *ClientBuilder through the
// call stack by hand.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]BuilderFunc
	cache    map[string]*ResilientHttpClient
}

// NewFactory returns an empty Factory.
func NewFactory() *Factory {
	return &Factory{
		builders: make(map[string]BuilderFunc),
		cache:    make(map[string]*ResilientHttpClient),
	}
}

// DefaultFactory is the package-level singleton most programs resolve
// named clients against, mirroring resilience.DefaultRegistry and
// observe.DefaultHub.
var DefaultFactory = NewFactory()

// Register associates name with a BuilderFunc. Re-registering the same
// name overwrites the previous BuilderFunc and evicts any cached client
// built from it — unlike the circuit Registry's first-writer-wins (a
// circuit is shared mutable state identified by name; a named client
// config is just construction sugar, so last-writer-wins is the more
// useful default for iterating on configuration in tests).
func (f *Factory) Register(name string, builder BuilderFunc) error {
	if name == "" || builder == nil {
		return fmt.Errorf("client: invalid factory registration for %q", name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[name] = builder
	delete(f.cache, name)
	return nil
}

// Client resolves name to a client, building and caching it on first use.
// Subsequent calls for the same name return the cached instance.
func (f *Factory) Client(name string) (*ResilientHttpClient, error) {
	f.mu.RLock()
	if c, ok := f.cache[name]; ok {
		f.mu.RUnlock()
		return c, nil
	}
	builder, ok := f.builders[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("client: no builder registered for %q", name)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cache[name]; ok {
		return c, nil
	}
	client, err := builder().Build()
	if err != nil {
		return nil, fmt.Errorf("client: building %q: %w", name, err)
	}
	f.cache[name] = client
	return client, nil
}

// Fresh resolves name to a brand-new client, bypassing (and not
// populating) the cache — useful for tests that need an isolated
// pipeline instance per case even though the name is shared.
func (f *Factory) Fresh(name string) (*ResilientHttpClient, error) {
	f.mu.RLock()
	builder, ok := f.builders[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("client: no builder registered for %q", name)
	}
	return builder().Build()
}

// Names returns every registered client name, sorted.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.builders))
	for name := range f.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
