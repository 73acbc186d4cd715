package resilience

import (
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry is the process-wide name -> CircuitBreakerState map. At most one
// CircuitBreakerState exists per name for the lifetime of a Registry; every
// CircuitBreaker built against the same name shares the same state.
type Registry struct {
	mu    sync.RWMutex
	group singleflight.Group
	states map[string]*CircuitBreakerState
}

// NewRegistry returns an empty Registry. Most programs share one Registry
// process-wide via DefaultRegistry; tests construct their own to avoid
// cross-test leakage.
func NewRegistry() *Registry {
	return &Registry{states: make(map[string]*CircuitBreakerState)}
}

// DefaultRegistry is the package-level singleton most CircuitBreaker
// handlers resolve against unless a caller wires a dedicated Registry.
var DefaultRegistry = NewRegistry()

// GetOrCreate returns the existing state for config.CircuitName if one was
// already registered, ignoring the rest of config — first-writer-wins,
// since re-registration with a different configuration under the same
// name is inherently ambiguous and this implementation picks and
// documents first-writer-wins. Concurrent first-creation for the same
// name is deduplicated via singleflight so exactly one
// *CircuitBreakerState is ever constructed per name, even under a race.
func (r *Registry) GetOrCreate(config CircuitBreakerConfig) *CircuitBreakerState {
	r.mu.RLock()
	if s, ok := r.states[config.CircuitName]; ok {
		r.mu.RUnlock()
		return s
	}
	r.mu.RUnlock()

	v, _, _ := r.group.Do(config.CircuitName, func() (any, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if s, ok := r.states[config.CircuitName]; ok {
			return s, nil
		}
		s := newCircuitBreakerState(config)
		r.states[config.CircuitName] = s
		return s, nil
	})
	return v.(*CircuitBreakerState)
}

// Names returns every registered circuit name, sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.states))
	for name := range r.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a point-in-time name -> Metrics mapping.
func (r *Registry) Snapshot() map[string]Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Metrics, len(r.states))
	for name, s := range r.states {
		out[name] = s.Metrics()
	}
	return out
}

// IsHealthy reports true iff every registered circuit is Closed.
func (r *Registry) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.states {
		if s.State() != StateClosed {
			return false
		}
	}
	return true
}

// Reset forces the named circuit back to Closed. A no-op if name is
// unknown.
func (r *Registry) Reset(name string) {
	r.mu.RLock()
	s, ok := r.states[name]
	r.mu.RUnlock()
	if ok {
		s.Reset()
	}
}

// ResetAll forces every registered circuit back to Closed.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.states {
		s.Reset()
	}
}
