package health

import (
	"strings"
	"sync"
)

// RegisteredIndicator pairs an indicator with its registration name.
type RegisteredIndicator struct {
	Name      string
	Indicator Indicator
}

// Registry is a thread-safe mapping from name to Indicator.
//
// All operations are guarded by one mutex, so Register, Unregister, Get and
// Snapshot are linearizable with respect to each other: a snapshot never
// observes a registration half-applied. Snapshot returns a defensive copy
// in registration order; callers may iterate it while other goroutines
// mutate the registry.
type Registry struct {
	mu         sync.RWMutex
	indicators map[string]Indicator
	order      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		indicators: make(map[string]Indicator),
	}
}

// Register adds an indicator under the given name. It returns a
// *DuplicateNameError when the name is already taken, leaving the existing
// registration intact.
func (r *Registry) Register(name string, indicator Indicator) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if indicator == nil {
		return ErrNilIndicator
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; exists {
		return &DuplicateNameError{Name: name}
	}
	r.indicators[name] = indicator
	r.order = append(r.order, name)
	return nil
}

// Unregister removes the named indicator and returns it, or nil when the
// name was not registered. Unregister never fails.
func (r *Registry) Unregister(name string) Indicator {
	r.mu.Lock()
	defer r.mu.Unlock()

	indicator, exists := r.indicators[name]
	if !exists {
		return nil
	}
	delete(r.indicators, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return indicator
}

// Get returns the named indicator, or nil when not registered.
func (r *Registry) Get(name string) Indicator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indicators[name]
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered indicators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Snapshot returns a copy of the current registrations in registration
// order. Mutating the returned slice has no effect on the registry.
func (r *Registry) Snapshot() []RegisteredIndicator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]RegisteredIndicator, 0, len(r.order))
	for _, name := range r.order {
		snapshot = append(snapshot, RegisteredIndicator{
			Name:      name,
			Indicator: r.indicators[name],
		})
	}
	return snapshot
}
