// Package carrier holds the carrier provider adapters and their registry.
package carrier

import (
	"fmt"
	"sync"

	"github.com/xborder/backend/internal/domain/logistics"
)

var _ logistics.ProviderRegistry = (*Registry)(nil)

// Registry manages carrier registrations by provider id
type Registry struct {
	mu        sync.RWMutex
	providers map[string]logistics.CarrierProvider
	order     []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]logistics.CarrierProvider)}
}

// Register adds p under p.ID()
func (r *Registry) Register(p logistics.CarrierProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("%w: '%s'", logistics.ErrProviderAlreadyExists, id)
	}
	r.providers[id] = p
	r.order = append(r.order, id)
	return nil
}

// Get returns the carrier registered under id
func (r *Registry) Get(id string) (logistics.CarrierProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.providers[id]
	if !exists {
		return nil, fmt.Errorf("%w: '%s'", logistics.ErrProviderNotFound, id)
	}
	return p, nil
}

// List returns every registered carrier in registration order
func (r *Registry) List() []logistics.CarrierProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]logistics.CarrierProvider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}

// Unregister removes a carrier
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[id]; !exists {
		return fmt.Errorf("%w: '%s'", logistics.ErrProviderNotFound, id)
	}
	delete(r.providers, id)
	for i, have := range r.order {
		if have == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of registered carriers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
