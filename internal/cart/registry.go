package cart

import (
	"sync"
	"time"
)

type entry struct {
	cart    *Cart
	touched time.Time
}

// Registry hands out one cart per visitor session id.
type Registry struct {
	mu    sync.RWMutex
	carts map[string]*entry
	now   func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		carts: make(map[string]*entry),
		now:   time.Now,
	}
}

// Get returns the cart of visitor, creating it on first use.
func (r *Registry) Get(visitor string) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.carts[visitor]
	if !ok {
		e = &entry{cart: New()}
		r.carts[visitor] = e
	}
	e.touched = r.now()
	return e.cart
}

// Len returns the number of live carts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carts)
}

// EvictIdle drops carts untouched for longer than ttl and returns how many went.
func (r *Registry) EvictIdle(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for visitor, e := range r.carts {
		if e.touched.Before(cutoff) {
			delete(r.carts, visitor)
			evicted++
		}
	}
	return evicted
}
