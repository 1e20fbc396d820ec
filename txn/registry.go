package txn

import (
	"fmt"
	"sync"
)

// Registry holds every context of a Setup by id. Contexts refer to their
// parent by id and resolve it here.
type Registry struct {
	mu   sync.Mutex
	byID map[string]*Context
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Context)}
}

// Get returns the context registered under id.
func (r *Registry) Get(id string) (*Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	return c, ok
}

// Len returns the number of registered contexts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Remove forgets id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

func (r *Registry) add(c *Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byID[c.id]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateID, c.id)
	}
	r.byID[c.id] = c
	return nil
}

// rehome moves c to newID. Children holding c's old id as their parent
// are updated too.
func (r *Registry) rehome(c *Context, newID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	oldID := c.id
	if oldID == newID {
		return nil
	}
	if other, taken := r.byID[newID]; taken && other != c {
		return fmt.Errorf("%w: %s", ErrDuplicateID, newID)
	}
	delete(r.byID, oldID)
	c.id = newID
	r.byID[newID] = c
	for _, other := range r.byID {
		if other.parentID == oldID {
			other.parentID = newID
		}
	}
	return nil
}
