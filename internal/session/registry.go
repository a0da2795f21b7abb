package session

import "sync"

// Registry tracks the single open session so captures can be routed to it.
type Registry struct {
	mu      sync.Mutex
	current *Controller
}

// Open returns the current controller, creating one with newFn if none is
// open. created reports whether newFn ran.
func (r *Registry) Open(newFn func() *Controller) (c *Controller, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && !r.current.Closed() {
		return r.current, false
	}
	r.current = newFn()
	return r.current, true
}

func (r *Registry) Current() (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.Closed() {
		return nil, false
	}
	return r.current, true
}

// Clear closes and forgets the current controller.
func (r *Registry) Clear() {
	r.mu.Lock()
	c := r.current
	r.current = nil
	r.mu.Unlock()
	if c != nil {
		c.Close()
	}
}
