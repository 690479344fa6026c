package project

import (
	"slices"
	"sync"
)

// Registry maps project identity (the root path) to its Manager.
// Managers are created lazily on first lookup and retained for the
// process lifetime; nothing ever removes one.
type Registry struct {
	mu       sync.Mutex
	managers map[string]*Manager
	factory  func(root string) *Manager
}

// NewRegistry returns a registry that builds missing managers with
// factory.
func NewRegistry(factory func(root string) *Manager) *Registry {
	return &Registry{
		managers: make(map[string]*Manager),
		factory:  factory,
	}
}

// Get returns the manager for root, creating it on first reference.
func (r *Registry) Get(root string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.managers[root]
	if !ok {
		m = r.factory(root)
		r.managers[root] = m
	}
	return m
}

// Lookup returns the manager for root without creating one.
func (r *Registry) Lookup(root string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.managers[root]
	return m, ok
}

// Roots returns the roots of all managers created so far, sorted.
func (r *Registry) Roots() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	roots := make([]string, 0, len(r.managers))
	for root := range r.managers {
		roots = append(roots, root)
	}
	slices.Sort(roots)
	return roots
}
