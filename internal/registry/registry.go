// Package registry owns the in-memory worker runtimes. It is the single
// source of truth for live worker state; the persisted status store only
// trails what happens here.
package registry

import "sync"

// Registry maps each worker name to exactly one Runtime.
type Registry struct {
	mu       sync.RWMutex
	runtimes map[string]*Runtime
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runtimes: make(map[string]*Runtime)}
}

// GetOrCreate returns the runtime for name, constructing a fresh stopped one
// on first reference. Never fails; runtimes are never destroyed.
func (g *Registry) GetOrCreate(name string) *Runtime {
	g.mu.RLock()
	rt, ok := g.runtimes[name]
	g.mu.RUnlock()
	if ok {
		return rt
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if rt, ok := g.runtimes[name]; ok {
		return rt
	}
	rt = newRuntime(name)
	g.runtimes[name] = rt
	return rt
}

// All returns every runtime created so far, in no particular order.
func (g *Registry) All() []*Runtime {
	g.mu.RLock()
	defer g.mu.RUnlock()
	result := make([]*Runtime, 0, len(g.runtimes))
	for _, rt := range g.runtimes {
		result = append(result, rt)
	}
	return result
}

// Len returns the number of runtimes created so far.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.runtimes)
}
