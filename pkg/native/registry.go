package native

import (
	"fmt"
	"slices"
	"sync"
)

// Factory creates native nodes of one view kind.
type Factory interface {
	// ViewName returns the view kind this factory creates.
	ViewName() string

	// Create creates a detached node for tag.
	Create(tag uint32) (Node, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc struct {
	Name string
	New  func(tag uint32) (Node, error)
}

// ViewName returns f.Name.
func (f FactoryFunc) ViewName() string { return f.Name }

// Create calls f.New.
func (f FactoryFunc) Create(tag uint32) (Node, error) { return f.New(tag) }

// FactoryRegistry maps view kinds to factories. It is safe for concurrent
// use; backends usually register at startup and the view manager reads
// from the UI context.
type FactoryRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	fallback  Factory
}

// NewFactoryRegistry returns an empty registry.
func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for its view kind.
func (r *FactoryRegistry) Register(f Factory) {
	r.mu.Lock()
	r.factories[f.ViewName()] = f
	r.mu.Unlock()
}

// SetFallback sets the factory used for unregistered view kinds. A nil
// fallback makes unknown kinds fail with ErrViewTypeNotFound.
func (r *FactoryRegistry) SetFallback(f Factory) {
	r.mu.Lock()
	r.fallback = f
	r.mu.Unlock()
}

// Has reports whether a factory is registered for viewName.
func (r *FactoryRegistry) Has(viewName string) bool {
	r.mu.RLock()
	_, ok := r.factories[viewName]
	r.mu.RUnlock()
	return ok
}

// ViewNames returns the registered view kinds in sorted order.
func (r *FactoryRegistry) ViewNames() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Create creates a node of viewName for tag.
func (r *FactoryRegistry) Create(viewName string, tag uint32) (Node, error) {
	r.mu.RLock()
	f, ok := r.factories[viewName]
	if !ok {
		f = r.fallback
	}
	r.mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrViewTypeNotFound, viewName)
	}
	node, err := f.Create(tag)
	if err != nil {
		return nil, fmt.Errorf("create %s tag %d: %w", viewName, tag, err)
	}
	return node, nil
}
