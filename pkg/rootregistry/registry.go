// Package rootregistry maps root ids to their rendering state.
//
// The registry exclusively owns every RootContext. Callers look a root up
// fresh for each operation and never keep the context past it, so a root
// torn down mid-flight simply stops being found.
package rootregistry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/go-drift/nativerender/pkg/native"
	"github.com/go-drift/nativerender/pkg/viewmanager"
	"github.com/go-drift/nativerender/pkg/vnode"
)

// ErrRootExists is returned when creating a root id that is already live.
var ErrRootExists = errors.New("root already exists")

// RootContext is one root's rendering state.
type RootContext struct {
	ID    uint32
	Nodes *vnode.Store
	Views *viewmanager.ViewManager
}

// Registry maps root ids to contexts. The map is guarded for concurrent
// readers; the contexts themselves belong to the UI context.
type Registry struct {
	mu        sync.RWMutex
	roots     map[uint32]*RootContext
	factories *native.FactoryRegistry
	options   []viewmanager.Option
	logger    *slog.Logger
}

// New returns an empty registry. Roots it creates build their native nodes
// from factories and their view managers with opts.
func New(factories *native.FactoryRegistry, logger *slog.Logger, opts ...viewmanager.Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		roots:     make(map[uint32]*RootContext),
		factories: factories,
		options:   append([]viewmanager.Option{viewmanager.WithLogger(logger)}, opts...),
		logger:    logger,
	}
}

// CreateRoot creates the context for id. extra options apply after the
// registry's own.
func (r *Registry) CreateRoot(id uint32, extra ...viewmanager.Option) (*RootContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.roots[id]; exists {
		return nil, fmt.Errorf("%w: %d", ErrRootExists, id)
	}
	vm, err := viewmanager.New(id, r.factories, append(slices.Clone(r.options), extra...)...)
	if err != nil {
		return nil, err
	}
	ctx := &RootContext{ID: id, Nodes: vnode.NewStore(id), Views: vm}
	r.roots[id] = ctx
	r.logger.Debug("root created", "root", id)
	return ctx, nil
}

// DestroyRoot removes id from the registry and tears down its native tree.
// It reports whether the root existed.
func (r *Registry) DestroyRoot(id uint32) bool {
	r.mu.Lock()
	ctx, ok := r.roots[id]
	delete(r.roots, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	ctx.Views.Destroy()
	r.logger.Debug("root destroyed", "root", id)
	return true
}

// Root returns the context for id.
func (r *Registry) Root(id uint32) (*RootContext, bool) {
	r.mu.RLock()
	ctx, ok := r.roots[id]
	r.mu.RUnlock()
	return ctx, ok
}

// ViewManager returns the view manager for id, or nil.
func (r *Registry) ViewManager(id uint32) *viewmanager.ViewManager {
	if ctx, ok := r.Root(id); ok {
		return ctx.Views
	}
	return nil
}

// VirtualNodeStore returns the virtual node store for id, or nil.
func (r *Registry) VirtualNodeStore(id uint32) *vnode.Store {
	if ctx, ok := r.Root(id); ok {
		return ctx.Nodes
	}
	return nil
}

// IDs returns the live root ids in ascending order.
func (r *Registry) IDs() []uint32 {
	r.mu.RLock()
	ids := make([]uint32, 0, len(r.roots))
	for id := range r.roots {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Len returns the number of live roots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roots)
}
