// Package renderer is the entry surface the script boundary calls. It keeps
// each root's virtual node store current, queues native-affecting
// mutations on the root's view manager, and relays events, UI function
// results and sizes back toward the script layer.
//
// All methods must run on the UI execution context. Operations naming a
// root with no live context are silent no-ops.
package renderer

import (
	"errors"
	"fmt"
	"log/slog"

	nrerrors "github.com/go-drift/nativerender/pkg/errors"
	"github.com/go-drift/nativerender/pkg/geometry"
	"github.com/go-drift/nativerender/pkg/mutation"
	"github.com/go-drift/nativerender/pkg/native"
	"github.com/go-drift/nativerender/pkg/rootregistry"
	"github.com/go-drift/nativerender/pkg/viewmanager"
)

// Renderer is the mutation dispatcher.
type Renderer struct {
	roots    *rootregistry.Registry
	upstream Upstream
	codec    native.MessageCodec
	logger   *slog.Logger

	// deferred node sizes per root, flushed after the next end of batch
	sizes map[uint32]*sizeQueue
}

type sizeQueue struct {
	order []uint32
	sizes map[uint32]geometry.Size
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithCodec sets the codec used to encode event and callback params.
func WithCodec(c native.MessageCodec) Option {
	return func(r *Renderer) {
		if c != nil {
			r.codec = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a renderer over roots. A nil upstream drops outbound calls.
func New(roots *rootregistry.Registry, upstream Upstream, opts ...Option) *Renderer {
	if upstream == nil {
		upstream = NopUpstream{}
	}
	r := &Renderer{
		roots:    roots,
		upstream: upstream,
		codec:    native.DefaultCodec,
		logger:   slog.Default(),
		sizes:    make(map[uint32]*sizeQueue),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Roots returns the root registry.
func (r *Renderer) Roots() *rootregistry.Registry { return r.roots }

// CreateRoot creates the rendering state for rootID and routes its native
// events through DispatchEvent.
func (r *Renderer) CreateRoot(rootID uint32) error {
	_, err := r.roots.CreateRoot(rootID, viewmanager.WithEventHandler(func(ev native.Event) {
		r.DispatchEvent(rootID, ev.Tag, ev.Name, ev.Params, ev.Capture, ev.Bubble, ev.Type)
	}))
	return err
}

// DestroyRoot tears down rootID. Pending mutations and deferred sizes are
// dropped.
func (r *Renderer) DestroyRoot(rootID uint32) bool {
	delete(r.sizes, rootID)
	return r.roots.DestroyRoot(rootID)
}

// RegisterNativeSurfaceHandle attaches rootID's native tree to surface.
func (r *Renderer) RegisterNativeSurfaceHandle(surface native.Surface, rootID uint32) error {
	vm := r.roots.ViewManager(rootID)
	if vm == nil {
		return nil
	}
	return vm.AttachToNativeSurface(surface)
}

// CreateNode registers a virtual node for each create mutation and queues
// it. Creates with a live tag or a missing parent are reported and dropped.
func (r *Renderer) CreateNode(rootID uint32, ms []mutation.Mutation) {
	ctx, ok := r.roots.Root(rootID)
	if !ok {
		return
	}
	accepted := make([]mutation.Mutation, 0, len(ms))
	for _, m := range ms {
		if m.Kind() != mutation.KindCreate {
			r.reportKind("createNode", rootID, m)
			continue
		}
		node, err := ctx.Nodes.CreateVirtualNode(m.Tag(), m.ParentTag(), m.Index(), m.ViewName(), m.Props())
		if err == nil {
			err = ctx.Nodes.AddVirtualNode(m.Tag(), node)
		}
		if err != nil {
			r.report("createNode", nrerrors.KindUnknownNode, rootID, m.Tag(), err)
			continue
		}
		accepted = append(accepted, m)
	}
	ctx.Views.AddMutations(accepted...)
}

// UpdateNode merges each delta into the virtual props and queues the
// update. Updates for absent virtual nodes are still queued.
func (r *Renderer) UpdateNode(rootID uint32, ms []mutation.Mutation) {
	ctx, ok := r.roots.Root(rootID)
	if !ok {
		return
	}
	accepted := make([]mutation.Mutation, 0, len(ms))
	for _, m := range ms {
		if m.Kind() != mutation.KindUpdate {
			r.reportKind("updateNode", rootID, m)
			continue
		}
		ctx.Nodes.UpdateProps(m.Tag(), m.Props())
		accepted = append(accepted, m)
	}
	ctx.Views.AddMutations(accepted...)
}

// MoveNode applies a single-node move.
func (r *Renderer) MoveNode(rootID uint32, m mutation.Mutation) {
	if m.Kind() != mutation.KindMove {
		r.reportKind("moveNode", rootID, m)
		return
	}
	r.move(rootID, "moveNode", m)
}

// MoveNode2 applies a multi-node move as one unit.
func (r *Renderer) MoveNode2(rootID uint32, m mutation.Mutation) {
	if m.Kind() != mutation.KindMoveBatch {
		r.reportKind("moveNode2", rootID, m)
		return
	}
	r.move(rootID, "moveNode2", m)
}

// move updates the virtual tree now and queues the placements it actually
// made, so the native replay reaches the same structure.
func (r *Renderer) move(rootID uint32, op string, m mutation.Mutation) {
	ctx, ok := r.roots.Root(rootID)
	if !ok {
		return
	}
	resolved, errs := ctx.Nodes.MoveVirtualNodes(m.Moves())
	for _, err := range errs {
		r.report(op, nrerrors.KindUnknownNode, rootID, 0, err)
	}
	switch {
	case len(resolved) == 0:
		return
	case m.Kind() == mutation.KindMove && len(resolved) == 1:
		mv := resolved[0]
		ctx.Views.AddMutations(mutation.MoveTo(mv.Tag, mv.ParentTag, mv.Index))
	default:
		ctx.Views.AddMutations(mutation.MoveBatch(resolved...))
	}
}

// DeleteNode removes the virtual subtrees now and queues the native
// deletes. Tags absent from the virtual tree are reported and skipped.
func (r *Renderer) DeleteNode(rootID uint32, ms []mutation.Mutation) {
	ctx, ok := r.roots.Root(rootID)
	if !ok {
		return
	}
	var tags []uint32
	for _, m := range ms {
		if m.Kind() != mutation.KindDelete {
			r.reportKind("deleteNode", rootID, m)
			continue
		}
		for _, tag := range m.Tags() {
			if ctx.Nodes.RemoveVirtualNode(tag) == nil {
				r.report("deleteNode", nrerrors.KindUnknownNode, rootID, tag, errUnknownVirtualNode)
				continue
			}
			tags = append(tags, tag)
		}
	}
	if len(tags) > 0 {
		ctx.Views.AddMutations(mutation.Delete(tags...))
	}
}

var errUnknownVirtualNode = errors.New("no virtual node for tag")

// UpdateLayout queues frame assignments.
func (r *Renderer) UpdateLayout(rootID uint32, ms []mutation.Mutation) {
	vm := r.roots.ViewManager(rootID)
	if vm == nil {
		return
	}
	for _, m := range ms {
		if m.Kind() != mutation.KindUpdateLayout {
			r.reportKind("updateLayout", rootID, m)
			continue
		}
		vm.AddMutations(m)
	}
}

// UpdateEventListener records subscriptions on the virtual nodes and
// queues the native registrations.
func (r *Renderer) UpdateEventListener(rootID uint32, ms []mutation.Mutation) {
	ctx, ok := r.roots.Root(rootID)
	if !ok {
		return
	}
	for _, m := range ms {
		if m.Kind() != mutation.KindUpdateEventListener {
			r.reportKind("updateEventListener", rootID, m)
			continue
		}
		for _, l := range m.Listeners() {
			ctx.Nodes.SetEventSubscription(l.Tag, native.NormalizeEventName(l.EventName), l.Subscribe)
		}
		ctx.Views.AddMutations(m)
	}
}

// EndBatch applies the pending batch, runs calls deferred behind it,
// notifies end-batch callbacks, then flushes deferred sizes. Callbacks
// fire even when the batch was empty.
func (r *Renderer) EndBatch(rootID uint32) (viewmanager.BatchReport, bool) {
	vm := r.roots.ViewManager(rootID)
	if vm == nil {
		return viewmanager.BatchReport{}, false
	}
	report := vm.ApplyMutations()
	vm.NotifyEndBatchCallbacks()
	r.flushSizes(rootID)
	return report, true
}

// AddEndBatchCallback registers cb on rootID. It returns 0 for an unknown
// root.
func (r *Renderer) AddEndBatchCallback(rootID uint32, cb viewmanager.EndBatchCallback) uint64 {
	vm := r.roots.ViewManager(rootID)
	if vm == nil {
		return 0
	}
	return vm.AddEndBatchCallback(cb)
}

// RemoveEndBatchCallback unregisters id on rootID.
func (r *Renderer) RemoveEndBatchCallback(rootID uint32, id uint64) {
	if vm := r.roots.ViewManager(rootID); vm != nil {
		vm.RemoveEndBatchCallback(id)
	}
}

// CheckRegisteredEvent reports whether tag on rootID subscribes to name.
func (r *Renderer) CheckRegisteredEvent(rootID, tag uint32, name string) bool {
	vm := r.roots.ViewManager(rootID)
	if vm == nil {
		return false
	}
	return vm.CheckRegisteredEvent(tag, name)
}

// CallUIFunction invokes funcName on the native node for tag. A node that
// exists only virtually, because its create is still pending, gets the
// call right after the next batch applies. A tag unknown to both trees is
// ignored. Every call that reaches a node produces exactly one DoCallback
// unless the node's function never replies.
func (r *Renderer) CallUIFunction(rootID, tag, cbID uint32, funcName string, params []any) {
	ctx, ok := r.roots.Root(rootID)
	if !ok {
		return
	}
	if _, ok := ctx.Views.Node(tag); ok {
		r.callNow(ctx.Views, rootID, tag, cbID, funcName, params)
		return
	}
	if ctx.Nodes.Has(tag) {
		vm := ctx.Views
		vm.DeferUntilApplied(func() {
			r.callNow(vm, rootID, tag, cbID, funcName, params)
		})
		return
	}
	r.logger.Debug("ui function on unknown node", "root", rootID, "tag", tag, "func", funcName)
}

func (r *Renderer) callNow(vm *viewmanager.ViewManager, rootID, tag, cbID uint32, funcName string, params []any) {
	replied := false
	reply := func(result int, payload any) {
		if replied {
			return
		}
		replied = true
		r.DoCallback(result, cbID, funcName, rootID, tag, payload)
	}
	err := vm.CallUIFunction(tag, funcName, params, reply)
	if err == nil {
		return
	}
	kind := nrerrors.KindNative
	if errors.Is(err, viewmanager.ErrUnknownNode) {
		kind = nrerrors.KindUnknownNode
	}
	r.report("callUIFunction", kind, rootID, tag, err)
	reply(native.CallbackFailed, map[string]any{"error": err.Error()})
}

// DispatchEvent forwards a native event upstream when tag subscribes to
// it. The name is normalized and params pass through the codec; params
// that fail to encode are reported and replaced with nil.
func (r *Renderer) DispatchEvent(rootID, tag uint32, name string, params any, capture, bubble bool, eventType native.EventType) {
	vm := r.roots.ViewManager(rootID)
	if vm == nil {
		return
	}
	name = native.NormalizeEventName(name)
	if !vm.CheckRegisteredEvent(tag, name) {
		return
	}
	r.upstream.DispatchEvent(Event{
		RootID:  rootID,
		Tag:     tag,
		Name:    name,
		Params:  r.encode("dispatchEvent", rootID, tag, params),
		Capture: capture,
		Bubble:  bubble,
		Type:    eventType,
	})
}

// DoCallback forwards a UI function result upstream. cbID is not checked
// against outstanding calls.
func (r *Renderer) DoCallback(result int, cbID uint32, funcName string, rootID, tag uint32, params any) {
	r.upstream.DoCallback(Callback{
		Result:     result,
		CallbackID: cbID,
		FuncName:   funcName,
		RootID:     rootID,
		Tag:        tag,
		Params:     r.encode("doCallback", rootID, tag, params),
	})
}

// OnSize records a root's measured size on its native root node and
// forwards it upstream immediately.
func (r *Renderer) OnSize(rootID uint32, width, height float64) {
	vm := r.roots.ViewManager(rootID)
	if vm == nil {
		return
	}
	vm.RootNode().SetFrame(geometry.FrameFromLTWH(0, 0, width, height))
	r.upstream.UpdateSize(SizeUpdate{
		RootID: rootID,
		Size:   geometry.Size{Width: width, Height: height},
		Sync:   true,
	})
}

// OnSize2 forwards a node's measured size. Sync sizes go upstream now;
// deferred ones are coalesced per node and flushed after the next end of
// batch.
func (r *Renderer) OnSize2(rootID, tag uint32, width, height float64, sync bool) {
	if r.roots.ViewManager(rootID) == nil {
		return
	}
	size := geometry.Size{Width: width, Height: height}
	if sync {
		r.upstream.UpdateSize(SizeUpdate{RootID: rootID, Tag: tag, Size: size, Sync: true})
		return
	}
	q := r.sizes[rootID]
	if q == nil {
		q = &sizeQueue{sizes: make(map[uint32]geometry.Size)}
		r.sizes[rootID] = q
	}
	if _, queued := q.sizes[tag]; !queued {
		q.order = append(q.order, tag)
	}
	q.sizes[tag] = size
}

func (r *Renderer) flushSizes(rootID uint32) {
	q := r.sizes[rootID]
	if q == nil {
		return
	}
	delete(r.sizes, rootID)
	for _, tag := range q.order {
		r.upstream.UpdateSize(SizeUpdate{RootID: rootID, Tag: tag, Size: q.sizes[tag]})
	}
}

func (r *Renderer) encode(op string, rootID, tag uint32, params any) any {
	out, err := native.Normalize(r.codec, params)
	if err != nil {
		r.report(op, nrerrors.KindCodec, rootID, tag, err)
		return nil
	}
	return out
}

func (r *Renderer) reportKind(op string, rootID uint32, m mutation.Mutation) {
	r.report(op, nrerrors.KindUnknown, rootID, m.Tag(), fmt.Errorf("unexpected mutation %s", m))
}

func (r *Renderer) report(op string, kind nrerrors.ErrorKind, rootID, tag uint32, err error) {
	nrerrors.ReportNode("renderer."+op, kind, rootID, tag, err)
}
