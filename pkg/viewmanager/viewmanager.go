// Package viewmanager owns one root's native widget tree. It queues
// mutations between end-of-batch signals and replays them, in order,
// against the native backend when the batch ends.
//
// A ViewManager is confined to the UI execution context and does no
// locking.
package viewmanager

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	nrerrors "github.com/go-drift/nativerender/pkg/errors"
	"github.com/go-drift/nativerender/pkg/mutation"
	"github.com/go-drift/nativerender/pkg/native"
)

// RootViewName is the view kind used to create a root's native node.
const RootViewName = "Root"

var (
	// ErrUnknownNode is reported when a mutation names a tag with no
	// native node.
	ErrUnknownNode = errors.New("no native node for tag")
	// ErrTagInUse is reported when a create reuses a live tag.
	ErrTagInUse = errors.New("tag already has a native node")
	// ErrRootImmutable is reported when a mutation tries to move or delete
	// the root node.
	ErrRootImmutable = errors.New("root node cannot be moved or deleted")
	// ErrCycle is reported when a move would place a node under itself.
	ErrCycle = errors.New("move would create a cycle")
	// ErrAlreadyAttached is returned when attaching a second surface.
	ErrAlreadyAttached = errors.New("root already attached to a surface")
)

// BatchReport summarizes one ApplyMutations call.
type BatchReport struct {
	ID        uuid.UUID
	RootID    uint32
	Seq       uint64
	Mutations int
	Applied   int
	Failed    int
	Duration  time.Duration
}

// EndBatchCallback runs once after the next batch is applied.
type EndBatchCallback func()

type endBatchEntry struct {
	id        uint64
	cb        EndBatchCallback
	cancelled bool
}

// Option configures a ViewManager.
type Option func(*ViewManager)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(vm *ViewManager) {
		if l != nil {
			vm.logger = l
		}
	}
}

// WithViewDefaults sets per-view-kind props merged under a create's
// initial props.
func WithViewDefaults(defaults map[string]mutation.Props) Option {
	return func(vm *ViewManager) {
		vm.defaults = defaults
	}
}

// WithEventHandler sets where native events go. See SetEventHandler.
func WithEventHandler(h native.EventHandler) Option {
	return func(vm *ViewManager) {
		vm.onEvent = h
	}
}

// ViewManager applies mutations for one root.
type ViewManager struct {
	rootID    uint32
	factories *native.FactoryRegistry
	logger    *slog.Logger
	defaults  map[string]mutation.Props
	onEvent   native.EventHandler

	pending  []mutation.Mutation
	deferred []func()
	seq      uint64

	root     native.Node
	surface  native.Surface
	views    map[uint32]native.Node
	parents  map[uint32]uint32
	children map[uint32][]uint32
	events   map[uint32]map[string]struct{}

	endBatch   []*endBatchEntry
	nextCallID uint64
}

// New creates the view manager for rootID and its native root node.
func New(rootID uint32, factories *native.FactoryRegistry, opts ...Option) (*ViewManager, error) {
	vm := &ViewManager{
		rootID:    rootID,
		factories: factories,
		logger:    slog.Default(),
		views:     make(map[uint32]native.Node),
		parents:   make(map[uint32]uint32),
		children:  make(map[uint32][]uint32),
		events:    make(map[uint32]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(vm)
	}
	root, err := factories.Create(RootViewName, rootID)
	if err != nil {
		return nil, fmt.Errorf("create root %d: %w", rootID, err)
	}
	vm.root = root
	vm.views[rootID] = root
	return vm, nil
}

// RootID returns the root this manager serves.
func (vm *ViewManager) RootID() uint32 { return vm.rootID }

// RootNode returns the native root node.
func (vm *ViewManager) RootNode() native.Node { return vm.root }

// SetEventHandler sets the receiver of events from registered handlers and
// event sources. Events are passed through unfiltered.
func (vm *ViewManager) SetEventHandler(h native.EventHandler) { vm.onEvent = h }

// AddMutations appends to the pending batch in call order. Nothing is
// validated here.
func (vm *ViewManager) AddMutations(ms ...mutation.Mutation) {
	vm.pending = append(vm.pending, ms...)
}

// Pending returns the number of queued mutations.
func (vm *ViewManager) Pending() int { return len(vm.pending) }

// DeferUntilApplied queues fn to run right after the next ApplyMutations
// has replayed the batch.
func (vm *ViewManager) DeferUntilApplied(fn func()) {
	vm.deferred = append(vm.deferred, fn)
}

// ApplyMutations drains the pending batch and replays it in order. A
// mutation that fails or panics is reported and the rest of the batch still
// applies. Deferred functions run afterwards.
func (vm *ViewManager) ApplyMutations() BatchReport {
	start := time.Now()
	batch := vm.pending
	vm.pending = nil
	vm.seq++

	report := BatchReport{
		ID:        newBatchID(),
		RootID:    vm.rootID,
		Seq:       vm.seq,
		Mutations: len(batch),
	}
	for _, m := range batch {
		if vm.applySafely(m) {
			report.Applied++
		} else {
			report.Failed++
		}
	}

	deferred := vm.deferred
	vm.deferred = nil
	for _, fn := range deferred {
		vm.runSafely("viewmanager.deferred", fn)
	}

	report.Duration = time.Since(start)
	vm.logger.Debug("batch applied",
		"root", vm.rootID,
		"batch", report.ID.String(),
		"seq", report.Seq,
		"mutations", report.Mutations,
		"applied", report.Applied,
		"failed", report.Failed,
		"duration", report.Duration,
	)
	return report
}

func newBatchID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// applySafely applies one mutation inside its own recover scope.
func (vm *ViewManager) applySafely(m mutation.Mutation) (ok bool) {
	op := "viewmanager.apply." + m.Kind().String()
	defer nrerrors.RecoverWithCallback(op, func(any) { ok = false })
	return vm.apply(m)
}

func (vm *ViewManager) runSafely(op string, fn func()) {
	defer nrerrors.Recover(op)
	fn()
}

func (vm *ViewManager) apply(m mutation.Mutation) bool {
	switch m.Kind() {
	case mutation.KindCreate:
		return vm.applyCreate(m)
	case mutation.KindUpdate:
		return vm.applyUpdate(m)
	case mutation.KindMove, mutation.KindMoveBatch:
		return vm.applyMoves(m.Moves())
	case mutation.KindDelete:
		ok := true
		for _, tag := range m.Tags() {
			ok = vm.applyDelete(tag) && ok
		}
		return ok
	case mutation.KindUpdateLayout:
		ok := true
		for _, l := range m.Layouts() {
			node, found := vm.views[l.Tag]
			if !found {
				vm.report("layout", nrerrors.KindUnknownNode, l.Tag, ErrUnknownNode)
				ok = false
				continue
			}
			node.SetFrame(l.Frame)
		}
		return ok
	case mutation.KindUpdateEventListener:
		ok := true
		for _, l := range m.Listeners() {
			ok = vm.applyListener(l) && ok
		}
		return ok
	}
	vm.report("apply", nrerrors.KindUnknown, 0, fmt.Errorf("unsupported mutation %s", m))
	return false
}

func (vm *ViewManager) resolveParent(tag uint32) uint32 {
	if tag == 0 {
		return vm.rootID
	}
	return tag
}

func (vm *ViewManager) applyCreate(m mutation.Mutation) bool {
	tag := m.Tag()
	if _, exists := vm.views[tag]; exists || tag == 0 {
		vm.report("create", nrerrors.KindNative, tag, ErrTagInUse)
		return false
	}
	parentTag := vm.resolveParent(m.ParentTag())
	parent, ok := vm.views[parentTag]
	if !ok {
		vm.report("create", nrerrors.KindUnknownNode, parentTag, fmt.Errorf("parent of %d: %w", tag, ErrUnknownNode))
		return false
	}
	node, err := vm.factories.Create(m.ViewName(), tag)
	if err != nil {
		vm.report("create", nrerrors.KindNative, tag, err)
		return false
	}

	props := m.Props()
	if def, ok := vm.defaults[m.ViewName()]; ok {
		props = def.Merge(props)
	}
	for _, err := range native.ApplyProps(node, props) {
		vm.report("create.props", nrerrors.KindNative, tag, err)
	}

	if err := parent.AddChild(node, m.Index()); err != nil {
		node.Destroy()
		vm.report("create.attach", nrerrors.KindNative, tag, err)
		return false
	}
	if src, ok := node.(native.EventSource); ok {
		src.SetEventSink(vm.forward)
	}
	vm.views[tag] = node
	vm.parents[tag] = parentTag
	vm.children[parentTag] = insertAt(vm.children[parentTag], tag, m.Index())
	return true
}

func (vm *ViewManager) applyUpdate(m mutation.Mutation) bool {
	tag := m.Tag()
	node, ok := vm.views[tag]
	if !ok {
		vm.report("update", nrerrors.KindUnknownNode, tag, ErrUnknownNode)
		return false
	}
	errs := native.ApplyProps(node, m.Props())
	for _, err := range errs {
		vm.report("update.props", nrerrors.KindNative, tag, err)
	}
	return len(errs) == 0
}

// applyMoves detaches every listed node, then reattaches them in list
// order. A placement that cannot be made puts the node back where it was,
// or under the root when its old parent has moved into its subtree.
func (vm *ViewManager) applyMoves(moves []mutation.Move) bool {
	type origin struct {
		parent uint32
		index  int
	}
	ok := true
	origins := make(map[uint32]origin, len(moves))
	valid := make([]mutation.Move, 0, len(moves))
	for _, mv := range moves {
		if mv.Tag == vm.rootID {
			vm.report("move", nrerrors.KindNative, mv.Tag, ErrRootImmutable)
			ok = false
			continue
		}
		if _, found := vm.views[mv.Tag]; !found {
			vm.report("move", nrerrors.KindUnknownNode, mv.Tag, ErrUnknownNode)
			ok = false
			continue
		}
		mv.ParentTag = vm.resolveParent(mv.ParentTag)
		valid = append(valid, mv)
		if _, seen := origins[mv.Tag]; !seen {
			p := vm.parents[mv.Tag]
			origins[mv.Tag] = origin{parent: p, index: slices.Index(vm.children[p], mv.Tag)}
		}
	}
	for _, mv := range valid {
		if err := vm.detach(mv.Tag); err != nil {
			vm.report("move.detach", nrerrors.KindNative, mv.Tag, err)
		}
	}
	for _, mv := range valid {
		target := mv
		if err := vm.checkTarget(mv.Tag, mv.ParentTag); err != nil {
			vm.report("move", nrerrors.KindNative, mv.Tag, err)
			ok = false
			o := origins[mv.Tag]
			target = mutation.Move{Tag: mv.Tag, ParentTag: o.parent, Index: o.index}
			if vm.checkTarget(mv.Tag, o.parent) != nil {
				target = mutation.Move{Tag: mv.Tag, ParentTag: vm.rootID, Index: -1}
			}
		}
		if err := vm.detach(target.Tag); err != nil {
			vm.report("move.detach", nrerrors.KindNative, target.Tag, err)
		}
		if err := vm.attach(target.Tag, target.ParentTag, target.Index); err != nil {
			vm.report("move.attach", nrerrors.KindNative, target.Tag, err)
			ok = false
		}
	}
	return ok
}

func (vm *ViewManager) checkTarget(tag, parentTag uint32) error {
	if _, found := vm.views[parentTag]; !found {
		return fmt.Errorf("parent %d: %w", parentTag, ErrUnknownNode)
	}
	if vm.isAncestor(tag, parentTag) {
		return fmt.Errorf("%w: %d under %d", ErrCycle, tag, parentTag)
	}
	return nil
}

func (vm *ViewManager) isAncestor(ancestor, tag uint32) bool {
	for cur := tag; ; {
		if cur == ancestor {
			return true
		}
		p, ok := vm.parents[cur]
		if !ok {
			return false
		}
		cur = p
	}
}

// detach unlinks tag from its native parent and forgets the link, so
// isAncestor does not walk through a node that is waiting to be reattached.
func (vm *ViewManager) detach(tag uint32) error {
	p, ok := vm.parents[tag]
	if !ok {
		return nil
	}
	delete(vm.parents, tag)
	i := slices.Index(vm.children[p], tag)
	if i < 0 {
		return nil
	}
	vm.children[p] = slices.Delete(vm.children[p], i, i+1)
	return vm.views[p].RemoveChild(vm.views[tag])
}

func (vm *ViewManager) attach(tag, parentTag uint32, index int) error {
	vm.parents[tag] = parentTag
	vm.children[parentTag] = insertAt(vm.children[parentTag], tag, index)
	return vm.views[parentTag].AddChild(vm.views[tag], index)
}

func (vm *ViewManager) applyDelete(tag uint32) bool {
	if tag == vm.rootID {
		vm.report("delete", nrerrors.KindNative, tag, ErrRootImmutable)
		return false
	}
	if _, ok := vm.views[tag]; !ok {
		vm.report("delete", nrerrors.KindUnknownNode, tag, ErrUnknownNode)
		return false
	}
	ok := true
	if err := vm.detach(tag); err != nil {
		vm.report("delete.detach", nrerrors.KindNative, tag, err)
		ok = false
	}
	vm.destroySubtree(tag)
	return ok
}

// destroySubtree destroys children before their parent and forgets every
// tag in the subtree.
func (vm *ViewManager) destroySubtree(tag uint32) {
	for _, c := range vm.children[tag] {
		vm.destroySubtree(c)
	}
	node := vm.views[tag]
	for name := range vm.events[tag] {
		node.UnregisterEvent(name)
	}
	vm.runSafely("viewmanager.destroy", node.Destroy)
	delete(vm.views, tag)
	delete(vm.parents, tag)
	delete(vm.children, tag)
	delete(vm.events, tag)
}

func (vm *ViewManager) applyListener(l mutation.Listener) bool {
	node, ok := vm.views[l.Tag]
	if !ok {
		vm.report("listener", nrerrors.KindUnknownNode, l.Tag, ErrUnknownNode)
		return false
	}
	name := native.NormalizeEventName(l.EventName)
	if !l.Subscribe {
		node.UnregisterEvent(name)
		if set := vm.events[l.Tag]; set != nil {
			delete(set, name)
			if len(set) == 0 {
				delete(vm.events, l.Tag)
			}
		}
		return true
	}
	if err := node.RegisterEvent(name, vm.forward); err != nil {
		vm.report("listener", nrerrors.KindNative, l.Tag, err)
		return false
	}
	set := vm.events[l.Tag]
	if set == nil {
		set = make(map[string]struct{})
		vm.events[l.Tag] = set
	}
	set[name] = struct{}{}
	return true
}

func (vm *ViewManager) forward(ev native.Event) {
	if vm.onEvent != nil {
		vm.onEvent(ev)
	}
}

// NotifyEndBatchCallbacks runs every registered callback once, in
// registration order, then clears the set. Callbacks added while
// notifying wait for the next batch.
func (vm *ViewManager) NotifyEndBatchCallbacks() {
	entries := vm.endBatch
	vm.endBatch = nil
	for _, e := range entries {
		if e.cancelled {
			continue
		}
		vm.runSafely("viewmanager.endBatchCallback", e.cb)
	}
}

// AddEndBatchCallback registers cb and returns its id. Ids start at 1 and
// are never reused for this root.
func (vm *ViewManager) AddEndBatchCallback(cb EndBatchCallback) uint64 {
	vm.nextCallID++
	vm.endBatch = append(vm.endBatch, &endBatchEntry{id: vm.nextCallID, cb: cb})
	return vm.nextCallID
}

// RemoveEndBatchCallback unregisters id. It reports whether id was
// registered.
func (vm *ViewManager) RemoveEndBatchCallback(id uint64) bool {
	i := slices.IndexFunc(vm.endBatch, func(e *endBatchEntry) bool { return e.id == id })
	if i < 0 {
		return false
	}
	vm.endBatch[i].cancelled = true
	vm.endBatch = slices.Delete(vm.endBatch, i, i+1)
	return true
}

// CheckRegisteredEvent reports whether tag has a live subscription for the
// event name. The name is normalized first.
func (vm *ViewManager) CheckRegisteredEvent(tag uint32, name string) bool {
	_, ok := vm.events[tag][native.NormalizeEventName(name)]
	return ok
}

// AttachToNativeSurface binds the root node to s.
func (vm *ViewManager) AttachToNativeSurface(s native.Surface) error {
	if vm.surface != nil {
		return ErrAlreadyAttached
	}
	if err := s.Attach(vm.root); err != nil {
		return err
	}
	vm.surface = s
	return nil
}

// Surface returns the attached surface, or nil.
func (vm *ViewManager) Surface() native.Surface { return vm.surface }

// Node returns the native node for tag.
func (vm *ViewManager) Node(tag uint32) (native.Node, bool) {
	n, ok := vm.views[tag]
	return n, ok
}

// Parent returns the parent tag of a native node.
func (vm *ViewManager) Parent(tag uint32) (uint32, bool) {
	p, ok := vm.parents[tag]
	return p, ok
}

// Children returns the child tags of a native node in order.
func (vm *ViewManager) Children(tag uint32) []uint32 {
	return slices.Clone(vm.children[tag])
}

// Len returns the number of native nodes, including the root.
func (vm *ViewManager) Len() int { return len(vm.views) }

// CallUIFunction calls a named function on the native node for tag.
func (vm *ViewManager) CallUIFunction(tag uint32, name string, params []any, reply native.Reply) error {
	node, ok := vm.views[tag]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, tag)
	}
	caller, ok := node.(native.FunctionCaller)
	if !ok {
		return fmt.Errorf("%w: %s on %s", native.ErrFunctionNotFound, name, node.ViewName())
	}
	return caller.CallUIFunction(name, params, reply)
}

// Destroy tears down the whole native tree and detaches the surface. The
// pending batch and callbacks are dropped.
func (vm *ViewManager) Destroy() {
	for _, c := range slices.Clone(vm.children[vm.rootID]) {
		_ = vm.detach(c)
		vm.destroySubtree(c)
	}
	if vm.surface != nil {
		vm.surface.Detach()
		vm.surface = nil
	}
	vm.root.Destroy()
	vm.pending = nil
	vm.deferred = nil
	vm.endBatch = nil
	clear(vm.views)
	clear(vm.parents)
	clear(vm.children)
	clear(vm.events)
}

func (vm *ViewManager) report(op string, kind nrerrors.ErrorKind, tag uint32, err error) {
	nrerrors.ReportNode("viewmanager."+op, kind, vm.rootID, tag, err)
}

func insertAt(s []uint32, tag uint32, index int) []uint32 {
	if index < 0 || index > len(s) {
		index = len(s)
	}
	return slices.Insert(s, index, tag)
}
