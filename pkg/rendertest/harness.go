// Package rendertest wires a renderer to the headless backend for tests:
// a root registry, a recording upstream, an error recorder and helpers to
// compare the virtual and native trees.
package rendertest

import (
	"fmt"
	"log/slog"
	"slices"
	"testing"

	nrerrors "github.com/go-drift/nativerender/pkg/errors"
	"github.com/go-drift/nativerender/pkg/native"
	"github.com/go-drift/nativerender/pkg/native/headless"
	"github.com/go-drift/nativerender/pkg/renderer"
	"github.com/go-drift/nativerender/pkg/rootregistry"
	"github.com/go-drift/nativerender/pkg/viewmanager"
)

// Harness is a renderer over the headless backend.
type Harness struct {
	t         testing.TB
	Factories *native.FactoryRegistry
	Roots     *rootregistry.Registry
	Renderer  *renderer.Renderer
	Upstream  *renderer.Recorder
	Errors    *nrerrors.Recorder
	Surfaces  map[uint32]*headless.Surface
}

// New returns a harness and installs an error recorder for the test's
// lifetime.
func New(t testing.TB, opts ...viewmanager.Option) *Harness {
	t.Helper()
	factories := headless.NewRegistry()
	logger := slog.New(slog.DiscardHandler)
	roots := rootregistry.New(factories, logger, opts...)
	up := &renderer.Recorder{}
	return &Harness{
		t:         t,
		Factories: factories,
		Roots:     roots,
		Renderer:  renderer.New(roots, up, renderer.WithLogger(logger)),
		Upstream:  up,
		Errors:    nrerrors.InstallRecorder(t.Cleanup),
		Surfaces:  make(map[uint32]*headless.Surface),
	}
}

// CreateRoot creates rootID and attaches it to a fresh headless surface.
func (h *Harness) CreateRoot(rootID uint32) *headless.Surface {
	h.t.Helper()
	if err := h.Renderer.CreateRoot(rootID); err != nil {
		h.t.Fatalf("CreateRoot(%d): %v", rootID, err)
	}
	s := headless.NewSurface(fmt.Sprintf("root-%d", rootID))
	if err := h.Renderer.RegisterNativeSurfaceHandle(s, rootID); err != nil {
		h.t.Fatalf("RegisterNativeSurfaceHandle(%d): %v", rootID, err)
	}
	h.Surfaces[rootID] = s
	return s
}

// Context returns the live context for rootID or fails the test.
func (h *Harness) Context(rootID uint32) *rootregistry.RootContext {
	h.t.Helper()
	ctx, ok := h.Roots.Root(rootID)
	if !ok {
		h.t.Fatalf("root %d not registered", rootID)
	}
	return ctx
}

// Node returns the native node for tag, or nil.
func (h *Harness) Node(rootID, tag uint32) native.Node {
	vm := h.Roots.ViewManager(rootID)
	if vm == nil {
		return nil
	}
	n, _ := vm.Node(tag)
	return n
}

// Headless returns the generic headless node for tag or fails the test.
func (h *Harness) Headless(rootID, tag uint32) *headless.Node {
	h.t.Helper()
	switch n := h.Node(rootID, tag).(type) {
	case *headless.Node:
		return n
	case *headless.ListNode:
		return &n.Node
	case nil:
		h.t.Fatalf("no native node %d in root %d", tag, rootID)
	default:
		h.t.Fatalf("node %d is %T", tag, n)
	}
	return nil
}

// Snapshot captures rootID's trees.
func (h *Harness) Snapshot(rootID uint32) *Snapshot {
	h.t.Helper()
	return CaptureSnapshot(h.Context(rootID))
}

// AssertConsistent fails the test when the native structure of rootID
// differs from the virtual structure for nodes that have a native
// counterpart, or when the headless widgets disagree with the view
// manager's bookkeeping.
func (h *Harness) AssertConsistent(rootID uint32) {
	h.t.Helper()
	if problems := CheckConsistent(h.Context(rootID)); len(problems) > 0 {
		for _, p := range problems {
			h.t.Errorf("root %d: %s", rootID, p)
		}
	}
}

// CheckConsistent returns every structural disagreement between ctx's
// virtual tree, the view manager's bookkeeping and the headless widgets.
func CheckConsistent(ctx *rootregistry.RootContext) []string {
	var problems []string
	var walk func(tag uint32)
	walk = func(tag uint32) {
		vn, ok := ctx.Nodes.GetVirtualNode(tag)
		if !ok {
			return
		}
		var virtual []uint32
		for _, c := range vn.Children() {
			if _, ok := ctx.Views.Node(c); ok {
				virtual = append(virtual, c)
			}
		}
		nativeKids := ctx.Views.Children(tag)
		if !slices.Equal(virtual, nativeKids) {
			problems = append(problems, fmt.Sprintf("tag %d: virtual children %v, native children %v", tag, virtual, nativeKids))
		}
		if n, ok := ctx.Views.Node(tag); ok {
			if hn, ok := n.(interface{ Children() []native.Node }); ok {
				var widgets []uint32
				for _, c := range hn.Children() {
					widgets = append(widgets, c.Tag())
				}
				if !slices.Equal(widgets, nativeKids) {
					problems = append(problems, fmt.Sprintf("tag %d: widget children %v, bookkeeping %v", tag, widgets, nativeKids))
				}
			}
		}
		for i, c := range vn.Children() {
			cn, _ := ctx.Nodes.GetVirtualNode(c)
			if cn.Index != i || cn.ParentTag != tag {
				problems = append(problems, fmt.Sprintf("tag %d: index %d parent %d, want index %d parent %d", c, cn.Index, cn.ParentTag, i, tag))
			}
			walk(c)
		}
	}
	walk(ctx.ID)
	return problems
}
