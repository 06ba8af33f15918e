package renderer_test

import (
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"

	nrerrors "github.com/go-drift/nativerender/pkg/errors"
	"github.com/go-drift/nativerender/pkg/geometry"
	"github.com/go-drift/nativerender/pkg/mutation"
	"github.com/go-drift/nativerender/pkg/native"
	"github.com/go-drift/nativerender/pkg/native/headless"
	"github.com/go-drift/nativerender/pkg/renderer"
	"github.com/go-drift/nativerender/pkg/rendertest"
)

func create(tag, parent uint32, index int, view string) mutation.Mutation {
	return mutation.Create(tag, parent, index, view, nil)
}

func listen(tag uint32, name string, on bool) []mutation.Mutation {
	return []mutation.Mutation{mutation.UpdateEventListener(mutation.Listener{Tag: tag, EventName: name, Subscribe: on})}
}

func TestScenarioNestedCreate(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(7)
	r := h.Renderer

	r.CreateNode(7, []mutation.Mutation{create(1, 0, 0, "View")})
	r.CreateNode(7, []mutation.Mutation{create(2, 1, 0, "Text")})
	report, ok := r.EndBatch(7)
	if !ok || report.Applied != 2 {
		t.Fatalf("EndBatch = %+v, %v", report, ok)
	}

	root := h.Surfaces[7].Root()
	if root == nil || root.Tag() != 7 {
		t.Fatalf("surface root = %v", root)
	}
	one := h.Headless(7, 1)
	if one.Parent().Tag() != 7 {
		t.Errorf("node 1 parent = %d", one.Parent().Tag())
	}
	kids := one.Children()
	if len(kids) != 1 || kids[0].Tag() != 2 {
		t.Errorf("node 1 children = %v", kids)
	}
	h.AssertConsistent(7)
}

func TestCreateDeleteSameBatch(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(7)
	r := h.Renderer

	r.CreateNode(7, []mutation.Mutation{create(1, 0, 0, "View")})
	r.DeleteNode(7, []mutation.Mutation{mutation.Delete(1)})
	r.EndBatch(7)

	if h.Node(7, 1) != nil {
		t.Error("native node 1 exists")
	}
	if h.Context(7).Nodes.Has(1) {
		t.Error("virtual node 1 exists")
	}
	if len(h.Errors.Errors()) != 0 {
		t.Errorf("unexpected reports: %v", h.Errors.Errors())
	}
	h.AssertConsistent(7)
}

func TestEmptyEndBatchFiresCallbacks(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer

	var order []int
	for i := 1; i <= 3; i++ {
		r.AddEndBatchCallback(1, func() { order = append(order, i) })
	}
	report, _ := r.EndBatch(1)
	if report.Mutations != 0 {
		t.Errorf("batch not empty: %+v", report)
	}
	r.EndBatch(1)
	if !reflect.DeepEqual(order, []int{1, 2, 3}) {
		t.Errorf("order = %v, want [1 2 3] once", order)
	}
}

func TestRemovedCallbackDoesNotFire(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	fired := false
	id := h.Renderer.AddEndBatchCallback(1, func() { fired = true })
	h.Renderer.RemoveEndBatchCallback(1, id)
	h.Renderer.EndBatch(1)
	if fired {
		t.Error("removed callback fired")
	}
}

func TestAbsentRootIsSilent(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer
	r.CreateNode(1, []mutation.Mutation{create(5, 0, 0, "View")})
	r.EndBatch(1)
	before := h.Snapshot(1)

	r.CreateNode(99, []mutation.Mutation{create(5, 0, 0, "View")})
	r.UpdateNode(99, []mutation.Mutation{mutation.Update(5, mutation.Props{"a": 1})})
	r.MoveNode(99, mutation.MoveTo(5, 0, 0))
	r.MoveNode2(99, mutation.MoveBatch(mutation.Move{Tag: 5}))
	r.DeleteNode(99, []mutation.Mutation{mutation.Delete(5)})
	r.UpdateLayout(99, []mutation.Mutation{mutation.UpdateLayout(mutation.Layout{Tag: 5})})
	r.UpdateEventListener(99, listen(5, "click", true))
	r.CallUIFunction(99, 5, 1, "measureInWindow", nil)
	r.DispatchEvent(99, 5, "click", nil, false, true, native.EventTypeNormal)
	r.OnSize(99, 10, 10)
	r.OnSize2(99, 5, 10, 10, false)
	if _, ok := r.EndBatch(99); ok {
		t.Error("EndBatch on unknown root reported ok")
	}
	if id := r.AddEndBatchCallback(99, func() {}); id != 0 {
		t.Errorf("AddEndBatchCallback = %d, want 0", id)
	}
	r.RemoveEndBatchCallback(99, 1)
	if r.CheckRegisteredEvent(99, 5, "click") {
		t.Error("CheckRegisteredEvent on unknown root = true")
	}
	if err := r.RegisterNativeSurfaceHandle(headless.NewSurface("x"), 99); err != nil {
		t.Errorf("RegisterNativeSurfaceHandle = %v", err)
	}
	if r.DestroyRoot(99) {
		t.Error("DestroyRoot(99) = true")
	}

	if diff := h.Snapshot(1).Diff(before); diff != "" {
		t.Errorf("root 1 changed:\n%s", diff)
	}
	if n := len(h.Errors.Errors()) + len(h.Errors.Panics()); n != 0 {
		t.Errorf("%d reports for an unknown root", n)
	}
	if len(h.Upstream.Events())+len(h.Upstream.Callbacks())+len(h.Upstream.Sizes()) != 0 {
		t.Error("unknown root produced upstream traffic")
	}
}

func TestOrderingSameTag(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer
	r.CreateNode(1, []mutation.Mutation{mutation.Create(2, 0, 0, "Text", mutation.Props{"text": "a"})})
	r.UpdateNode(1, []mutation.Mutation{mutation.Update(2, mutation.Props{"text": "b"})})
	r.UpdateNode(1, []mutation.Mutation{mutation.Update(2, mutation.Props{"text": "c"})})
	r.EndBatch(1)

	if v, _ := h.Headless(1, 2).GetAttribute("text"); v != "c" {
		t.Errorf("native text = %v", v)
	}
	vn, _ := h.Context(1).Nodes.GetVirtualNode(2)
	if vn.Props["text"] != "c" {
		t.Errorf("virtual text = %v", vn.Props["text"])
	}
}

func TestUpdateMergesVirtualProps(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer
	r.CreateNode(1, []mutation.Mutation{mutation.Create(2, 0, 0, "View", mutation.Props{
		"style": map[string]any{"color": "red", "width": 10},
	})})
	r.UpdateNode(1, []mutation.Mutation{mutation.Update(2, mutation.Props{
		"style": map[string]any{"color": "blue"},
	})})
	r.EndBatch(1)

	vn, _ := h.Context(1).Nodes.GetVirtualNode(2)
	style := vn.Props["style"].(map[string]any)
	if style["color"] != "blue" || style["width"] != 10 {
		t.Errorf("virtual style = %v", style)
	}
	n := h.Headless(1, 2)
	if v, _ := n.GetAttribute("color"); v != "blue" {
		t.Errorf("native color = %v", v)
	}
	if v, _ := n.GetAttribute("width"); v != 10 {
		t.Errorf("native width = %v", v)
	}
}

func TestUpdateForAbsentNodeStillForwarded(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	h.Renderer.UpdateNode(1, []mutation.Mutation{mutation.Update(42, mutation.Props{"a": 1})})
	if got := h.Context(1).Views.Pending(); got != 1 {
		t.Fatalf("pending = %d, want 1", got)
	}
	h.Renderer.EndBatch(1)
	if len(h.Errors.ErrorsOfKind(nrerrors.KindUnknownNode)) != 1 {
		t.Errorf("errors = %v", h.Errors.Errors())
	}
}

func TestDuplicateCreateDropped(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer
	r.CreateNode(1, []mutation.Mutation{
		mutation.Create(2, 0, 0, "Text", mutation.Props{"text": "first"}),
		mutation.Create(2, 0, 0, "Text", mutation.Props{"text": "second"}),
		create(3, 77, 0, "View"),
	})
	report, _ := r.EndBatch(1)
	if report.Mutations != 1 {
		t.Errorf("queued %d mutations, want 1", report.Mutations)
	}
	if v, _ := h.Headless(1, 2).GetAttribute("text"); v != "first" {
		t.Errorf("text = %v", v)
	}
	if len(h.Errors.ErrorsOfKind(nrerrors.KindUnknownNode)) != 2 {
		t.Errorf("errors = %v", h.Errors.Errors())
	}
	h.AssertConsistent(1)
}

func TestMoveBatchAtomic(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer
	r.CreateNode(1, []mutation.Mutation{
		create(10, 0, -1, "View"),
		create(11, 0, -1, "View"),
		create(12, 0, -1, "View"),
	})
	r.EndBatch(1)

	// A under B while B moves under C.
	r.MoveNode2(1, mutation.MoveBatch(
		mutation.Move{Tag: 10, ParentTag: 11, Index: 0},
		mutation.Move{Tag: 11, ParentTag: 12, Index: 0},
	))
	r.EndBatch(1)
	h.AssertConsistent(1)
	if p, _ := h.Context(1).Views.Parent(10); p != 11 {
		t.Errorf("parent of 10 = %d", p)
	}

	// 12 under its own descendant falls back to its old place in both trees.
	r.MoveNode2(1, mutation.MoveBatch(
		mutation.Move{Tag: 12, ParentTag: 10, Index: 0},
	))
	r.EndBatch(1)
	h.AssertConsistent(1)
	if len(h.Errors.Errors()) == 0 {
		t.Error("cycle not reported")
	}
}

func TestMoveBatchSwapsParentAndChild(t *testing.T) {
	tests := []struct {
		name  string
		moves []mutation.Move
	}{
		{name: "child first", moves: []mutation.Move{{Tag: 10, ParentTag: 11, Index: 0}, {Tag: 11, ParentTag: 0, Index: 0}}},
		{name: "parent first", moves: []mutation.Move{{Tag: 11, ParentTag: 0, Index: 0}, {Tag: 10, ParentTag: 11, Index: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := rendertest.New(t)
			h.CreateRoot(1)
			r := h.Renderer
			r.CreateNode(1, []mutation.Mutation{
				create(10, 0, 0, "View"),
				create(11, 10, 0, "View"),
			})
			r.EndBatch(1)

			r.MoveNode2(1, mutation.MoveBatch(tt.moves...))
			r.EndBatch(1)

			if errs := h.Errors.Errors(); len(errs) != 0 {
				t.Fatalf("errors = %v", errs)
			}
			ctx := h.Context(1)
			if p, _ := ctx.Views.Parent(10); p != 11 {
				t.Errorf("native parent of 10 = %d, want 11", p)
			}
			if p, _ := ctx.Views.Parent(11); p != 1 {
				t.Errorf("native parent of 11 = %d, want 1", p)
			}
			if n, _ := ctx.Nodes.GetVirtualNode(10); n.ParentTag != 11 {
				t.Errorf("virtual parent of 10 = %d, want 11", n.ParentTag)
			}
			h.AssertConsistent(1)
		})
	}
}

func TestMoveNode2FromConvention(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer
	r.CreateNode(1, []mutation.Mutation{
		create(2, 0, -1, "View"),
		create(3, 0, -1, "View"),
		create(20, 2, -1, "Text"),
		create(21, 2, -1, "Text"),
		create(30, 3, -1, "Text"),
	})
	r.EndBatch(1)

	r.MoveNode2(1, mutation.MoveBatchFrom([]uint32{20, 21}, 3, 2, 0))
	r.EndBatch(1)
	if got := h.Context(1).Views.Children(3); !slices.Equal(got, []uint32{20, 21, 30}) {
		t.Errorf("children of 3 = %v", got)
	}
	h.AssertConsistent(1)
}

func TestEventFiltering(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer
	r.CreateNode(1, []mutation.Mutation{create(2, 0, 0, "View")})
	r.EndBatch(1)

	r.DispatchEvent(1, 2, "click", nil, false, true, native.EventTypeGesture)
	if len(h.Upstream.Events()) != 0 {
		t.Fatal("unsubscribed event delivered")
	}

	r.UpdateEventListener(1, listen(2, "onClick", true))
	r.EndBatch(1)
	h.Headless(1, 2).Fire("click", map[string]any{"x": 1})
	events := h.Upstream.Events()
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	if ev := events[0]; ev.Name != "click" || ev.Tag != 2 || ev.RootID != 1 {
		t.Errorf("event = %+v", ev)
	}
	if p := events[0].Params.(map[string]any); p["x"] != 1.0 {
		t.Errorf("params not normalized through the codec: %#v", p)
	}

	r.UpdateEventListener(1, listen(2, "click", false))
	r.EndBatch(1)
	h.Upstream.Reset()
	r.DispatchEvent(1, 2, "onClick", nil, false, true, native.EventTypeGesture)
	if len(h.Upstream.Events()) != 0 {
		t.Error("event delivered after unsubscribe")
	}
	vn, _ := h.Context(1).Nodes.GetVirtualNode(2)
	if vn.HasEvent("click") {
		t.Error("virtual node still subscribed")
	}
}

func TestEventParamsEncodeFailure(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer
	r.CreateNode(1, []mutation.Mutation{create(2, 0, 0, "View")})
	r.UpdateEventListener(1, listen(2, "change", true))
	r.EndBatch(1)

	r.DispatchEvent(1, 2, "change", make(chan int), false, false, native.EventTypeNormal)
	events := h.Upstream.Events()
	if len(events) != 1 || events[0].Params != nil {
		t.Errorf("events = %+v", events)
	}
	if len(h.Errors.ErrorsOfKind(nrerrors.KindCodec)) != 1 {
		t.Errorf("errors = %v", h.Errors.Errors())
	}
}

func TestUnmatchedCallbackForwarded(t *testing.T) {
	h := rendertest.New(t)
	h.Renderer.DoCallback(native.CallbackSuccess, 12345, "whatever", 3, 4, "payload")
	h.Renderer.DoCallback(native.CallbackSuccess, 12345, "whatever", 3, 4, "payload")
	cbs := h.Upstream.Callbacks()
	if len(cbs) != 2 || cbs[0].CallbackID != 12345 || cbs[0].Params != "payload" {
		t.Errorf("callbacks = %+v", cbs)
	}
}

func TestCallUIFunction(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer
	r.CreateNode(1, []mutation.Mutation{create(2, 0, 0, "View")})
	r.UpdateLayout(1, []mutation.Mutation{mutation.UpdateLayout(mutation.Layout{Tag: 2, Frame: geometry.FrameFromLTWH(4, 5, 6, 7)})})
	r.EndBatch(1)

	r.CallUIFunction(1, 2, 100, "measureInWindow", nil)
	r.CallUIFunction(1, 2, 101, "noSuchFunction", nil)
	r.CallUIFunction(1, 999, 102, "measureInWindow", nil)

	cbs := h.Upstream.Callbacks()
	if len(cbs) != 2 {
		t.Fatalf("callbacks = %+v", cbs)
	}
	ok, failed := cbs[0], cbs[1]
	if ok.CallbackID != 100 || ok.Result != native.CallbackSuccess || ok.FuncName != "measureInWindow" {
		t.Errorf("success callback = %+v", ok)
	}
	if m := ok.Params.(map[string]any); m["x"] != 4.0 || m["height"] != 7.0 {
		t.Errorf("measure params = %v", m)
	}
	if failed.CallbackID != 101 || failed.Result != native.CallbackFailed {
		t.Errorf("failed callback = %+v", failed)
	}
}

func TestCallUIFunctionDeferredUntilApplied(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer
	r.CreateNode(1, []mutation.Mutation{create(2, 0, 0, "View")})
	r.CallUIFunction(1, 2, 7, "getBoundingClientRect", nil)
	if len(h.Upstream.Callbacks()) != 0 {
		t.Fatal("call ran before the node existed")
	}

	var afterCallbacks bool
	r.AddEndBatchCallback(1, func() { afterCallbacks = len(h.Upstream.Callbacks()) == 1 })
	r.EndBatch(1)
	if !afterCallbacks {
		t.Error("deferred call did not run before end-batch callbacks")
	}
	if cbs := h.Upstream.Callbacks(); len(cbs) != 1 || cbs[0].CallbackID != 7 {
		t.Errorf("callbacks = %+v", cbs)
	}
}

func TestListScrollEventsFiltered(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer
	r.CreateNode(1, []mutation.Mutation{create(2, 0, 0, "ListView")})
	var items []mutation.Mutation
	var frames []mutation.Layout
	for i := range 4 {
		tag := uint32(10 + i)
		items = append(items, create(tag, 2, -1, "ListViewItem"))
		frames = append(frames, mutation.Layout{Tag: tag, Frame: geometry.FrameFromLTWH(0, float64(i*100), 100, 100)})
	}
	frames = append(frames, mutation.Layout{Tag: 2, Frame: geometry.FrameFromLTWH(0, 0, 100, 200)})
	r.CreateNode(1, items)
	r.UpdateLayout(1, []mutation.Mutation{mutation.UpdateLayout(frames...)})
	r.UpdateEventListener(1, listen(2, "onScroll", true))
	r.UpdateEventListener(1, listen(2, "onReachEnd", true))
	r.EndBatch(1)

	r.CallUIFunction(1, 2, 1, "scrollToContentOffset", []any{0, 500, true})
	var names []string
	for _, ev := range h.Upstream.Events() {
		names = append(names, ev.Name)
	}
	if !slices.Equal(names, []string{"scroll", "reachend"}) {
		t.Errorf("delivered = %v", names)
	}
}

func TestOnSize(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer
	r.OnSize(1, 320, 480)
	if f := h.Context(1).Views.RootNode().Frame(); f.Width != 320 || f.Height != 480 {
		t.Errorf("root frame = %+v", f)
	}

	r.OnSize2(1, 5, 1, 1, false)
	r.OnSize2(1, 6, 2, 2, false)
	r.OnSize2(1, 5, 3, 3, false)
	r.OnSize2(1, 8, 9, 9, true)
	sizes := h.Upstream.Sizes()
	if len(sizes) != 2 || sizes[1].Tag != 8 || !sizes[1].Sync {
		t.Fatalf("sizes before end of batch = %+v", sizes)
	}

	var callbackSaw int
	r.AddEndBatchCallback(1, func() { callbackSaw = len(h.Upstream.Sizes()) })
	r.EndBatch(1)
	sizes = h.Upstream.Sizes()
	if callbackSaw != 2 {
		t.Errorf("deferred sizes flushed before callbacks (saw %d)", callbackSaw)
	}
	want := []renderer.SizeUpdate{
		{RootID: 1, Tag: 5, Size: geometry.Size{Width: 3, Height: 3}},
		{RootID: 1, Tag: 6, Size: geometry.Size{Width: 2, Height: 2}},
	}
	if !reflect.DeepEqual(sizes[2:], want) {
		t.Errorf("flushed = %+v, want %+v", sizes[2:], want)
	}
}

func TestDestroyRoot(t *testing.T) {
	h := rendertest.New(t)
	s := h.CreateRoot(1)
	h.Renderer.CreateNode(1, []mutation.Mutation{create(2, 0, 0, "View")})
	h.Renderer.EndBatch(1)
	n := h.Headless(1, 2)

	if !h.Renderer.DestroyRoot(1) {
		t.Fatal("DestroyRoot = false")
	}
	if !n.Destroyed() || s.Root() != nil {
		t.Error("native tree not torn down")
	}
	h.Renderer.CreateNode(1, []mutation.Mutation{create(3, 0, 0, "View")})
	if _, ok := h.Roots.Root(1); ok {
		t.Error("operation recreated a destroyed root")
	}
}

func TestReplay(t *testing.T) {
	h := rendertest.New(t)
	script, err := mutation.ParseScript([]byte(`
steps:
  - {op: createRoot, root: 7}
  - op: create
    root: 7
    nodes:
      - {tag: 1, parent: 0, index: 0, view: View}
      - {tag: 2, parent: 1, index: 0, view: Text, props: {text: hello}}
      - {tag: 3, parent: 1, index: 1, view: Text}
  - op: listen
    root: 7
    nodes:
      - {tag: 2, event: onClick, subscribe: true}
  - {op: endBatch, root: 7}
  - op: moveBatch
    root: 7
    nodes:
      - {tag: 3, parent: 1, index: 0}
  - {op: delete, root: 7, tags: [2]}
  - {op: endBatch, root: 7}
  - {op: callback, root: 7, node: 3, callbackId: 9, func: focus}
`))
	if err != nil {
		t.Fatal(err)
	}
	surfaces := map[uint32]*headless.Surface{}
	err = h.Renderer.Replay(script, func(root uint32) native.Surface {
		s := headless.NewSurface("replay")
		surfaces[root] = s
		return s
	})
	if err != nil {
		t.Fatal(err)
	}
	if surfaces[7].Root() == nil {
		t.Error("root not attached")
	}
	if got := h.Context(7).Views.Children(1); !slices.Equal(got, []uint32{3}) {
		t.Errorf("children of 1 = %v", got)
	}
	if cbs := h.Upstream.Callbacks(); len(cbs) != 1 || cbs[0].CallbackID != 9 {
		t.Errorf("callbacks = %+v", cbs)
	}
	h.AssertConsistent(7)
}

func TestReplayRejectsUnknownOp(t *testing.T) {
	h := rendertest.New(t)
	script := &mutation.Script{Steps: []mutation.Step{{Op: "teleport", Root: 1}}}
	if err := h.Renderer.Replay(script, nil); err == nil {
		t.Error("expected an error for an unknown op")
	}
}

// TestRandomMutationsStayConsistent drives random batches through the
// renderer and checks both trees agree after every end of batch.
func TestRandomMutationsStayConsistent(t *testing.T) {
	h := rendertest.New(t)
	h.CreateRoot(1)
	r := h.Renderer
	rng := rand.New(rand.NewPCG(1, 2))

	var live []uint32
	next := uint32(2)
	pick := func() uint32 {
		if len(live) == 0 || rng.IntN(5) == 0 {
			return 0
		}
		return live[rng.IntN(len(live))]
	}

	for batch := range 200 {
		for range 1 + rng.IntN(6) {
			switch op := rng.IntN(10); {
			case op < 4:
				r.CreateNode(1, []mutation.Mutation{create(next, pick(), rng.IntN(4)-1, "View")})
				live = append(live, next)
				next++
			case op < 6 && len(live) > 0:
				r.MoveNode(1, mutation.MoveTo(live[rng.IntN(len(live))], pick(), rng.IntN(4)-1))
			case op < 7 && len(live) > 1:
				a, b := live[rng.IntN(len(live))], live[rng.IntN(len(live))]
				r.MoveNode2(1, mutation.MoveBatch(
					mutation.Move{Tag: a, ParentTag: pick(), Index: 0},
					mutation.Move{Tag: b, ParentTag: pick(), Index: -1},
				))
			case op < 8 && len(live) > 0:
				r.DeleteNode(1, []mutation.Mutation{mutation.Delete(live[rng.IntN(len(live))])})
			case len(live) > 0:
				r.UpdateNode(1, []mutation.Mutation{mutation.Update(live[rng.IntN(len(live))], mutation.Props{"n": batch})})
			}
		}
		r.EndBatch(1)
		store := h.Context(1).Nodes
		live = slices.DeleteFunc(live, func(tag uint32) bool { return !store.Has(tag) })
		if problems := rendertest.CheckConsistent(h.Context(1)); len(problems) > 0 {
			t.Fatalf("batch %d: %v", batch, problems)
		}
	}
	if panics := h.Errors.Panics(); len(panics) != 0 {
		t.Errorf("panics: %v", panics)
	}
}
