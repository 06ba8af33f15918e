package headless

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/go-drift/nativerender/pkg/geometry"
	"github.com/go-drift/nativerender/pkg/mutation"
	"github.com/go-drift/nativerender/pkg/native"
)

func TestAddRemoveChild(t *testing.T) {
	root := NewNode(1, "Root", nil)
	a := NewNode(2, "View", nil)
	b := NewNode(3, "View", nil)
	c := NewNode(4, "View", nil)

	for _, n := range []*Node{a, b} {
		if err := root.AddChild(n, -1); err != nil {
			t.Fatal(err)
		}
	}
	if err := root.AddChild(c, 1); err != nil {
		t.Fatal(err)
	}
	got := tags(root.Children())
	if want := "2,4,3"; got != want {
		t.Errorf("children = %s, want %s", got, want)
	}
	if err := root.AddChild(c, 0); err == nil {
		t.Error("adding an attached child should fail")
	}

	if err := root.RemoveChild(c); err != nil {
		t.Fatal(err)
	}
	if c.Parent() != nil {
		t.Error("removed child still has a parent")
	}
	if err := root.RemoveChild(c); !errors.Is(err, native.ErrNotAttached) {
		t.Errorf("second remove err = %v, want ErrNotAttached", err)
	}
}

func TestSetAttributeResetsToDefault(t *testing.T) {
	n := NewNode(1, "View", map[string]any{"opacity": 1.0})
	_ = n.SetAttribute("opacity", 0.5)
	_ = n.SetAttribute("text", "x")
	_ = n.SetAttribute("opacity", nil)
	_ = n.SetAttribute("text", nil)

	if v, _ := n.GetAttribute("opacity"); v != 1.0 {
		t.Errorf("opacity = %v, want default 1", v)
	}
	if _, ok := n.GetAttribute("text"); ok {
		t.Error("text should be cleared")
	}
}

func TestApplyPropsContinuesPastFailure(t *testing.T) {
	n := NewNode(1, "View", nil)
	boom := errors.New("boom")
	n.FailAttribute("color", boom)

	errs := native.ApplyProps(n, mutation.Props{
		"alpha":           1,
		mutation.StyleKey: map[string]any{"color": "red", "zIndex": 2},
	})
	if len(errs) != 1 || !errors.Is(errs[0], boom) {
		t.Fatalf("errs = %v, want one boom", errs)
	}
	for _, key := range []string{"alpha", "zIndex"} {
		if _, ok := n.GetAttribute(key); !ok {
			t.Errorf("%s not applied", key)
		}
	}
}

func TestFireRequiresHandler(t *testing.T) {
	n := NewNode(1, "View", nil)
	if n.Fire("click", nil) {
		t.Error("fire without handler reported delivery")
	}
	var got native.Event
	_ = n.RegisterEvent("click", func(ev native.Event) { got = ev })
	if !n.Fire("click", 42) || got.Params != 42 || got.Tag != 1 {
		t.Errorf("event = %+v", got)
	}
	n.UnregisterEvent("click")
	if n.Fire("click", nil) {
		t.Error("fire after unregister reported delivery")
	}
}

func TestMeasureInWindow(t *testing.T) {
	root := NewNode(1, "Root", nil)
	parent := NewNode(2, "View", nil)
	child := NewNode(3, "View", nil)
	_ = root.AddChild(parent, 0)
	_ = parent.AddChild(child, 0)
	parent.SetFrame(geometry.FrameFromLTWH(10, 20, 100, 100))
	child.SetFrame(geometry.FrameFromLTWH(5, 5, 30, 40))

	var result int
	var payload any
	err := child.CallUIFunction("measureInWindow", nil, func(r int, p any) { result, payload = r, p })
	if err != nil {
		t.Fatal(err)
	}
	m := payload.(map[string]any)
	if result != native.CallbackSuccess || m["x"] != 15.0 || m["y"] != 25.0 || m["height"] != 40.0 {
		t.Errorf("measure = %d %v", result, m)
	}

	if err := child.CallUIFunction("nope", nil, func(int, any) {}); !errors.Is(err, native.ErrFunctionNotFound) {
		t.Errorf("unknown function err = %v", err)
	}
}

func TestListScrollEmitsEvents(t *testing.T) {
	l := NewListNode(5, "ListView")
	l.SetFrame(geometry.FrameFromLTWH(0, 0, 100, 100))
	for i := range 5 {
		item := NewNode(uint32(10+i), "ListViewItem", nil)
		item.SetFrame(geometry.FrameFromLTWH(0, float64(i*50), 100, 50))
		_ = l.AddChild(item, -1)
	}
	var names []string
	l.SetEventSink(func(ev native.Event) { names = append(names, ev.Name) })

	if err := l.CallUIFunction("scrollToIndex", []any{0, 3, false}, func(int, any) {}); err != nil {
		t.Fatal(err)
	}
	if l.Offset().Y != 150 {
		t.Errorf("offset = %v, want y=150 (clamped to content end)", l.Offset())
	}
	want := []string{EventScrollStart, EventScroll, EventScrollIndex, EventScrollStop, EventReachEnd}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", names, want)
	}

	var off map[string]any
	_ = l.CallUIFunction("getScrollOffset", nil, func(_ int, p any) { off = p.(map[string]any) })
	if off["y"] != 150.0 {
		t.Errorf("getScrollOffset = %v", off)
	}
}

func TestListScrollDisabled(t *testing.T) {
	l := NewListNode(5, "ListView")
	l.SetFrame(geometry.FrameFromLTWH(0, 0, 100, 100))
	item := NewNode(6, "ListViewItem", nil)
	item.SetFrame(geometry.FrameFromLTWH(0, 0, 100, 500))
	_ = l.AddChild(item, 0)

	if err := l.SetAttribute(AttrScrollEnabled, false); err != nil {
		t.Fatal(err)
	}
	l.ScrollBy(geometry.Point{Y: 50})
	if l.Offset().Y != 0 {
		t.Error("user scroll moved a disabled list")
	}
	if err := l.SetAttribute(AttrScrollEnabled, "yes"); !errors.Is(err, native.ErrInvalidArguments) {
		t.Errorf("bad bool err = %v", err)
	}
	if err := l.SetAttribute(AttrCachedCount, 3.0); err != nil {
		t.Fatal(err)
	}
	if v, _ := l.GetAttribute(AttrCachedCount); v != 3 {
		t.Errorf("cachedCount = %v (%T)", v, v)
	}
}

func TestDumpAndFind(t *testing.T) {
	r := NewRegistry()
	root, _ := r.Create("Root", 7)
	view, _ := r.Create("View", 1)
	text, _ := r.Create("Text", 2)
	_ = root.AddChild(view, 0)
	_ = view.AddChild(text, 0)
	_ = text.SetAttribute("text", "hi")

	var b strings.Builder
	if err := Dump(&b, root); err != nil {
		t.Fatal(err)
	}
	want := "#7 Root\n  #1 View\n    #2 Text text=hi\n"
	if b.String() != want {
		t.Errorf("Dump =\n%s\nwant\n%s", b.String(), want)
	}
	if n, ok := Find(root, 2); !ok || n != text {
		t.Error("Find did not locate tag 2")
	}
	if _, err := r.Create("Unknown", 9); !errors.Is(err, native.ErrViewTypeNotFound) {
		t.Errorf("unknown view err = %v", err)
	}
}

func TestSurfaceAttach(t *testing.T) {
	s := NewSurface("main")
	a := NewNode(1, "Root", nil)
	if err := s.Attach(a); err != nil {
		t.Fatal(err)
	}
	if err := s.Attach(NewNode(2, "Root", nil)); !errors.Is(err, ErrSurfaceInUse) {
		t.Errorf("err = %v, want ErrSurfaceInUse", err)
	}
	s.Detach()
	if s.Root() != nil {
		t.Error("root still attached")
	}
}

func tags(nodes []native.Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = strconv.FormatUint(uint64(n.Tag()), 10)
	}
	return strings.Join(parts, ",")
}
