package rendertest

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-drift/nativerender/pkg/geometry"
	"github.com/go-drift/nativerender/pkg/mutation"
)

type fakeT struct {
	errors []string
	fatal  bool
}

func (f *fakeT) Helper()      {}
func (f *fakeT) Name() string { return "TestFake" }
func (f *fakeT) Errorf(format string, args ...any) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}
func (f *fakeT) Fatalf(format string, args ...any) {
	f.fatal = true
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func buildTree(t *testing.T, text string) *Harness {
	h := New(t)
	h.CreateRoot(3)
	r := h.Renderer
	r.CreateNode(3, []mutation.Mutation{
		mutation.Create(1, 0, 0, "View", mutation.Props{"style": map[string]any{"color": "red"}}),
		mutation.Create(2, 1, 0, "Text", mutation.Props{"text": text}),
	})
	r.UpdateLayout(3, []mutation.Mutation{mutation.UpdateLayout(
		mutation.Layout{Tag: 1, Frame: geometry.FrameFromLTWH(0, 0, 100, 50)},
		mutation.Layout{Tag: 2, Frame: geometry.FrameFromLTWH(1.005, 2, 30, 10)},
	)})
	r.UpdateEventListener(3, []mutation.Mutation{mutation.UpdateEventListener(
		mutation.Listener{Tag: 2, EventName: "onClick", Subscribe: true},
	)})
	r.EndBatch(3)
	return h
}

func TestSnapshotRoundTrip(t *testing.T) {
	h := buildTree(t, "hello")
	snap := h.Snapshot(3)

	if snap.Virtual.Tag != 3 || len(snap.Virtual.Children) != 1 {
		t.Fatalf("virtual root = %+v", snap.Virtual)
	}
	text := snap.Native.Children[0].Children[0]
	if text.Props["text"] != "hello" || text.Frame[2] != 30 {
		t.Errorf("native text node = %+v", text)
	}
	if len(text.Events) != 1 || text.Events[0] != "click" {
		t.Errorf("events = %v", text.Events)
	}

	path := filepath.Join(t.TempDir(), "snap", "tree.json")
	if err := snap.UpdateFile(path); err != nil {
		t.Fatal(err)
	}
	ft := &fakeT{}
	snap.MatchesFile(ft, path)
	if len(ft.errors) != 0 {
		t.Errorf("fresh snapshot mismatched: %v", ft.errors)
	}

	changed := buildTree(t, "bye").Snapshot(3)
	ft = &fakeT{}
	changed.MatchesFile(ft, path)
	if len(ft.errors) != 1 || !strings.Contains(ft.errors[0], `"bye"`) {
		t.Errorf("expected one mismatch mentioning the new text, got %v", ft.errors)
	}
}

func TestSnapshotMissingFile(t *testing.T) {
	h := buildTree(t, "x")
	ft := &fakeT{}
	h.Snapshot(3).MatchesFile(ft, filepath.Join(t.TempDir(), "none.json"))
	if !ft.fatal || !strings.Contains(ft.errors[0], UpdateSnapshotsEnv) {
		t.Errorf("got %v", ft.errors)
	}
}

func TestSnapshotUpdateEnv(t *testing.T) {
	t.Setenv(UpdateSnapshotsEnv, "1")
	path := filepath.Join(t.TempDir(), "tree.json")
	ft := &fakeT{}
	buildTree(t, "x").Snapshot(3).MatchesFile(ft, path)
	if len(ft.errors) != 0 {
		t.Fatalf("update failed: %v", ft.errors)
	}
	loaded, err := loadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Root != 3 {
		t.Errorf("root = %d", loaded.Root)
	}
}

func TestDiffIdentical(t *testing.T) {
	a := buildTree(t, "same").Snapshot(3)
	b := buildTree(t, "same").Snapshot(3)
	if d := a.Diff(b); d != "" {
		t.Errorf("diff = %s", d)
	}
}

func TestDumpNative(t *testing.T) {
	h := buildTree(t, "hi")
	out := DumpNative(h.Context(3))
	for _, want := range []string{"#3 Root", "#1 View", "#2 Text", "text=hi", "on=click"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestCheckConsistentDetectsDrift(t *testing.T) {
	h := buildTree(t, "x")
	ctx := h.Context(3)
	if p := CheckConsistent(ctx); len(p) != 0 {
		t.Fatalf("fresh tree inconsistent: %v", p)
	}
	// Moving only the virtual side makes the trees disagree.
	ctx.Nodes.MoveVirtualNodes([]mutation.Move{{Tag: 2, ParentTag: 0, Index: -1}})
	if p := CheckConsistent(ctx); len(p) == 0 {
		t.Error("drift not detected")
	}
}
