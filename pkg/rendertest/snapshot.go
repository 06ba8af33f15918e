package rendertest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-drift/nativerender/pkg/geometry"
	"github.com/go-drift/nativerender/pkg/native/headless"
	"github.com/go-drift/nativerender/pkg/rootregistry"
)

// UpdateSnapshotsEnv rewrites golden files instead of comparing when set
// to "1".
const UpdateSnapshotsEnv = "NATIVERENDER_UPDATE_SNAPSHOTS"

// TestingT is the subset of *testing.T used by MatchesFile, allowing
// test doubles to intercept failures.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Name() string
}

// Snapshot captures one root's virtual and native trees.
type Snapshot struct {
	Root    uint32    `json:"root"`
	Virtual *TreeNode `json:"virtual"`
	Native  *TreeNode `json:"native"`
}

// TreeNode is one serialized node.
type TreeNode struct {
	Tag      uint32         `json:"tag"`
	View     string         `json:"view"`
	Frame    *[4]float64    `json:"frame,omitempty"`
	Props    map[string]any `json:"props,omitempty"`
	Events   []string       `json:"events,omitempty"`
	Children []*TreeNode    `json:"children,omitempty"`
}

// CaptureSnapshot serializes the trees of ctx. Native attributes are only
// captured for headless nodes.
func CaptureSnapshot(ctx *rootregistry.RootContext) *Snapshot {
	return &Snapshot{
		Root:    ctx.ID,
		Virtual: captureVirtual(ctx, ctx.ID),
		Native:  captureNative(ctx, ctx.ID),
	}
}

func captureVirtual(ctx *rootregistry.RootContext, tag uint32) *TreeNode {
	n, ok := ctx.Nodes.GetVirtualNode(tag)
	if !ok {
		return nil
	}
	out := &TreeNode{Tag: tag, View: n.ViewName, Events: n.EventNames()}
	if len(n.Props) > 0 {
		out.Props = map[string]any(n.Props)
	}
	for _, c := range n.Children() {
		out.Children = append(out.Children, captureVirtual(ctx, c))
	}
	return out
}

func captureNative(ctx *rootregistry.RootContext, tag uint32) *TreeNode {
	n, ok := ctx.Views.Node(tag)
	if !ok {
		return nil
	}
	out := &TreeNode{Tag: tag, View: n.ViewName()}
	if f := n.Frame(); f != (geometry.Frame{}) {
		out.Frame = &[4]float64{round2(f.X), round2(f.Y), round2(f.Width), round2(f.Height)}
	}
	if hn, ok := n.(interface{ Attributes() map[string]any }); ok {
		if attrs := hn.Attributes(); len(attrs) > 0 {
			out.Props = attrs
		}
	}
	if hn, ok := n.(interface{ RegisteredEvents() []string }); ok {
		out.Events = hn.RegisteredEvents()
	}
	for _, c := range ctx.Views.Children(tag) {
		out.Children = append(out.Children, captureNative(ctx, c))
	}
	return out
}

// MatchesFile compares this snapshot against a golden file. On mismatch it
// reports a diff and instructions for updating. When the update variable
// is set, the file is silently updated instead.
func (s *Snapshot) MatchesFile(t TestingT, path string) {
	t.Helper()

	if os.Getenv(UpdateSnapshotsEnv) == "1" {
		if err := s.UpdateFile(path); err != nil {
			t.Fatalf("failed to update snapshot: %v", err)
		}
		return
	}

	expected, err := loadSnapshot(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("snapshot file missing: %s\n\nTo create: %s=1 go test -run %s", path, UpdateSnapshotsEnv, t.Name())
			return
		}
		t.Fatalf("failed to load snapshot: %v", err)
		return
	}

	if diff := s.Diff(expected); diff != "" {
		t.Errorf("snapshot mismatch: %s\n%s\n\nTo update: %s=1 go test -run %s", path, diff, UpdateSnapshotsEnv, t.Name())
	}
}

// UpdateFile writes this snapshot to path, creating directories as needed.
func (s *Snapshot) UpdateFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := marshalSnapshot(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Diff returns a line diff between this snapshot and other, or "" when
// they serialize identically.
func (s *Snapshot) Diff(other *Snapshot) string {
	a, _ := marshalSnapshot(s)
	b, _ := marshalSnapshot(other)
	if bytes.Equal(a, b) {
		return ""
	}
	return lineDiff(string(b), string(a))
}

// DumpNative writes the headless outline of ctx's native tree.
func DumpNative(ctx *rootregistry.RootContext) string {
	var b strings.Builder
	_ = headless.Dump(&b, ctx.Views.RootNode())
	return b.String()
}

func loadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot JSON: %w", err)
	}
	return &snap, nil
}

// marshalSnapshot round-trips through generic JSON first so a captured
// snapshot and one loaded from disk encode the same way.
func marshalSnapshot(s *Snapshot) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// lineDiff lists differing lines position by position.
func lineDiff(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var buf strings.Builder
	buf.WriteString("--- expected\n+++ actual\n")
	for i := range max(len(expectedLines), len(actualLines)) {
		var e, a string
		if i < len(expectedLines) {
			e = expectedLines[i]
		}
		if i < len(actualLines) {
			a = actualLines[i]
		}
		if e == a {
			continue
		}
		if i < len(expectedLines) {
			fmt.Fprintf(&buf, "-%s\n", e)
		}
		if i < len(actualLines) {
			fmt.Fprintf(&buf, "+%s\n", a)
		}
	}
	return buf.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
