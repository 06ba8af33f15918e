package headless

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/go-drift/nativerender/pkg/native"
)

// View kinds registered by Register.
var (
	GenericViews = []string{"View", "Text", "Image", "ScrollView", "ListViewItem", "TextInput", "Root"}
	ListViews    = []string{"ListView"}
)

// Register installs factories for the headless view kinds on r. Unknown
// kinds fall back to a generic node when fallback is true.
func Register(r *native.FactoryRegistry, fallback bool) {
	for _, name := range GenericViews {
		r.Register(genericFactory(name))
	}
	for _, name := range ListViews {
		r.Register(native.FactoryFunc{Name: name, New: func(tag uint32) (native.Node, error) {
			return NewListNode(tag, name), nil
		}})
	}
	if fallback {
		r.SetFallback(native.FactoryFunc{Name: "*", New: func(tag uint32) (native.Node, error) {
			return NewNode(tag, "View", nil), nil
		}})
	}
}

func genericFactory(name string) native.Factory {
	return native.FactoryFunc{Name: name, New: func(tag uint32) (native.Node, error) {
		return NewNode(tag, name, nil), nil
	}}
}

// NewRegistry returns a factory registry with the headless kinds.
func NewRegistry() *native.FactoryRegistry {
	r := native.NewFactoryRegistry()
	Register(r, false)
	return r
}

// ErrSurfaceInUse is returned when attaching a second root to a surface.
var ErrSurfaceInUse = errors.New("headless: surface already has a root")

// Surface is a headless rendering surface.
type Surface struct {
	Name string
	root native.Node
}

// NewSurface returns a named, empty surface.
func NewSurface(name string) *Surface {
	return &Surface{Name: name}
}

// Attach implements native.Surface.
func (s *Surface) Attach(root native.Node) error {
	if s.root != nil && s.root != root {
		return fmt.Errorf("%w: %s", ErrSurfaceInUse, s.Name)
	}
	s.root = root
	return nil
}

// Detach implements native.Surface.
func (s *Surface) Detach() { s.root = nil }

// Root returns the attached root node, or nil.
func (s *Surface) Root() native.Node { return s.root }

// Find returns the node with tag under n, including n itself.
func Find(n native.Node, tag uint32) (native.Node, bool) {
	if n == nil {
		return nil, false
	}
	if n.Tag() == tag {
		return n, true
	}
	e, ok := n.(element)
	if !ok {
		return nil, false
	}
	for _, c := range e.base().children {
		if found, ok := Find(c, tag); ok {
			return found, true
		}
	}
	return nil, false
}

// Dump writes an indented outline of the tree under n: one line per node
// with its tag, view kind, frame and sorted attributes.
func Dump(w io.Writer, n native.Node) error {
	var b strings.Builder
	dump(&b, n, 0)
	_, err := io.WriteString(w, b.String())
	return err
}

func dump(b *strings.Builder, n native.Node, depth int) {
	e, ok := n.(element)
	if !ok {
		fmt.Fprintf(b, "%s#%d %s\n", strings.Repeat("  ", depth), n.Tag(), n.ViewName())
		return
	}
	nb := e.base()
	fmt.Fprintf(b, "%s#%d %s", strings.Repeat("  ", depth), nb.tag, nb.viewName)
	if !nb.frame.IsEmpty() || nb.frame.X != 0 || nb.frame.Y != 0 {
		f := nb.frame
		fmt.Fprintf(b, " [%g,%g %gx%g]", f.X, f.Y, f.Width, f.Height)
	}
	keys := make([]string, 0, len(nb.attrs))
	for k := range nb.attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, nb.attrs[k])
	}
	if ev := nb.RegisteredEvents(); len(ev) > 0 {
		fmt.Fprintf(b, " on=%s", strings.Join(ev, ","))
	}
	b.WriteByte('\n')
	for _, c := range nb.children {
		dump(b, c, depth+1)
	}
}
