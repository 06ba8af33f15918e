// Package headless is an in-memory native backend. It keeps a real widget
// tree (attributes, frames, children, handlers) without a display, and is
// used by the CLI and by tests.
package headless

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/go-drift/nativerender/pkg/geometry"
	"github.com/go-drift/nativerender/pkg/native"
)

// ErrDestroyed is returned by operations on a destroyed node.
var ErrDestroyed = errors.New("headless: node destroyed")

// UIFunc is a UI function installed on a node with SetFunction.
type UIFunc func(params []any, reply native.Reply) error

// element is implemented by every node type of this package.
type element interface {
	native.Node
	base() *Node
}

// Node is the generic headless widget.
type Node struct {
	self     element
	tag      uint32
	viewName string

	attrs     map[string]any
	defaults  map[string]any
	frame     geometry.Frame
	parent    element
	children  []element
	handlers  map[string]native.EventHandler
	sink      native.EventHandler
	funcs     map[string]UIFunc
	failures  map[string]error
	destroyed bool
}

// NewNode returns a generic node. defaults are the values attributes take
// when reset with nil.
func NewNode(tag uint32, viewName string, defaults map[string]any) *Node {
	n := &Node{}
	n.init(n, tag, viewName, defaults)
	return n
}

func (n *Node) init(self element, tag uint32, viewName string, defaults map[string]any) {
	n.self = self
	n.tag = tag
	n.viewName = viewName
	n.attrs = maps.Clone(defaults)
	if n.attrs == nil {
		n.attrs = make(map[string]any)
	}
	n.defaults = maps.Clone(defaults)
	n.handlers = make(map[string]native.EventHandler)
	n.funcs = make(map[string]UIFunc)
}

func (n *Node) base() *Node { return n }

// Tag returns the node's tag.
func (n *Node) Tag() uint32 { return n.tag }

// ViewName returns the node's view kind.
func (n *Node) ViewName() string { return n.viewName }

// SetAttribute stores value under name, or restores the default when value
// is nil.
func (n *Node) SetAttribute(name string, value any) error {
	if n.destroyed {
		return ErrDestroyed
	}
	if err, ok := n.failures[name]; ok {
		return err
	}
	n.store(name, value)
	return nil
}

func (n *Node) store(name string, value any) {
	if value == nil {
		if def, ok := n.defaults[name]; ok {
			n.attrs[name] = def
		} else {
			delete(n.attrs, name)
		}
		return
	}
	n.attrs[name] = value
}

// GetAttribute returns an attribute value.
func (n *Node) GetAttribute(name string) (any, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// Attributes returns a copy of all attributes.
func (n *Node) Attributes() map[string]any {
	return maps.Clone(n.attrs)
}

// SetFrame stores the frame.
func (n *Node) SetFrame(frame geometry.Frame) { n.frame = frame }

// Frame returns the last frame set.
func (n *Node) Frame() geometry.Frame { return n.frame }

// WindowFrame returns the frame translated by every ancestor's origin.
func (n *Node) WindowFrame() geometry.Frame {
	f := n.frame
	for p := n.parent; p != nil; p = p.base().parent {
		f = f.Translate(p.base().frame.Origin())
	}
	return f
}

// AddChild inserts child at index, appending when index is out of range.
// child must come from this package and must not already have a parent.
func (n *Node) AddChild(child native.Node, index int) error {
	if n.destroyed {
		return ErrDestroyed
	}
	c, ok := child.(element)
	if !ok {
		return fmt.Errorf("%w: foreign node %T", native.ErrInvalidArguments, child)
	}
	cb := c.base()
	if cb.destroyed {
		return ErrDestroyed
	}
	if cb.parent != nil {
		return fmt.Errorf("%w: tag %d already has parent %d", native.ErrInvalidArguments, cb.tag, cb.parent.Tag())
	}
	if index < 0 || index > len(n.children) {
		index = len(n.children)
	}
	n.children = slices.Insert(n.children, index, c)
	cb.parent = n.self
	return nil
}

// RemoveChild detaches child.
func (n *Node) RemoveChild(child native.Node) error {
	i := slices.IndexFunc(n.children, func(e element) bool { return native.Node(e) == child })
	if i < 0 {
		return fmt.Errorf("%w: tag %d under %d", native.ErrNotAttached, child.Tag(), n.tag)
	}
	n.children[i].base().parent = nil
	n.children = slices.Delete(n.children, i, i+1)
	return nil
}

// Parent returns the parent, or nil.
func (n *Node) Parent() native.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Children returns the children in order.
func (n *Node) Children() []native.Node {
	out := make([]native.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// RegisterEvent installs handler for name.
func (n *Node) RegisterEvent(name string, handler native.EventHandler) error {
	if n.destroyed {
		return ErrDestroyed
	}
	n.handlers[name] = handler
	return nil
}

// UnregisterEvent removes the handler for name.
func (n *Node) UnregisterEvent(name string) {
	delete(n.handlers, name)
}

// RegisteredEvents returns the names with a handler, sorted.
func (n *Node) RegisteredEvents() []string {
	return slices.Sorted(maps.Keys(n.handlers))
}

// SetEventSink implements native.EventSource.
func (n *Node) SetEventSink(sink native.EventHandler) { n.sink = sink }

// Destroy marks the node destroyed and drops its handlers. Children are
// left to the caller.
func (n *Node) Destroy() {
	n.destroyed = true
	clear(n.handlers)
	n.sink = nil
}

// Destroyed reports whether Destroy was called.
func (n *Node) Destroyed() bool { return n.destroyed }

// Fire simulates the user triggering name. It calls the registered handler
// and reports whether there was one.
func (n *Node) Fire(name string, params any) bool {
	h, ok := n.handlers[name]
	if !ok || n.destroyed {
		return false
	}
	h(native.Event{Tag: n.tag, Name: name, Params: params, Bubble: true})
	return true
}

// Emit sends ev through the event sink, if one is set.
func (n *Node) Emit(ev native.Event) {
	if n.sink == nil || n.destroyed {
		return
	}
	ev.Tag = n.tag
	n.sink(ev)
}

// FailAttribute makes SetAttribute(name) return err. A nil err clears it.
func (n *Node) FailAttribute(name string, err error) {
	if err == nil {
		delete(n.failures, name)
		return
	}
	if n.failures == nil {
		n.failures = make(map[string]error)
	}
	n.failures[name] = err
}

// SetFunction installs a UI function, overriding a built-in of the same
// name.
func (n *Node) SetFunction(name string, fn UIFunc) {
	n.funcs[name] = fn
}

// CallUIFunction implements native.FunctionCaller for the functions every
// node supports plus any installed with SetFunction.
func (n *Node) CallUIFunction(name string, params []any, reply native.Reply) error {
	if n.destroyed {
		return ErrDestroyed
	}
	if fn, ok := n.funcs[name]; ok {
		return fn(params, reply)
	}
	return n.callBuiltin(name, reply)
}

func (n *Node) callBuiltin(name string, reply native.Reply) error {
	switch name {
	case "measureInWindow":
		f := n.WindowFrame()
		reply(native.CallbackSuccess, map[string]any{
			"x": f.X, "y": f.Y, "width": f.Width, "height": f.Height,
		})
		return nil
	case "getBoundingClientRect":
		f := n.WindowFrame()
		reply(native.CallbackSuccess, map[string]any{
			"x": f.X, "y": f.Y, "width": f.Width, "height": f.Height,
			"left": f.X, "top": f.Y, "right": f.Right(), "bottom": f.Bottom(),
		})
		return nil
	}
	return fmt.Errorf("%w: %s on %s", native.ErrFunctionNotFound, name, n.viewName)
}
