// Package native defines the contract between the view manager and the
// platform's widget toolkit.
//
// A backend provides one Factory per view kind. Nodes returned by a factory
// are only ever touched from the UI execution context, so implementations
// need no locking of their own.
package native

import (
	"errors"

	"github.com/go-drift/nativerender/pkg/geometry"
)

// Node is a native widget handle.
type Node interface {
	// Tag returns the node's tag, equal to the virtual node's tag.
	Tag() uint32

	// ViewName returns the view kind the node was created for.
	ViewName() string

	// SetAttribute sets one attribute. A nil value resets the attribute to
	// its default.
	SetAttribute(name string, value any) error

	// GetAttribute returns an attribute's current value.
	GetAttribute(name string) (any, bool)

	// SetFrame applies pre-computed layout geometry.
	SetFrame(frame geometry.Frame)

	// Frame returns the geometry last set with SetFrame.
	Frame() geometry.Frame

	// AddChild inserts child at index. An index outside [0, childCount]
	// appends.
	AddChild(child Node, index int) error

	// RemoveChild detaches child without destroying it.
	RemoveChild(child Node) error

	// RegisterEvent installs the handler for an event name, replacing any
	// previous handler for that name.
	RegisterEvent(name string, handler EventHandler) error

	// UnregisterEvent removes the handler for an event name.
	UnregisterEvent(name string)

	// Destroy releases the node's native resources. The node is not used
	// again afterwards.
	Destroy()
}

// FunctionCaller is implemented by nodes that expose named UI functions.
type FunctionCaller interface {
	// CallUIFunction invokes a named function. reply may be called
	// synchronously or later on the UI context, at most once. Unknown
	// names return ErrFunctionNotFound without calling reply.
	CallUIFunction(name string, params []any, reply Reply) error
}

// EventSource is implemented by nodes that emit events on their own,
// independent of RegisterEvent. The sink receives every such event;
// delivery filtering happens upstream of the node.
type EventSource interface {
	SetEventSink(sink EventHandler)
}

// Surface is a platform rendering surface a root's native tree attaches to.
type Surface interface {
	Attach(root Node) error
	Detach()
}

// EventHandler receives a native event.
type EventHandler func(Event)

// Reply delivers a UI function result.
type Reply func(result int, payload any)

// Callback result codes passed to Reply and forwarded with doCallback.
const (
	CallbackSuccess = 0
	CallbackFailed  = -1
)

// EventType classifies events for the script layer.
type EventType int

const (
	// EventTypeNormal is an ordinary component event.
	EventTypeNormal EventType = iota
	// EventTypeGesture is a touch or gesture event.
	EventTypeGesture
	// EventTypeLayout is a layout-driven event such as a size change.
	EventTypeLayout
)

func (t EventType) String() string {
	switch t {
	case EventTypeGesture:
		return "gesture"
	case EventTypeLayout:
		return "layout"
	default:
		return "normal"
	}
}

// Event is a native event as emitted by a node.
type Event struct {
	Tag     uint32
	Name    string
	Params  any
	Capture bool
	Bubble  bool
	Type    EventType
}

var (
	// ErrViewTypeNotFound indicates no factory is registered for a view kind.
	ErrViewTypeNotFound = errors.New("native view type not registered")

	// ErrFunctionNotFound indicates a node has no UI function of that name.
	ErrFunctionNotFound = errors.New("native UI function not found")

	// ErrNotAttached indicates a child operation on a node that is not a
	// child of the receiver.
	ErrNotAttached = errors.New("native node not attached")

	// ErrInvalidArguments indicates a setter or function got a value of the
	// wrong shape.
	ErrInvalidArguments = errors.New("invalid arguments")
)
