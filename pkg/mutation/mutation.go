// Package mutation defines the tree-mutation records the script layer
// produces and the renderer applies.
//
// A Mutation is a tagged variant: Kind selects which accessors carry data.
// Values are immutable once constructed; constructors and accessors copy
// their slices and maps.
package mutation

import (
	"fmt"

	"github.com/go-drift/nativerender/pkg/geometry"
)

// Kind identifies the variant of a Mutation.
type Kind uint8

const (
	// KindInvalid is the zero Kind; the zero Mutation has it.
	KindInvalid Kind = iota
	// KindCreate creates a node under a parent at an index.
	KindCreate
	// KindUpdate applies a prop delta to an existing node.
	KindUpdate
	// KindMove reparents a single node.
	KindMove
	// KindMoveBatch reparents several nodes as one unit.
	KindMoveBatch
	// KindDelete removes nodes and their subtrees.
	KindDelete
	// KindUpdateLayout sets frame geometry on nodes.
	KindUpdateLayout
	// KindUpdateEventListener subscribes or unsubscribes node events.
	KindUpdateEventListener
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindMove:
		return "move"
	case KindMoveBatch:
		return "moveBatch"
	case KindDelete:
		return "delete"
	case KindUpdateLayout:
		return "updateLayout"
	case KindUpdateEventListener:
		return "updateEventListener"
	default:
		return "invalid"
	}
}

// Move is one reparenting entry.
type Move struct {
	Tag       uint32
	ParentTag uint32
	Index     int
}

// Layout is one frame assignment.
type Layout struct {
	Tag   uint32
	Frame geometry.Frame
}

// Listener is one event subscription change.
type Listener struct {
	Tag       uint32
	EventName string
	Subscribe bool
}

// Mutation is one unit of change to a root's tree.
type Mutation struct {
	kind      Kind
	tag       uint32
	parentTag uint32
	index     int
	viewName  string
	props     Props
	moves     []Move
	tags      []uint32
	layouts   []Layout
	listeners []Listener
}

// Create returns a create mutation. An index outside [0, childCount]
// appends.
func Create(tag, parentTag uint32, index int, viewName string, props Props) Mutation {
	return Mutation{
		kind:      KindCreate,
		tag:       tag,
		parentTag: parentTag,
		index:     index,
		viewName:  viewName,
		props:     props.Clone(),
	}
}

// Update returns an update mutation carrying a prop delta.
func Update(tag uint32, delta Props) Mutation {
	return Mutation{kind: KindUpdate, tag: tag, props: delta.Clone()}
}

// MoveTo returns the single-node move mutation.
func MoveTo(tag, parentTag uint32, index int) Mutation {
	return Mutation{kind: KindMove, tag: tag, parentTag: parentTag, index: index}
}

// MoveBatch returns a multi-node move applied as one unit in list order.
func MoveBatch(moves ...Move) Mutation {
	return Mutation{kind: KindMoveBatch, moves: append([]Move(nil), moves...)}
}

// MoveBatchFrom builds a MoveBatch that moves ids, in order, to consecutive
// indexes under toParent starting at index. fromParent is informational;
// the current parent is always taken from the tree.
func MoveBatchFrom(ids []uint32, toParent, fromParent uint32, index int) Mutation {
	_ = fromParent
	moves := make([]Move, len(ids))
	for i, id := range ids {
		at := index
		if index >= 0 {
			at = index + i
		}
		moves[i] = Move{Tag: id, ParentTag: toParent, Index: at}
	}
	return Mutation{kind: KindMoveBatch, moves: moves}
}

// Delete returns a delete mutation for the given tags.
func Delete(tags ...uint32) Mutation {
	return Mutation{kind: KindDelete, tags: append([]uint32(nil), tags...)}
}

// UpdateLayout returns a layout mutation.
func UpdateLayout(layouts ...Layout) Mutation {
	return Mutation{kind: KindUpdateLayout, layouts: append([]Layout(nil), layouts...)}
}

// UpdateEventListener returns an event-listener mutation.
func UpdateEventListener(listeners ...Listener) Mutation {
	return Mutation{kind: KindUpdateEventListener, listeners: append([]Listener(nil), listeners...)}
}

// Kind returns the variant.
func (m Mutation) Kind() Kind { return m.kind }

// Tag returns the target tag for create, update and move.
func (m Mutation) Tag() uint32 { return m.tag }

// ParentTag returns the parent for create and move.
func (m Mutation) ParentTag() uint32 { return m.parentTag }

// Index returns the sibling index for create and move.
func (m Mutation) Index() int { return m.index }

// ViewName returns the widget kind for create.
func (m Mutation) ViewName() string { return m.viewName }

// Props returns a copy of the initial props (create) or delta (update).
func (m Mutation) Props() Props { return m.props.Clone() }

// Moves returns the move entries. A single move yields one entry.
func (m Mutation) Moves() []Move {
	switch m.kind {
	case KindMove:
		return []Move{{Tag: m.tag, ParentTag: m.parentTag, Index: m.index}}
	case KindMoveBatch:
		return append([]Move(nil), m.moves...)
	}
	return nil
}

// Tags returns the tags removed by a delete.
func (m Mutation) Tags() []uint32 { return append([]uint32(nil), m.tags...) }

// Layouts returns the layout entries.
func (m Mutation) Layouts() []Layout { return append([]Layout(nil), m.layouts...) }

// Listeners returns the event-listener entries.
func (m Mutation) Listeners() []Listener { return append([]Listener(nil), m.listeners...) }

func (m Mutation) String() string {
	switch m.kind {
	case KindCreate:
		return fmt.Sprintf("create(tag=%d parent=%d index=%d view=%s)", m.tag, m.parentTag, m.index, m.viewName)
	case KindUpdate:
		return fmt.Sprintf("update(tag=%d keys=%v)", m.tag, m.props.Keys())
	case KindMove:
		return fmt.Sprintf("move(tag=%d parent=%d index=%d)", m.tag, m.parentTag, m.index)
	case KindMoveBatch:
		return fmt.Sprintf("moveBatch(%d)", len(m.moves))
	case KindDelete:
		return fmt.Sprintf("delete(%v)", m.tags)
	case KindUpdateLayout:
		return fmt.Sprintf("updateLayout(%d)", len(m.layouts))
	case KindUpdateEventListener:
		return fmt.Sprintf("updateEventListener(%d)", len(m.listeners))
	}
	return "invalid"
}
