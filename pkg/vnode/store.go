// Package vnode keeps the per-root virtual node tree: the bookkeeping mirror
// of the logical UI structure computed by the script layer.
//
// The store has no native dependency. Structural changes here never touch a
// native widget; the view manager replays the same changes natively when a
// batch ends.
package vnode

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/go-drift/nativerender/pkg/mutation"
)

// RootAlias is the parent tag that addresses a store's implicit root node.
// Tag 0 is reserved and never names a created node.
const RootAlias uint32 = 0

// NoParent is the parent tag recorded on the implicit root node.
const NoParent = ^uint32(0)

// RootViewName is the view kind of the implicit root node.
const RootViewName = "Root"

var (
	// ErrParentNotFound is returned when a parent tag does not exist.
	ErrParentNotFound = errors.New("vnode: parent not found")
	// ErrTagExists is returned when creating a tag that is already live.
	ErrTagExists = errors.New("vnode: tag already exists")
	// ErrReservedTag is returned for tag 0 and the root's own tag.
	ErrReservedTag = errors.New("vnode: reserved tag")
	// ErrNodeNotFound is returned when a tag does not exist.
	ErrNodeNotFound = errors.New("vnode: node not found")
	// ErrCycle is returned when a move would place a node under itself.
	ErrCycle = errors.New("vnode: move would create a cycle")
)

// Node is a snapshot of one virtual node record.
type Node struct {
	Tag       uint32
	ParentTag uint32
	Index     int
	ViewName  string
	Props     mutation.Props

	events   map[string]struct{}
	children []uint32
}

// Children returns the child tags in sibling order.
func (n Node) Children() []uint32 {
	return slices.Clone(n.children)
}

// EventNames returns the subscribed event names in sorted order.
func (n Node) EventNames() []string {
	return slices.Sorted(maps.Keys(n.events))
}

// HasEvent reports whether name is subscribed on the node.
func (n Node) HasEvent(name string) bool {
	_, ok := n.events[name]
	return ok
}

func (n *Node) snapshot() Node {
	return Node{
		Tag:       n.Tag,
		ParentTag: n.ParentTag,
		Index:     n.Index,
		ViewName:  n.ViewName,
		Props:     n.Props.Clone(),
		events:    maps.Clone(n.events),
		children:  slices.Clone(n.children),
	}
}

// Store is the virtual node tree of one root. It is not safe for
// concurrent use; the renderer only touches it on the UI context.
type Store struct {
	rootID uint32
	nodes  map[uint32]*Node
}

// NewStore returns a store holding only the implicit root node, whose tag
// is rootID.
func NewStore(rootID uint32) *Store {
	s := &Store{
		rootID: rootID,
		nodes:  make(map[uint32]*Node),
	}
	s.nodes[rootID] = &Node{Tag: rootID, ParentTag: NoParent, ViewName: RootViewName}
	return s
}

// RootID returns the tag of the implicit root node.
func (s *Store) RootID() uint32 {
	return s.rootID
}

// ResolveParent maps RootAlias to the root tag.
func (s *Store) ResolveParent(tag uint32) uint32 {
	if tag == RootAlias {
		return s.rootID
	}
	return tag
}

// Len returns the number of nodes, including the root.
func (s *Store) Len() int {
	return len(s.nodes)
}

// CreateVirtualNode builds a record for tag without inserting it. The
// parent must exist and tag must be free.
func (s *Store) CreateVirtualNode(tag, parentTag uint32, index int, viewName string, props mutation.Props) (*Node, error) {
	if tag == RootAlias || tag == s.rootID {
		return nil, fmt.Errorf("%w: %d", ErrReservedTag, tag)
	}
	if _, exists := s.nodes[tag]; exists {
		return nil, fmt.Errorf("%w: %d", ErrTagExists, tag)
	}
	parentTag = s.ResolveParent(parentTag)
	if _, ok := s.nodes[parentTag]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrParentNotFound, parentTag)
	}
	return &Node{
		Tag:       tag,
		ParentTag: parentTag,
		Index:     index,
		ViewName:  viewName,
		Props:     props.Clone(),
	}, nil
}

// AddVirtualNode inserts n under n.ParentTag at n.Index. An index outside
// [0, childCount] appends; later siblings shift by one.
func (s *Store) AddVirtualNode(tag uint32, n *Node) error {
	if n == nil {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, tag)
	}
	if tag == RootAlias || tag == s.rootID {
		return fmt.Errorf("%w: %d", ErrReservedTag, tag)
	}
	if _, exists := s.nodes[tag]; exists {
		return fmt.Errorf("%w: %d", ErrTagExists, tag)
	}
	n.Tag = tag
	n.ParentTag = s.ResolveParent(n.ParentTag)
	parent, ok := s.nodes[n.ParentTag]
	if !ok {
		return fmt.Errorf("%w: %d", ErrParentNotFound, n.ParentTag)
	}
	s.nodes[tag] = n
	s.insertChild(parent, tag, n.Index)
	return nil
}

// GetVirtualNode returns a snapshot of the record for tag. Absent tags
// return false rather than an error.
func (s *Store) GetVirtualNode(tag uint32) (Node, bool) {
	n, ok := s.nodes[tag]
	if !ok {
		return Node{}, false
	}
	return n.snapshot(), true
}

// Has reports whether tag is live.
func (s *Store) Has(tag uint32) bool {
	_, ok := s.nodes[tag]
	return ok
}

// UpdateProps merges delta into the node's props. It reports whether the
// node exists.
func (s *Store) UpdateProps(tag uint32, delta mutation.Props) bool {
	n, ok := s.nodes[tag]
	if !ok {
		return false
	}
	n.Props = n.Props.Merge(delta)
	return true
}

// SetEventSubscription records or clears a subscription. It reports whether
// the node exists.
func (s *Store) SetEventSubscription(tag uint32, name string, subscribe bool) bool {
	n, ok := s.nodes[tag]
	if !ok {
		return false
	}
	if subscribe {
		if n.events == nil {
			n.events = make(map[string]struct{})
		}
		n.events[name] = struct{}{}
	} else {
		delete(n.events, name)
	}
	return true
}

// RemoveVirtualNode removes tag and its subtree. It returns the removed
// tags, parents before children, or nil if tag is absent or the root.
func (s *Store) RemoveVirtualNode(tag uint32) []uint32 {
	n, ok := s.nodes[tag]
	if !ok || tag == s.rootID {
		return nil
	}
	if parent, ok := s.nodes[n.ParentTag]; ok {
		s.removeChild(parent, tag)
	}
	var removed []uint32
	var collect func(t uint32)
	collect = func(t uint32) {
		node, ok := s.nodes[t]
		if !ok {
			return
		}
		removed = append(removed, t)
		delete(s.nodes, t)
		for _, c := range node.children {
			collect(c)
		}
	}
	collect(tag)
	return removed
}

// Children returns the child tags of tag in sibling order.
func (s *Store) Children(tag uint32) ([]uint32, bool) {
	n, ok := s.nodes[tag]
	if !ok {
		return nil, false
	}
	return slices.Clone(n.children), true
}

// IsAncestor reports whether ancestor is tag or lies on tag's parent chain.
func (s *Store) IsAncestor(ancestor, tag uint32) bool {
	for cur := tag; ; {
		if cur == ancestor {
			return true
		}
		n, ok := s.nodes[cur]
		if !ok || n.ParentTag == NoParent {
			return false
		}
		cur = n.ParentTag
	}
}

// MoveVirtualNodes applies moves as one unit: every listed node is detached
// first and then reattached in list order. It returns the placements that
// were actually made, which a native tree replaying the same algorithm will
// reproduce, and one error per entry that could not be honored.
//
// Entries naming an absent tag or the root are dropped. An entry whose
// target parent is absent or inside the moved node's own subtree, as
// placed so far, puts the node back under its previous parent at its
// previous index, or under the root if the previous parent has since moved
// into the node's subtree. Nodes still waiting for their placement are not
// part of any chain, so swapping a parent and its child works in either
// list order.
func (s *Store) MoveVirtualNodes(moves []mutation.Move) ([]mutation.Move, []error) {
	type origin struct {
		parent uint32
		index  int
	}
	var errs []error
	origins := make(map[uint32]origin, len(moves))
	valid := make([]mutation.Move, 0, len(moves))

	for _, mv := range moves {
		n, ok := s.nodes[mv.Tag]
		if !ok || mv.Tag == s.rootID {
			errs = append(errs, fmt.Errorf("%w: %d", ErrNodeNotFound, mv.Tag))
			continue
		}
		mv.ParentTag = s.ResolveParent(mv.ParentTag)
		valid = append(valid, mv)
		if _, seen := origins[mv.Tag]; seen {
			continue
		}
		origins[mv.Tag] = origin{parent: n.ParentTag, index: n.Index}
	}
	for _, mv := range valid {
		s.detach(mv.Tag)
	}

	resolved := make([]mutation.Move, 0, len(valid))
	for _, mv := range valid {
		target := mv
		if err := s.checkTarget(mv.Tag, mv.ParentTag); err != nil {
			errs = append(errs, err)
			o := origins[mv.Tag]
			target = mutation.Move{Tag: mv.Tag, ParentTag: o.parent, Index: o.index}
			if s.checkTarget(mv.Tag, o.parent) != nil {
				target = mutation.Move{Tag: mv.Tag, ParentTag: s.rootID, Index: -1}
			}
		}
		s.detach(target.Tag)
		n := s.nodes[target.Tag]
		n.ParentTag = target.ParentTag
		s.insertChild(s.nodes[target.ParentTag], target.Tag, target.Index)
		resolved = append(resolved, target)
	}
	return resolved, errs
}

func (s *Store) checkTarget(tag, parentTag uint32) error {
	if _, ok := s.nodes[parentTag]; !ok {
		return fmt.Errorf("%w: %d", ErrParentNotFound, parentTag)
	}
	if s.IsAncestor(tag, parentTag) {
		return fmt.Errorf("%w: %d under %d", ErrCycle, tag, parentTag)
	}
	return nil
}

// detach unlinks tag from its parent, leaving the subtree intact. The node
// has ParentTag NoParent until it is reinserted, so ancestor walks stop at
// it.
func (s *Store) detach(tag uint32) {
	n, ok := s.nodes[tag]
	if !ok {
		return
	}
	if parent, ok := s.nodes[n.ParentTag]; ok {
		s.removeChild(parent, tag)
	}
	n.ParentTag = NoParent
}

func (s *Store) insertChild(parent *Node, tag uint32, index int) {
	if index < 0 || index > len(parent.children) {
		index = len(parent.children)
	}
	parent.children = slices.Insert(parent.children, index, tag)
	s.reindex(parent, index)
}

func (s *Store) removeChild(parent *Node, tag uint32) {
	i := slices.Index(parent.children, tag)
	if i < 0 {
		return
	}
	parent.children = slices.Delete(parent.children, i, i+1)
	s.reindex(parent, i)
}

// reindex rewrites sibling indexes from position from onward.
func (s *Store) reindex(parent *Node, from int) {
	for i := from; i < len(parent.children); i++ {
		if c, ok := s.nodes[parent.children[i]]; ok {
			c.Index = i
		}
	}
}
