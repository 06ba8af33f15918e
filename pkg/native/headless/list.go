package headless

import (
	"fmt"

	"github.com/go-drift/nativerender/pkg/geometry"
	"github.com/go-drift/nativerender/pkg/native"
)

// List attribute names.
const (
	AttrScrollOffset  = "scrollOffset"
	AttrHorizontal    = "horizontal"
	AttrScrollEnabled = "scrollEnabled"
	AttrCachedCount   = "cachedCount"
	AttrEdgeEffect    = "edgeEffect"
)

// List event names, emitted through the node's event sink.
const (
	EventScroll      = "scroll"
	EventScrollStart = "scrollstart"
	EventScrollStop  = "scrollstop"
	EventReachStart  = "reachstart"
	EventReachEnd    = "reachend"
	EventScrollIndex = "scrollindex"
)

var listDefaults = map[string]any{
	AttrHorizontal:    false,
	AttrScrollEnabled: true,
	AttrCachedCount:   0,
	AttrEdgeEffect:    true,
}

// ListNode is a scrollable list. Children are laid out by the frames they
// receive; the list only tracks its scroll offset against them.
type ListNode struct {
	Node
	offset geometry.Point
}

// NewListNode returns a list node.
func NewListNode(tag uint32, viewName string) *ListNode {
	l := &ListNode{}
	l.init(l, tag, viewName, listDefaults)
	return l
}

// Offset returns the current scroll offset.
func (l *ListNode) Offset() geometry.Point { return l.offset }

// SetAttribute handles the list attributes and defers the rest to Node.
func (l *ListNode) SetAttribute(name string, value any) error {
	if l.destroyed {
		return ErrDestroyed
	}
	if err, ok := l.failures[name]; ok {
		return err
	}
	switch name {
	case AttrScrollOffset:
		if value == nil {
			l.scrollTo(geometry.Point{})
			return nil
		}
		p, err := toPoint(value)
		if err != nil {
			return err
		}
		l.scrollTo(p)
		return nil
	case AttrHorizontal, AttrScrollEnabled, AttrEdgeEffect:
		if value != nil {
			if _, ok := value.(bool); !ok {
				return fmt.Errorf("%w: %s wants bool, got %T", native.ErrInvalidArguments, name, value)
			}
		}
	case AttrCachedCount:
		if value != nil {
			n, ok := toFloat(value)
			if !ok || n < 0 {
				return fmt.Errorf("%w: %s wants a non-negative number, got %v", native.ErrInvalidArguments, name, value)
			}
			value = int(n)
		}
	}
	l.store(name, value)
	return nil
}

// GetAttribute reports the live scroll offset under AttrScrollOffset.
func (l *ListNode) GetAttribute(name string) (any, bool) {
	if name == AttrScrollOffset {
		return map[string]any{"x": l.offset.X, "y": l.offset.Y}, true
	}
	return l.Node.GetAttribute(name)
}

// CallUIFunction implements the list functions on top of the generic ones.
func (l *ListNode) CallUIFunction(name string, params []any, reply native.Reply) error {
	if l.destroyed {
		return ErrDestroyed
	}
	if fn, ok := l.funcs[name]; ok {
		return fn(params, reply)
	}
	switch name {
	case "scrollToIndex":
		// params: xIndex, yIndex, animated
		idx := 0
		axis := 1
		if l.horizontal() {
			axis = 0
		}
		if axis < len(params) {
			if v, ok := toFloat(params[axis]); ok {
				idx = int(v)
			}
		}
		if idx < 0 || idx >= len(l.children) {
			return fmt.Errorf("%w: index %d out of range [0,%d)", native.ErrInvalidArguments, idx, len(l.children))
		}
		l.scrollTo(l.children[idx].Frame().Origin())
		reply(native.CallbackSuccess, nil)
		return nil
	case "scrollToContentOffset":
		// params: x, y, animated
		var p geometry.Point
		if len(params) > 0 {
			p.X, _ = toFloat(params[0])
		}
		if len(params) > 1 {
			p.Y, _ = toFloat(params[1])
		}
		l.scrollTo(p)
		reply(native.CallbackSuccess, nil)
		return nil
	case "getScrollOffset":
		reply(native.CallbackSuccess, map[string]any{"x": l.offset.X, "y": l.offset.Y})
		return nil
	}
	return l.callBuiltin(name, reply)
}

// ScrollBy simulates a user drag by d.
func (l *ListNode) ScrollBy(d geometry.Point) {
	if enabled, _ := l.attrs[AttrScrollEnabled].(bool); !enabled {
		return
	}
	l.scrollTo(geometry.Point{X: l.offset.X + d.X, Y: l.offset.Y + d.Y})
}

func (l *ListNode) horizontal() bool {
	h, _ := l.attrs[AttrHorizontal].(bool)
	return h
}

// scrollTo clamps p to the content extent and emits the scroll events.
func (l *ListNode) scrollTo(p geometry.Point) {
	maxOff := l.maxOffset()
	if l.horizontal() {
		p.Y = 0
		p.X = clamp(p.X, 0, maxOff)
	} else {
		p.X = 0
		p.Y = clamp(p.Y, 0, maxOff)
	}
	if p == l.offset {
		return
	}
	l.offset = p
	l.Emit(native.Event{Name: EventScrollStart})
	l.Emit(native.Event{Name: EventScroll, Params: map[string]any{"x": p.X, "y": p.Y}})
	first, last := l.visibleRange()
	if first >= 0 {
		l.Emit(native.Event{Name: EventScrollIndex, Params: map[string]any{
			"firstIndex": first, "lastIndex": last, "centerIndex": (first + last) / 2,
		}})
	}
	l.Emit(native.Event{Name: EventScrollStop})
	pos := p.Y
	if l.horizontal() {
		pos = p.X
	}
	if pos == 0 {
		l.Emit(native.Event{Name: EventReachStart})
	}
	if pos == maxOff {
		l.Emit(native.Event{Name: EventReachEnd})
	}
}

// maxOffset is the content extent minus the viewport along the scroll axis.
func (l *ListNode) maxOffset() float64 {
	var extent float64
	for _, c := range l.children {
		f := c.Frame()
		if l.horizontal() {
			extent = max(extent, f.Right())
		} else {
			extent = max(extent, f.Bottom())
		}
	}
	viewport := l.frame.Height
	if l.horizontal() {
		viewport = l.frame.Width
	}
	return max(extent-viewport, 0)
}

// visibleRange returns the first and last child indexes intersecting the
// viewport, or -1, -1.
func (l *ListNode) visibleRange() (int, int) {
	first, last := -1, -1
	start, size := l.offset.Y, l.frame.Height
	if l.horizontal() {
		start, size = l.offset.X, l.frame.Width
	}
	for i, c := range l.children {
		f := c.Frame()
		lo, hi := f.Y, f.Bottom()
		if l.horizontal() {
			lo, hi = f.X, f.Right()
		}
		if hi > start && lo < start+size {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}

func toPoint(v any) (geometry.Point, error) {
	switch p := v.(type) {
	case geometry.Point:
		return p, nil
	case map[string]any:
		x, _ := toFloat(p["x"])
		y, _ := toFloat(p["y"])
		return geometry.Point{X: x, Y: y}, nil
	case []any:
		if len(p) == 2 {
			x, okx := toFloat(p[0])
			y, oky := toFloat(p[1])
			if okx && oky {
				return geometry.Point{X: x, Y: y}, nil
			}
		}
	default:
		if n, ok := toFloat(v); ok {
			return geometry.Point{Y: n}, nil
		}
	}
	return geometry.Point{}, fmt.Errorf("%w: scrollOffset wants {x,y}, got %v", native.ErrInvalidArguments, v)
}
