package mutation

import (
	"maps"
	"slices"
)

// StyleKey is the prop whose map value holds style attributes.
const StyleKey = "style"

// Props maps attribute names to values.
type Props map[string]any

// Clone returns a deep copy of p. Nested maps are copied; other values are
// shared. Clone of nil is nil.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		if m, ok := asMap(v); ok {
			out[k] = map[string]any(Props(m).Clone())
			continue
		}
		out[k] = v
	}
	return out
}

// Merge returns p with delta applied: keys merge and the delta wins. When
// both sides hold maps they merge recursively. A nil value in delta
// deletes the key. Neither input is modified.
func (p Props) Merge(delta Props) Props {
	out := p.Clone()
	if out == nil {
		out = make(Props, len(delta))
	}
	for k, v := range delta {
		if v == nil {
			delete(out, k)
			continue
		}
		if dm, ok := asMap(v); ok {
			if cur, ok := asMap(out[k]); ok {
				out[k] = map[string]any(Props(cur).Merge(dm))
				continue
			}
			out[k] = map[string]any(Props(dm).Clone())
			continue
		}
		out[k] = v
	}
	return out
}

// Flatten lifts the entries of the style map to the top level. Style
// entries override same-named top-level props.
func (p Props) Flatten() Props {
	out := make(Props, len(p))
	for k, v := range p {
		if k == StyleKey {
			continue
		}
		out[k] = v
	}
	if style, ok := asMap(p[StyleKey]); ok {
		maps.Copy(out, style)
	} else if v, ok := p[StyleKey]; ok {
		out[StyleKey] = v
	}
	return out
}

// Keys returns the keys of p in sorted order.
func (p Props) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Props:
		return m, true
	}
	return nil, false
}
