package jsbridge

import (
	"math"

	"github.com/dop251/goja"

	"github.com/go-drift/nativerender/pkg/geometry"
	"github.com/go-drift/nativerender/pkg/mutation"
)

// args reads the arguments of one nativeRender call. Every accessor throws a
// TypeError into the script on a bad value, so it must only be used inside
// a function invoked from JS.
type args struct {
	vm   *goja.Runtime
	fn   string
	call goja.FunctionCall
}

func (a args) value(i int) goja.Value {
	v := a.call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		panic(a.vm.NewTypeError("%s: argument %d is required", a.fn, i))
	}
	return v
}

func (a args) tag(i int) uint32 {
	tag, ok := toTag(a.value(i).Export())
	if !ok {
		panic(a.vm.NewTypeError("%s: argument %d must be a non-negative integer", a.fn, i))
	}
	return tag
}

func (a args) index(i int, def int) int {
	v := a.call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return def
	}
	return int(v.ToInteger())
}

func (a args) float(i int) float64 {
	return a.value(i).ToFloat()
}

// entries exports argument i as a list of objects.
func (a args) entries(i int) []map[string]any {
	list, ok := a.value(i).Export().([]any)
	if !ok {
		panic(a.vm.NewTypeError("%s: argument %d must be an array", a.fn, i))
	}
	out := make([]map[string]any, 0, len(list))
	for j, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			panic(a.vm.NewTypeError("%s: entry %d must be an object", a.fn, j))
		}
		out = append(out, m)
	}
	return out
}

// tags exports argument i as a list of tags.
func (a args) tags(i int) []uint32 {
	list, ok := a.value(i).Export().([]any)
	if !ok {
		panic(a.vm.NewTypeError("%s: argument %d must be an array of ids", a.fn, i))
	}
	out := make([]uint32, 0, len(list))
	for j, item := range list {
		tag, ok := toTag(item)
		if !ok {
			panic(a.vm.NewTypeError("%s: id %d is not a valid tag", a.fn, j))
		}
		out = append(out, tag)
	}
	return out
}

// list exports argument i as a plain list. A missing argument is nil and a
// non-array value becomes a one-element list.
func (a args) list(i int) []any {
	v := a.call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	if list, ok := v.Export().([]any); ok {
		return list
	}
	return []any{v.Export()}
}

func (a args) field(m map[string]any, j int, key string) uint32 {
	tag, ok := toTag(m[key])
	if !ok {
		panic(a.vm.NewTypeError("%s: entry %d: %q must be a non-negative integer", a.fn, j, key))
	}
	return tag
}

// createMutations reads [{id, pId, index, name, props}].
func (a args) createMutations(i int) []mutation.Mutation {
	entries := a.entries(i)
	out := make([]mutation.Mutation, 0, len(entries))
	for j, e := range entries {
		name, _ := e["name"].(string)
		if name == "" {
			panic(a.vm.NewTypeError("%s: entry %d: name is required", a.fn, j))
		}
		out = append(out, mutation.Create(a.field(e, j, "id"), optTag(e["pId"]), optInt(e["index"], -1), name, props(e["props"])))
	}
	return out
}

// updateMutations reads [{id, props}].
func (a args) updateMutations(i int) []mutation.Mutation {
	entries := a.entries(i)
	out := make([]mutation.Mutation, 0, len(entries))
	for j, e := range entries {
		out = append(out, mutation.Update(a.field(e, j, "id"), props(e["props"])))
	}
	return out
}

// moveMutations reads [{id, pId, index}]; pid is used when an entry has no
// pId.
func (a args) moveMutations(pid uint32, i int) []mutation.Mutation {
	entries := a.entries(i)
	out := make([]mutation.Mutation, 0, len(entries))
	for j, e := range entries {
		parent := pid
		if _, ok := e["pId"]; ok {
			parent = a.field(e, j, "pId")
		}
		out = append(out, mutation.MoveTo(a.field(e, j, "id"), parent, optInt(e["index"], -1)))
	}
	return out
}

// layoutMutation reads [{id, left, top, width, height}] into one mutation.
func (a args) layoutMutation(i int) mutation.Mutation {
	entries := a.entries(i)
	layouts := make([]mutation.Layout, 0, len(entries))
	for j, e := range entries {
		layouts = append(layouts, mutation.Layout{
			Tag:   a.field(e, j, "id"),
			Frame: geometry.FrameFromLTWH(optFloat(e["left"]), optFloat(e["top"]), optFloat(e["width"]), optFloat(e["height"])),
		})
	}
	return mutation.UpdateLayout(layouts...)
}

// listenerMutation reads [{id, name, add}] into one mutation.
func (a args) listenerMutation(i int) mutation.Mutation {
	entries := a.entries(i)
	listeners := make([]mutation.Listener, 0, len(entries))
	for j, e := range entries {
		name, _ := e["name"].(string)
		if name == "" {
			panic(a.vm.NewTypeError("%s: entry %d: name is required", a.fn, j))
		}
		add, _ := e["add"].(bool)
		listeners = append(listeners, mutation.Listener{Tag: a.field(e, j, "id"), EventName: name, Subscribe: add})
	}
	return mutation.UpdateEventListener(listeners...)
}

func toTag(v any) (uint32, bool) {
	switch n := v.(type) {
	case int64:
		if n >= 0 && n <= math.MaxUint32 {
			return uint32(n), true
		}
	case float64:
		if n >= 0 && n <= math.MaxUint32 && n == math.Trunc(n) {
			return uint32(n), true
		}
	}
	return 0, false
}

func optTag(v any) uint32 {
	tag, _ := toTag(v)
	return tag
}

func optInt(v any, def int) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func optFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func props(v any) mutation.Props {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return mutation.Props(m)
}
