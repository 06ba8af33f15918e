// Package jsbridge exposes the renderer to scripts running on a goja
// runtime. A script drives rendering through the nativeRender object and
// receives events, UI function results and sizes through handlers it sets
// on the same object.
//
// The goja runtime is not goroutine-safe. Script calls are converted to
// mutations on the event loop goroutine and then posted to the UI
// executor; outbound calls from the renderer are posted back onto the
// event loop.
package jsbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"

	nrerrors "github.com/go-drift/nativerender/pkg/errors"
	"github.com/go-drift/nativerender/pkg/mutation"
	"github.com/go-drift/nativerender/pkg/native"
	"github.com/go-drift/nativerender/pkg/renderer"
	"github.com/go-drift/nativerender/pkg/rootregistry"
	"github.com/go-drift/nativerender/pkg/uithread"
)

const (
	// GlobalName is the global the bridge object is installed under.
	GlobalName = "nativeRender"

	// ModuleName is the require() name of the bridge object.
	ModuleName = "nativerender"

	// TimerModuleName is the require() name of the timer module.
	TimerModuleName = "nativerender/timer"

	// TimerGlobalName is the global the timer module is installed under.
	TimerGlobalName = "TimerModule"
)

// Handler properties a script may set on the bridge object.
const (
	HandlerEvent    = "onEvent"
	HandlerCallback = "onCallback"
	HandlerSize     = "onSize"
)

// ErrLoopNotRunning is returned when the event loop refuses a job.
var ErrLoopNotRunning = errors.New("jsbridge: event loop not running")

// Bridge connects a goja event loop to a renderer.
type Bridge struct {
	loop     *eventloop.EventLoop
	ui       uithread.Executor
	renderer *renderer.Renderer
	surfaces renderer.SurfaceFunc
	logger   *slog.Logger
	timers   *TimerModule

	rendererOpts []renderer.Option

	// api is the nativeRender object; only touched on the loop goroutine.
	api *goja.Object
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithSurfaces sets the surface source used by registerSurface.
func WithSurfaces(fn renderer.SurfaceFunc) Option {
	return func(b *Bridge) { b.surfaces = fn }
}

// WithRendererOptions passes options to the renderer the bridge builds.
func WithRendererOptions(opts ...renderer.Option) Option {
	return func(b *Bridge) { b.rendererOpts = append(b.rendererOpts, opts...) }
}

// New returns a bridge that drives a renderer over roots. The bridge is
// the renderer's upstream. Install must run on the loop before scripts use
// the global, or Register must add the modules to the loop's registry.
func New(loop *eventloop.EventLoop, ui uithread.Executor, roots *rootregistry.Registry, opts ...Option) *Bridge {
	b := &Bridge{
		loop:   loop,
		ui:     ui,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.timers = NewTimerModule(loop)
	b.renderer = renderer.New(roots, b, append([]renderer.Option{renderer.WithLogger(b.logger)}, b.rendererOpts...)...)
	return b
}

// Renderer returns the renderer driven by the bridge. Its methods must run
// on the UI executor.
func (b *Bridge) Renderer() *renderer.Renderer { return b.renderer }

// Timers returns the timer module.
func (b *Bridge) Timers() *TimerModule { return b.timers }

// Register adds the bridge and timer modules to reg.
func (b *Bridge) Register(reg *require.Registry) {
	reg.RegisterNativeModule(ModuleName, func(vm *goja.Runtime, module *goja.Object) {
		_ = module.Set("exports", b.object(vm))
	})
	reg.RegisterNativeModule(TimerModuleName, func(vm *goja.Runtime, module *goja.Object) {
		_ = module.Set("exports", b.timers.object(vm))
	})
}

// Install sets the nativeRender and TimerModule globals on vm. It must run
// on the loop goroutine.
func (b *Bridge) Install(vm *goja.Runtime) error {
	if err := vm.Set(GlobalName, b.object(vm)); err != nil {
		return err
	}
	return vm.Set(TimerGlobalName, b.timers.object(vm))
}

// RunScript compiles and runs src on the loop and waits for it to finish.
func (b *Bridge) RunScript(ctx context.Context, name, src string) error {
	return b.Run(ctx, func(vm *goja.Runtime) error {
		prg, err := goja.Compile(name, src, true)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", name, err)
		}
		if _, err := vm.RunProgram(prg); err != nil {
			return fmt.Errorf("failed to run %s: %w", name, err)
		}
		return nil
	})
}

// Settle waits until everything already posted to the UI executor has run
// and every outbound call it produced has been delivered to the script.
func (b *Bridge) Settle(ctx context.Context) error {
	if err := b.ui.PostSync(ctx, func() {}); err != nil {
		return err
	}
	return b.Run(ctx, func(*goja.Runtime) error { return nil })
}

// Run calls fn on the loop goroutine and waits for it to return.
func (b *Bridge) Run(ctx context.Context, fn func(*goja.Runtime) error) error {
	errCh := make(chan error, 1)
	if !b.loop.RunOnLoop(func(vm *goja.Runtime) { errCh <- fn(vm) }) {
		return ErrLoopNotRunning
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// object returns the nativeRender object for vm, creating it once.
func (b *Bridge) object(vm *goja.Runtime) *goja.Object {
	if b.api != nil {
		return b.api
	}
	obj := vm.NewObject()
	r := b.renderer

	b.set(vm, obj, "createRoot", func(a args) {
		root := a.tag(0)
		b.post(func() {
			if err := r.CreateRoot(root); err != nil {
				b.report("createRoot", nrerrors.KindUnknownRoot, root, err)
			}
		})
	})
	b.set(vm, obj, "destroyRoot", func(a args) {
		root := a.tag(0)
		b.post(func() { r.DestroyRoot(root) })
	})
	b.set(vm, obj, "registerSurface", func(a args) {
		root := a.tag(0)
		if b.surfaces == nil {
			panic(vm.NewTypeError("registerSurface: no surfaces configured"))
		}
		b.post(func() {
			s := b.surfaces(root)
			if s == nil {
				return
			}
			if err := r.RegisterNativeSurfaceHandle(s, root); err != nil {
				b.report("registerSurface", nrerrors.KindNative, root, err)
			}
		})
	})
	b.set(vm, obj, "createNode", func(a args) {
		root, ms := a.tag(0), a.createMutations(1)
		b.post(func() { r.CreateNode(root, ms) })
	})
	b.set(vm, obj, "updateNode", func(a args) {
		root, ms := a.tag(0), a.updateMutations(1)
		b.post(func() { r.UpdateNode(root, ms) })
	})
	b.set(vm, obj, "moveNode", func(a args) {
		root, pid := a.tag(0), a.tag(1)
		ms := a.moveMutations(pid, 2)
		b.post(func() {
			for _, m := range ms {
				r.MoveNode(root, m)
			}
		})
	})
	b.set(vm, obj, "moveNode2", func(a args) {
		root := a.tag(0)
		m := mutation.MoveBatchFrom(a.tags(1), a.tag(2), a.tag(3), a.index(4, -1))
		b.post(func() { r.MoveNode2(root, m) })
	})
	b.set(vm, obj, "deleteNode", func(a args) {
		root, tags := a.tag(0), a.tags(1)
		b.post(func() { r.DeleteNode(root, []mutation.Mutation{mutation.Delete(tags...)}) })
	})
	b.set(vm, obj, "updateLayout", func(a args) {
		root, m := a.tag(0), a.layoutMutation(1)
		b.post(func() { r.UpdateLayout(root, []mutation.Mutation{m}) })
	})
	b.set(vm, obj, "updateEventListener", func(a args) {
		root, m := a.tag(0), a.listenerMutation(1)
		b.post(func() { r.UpdateEventListener(root, []mutation.Mutation{m}) })
	})
	b.set(vm, obj, "endBatch", func(a args) {
		root := a.tag(0)
		b.post(func() { r.EndBatch(root) })
	})
	b.set(vm, obj, "callUIFunction", func(a args) {
		root, tag, cbID := a.tag(0), a.tag(1), a.tag(2)
		name := a.value(3).String()
		params := a.list(4)
		b.post(func() { r.CallUIFunction(root, tag, cbID, name, params) })
	})
	b.set(vm, obj, "onSizeChanged", func(a args) {
		root, w, h := a.tag(0), a.float(1), a.float(2)
		b.post(func() { r.OnSize(root, w, h) })
	})
	b.set(vm, obj, "onSizeChanged2", func(a args) {
		root, tag, w, h := a.tag(0), a.tag(1), a.float(2), a.float(3)
		sync := a.call.Argument(4).ToBoolean()
		b.post(func() { r.OnSize2(root, tag, w, h, sync) })
	})
	b.set(vm, obj, "dispatchEvent", func(a args) {
		root, tag := a.tag(0), a.tag(1)
		name := a.value(2).String()
		params := a.call.Argument(3).Export()
		b.post(func() { r.DispatchEvent(root, tag, name, params, false, true, native.EventTypeNormal) })
	})

	b.api = obj
	return obj
}

// set installs a void function on obj. fn reads its arguments through a
// and throws into the script on bad input.
func (b *Bridge) set(vm *goja.Runtime, obj *goja.Object, name string, fn func(a args)) {
	_ = obj.Set(name, func(call goja.FunctionCall) goja.Value {
		fn(args{vm: vm, fn: name, call: call})
		return goja.Undefined()
	})
}

func (b *Bridge) post(fn func()) {
	if !b.ui.Post(fn) {
		b.logger.Warn("ui executor refused a render call")
	}
}

// DispatchEvent delivers ev to the script's onEvent handler.
func (b *Bridge) DispatchEvent(ev renderer.Event) {
	b.deliver(HandlerEvent, ev.RootID, map[string]any{
		"rootId":  ev.RootID,
		"id":      ev.Tag,
		"name":    ev.Name,
		"params":  ev.Params,
		"capture": ev.Capture,
		"bubble":  ev.Bubble,
		"type":    ev.Type.String(),
	})
}

// DoCallback delivers cb to the script's onCallback handler.
func (b *Bridge) DoCallback(cb renderer.Callback) {
	b.deliver(HandlerCallback, cb.RootID, map[string]any{
		"result":     cb.Result,
		"callbackId": cb.CallbackID,
		"funcName":   cb.FuncName,
		"rootId":     cb.RootID,
		"id":         cb.Tag,
		"params":     cb.Params,
	})
}

// UpdateSize delivers s to the script's onSize handler.
func (b *Bridge) UpdateSize(s renderer.SizeUpdate) {
	b.deliver(HandlerSize, s.RootID, map[string]any{
		"rootId": s.RootID,
		"id":     s.Tag,
		"width":  s.Size.Width,
		"height": s.Size.Height,
		"sync":   s.Sync,
	})
}

func (b *Bridge) deliver(handler string, rootID uint32, payload map[string]any) {
	ok := b.loop.RunOnLoop(func(vm *goja.Runtime) {
		if b.api == nil {
			return
		}
		fn, ok := goja.AssertFunction(b.api.Get(handler))
		if !ok {
			return
		}
		if _, err := fn(b.api, vm.ToValue(payload)); err != nil {
			b.report(handler, nrerrors.KindScript, rootID, err)
		}
	})
	if !ok {
		b.logger.Debug("dropped outbound call, loop stopped", "handler", handler, "root", rootID)
	}
}

func (b *Bridge) report(op string, kind nrerrors.ErrorKind, rootID uint32, err error) {
	nrerrors.ReportNode("jsbridge."+op, kind, rootID, 0, err)
}
