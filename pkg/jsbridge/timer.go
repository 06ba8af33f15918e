package jsbridge

import (
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"

	nrerrors "github.com/go-drift/nativerender/pkg/errors"
)

// TimerModule keeps script timers keyed by a caller-chosen call id, so the
// caller can clear a timer without holding the timer handle. Setting a
// timer under an id that is already in use clears the previous one.
//
// All methods must run on the loop goroutine.
type TimerModule struct {
	loop   *eventloop.EventLoop
	timers map[string]func()
}

// NewTimerModule returns a timer module scheduling on loop.
func NewTimerModule(loop *eventloop.EventLoop) *TimerModule {
	return &TimerModule{loop: loop, timers: make(map[string]func())}
}

// SetTimeout runs fn once after d.
func (m *TimerModule) SetTimeout(d time.Duration, callID string, fn func(*goja.Runtime)) {
	m.Clear(callID)
	t := m.loop.SetTimeout(func(vm *goja.Runtime) {
		delete(m.timers, callID)
		fn(vm)
	}, d)
	m.timers[callID] = func() { m.loop.ClearTimeout(t) }
}

// SetInterval runs fn every d until cleared.
func (m *TimerModule) SetInterval(d time.Duration, callID string, fn func(*goja.Runtime)) {
	m.Clear(callID)
	i := m.loop.SetInterval(fn, d)
	m.timers[callID] = func() { m.loop.ClearInterval(i) }
}

// Clear cancels the timer or interval for callID, if any.
func (m *TimerModule) Clear(callID string) {
	if cancel, ok := m.timers[callID]; ok {
		cancel()
		delete(m.timers, callID)
	}
}

// Len returns the number of live timers.
func (m *TimerModule) Len() int { return len(m.timers) }

func (m *TimerModule) object(vm *goja.Runtime) *goja.Object {
	obj := vm.NewObject()
	schedule := func(name string, set func(time.Duration, string, func(*goja.Runtime))) {
		_ = obj.Set(name, func(call goja.FunctionCall) goja.Value {
			fn, ok := goja.AssertFunction(call.Argument(2))
			if !ok {
				panic(vm.NewTypeError("%s: handler must be a function", name))
			}
			d := time.Duration(call.Argument(0).ToFloat() * float64(time.Millisecond))
			callID := call.Argument(1).String()
			set(max(d, 0), callID, func(*goja.Runtime) {
				if _, err := fn(goja.Undefined()); err != nil {
					nrerrors.ReportNode("jsbridge.timer", nrerrors.KindScript, 0, 0, err)
				}
			})
			return goja.Undefined()
		})
	}
	clearFn := func(call goja.FunctionCall) goja.Value {
		m.Clear(call.Argument(0).String())
		return goja.Undefined()
	}
	schedule("setTimeout", m.SetTimeout)
	schedule("setInterval", m.SetInterval)
	_ = obj.Set("clearTimeout", clearFn)
	_ = obj.Set("clearInterval", clearFn)
	return obj
}
