package renderer

import (
	"fmt"

	"github.com/go-drift/nativerender/pkg/mutation"
	"github.com/go-drift/nativerender/pkg/native"
)

// Script step ops that do not carry mutations.
const (
	OpCreateRoot  = "createRoot"
	OpDestroyRoot = "destroyRoot"
	OpEndBatch    = "endBatch"
	OpOnSize      = "onSize"
	OpOnSize2     = "onSize2"
	OpCall        = "call"
	OpEvent       = "event"
	OpCallback    = "callback"
)

// SurfaceFunc returns the surface to attach a root to on createRoot. It may
// return nil to leave the root unattached.
type SurfaceFunc func(rootID uint32) native.Surface

// Replay feeds a recorded script through the renderer, one boundary call
// per step, on the calling goroutine.
func (r *Renderer) Replay(s *mutation.Script, surfaces SurfaceFunc) error {
	for i, step := range s.Steps {
		if err := r.replayStep(step, surfaces); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}
	return nil
}

func (r *Renderer) replayStep(step mutation.Step, surfaces SurfaceFunc) error {
	root := step.Root
	switch step.Op {
	case OpCreateRoot:
		if err := r.CreateRoot(root); err != nil {
			return err
		}
		if surfaces != nil {
			if s := surfaces(root); s != nil {
				return r.RegisterNativeSurfaceHandle(s, root)
			}
		}
		return nil
	case OpDestroyRoot:
		r.DestroyRoot(root)
		return nil
	case OpEndBatch:
		r.EndBatch(root)
		return nil
	case OpOnSize:
		r.OnSize(root, step.Width, step.Height)
		return nil
	case OpOnSize2:
		r.OnSize2(root, step.Node, step.Width, step.Height, step.Sync)
		return nil
	case OpCall:
		r.CallUIFunction(root, step.Node, step.CallbackID, step.Func, step.Params)
		return nil
	case OpEvent:
		var params any
		if len(step.Params) == 1 {
			params = step.Params[0]
		} else if len(step.Params) > 1 {
			params = step.Params
		}
		r.DispatchEvent(root, step.Node, step.Event, params, false, true, native.EventTypeNormal)
		return nil
	case OpCallback:
		var params any
		if len(step.Params) > 0 {
			params = step.Params[0]
		}
		r.DoCallback(native.CallbackSuccess, step.CallbackID, step.Func, root, step.Node, params)
		return nil
	}

	ms, err := step.Mutations()
	if err != nil {
		return err
	}
	switch step.Op {
	case mutation.OpCreate:
		r.CreateNode(root, ms)
	case mutation.OpUpdate:
		r.UpdateNode(root, ms)
	case mutation.OpMove:
		for _, m := range ms {
			r.MoveNode(root, m)
		}
	case mutation.OpMoveBatch:
		for _, m := range ms {
			r.MoveNode2(root, m)
		}
	case mutation.OpDelete:
		r.DeleteNode(root, ms)
	case mutation.OpLayout:
		r.UpdateLayout(root, ms)
	case mutation.OpListen:
		r.UpdateEventListener(root, ms)
	}
	return nil
}
