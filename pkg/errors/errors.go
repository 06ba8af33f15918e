// Package errors provides structured error reporting for the native renderer.
//
// Failures inside a batch apply are reported here and the batch keeps going,
// so callers never see them as returned errors. Install a handler with
// SetHandler to route them somewhere other than stderr.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindUnknownRoot indicates an operation addressed a root with no live context.
	KindUnknownRoot
	// KindUnknownNode indicates a mutation referenced a tag that does not exist.
	KindUnknownNode
	// KindNative indicates the native node adapter failed to apply a change.
	KindNative
	// KindCodec indicates a value could not be encoded for the boundary.
	KindCodec
	// KindScript indicates a failure inside the script bridge.
	KindScript
	// KindConfig indicates an invalid configuration.
	KindConfig
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnknownRoot:
		return "unknown-root"
	case KindUnknownNode:
		return "unknown-node"
	case KindNative:
		return "native"
	case KindCodec:
		return "codec"
	case KindScript:
		return "script"
	case KindConfig:
		return "config"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// RenderError represents a structured error in the renderer.
type RenderError struct {
	// Op is the operation that failed (e.g., "viewmanager.applyCreate").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// RootID is the root the operation targeted, zero if not applicable.
	RootID uint32
	// Tag is the node the operation targeted, zero if not applicable.
	Tag uint32
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *RenderError) Error() string {
	switch {
	case e.RootID != 0 && e.Tag != 0:
		return fmt.Sprintf("%s [%s] root=%d tag=%d: %v", e.Op, e.Kind, e.RootID, e.Tag, e.Err)
	case e.RootID != 0:
		return fmt.Sprintf("%s [%s] root=%d: %v", e.Op, e.Kind, e.RootID, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "uithread.run").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler receives errors reported by the renderer.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *RenderError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
