package errors

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// handlerBox lets an interface value live in an atomic.Pointer.
type handlerBox struct{ h ErrorHandler }

// current is the process-wide handler. Reports arrive from the UI loop, the
// script loop and teardown paths at once, so it is swapped atomically.
var current atomic.Pointer[handlerBox]

func init() {
	current.Store(&handlerBox{h: &LogHandler{}})
}

// SetHandler installs the handler that receives every render error and
// recovered panic. Nil restores a quiet LogHandler on stderr.
func SetHandler(h ErrorHandler) {
	if h == nil {
		h = &LogHandler{}
	}
	current.Store(&handlerBox{h: h})
}

func getHandler() ErrorHandler {
	return current.Load().h
}

// Report hands err to the installed handler, stamping it if needed.
// Unknown-root conditions are not errors and must not be reported.
func Report(err *RenderError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	getHandler().HandleError(err)
}

// ReportNode reports err against one node of one root. A zero tag means
// the whole root.
func ReportNode(op string, kind ErrorKind, rootID, tag uint32, err error) {
	Report(&RenderError{Op: op, Kind: kind, RootID: rootID, Tag: tag, Err: err})
}

// ReportPanic hands a recovered panic to the installed handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	getHandler().HandlePanic(err)
}

// Recover reports a panic in the deferring function and swallows it, so one
// bad mutation or UI task cannot take down the loop applying it.
//
//	defer errors.Recover("viewmanager.apply")
func Recover(op string) {
	if r := recover(); r != nil {
		reportRecovered(op, r)
	}
}

// RecoverWithCallback is Recover followed by callback(r), typically used
// to mark the surrounding operation as failed.
func RecoverWithCallback(op string, callback func(r any)) {
	if r := recover(); r != nil {
		reportRecovered(op, r)
		if callback != nil {
			callback(r)
		}
	}
}

func reportRecovered(op string, r any) {
	ReportPanic(&PanicError{
		Op:         op,
		Value:      r,
		StackTrace: CaptureStack(),
		Timestamp:  time.Now(),
	})
}

// CaptureStack returns the caller's stack, one "function\n\tfile:line"
// entry per frame. Runtime frames and the recovery helpers are left out,
// so a stack captured while recovering starts at the frame that
// panicked.
func CaptureStack() string {
	var pcs [48]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !skipFrame(f.Function) {
			fmt.Fprintf(&sb, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

const pkgPath = "github.com/go-drift/nativerender/pkg/errors."

func skipFrame(fn string) bool {
	if strings.HasPrefix(fn, "runtime.") {
		return true
	}
	switch strings.TrimPrefix(fn, pkgPath) {
	case "CaptureStack", "reportRecovered", "Recover", "RecoverWithCallback":
		return true
	}
	return false
}
