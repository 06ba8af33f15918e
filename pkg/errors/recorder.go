package errors

import "sync"

// Recorder is an ErrorHandler that keeps every report in memory.
// Tests install it to assert on log-and-continue failures.
type Recorder struct {
	mu     sync.Mutex
	errs   []*RenderError
	panics []*PanicError
}

// HandleError records err.
func (r *Recorder) HandleError(err *RenderError) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

// HandlePanic records err.
func (r *Recorder) HandlePanic(err *PanicError) {
	r.mu.Lock()
	r.panics = append(r.panics, err)
	r.mu.Unlock()
}

// Errors returns a copy of the recorded errors.
func (r *Recorder) Errors() []*RenderError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*RenderError(nil), r.errs...)
}

// Panics returns a copy of the recorded panics.
func (r *Recorder) Panics() []*PanicError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*PanicError(nil), r.panics...)
}

// ErrorsOfKind returns the recorded errors with the given kind.
func (r *Recorder) ErrorsOfKind(kind ErrorKind) []*RenderError {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*RenderError
	for _, e := range r.errs {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// InstallRecorder replaces the global handler with a fresh Recorder and
// registers a cleanup restoring the previous handler.
//
//	rec := errors.InstallRecorder(t.Cleanup)
func InstallRecorder(cleanup func(func())) *Recorder {
	rec := &Recorder{}
	prev := getHandler()
	SetHandler(rec)
	cleanup(func() { SetHandler(prev) })
	return rec
}
