// Package uithread provides the single logical UI execution context. Every
// view manager and native node operation runs on it, one task at a time,
// in post order.
package uithread

import (
	"context"
	"errors"
	"sync"

	nrerrors "github.com/go-drift/nativerender/pkg/errors"
)

// ErrStopped is returned by PostSync after the loop has stopped.
var ErrStopped = errors.New("uithread: loop stopped")

// Executor runs tasks on the UI context.
type Executor interface {
	// Post queues fn and reports whether it was accepted.
	Post(fn func()) bool

	// PostSync queues fn and waits for it to finish. It must not be called
	// from a task running on the same executor.
	PostSync(ctx context.Context, fn func()) error
}

// Loop is a FIFO task queue drained by one goroutine. Before Start, tasks
// accumulate and can be run manually with Drain.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	started bool
	stopped bool
}

// NewLoop returns a loop that has not been started.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post queues fn. It returns false once the loop is stopped or when fn is
// nil.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// PostSync queues fn and blocks until it has run, ctx is done, or the loop
// stops without running it.
func (l *Loop) PostSync(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Start launches the draining goroutine. Calling Start twice is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.started || l.stopped {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()
	go l.run()
}

// Stop refuses further posts, lets the goroutine finish the tasks already
// queued, and waits for it to exit. On a loop that was never started the
// queued tasks are discarded.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.stopped = true
	started := l.started
	if !started {
		l.queue = nil
	}
	l.mu.Unlock()

	if !started {
		close(l.done)
		return
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}

// Drain runs queued tasks on the calling goroutine until the queue is
// empty, including tasks posted by the tasks themselves. It returns the
// number of tasks run. Drain is for loops that were not started.
func (l *Loop) Drain() int {
	n := 0
	for {
		batch := l.take()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			runTask(fn)
			n++
		}
	}
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()
	return batch
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		for _, fn := range l.take() {
			runTask(fn)
		}
		l.mu.Lock()
		exit := l.stopped && len(l.queue) == 0
		l.mu.Unlock()
		if exit {
			return
		}
		<-l.wake
	}
}

func runTask(fn func()) {
	defer nrerrors.Recover("uithread.task")
	fn()
}

// Inline runs every task immediately on the posting goroutine. It suits
// callers that are already on the UI context, such as tests and the
// replay command.
type Inline struct{}

// Post runs fn now.
func (Inline) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	runTask(fn)
	return true
}

// PostSync runs fn now.
func (Inline) PostSync(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runTask(fn)
	return nil
}
