package renderer

import (
	"sync"

	"github.com/go-drift/nativerender/pkg/geometry"
	"github.com/go-drift/nativerender/pkg/native"
)

// Event is a native event on its way to the script layer.
type Event struct {
	RootID  uint32
	Tag     uint32
	Name    string
	Params  any
	Capture bool
	Bubble  bool
	Type    native.EventType
}

// Callback is a UI function result on its way to the script layer.
type Callback struct {
	Result     int
	CallbackID uint32
	FuncName   string
	RootID     uint32
	Tag        uint32
	Params     any
}

// SizeUpdate is a measured size for a root (Tag 0) or a node.
type SizeUpdate struct {
	RootID uint32
	Tag    uint32
	Size   geometry.Size
	Sync   bool
}

// Upstream receives the one-way calls the renderer makes toward the script
// layer. Nothing is returned; responses arrive later as unrelated inbound
// calls.
type Upstream interface {
	DispatchEvent(ev Event)
	DoCallback(cb Callback)
	UpdateSize(s SizeUpdate)
}

// NopUpstream drops everything.
type NopUpstream struct{}

func (NopUpstream) DispatchEvent(Event) {}
func (NopUpstream) DoCallback(Callback) {}
func (NopUpstream) UpdateSize(SizeUpdate) {}

// Recorder is an Upstream that keeps every call, for tests and the CLI.
type Recorder struct {
	mu        sync.Mutex
	events    []Event
	callbacks []Callback
	sizes     []SizeUpdate
}

// DispatchEvent records ev.
func (r *Recorder) DispatchEvent(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// DoCallback records cb.
func (r *Recorder) DoCallback(cb Callback) {
	r.mu.Lock()
	r.callbacks = append(r.callbacks, cb)
	r.mu.Unlock()
}

// UpdateSize records s.
func (r *Recorder) UpdateSize(s SizeUpdate) {
	r.mu.Lock()
	r.sizes = append(r.sizes, s)
	r.mu.Unlock()
}

// Events returns the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Callbacks returns the recorded callbacks.
func (r *Recorder) Callbacks() []Callback {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Callback(nil), r.callbacks...)
}

// Sizes returns the recorded size updates.
func (r *Recorder) Sizes() []SizeUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SizeUpdate(nil), r.sizes...)
}

// Reset clears everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events, r.callbacks, r.sizes = nil, nil, nil
	r.mu.Unlock()
}
