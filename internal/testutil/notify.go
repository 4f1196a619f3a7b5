package testutil

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/jobwatch/internal/notify"
)

// Notification kinds recorded by NotifyRecorder.
const (
	KindLoading  = "loading"
	KindProgress = "progress"
	KindUpdate   = "update"
	KindHide     = "hide"
	KindSuccess  = "success"
	KindError    = "error"
)

// NotifyEvent is one call made on a NotifyRecorder.
type NotifyEvent struct {
	Kind     string
	Handle   notify.Handle
	Message  string
	Progress *int
}

// NotifyRecorder is a notify.Notifier that records every call.
//
// Updates to hidden handles are still recorded (so tests can detect them)
// but never make a handle visible again.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type NotifyRecorder struct {
	mu      sync.Mutex
	next    notify.Handle
	visible map[notify.Handle]bool
	events  []NotifyEvent
}

// NewNotifyRecorder creates an empty recorder.
func NewNotifyRecorder() *NotifyRecorder {
	return &NotifyRecorder{visible: make(map[notify.Handle]bool)}
}

// Loading implements notify.Notifier.
func (r *NotifyRecorder) Loading(message string) notify.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.visible[r.next] = true
	r.events = append(r.events, NotifyEvent{Kind: KindLoading, Handle: r.next, Message: message})
	return r.next
}

// Progress implements notify.Notifier.
func (r *NotifyRecorder) Progress(message string, percent int) notify.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.visible[r.next] = true
	p := percent
	r.events = append(r.events, NotifyEvent{Kind: KindProgress, Handle: r.next, Message: message, Progress: &p})
	return r.next
}

// UpdateToast implements notify.Notifier.
func (r *NotifyRecorder) UpdateToast(h notify.Handle, u notify.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev := NotifyEvent{Kind: KindUpdate, Handle: h, Message: u.Message}
	if u.Progress != nil {
		p := *u.Progress
		ev.Progress = &p
	}
	r.events = append(r.events, ev)
}

// HideToast implements notify.Notifier.
func (r *NotifyRecorder) HideToast(h notify.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.visible, h)
	r.events = append(r.events, NotifyEvent{Kind: KindHide, Handle: h})
}

// Success implements notify.Notifier.
func (r *NotifyRecorder) Success(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, NotifyEvent{Kind: KindSuccess, Message: message})
}

// Error implements notify.Notifier.
func (r *NotifyRecorder) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, NotifyEvent{Kind: KindError, Message: message})
}

// Events returns a copy of every recorded call.
func (r *NotifyRecorder) Events() []NotifyEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NotifyEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Filter returns the recorded calls of one kind.
func (r *NotifyRecorder) Filter(kind string) []NotifyEvent {
	var out []NotifyEvent
	for _, ev := range r.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Messages returns the messages of every call of one kind.
func (r *NotifyRecorder) Messages(kind string) []string {
	var out []string
	for _, ev := range r.Filter(kind) {
		out = append(out, ev.Message)
	}
	return out
}

// Visible returns the handles not yet hidden, in issue order.
func (r *NotifyRecorder) Visible() []notify.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Handle, 0, len(r.visible))
	for h := range r.visible {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Lines renders the recorded calls one per line for golden comparison.
func (r *NotifyRecorder) Lines() []string {
	events := r.Events()
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, ev.String())
	}
	return lines
}

// String renders a single event.
func (ev NotifyEvent) String() string {
	switch ev.Kind {
	case KindLoading, KindProgress, KindUpdate:
		s := fmt.Sprintf("%s #%d", ev.Kind, ev.Handle)
		if ev.Progress != nil {
			s += fmt.Sprintf(" %d%%", *ev.Progress)
		}
		if ev.Message != "" {
			s += " " + ev.Message
		}
		return s
	case KindHide:
		return fmt.Sprintf("hide #%d", ev.Handle)
	default:
		return ev.Kind + " " + ev.Message
	}
}

// RouterRecorder is a notify.Router that records every path pushed.
type RouterRecorder struct {
	mu    sync.Mutex
	paths []string
}

// NewRouterRecorder creates an empty recorder.
func NewRouterRecorder() *RouterRecorder {
	return &RouterRecorder{}
}

// Push implements notify.Router.
func (r *RouterRecorder) Push(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Paths returns every pushed path in order.
func (r *RouterRecorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.paths))
	copy(out, r.paths)
	return out
}
