package testutil

import (
	"sync"
	"time"
)

// FakeTimer is a scripted replacement for time.After.
//
// Every requested delay is recorded. In immediate mode the returned channel
// fires at once, so a poll loop runs without wall-clock waits. In holding
// mode the channels stay silent until Release, which parks pollers between
// ticks.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeTimer struct {
	mu     sync.Mutex
	delays []time.Duration
	hold   bool
	held   []chan time.Time
}

// NewFakeTimer creates a timer that fires immediately.
func NewFakeTimer() *FakeTimer {
	return &FakeTimer{}
}

// NewHoldingTimer creates a timer that never fires until Release is called.
func NewHoldingTimer() *FakeTimer {
	return &FakeTimer{hold: true}
}

// After records d and returns a channel that fires according to the mode.
func (f *FakeTimer) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.delays = append(f.delays, d)
	ch := make(chan time.Time, 1)
	if f.hold {
		f.held = append(f.held, ch)
		return ch
	}
	ch <- time.Time{}
	return ch
}

// Delays returns every delay requested so far, in call order.
func (f *FakeTimer) Delays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.delays))
	copy(out, f.delays)
	return out
}

// Held returns how many channels are waiting for Release.
func (f *FakeTimer) Held() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.held)
}

// Release fires every held channel and switches to immediate mode.
func (f *FakeTimer) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.held {
		ch <- time.Time{}
	}
	f.held = nil
	f.hold = false
}
