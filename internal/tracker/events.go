package tracker

import (
	"context"
	"errors"
	"time"
)

// EventKind names a lifecycle transition.
type EventKind string

const (
	EventLaunched  EventKind = "launched"
	EventProgress  EventKind = "progress"
	EventRetrying  EventKind = "retrying"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	EventCancelled EventKind = "cancelled"
)

// Terminal reports whether no further events follow for the job.
func (k EventKind) Terminal() bool {
	switch k {
	case EventCompleted, EventFailed, EventCancelled:
		return true
	}
	return false
}

// LifecycleEvent records one transition of a tracked job.
type LifecycleEvent struct {
	// Seq orders events within one Engine (from Clock.Next).
	Seq int64

	JobID      string
	ExternalID string
	Title      string
	Kind       EventKind

	// Progress is set on progress events that reported a percentage.
	Progress *int

	Stage     string
	Message   string
	ArticleID string

	RecordedAt time.Time
}

// Recorder receives lifecycle events. Record errors are logged, never fatal.
type Recorder interface {
	Record(ctx context.Context, ev LifecycleEvent) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, ev LifecycleEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, ev LifecycleEvent) error {
	return f(ctx, ev)
}

// MultiRecorder fans an event out to every recorder, joining their errors.
func MultiRecorder(recorders ...Recorder) Recorder {
	return RecorderFunc(func(ctx context.Context, ev LifecycleEvent) error {
		var errs []error
		for _, r := range recorders {
			if r == nil {
				continue
			}
			if err := r.Record(ctx, ev); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
