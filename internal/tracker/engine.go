package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/jobwatch/internal/apiclient"
	"github.com/roach88/jobwatch/internal/notify"
)

// API is the subset of the reading API the engine consumes.
// Implemented by *apiclient.Client.
type API interface {
	ActiveJobs(ctx context.Context) (*apiclient.ActiveJobs, error)
	SubmitSimplify(ctx context.Context, req apiclient.SimplifyRequest) (*apiclient.SubmitResult, error)
	JobStatus(ctx context.Context, jobID string) (*apiclient.JobStatus, error)
	CancelJob(ctx context.Context, jobID string) error
}

// Timer yields a channel that fires after d. Production uses time.After.
type Timer interface {
	After(d time.Duration) <-chan time.Time
}

type realTimer struct{}

func (realTimer) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Engine tracks background simplification jobs.
//
// An Engine is owned by the application's composition root and handed to
// whatever needs to start or inspect jobs. Nothing is global: tests create a
// fresh Engine per case.
//
// Thread-safety model:
//   - StartSimplification, CancelJob, CanStartJob, Cleanup: safe from any goroutine
//   - GetActiveJobs, GetActiveJobsCount: safe from any goroutine
//   - each job's tracker is mutated only by its own poller and the bridge
type Engine struct {
	api      API
	notifier notify.Notifier
	router   notify.Router
	registry *Registry

	policy   PollPolicy
	timer    Timer
	clock    *Clock
	recorder Recorder
	traceIDs TraceIDGenerator
	logger   *slog.Logger
	now      func() time.Time

	// base is the context polls and event recording run under. It outlives
	// the caller's context so a job keeps polling after the request that
	// started it returns.
	base context.Context

	wg       sync.WaitGroup
	doneOnce sync.Once
	done     chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithPollPolicy overrides DefaultPollPolicy.
func WithPollPolicy(p PollPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithTimer replaces the wall-clock timer (tests use a fake).
func WithTimer(t Timer) Option {
	return func(e *Engine) {
		e.timer = t
	}
}

// WithRecorder sends lifecycle events to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithClock sets the logical clock stamping lifecycle events.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithTraceIDGenerator sets the generator for per-job request ids.
func WithTraceIDGenerator(g TraceIDGenerator) Option {
	return func(e *Engine) {
		e.traceIDs = g
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithNow overrides the wall clock used for StartedAt and RecordedAt.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithBaseContext sets the context pollers run under. Cancelling it stops
// every poller at its next wait.
func WithBaseContext(ctx context.Context) Option {
	return func(e *Engine) {
		e.base = ctx
	}
}

// New creates an Engine reporting through notifier and router.
// A nil router disables navigation.
func New(api API, notifier notify.Notifier, router notify.Router, opts ...Option) *Engine {
	if router == nil {
		router = notify.NopRouter{}
	}
	e := &Engine{
		api:      api,
		notifier: notifier,
		router:   router,
		registry: NewRegistry(),
		policy:   DefaultPollPolicy(),
		timer:    realTimer{},
		clock:    NewClock(),
		traceIDs: UUIDv7Generator{},
		logger:   slog.Default(),
		now:      time.Now,
		base:     context.Background(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Policy returns the poll policy in effect.
func (e *Engine) Policy() PollPolicy {
	return e.policy
}

// GetActiveJobsCount returns the number of tracked jobs.
func (e *Engine) GetActiveJobsCount() int {
	return e.registry.Len()
}

// GetActiveJobs returns a snapshot of every tracked job, oldest first.
func (e *Engine) GetActiveJobs() []JobTracker {
	return e.registry.Values()
}

// Wait blocks until every poller has exited.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Done returns a channel closed once every poller has exited.
//
// The channel is created on the first call and shared by later ones. Call it
// after the jobs to wait for have started.
func (e *Engine) Done() <-chan struct{} {
	e.doneOnce.Do(func() {
		e.done = make(chan struct{})
		go func() {
			e.wg.Wait()
			close(e.done)
		}()
	})
	return e.done
}

// CancelJob stops tracking jobID, hides its notification and asks the server
// to cancel it. Server errors are logged and swallowed: local state wins.
// Cancelling an unknown or finished job is a no-op.
func (e *Engine) CancelJob(ctx context.Context, jobID string) {
	t, ok := e.registry.Take(jobID)
	if !ok {
		e.logger.Debug("cancel ignored, job not tracked", "job_id", jobID)
		return
	}
	t.halt()
	e.notifier.HideToast(t.Handle)

	if err := e.api.CancelJob(apiclient.WithRequestID(ctx, t.TraceID), jobID); err != nil {
		e.logger.Warn("server cancel failed", "job_id", jobID, "error", err)
	}

	e.emit(t, LifecycleEvent{Kind: EventCancelled, Message: "cancelled by user"})
	e.logger.Info("job cancelled", "job_id", jobID)
}

// Cleanup stops tracking every job and hides every notification.
// No server calls are made. Used at process teardown.
func (e *Engine) Cleanup() {
	for _, t := range e.registry.Drain() {
		t.halt()
		e.notifier.HideToast(t.Handle)
		e.emit(t, LifecycleEvent{Kind: EventCancelled, Message: "tracking stopped"})
	}
}

// emit stamps ev with the job's identity, a seq and a timestamp, and hands
// it to the recorder.
func (e *Engine) emit(t *JobTracker, ev LifecycleEvent) {
	ev.Seq = e.clock.Next()
	ev.JobID = t.JobID
	ev.ExternalID = t.ExternalID
	ev.Title = t.Title
	ev.RecordedAt = e.now()

	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(e.base, ev); err != nil {
		e.logger.Warn("failed to record lifecycle event",
			"job_id", ev.JobID, "kind", ev.Kind, "error", err)
	}
}
