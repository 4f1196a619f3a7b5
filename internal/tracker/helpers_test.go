package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/roach88/jobwatch/internal/apiclient"
	"github.com/roach88/jobwatch/internal/testutil"
)

// step is one scripted answer of the status endpoint.
type step struct {
	status *apiclient.JobStatus
	err    error
}

func active(progress float64, stage string) step {
	return step{status: &apiclient.JobStatus{State: apiclient.StateActive, Progress: &progress, Stage: stage}}
}

func completed(articleID string) step {
	st := &apiclient.JobStatus{State: apiclient.StateCompleted}
	if articleID != "" {
		st.Result = &apiclient.JobResult{ArticleID: articleID}
	}
	return step{status: st}
}

func failed(message string) step {
	return step{status: &apiclient.JobStatus{State: apiclient.StateFailed, Error: message}}
}

func fetchErr(err error) step {
	return step{err: err}
}

func httpErr(code int) step {
	return step{err: &apiclient.HTTPError{StatusCode: code, Method: "GET", Path: "/jobs/x"}}
}

var errConnRefused = errors.New("dial tcp: connection refused")

// fakeAPI scripts the four endpoints and checks that no job ever has two
// status requests in flight.
type fakeAPI struct {
	mu sync.Mutex

	active    *apiclient.ActiveJobs
	activeErr error

	jobIDs     []string
	submitErr  error
	submits    []apiclient.SimplifyRequest
	submitIDs  []string
	nextJobIdx int

	scripts     map[string][]step
	statusCalls map[string]int
	inFlight    map[string]bool
	overlapped  []string
	requestIDs  map[string][]string

	cancels   []string
	cancelErr error

	// gate, when set, parks every status request until it is closed.
	gate    chan struct{}
	entered chan string
}

func newFakeAPI(jobIDs ...string) *fakeAPI {
	return &fakeAPI{
		jobIDs:      jobIDs,
		scripts:     make(map[string][]step),
		statusCalls: make(map[string]int),
		inFlight:    make(map[string]bool),
		requestIDs:  make(map[string][]string),
	}
}

func (f *fakeAPI) script(jobID string, steps ...step) *fakeAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[jobID] = steps
	return f
}

func (f *fakeAPI) ActiveJobs(ctx context.Context) (*apiclient.ActiveJobs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	if f.active == nil {
		return &apiclient.ActiveJobs{Limits: apiclient.JobLimits{MaxConcurrent: 3, MaxDaily: 10}}, nil
	}
	cp := *f.active
	return &cp, nil
}

func (f *fakeAPI) SubmitSimplify(ctx context.Context, req apiclient.SimplifyRequest) (*apiclient.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, req)
	if id, ok := apiclient.RequestIDFromContext(ctx); ok {
		f.submitIDs = append(f.submitIDs, id)
	}
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.nextJobIdx >= len(f.jobIDs) {
		return nil, fmt.Errorf("fakeAPI: no job id left")
	}
	id := f.jobIDs[f.nextJobIdx]
	f.nextJobIdx++
	return &apiclient.SubmitResult{JobID: id, StreamURL: "/jobs/" + id + "/stream"}, nil
}

func (f *fakeAPI) JobStatus(ctx context.Context, jobID string) (*apiclient.JobStatus, error) {
	f.mu.Lock()
	if f.inFlight[jobID] {
		f.overlapped = append(f.overlapped, jobID)
	}
	f.inFlight[jobID] = true
	n := f.statusCalls[jobID]
	f.statusCalls[jobID]++
	if id, ok := apiclient.RequestIDFromContext(ctx); ok {
		f.requestIDs[jobID] = append(f.requestIDs[jobID], id)
	}
	script := f.scripts[jobID]
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if gate != nil {
		entered <- jobID
		<-gate
	}
	// Give other pollers a chance to overlap if the engine allowed it.
	runtime.Gosched()

	f.mu.Lock()
	f.inFlight[jobID] = false
	f.mu.Unlock()

	if len(script) == 0 {
		return nil, &apiclient.HTTPError{StatusCode: 404, Method: "GET", Path: "/jobs/" + jobID}
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	s := script[n]
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.status
	return &cp, nil
}

func (f *fakeAPI) CancelJob(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, jobID)
	return f.cancelErr
}

func (f *fakeAPI) calls(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls[jobID]
}

func (f *fakeAPI) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

func (f *fakeAPI) cancelled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancels...)
}

func (f *fakeAPI) overlaps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.overlapped...)
}

// eventLog is an in-memory Recorder.
type eventLog struct {
	mu     sync.Mutex
	events []LifecycleEvent
}

func (l *eventLog) Record(ctx context.Context, ev LifecycleEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

func (l *eventLog) all() []LifecycleEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LifecycleEvent(nil), l.events...)
}

type harness struct {
	engine *Engine
	api    *fakeAPI
	notes  *testutil.NotifyRecorder
	router *testutil.RouterRecorder
	timer  *testutil.FakeTimer
	events *eventLog
}

var fixedNow = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, api *fakeAPI, timer *testutil.FakeTimer, opts ...Option) *harness {
	t.Helper()
	if timer == nil {
		timer = testutil.NewFakeTimer()
	}
	h := &harness{
		api:    api,
		notes:  testutil.NewNotifyRecorder(),
		router: testutil.NewRouterRecorder(),
		timer:  timer,
		events: &eventLog{},
	}
	base := []Option{
		WithTimer(timer),
		WithTraceIDGenerator(testutil.NewSequenceIDGenerator("trace")),
		WithLogger(discardLogger()),
		WithNow(func() time.Time { return fixedNow }),
		WithRecorder(h.events),
	}
	h.engine = New(api, h.notes, h.router, append(base, opts...)...)
	t.Cleanup(func() {
		h.engine.Cleanup()
		h.engine.Wait()
	})
	return h
}

func paper(externalID, title string) SimplifyOptions {
	return SimplifyOptions{
		ExternalID:   externalID,
		Source:       apiclient.SourceOpenAlex,
		Title:        title,
		Authors:      []string{"A. Author"},
		Year:         2020,
		ReadingLevel: "intermediate",
	}
}

// hookHandler is a slog.Handler that runs fn once, on the logging
// goroutine, when a record with message msg is logged.
type hookHandler struct {
	msg  string
	fn   func()
	once sync.Once
}

func (h *hookHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *hookHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Message == h.msg {
		h.once.Do(h.fn)
	}
	return nil
}

func (h *hookHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *hookHandler) WithGroup(string) slog.Handler      { return h }
