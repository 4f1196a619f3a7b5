package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/roach88/jobwatch/internal/notify"
)

// JobTracker is the local record of one in-flight job.
type JobTracker struct {
	JobID      string
	ExternalID string
	Title      string
	StreamURL  string
	TraceID    string
	StartedAt  time.Time

	// Handle is the progress notification representing this job.
	Handle notify.Handle

	// stop interrupts the poller's wait between ticks.
	stop context.CancelFunc

	// life orders the poller's non-terminal updates against the job's end.
	life *lifecycle
}

// lifecycle is set finished exactly once, by the remover of the job.
type lifecycle struct {
	mu       sync.Mutex
	finished bool
}

func newLifecycle() *lifecycle {
	return &lifecycle{}
}

// halt stops the poller and marks the job finished. It waits for an update
// applied through whileActive to return.
func (t *JobTracker) halt() {
	if t.stop != nil {
		t.stop()
	}
	if t.life != nil {
		t.life.mu.Lock()
		t.life.finished = true
		t.life.mu.Unlock()
	}
}

// whileActive runs fn unless the job was halted. fn's result is returned;
// false when fn did not run.
func (t *JobTracker) whileActive(fn func() bool) bool {
	if t.life == nil {
		return fn()
	}
	t.life.mu.Lock()
	defer t.life.mu.Unlock()
	if t.life.finished {
		return false
	}
	return fn()
}

// Registry maps job ids to their trackers.
//
// A job present in the registry has a live poll loop. Removal must be paired
// with hiding the job's notification; callers use Take so that exactly one
// remover owns that step.
//
// Thread-safety: All methods are safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*JobTracker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*JobTracker)}
}

// Get returns the tracker for jobID.
func (r *Registry) Get(jobID string) (*JobTracker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.jobs[jobID]
	return t, ok
}

// Has reports whether jobID is tracked.
func (r *Registry) Has(jobID string) bool {
	_, ok := r.Get(jobID)
	return ok
}

// Set stores t under t.JobID, replacing any previous tracker.
func (r *Registry) Set(t *JobTracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[t.JobID] = t
}

// Delete removes jobID. Returns false if it was not tracked.
func (r *Registry) Delete(jobID string) bool {
	_, ok := r.Take(jobID)
	return ok
}

// Take atomically removes and returns the tracker for jobID.
// Of several concurrent callers only one receives ok == true.
func (r *Registry) Take(jobID string) (*JobTracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.jobs[jobID]
	if ok {
		delete(r.jobs, jobID)
	}
	return t, ok
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Values returns copies of every tracker, oldest first (ties by job id).
func (r *Registry) Values() []JobTracker {
	r.mu.RLock()
	out := make([]JobTracker, 0, len(r.jobs))
	for _, t := range r.jobs {
		cp := *t
		cp.stop = nil
		cp.life = nil
		out = append(out, cp)
	}
	r.mu.RUnlock()

	sortTrackers(out)
	return out
}

// Drain removes and returns every tracker.
func (r *Registry) Drain() []*JobTracker {
	r.mu.Lock()
	out := make([]*JobTracker, 0, len(r.jobs))
	for id, t := range r.jobs {
		out = append(out, t)
		delete(r.jobs, id)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return lessTracker(out[i], out[j]) })
	return out
}

func sortTrackers(ts []JobTracker) {
	sort.Slice(ts, func(i, j int) bool { return lessTracker(&ts[i], &ts[j]) })
}

func lessTracker(a, b *JobTracker) bool {
	if !a.StartedAt.Equal(b.StartedAt) {
		return a.StartedAt.Before(b.StartedAt)
	}
	return a.JobID < b.JobID
}
