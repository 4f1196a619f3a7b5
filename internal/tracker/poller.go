package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/jobwatch/internal/apiclient"
	"github.com/roach88/jobwatch/internal/notify"
)

// User-facing poll messages.
const (
	msgRetrying    = "Connection issue, retrying (%d/%d)..."
	msgNotFound    = "Job not found or expired."
	msgNetworkLost = "Lost connection to the server. Check your network and try again."
	msgJobFailed   = "Simplification failed. Please try again."
	msgJobCanceled = "Simplification was cancelled."
)

// poll runs one job's status loop until a terminal state or until the job
// leaves the registry. Exactly one poll goroutine exists per job.
func (e *Engine) poll(ctx context.Context, t *JobTracker) {
	defer e.wg.Done()

	budget := NewRetryBudget(e.policy.MaxRetries)
	reqCtx := apiclient.WithRequestID(e.base, t.TraceID)

	for {
		if !e.registry.Has(t.JobID) {
			e.logger.Debug("poller exiting, job no longer tracked", "job_id", t.JobID)
			return
		}

		status, err := e.api.JobStatus(reqCtx, t.JobID)

		// Cancelled while the request was in flight: drop the response.
		if !e.registry.Has(t.JobID) {
			e.logger.Debug("dropping status of untracked job", "job_id", t.JobID)
			return
		}

		var delay time.Duration
		if err != nil {
			var done bool
			delay, done = e.pollFailed(t, budget, err)
			if done {
				return
			}
		} else {
			budget.Reset()
			if e.pollSucceeded(t, status) {
				return
			}
			delay = e.policy.BaseDelay
		}

		select {
		case <-ctx.Done():
			e.logger.Debug("poller stopped", "job_id", t.JobID)
			return
		case <-e.timer.After(delay):
		}
	}
}

// pollSucceeded applies one status snapshot. Returns true when the loop
// must end: the job reached a terminal state or is no longer tracked.
func (e *Engine) pollSucceeded(t *JobTracker, status *apiclient.JobStatus) bool {
	e.logger.Debug("job status", "job_id", t.JobID, "state", status.State, "stage", status.Stage)

	switch status.State {
	case apiclient.StateCompleted:
		e.handleCompleted(t.JobID, status)
		return true
	case apiclient.StateFailed:
		msg := status.Error
		if msg == "" {
			msg = msgJobFailed
		}
		e.handleFailed(t.JobID, msg, newRuntimeError(ErrCodeJobFailed, msg, t.JobID, nil))
		return true
	case apiclient.StateCancelled:
		e.handleFailed(t.JobID, msgJobCanceled, newRuntimeError(ErrCodeJobFailed, msgJobCanceled, t.JobID, nil))
		return true
	}

	var update notify.Update
	if status.Progress != nil {
		p := clampPercent(*status.Progress)
		update.Progress = &p
	}
	label, hasLabel := stageLabel(status.Stage)
	if hasLabel {
		update.Message = label
	}
	if update.Progress == nil && !hasLabel {
		return false
	}

	applied := e.applyUpdate(t, func() {
		e.notifier.UpdateToast(t.Handle, update)
		e.emit(t, LifecycleEvent{Kind: EventProgress, Progress: update.Progress, Stage: status.Stage, Message: label})
	})
	return !applied
}

// pollFailed handles a failed fetch. Returns the delay before the next
// attempt, or done when the loop must end.
func (e *Engine) pollFailed(t *JobTracker, budget *RetryBudget, err error) (delay time.Duration, done bool) {
	if apiclient.IsNotFound(err) {
		e.handleFailed(t.JobID, msgNotFound, newRuntimeError(ErrCodeJobNotFound, msgNotFound, t.JobID, err))
		return 0, true
	}

	if exhausted := budget.Spend(t.JobID); exhausted != nil {
		e.handleFailed(t.JobID, msgNetworkLost,
			newRuntimeError(ErrCodeRetriesExhausted, msgNetworkLost, t.JobID, fmt.Errorf("%w: last error: %v", exhausted, err)))
		return 0, true
	}

	n := budget.Current()
	delay = e.policy.Backoff(n)
	msg := fmt.Sprintf(msgRetrying, n, budget.Max())

	e.logger.Warn("status fetch failed, retrying",
		"job_id", t.JobID, "attempt", n, "max", budget.Max(), "delay", delay, "error", err)
	applied := e.applyUpdate(t, func() {
		e.notifier.UpdateToast(t.Handle, notify.Update{Message: msg})
		e.emit(t, LifecycleEvent{Kind: EventRetrying, Message: msg})
	})
	return delay, !applied
}

// applyUpdate runs fn if t is still tracked. A concurrent CancelJob or
// Cleanup either removes the job before fn is considered, so fn is skipped,
// or waits in halt until fn returns. Returns false when fn was skipped.
func (e *Engine) applyUpdate(t *JobTracker, fn func()) bool {
	return t.whileActive(func() bool {
		if !e.registry.Has(t.JobID) {
			e.logger.Debug("dropping update of untracked job", "job_id", t.JobID)
			return false
		}
		fn()
		return true
	})
}
