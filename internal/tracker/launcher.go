package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/jobwatch/internal/apiclient"
)

// User-facing launch messages.
const (
	msgStarting       = "Starting simplification..."
	msgInvalidOptions = "Can't simplify this paper: %s."
	msgRateLimited    = "Too many requests. Please wait a moment before starting another simplification."
	msgStartFailed    = "Failed to start simplification. Please try again."
)

// SimplifyOptions describes the paper to simplify.
// It converts directly to the submission request body.
type SimplifyOptions apiclient.SimplifyRequest

// Validate checks the preconditions of a launch.
func (o SimplifyOptions) Validate() error {
	var missing []string
	if strings.TrimSpace(o.ExternalID) == "" {
		missing = append(missing, "external id")
	}
	if strings.TrimSpace(o.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(o.ReadingLevel) == "" {
		missing = append(missing, "reading level")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	if !o.Source.Valid() {
		return fmt.Errorf("unsupported source %q", o.Source)
	}
	return nil
}

// StartSimplification checks eligibility, submits the job and starts polling it.
//
// On success it returns the server job id. On any failure the user has
// already been notified, nothing is registered, and the returned id is ""
// with a *RuntimeError describing why.
func (e *Engine) StartSimplification(ctx context.Context, opts SimplifyOptions) (string, error) {
	if err := opts.Validate(); err != nil {
		msg := fmt.Sprintf(msgInvalidOptions, err)
		e.notifier.Error(msg)
		return "", newRuntimeError(ErrCodeInvalidOptions, msg, "", err)
	}
	opts.Title = normalizeTitle(opts.Title)

	elig := e.CanStartJob(ctx)
	if !elig.CanStart {
		e.notifier.Error(elig.Reason)
		e.logger.Info("job not started, limits reached", "external_id", opts.ExternalID, "reason", elig.Reason)
		return "", newRuntimeError(ErrCodeIneligible, elig.Reason, "", nil)
	}

	traceID := e.traceIDs.Generate()
	loading := e.notifier.Loading(msgStarting)

	res, err := e.api.SubmitSimplify(apiclient.WithRequestID(ctx, traceID), apiclient.SimplifyRequest(opts))
	e.notifier.HideToast(loading)
	if err != nil {
		code, msg := ErrCodeSubmitFailed, msgStartFailed
		if apiclient.IsRateLimited(err) {
			code, msg = ErrCodeRateLimited, msgRateLimited
		}
		e.notifier.Error(msg)
		e.logger.Warn("job submission failed", "external_id", opts.ExternalID, "error", err)
		return "", newRuntimeError(code, msg, "", err)
	}

	pollCtx, stop := context.WithCancel(e.base)
	t := &JobTracker{
		JobID:      res.JobID,
		ExternalID: opts.ExternalID,
		Title:      opts.Title,
		StreamURL:  res.StreamURL,
		TraceID:    traceID,
		StartedAt:  e.now(),
		Handle:     e.notifier.Progress(fmt.Sprintf("Simplifying: %s", opts.Title), 0),
		stop:       stop,
		life:       newLifecycle(),
	}
	e.registry.Set(t)
	e.emit(t, LifecycleEvent{Kind: EventLaunched, Message: "job submitted"})
	e.logger.Info("job started", "job_id", t.JobID, "external_id", t.ExternalID, "trace_id", traceID)

	e.wg.Add(1)
	go e.poll(pollCtx, t)

	return t.JobID, nil
}
