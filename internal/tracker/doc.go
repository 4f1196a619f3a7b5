// Package tracker implements the background job tracking engine.
//
// The engine launches server-side "simplify a paper" jobs, follows each one
// by polling its status endpoint, and reports every lifecycle transition to
// an injected Notifier and Router.
//
// ARCHITECTURE:
//
// Components, leaf first:
//   - Eligibility check (eligibility.go): pre-flight quota query. Fails open.
//   - Launcher (launcher.go): validates options, submits, registers a tracker.
//   - Poller (poller.go): one goroutine per job, self-scheduling, bounded retries.
//   - Bridge (bridge.go): terminal handlers that map outcomes to notifications.
//   - Registry (registry.go): jobID -> JobTracker map owned by the Engine.
//
// Poll Loop:
// Each job's status fetches are strictly sequential: the next fetch is only
// scheduled after the previous one resolved. Jobs poll independently of each
// other and interleave freely.
//
// Cancellation:
// Cancellation is cooperative. Removing a job from the registry stops its
// next tick and silences the response of an in-flight fetch; the fetch itself
// is not aborted.
//
// CRITICAL PATTERNS:
//
// Registry membership is the liveness signal. A poller checks membership
// before every fetch and again after it resolves. Removal always goes through
// Registry.Take so exactly one party (bridge, CancelJob, Cleanup) hides the
// job's notification.
//
// Failures never escape as panics. StartSimplification reports "no job
// started" with an empty id and an error after notifying the user; poll
// failures end in a notification and deregistration.
package tracker
