package tracker

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Poll policy defaults.
const (
	DefaultBaseDelay     = 2 * time.Second
	DefaultMaxDelay      = 10 * time.Second
	DefaultBackoffFactor = 1.5
	DefaultMaxRetries    = 10
)

// PollPolicy controls the cadence of a job's poll loop.
type PollPolicy struct {
	// BaseDelay separates successful polls and seeds the backoff.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// BackoffFactor multiplies the delay after each consecutive failure.
	BackoffFactor float64

	// MaxRetries is the number of consecutive failed fetches that ends the loop.
	MaxRetries int
}

// DefaultPollPolicy returns the 2s / x1.5 / 10s cap / 10 retries policy.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		BackoffFactor: DefaultBackoffFactor,
		MaxRetries:    DefaultMaxRetries,
	}
}

// Backoff returns the delay after the retry-th consecutive failure (1-based):
// min(BaseDelay * BackoffFactor^(retry-1), MaxDelay).
func (p PollPolicy) Backoff(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	d := float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(retry-1))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Validate checks the policy is usable.
func (p PollPolicy) Validate() error {
	switch {
	case p.BaseDelay <= 0:
		return fmt.Errorf("poll policy: base delay must be positive, got %s", p.BaseDelay)
	case p.MaxDelay < p.BaseDelay:
		return fmt.Errorf("poll policy: max delay %s is below base delay %s", p.MaxDelay, p.BaseDelay)
	case p.BackoffFactor < 1:
		return fmt.Errorf("poll policy: backoff factor must be >= 1, got %g", p.BackoffFactor)
	case p.MaxRetries < 1:
		return fmt.Errorf("poll policy: max retries must be >= 1, got %d", p.MaxRetries)
	}
	return nil
}

// RetryBudget counts consecutive failed fetches of one job and enforces the
// retry limit.
//
// Each poll loop owns its own RetryBudget. A successful fetch resets it, so
// the limit bounds a sustained outage rather than the total number of
// failures over a job's lifetime.
//
// Not safe for concurrent use; it lives on its poller's goroutine.
type RetryBudget struct {
	max     int
	current int
}

// NewRetryBudget creates a budget allowing max consecutive failures.
func NewRetryBudget(max int) *RetryBudget {
	return &RetryBudget{max: max}
}

// Spend records one failure.
//
// Returns RetriesExhaustedError once the count reaches the limit.
func (b *RetryBudget) Spend(jobID string) error {
	b.current++
	if b.current >= b.max {
		return &RetriesExhaustedError{
			JobID:    jobID,
			Attempts: b.current,
			Limit:    b.max,
		}
	}
	return nil
}

// Reset sets the failure count back to 0 after a successful fetch.
func (b *RetryBudget) Reset() {
	b.current = 0
}

// Current returns the consecutive failure count.
func (b *RetryBudget) Current() int {
	return b.current
}

// Max returns the limit.
func (b *RetryBudget) Max() int {
	return b.max
}

// RetriesExhaustedError is returned when a poll loop gives up.
type RetriesExhaustedError struct {
	JobID    string
	Attempts int
	Limit    int
}

// Error implements the error interface.
func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("job %s: polling gave up after %d consecutive failures (limit %d)",
		e.JobID, e.Attempts, e.Limit)
}

// IsRetriesExhausted returns true if err is a RetriesExhaustedError.
// Uses errors.As to handle wrapped errors.
func IsRetriesExhausted(err error) bool {
	var re *RetriesExhaustedError
	return errors.As(err, &re)
}
