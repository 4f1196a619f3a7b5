package tracker

import (
	"context"
	"fmt"

	"github.com/roach88/jobwatch/internal/apiclient"
)

// Limits is the server-reported usage at the time of a check.
type Limits struct {
	ActiveCount   int `json:"activeCount"`
	MaxConcurrent int `json:"maxConcurrent"`
	CurrentDaily  int `json:"currentDaily"`
	MaxDaily      int `json:"maxDaily"`
}

// Eligibility is the answer to "may a new job start now?".
// Limits is nil when the check failed open.
type Eligibility struct {
	CanStart bool    `json:"canStart"`
	Reason   string  `json:"reason,omitempty"`
	Limits   *Limits `json:"limits,omitempty"`
}

// CanStartJob queries the server for active jobs and limits.
//
// Fail-open: if the query itself fails the answer is CanStart with no limits.
func (e *Engine) CanStartJob(ctx context.Context) Eligibility {
	active, err := e.api.ActiveJobs(ctx)
	if err != nil {
		e.logger.Warn("eligibility check failed, allowing job", "error", err)
		return Eligibility{CanStart: true}
	}
	return evaluateEligibility(active)
}

// evaluateEligibility applies the concurrency limit, then the daily limit.
// A zero maximum is treated as unlimited.
func evaluateEligibility(a *apiclient.ActiveJobs) Eligibility {
	limits := &Limits{
		ActiveCount:   a.Count,
		MaxConcurrent: a.Limits.MaxConcurrent,
		CurrentDaily:  a.Limits.CurrentDaily,
		MaxDaily:      a.Limits.MaxDaily,
	}

	if limits.MaxConcurrent > 0 && limits.ActiveCount >= limits.MaxConcurrent {
		return Eligibility{
			Reason: fmt.Sprintf("You already have %d simplifications running (max %d). Wait for one to finish.",
				limits.ActiveCount, limits.MaxConcurrent),
			Limits: limits,
		}
	}
	if limits.MaxDaily > 0 && limits.CurrentDaily >= limits.MaxDaily {
		return Eligibility{
			Reason: fmt.Sprintf("Daily simplification limit reached (%d/%d). Try again tomorrow.",
				limits.CurrentDaily, limits.MaxDaily),
			Limits: limits,
		}
	}
	return Eligibility{CanStart: true, Limits: limits}
}
