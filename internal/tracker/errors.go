package tracker

import (
	"errors"
	"fmt"
)

// RuntimeError describes why a job could not be started or was terminated.
//
// The user has always been notified by the time a RuntimeError is returned
// or logged; callers use it for control flow and exit codes only.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is the user-facing text that was shown.
	Message string

	// JobID identifies the affected job, if one was issued.
	JobID string

	// Err is the underlying cause (optional).
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidOptions indicates a SimplifyOptions precondition failed.
	ErrCodeInvalidOptions RuntimeErrorCode = "INVALID_OPTIONS"

	// ErrCodeIneligible indicates the server-reported limits forbid a new job.
	ErrCodeIneligible RuntimeErrorCode = "INELIGIBLE"

	// ErrCodeRateLimited indicates the submission endpoint answered 429.
	ErrCodeRateLimited RuntimeErrorCode = "RATE_LIMITED"

	// ErrCodeSubmitFailed indicates any other submission failure.
	ErrCodeSubmitFailed RuntimeErrorCode = "SUBMIT_FAILED"

	// ErrCodeJobNotFound indicates the status endpoint answered 404.
	ErrCodeJobNotFound RuntimeErrorCode = "JOB_NOT_FOUND"

	// ErrCodeJobFailed indicates the server reported the job as failed.
	ErrCodeJobFailed RuntimeErrorCode = "JOB_FAILED"

	// ErrCodeRetriesExhausted indicates polling gave up after repeated errors.
	ErrCodeRetriesExhausted RuntimeErrorCode = "RETRIES_EXHAUSTED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.JobID != "" {
		msg = fmt.Sprintf("%s (job=%s)", msg, e.JobID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the RuntimeErrorCode from err, or "" if err is not a RuntimeError.
// Uses errors.As to handle wrapped errors.
func ErrorCode(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsIneligible returns true if err reports a limit rejection.
func IsIneligible(err error) bool {
	return ErrorCode(err) == ErrCodeIneligible
}

// IsRateLimited returns true if err reports a 429 on submission.
func IsRateLimited(err error) bool {
	return ErrorCode(err) == ErrCodeRateLimited
}

func newRuntimeError(code RuntimeErrorCode, message, jobID string, cause error) *RuntimeError {
	return &RuntimeError{Code: code, Message: message, JobID: jobID, Err: cause}
}
