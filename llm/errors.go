package llm

import (
	"errors"
)

// Error types for classifying completion errors.

// TransientError represents a temporary error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent error that should not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// RateLimitedError indicates the endpoint rejected the request with HTTP 429.
// It survives the transient wrapper so the caller can render a rate-limit
// message rather than a generic failure.
type RateLimitedError struct {
	StatusCode int
	err        error
}

func (e *RateLimitedError) Error() string {
	return e.err.Error()
}

func (e *RateLimitedError) Unwrap() error {
	return e.err
}

// QuotaExceededError indicates the endpoint rejected the request with HTTP 402.
type QuotaExceededError struct {
	StatusCode int
	err        error
}

func (e *QuotaExceededError) Error() string {
	return e.err.Error()
}

func (e *QuotaExceededError) Unwrap() error {
	return e.err
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// IsRateLimited returns true if the error originated from an HTTP 429.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// IsQuotaExceeded returns true if the error originated from an HTTP 402.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}
