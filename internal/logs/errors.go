package logs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTimeRange is returned when a bounded window starts after it ends.
	ErrInvalidTimeRange = errors.New("invalid time range")
	// ErrThrottled marks a backend rate-limit response. Retryable.
	ErrThrottled = errors.New("throttled")
	// ErrUnavailable marks a transient backend or network failure. Retryable.
	ErrUnavailable = errors.New("unavailable")
	// ErrNotFound means the log group does not exist.
	ErrNotFound = errors.New("log group not found")
	// ErrUnauthorized means the caller is not allowed to read the log group.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRetriesExhausted is returned once the retry budget for a page is spent.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrSessionConsumed is returned when a tail sequence is ranged over twice.
	ErrSessionConsumed = errors.New("tail session already consumed")
)

// SourceError is a classified backend failure.
type SourceError struct {
	Kind     error // one of the Err* classification sentinels
	LogGroup string
	Err      error
}

func (e *SourceError) Error() string {
	if e.LogGroup == "" {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%v (%s): %v", e.Kind, e.LogGroup, e.Err)
}

func (e *SourceError) Unwrap() []error { return []error{e.Kind, e.Err} }

// RetriesExhaustedError wraps the last transient failure after the attempt
// budget has been consumed.
type RetriesExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %v", ErrRetriesExhausted, e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() []error { return []error{ErrRetriesExhausted, e.Err} }

// IsRetryable reports whether err is a transient classification.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrThrottled) || errors.Is(err, ErrUnavailable)
}
