package refs

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the pipeline.
var (
	// ErrInvalidURL marks a malformed reference URL; such references are
	// never dispatched to a worker.
	ErrInvalidURL = errors.New("invalid reference URL")

	// ErrArchiveTooLarge fails archive assembly when the cumulative entry
	// size exceeds the configured ceiling.
	ErrArchiveTooLarge = errors.New("archive exceeds size ceiling")

	// ErrArchiveTimeout fails archive assembly when the wall-clock ceiling
	// elapses.
	ErrArchiveTimeout = errors.New("archive assembly timed out")

	// ErrNoEntries fails archive assembly when no downloaded results remain
	// after filtering.
	ErrNoEntries = errors.New("no downloaded entries to archive")

	// ErrSubresourceBlocked marks a capture failure attributable to a single
	// blocked sub-resource after a best-effort capture was already attempted.
	// Retrying will not change the outcome.
	ErrSubresourceBlocked = errors.New("sub-resource blocked after best-effort capture")
)

// TimeoutError indicates a deadline elapsed during an external operation.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// NetworkError indicates a transport-level failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError indicates the browser session was torn down mid-operation.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s protocol failure: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// BlockedError indicates the page loaded but is not usable content: a
// verification wall, CAPTCHA, or missing-content signature was detected.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked by source: %s", e.Reason)
}

// HTTPError indicates a non-successful HTTP status on a direct document fetch.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Status)
}

// IsRetryable reports whether re-attempting the operation could change the
// outcome. Timeouts, network failures, and torn-down browser sessions are
// transient; blocks, HTTP errors, and invalid URLs are permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var (
		timeoutErr  *TimeoutError
		networkErr  *NetworkError
		protocolErr *ProtocolError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return true
	case errors.As(err, &networkErr):
		return true
	case errors.As(err, &protocolErr):
		return true
	default:
		return false
	}
}
