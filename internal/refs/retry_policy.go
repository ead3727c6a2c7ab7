package refs

import "time"

// LinearRetryPolicy decides render-attempt retries with backoff linear in the
// attempt number.
type LinearRetryPolicy struct {
	maxAttempts int
	step        time.Duration
}

// NewLinearRetryPolicy builds a policy. Attempts below one and non-positive
// steps fall back to the defaults (3 attempts, 1s step).
func NewLinearRetryPolicy(maxAttempts int, step time.Duration) *LinearRetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if step <= 0 {
		step = time.Second
	}
	return &LinearRetryPolicy{
		maxAttempts: maxAttempts,
		step:        step,
	}
}

// MaxAttempts returns the attempt ceiling including the first attempt.
func (p *LinearRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry reports whether another attempt is allowed after err on the
// given 1-based attempt number.
func (p *LinearRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	return IsRetryable(err)
}

// Backoff returns the wait before the next attempt: step after the first
// failure, twice the step after the second, and so on.
func (p *LinearRetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * p.step
}
