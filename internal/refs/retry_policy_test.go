package refs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLinearRetryPolicy(t *testing.T) {
	t.Parallel()

	policy := NewLinearRetryPolicy(3, time.Second)
	require.Equal(t, 3, policy.MaxAttempts())

	transient := &TimeoutError{Op: "nav", Err: errors.New("deadline")}
	require.True(t, policy.ShouldRetry(transient, 1))
	require.True(t, policy.ShouldRetry(transient, 2))
	require.False(t, policy.ShouldRetry(transient, 3))

	permanent := &BlockedError{Reason: "access denied"}
	require.False(t, policy.ShouldRetry(permanent, 1))

	require.Equal(t, time.Second, policy.Backoff(1))
	require.Equal(t, 2*time.Second, policy.Backoff(2))
}

func TestLinearRetryPolicyDefaults(t *testing.T) {
	t.Parallel()

	policy := NewLinearRetryPolicy(0, 0)
	require.Equal(t, 3, policy.MaxAttempts())
	require.Equal(t, time.Second, policy.Backoff(1))
}
