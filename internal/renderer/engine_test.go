package renderer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/refbundle/refbundle/internal/blocker"
	"github.com/refbundle/refbundle/internal/refs"
)

func newTestEngine(t *testing.T, maxAttempts int, attempt func(ctx context.Context, rawURL string) ([]byte, error)) *Engine {
	t.Helper()
	e := New(
		Config{Settle: time.Millisecond},
		refs.NewLinearRetryPolicy(maxAttempts, time.Millisecond),
		blocker.NewHeuristic(nil),
		zap.NewNop(),
	)
	e.attempt = attempt
	return e
}

func TestRenderSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	var calls int
	e := newTestEngine(t, 3, func(_ context.Context, _ string) ([]byte, error) {
		calls++
		return []byte("%PDF-1.7"), nil
	})

	out, err := e.Render(context.Background(), "https://example.org/a")
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.7"), out)
	require.Equal(t, 1, calls)
}

func TestRenderRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls int
	e := newTestEngine(t, 3, func(_ context.Context, _ string) ([]byte, error) {
		calls++
		if calls < 3 {
			return nil, &refs.TimeoutError{Op: "navigation", Err: errors.New("deadline")}
		}
		return []byte("%PDF-1.7"), nil
	})

	out, err := e.Render(context.Background(), "https://example.org/a")
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, 3, calls)
}

func TestRenderExhaustionReturnsLastError(t *testing.T) {
	t.Parallel()

	var calls int
	e := newTestEngine(t, 3, func(_ context.Context, _ string) ([]byte, error) {
		calls++
		return nil, &refs.NetworkError{Op: "navigation", Err: errors.New("connection reset")}
	})

	_, err := e.Render(context.Background(), "https://example.org/a")
	var netErr *refs.NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, 3, calls)
}

func TestRenderBlockedNeverRetried(t *testing.T) {
	t.Parallel()

	var calls int
	e := newTestEngine(t, 3, func(_ context.Context, _ string) ([]byte, error) {
		calls++
		return nil, &refs.BlockedError{Reason: "CAPTCHA widget present"}
	})

	_, err := e.Render(context.Background(), "https://example.org/a")
	var blocked *refs.BlockedError
	require.ErrorAs(t, err, &blocked)
	require.Equal(t, "CAPTCHA widget present", blocked.Reason)
	require.Equal(t, 1, calls)
}

func TestRenderPermanentFailureNeverRetried(t *testing.T) {
	t.Parallel()

	var calls int
	e := newTestEngine(t, 3, func(_ context.Context, _ string) ([]byte, error) {
		calls++
		return nil, &refs.HTTPError{Status: 410}
	})

	_, err := e.Render(context.Background(), "https://example.org/a")
	var httpErr *refs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, 1, calls)
}

func TestRenderCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	e := New(
		Config{},
		refs.NewLinearRetryPolicy(3, time.Hour),
		blocker.NewHeuristic(nil),
		zap.NewNop(),
	)
	e.attempt = func(_ context.Context, _ string) ([]byte, error) {
		return nil, &refs.TimeoutError{Op: "navigation", Err: errors.New("deadline")}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := e.Render(ctx, "https://example.org/a")
	require.ErrorIs(t, err, context.Canceled)
}
