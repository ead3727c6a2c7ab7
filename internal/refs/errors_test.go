package refs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "timeout", err: &TimeoutError{Op: "nav", Err: base}, want: true},
		{name: "network", err: &NetworkError{Op: "fetch", Err: base}, want: true},
		{name: "protocol", err: &ProtocolError{Op: "capture", Err: base}, want: true},
		{name: "wrapped timeout", err: fmt.Errorf("attempt 2: %w", &TimeoutError{Op: "nav", Err: base}), want: true},
		{name: "blocked", err: &BlockedError{Reason: "CAPTCHA widget present"}, want: false},
		{name: "http status", err: &HTTPError{Status: 404}, want: false},
		{name: "invalid url", err: fmt.Errorf("%w: empty URL", ErrInvalidURL), want: false},
		{name: "blocked subresource", err: fmt.Errorf("%w: ad frame", ErrSubresourceBlocked), want: false},
		{name: "plain error", err: base, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	base := errors.New("connection reset")
	require.ErrorIs(t, &TimeoutError{Op: "nav", Err: base}, base)
	require.ErrorIs(t, &NetworkError{Op: "fetch", Err: base}, base)
	require.ErrorIs(t, &ProtocolError{Op: "capture", Err: base}, base)
}
