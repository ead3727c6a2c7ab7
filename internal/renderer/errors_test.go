package renderer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/refbundle/refbundle/internal/refs"
)

func TestClassifyRenderError(t *testing.T) {
	t.Parallel()

	require.NoError(t, classifyRenderError("navigation", nil))

	err := classifyRenderError("navigation", context.DeadlineExceeded)
	var timeout *refs.TimeoutError
	require.ErrorAs(t, err, &timeout)

	err = classifyRenderError("navigation", errors.New("Could not find node: target closed"))
	var protocol *refs.ProtocolError
	require.ErrorAs(t, err, &protocol)

	err = classifyRenderError("navigation", errors.New("net::ERR_NAME_NOT_RESOLVED"))
	var network *refs.NetworkError
	require.ErrorAs(t, err, &network)
}

func TestClassifyCaptureError(t *testing.T) {
	t.Parallel()

	require.NoError(t, classifyCaptureError(nil))

	err := classifyCaptureError(errors.New("loading failed: net::ERR_BLOCKED_BY_CLIENT"))
	require.ErrorIs(t, err, refs.ErrSubresourceBlocked)
	require.False(t, refs.IsRetryable(err))

	err = classifyCaptureError(errors.New("execution context was destroyed"))
	var protocol *refs.ProtocolError
	require.ErrorAs(t, err, &protocol)
	require.True(t, refs.IsRetryable(err))

	err = classifyCaptureError(context.DeadlineExceeded)
	var timeout *refs.TimeoutError
	require.ErrorAs(t, err, &timeout)
}
