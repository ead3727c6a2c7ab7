package renderer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/refbundle/refbundle/internal/refs"
)

// Markers for a browser session torn down mid-operation. These surface as
// plain error strings from chromedp and the CDP transport.
var teardownMarkers = []string{
	"context canceled",
	"target closed",
	"execution context was destroyed",
	"cannot find context with specified id",
	"inspected target navigated or closed",
	"websocket: close",
	"session closed",
}

// Markers for a sub-resource the page itself refused to load. Harmless when
// the main document rendered; the capture already happened best-effort.
var blockedSubresourceMarkers = []string{
	"net::err_blocked_by_client",
	"net::err_blocked_by_response",
	"net::err_blocked_by_orb",
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, chromedp.ErrPollingTimeout)
}

func matchesAny(err error, markers []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// classifyRenderError maps navigation and wait failures into the pipeline
// taxonomy so the retry policy can act on them.
func classifyRenderError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isTimeout(err):
		return &refs.TimeoutError{Op: op, Err: err}
	case matchesAny(err, teardownMarkers):
		return &refs.ProtocolError{Op: op, Err: err}
	default:
		return &refs.NetworkError{Op: op, Err: err}
	}
}

// classifyCaptureError handles the capture step separately: a torn-down
// execution context is retryable, a blocked sub-resource after a best-effort
// capture is not.
func classifyCaptureError(err error) error {
	switch {
	case err == nil:
		return nil
	case matchesAny(err, blockedSubresourceMarkers):
		return fmt.Errorf("%w: %v", refs.ErrSubresourceBlocked, err)
	case isTimeout(err):
		return &refs.TimeoutError{Op: "pdf capture", Err: err}
	case matchesAny(err, teardownMarkers):
		return &refs.ProtocolError{Op: "pdf capture", Err: err}
	default:
		return &refs.NetworkError{Op: "pdf capture", Err: err}
	}
}
