package refs

import (
	"context"
	"time"
)

// DocumentFetcher retrieves a document file directly over HTTP(S).
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Renderer turns a live web page into paginated-document bytes using a
// disposable headless-browser session per attempt. Retries for transient
// failures happen inside the implementation.
type Renderer interface {
	Render(ctx context.Context, rawURL string) ([]byte, error)
}

// BlockDetector inspects rendered content and the post-navigation URL for
// signatures of verification walls, CAPTCHAs, or missing content.
type BlockDetector interface {
	Detect(content, resolvedURL string) (reason string, blocked bool)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces batch IDs.
type IDGenerator interface {
	NewID() (string, error)
}
