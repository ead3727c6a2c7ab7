package refs

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Classification is the dispatch decision for one reference URL.
type Classification int

// Classification values.
const (
	// ClassDirectDocument names a document file directly; it is fetched over
	// plain HTTP without a browser.
	ClassDirectDocument Classification = iota
	// ClassRenderable must be rendered by the headless engine.
	ClassRenderable
)

func (c Classification) String() string {
	switch c {
	case ClassDirectDocument:
		return "direct-document"
	case ClassRenderable:
		return "renderable"
	default:
		return "unknown"
	}
}

const documentExtension = ".pdf"

// Classify decides how a reference URL is retrieved. It is pure and
// side-effect-free. Malformed URLs are reported as ErrInvalidURL and must
// never reach a worker.
func Classify(rawURL string) (Classification, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return 0, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return 0, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if strings.EqualFold(path.Ext(parsed.Path), documentExtension) {
		return ClassDirectDocument, nil
	}
	return ClassRenderable, nil
}
