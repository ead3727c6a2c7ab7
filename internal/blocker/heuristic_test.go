package blocker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectContentPhrases(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(nil)

	tests := []struct {
		name    string
		content string
		reason  string
	}{
		{
			name:    "recaptcha widget",
			content: `<div class="g-recaptcha" data-sitekey="x"></div>`,
			reason:  "CAPTCHA widget present",
		},
		{
			name:    "cloudflare turnstile",
			content: `<div class="cf-turnstile"></div>`,
			reason:  "CAPTCHA widget present",
		},
		{
			name:    "human verification uppercase",
			content: "<h1>VERIFY YOU ARE HUMAN</h1>",
			reason:  "human verification prompt",
		},
		{
			name:    "perimeterx denial",
			content: "Access to this page has been denied because we believe you are using automation tools.",
			reason:  "access denied",
		},
		{
			name:    "not found page",
			content: "<title>Page not found | Example</title>",
			reason:  "page not found",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			reason, blocked := h.Detect(tc.content, "https://example.org/article")
			require.True(t, blocked)
			require.Equal(t, tc.reason, reason)
		})
	}
}

func TestDetectURLMarkers(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(nil)

	reason, blocked := h.Detect("<html>anything</html>", "https://example.org/cdn-cgi/challenge-platform/captcha")
	require.True(t, blocked)
	require.Equal(t, "redirected to CAPTCHA page", reason)

	reason, blocked = h.Detect("<html>fine</html>", "https://example.org/404")
	require.True(t, blocked)
	require.Equal(t, "redirected to not-found page", reason)
}

func TestDetectCleanPage(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(nil)
	reason, blocked := h.Detect("<html><body><article>Real content here.</article></body></html>",
		"https://example.org/articles/42")
	require.False(t, blocked)
	require.Empty(t, reason)
}

func TestDetectExtraPhrases(t *testing.T) {
	t.Parallel()

	h := NewHeuristic([]string{"Subscribe To Continue Reading", "  ", ""})
	reason, blocked := h.Detect("Please subscribe to continue reading this article.", "https://example.org/a")
	require.True(t, blocked)
	require.Equal(t, "blocking phrase: subscribe to continue reading", reason)
}

func TestDetectFirstMatchWins(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(nil)
	content := `<div class="g-recaptcha"></div><p>Access denied</p>`
	reason, blocked := h.Detect(content, "https://example.org/a")
	require.True(t, blocked)
	require.Equal(t, "CAPTCHA widget present", reason)
}
