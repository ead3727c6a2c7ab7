// Package blocker detects verification walls, CAPTCHAs, and missing-content
// pages in rendered output.
package blocker

import (
	"strings"
)

// rule associates a lowercase content phrase with a human-readable reason.
type rule struct {
	phrase string
	reason string
}

// Ordered: the first matching rule wins, so the most specific signatures come
// first. The list is a heuristic, not exhaustive.
var phraseRules = []rule{
	{"g-recaptcha", "CAPTCHA widget present"},
	{"h-captcha", "CAPTCHA widget present"},
	{"cf-turnstile", "CAPTCHA widget present"},
	{"px-captcha", "CAPTCHA widget present"},
	{"verify you are human", "human verification prompt"},
	{"verifying you are human", "human verification prompt"},
	{"verify that you are not a robot", "human verification prompt"},
	{"are you a robot", "human verification prompt"},
	{"complete the security check", "human verification prompt"},
	{"enable javascript and cookies to continue", "bot challenge page"},
	{"checking your browser before accessing", "bot challenge page"},
	{"attention required! | cloudflare", "bot challenge page"},
	{"access to this page has been denied", "access denied"},
	{"access denied", "access denied"},
	{"403 forbidden", "access denied"},
	{"page not found", "page not found"},
	{"404 not found", "page not found"},
	{"the page you requested could not be found", "page not found"},
	{"this page doesn't exist", "page not found"},
}

// URL markers checked against the post-navigation location. A redirect into a
// verification or error route is a block regardless of content.
var urlMarkers = []struct {
	marker string
	reason string
}{
	{"captcha", "redirected to CAPTCHA page"},
	{"/challenge", "redirected to verification challenge"},
	{"/verify", "redirected to verification page"},
	{"/blocked", "redirected to blocked page"},
	{"/denied", "redirected to access-denied page"},
	{"/404", "redirected to not-found page"},
}

// Heuristic matches rendered pages against known blocking signatures.
type Heuristic struct {
	rules []rule
}

// NewHeuristic builds a detector. Extra phrases from configuration are
// appended after the built-in list with a generic reason.
func NewHeuristic(extraPhrases []string) *Heuristic {
	rules := make([]rule, 0, len(phraseRules)+len(extraPhrases))
	rules = append(rules, phraseRules...)
	for _, phrase := range extraPhrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		rules = append(rules, rule{phrase: phrase, reason: "blocking phrase: " + phrase})
	}
	return &Heuristic{rules: rules}
}

// Detect inspects rendered content and the resolved URL. It returns the first
// matching reason, or blocked=false when the content is assumed usable.
func (h *Heuristic) Detect(content, resolvedURL string) (string, bool) {
	loweredURL := strings.ToLower(resolvedURL)
	for _, m := range urlMarkers {
		if strings.Contains(loweredURL, m.marker) {
			return m.reason, true
		}
	}
	loweredContent := strings.ToLower(content)
	for _, r := range h.rules {
		if strings.Contains(loweredContent, r.phrase) {
			return r.reason, true
		}
	}
	return "", false
}
