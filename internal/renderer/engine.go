// Package renderer drives disposable headless-browser sessions to capture
// live web pages as paginated PDF documents.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/refbundle/refbundle/internal/metrics"
	"github.com/refbundle/refbundle/internal/refs"
)

// Config controls per-attempt browser behavior and the waiting tiers.
type Config struct {
	UserAgent    string
	DOMWait      time.Duration
	LoadWait     time.Duration
	Settle       time.Duration
	HostQPS      float64
	WindowWidth  int
	WindowHeight int
}

// Engine implements refs.Renderer. Each render attempt owns exactly one
// browser process for its lifetime; transient failures are retried inside
// Render so callers only ever see terminal outcomes.
type Engine struct {
	cfg          Config
	policy       *refs.LinearRetryPolicy
	detector     refs.BlockDetector
	logger       *zap.Logger
	hostLimiters sync.Map

	// attempt is swapped out by tests exercising the retry loop.
	attempt func(ctx context.Context, rawURL string) ([]byte, error)
}

// New creates an Engine with the provided configuration, filling defaults for
// unset waiting tiers.
func New(cfg Config, policy *refs.LinearRetryPolicy, detector refs.BlockDetector, logger *zap.Logger) *Engine {
	if cfg.DOMWait <= 0 {
		cfg.DOMWait = 30 * time.Second
	}
	if cfg.LoadWait <= 0 {
		cfg.LoadWait = 60 * time.Second
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 2500 * time.Millisecond
	}
	if cfg.WindowWidth <= 0 {
		cfg.WindowWidth = 1280
	}
	if cfg.WindowHeight <= 0 {
		cfg.WindowHeight = 1024
	}
	if policy == nil {
		policy = refs.NewLinearRetryPolicy(3, time.Second)
	}
	e := &Engine{
		cfg:      cfg,
		policy:   policy,
		detector: detector,
		logger:   logger,
	}
	e.attempt = e.renderOnce
	return e
}

// Render captures rawURL as PDF bytes, retrying transient failures with
// backoff linear in the attempt number. Blocked pages are never retried.
func (e *Engine) Render(ctx context.Context, rawURL string) ([]byte, error) {
	if err := e.waitHostBudget(ctx, rawURL); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= e.policy.MaxAttempts(); attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, e.policy.Backoff(attempt-1)); err != nil {
				return nil, fmt.Errorf("render backoff: %w", err)
			}
			e.logger.Info("retrying render",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
			)
		}

		output, err := e.attempt(ctx, rawURL)
		if err == nil {
			metrics.ObserveRenderAttempt("success")
			return output, nil
		}
		lastErr = err

		var blocked *refs.BlockedError
		if errors.As(err, &blocked) {
			metrics.ObserveRenderAttempt("blocked")
			metrics.ObserveBlocked(blocked.Reason)
			e.logger.Warn("render blocked by source",
				zap.String("url", rawURL),
				zap.String("reason", blocked.Reason),
			)
			return nil, err
		}
		if !e.policy.ShouldRetry(err, attempt) {
			metrics.ObserveRenderAttempt("failed")
			return nil, err
		}
		metrics.ObserveRenderAttempt("retryable")
		e.logger.Warn("render attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	metrics.ObserveRenderAttempt("exhausted")
	return nil, lastErr
}

// waitHostBudget throttles render starts per host so retries do not amplify
// pressure on struggling servers.
func (e *Engine) waitHostBudget(ctx context.Context, rawURL string) error {
	if e.cfg.HostQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", refs.ErrInvalidURL, err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := e.hostLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(e.cfg.HostQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("render rate limit: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
