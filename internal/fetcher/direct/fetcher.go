// Package direct implements refs.DocumentFetcher using gocolly for plain
// HTTP(S) document retrieval.
package direct

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/refbundle/refbundle/internal/refs"
)

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int
}

// Fetcher retrieves document files directly, without a browser. Retry policy
// lives in the batch executor, not here.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.IgnoreRobotsTxt(),
	)
	if cfg.MaxBodyBytes > 0 {
		c.MaxBodySize = cfg.MaxBodyBytes
	}
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch executes a single HTTP GET bounded by the configured timeout.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &refs.TimeoutError{Op: "document fetch", Err: ctx.Err()}
		}
		return nil, fmt.Errorf("document fetch canceled: %w", ctx.Err())
	case visitErr := <-done:
		if err := firstError(fetchErr, visitErr); err != nil {
			f.logger.Debug("direct fetch failed",
				zap.String("url", rawURL),
				zap.Int("status", status),
				zap.Error(err),
			)
			return nil, classifyFetchError(status, err)
		}
	}

	if status < 200 || status >= 300 {
		return nil, &refs.HTTPError{Status: status}
	}
	if len(body) == 0 {
		return nil, &refs.NetworkError{Op: "document fetch", Err: errors.New("empty response body")}
	}
	return body, nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// classifyFetchError maps transport failures into the pipeline taxonomy. A
// known HTTP status takes precedence: colly reports non-2xx responses through
// OnError with the response attached.
func classifyFetchError(status int, err error) error {
	if status != 0 && (status < 200 || status >= 300) {
		return &refs.HTTPError{Status: status}
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &refs.TimeoutError{Op: "document fetch", Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &refs.TimeoutError{Op: "document fetch", Err: err}
	default:
		return &refs.NetworkError{Op: "document fetch", Err: err}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
