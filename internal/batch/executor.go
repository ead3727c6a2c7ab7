// Package batch runs a reference list through the pipeline with a bounded
// worker pool and total isolation between jobs.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/refbundle/refbundle/internal/metrics"
	"github.com/refbundle/refbundle/internal/refs"
)

// Config controls executor behavior. All knobs originate from the service
// configuration; nothing here is a module-level constant.
type Config struct {
	Concurrency     int
	MaxConcurrency  int
	MaxBatchSize    int
	ReplayTransient bool
	ReplayDelay     time.Duration
	Deadline        time.Duration
}

// TooLargeError rejects an oversized batch before any job runs.
type TooLargeError struct {
	Size    int
	Ceiling int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("batch of %d references exceeds the ceiling of %d", e.Size, e.Ceiling)
}

// ConcurrencyGuard clamps the worker count to available resources.
type ConcurrencyGuard interface {
	ClampWorkers(requested int) int
}

// Executor transforms a Reference slice into one JobResult per reference.
type Executor struct {
	fetcher  refs.DocumentFetcher
	renderer refs.Renderer
	guard    ConcurrencyGuard
	cfg      Config
	logger   *zap.Logger
	onResult func(refs.JobResult)
}

// New constructs an Executor.
func New(fetcher refs.DocumentFetcher, renderer refs.Renderer, cfg Config, logger *zap.Logger) *Executor {
	return &Executor{
		fetcher:  fetcher,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
	}
}

// SetGuard installs a concurrency guard consulted before each run.
func (e *Executor) SetGuard(g ConcurrencyGuard) {
	e.guard = g
}

// OnResult registers a callback fired once per reference as its terminal
// result lands during the first pass. Used for progress reporting.
func (e *Executor) OnResult(fn func(refs.JobResult)) {
	e.onResult = fn
}

type job struct {
	ref   refs.Reference
	class refs.Classification
}

// Run executes the batch. The result set is complete: exactly one JobResult
// per input reference, in no guaranteed order. Per-job failures never abort
// the batch; only an oversized batch is rejected, before any job runs.
func (e *Executor) Run(ctx context.Context, references []refs.Reference) ([]refs.JobResult, error) {
	if e.cfg.MaxBatchSize > 0 && len(references) > e.cfg.MaxBatchSize {
		return nil, &TooLargeError{Size: len(references), Ceiling: e.cfg.MaxBatchSize}
	}
	if e.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Deadline)
		defer cancel()
	}

	collector := newResultCollector(len(references), e.onResult)

	// Classification happens before dispatch so malformed URLs never reach a
	// worker.
	jobs := make([]job, 0, len(references))
	for _, ref := range references {
		class, err := refs.Classify(ref.SourceURL)
		if err != nil {
			metrics.ObserveReference("invalid")
			collector.add(refs.Failed(ref, err))
			continue
		}
		jobs = append(jobs, job{ref: ref, class: class})
	}

	queue := make(chan job, len(jobs))
	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	workers := e.workerCount(len(jobs))
	e.logger.Info("starting batch",
		zap.Int("references", len(references)),
		zap.Int("workers", workers),
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				metrics.IncActiveWorkers()
				res := e.process(ctx, j)
				metrics.DecActiveWorkers()
				collector.add(res)
			}
		}()
	}
	wg.Wait()

	results := collector.snapshot()
	if e.cfg.ReplayTransient {
		results = e.replayTransient(ctx, results)
	}
	return results, nil
}

// process runs one reference to its terminal result. Panics are contained
// here so a misbehaving job cannot take down its worker.
func (e *Executor) process(ctx context.Context, j job) (result refs.JobResult) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("reference job panicked",
				zap.Int("id", j.ref.ID),
				zap.String("url", j.ref.SourceURL),
				zap.Any("panic", rec),
			)
			result = refs.Failed(j.ref, fmt.Errorf("job panicked: %v", rec))
		}
	}()

	var (
		output []byte
		err    error
	)
	switch j.class {
	case refs.ClassDirectDocument:
		output, err = e.fetcher.Fetch(ctx, j.ref.SourceURL)
	default:
		if e.renderer == nil {
			err = errors.New("renderer unavailable")
		} else {
			output, err = e.renderer.Render(ctx, j.ref.SourceURL)
		}
	}
	if err != nil {
		metrics.ObserveReference(string(refs.StatusFailed))
		e.logger.Warn("reference failed",
			zap.Int("id", j.ref.ID),
			zap.String("url", j.ref.SourceURL),
			zap.Error(err),
		)
		return refs.Failed(j.ref, err)
	}
	metrics.ObserveReference(string(refs.StatusDownloaded))
	return refs.Downloaded(j.ref, refs.OutputFileName(j.ref), output)
}

// replayTransient re-runs timeout/network-class failures once, sequentially,
// with a short delay between items so transient load is absorbed without
// amplifying pressure on already-blocking servers.
func (e *Executor) replayTransient(ctx context.Context, results []refs.JobResult) []refs.JobResult {
	for i, res := range results {
		if res.Status() != refs.StatusFailed || !refs.IsRetryable(res.Err()) {
			continue
		}
		if ctx.Err() != nil {
			return results
		}
		if err := sleepCtx(ctx, e.cfg.ReplayDelay); err != nil {
			return results
		}
		ref := res.Reference()
		class, err := refs.Classify(ref.SourceURL)
		if err != nil {
			continue
		}
		e.logger.Info("replaying transient failure",
			zap.Int("id", ref.ID),
			zap.String("url", ref.SourceURL),
		)
		results[i] = e.process(ctx, job{ref: ref, class: class})
	}
	return results
}

func (e *Executor) workerCount(pending int) int {
	workers := e.cfg.Concurrency
	if workers <= 0 {
		workers = 1
	}
	if e.cfg.MaxConcurrency > 0 && workers > e.cfg.MaxConcurrency {
		workers = e.cfg.MaxConcurrency
	}
	if e.guard != nil {
		workers = e.guard.ClampWorkers(workers)
	}
	if workers > pending {
		workers = pending
	}
	if workers < 1 {
		workers = 1
	}
	return workers
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

// resultCollector is the append-only results collection shared by workers.
type resultCollector struct {
	mu       sync.Mutex
	results  []refs.JobResult
	onResult func(refs.JobResult)
}

func newResultCollector(capacity int, onResult func(refs.JobResult)) *resultCollector {
	return &resultCollector{
		results:  make([]refs.JobResult, 0, capacity),
		onResult: onResult,
	}
}

func (c *resultCollector) add(res refs.JobResult) {
	c.mu.Lock()
	c.results = append(c.results, res)
	c.mu.Unlock()
	if c.onResult != nil {
		c.onResult(res)
	}
}

func (c *resultCollector) snapshot() []refs.JobResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]refs.JobResult, len(c.results))
	copy(out, c.results)
	return out
}
