package cmd

import (
	"time"

	"go.uber.org/zap"

	"github.com/refbundle/refbundle/internal/archive"
	"github.com/refbundle/refbundle/internal/batch"
	"github.com/refbundle/refbundle/internal/blocker"
	"github.com/refbundle/refbundle/internal/config"
	"github.com/refbundle/refbundle/internal/fetcher/direct"
	"github.com/refbundle/refbundle/internal/logging"
	"github.com/refbundle/refbundle/internal/metrics"
	"github.com/refbundle/refbundle/internal/refs"
	"github.com/refbundle/refbundle/internal/renderer"
	"github.com/refbundle/refbundle/internal/resource"
)

// pipeline holds the assembled processing components shared by the run and
// serve commands.
type pipeline struct {
	executor  *batch.Executor
	assembler *archive.Assembler
	logger    *zap.Logger
}

// executorConfig derives the batch executor settings for one mode. The
// concurrency argument is the mode's own ceiling (server or CLI), so an
// operator raising one never inherits the other's limit.
func executorConfig(cfg config.Config, concurrency int) batch.Config {
	return batch.Config{
		Concurrency:     concurrency,
		MaxConcurrency:  concurrency,
		MaxBatchSize:    cfg.Batch.MaxReferences,
		ReplayTransient: cfg.Batch.ReplayTransient,
		ReplayDelay:     time.Duration(cfg.Batch.ReplayDelayMs) * time.Millisecond,
		Deadline:        cfg.BatchDeadline(),
	}
}

// buildPipeline wires the fetcher, renderer, executor, and assembler from
// configuration. concurrency picks between the server and CLI ceilings.
func buildPipeline(cfg config.Config, concurrency int) (*pipeline, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	fetcher := direct.New(direct.Config{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		MaxBodyBytes: cfg.Fetch.MaxBodyMB << 20,
	}, logger.Named("fetch"))

	detector := blocker.NewHeuristic(cfg.Render.ExtraBlockers)
	policy := refs.NewLinearRetryPolicy(
		cfg.Render.MaxAttempts,
		time.Duration(cfg.Render.BackoffStepMs)*time.Millisecond,
	)
	engine := renderer.New(renderer.Config{
		UserAgent: cfg.Fetch.UserAgent,
		DOMWait:   time.Duration(cfg.Render.DOMWaitSeconds) * time.Second,
		LoadWait:  time.Duration(cfg.Render.LoadWaitSeconds) * time.Second,
		Settle:    time.Duration(cfg.Render.SettleMs) * time.Millisecond,
		HostQPS:   cfg.Render.HostQPS,
	}, policy, detector, logger.Named("render"))

	executor := batch.New(fetcher, engine, executorConfig(cfg, concurrency), logger.Named("batch"))

	if cfg.Batch.MemoryGuardEnabled {
		executor.SetGuard(resource.NewMemoryGuard(
			uint64(cfg.Batch.MemoryReserveMB)<<20,
			uint64(cfg.Batch.MemoryPerWorkerMB)<<20,
			logger.Named("resource"),
		))
	}

	assembler := archive.New(archive.Config{
		MaxEntries: cfg.Archive.MaxEntries,
		MaxBytes:   int64(cfg.Archive.MaxSizeMB) << 20,
		Deadline:   cfg.ArchiveDeadline(),
	}, logger.Named("archive"))

	return &pipeline{
		executor:  executor,
		assembler: assembler,
		logger:    logger,
	}, nil
}
