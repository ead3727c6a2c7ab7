package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/refbundle/refbundle/internal/archive"
	"github.com/refbundle/refbundle/internal/id/uuid"
	"github.com/refbundle/refbundle/internal/refs"
	"github.com/refbundle/refbundle/internal/report"
)

func newRunCmd() *cobra.Command {
	var (
		inputPath  string
		outputPath string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Processes a reference list from a file into a local archive",
		Long: `Reads a JSON array of references, downloads or renders each one, and
writes the resulting ZIP archive plus a CSV report next to it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatchFile(cmd.Context(), inputPath, outputPath)
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "refs.json", "JSON file with the reference list")
	cmd.Flags().StringVar(&outputPath, "output", "bundle.zip", "path for the ZIP archive")
	return cmd
}

func runBatchFile(parent context.Context, inputPath, outputPath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	references, err := readReferences(inputPath)
	if err != nil {
		return err
	}

	pipe, err := buildPipeline(cfg, cfg.Batch.CLIConcurrency)
	if err != nil {
		return err
	}
	defer func() { _ = pipe.logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bar := progressbar.NewOptions(len(references),
		progressbar.OptionSetDescription("processing references"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	pipe.executor.OnResult(func(refs.JobResult) {
		_ = bar.Add(1)
	})

	batchID, err := uuid.New().NewID()
	if err != nil {
		return fmt.Errorf("generate batch id: %w", err)
	}

	started := time.Now()
	results, err := pipe.executor.Run(ctx, references)
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}
	_ = bar.Finish()

	rep := refs.BuildReport(batchID, results, time.Since(started))
	if err := writeCSVReport(outputPath, rep); err != nil {
		return err
	}

	entries := archive.EntriesFromResults(results)
	payload, err := pipe.assembler.Assemble(ctx, entries)
	if err != nil {
		// A missing archive still leaves the report on disk.
		pipe.logger.Error("archive assembly failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "archive not written: %v\n", err)
	} else if err := os.WriteFile(outputPath, payload, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	fmt.Printf("batch %s: %d downloaded, %d failed\n", batchID, rep.Succeeded, rep.Failed)
	return nil
}

func readReferences(path string) ([]refs.Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var references []refs.Reference
	if err := json.Unmarshal(data, &references); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	if len(references) == 0 {
		return nil, fmt.Errorf("input %s holds no references", path)
	}
	return references, nil
}

func writeCSVReport(archivePath string, rep refs.BatchReport) error {
	payload, err := report.CSV(rep)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	base := strings.TrimSuffix(archivePath, filepath.Ext(archivePath))
	reportPath := base + "-report.csv"
	if err := os.WriteFile(reportPath, payload, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
