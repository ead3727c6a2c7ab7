package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/refbundle/refbundle/internal/api"
	"github.com/refbundle/refbundle/internal/clock/system"
	"github.com/refbundle/refbundle/internal/id/uuid"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP batch service",
		Long: `Starts an HTTP server that accepts reference batches and returns the
archive and per-reference report in the response.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context())
		},
	}
	return cmd
}

func runServer(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pipe, err := buildPipeline(cfg, cfg.Batch.ServerConcurrency)
	if err != nil {
		return err
	}
	defer func() { _ = pipe.logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(
		pipe.executor,
		pipe.assembler,
		uuid.New(),
		system.New(),
		cfg,
		pipe.logger.Named("api"),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		pipe.logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	pipe.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		pipe.logger.Error("server shutdown error", zap.Error(err))
	}
	pipe.logger.Info("shutdown complete")
	return nil
}
