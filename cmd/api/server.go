package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/FACorreiaa/echo-voice-assistant/pkg/config"
)

// Run starts the API server, the metrics listener and the sweep scheduler,
// and blocks until ctx is cancelled or a listener fails.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	deps, err := InitDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           deps.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.Observability.MetricsEnabled {
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Observability.MetricsPort),
			Handler:           deps.NewMetricsRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	if err := deps.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("api server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server failed: %w", err)
		}
	}()
	if metricsSrv != nil {
		go func() {
			logger.Info("metrics server listening", slog.String("addr", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server failed: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server error", slog.Any("error", runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", slog.Any("error", err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}

	select {
	case <-deps.Scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop before the shutdown timeout")
	}

	logger.Info("server stopped")
	return runErr
}

// NewLogger builds the JSON logger used by the server for the given level.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
