// Package cli provides the startup steps shared by cmd/famreport,
// cmd/famreport-worker and cmd/reportctl.
package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"famreport/internal/backend"
	"famreport/internal/config"
	"famreport/internal/log"
)

// SetupLogger installs a text logger at the given level as the default
// logger. Unknown level names fall back to info with a warning.
func SetupLogger(level string) *slog.Logger {
	return setupLogger(os.Stdout, level)
}

// SetupStderrLogger is SetupLogger for commands whose stdout is their output.
func SetupStderrLogger(level string) *slog.Logger {
	return setupLogger(os.Stderr, level)
}

func setupLogger(w io.Writer, level string) *slog.Logger {
	lvl, err := log.ParseLevel(level)
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	if err != nil {
		logger.Warn("Invalid LOG_LEVEL, using info", "error", err)
	}
	return logger
}

// LoadEnvFile reads .env from the working directory when there is one.
func LoadEnvFile() {
	_ = godotenv.Load()
}

func exit(logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}

// LoadAndValidateConfig returns the env config, exiting when it is invalid.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		exit(logger, "Configuration validation failed", log.FieldError, err)
	}
	return cfg
}

// OpenBackend opens the configured report store, exiting on failure.
func OpenBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) *backend.Result {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		exit(logger, "Invalid backend configuration", log.FieldError, err)
	}
	res, err := backend.NewFactory(logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		exit(logger, "Failed to open report store", log.FieldError, err, "backend", bcfg.Type)
	}
	return res
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// cancellation cleanup runs with its own timeout, then done is closed.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.Info("Shutdown signal received")

		cctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if cleanup != nil {
			cleanup(cctx)
		}
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			logger.Warn("Shutdown timed out", "timeout", timeout)
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the signal arrived and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
