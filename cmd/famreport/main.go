package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"famreport/internal/adapters"
	"famreport/internal/cli"
	"famreport/internal/export"
	apphttp "famreport/internal/http"
	"famreport/internal/log"
	"famreport/internal/services"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting famreport", "port", cfg.Port, "backend", cfg.DataBackend)

	res := cli.OpenBackend(context.Background(), logger, cfg)

	svc := services.NewReportService(adapters.NewStoreAdapter(res.Store), res.Publisher,
		logger.With(log.FieldComponent, log.ComponentReport))

	opts := apphttp.Options{
		Service:         svc,
		Store:           res.Store,
		Logger:          logger,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CORSOrigins:     cfg.CORSOrigins,
		PDFCacheSize:    cfg.PDFCacheSize,
	}
	renderer, err := export.NewPDFRenderer(cfg.PDFFontPath)
	if err != nil {
		logger.Warn("PDF export disabled", "error", err, "font", cfg.PDFFontPath)
	} else {
		opts.Renderer = renderer
	}

	srv := apphttp.NewServer(":"+cfg.Port, opts)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
