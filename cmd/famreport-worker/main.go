package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"famreport/internal/amqp"
	"famreport/internal/cli"
	"famreport/internal/log"
	"famreport/internal/services"
	gsheet "famreport/internal/sheets/google"
	"famreport/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting famreport-worker")

	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Export configuration validation failed", "error", err)
		os.Exit(1)
	}

	res := cli.OpenBackend(context.Background(), logger, cfg)

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	exporter := worker.NewExportWorker(res.Store, sheetsClient, cfg.GoogleIncomeSheet, cfg.GoogleBalanceSheet,
		log.FromSlog(logger, log.ComponentWorker))
	scheduler := services.NewExportScheduler(exporter, services.ExportSchedulerConfig{Interval: cfg.ExportInterval})

	var metricsSrv *http.Server
	if cfg.WorkerMetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: ":" + cfg.WorkerMetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", "error", err)
			}
		}()
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(ctx)
		}
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Export scheduler stop", "error", err)
		}
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Performing startup export check")
	if err := exporter.StartupExportCheck(ctx); err != nil {
		logger.Error("Startup export check failed", "error", err)
	}

	go func() {
		if err := amqpClient.ConsumeReportSaved(ctx, exporter.HandleReportSaved); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start export scheduler", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
}
