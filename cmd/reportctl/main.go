package main

import (
	"context"
	"fmt"
	"os"

	"famreport/internal/adapters"
	"famreport/internal/cli"
	"famreport/internal/config"
	"famreport/internal/log"
	"famreport/internal/remote"
	"famreport/internal/services"
	"famreport/internal/storage"
	"famreport/internal/terminal"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	level := os.Getenv("REPORTCTL_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger := cli.SetupStderrLogger(level)

	var local *storage.SQLiteRepository
	open := func(ctx context.Context) (*services.ReportSession, error) {
		repo, err := storage.NewSQLiteRepository(cfg.LocalDBPath)
		if err != nil {
			return nil, err
		}
		local = repo
		logger.Debug("Opened local report store", "path", cfg.LocalDBPath, "remote", cfg.RemoteURL != "")
		return services.OpenSession(ctx, adapters.NewStoreAdapter(repo),
			remote.New(cfg.RemoteURL, cfg.RemoteTimeout),
			logger.With(log.FieldComponent, log.ComponentSession)), nil
	}

	root := terminal.NewRootCmd(open, terminal.WithFontPath(cfg.PDFFontPath))
	err := root.Execute()
	if local != nil {
		_ = local.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "reportctl:", err)
		os.Exit(1)
	}
}
