package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"famreport/internal/amqp"
	"famreport/internal/core"
	"famreport/internal/export"
	"famreport/internal/log"
	"famreport/internal/sheets"
	"famreport/internal/storage"
)

// ExportWorker writes the stored report to the export spreadsheet: the
// income statement of the latest year and the balance sheet of the latest
// day. A version is exported at most once.
type ExportWorker struct {
	store        storage.ReportStore
	writer       sheets.StatementWriter
	incomeSheet  string
	balanceSheet string
	logger       *log.StructuredLogger
	now          func() time.Time

	mu sync.Mutex
}

func NewExportWorker(store storage.ReportStore, writer sheets.StatementWriter, incomeSheet, balanceSheet string, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportWorker{
		store:        store,
		writer:       writer,
		incomeSheet:  incomeSheet,
		balanceSheet: balanceSheet,
		logger:       log.NewStructuredLogger(logger.WithComponent(log.ComponentWorker)),
		now:          time.Now,
	}
}

// HandleReportSaved processes a report.saved message from AMQP. Messages for
// versions that are already exported are acknowledged without work.
func (w *ExportWorker) HandleReportSaved(ctx context.Context, msg *amqp.ReportSavedMessage) error {
	slog.InfoContext(ctx, "Processing report saved message", "version", msg.Version)
	_, err := w.ExportIfStale(ctx)
	return err
}

// ExportIfStale exports the stored report when its version is newer than the
// last exported one. It reports whether an export happened.
func (w *ExportWorker) ExportIfStale(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec, err := w.store.Load(ctx)
	if errors.Is(err, storage.ErrNoReport) {
		slog.DebugContext(ctx, "No report stored, nothing to export")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load report: %w", err)
	}
	if !rec.Stale() {
		slog.DebugContext(ctx, "Report already exported", "version", rec.Version)
		return false, nil
	}
	if err := w.export(ctx, rec); err != nil {
		exportsTotal.WithLabelValues("failed").Inc()
		return false, err
	}
	exportsTotal.WithLabelValues("exported").Inc()
	lastExportedVersion.Set(float64(rec.Version))
	return true, nil
}

// StartupExportCheck catches up on versions saved while the worker was down.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	exported, err := w.ExportIfStale(ctx)
	if err != nil {
		return fmt.Errorf("startup export: %w", err)
	}
	if !exported {
		slog.InfoContext(ctx, "No pending report export on startup")
	}
	return nil
}

func (w *ExportWorker) export(ctx context.Context, rec storage.Record) error {
	payload, err := core.DecodePayload(rec.Payload)
	if err != nil {
		return fmt.Errorf("decode report v%d: %w", rec.Version, err)
	}
	r := core.Migrate(payload)
	now := w.now()

	income, err := export.Build(r, core.ViewYear, "", now)
	if err != nil {
		return fmt.Errorf("build income statement: %w", err)
	}
	balance, err := export.Build(r, core.ViewDay, "", now)
	if err != nil {
		return fmt.Errorf("build balance sheet: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	write := func(sheet string, st export.Statement) {
		g.Go(func() error {
			ref, err := w.writer.WriteStatement(gctx, sheet, st)
			if err != nil {
				return fmt.Errorf("write %s: %w", sheet, err)
			}
			w.logger.LogReportExported(gctx, rec.Version, sheet, ref)
			return nil
		})
	}
	write(w.incomeSheet, income)
	write(w.balanceSheet, balance)
	if err := g.Wait(); err != nil {
		return err
	}

	if err := w.store.MarkExported(ctx, rec.Version); err != nil {
		return fmt.Errorf("mark exported v%d: %w", rec.Version, err)
	}
	return nil
}
