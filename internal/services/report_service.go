package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"famreport/internal/core"
	"famreport/internal/log"
	"famreport/internal/storage"
)

// RecordStore is the server's versioned report storage.
type RecordStore interface {
	LoadRecord(ctx context.Context) (core.Report, storage.Record, error)
	SaveRecord(ctx context.Context, r core.Report) (storage.Record, error)
	DeleteReport(ctx context.Context) error
}

// SavePublisher announces stored versions to the export worker.
type SavePublisher interface {
	PublishReportSaved(ctx context.Context, version int64) error
}

// ReportService serializes read-modify-write cycles on the stored report.
// A successful save publishes a report.saved event when a publisher is
// configured; publish failures are logged only.
type ReportService struct {
	store     RecordStore
	publisher SavePublisher
	logger    *slog.Logger

	mu sync.Mutex
}

func NewReportService(store RecordStore, publisher SavePublisher, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		store:     store,
		publisher: publisher,
		logger:    logger.With(log.FieldComponent, log.ComponentReport),
	}
}

// Current returns the stored report. It returns storage.ErrNoReport together
// with the default template when nothing has been saved.
func (s *ReportService) Current(ctx context.Context) (core.Report, storage.Record, error) {
	r, rec, err := s.store.LoadRecord(ctx)
	if errors.Is(err, storage.ErrNoReport) {
		return core.Default(), storage.Record{}, err
	}
	if err != nil {
		return core.Report{}, storage.Record{}, fmt.Errorf("load report: %w", err)
	}
	return r, rec, nil
}

// Mutate applies fn to the stored report (the template when none is stored)
// and saves the result. When fn fails nothing is written and the unchanged
// report is returned with the error.
func (s *ReportService) Mutate(ctx context.Context, fn func(core.Report) (core.Report, error)) (core.Report, storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, rec, err := s.Current(ctx)
	if err != nil && !errors.Is(err, storage.ErrNoReport) {
		return core.Report{}, storage.Record{}, err
	}

	next, err := fn(cur)
	if err != nil {
		return cur, rec, err
	}

	rec, err = s.store.SaveRecord(ctx, next)
	if err != nil {
		return cur, storage.Record{}, fmt.Errorf("save report: %w", err)
	}
	s.logger.InfoContext(ctx, "Report saved",
		log.FieldOperation, log.OpSave,
		log.FieldVersion, rec.Version,
		log.FieldBytes, len(rec.Payload))

	s.publish(ctx, rec.Version)
	return next, rec, nil
}

// Replace stores a migrated client payload as the new report.
func (s *ReportService) Replace(ctx context.Context, p core.Payload) (core.Report, storage.Record, error) {
	return s.Mutate(ctx, func(core.Report) (core.Report, error) {
		return core.Migrate(p), nil
	})
}

// Delete removes the stored report. Deleting an empty store succeeds.
func (s *ReportService) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteReport(ctx); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	s.logger.InfoContext(ctx, "Report deleted", log.FieldOperation, log.OpDelete)
	return nil
}

func (s *ReportService) publish(ctx context.Context, version int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReportSaved(ctx, version); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish report saved event",
			log.FieldVersion, version, log.FieldError, err)
	}
}
