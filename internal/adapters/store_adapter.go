package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"famreport/internal/core"
	"famreport/internal/storage"
)

// StoreAdapter adapts a storage.ReportStore to the report-level interface
// used by services.ReportSession and the HTTP handlers. Payloads are
// migrated on the way in and written in the triplicated wire shape.
type StoreAdapter struct {
	store storage.ReportStore
}

func NewStoreAdapter(store storage.ReportStore) *StoreAdapter {
	return &StoreAdapter{store: store}
}

// LoadReport returns storage.ErrNoReport when nothing has been saved.
func (a *StoreAdapter) LoadReport(ctx context.Context) (core.Report, error) {
	r, _, err := a.LoadRecord(ctx)
	return r, err
}

// LoadRecord also returns the stored record metadata.
func (a *StoreAdapter) LoadRecord(ctx context.Context) (core.Report, storage.Record, error) {
	rec, err := a.store.Load(ctx)
	if err != nil {
		return core.Report{}, storage.Record{}, err
	}
	payload, err := core.DecodePayload(rec.Payload)
	if err != nil {
		return core.Report{}, rec, fmt.Errorf("stored report v%d: %w", rec.Version, err)
	}
	return core.Migrate(payload), rec, nil
}

func (a *StoreAdapter) SaveReport(ctx context.Context, r core.Report) error {
	_, err := a.SaveRecord(ctx, r)
	return err
}

// SaveRecord persists r and returns the new record.
func (a *StoreAdapter) SaveRecord(ctx context.Context, r core.Report) (storage.Record, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return storage.Record{}, fmt.Errorf("encode report: %w", err)
	}
	return a.store.Save(ctx, data)
}

func (a *StoreAdapter) DeleteReport(ctx context.Context) error {
	return a.store.Delete(ctx)
}

func (a *StoreAdapter) Store() storage.ReportStore { return a.store }
