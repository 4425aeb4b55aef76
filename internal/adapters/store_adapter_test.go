package adapters

import (
	"context"
	"errors"
	"testing"

	"famreport/internal/core"
	"famreport/internal/storage"
	"famreport/internal/storage/memory"
)

func TestStoreAdapterRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewStoreAdapter(memory.New())

	if _, err := a.LoadReport(ctx); !errors.Is(err, storage.ErrNoReport) {
		t.Fatalf("expected ErrNoReport, got %v", err)
	}

	r, _ := core.AddMonth(core.Default(), "2025-03")
	rec, err := a.SaveRecord(ctx, r)
	if err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	if rec.Version != 1 {
		t.Errorf("expected version 1, got %d", rec.Version)
	}

	got, rec, err := a.LoadRecord(ctx)
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	if rec.Version != 1 {
		t.Errorf("expected version 1, got %d", rec.Version)
	}
	if !got.HasPeriod(core.ViewMonth, "2025-03") {
		t.Errorf("month lost on round trip: %v", got.Months())
	}

	if err := a.DeleteReport(ctx); err != nil {
		t.Fatalf("DeleteReport: %v", err)
	}
	if _, err := a.LoadReport(ctx); !errors.Is(err, storage.ErrNoReport) {
		t.Fatalf("expected ErrNoReport after delete, got %v", err)
	}
}

func TestStoreAdapterMigratesLegacyPayload(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	if _, err := store.Save(ctx, []byte(`{"years":["2024"],"groups":[{"id":"g","type":"EXPENSE","name":"Rent","items":[{"id":"r","name":"Rent","values":{"2024":"1200"}}]}]}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := NewStoreAdapter(store).LoadReport(ctx)
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if s := got.Summary(core.ViewYear, "2024"); s.Expense != 1200 {
		t.Errorf("expected expense 1200, got %v", s.Expense)
	}
}

func TestStoreAdapterRejectsCorruptPayload(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	if _, err := store.Save(ctx, []byte(`[1,2,3]`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := NewStoreAdapter(store).LoadReport(ctx); !errors.Is(err, core.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}
