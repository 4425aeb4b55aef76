package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"famreport/internal/storage"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Load(ctx); !errors.Is(err, storage.ErrNoReport) {
		t.Fatalf("expected ErrNoReport, got %v", err)
	}

	payload := []byte(`{"a":1}`)
	rec, err := s.Save(ctx, payload)
	if err != nil || rec.Version != 1 {
		t.Fatalf("Save: %+v %v", rec, err)
	}
	payload[0] = 'x'
	got, _ := s.Load(ctx)
	if string(got.Payload) != `{"a":1}` {
		t.Fatalf("store must copy payloads, got %s", got.Payload)
	}

	_ = s.MarkExported(ctx, 1)
	rec, _ = s.Save(ctx, []byte(`{}`))
	if rec.Version != 2 || rec.ExportedVersion != 1 || !rec.Stale() {
		t.Fatalf("unexpected record after second save %+v", rec)
	}

	if err := s.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, storage.ErrNoReport) {
		t.Fatalf("expected ErrNoReport after delete, got %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if _, err := s.Load(context.Background()); !errors.Is(err, storage.ErrNoReport) {
		t.Fatalf("expected empty store")
	}

	path := filepath.Join(dir, "seed.json")
	if err := os.WriteFile(path, []byte(`{"years":["2024"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	if rec, err := s.Load(context.Background()); err != nil || string(rec.Payload) != `{"years":["2024"]}` {
		t.Fatalf("seed not loaded: %s %v", rec.Payload, err)
	}
}
