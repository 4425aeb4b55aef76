package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingExporter struct {
	calls atomic.Int32
	err   error
}

func (e *countingExporter) ExportIfStale(context.Context) (bool, error) {
	e.calls.Add(1)
	return e.err == nil, e.err
}

func TestDefaultExportSchedulerConfig(t *testing.T) {
	if got := DefaultExportSchedulerConfig().Interval; got != 5*time.Minute {
		t.Errorf("expected Interval 5m, got %v", got)
	}
	if got := NewExportScheduler(nil, ExportSchedulerConfig{}).config.Interval; got != 5*time.Minute {
		t.Errorf("zero interval should fall back to default, got %v", got)
	}
}

func TestExportScheduler_IsRunning(t *testing.T) {
	p := NewExportScheduler(&countingExporter{}, DefaultExportSchedulerConfig())
	if p.IsRunning() {
		t.Error("scheduler should not be running initially")
	}
}

func TestExportScheduler_StartTwice(t *testing.T) {
	p := NewExportScheduler(&countingExporter{}, ExportSchedulerConfig{Interval: time.Hour})
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer p.Stop(ctx)

	if err := p.Start(ctx); err == nil {
		t.Error("expected error when starting an already running scheduler")
	}
}

func TestExportScheduler_StopNotRunning(t *testing.T) {
	p := NewExportScheduler(&countingExporter{}, DefaultExportSchedulerConfig())
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

func TestExportScheduler_TicksUntilStopped(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"exports", nil},
		{"keeps ticking after errors", errors.New("sheets down")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := &countingExporter{err: tt.err}
			p := NewExportScheduler(exp, ExportSchedulerConfig{Interval: 10 * time.Millisecond})
			ctx := context.Background()

			if err := p.Start(ctx); err != nil {
				t.Fatal(err)
			}
			deadline := time.Now().Add(2 * time.Second)
			for exp.calls.Load() < 3 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}

			stopCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			if err := p.Stop(stopCtx); err != nil {
				t.Fatalf("Stop: %v", err)
			}
			if p.IsRunning() {
				t.Error("scheduler should not be running after Stop")
			}
			if n := exp.calls.Load(); n < 3 {
				t.Errorf("expected at least 3 ticks, got %d", n)
			}
		})
	}
}
