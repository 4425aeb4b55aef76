package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Exporter exports the stored report if it has changed since the last
// export.
type Exporter interface {
	ExportIfStale(ctx context.Context) (bool, error)
}

type ExportSchedulerConfig struct {
	// Interval is how often to look for an unexported version (default: 5m)
	Interval time.Duration
}

func DefaultExportSchedulerConfig() ExportSchedulerConfig {
	return ExportSchedulerConfig{Interval: 5 * time.Minute}
}

// ExportScheduler periodically re-runs the export so a lost report.saved
// message delays an export instead of dropping it.
type ExportScheduler struct {
	exporter Exporter
	config   ExportSchedulerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportScheduler(exporter Exporter, config ExportSchedulerConfig) *ExportScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultExportSchedulerConfig().Interval
	}
	return &ExportScheduler{
		exporter: exporter,
		config:   config,
	}
}

// Start begins the loop. Returns an error if already running.
func (p *ExportScheduler) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export scheduler is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Export scheduler started", "interval", p.config.Interval)
	return nil
}

// Stop signals the loop and waits for it to finish.
func (p *ExportScheduler) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export scheduler stopped")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export scheduler stop timed out")
		return ctx.Err()
	}
}

func (p *ExportScheduler) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportScheduler) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *ExportScheduler) tick(ctx context.Context) {
	exported, err := p.exporter.ExportIfStale(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Scheduled export failed", "error", err)
		return
	}
	if exported {
		slog.InfoContext(ctx, "Scheduled export wrote a pending version")
	}
}
