package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pocketops/internal/log"
)

// ReportProcessorConfig holds configuration for the report processor
type ReportProcessorConfig struct {
	// Interval is how often a report is regenerated without any trigger (default: 15m)
	Interval time.Duration
}

// DefaultReportProcessorConfig returns sensible defaults
func DefaultReportProcessorConfig() ReportProcessorConfig {
	return ReportProcessorConfig{
		Interval: 15 * time.Minute,
	}
}

// ReportProcessor regenerates the stored report on a ticker and whenever a
// ledger change is signalled through Trigger. Triggers arriving while a
// report is being built collapse into one rebuild.
type ReportProcessor struct {
	reports *ReportService
	config  ReportProcessorConfig

	trigger chan struct{}

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReportProcessor(reports *ReportService, config ReportProcessorConfig) *ReportProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultReportProcessorConfig().Interval
	}
	return &ReportProcessor{
		reports: reports,
		config:  config,
		trigger: make(chan struct{}, 1),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ReportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("report processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Report processor started", "interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ReportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Report processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Report processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *ReportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Trigger asks for a rebuild without blocking.
func (p *ReportProcessor) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *ReportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Report immediately on startup
	p.generate(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.generate(ctx)
		case <-p.trigger:
			p.generate(ctx)
		}
	}
}

func (p *ReportProcessor) generate(ctx context.Context) {
	if _, err := p.reports.GenerateAndStore(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to generate report",
			log.FieldComponent, log.ComponentReport,
			log.FieldError, err)
	}
}
