package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pocketops/internal/amqp"
	"pocketops/internal/core"
	"pocketops/internal/log"
	"pocketops/internal/services"
)

// Trigger asks for a report rebuild without blocking.
type Trigger interface {
	Trigger()
}

// ReportWorker turns ledger changed messages into report rebuilds.
type ReportWorker struct {
	reports   *services.ReportService
	trigger   Trigger
	maxAge time.Duration
}

// NewReportWorker creates a worker. A stored report older than maxAge is
// rebuilt by StartupCheck.
func NewReportWorker(reports *services.ReportService, trigger Trigger, maxAge time.Duration) *ReportWorker {
	return &ReportWorker{
		reports:   reports,
		trigger:   trigger,
		maxAge: maxAge,
	}
}

// HandleLedgerChanged processes a single ledger changed message from AMQP.
// Bursts of messages collapse into one rebuild in the processor.
func (w *ReportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	if msg == nil || msg.Kind == "" {
		return fmt.Errorf("ledger changed message without kind")
	}

	slog.InfoContext(ctx, "Processing ledger changed message",
		"kind", msg.Kind,
		log.FieldOperation, msg.Op,
		"entity_id", msg.EntityID,
		"lag", time.Since(msg.Timestamp).Round(time.Millisecond))

	w.trigger.Trigger()
	return nil
}

// StartupCheck builds a report right away when none is stored or the
// stored one is stale. It recovers from messages missed while the worker
// was down.
func (w *ReportWorker) StartupCheck(ctx context.Context) error {
	latest, err := w.reports.LatestReport(ctx)
	switch {
	case errors.Is(err, core.ErrNotFound):
		slog.InfoContext(ctx, "No stored report found on startup, generating")
	case err != nil:
		slog.WarnContext(ctx, "Could not read stored report, regenerating", log.FieldError, err)
	default:
		age := w.reports.Now().Sub(latest.GeneratedAt)
		if age <= w.maxAge {
			slog.InfoContext(ctx, "Stored report is fresh",
				"generated_at", latest.GeneratedAt.Format(time.RFC3339),
				"age", age.Round(time.Second))
			return nil
		}
		slog.InfoContext(ctx, "Stored report is stale, regenerating",
			"generated_at", latest.GeneratedAt.Format(time.RFC3339),
			"age", age.Round(time.Second))
	}

	if _, err := w.reports.GenerateAndStore(ctx); err != nil {
		return fmt.Errorf("generate startup report: %w", err)
	}
	return nil
}
