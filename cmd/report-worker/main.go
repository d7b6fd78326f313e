package main

import (
	"context"
	"errors"
	"os"
	"time"

	"pocketops/internal/cli"
	"pocketops/internal/log"
	"pocketops/internal/services"
	"pocketops/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting report-worker", log.FieldOperation, log.OpStartup)

	// The server reads reports from the same database, so a process-local
	// memory store would never be seen.
	if cfg.DataBackend != "sqlite" {
		logger.Error("report-worker requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	backend := cli.OpenBackend(context.Background(), logger, cfg)

	loc := cfg.Location()
	reports := services.NewReportService(backend.Store,
		services.WithClock(func() time.Time { return time.Now().In(loc) }))
	processor := services.NewReportProcessor(reports, services.ReportProcessorConfig{
		Interval: cfg.ReportInterval,
	})
	reportWorker := worker.NewReportWorker(reports, processor, cfg.ReportInterval)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Report processor stop error", log.FieldError, err)
		}
		if err := backend.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	// On startup, rebuild a missing or stale report before serving events
	if err := reportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup report check", log.FieldError, err)
		// Don't exit - the processor retries on its ticker
	}

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start report processor", log.FieldError, err)
		os.Exit(1)
	}

	if backend.AMQP != nil {
		go func() {
			err := backend.AMQP.ConsumeLedgerChanged(ctx, reportWorker.HandleLedgerChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP disabled, reports refresh on the ticker only",
			"interval", cfg.ReportInterval)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
