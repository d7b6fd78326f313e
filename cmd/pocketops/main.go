package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"pocketops/internal/cli"
	apphttp "pocketops/internal/http"
	"pocketops/internal/log"
	"pocketops/internal/middleware/ratelimit"
	"pocketops/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	backend := cli.OpenBackend(context.Background(), logger, cfg)

	loc := cfg.Location()
	clock := services.WithClock(func() time.Time { return time.Now().In(loc) })
	ledger := services.NewLedgerService(backend.Store, backend.Publisher, clock)
	reports := services.NewReportService(backend.Store, clock)

	ready := func(ctx context.Context) error {
		if pinger, ok := backend.Store.(interface{ Ping(context.Context) error }); ok {
			return pinger.Ping(ctx)
		}
		_, err := backend.Store.AppState(ctx)
		return err
	}

	srv := apphttp.NewServer(net.JoinHostPort("", cfg.Port), ledger, reports, apphttp.Options{
		CORSOrigins: cfg.CORSOrigins,
		CacheTTL:    cfg.CacheTTL,
		CacheSize:   cfg.CacheSize,
		RateLimit: ratelimit.Config{
			Requests: cfg.RateLimitRequests,
			Window:   cfg.RateLimitWindow,
		},
		Logger: logger,
		Ready:  ready,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := backend.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting pocketops server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", cfg.AMQPEnabled(),
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
