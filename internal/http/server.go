package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pocketops/internal/budget"
	"pocketops/internal/cache"
	"pocketops/internal/core"
	"pocketops/internal/log"
	"pocketops/internal/middleware/ratelimit"
	"pocketops/internal/middleware/security"
	"pocketops/internal/services"
)

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	CORSOrigins []string
	CacheTTL    time.Duration
	CacheSize   int
	RateLimit   ratelimit.Config
	Logger      *log.Logger
	// Ready reports whether the backing store can serve requests.
	Ready func(context.Context) error
}

type appMetrics struct {
	transactionsTotal int64
	cacheHits         int64
	cacheMisses       int64
	uptime            time.Time
}

// Server is the pocketops JSON API.
type Server struct {
	http.Server
	ledger  *services.LedgerService
	reports *services.ReportService
	logger  *log.Logger
	sl      *log.StructuredLogger
	ready   func(context.Context) error

	// dashboards and insights are cached per period and day; any ledger
	// write purges both.
	dashCache     *cache.LRUCache[budget.DashboardPeriod]
	insightsCache *cache.LRUCache[services.Insights]
	caches        *cache.Manager

	rateLimiter *ratelimit.Limiter
	appMetrics  appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, ledger *services.LedgerService, reports *services.ReportService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		ledger:        ledger,
		reports:       reports,
		logger:        logger,
		sl:            log.NewStructuredLogger(logger),
		ready:         opts.Ready,
		dashCache:     cache.NewLRUCache[budget.DashboardPeriod](opts.CacheSize, opts.CacheTTL),
		insightsCache: cache.NewLRUCache[services.Insights](opts.CacheSize, opts.CacheTTL),
		caches:        cache.NewManager(opts.Logger.WithComponent(log.ComponentCache).Logger),
		rateLimiter:   ratelimit.NewLimiter(opts.RateLimit),
		appMetrics:    appMetrics{uptime: time.Now()},
	}
	s.caches.Register(s.dashCache)
	s.caches.Register(s.insightsCache)
	s.caches.StartCleanup(opts.CacheTTL)
	ledger.OnChange(s.invalidateCaches)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes(origins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(log.Middleware(s.logger, func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(security.Headers(security.APIHeadersConfig()))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware(security.ClientIP, func(w http.ResponseWriter, _ *http.Request) {
			TooManyRequestsError(s.rateLimiter.RetryAfter()).Write(w)
		}, http.MethodPost, http.MethodPut, http.MethodDelete))

		r.Get("/state", s.handleAppState)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/insights", s.handleInsights)
		r.Get("/report/latest", s.handleLatestReport)

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleAddCategory)
		r.Put("/categories/{key}", s.handleRenameCategory)
		r.Delete("/categories/{key}", s.handleDeleteCategory)
		r.Get("/category-hint", s.handleCategoryHint)

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Put("/transactions/{id}", s.handleUpdateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)

		r.Get("/budgets", s.handleListBudgets)
		r.Put("/budgets", s.handleSaveBudgets)
		r.Get("/budgets/suggest", s.handleSuggestBudgets)

		r.Put("/pay-schedule", s.handlePaySchedule)

		r.Get("/bills", s.handleListBills)
		r.Post("/bills", s.handleSaveBill)
		r.Delete("/bills/{id}", s.handleDeleteBill)
		r.Post("/subscriptions/{merchantKey}", s.handleMarkSubscription)

		r.Post("/onboarding", s.handleOnboarding)
		r.Post("/reset", s.handleReset)

		r.Post("/import", s.handleImport)
		r.Post("/import/validate", s.handleValidateImport)
		r.Get("/export.json", s.handleExportJSON)
		r.Get("/export.csv", s.handleExportCSV)
		r.Get("/export.xlsx", s.handleExportXLSX)
	})

	return r
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) invalidateCaches() {
	s.dashCache.Purge()
	s.insightsCache.Purge()
}

// cacheKey ties an entry to the day it was computed on, since "this week"
// moves at midnight even without writes.
func (s *Server) cacheKey(period core.Period) string {
	return string(period) + ":" + core.TodayISO(s.reports.Now())
}

func (s *Server) countLookup(loaded bool) {
	if loaded {
		atomic.AddInt64(&s.appMetrics.cacheMisses, 1)
	} else {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
	}
}

func (s *Server) getDashboard(ctx context.Context, period core.Period) (budget.DashboardPeriod, error) {
	loaded := false
	d, err := s.dashCache.GetOrLoad(s.cacheKey(period), func() (budget.DashboardPeriod, error) {
		loaded = true
		return s.reports.Dashboard(ctx, period)
	})
	s.countLookup(loaded)
	return d, err
}

func (s *Server) getInsights(ctx context.Context) (services.Insights, error) {
	loaded := false
	in, err := s.insightsCache.GetOrLoad(s.cacheKey("insights"), func() (services.Insights, error) {
		loaded = true
		return s.reports.Insights(ctx)
	})
	s.countLookup(loaded)
	return in, err
}
