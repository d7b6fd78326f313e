package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"pocketops/internal/budget"
	"pocketops/internal/core"
	"pocketops/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "not_configured"
	}

	checks["cache"] = map[string]any{
		"dashboard_entries": s.dashCache.Size(),
		"insights_entries":  s.insightsCache.Size(),
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	NewJSONResponse().Status(httpStatus).Data(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}
	metric("transactions_created_total", "Transactions created through the API", "counter",
		atomic.LoadInt64(&s.appMetrics.transactionsTotal))
	metric("cache_hits_total", "Dashboard and insights cache hits", "counter",
		atomic.LoadInt64(&s.appMetrics.cacheHits))
	metric("cache_misses_total", "Dashboard and insights cache misses", "counter",
		atomic.LoadInt64(&s.appMetrics.cacheMisses))
	metric("rate_limited_total", "Write requests refused by the rate limiter", "counter",
		s.rateLimiter.Rejected())
	metric("rate_limiter_clients", "Clients currently tracked by the rate limiter", "gauge",
		s.rateLimiter.ActiveClients())
	metric("uptime_seconds", "Seconds since the server started", "gauge",
		int64(time.Since(s.appMetrics.uptime).Seconds()))
}

// writeError logs unexpected failures and writes the mapped response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		s.sl.LogError(r.Context(), "Request failed", err, op, log.NewFields().WithComponent(log.ComponentHTTP))
	}
	resp.Write(w)
}

func (s *Server) handleAppState(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.AppState(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(st).Write(w)
}

type dashboardResponse struct {
	Dashboard budget.DashboardPeriod `json:"dashboard"`
	Alerts    []budget.Alert         `json:"alerts"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriod(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	d, err := s.getDashboard(r.Context(), period)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	alerts := d.AllAlerts()
	if alerts == nil {
		alerts = []budget.Alert{}
	}
	NewJSONResponse().Data(dashboardResponse{Dashboard: d, Alerts: alerts}).Write(w)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	in, err := s.getInsights(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(in).Write(w)
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.LatestReport(r.Context())
	if errors.Is(err, core.ErrNotFound) {
		NotFoundError("no report generated yet").Write(w)
		return
	}
	if err != nil {
		s.writeError(w, r, log.OpReport, err)
		return
	}
	NewJSONResponse().Data(report).Write(w)
}
