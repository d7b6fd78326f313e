package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"pocketops/internal/budget"
	"pocketops/internal/categories"
	"pocketops/internal/core"
	"pocketops/internal/insights"
	"pocketops/internal/ledger"
	"pocketops/internal/log"
)

// Insights bundles the behavioral detectors for one point in time.
type Insights struct {
	Subscriptions []insights.SubscriptionCandidate `json:"subscriptions"`
	Spikes        []insights.Spike                 `json:"spikes"`
	Splits        insights.SplitBalance            `json:"splits"`
	Coach         insights.Coach                   `json:"coach"`
}

// Report is the precomputed summary the report worker stores.
type Report struct {
	GeneratedAt time.Time                `json:"generatedAt"`
	Week        budget.DashboardPeriod   `json:"week"`
	Month       budget.DashboardPeriod   `json:"month"`
	Alerts      []budget.Alert           `json:"alerts"`
	Insights    Insights                 `json:"insights"`
	Suggestions []budget.SuggestedBudget `json:"suggestions"`
	Categories  []core.Category          `json:"categories"`
}

// ReportService answers the read side: dashboards, insights and the
// stored reports. It never writes ledger records.
type ReportService struct {
	store ledger.Store
	opts  options
}

func NewReportService(store ledger.Store, opts ...Option) *ReportService {
	return &ReportService{store: store, opts: buildOptions(opts)}
}

// Now returns the service clock.
func (s *ReportService) Now() time.Time {
	return s.opts.now()
}

// Dashboard computes the week or month containing now.
func (s *ReportService) Dashboard(ctx context.Context, period core.Period) (budget.DashboardPeriod, error) {
	if !period.Valid() {
		return budget.DashboardPeriod{}, fmt.Errorf("unknown period %q", period)
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return budget.DashboardPeriod{}, fmt.Errorf("load ledger: %w", err)
	}
	return dashboardFor(snap, period, s.opts.now()), nil
}

func dashboardFor(snap core.Snapshot, period core.Period, now time.Time) budget.DashboardPeriod {
	return budget.CalculateDashboardPeriod(budget.DashboardInput{
		Transactions: snap.Transactions,
		Budgets:      snap.Budgets,
		Bills:        snap.Bills,
		AppState:     snap.AppState,
		Now:          now,
		Period:       period,
	})
}

func insightsFor(snap core.Snapshot, now time.Time) Insights {
	return Insights{
		Subscriptions: insights.SubscriptionCandidates(snap.Transactions, snap.AppState.SuppressedSubscriptionKeys, snap.Bills),
		Spikes:        insights.SpendSpikes(snap.Transactions, now),
		Splits:        insights.SplitBalances(snap.Transactions),
		Coach:         insights.EatingOutVsGroceries(snap.Transactions, now),
	}
}

func (s *ReportService) Insights(ctx context.Context) (Insights, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return Insights{}, fmt.Errorf("load ledger: %w", err)
	}
	return insightsFor(snap, s.opts.now()), nil
}

// Suggestions proposes starter budgets from the stored pay schedule.
func (s *ReportService) Suggestions(ctx context.Context) ([]budget.SuggestedBudget, error) {
	st, err := s.store.AppState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load app state: %w", err)
	}
	return budget.SuggestedStarterBudgets(st.IncomePerCycleCents, st.PayCycleOrDefault(), categories.ForState(st)), nil
}

// BuildReport computes both periods and the insights from one snapshot.
func (s *ReportService) BuildReport(ctx context.Context) (Report, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load ledger: %w", err)
	}
	return BuildReport(ctx, snap, s.opts.now())
}

// BuildReport computes a report from snap as of now.
func BuildReport(ctx context.Context, snap core.Snapshot, now time.Time) (Report, error) {
	r := Report{
		GeneratedAt: now,
		Categories:  categories.ForState(snap.AppState),
		Suggestions: budget.SuggestedStarterBudgets(
			snap.AppState.IncomePerCycleCents, snap.AppState.PayCycleOrDefault(), categories.ForState(snap.AppState)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.Week = dashboardFor(snap, core.Week, now)
		return ctx.Err()
	})
	g.Go(func() error {
		r.Month = dashboardFor(snap, core.Month, now)
		return ctx.Err()
	})
	g.Go(func() error {
		r.Insights = insightsFor(snap, now)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	r.Alerts = append(r.Week.AllAlerts(), r.Month.AllAlerts()...)
	return r, nil
}

// GenerateAndStore builds a report and saves it for LatestReport.
func (s *ReportService) GenerateAndStore(ctx context.Context) (Report, error) {
	start := time.Now()
	r, err := s.BuildReport(ctx)
	if err != nil {
		return Report{}, err
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return Report{}, fmt.Errorf("encode report: %w", err)
	}
	if err := s.store.SaveReport(ctx, r.GeneratedAt, payload); err != nil {
		return Report{}, fmt.Errorf("save report: %w", err)
	}
	slog.InfoContext(ctx, "Report generated",
		log.FieldOperation, log.OpReport,
		"alerts", len(r.Alerts),
		log.FieldDuration, time.Since(start))
	return r, nil
}

// LatestReport returns the most recently stored report.
func (s *ReportService) LatestReport(ctx context.Context) (Report, error) {
	_, payload, err := s.store.LatestReport(ctx)
	if err != nil {
		return Report{}, err
	}
	var r Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}
