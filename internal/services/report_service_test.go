package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pocketops/internal/budget"
	"pocketops/internal/core"
	"pocketops/internal/ledger/memory"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	svc, store, _ := newTestLedger(t)
	if _, err := svc.CompleteOnboarding(ctx, OnboardingInput{
		PayCycle:            core.Weekly,
		IncomePerCycleCents: 100000,
		BudgetCents:         map[string]int64{"social": 4000},
		Demo:                true,
	}); err != nil {
		t.Fatalf("CompleteOnboarding: %v", err)
	}
	return store
}

func TestReportServiceDashboard(t *testing.T) {
	ctx := context.Background()
	reports := NewReportService(seededStore(t), WithClock(func() time.Time { return testNow }))

	week, err := reports.Dashboard(ctx, core.Week)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if week.Spent != 9230+3410+5800 {
		t.Fatalf("week spent = %d", week.Spent)
	}
	if week.SpentByCategory.Value("social") != 5800 {
		t.Fatalf("social spend = %d", week.SpentByCategory.Value("social"))
	}

	month, err := reports.Dashboard(ctx, core.Month)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if month.Spent != week.Spent {
		t.Fatalf("month spent = %d, want %d", month.Spent, week.Spent)
	}

	if _, err := reports.Dashboard(ctx, "year"); err == nil {
		t.Fatal("expected error for unknown period")
	}
}

func TestReportServiceBuildReport(t *testing.T) {
	ctx := context.Background()
	reports := NewReportService(seededStore(t), WithClock(func() time.Time { return testNow }))

	r, err := reports.BuildReport(ctx)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if !r.GeneratedAt.Equal(testNow) {
		t.Fatalf("GeneratedAt = %v", r.GeneratedAt)
	}
	if r.Week.Period != core.Week || r.Month.Period != core.Month {
		t.Fatalf("periods not filled: %s %s", r.Week.Period, r.Month.Period)
	}

	// social spent 5800 against a 4000 weekly budget
	var critical bool
	for _, a := range r.Alerts {
		if a.Category == "social" && a.Severity == budget.SeverityCritical {
			critical = true
		}
	}
	if !critical {
		t.Fatalf("expected critical social alert, got %+v", r.Alerts)
	}

	if len(r.Insights.Subscriptions) != 1 || r.Insights.Subscriptions[0].MerchantKey != "spotify" {
		t.Fatalf("unexpected subscriptions %+v", r.Insights.Subscriptions)
	}
	if r.Insights.Splits.OwedToMe != 2900 || r.Insights.Splits.Net != 2900 {
		t.Fatalf("unexpected splits %+v", r.Insights.Splits)
	}
	if len(r.Suggestions) != len(r.Categories) {
		t.Fatalf("expected one suggestion per category, got %d for %d", len(r.Suggestions), len(r.Categories))
	}
}

func TestReportServiceGenerateAndStore(t *testing.T) {
	ctx := context.Background()
	reports := NewReportService(seededStore(t), WithClock(func() time.Time { return testNow }))

	empty := NewReportService(memory.New())
	if _, err := empty.LatestReport(ctx); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	want, err := reports.GenerateAndStore(ctx)
	if err != nil {
		t.Fatalf("GenerateAndStore: %v", err)
	}
	got, err := reports.LatestReport(ctx)
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if !got.GeneratedAt.Equal(want.GeneratedAt) || got.Week.Spent != want.Week.Spent || len(got.Alerts) != len(want.Alerts) {
		t.Fatalf("stored report differs: %+v", got)
	}
	if got.Week.SpentByCategory.Value("groceries") != 9230 {
		t.Fatalf("category amounts not decoded: %+v", got.Week.SpentByCategory)
	}
}

func TestReportServiceSuggestions(t *testing.T) {
	ctx := context.Background()
	reports := NewReportService(seededStore(t))

	got, err := reports.Suggestions(ctx)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	for _, s := range got {
		if s.Category == "rent" && (s.CycleBudgetCents != 40000 || s.WeeklyBudgetCents != 40000) {
			t.Fatalf("unexpected rent suggestion %+v", s)
		}
	}
}

func TestReportProcessorLifecycle(t *testing.T) {
	store := seededStore(t)
	reports := NewReportService(store, WithClock(func() time.Time { return testNow }))
	p := NewReportProcessor(reports, ReportProcessorConfig{Interval: time.Hour})

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Fatal("expected error when starting twice")
	}
	p.Trigger()
	p.Trigger()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, _, err := store.LatestReport(ctx); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no report generated")
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.IsRunning() {
		t.Fatal("processor should be stopped")
	}
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestDefaultReportProcessorConfig(t *testing.T) {
	if got := DefaultReportProcessorConfig().Interval; got != 15*time.Minute {
		t.Fatalf("Interval = %v", got)
	}
	p := NewReportProcessor(nil, ReportProcessorConfig{})
	if p.config.Interval != 15*time.Minute {
		t.Fatalf("zero interval not defaulted: %v", p.config.Interval)
	}
}
