package budget

import (
	"testing"
	"time"

	"pocketops/internal/core"
)

var foodState = core.AppState{
	PayCycle:         core.Weekly,
	CustomCategories: []core.Category{{Key: "food", Label: "Food", Emoji: "x"}},
}

func tx(typ core.TransactionType, cents int64, category, date string) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{Type: typ, AmountCents: cents, Category: category, Date: d, Merchant: "m"}
}

func TestCalculateDashboardPeriod_OverspendReducesUnallocated(t *testing.T) {
	result := CalculateDashboardPeriod(DashboardInput{
		Transactions: []core.Transaction{
			tx(core.Income, 100000, "", "2026-02-10"),
			tx(core.Expense, 15000, "food", "2026-02-10"),
		},
		Budgets:  []core.Budget{{Category: "food", CycleBudgetCents: 10000, ReserveFromUnallocated: core.Bool(true)}},
		AppState: foodState,
		Now:      time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC),
		Period:   core.Week,
	})

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"income", result.Income, 100000},
		{"budget", result.Budget, 10000},
		{"spent", result.Spent, 15000},
		{"net", result.Net, 85000},
		{"unallocated", result.Unallocated, 85000},
		{"discretionary", result.DiscretionaryAvailable, 85000},
		{"overspend", result.OverspendFromUnallocated, 5000},
		{"remaining", result.Remaining, -5000},
		{"projected", result.Projected, 26250},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
	if len(result.Alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d: %+v", len(result.Alerts), result.Alerts)
	}
	a := result.Alerts[0]
	if a.Severity != SeverityCritical || a.Category != "food" || a.Message != "Food reached 100% of reserved budget." {
		t.Errorf("unexpected alert %+v", a)
	}
}

func TestCalculateDashboardPeriod_PostBudgetAvailability(t *testing.T) {
	result := CalculateDashboardPeriod(DashboardInput{
		Transactions: []core.Transaction{
			tx(core.Income, 100000, "", "2026-02-10"),
			tx(core.Expense, 10000, "food", "2026-02-10"),
		},
		Budgets:  []core.Budget{{Category: "food", CycleBudgetCents: 50000}},
		AppState: foodState,
		Now:      time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC),
		Period:   core.Week,
	})

	if result.Unallocated != 50000 {
		t.Errorf("unallocated = %d, want 50000", result.Unallocated)
	}
	// the food budget is set aside too, not only bills
	if result.DiscretionaryAvailable != 50000 || result.DiscretionaryAvailable != result.Unallocated {
		t.Errorf("discretionary = %d, want 50000 (= unallocated %d)", result.DiscretionaryAvailable, result.Unallocated)
	}
	if result.Net != 90000 {
		t.Errorf("net = %d, want 90000", result.Net)
	}
	if len(result.Alerts) != 0 {
		t.Errorf("expected no alerts, got %+v", result.Alerts)
	}
}

func TestCalculateDashboardPeriod_UnbudgetedSpendNotAttributed(t *testing.T) {
	result := CalculateDashboardPeriod(DashboardInput{
		Transactions: []core.Transaction{
			tx(core.Income, 100000, "", "2026-02-10"),
			tx(core.Expense, 30000, "shopping", "2026-02-11"),
			tx(core.Expense, 9000, "", "2026-02-11"),
			tx(core.Expense, 5000, "food", "2026-01-30"),
		},
		Budgets:  []core.Budget{{Category: "food", CycleBudgetCents: 10000}},
		AppState: foodState,
		Now:      time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC),
		Period:   core.Week,
	})

	if result.OverspendFromUnallocated != 0 {
		t.Errorf("overspend = %d, want 0", result.OverspendFromUnallocated)
	}
	if result.Unallocated != 90000 {
		t.Errorf("unallocated = %d, want 90000", result.Unallocated)
	}
	if got := result.SpentByCategory.Value("other"); got != 9000 {
		t.Errorf("uncategorized spend = %d, want 9000 under other", got)
	}
	if _, ok := result.SpentByCategory.Get("food"); ok {
		t.Error("food spend outside the week must be absent")
	}
}

func TestCalculateDashboardPeriod_MonthWithBills(t *testing.T) {
	state := core.AppState{PayCycle: core.Fortnightly}
	result := CalculateDashboardPeriod(DashboardInput{
		Transactions: []core.Transaction{
			tx(core.Income, 400000, "", "2026-02-01"),
			tx(core.Expense, 2000, "bills", "2026-02-28"),
		},
		Budgets: []core.Budget{
			{Category: "food", CycleBudgetCents: 12000},
			{Category: "rent", CycleBudgetCents: 90000, ReserveFromUnallocated: core.Bool(false)},
		},
		Bills: []core.Bill{
			{Name: "Netflix", AmountCents: 1699, Cycle: core.Monthly},
			{Name: "Gym", AmountCents: 1500, Cycle: core.Weekly, Category: "health"},
			{Name: "Old", AmountCents: 999, Cycle: core.Monthly, Active: core.Bool(false)},
		},
		AppState: state,
		Now:      time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC),
		Period:   core.Month,
	})

	// food 12000*26/12 = 26000, netflix 1699, gym 1500*52/12 = 6500
	if result.Budget != 26000+1699+6500 {
		t.Errorf("budget = %d", result.Budget)
	}
	if result.BillsReserved != 1699+6500 {
		t.Errorf("bills reserved = %d", result.BillsReserved)
	}
	if got := result.ReservedByCategory.Keys(); len(got) != 3 || got[0] != "food" || got[1] != "bills" || got[2] != "health" {
		t.Errorf("reserved order = %v", got)
	}
	if result.Projected != 2000*28/20 {
		t.Errorf("projected = %d", result.Projected)
	}
	if !result.RangeEnd.Equal(time.Date(2026, 2, 28, 23, 59, 59, 999000000, time.UTC)) {
		t.Errorf("range end = %v", result.RangeEnd)
	}
}

func TestBuildGuardrailAlerts_OrderAndTiers(t *testing.T) {
	spent := NewCategoryAmounts()
	spent.Add("transport", 800)
	spent.Add("food", 1000)
	spent.Add("coffee", 700)
	spent.Add("social", 50)

	reserved := NewCategoryAmounts()
	reserved.Add("food", 1000)
	reserved.Add("transport", 1000)
	reserved.Add("social", 1000)

	alerts := BuildGuardrailAlerts(spent, reserved, core.StarterCategories)
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %+v", alerts)
	}
	if alerts[0].Category != "transport" || alerts[0].Severity != SeverityWarning {
		t.Errorf("first alert = %+v", alerts[0])
	}
	if alerts[0].Message != "Transport reached 75% of reserved budget." {
		t.Errorf("message = %q", alerts[0].Message)
	}
	if alerts[1].Category != "food" || alerts[1].Severity != SeverityCritical {
		t.Errorf("second alert = %+v", alerts[1])
	}
}

func TestUnallocatedAlert(t *testing.T) {
	if _, ok := UnallocatedAlert(DashboardPeriod{Period: core.Week, Unallocated: 0}); ok {
		t.Fatal("zero unallocated must not alert")
	}
	a, ok := UnallocatedAlert(DashboardPeriod{Period: core.Week, Unallocated: -1})
	if !ok || a.Severity != SeverityCritical || a.Message != "Weekly unallocated is negative after category overspend." {
		t.Fatalf("unexpected alert %+v", a)
	}
	p := DashboardPeriod{Period: core.Month, Unallocated: -5, Alerts: []Alert{{Severity: SeverityWarning}}}
	all := p.AllAlerts()
	if len(all) != 2 || all[1].Message != "Monthly unallocated is negative after category overspend." {
		t.Fatalf("unexpected alerts %+v", all)
	}
	if len(p.Alerts) != 1 {
		t.Fatal("AllAlerts must not modify the period")
	}
}
