package budget

import (
	"encoding/json"
	"testing"
	"time"

	"pocketops/internal/core"
)

func TestSumByRange(t *testing.T) {
	start := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 15, 23, 59, 59, 999000000, time.UTC)
	txs := []core.Transaction{
		tx(core.Income, 50000, "", "2026-02-09"),
		tx(core.Expense, 1200, "food", "2026-02-15"),
		tx(core.Expense, 800, "food", "2026-02-16"),
		tx(core.Income, 9999, "", "2026-02-08"),
	}
	got := SumByRange(txs, start, end)
	want := Totals{Income: 50000, Expense: 1200, Net: 48800}
	if got != want {
		t.Fatalf("SumByRange() = %+v, want %+v", got, want)
	}
}

func TestReservationsForPeriod(t *testing.T) {
	budgets := []core.Budget{
		{Category: "food", CycleBudgetCents: 20000},
		{Category: "rent", CycleBudgetCents: 80000, ReserveFromUnallocated: core.Bool(false)},
		{Category: "social", CycleBudgetCents: 0},
		{Category: "bills", CycleBudgetCents: 1000},
	}
	bills := []core.Bill{
		{Name: "Phone", AmountCents: 4000, Cycle: core.Fortnightly},
		{Name: "Cancelled", AmountCents: 4000, Cycle: core.Weekly, Active: core.Bool(false)},
	}

	// default pay cycle is fortnightly
	r := ReservationsForPeriod(budgets, bills, core.AppState{}, core.Week)
	if r.BudgetTotal != 10000+500+2000 {
		t.Errorf("budget total = %d", r.BudgetTotal)
	}
	if r.BillsReserved != 2000 {
		t.Errorf("bills reserved = %d", r.BillsReserved)
	}
	if got := r.CategoryMap.Value("bills"); got != 2500 {
		t.Errorf("bills category = %d, want budget and bill summed", got)
	}
	if _, ok := r.CategoryMap.Get("rent"); ok {
		t.Error("non-reserving budget must be skipped")
	}
	if _, ok := r.CategoryMap.Get("social"); ok {
		t.Error("zero budget must be skipped")
	}
}

func TestCategoryAmountsJSONKeepsOrder(t *testing.T) {
	c := NewCategoryAmounts()
	c.Add("zeta", 1)
	c.Add("alpha", 2)
	c.Add("zeta", 3)
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"zeta":4,"alpha":2}` {
		t.Fatalf("unexpected json %s", b)
	}

	var back CategoryAmounts
	if err := json.Unmarshal([]byte(`{"b":10,"a":5}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if keys := back.Keys(); len(keys) != 2 || keys[0] != "b" || back.Value("a") != 5 {
		t.Fatalf("unexpected decode %v", back.Entries())
	}

	var nilMap *CategoryAmounts
	if nilMap.Len() != 0 || nilMap.Value("x") != 0 {
		t.Fatal("nil receiver should read as empty")
	}
}

func TestScheduledIncomeForRange(t *testing.T) {
	start := time.Date(2026, 2, 16, 0, 0, 0, 0, time.Local)
	end := time.Date(2026, 2, 22, 23, 59, 59, 0, time.Local)

	tests := []struct {
		name  string
		state core.AppState
		want  int64
	}{
		{
			name: "weekly from previous friday",
			state: core.AppState{
				PayCycle: core.Weekly, IncomePerCycleCents: 50000,
				LastPaydayISO: "2026-02-13", UseScheduledIncome: true,
			},
			want: 50000,
		},
		{
			name: "anchor after the range",
			state: core.AppState{
				PayCycle: core.Weekly, IncomePerCycleCents: 50000,
				LastPaydayISO: "2026-03-06", UseScheduledIncome: true,
			},
			want: 50000,
		},
		{
			name: "fortnightly misses the week",
			state: core.AppState{
				PayCycle: core.Fortnightly, IncomePerCycleCents: 50000,
				LastPaydayISO: "2026-02-13", UseScheduledIncome: true,
			},
			want: 0,
		},
		{
			name: "disabled",
			state: core.AppState{
				PayCycle: core.Weekly, IncomePerCycleCents: 50000,
				LastPaydayISO: "2026-02-13",
			},
			want: 0,
		},
		{
			name: "bad anchor",
			state: core.AppState{
				PayCycle: core.Weekly, IncomePerCycleCents: 50000,
				LastPaydayISO: "13/02/2026", UseScheduledIncome: true,
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScheduledIncomeForRange(start, end, tt.state); got != tt.want {
				t.Errorf("ScheduledIncomeForRange() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScheduledIncomeMonthlyClampsToMonthEnd(t *testing.T) {
	state := core.AppState{
		PayCycle: core.Monthly, IncomePerCycleCents: 300000,
		LastPaydayISO: "2026-01-31", UseScheduledIncome: true,
	}
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 28, 23, 59, 59, 999000000, time.UTC)
	if got := ScheduledIncomeForRange(start, end, state); got != 300000 {
		t.Fatalf("expected the Feb 28 payday, got %d", got)
	}
}

func TestSuggestedStarterBudgets(t *testing.T) {
	rows := SuggestedStarterBudgets(200000, core.Fortnightly, []core.Category{{Key: "food", Label: "Food", Emoji: "x"}})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if !r.ReserveFromUnallocated || r.Category != "food" {
		t.Fatalf("unexpected row %+v", r)
	}
	if r.CycleBudgetCents != 40000 || r.WeeklyBudgetCents != 20000 || r.MonthlyBudgetCents != 86667 {
		t.Fatalf("unexpected amounts %+v", r)
	}

	rows = SuggestedStarterBudgets(100000, core.Weekly, []core.Category{{Key: "rent"}, {Key: "pets"}})
	if rows[0].CycleBudgetCents != 40000 || rows[1].CycleBudgetCents != 10000 {
		t.Fatalf("unexpected weights %+v", rows)
	}
	if b := rows[1].Budget(); !b.Reserves() || b.Category != "pets" {
		t.Fatalf("unexpected budget %+v", b)
	}
}
