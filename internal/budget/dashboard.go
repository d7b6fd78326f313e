package budget

import (
	"fmt"
	"time"

	"pocketops/internal/calendar"
	"pocketops/internal/categories"
	"pocketops/internal/core"
)

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type (
	Severity string

	Alert struct {
		Severity Severity `json:"severity"`
		Category string   `json:"category,omitempty"`
		Message  string   `json:"message"`
	}

	// DashboardInput is the snapshot a dashboard period is computed from.
	DashboardInput struct {
		Transactions []core.Transaction
		Budgets      []core.Budget
		Bills        []core.Bill
		AppState     core.AppState
		Now          time.Time
		Period       core.Period
	}

	// DashboardPeriod is one period's full financial snapshot.
	DashboardPeriod struct {
		Period                   core.Period      `json:"period"`
		RangeStart               time.Time        `json:"rangeStart"`
		RangeEnd                 time.Time        `json:"rangeEnd"`
		Spent                    int64            `json:"spent"`
		Budget                   int64            `json:"budget"`
		Remaining                int64            `json:"remaining"`
		Projected                int64            `json:"projected"`
		Income                   int64            `json:"income"`
		ScheduledIncome          int64            `json:"scheduledIncome"`
		Unallocated              int64            `json:"unallocated"`
		Net                      int64            `json:"net"`
		BillsReserved            int64            `json:"billsReserved"`
		DiscretionaryAvailable   int64            `json:"discretionaryAvailable"`
		OverspendFromUnallocated int64            `json:"overspendFromUnallocated"`
		SpentByCategory          *CategoryAmounts `json:"spentByCategory"`
		ReservedByCategory       *CategoryAmounts `json:"reservedByCategory"`
		Alerts                   []Alert          `json:"alerts"`
	}
)

// CalculateDashboardPeriod composes aggregation and reservation into the
// snapshot of the week or month containing in.Now.
//
// Overspend is only attributed for categories that have a reservation;
// spend in unbudgeted categories does not reduce unallocated.
func CalculateDashboardPeriod(in DashboardInput) DashboardPeriod {
	start, end := calendar.Range(in.Period, in.Now)
	totals := SumByRange(in.Transactions, start, end)
	spentByCategory := ExpensesByCategory(in.Transactions, start, end)
	res := ReservationsForPeriod(in.Budgets, in.Bills, in.AppState, in.Period)

	var overspend int64
	for _, cat := range spentByCategory.Keys() {
		reserved, ok := res.CategoryMap.Get(cat)
		if !ok {
			continue
		}
		if spent := spentByCategory.Value(cat); spent > reserved {
			overspend += spent - reserved
		}
	}

	unallocated := totals.Income - res.BudgetTotal - overspend
	// Deliberately not the glossary's income - billsReserved - overspend:
	// category budgets are set aside too, so this always equals unallocated.
	discretionary := totals.Income - res.BudgetTotal - overspend

	elapsed := calendar.ElapsedDays(in.Period, start, in.Now)
	total := calendar.TotalDays(in.Period, in.Now)
	cats := categories.ForState(in.AppState)

	return DashboardPeriod{
		Period:                   in.Period,
		RangeStart:               start,
		RangeEnd:                 end,
		Spent:                    totals.Expense,
		Budget:                   res.BudgetTotal,
		Remaining:                res.BudgetTotal - totals.Expense,
		Projected:                calendar.Projection(totals.Expense, elapsed, total),
		Income:                   totals.Income,
		ScheduledIncome:          ScheduledIncomeForRange(start, end, in.AppState),
		Unallocated:              unallocated,
		Net:                      totals.Net,
		BillsReserved:            res.BillsReserved,
		DiscretionaryAvailable:   discretionary,
		OverspendFromUnallocated: overspend,
		SpentByCategory:          spentByCategory,
		ReservedByCategory:       res.CategoryMap,
		Alerts:                   BuildGuardrailAlerts(spentByCategory, res.CategoryMap, cats),
	}
}

// BuildGuardrailAlerts emits one alert per category with a positive
// reservation, at its highest tier: critical from 100% spent, warning from
// 75%. Alerts follow the order of spent.
func BuildGuardrailAlerts(spent, reserved *CategoryAmounts, cats []core.Category) []Alert {
	alerts := []Alert{}
	for _, cat := range spent.Keys() {
		limit := reserved.Value(cat)
		if limit <= 0 {
			continue
		}
		pct := float64(spent.Value(cat)) / float64(limit)
		label := categories.Label(cats, cat)
		switch {
		case pct >= 1:
			alerts = append(alerts, Alert{
				Severity: SeverityCritical,
				Category: cat,
				Message:  fmt.Sprintf("%s reached 100%% of reserved budget.", label),
			})
		case pct >= 0.75:
			alerts = append(alerts, Alert{
				Severity: SeverityWarning,
				Category: cat,
				Message:  fmt.Sprintf("%s reached 75%% of reserved budget.", label),
			})
		}
	}
	return alerts
}

// UnallocatedAlert returns the critical alert raised when a period's
// unallocated income went negative.
func UnallocatedAlert(p DashboardPeriod) (Alert, bool) {
	if p.Unallocated >= 0 {
		return Alert{}, false
	}
	name := "Monthly"
	if p.Period == core.Week {
		name = "Weekly"
	}
	return Alert{
		Severity: SeverityCritical,
		Message:  name + " unallocated is negative after category overspend.",
	}, true
}

// AllAlerts returns the guardrail alerts of p followed by its unallocated alert.
func (p DashboardPeriod) AllAlerts() []Alert {
	out := append([]Alert(nil), p.Alerts...)
	if a, ok := UnallocatedAlert(p); ok {
		out = append(out, a)
	}
	return out
}
