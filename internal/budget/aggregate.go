// Package budget is the computation core of the budgeting engine: range
// aggregation, reservation of budgets and bills, the dashboard period
// snapshot with its guardrail alerts, and starter budget suggestions.
//
// Functions here are pure. They take the current instant explicitly, never
// mutate their inputs and keep no state between calls.
package budget

import (
	"time"

	"pocketops/internal/calendar"
	"pocketops/internal/core"
)

// Totals are the income and expense sums over a range.
type Totals struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Net     int64 `json:"net"`
}

// SumByRange sums income and expense of the transactions dated inside
// [start, end].
func SumByRange(txs []core.Transaction, start, end time.Time) Totals {
	var t Totals
	for _, tx := range txs {
		if !calendar.InRange(tx.Date, start, end) {
			continue
		}
		if tx.Type == core.Income {
			t.Income += tx.AmountCents
		} else {
			t.Expense += tx.AmountCents
		}
	}
	t.Net = t.Income - t.Expense
	return t
}

// ExpensesByCategory sums expenses dated inside [start, end] per category.
// Categories without spend in range are absent. An empty category counts as
// the fallback category.
func ExpensesByCategory(txs []core.Transaction, start, end time.Time) *CategoryAmounts {
	out := NewCategoryAmounts()
	for _, tx := range txs {
		if tx.Type != core.Expense || !calendar.InRange(tx.Date, start, end) {
			continue
		}
		out.Add(categoryOf(tx), tx.AmountCents)
	}
	return out
}

func categoryOf(tx core.Transaction) string {
	if tx.Category == "" {
		return core.FallbackCategory.Key
	}
	return tx.Category
}
