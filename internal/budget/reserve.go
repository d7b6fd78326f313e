package budget

import (
	"pocketops/internal/calendar"
	"pocketops/internal/core"
)

// Reservations is the part of a period's income earmarked by budgets and bills.
type Reservations struct {
	CategoryMap   *CategoryAmounts `json:"categoryMap"`
	BudgetTotal   int64            `json:"budgetTotal"`
	BillsReserved int64            `json:"billsReserved"`
}

// ReservationsForPeriod converts budget rows (denominated in the pay cycle)
// and active bills (denominated in their own cycle) into period amounts.
// Only strictly positive converted amounts are reserved. A budget row and a
// bill in the same category add up.
func ReservationsForPeriod(budgets []core.Budget, bills []core.Bill, state core.AppState, period core.Period) Reservations {
	payCycle := state.PayCycleOrDefault()
	r := Reservations{CategoryMap: NewCategoryAmounts()}

	for _, b := range budgets {
		if !b.Reserves() {
			continue
		}
		cents := calendar.ConvertCycleAmount(b.CycleBudgetCents, payCycle, period)
		if cents <= 0 {
			continue
		}
		r.CategoryMap.Add(b.Category, cents)
		r.BudgetTotal += cents
	}

	for _, bill := range bills {
		if !bill.IsActive() {
			continue
		}
		cents := calendar.ConvertCycleAmount(bill.AmountCents, bill.CycleOrDefault(), period)
		if cents <= 0 {
			continue
		}
		r.CategoryMap.Add(bill.CategoryOrDefault(), cents)
		r.BudgetTotal += cents
		r.BillsReserved += cents
	}

	return r
}
