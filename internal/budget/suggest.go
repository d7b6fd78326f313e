package budget

import (
	"pocketops/internal/calendar"
	"pocketops/internal/core"
)

const fallbackWeight = 0.10

// starterWeights is the share of per-cycle income proposed per category.
var starterWeights = map[string]float64{
	"food":          0.20,
	"transport":     0.12,
	"rent":          0.40,
	"social":        0.12,
	"subscriptions": 0.06,
}

// SuggestedBudget is a proposed budget row with its week and month equivalents.
type SuggestedBudget struct {
	Category               string `json:"category"`
	CycleBudgetCents       int64  `json:"cycleBudgetCents"`
	ReserveFromUnallocated bool   `json:"reserveFromUnallocated"`
	WeeklyBudgetCents      int64  `json:"weeklyBudgetCents"`
	MonthlyBudgetCents     int64  `json:"monthlyBudgetCents"`
}

// SuggestedStarterBudgets proposes one reserving budget row per category
// from the declared income per cycle.
func SuggestedStarterBudgets(incomePerCycleCents int64, payCycle core.Cycle, cats []core.Category) []SuggestedBudget {
	out := make([]SuggestedBudget, 0, len(cats))
	for _, c := range cats {
		w, ok := starterWeights[c.Key]
		if !ok {
			w = fallbackWeight
		}
		cycleCents := calendar.Round(float64(incomePerCycleCents) * w)
		out = append(out, SuggestedBudget{
			Category:               c.Key,
			CycleBudgetCents:       cycleCents,
			ReserveFromUnallocated: true,
			WeeklyBudgetCents:      calendar.ConvertCycleAmount(cycleCents, payCycle, core.Week),
			MonthlyBudgetCents:     calendar.ConvertCycleAmount(cycleCents, payCycle, core.Month),
		})
	}
	return out
}

// Budget returns the suggestion as a storable budget row.
func (s SuggestedBudget) Budget() core.Budget {
	return core.Budget{
		Category:               s.Category,
		CycleBudgetCents:       s.CycleBudgetCents,
		ReserveFromUnallocated: core.Bool(s.ReserveFromUnallocated),
	}
}
