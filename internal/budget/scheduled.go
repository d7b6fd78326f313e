package budget

import (
	"time"

	"pocketops/internal/calendar"
	"pocketops/internal/core"
)

// ScheduledIncomeForRange counts the paydays inside [start, end], stepping
// from the last known payday by the pay cycle in both directions, and
// multiplies them by the income per cycle. It is zero unless scheduled
// income is enabled and a last payday is set.
func ScheduledIncomeForRange(start, end time.Time, state core.AppState) int64 {
	if !state.UseScheduledIncome || state.IncomePerCycleCents <= 0 || state.LastPaydayISO == "" {
		return 0
	}
	anchor, err := core.ParseDate(state.LastPaydayISO)
	if err != nil {
		return 0
	}
	strategy, err := calendar.GetCycleStrategy(state.PayCycleOrDefault())
	if err != nil {
		strategy = calendar.FortnightlyCycle{}
	}

	first := core.DateOf(start)
	last := core.DateOf(end)

	n := 0
	for strategy.Step(anchor, n).Before(first) {
		n++
	}
	for !strategy.Step(anchor, n-1).Before(first) {
		n--
	}

	var paydays int64
	for d := strategy.Step(anchor, n); !last.Before(d); d = strategy.Step(anchor, n) {
		if calendar.InRange(d, start, end) {
			paydays++
		}
		n++
	}
	return paydays * state.IncomePerCycleCents
}
