package calendar

import (
	"fmt"
	"time"

	"pocketops/internal/core"
)

// CycleStrategy is the strategy interface for a pay or bill cadence.
// Each implementation knows how to convert its amounts into week and month
// equivalents and how to step a payday.
type CycleStrategy interface {
	// WeeklyFactor scales one cycle's amount to a week.
	WeeklyFactor() float64
	// MonthlyFactor scales one cycle's amount to a month.
	MonthlyFactor() float64
	// Step moves a payday n cycles forward (negative n moves backward).
	Step(from core.Date, n int) core.Date
}

// WeeklyCycle implements CycleStrategy for weekly cadences.
type WeeklyCycle struct{}

func (WeeklyCycle) WeeklyFactor() float64  { return 1 }
func (WeeklyCycle) MonthlyFactor() float64 { return 52.0 / 12.0 }

func (WeeklyCycle) Step(from core.Date, n int) core.Date {
	return addDays(from, 7*n)
}

// FortnightlyCycle implements CycleStrategy for fortnightly cadences.
type FortnightlyCycle struct{}

func (FortnightlyCycle) WeeklyFactor() float64  { return 0.5 }
func (FortnightlyCycle) MonthlyFactor() float64 { return 26.0 / 12.0 }

func (FortnightlyCycle) Step(from core.Date, n int) core.Date {
	return addDays(from, 14*n)
}

// MonthlyCycle implements CycleStrategy for monthly cadences.
type MonthlyCycle struct{}

func (MonthlyCycle) WeeklyFactor() float64  { return 12.0 / 52.0 }
func (MonthlyCycle) MonthlyFactor() float64 { return 1 }

// Step keeps the anchor's day of month, clamped to the target month's length.
func (MonthlyCycle) Step(from core.Date, n int) core.Date {
	return from.AddMonths(n)
}

// cycleStrategies maps cycles to their strategies. It is never written after
// init, so concurrent engine calls may read it freely.
var cycleStrategies = map[core.Cycle]CycleStrategy{
	core.Weekly:      WeeklyCycle{},
	core.Fortnightly: FortnightlyCycle{},
	core.Monthly:     MonthlyCycle{},
}

// GetCycleStrategy returns the strategy for a cycle.
// Returns an error if the cycle is not supported.
func GetCycleStrategy(cycle core.Cycle) (CycleStrategy, error) {
	s, ok := cycleStrategies[cycle]
	if !ok {
		return nil, fmt.Errorf("unknown cycle: %s", cycle)
	}
	return s, nil
}

// WeeklyFactor returns the week-equivalent factor of cycle. Unknown cycles
// are converted as monthly.
func WeeklyFactor(cycle core.Cycle) float64 {
	if s, err := GetCycleStrategy(cycle); err == nil {
		return s.WeeklyFactor()
	}
	return MonthlyCycle{}.WeeklyFactor()
}

// MonthlyFactor returns the month-equivalent factor of cycle. Unknown cycles
// are converted as fortnightly.
func MonthlyFactor(cycle core.Cycle) float64 {
	if s, err := GetCycleStrategy(cycle); err == nil {
		return s.MonthlyFactor()
	}
	return FortnightlyCycle{}.MonthlyFactor()
}

func addDays(d core.Date, n int) core.Date {
	return core.DateOf(d.Midnight(time.UTC).AddDate(0, 0, n))
}
