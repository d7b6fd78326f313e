// Package calendar provides the week/month boundary math, day counts,
// pace projection and pay-cycle conversion used by the budgeting engine.
//
// Every function takes its reference instant explicitly. Boundaries are
// computed in the location of that instant.
package calendar

import (
	"math"
	"time"

	"pocketops/internal/core"
)

const endOfDayNanos = 999 * int(time.Millisecond)

// StartOfWeek returns Monday 00:00:00.000 of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// EndOfWeek returns Sunday 23:59:59.999 of the week containing t.
func EndOfWeek(t time.Time) time.Time {
	y, m, d := StartOfWeek(t).Date()
	return time.Date(y, m, d+6, 23, 59, 59, endOfDayNanos, t.Location())
}

// StartOfMonth returns the first of t's month at 00:00:00.000.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last day of t's month at 23:59:59.999.
func EndOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 23, 59, 59, endOfDayNanos, t.Location())
}

func DaysInMonth(t time.Time) int {
	return core.DaysIn(t.Year(), t.Month())
}

// Round rounds half away from negative infinity, matching the rounding the
// stored figures were produced with (2.5 -> 3, -2.5 -> -2).
func Round(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

// Projection forecasts a period total from the spend so far at a linear pace.
// With no elapsed days the input is returned unchanged.
func Projection(totalSoFarCents int64, elapsedDays, totalDays int) int64 {
	if elapsedDays <= 0 {
		return totalSoFarCents
	}
	return Round(float64(totalSoFarCents) / float64(elapsedDays) * float64(totalDays))
}

// Range resolves the inclusive bounds of period anchored at now. Anything that
// is not a week is treated as a month.
func Range(period core.Period, now time.Time) (time.Time, time.Time) {
	if period == core.Week {
		return StartOfWeek(now), EndOfWeek(now)
	}
	return StartOfMonth(now), EndOfMonth(now)
}

// TotalDays is 7 for a week and the month length otherwise.
func TotalDays(period core.Period, now time.Time) int {
	if period == core.Week {
		return 7
	}
	return DaysInMonth(now)
}

// ElapsedDays counts the days of the period from start through now's day,
// inclusive, never less than one.
func ElapsedDays(period core.Period, start, now time.Time) int {
	if period != core.Week {
		return max(1, now.Day())
	}
	return max(1, DaysBetween(core.DateOf(start), core.DateOf(now))+1)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b core.Date) int {
	ua := a.Midnight(time.UTC)
	ub := b.Midnight(time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// InRange reports whether the calendar day d, taken at local midnight in the
// bounds' location, falls inside [start, end].
func InRange(d core.Date, start, end time.Time) bool {
	ts := d.Midnight(start.Location())
	return !ts.Before(start) && !ts.After(end)
}

// ConvertCycleAmount converts an amount denominated in cycle into its
// equivalent for period, rounded to the nearest cent. An unrecognized period
// returns the amount unconverted.
func ConvertCycleAmount(cents int64, cycle core.Cycle, period core.Period) int64 {
	switch period {
	case core.Week:
		return Round(float64(cents) * WeeklyFactor(cycle))
	case core.Month:
		return Round(float64(cents) * MonthlyFactor(cycle))
	default:
		return cents
	}
}
