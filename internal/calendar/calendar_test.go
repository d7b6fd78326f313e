package calendar

import (
	"sync"
	"testing"
	"time"

	"pocketops/internal/core"
)

func TestWeekBounds(t *testing.T) {
	loc := time.FixedZone("AEST", 10*3600)
	tests := []struct {
		name  string
		now   time.Time
		start time.Time
	}{
		{"thursday", time.Date(2026, 2, 12, 15, 0, 0, 0, loc), time.Date(2026, 2, 9, 0, 0, 0, 0, loc)},
		{"monday", time.Date(2026, 2, 9, 0, 0, 0, 0, loc), time.Date(2026, 2, 9, 0, 0, 0, 0, loc)},
		{"sunday", time.Date(2026, 2, 15, 23, 0, 0, 0, loc), time.Date(2026, 2, 9, 0, 0, 0, 0, loc)},
		{"across month", time.Date(2026, 3, 1, 9, 0, 0, 0, loc), time.Date(2026, 2, 23, 0, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StartOfWeek(tt.now); !got.Equal(tt.start) {
				t.Errorf("StartOfWeek() = %v, want %v", got, tt.start)
			}
			wantEnd := tt.start.AddDate(0, 0, 7).Add(-time.Millisecond)
			if got := EndOfWeek(tt.now); !got.Equal(wantEnd) {
				t.Errorf("EndOfWeek() = %v, want %v", got, wantEnd)
			}
		})
	}
}

func TestMonthBounds(t *testing.T) {
	now := time.Date(2024, 2, 17, 10, 0, 0, 0, time.UTC)
	if got := StartOfMonth(now); !got.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("StartOfMonth() = %v", got)
	}
	if got := EndOfMonth(now); !got.Equal(time.Date(2024, 2, 29, 23, 59, 59, 999000000, time.UTC)) {
		t.Errorf("EndOfMonth() = %v", got)
	}
	if got := DaysInMonth(now); got != 29 {
		t.Errorf("DaysInMonth() = %d, want 29", got)
	}
}

func TestProjection(t *testing.T) {
	tests := []struct {
		name          string
		total         int64
		elapsed, days int
		want          int64
	}{
		{"linear", 3000, 3, 7, 7000},
		{"rounds half up", 100, 3, 7, 233},
		{"zero elapsed", 4200, 0, 7, 4200},
		{"negative elapsed", 4200, -2, 30, 4200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Projection(tt.total, tt.elapsed, tt.days); got != tt.want {
				t.Errorf("Projection() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConvertCycleAmount(t *testing.T) {
	tests := []struct {
		cents  int64
		cycle  core.Cycle
		period core.Period
		want   int64
	}{
		{10000, core.Weekly, core.Week, 10000},
		{10000, core.Fortnightly, core.Week, 5000},
		{52000, core.Monthly, core.Week, 12000},
		{1200, core.Weekly, core.Month, 5200},
		{1200, core.Fortnightly, core.Month, 2600},
		{1200, core.Monthly, core.Month, 1200},
		{5200, "daily", core.Week, 1200},
		{1200, "daily", core.Month, 2600},
		{777, core.Weekly, "year", 777},
		{1, core.Fortnightly, core.Week, 1},
	}
	for _, tt := range tests {
		if got := ConvertCycleAmount(tt.cents, tt.cycle, tt.period); got != tt.want {
			t.Errorf("ConvertCycleAmount(%d, %s, %s) = %d, want %d", tt.cents, tt.cycle, tt.period, got, tt.want)
		}
	}
}

func TestElapsedAndTotalDays(t *testing.T) {
	now := time.Date(2026, 2, 12, 18, 30, 0, 0, time.UTC)
	start, _ := Range(core.Week, now)
	if got := ElapsedDays(core.Week, start, now); got != 4 {
		t.Errorf("week elapsed = %d, want 4", got)
	}
	if got := TotalDays(core.Week, now); got != 7 {
		t.Errorf("week total = %d, want 7", got)
	}
	mstart, _ := Range(core.Month, now)
	if got := ElapsedDays(core.Month, mstart, now); got != 12 {
		t.Errorf("month elapsed = %d, want 12", got)
	}
	if got := TotalDays(core.Month, now); got != 28 {
		t.Errorf("month total = %d, want 28", got)
	}
}

func TestInRange(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)
	start, end := Range(core.Week, now)
	cases := map[core.Date]bool{
		core.NewDate(2026, 2, 8):  false,
		core.NewDate(2026, 2, 9):  true,
		core.NewDate(2026, 2, 15): true,
		core.NewDate(2026, 2, 16): false,
	}
	for d, want := range cases {
		if got := InRange(d, start, end); got != want {
			t.Errorf("InRange(%s) = %v, want %v", d, got, want)
		}
	}
}

func TestCycleStrategyStep(t *testing.T) {
	anchor := core.NewDate(2026, 1, 31)
	tests := []struct {
		cycle core.Cycle
		n     int
		want  core.Date
	}{
		{core.Weekly, 1, core.NewDate(2026, 2, 7)},
		{core.Weekly, -1, core.NewDate(2026, 1, 24)},
		{core.Fortnightly, 2, core.NewDate(2026, 2, 28)},
		{core.Monthly, 1, core.NewDate(2026, 2, 28)},
		{core.Monthly, 2, core.NewDate(2026, 3, 31)},
	}
	for _, tt := range tests {
		s, err := GetCycleStrategy(tt.cycle)
		if err != nil {
			t.Fatalf("GetCycleStrategy(%s): %v", tt.cycle, err)
		}
		if got := s.Step(anchor, tt.n); got != tt.want {
			t.Errorf("%s.Step(%d) = %s, want %s", tt.cycle, tt.n, got, tt.want)
		}
	}
	if _, err := GetCycleStrategy("daily"); err == nil {
		t.Error("expected error for unknown cycle")
	}
}

func TestCycleFactorsConcurrentReads(t *testing.T) {
	want := map[core.Cycle][2]float64{
		core.Weekly:      {1, 52.0 / 12.0},
		core.Fortnightly: {0.5, 26.0 / 12.0},
		core.Monthly:     {12.0 / 52.0, 1},
	}

	var wg sync.WaitGroup
	errs := make(chan string, 16*len(want)*2)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cycle, f := range want {
				if got := WeeklyFactor(cycle); got != f[0] {
					errs <- string(cycle) + " weekly factor changed"
				}
				if got := MonthlyFactor(cycle); got != f[1] {
					errs <- string(cycle) + " monthly factor changed"
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}

	// unknown cycles fall back without being added to the table
	if WeeklyFactor("daily") != want[core.Monthly][0] || MonthlyFactor("daily") != want[core.Fortnightly][1] {
		t.Fatal("unexpected fallback factors")
	}
	if _, err := GetCycleStrategy("daily"); err == nil {
		t.Fatal("fallback must not register the unknown cycle")
	}
}
