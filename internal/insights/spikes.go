package insights

import (
	"sort"
	"time"

	"pocketops/internal/budget"
	"pocketops/internal/calendar"
	"pocketops/internal/core"
)

const (
	baselineWeeks = 4
	spikeFactor   = 1.5
	maxSpikes     = 10
	maxCauses     = 3
	unknownName   = "Unknown"
)

// MerchantCause is a merchant's contribution to a spike.
type MerchantCause struct {
	Merchant string `json:"merchant"`
	Cents    int64  `json:"cents"`
}

// Spike is a category whose spend this week is well above its recent average.
type Spike struct {
	Category      string          `json:"category"`
	ThisWeekCents int64           `json:"thisWeekCents"`
	AvgCents      int64           `json:"avgCents"`
	Causes        []MerchantCause `json:"causes"`
}

// SpendSpikes compares this week's per-category spend with the average of
// the four preceding weeks (empty weeks count as zero). A category spikes
// when its average is positive and this week reaches 1.5 times it.
func SpendSpikes(txs []core.Transaction, now time.Time) []Spike {
	start, end := calendar.StartOfWeek(now), calendar.EndOfWeek(now)
	thisWeek := budget.ExpensesByCategory(txs, start, end)

	previous := budget.NewCategoryAmounts()
	for i := 1; i <= baselineWeeks; i++ {
		s := start.AddDate(0, 0, -7*i)
		e := end.AddDate(0, 0, -7*i)
		for _, entry := range budget.ExpensesByCategory(txs, s, e).Entries() {
			previous.Add(entry.Category, entry.Cents)
		}
	}

	spikes := []Spike{}
	for _, entry := range thisWeek.Entries() {
		avg := calendar.Round(float64(previous.Value(entry.Category)) / baselineWeeks)
		if avg <= 0 {
			continue
		}
		if entry.Cents < calendar.Round(float64(avg)*spikeFactor) {
			continue
		}
		spikes = append(spikes, Spike{
			Category:      entry.Category,
			ThisWeekCents: entry.Cents,
			AvgCents:      avg,
			Causes:        topMerchants(txs, entry.Category, start, end, maxCauses),
		})
	}

	sort.SliceStable(spikes, func(i, j int) bool {
		return spikes[i].ThisWeekCents-spikes[i].AvgCents > spikes[j].ThisWeekCents-spikes[j].AvgCents
	})
	if len(spikes) > maxSpikes {
		spikes = spikes[:maxSpikes]
	}
	return spikes
}

// topMerchants sums a category's expenses in range per merchant display name.
func topMerchants(txs []core.Transaction, category string, start, end time.Time, limit int) []MerchantCause {
	var names []string
	sums := make(map[string]int64)
	for _, tx := range txs {
		if tx.Type != core.Expense || tx.Category != category || !calendar.InRange(tx.Date, start, end) {
			continue
		}
		name := tx.Merchant
		if name == "" {
			name = unknownName
		}
		if _, ok := sums[name]; !ok {
			names = append(names, name)
		}
		sums[name] += tx.AmountCents
	}

	out := make([]MerchantCause, 0, len(names))
	for _, n := range names {
		out = append(out, MerchantCause{Merchant: n, Cents: sums[n]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Cents > out[j].Cents })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
