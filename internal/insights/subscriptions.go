// Package insights holds the behavioral detectors built on top of the
// budget aggregation: recurring charges, weekly spend spikes, split
// balances and the eating-out coach.
package insights

import (
	"math"
	"sort"

	"pocketops/internal/calendar"
	"pocketops/internal/core"
)

const (
	maxSubscriptionCandidates = 12
	minToleranceCents         = 100
	toleranceShare            = 0.10
)

// SubscriptionCandidate is a merchant charging a steady amount across months.
type SubscriptionCandidate struct {
	MerchantKey  string `json:"merchantKey"`
	TypicalCents int64  `json:"typicalCents"`
	Months       int    `json:"months"`
}

// SubscriptionCandidates finds merchants charged in at least two calendar
// months whose monthly medians stay within tolerance of the typical amount.
// Suppressed keys and merchants already tracked as bills are skipped.
func SubscriptionCandidates(txs []core.Transaction, suppressedKeys []string, existingBills []core.Bill) []SubscriptionCandidate {
	suppressed := make(map[string]struct{}, len(suppressedKeys)+len(existingBills))
	for _, k := range suppressedKeys {
		suppressed[k] = struct{}{}
	}
	for _, b := range existingBills {
		if b.MerchantKey != "" {
			suppressed[b.MerchantKey] = struct{}{}
		}
	}

	var merchants []string
	byMerchant := make(map[string][]core.Transaction)
	for _, tx := range txs {
		if tx.Type != core.Expense || tx.MerchantKey == "" {
			continue
		}
		if _, skip := suppressed[tx.MerchantKey]; skip {
			continue
		}
		if _, ok := byMerchant[tx.MerchantKey]; !ok {
			merchants = append(merchants, tx.MerchantKey)
		}
		byMerchant[tx.MerchantKey] = append(byMerchant[tx.MerchantKey], tx)
	}

	out := []SubscriptionCandidate{}
	for _, key := range merchants {
		var months []string
		byMonth := make(map[string][]int64)
		for _, tx := range byMerchant[key] {
			ym := tx.Date.MonthKey()
			if _, ok := byMonth[ym]; !ok {
				months = append(months, ym)
			}
			byMonth[ym] = append(byMonth[ym], tx.AmountCents)
		}
		if len(months) < 2 {
			continue
		}

		medians := make([]int64, 0, len(months))
		for _, ym := range months {
			medians = append(medians, median(byMonth[ym]))
		}
		typical := median(medians)
		tolerance := math.Max(minToleranceCents, float64(typical)*toleranceShare)

		matches := 0
		for _, m := range medians {
			if math.Abs(float64(m-typical)) <= tolerance {
				matches++
			}
		}
		if matches >= 2 {
			out = append(out, SubscriptionCandidate{MerchantKey: key, TypicalCents: typical, Months: len(months)})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Months != out[j].Months {
			return out[i].Months > out[j].Months
		}
		return out[i].TypicalCents > out[j].TypicalCents
	})
	if len(out) > maxSubscriptionCandidates {
		out = out[:maxSubscriptionCandidates]
	}
	return out
}

// median of values; an even count averages the middle pair, rounded.
func median(values []int64) int64 {
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return calendar.Round(float64(sorted[mid-1]+sorted[mid]) / 2)
}
