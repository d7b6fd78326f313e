package insights

import (
	"testing"
	"time"

	"pocketops/internal/core"
)

func expense(merchant, category, date string, cents int64) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		Type:        core.Expense,
		AmountCents: cents,
		Merchant:    merchant,
		MerchantKey: core.MerchantKeyFrom(merchant),
		Category:    category,
		Date:        d,
	}
}

func TestSubscriptionCandidates(t *testing.T) {
	txs := []core.Transaction{
		expense("Netflix", "subscriptions", "2026-01-03", 1699),
		expense("Netflix", "subscriptions", "2026-02-03", 1699),
		expense("Netflix", "subscriptions", "2026-03-03", 1699),
		expense("Spotify", "subscriptions", "2026-02-10", 1299),
		expense("Spotify", "subscriptions", "2026-02-24", 1299),
		expense("Gym", "health", "2026-01-05", 2500),
		expense("Gym", "health", "2026-02-05", 2550),
		expense("Coles", "groceries", "2026-01-05", 4000),
		expense("Coles", "groceries", "2026-02-05", 15000),
		expense("Coles", "groceries", "2026-03-05", 30000),
	}

	got := SubscriptionCandidates(txs, nil, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %+v", got)
	}
	if got[0] != (SubscriptionCandidate{MerchantKey: "netflix", TypicalCents: 1699, Months: 3}) {
		t.Errorf("first candidate = %+v", got[0])
	}
	// two months; median of 2500 and 2550
	if got[1] != (SubscriptionCandidate{MerchantKey: "gym", TypicalCents: 2525, Months: 2}) {
		t.Errorf("second candidate = %+v", got[1])
	}
}

func TestSubscriptionCandidates_Suppression(t *testing.T) {
	txs := []core.Transaction{
		expense("Netflix", "subscriptions", "2026-01-03", 1699),
		expense("Netflix", "subscriptions", "2026-02-03", 1699),
		expense("Stan", "subscriptions", "2026-01-03", 1000),
		expense("Stan", "subscriptions", "2026-02-03", 1000),
		{Type: core.Expense, AmountCents: 500, Date: core.NewDate(2026, 1, 1)},
		{Type: core.Expense, AmountCents: 500, Date: core.NewDate(2026, 2, 1)},
	}
	bills := []core.Bill{{Name: "Stan", MerchantKey: "stan", AmountCents: 1000, Cycle: core.Monthly}}

	if got := SubscriptionCandidates(txs, []string{"netflix"}, bills); len(got) != 0 {
		t.Fatalf("expected every merchant suppressed, got %+v", got)
	}
}

func TestSubscriptionCandidates_CapsAtTwelve(t *testing.T) {
	var txs []core.Transaction
	for i := 0; i < 15; i++ {
		name := string(rune('a' + i))
		txs = append(txs,
			expense(name, "subscriptions", "2026-01-10", int64(1000+i)),
			expense(name, "subscriptions", "2026-02-10", int64(1000+i)),
		)
	}
	got := SubscriptionCandidates(txs, nil, nil)
	if len(got) != 12 {
		t.Fatalf("expected 12 candidates, got %d", len(got))
	}
	if got[0].TypicalCents != 1014 {
		t.Fatalf("expected highest typical first, got %+v", got[0])
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []int64
		want int64
	}{
		{[]int64{5}, 5},
		{[]int64{3, 1, 2}, 2},
		{[]int64{1, 2}, 2},
		{[]int64{10, 20, 30, 40}, 25},
	}
	for _, tt := range tests {
		if got := median(tt.in); got != tt.want {
			t.Errorf("median(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSpendSpikes(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC) // Thursday
	txs := []core.Transaction{
		// baseline: food 4000 over four weeks -> avg 1000
		expense("Coles", "food", "2026-01-13", 2000),
		expense("Coles", "food", "2026-02-03", 2000),
		// baseline: transport avg 2000
		expense("Opal", "transport", "2026-01-20", 8000),
		// this week
		expense("Uber Eats", "food", "2026-02-09", 900),
		expense("", "food", "2026-02-10", 300),
		expense("Menulog", "food", "2026-02-11", 200),
		expense("KFC", "food", "2026-02-12", 100),
		expense("Opal", "transport", "2026-02-10", 2500),
		expense("Bunnings", "shopping", "2026-02-10", 9000),
	}

	spikes := SpendSpikes(txs, now)
	if len(spikes) != 1 {
		t.Fatalf("expected 1 spike, got %+v", spikes)
	}
	s := spikes[0]
	if s.Category != "food" || s.ThisWeekCents != 1500 || s.AvgCents != 1000 {
		t.Fatalf("unexpected spike %+v", s)
	}
	want := []MerchantCause{{"Uber Eats", 900}, {"Unknown", 300}, {"Menulog", 200}}
	if len(s.Causes) != len(want) {
		t.Fatalf("causes = %+v", s.Causes)
	}
	for i := range want {
		if s.Causes[i] != want[i] {
			t.Errorf("cause %d = %+v, want %+v", i, s.Causes[i], want[i])
		}
	}
}

func TestSpendSpikes_SortedByExcess(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		expense("a", "coffee", "2026-02-02", 400),
		expense("a", "coffee", "2026-02-10", 1000),
		expense("b", "social", "2026-02-02", 4000),
		expense("b", "social", "2026-02-10", 5000),
	}
	spikes := SpendSpikes(txs, now)
	if len(spikes) != 2 {
		t.Fatalf("expected 2 spikes, got %+v", spikes)
	}
	if spikes[0].Category != "social" || spikes[1].Category != "coffee" {
		t.Fatalf("unexpected order %+v", spikes)
	}
}

func TestSplitBalances(t *testing.T) {
	txs := []core.Transaction{
		{Type: core.Expense, AmountCents: 1000, Split: &core.Split{Enabled: true, Type: core.IPaid, AmountCents: 500}},
		{Type: core.Expense, AmountCents: 1000, Split: &core.Split{Enabled: true, Type: core.TheyPaid, AmountCents: 200}},
		{Type: core.Expense, AmountCents: 1000, Split: &core.Split{Enabled: false, Type: core.IPaid, AmountCents: 900}},
		{Type: core.Expense, AmountCents: 1000, Split: &core.Split{Enabled: true, Type: core.IPaid, AmountCents: 0}},
		{Type: core.Income, AmountCents: 1000, Split: &core.Split{Enabled: true, Type: core.IPaid, AmountCents: 700}},
		{Type: core.Expense, AmountCents: 1000},
	}
	got := SplitBalances(txs)
	if got != (SplitBalance{OwedToMe: 500, IOwe: 200, Net: 300}) {
		t.Fatalf("SplitBalances() = %+v", got)
	}
}

func TestEatingOutVsGroceries(t *testing.T) {
	now := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		expense("KFC", "takeaway", "2026-02-01", 1500),
		expense("Pub", "social", "2026-02-07", 4000),
		expense("Coles", "groceries", "2026-02-08", 9000),
		expense("Pho", "food", "2026-01-30", 2000),
	}
	got := EatingOutVsGroceries(txs, now)
	if got.Mode != ModeEatingOutVsGroceries || got.EatingOut != 5500 || got.Groceries != 9000 {
		t.Fatalf("unexpected coach %+v", got)
	}

	txs = []core.Transaction{
		expense("Myer", "shopping", "2026-02-01", 3000),
		expense("Opal", "transport", "2026-02-02", 5000),
		expense("Chemist", "health", "2026-02-03", 5000),
	}
	got = EatingOutVsGroceries(txs, now)
	if got.Mode != ModeTopTwo || len(got.TopTwo) != 2 {
		t.Fatalf("unexpected coach %+v", got)
	}
	if got.TopTwo[0].Category != "transport" || got.TopTwo[1].Category != "health" {
		t.Fatalf("ties must keep first-seen order, got %+v", got.TopTwo)
	}
}
