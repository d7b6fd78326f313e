package services

import (
	"context"
	"fmt"
	"log/slog"

	"pocketops/internal/amqp"
	"pocketops/internal/budget"
	"pocketops/internal/core"
	"pocketops/internal/log"
)

// OnboardingInput is what the first-run flow collects.
type OnboardingInput struct {
	PayCycle            core.Cycle      `json:"payCycle"`
	PaydayISO           string          `json:"paydayISO"`
	IncomePerCycleCents int64           `json:"incomePerCycleCents"`
	Categories          []core.Category `json:"categories"`
	// BudgetCents holds the per-cycle amounts typed for each category.
	// Categories without an entry get a zero budget unless UseSuggested is set.
	BudgetCents  map[string]int64 `json:"budgetCents"`
	UseSuggested bool             `json:"useSuggested"`
	Demo         bool             `json:"demo"`
}

// CompleteOnboarding stores the pay schedule and starter categories, creates
// one budget row per category and optionally seeds demo data.
func (s *LedgerService) CompleteOnboarding(ctx context.Context, in OnboardingInput) (core.AppState, error) {
	if in.PayCycle == "" {
		in.PayCycle = core.Fortnightly
	}
	if !in.PayCycle.Valid() {
		return core.AppState{}, core.ErrInvalidCycle
	}
	if in.IncomePerCycleCents < 0 {
		return core.AppState{}, core.ErrInvalidAmount
	}
	if in.PaydayISO == "" {
		in.PaydayISO = core.TodayISO(s.opts.now())
	} else if _, err := core.ParseDate(in.PaydayISO); err != nil {
		return core.AppState{}, err
	}
	cats := in.Categories
	if len(cats) == 0 {
		cats = append([]core.Category(nil), core.StarterCategories...)
	}

	var out core.AppState
	err := s.updateState(ctx, func(st *core.AppState) error {
		st.OnboardingCompleted = true
		st.PayCycle = in.PayCycle
		st.PaydayISO = in.PaydayISO
		st.LastPaydayISO = in.PaydayISO
		st.IncomePerCycleCents = in.IncomePerCycleCents
		st.UseScheduledIncome = true
		st.CustomCategories = cats
		out = *st
		return nil
	})
	if err != nil {
		return core.AppState{}, err
	}

	suggested := budget.SuggestedStarterBudgets(in.IncomePerCycleCents, in.PayCycle, cats)
	rows := make([]core.Budget, 0, len(suggested))
	for _, sb := range suggested {
		row := sb.Budget()
		typed, ok := in.BudgetCents[sb.Category]
		switch {
		case ok && typed >= 0:
			row.CycleBudgetCents = typed
		case !in.UseSuggested:
			row.CycleBudgetCents = 0
		}
		rows = append(rows, row)
	}
	if err := s.store.SaveBudgets(ctx, rows); err != nil {
		return core.AppState{}, fmt.Errorf("save starter budgets: %w", err)
	}

	if in.Demo {
		if err := s.seedDemo(ctx, in.PayCycle); err != nil {
			return core.AppState{}, err
		}
	}

	slog.InfoContext(ctx, "Onboarding completed",
		"pay_cycle", in.PayCycle,
		log.FieldCount, len(cats),
		"demo", in.Demo)
	s.changed(ctx, amqp.KindAppState, amqp.OpBulk, "")
	return out, nil
}

type demoTransaction struct {
	amountCents int64
	merchant    string
	category    string
	monthsAgo   int
	notes       string
	split       *core.Split
}

var demoTransactions = []demoTransaction{
	{amountCents: 9230, merchant: "Woolworths", category: "groceries"},
	{amountCents: 3410, merchant: "Opal", category: "transport"},
	{amountCents: 5800, merchant: "Sharehouse dinner", category: "social", notes: "with mates",
		split: &core.Split{Enabled: true, Type: core.IPaid, AmountCents: 2900}},
	{amountCents: 1699, merchant: "Spotify", category: "subscriptions", monthsAgo: 1},
	{amountCents: 1699, merchant: "Spotify", category: "subscriptions", monthsAgo: 2},
}

func (s *LedgerService) seedDemo(ctx context.Context, payCycle core.Cycle) error {
	today := core.DateOf(s.opts.now())
	for _, d := range demoTransactions {
		split := d.split
		if split == nil {
			split = &core.Split{Enabled: false}
		}
		tx := core.Transaction{
			ID:          s.opts.newID(),
			Type:        core.Expense,
			AmountCents: d.amountCents,
			Merchant:    d.merchant,
			MerchantKey: core.MerchantKeyFrom(d.merchant),
			Category:    d.category,
			Date:        today.AddMonths(-d.monthsAgo),
			Notes:       d.notes,
			Split:       split,
		}
		if err := s.store.AddTransaction(ctx, tx); err != nil {
			return fmt.Errorf("seed demo transaction: %w", err)
		}
		if err := s.store.SetMerchantCategory(ctx, tx.MerchantKey, tx.Category); err != nil {
			return fmt.Errorf("seed merchant memory: %w", err)
		}
	}
	rent := core.Bill{
		ID:          s.opts.newID(),
		Name:        "Rent",
		AmountCents: 40000,
		Cycle:       payCycle,
		Category:    "rent",
		Active:      core.Bool(true),
	}
	if err := s.store.SaveBill(ctx, rent); err != nil {
		return fmt.Errorf("seed demo bill: %w", err)
	}
	return nil
}
