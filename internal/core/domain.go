package core

import (
	"errors"
	"strings"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Weekly      Cycle = "weekly"
	Fortnightly Cycle = "fortnightly"
	Monthly     Cycle = "monthly"

	Week  Period = "week"
	Month Period = "month"

	IPaid    SplitType = "i_paid"
	TheyPaid SplitType = "they_paid"

	// SchemaVersion is the version stamped on app state and export payloads.
	SchemaVersion = 2
)

type (
	TransactionType string

	// Cycle is the cadence a budget, bill or income figure is denominated in.
	Cycle string

	// Period is the dashboard display window.
	Period string

	SplitType string

	Split struct {
		Enabled     bool      `json:"enabled"`
		Type        SplitType `json:"type,omitempty"`
		AmountCents int64     `json:"amountCents,omitempty"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		AmountCents int64           `json:"amountCents"`
		Merchant    string          `json:"merchant"`
		MerchantKey string          `json:"merchantKey"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
		Notes       string          `json:"notes,omitempty"`
		Split       *Split          `json:"split,omitempty"`
	}

	Budget struct {
		Category         string `json:"category"`
		CycleBudgetCents int64  `json:"cycleBudgetCents"`
		// ReserveFromUnallocated defaults to true when unset.
		ReserveFromUnallocated *bool `json:"reserveFromUnallocated,omitempty"`
	}

	Bill struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		MerchantKey string `json:"merchantKey,omitempty"`
		AmountCents int64  `json:"amountCents"`
		Cycle       Cycle  `json:"cycle"`
		Category    string `json:"category,omitempty"`
		// Active defaults to true when unset.
		Active *bool `json:"active,omitempty"`
	}

	Category struct {
		Key   string `json:"key"`
		Label string `json:"label"`
		Emoji string `json:"emoji"`
	}

	CategoryOverride struct {
		Label string `json:"label"`
		Emoji string `json:"emoji"`
	}

	AppState struct {
		SchemaVersion              int                         `json:"schemaVersion"`
		OnboardingCompleted        bool                        `json:"onboardingCompleted"`
		PayCycle                   Cycle                       `json:"payCycle"`
		PaydayISO                  string                      `json:"paydayISO,omitempty"`
		LastPaydayISO              string                      `json:"lastPaydayISO,omitempty"`
		IncomePerCycleCents        int64                       `json:"incomePerCycleCents"`
		UseScheduledIncome         bool                        `json:"useScheduledIncome,omitempty"`
		RecentCategories           []string                    `json:"recentCategories"`
		CustomCategories           []Category                  `json:"customCategories"`
		CategoryOverrides          map[string]CategoryOverride `json:"categoryOverrides,omitempty"`
		DeletedCategoryKeys        []string                    `json:"deletedCategoryKeys,omitempty"`
		SuppressedSubscriptionKeys []string                    `json:"suppressedSubscriptionKeys"`
	}

	// MerchantCategory is one entry of the merchant -> category memory.
	MerchantCategory struct {
		MerchantKey string `json:"merchantKey"`
		Category    string `json:"category"`
	}

	// Snapshot is everything the engine needs, as handed over by storage.
	Snapshot struct {
		AppState     AppState           `json:"appState"`
		Transactions []Transaction      `json:"transactions"`
		Budgets      []Budget           `json:"budgets"`
		Bills        []Bill             `json:"bills"`
		MerchantMap  []MerchantCategory `json:"merchantMap"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidType     = errors.New("transaction type must be income or expense")
	ErrInvalidCycle    = errors.New("cycle must be weekly, fortnightly, or monthly")
	ErrInvalidSplit    = errors.New("invalid split")
	ErrEmptyMerchant   = errors.New("merchant is required")
	ErrMerchantTooLong = errors.New("merchant too long (max 200 characters)")
	ErrEmptyCategory   = errors.New("category is required")
	ErrEmptyName       = errors.New("name is required")
	ErrNotFound        = errors.New("not found")
	ErrCategoryMissing = errors.New("category not found")
)

// FallbackCategory is always present in the category registry.
var FallbackCategory = Category{Key: "other", Label: "Other", Emoji: "✨"}

// StarterCategories seed the user's custom categories on first run.
var StarterCategories = []Category{
	{Key: "food", Label: "Food", Emoji: "🍜"},
	{Key: "transport", Label: "Transport", Emoji: "🚌"},
	{Key: "rent", Label: "Rent", Emoji: "🏠"},
	{Key: "social", Label: "Social", Emoji: "🎉"},
	{Key: "subscriptions", Label: "Subscriptions", Emoji: "📺"},
}

// DefaultAppState returns the state of a fresh install.
func DefaultAppState() AppState {
	return AppState{
		SchemaVersion:              SchemaVersion,
		PayCycle:                   Fortnightly,
		RecentCategories:           []string{},
		CustomCategories:           append([]Category(nil), StarterCategories...),
		SuppressedSubscriptionKeys: []string{},
	}
}

// Bool returns a pointer to b, for optional flags.
func Bool(b bool) *bool {
	return &b
}

func (c Cycle) Valid() bool {
	switch c {
	case Weekly, Fortnightly, Monthly:
		return true
	default:
		return false
	}
}

func (p Period) Valid() bool {
	return p == Week || p == Month
}

// Reserves reports whether the budget row is subtracted from unallocated income.
func (b Budget) Reserves() bool {
	return b.ReserveFromUnallocated == nil || *b.ReserveFromUnallocated
}

// IsActive reports whether the bill is reserved.
func (b Bill) IsActive() bool {
	return b.Active == nil || *b.Active
}

// CategoryOrDefault returns the bill's category, "bills" when unset.
func (b Bill) CategoryOrDefault() string {
	if b.Category == "" {
		return "bills"
	}
	return b.Category
}

// CycleOrDefault returns the bill's cycle, monthly when unset.
func (b Bill) CycleOrDefault() Cycle {
	if b.Cycle == "" {
		return Monthly
	}
	return b.Cycle
}

// PayCycleOrDefault returns the configured pay cycle, fortnightly when unset.
func (s AppState) PayCycleOrDefault() Cycle {
	if s.PayCycle == "" {
		return Fortnightly
	}
	return s.PayCycle
}

// SplitActive reports whether the transaction carries an enabled split.
func (t Transaction) SplitActive() bool {
	return t.Split != nil && t.Split.Enabled
}

func (t Transaction) Validate() error {
	if t.Type != Income && t.Type != Expense {
		return ErrInvalidType
	}
	if t.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if len(t.Merchant) > 200 {
		return ErrMerchantTooLong
	}
	if t.SplitActive() {
		if t.Split.Type != IPaid && t.Split.Type != TheyPaid {
			return ErrInvalidSplit
		}
		if t.Split.AmountCents <= 0 || t.Split.AmountCents > t.AmountCents {
			return ErrInvalidSplit
		}
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.CycleBudgetCents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if b.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if !b.Cycle.Valid() {
		return ErrInvalidCycle
	}
	return nil
}
