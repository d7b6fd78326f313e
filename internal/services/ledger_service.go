package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pocketops/internal/amqp"
	"pocketops/internal/calendar"
	"pocketops/internal/categories"
	"pocketops/internal/core"
	"pocketops/internal/insights"
	"pocketops/internal/ledger"
	"pocketops/internal/log"
)

// EventPublisher announces ledger changes to the report worker.
type EventPublisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// Option configures the services.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

// WithClock replaces time.Now. The returned time's location anchors weeks and months.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the UUID generator used for new records.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// LedgerService owns every write to the ledger: it validates input, keeps
// the merchant memory and recent categories current, and publishes a
// ledger changed event after each successful write.
type LedgerService struct {
	store  ledger.Store
	events EventPublisher
	opts   options

	// serializes app state read-modify-write cycles
	stateMu sync.Mutex

	hooksMu sync.RWMutex
	hooks   []func()
}

func NewLedgerService(store ledger.Store, events EventPublisher, opts ...Option) *LedgerService {
	return &LedgerService{
		store:  store,
		events: events,
		opts:   buildOptions(opts),
	}
}

// OnChange registers fn to run after every successful write.
func (s *LedgerService) OnChange(fn func()) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// SplitInput describes a split as entered: either an amount or a percentage
// of the transaction amount.
type SplitInput struct {
	Enabled     bool           `json:"enabled"`
	Type        core.SplitType `json:"type"`
	AmountCents int64          `json:"amountCents"`
	Percent     float64        `json:"percent"`
}

// TransactionInput is a transaction as submitted by a user. An empty ID
// creates a new transaction.
type TransactionInput struct {
	ID          string               `json:"id"`
	Type        core.TransactionType `json:"type"`
	AmountCents int64                `json:"amountCents"`
	Merchant    string               `json:"merchant"`
	Category    string               `json:"category"`
	Date        core.Date            `json:"date"`
	Notes       string               `json:"notes"`
	Split       *SplitInput          `json:"split,omitempty"`
}

// resolveSplit derives the stored split. A missing or non-positive amount
// falls back to the percentage; the result never exceeds the transaction.
func resolveSplit(in *SplitInput, baseCents int64) *core.Split {
	if in == nil || !in.Enabled {
		return &core.Split{Enabled: false}
	}
	cents := in.AmountCents
	if cents <= 0 && in.Percent > 0 {
		cents = calendar.Round(float64(baseCents) * (in.Percent / 100))
	}
	if cents <= 0 {
		return &core.Split{Enabled: false}
	}
	typ := in.Type
	if typ == "" {
		typ = core.IPaid
	}
	return &core.Split{Enabled: true, Type: typ, AmountCents: min(baseCents, cents)}
}

// SaveTransaction creates or updates a transaction. An empty category is
// filled from the merchant memory, then from the merchant name rules.
func (s *LedgerService) SaveTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	op := amqp.OpCreate
	if in.ID != "" {
		if _, err := s.store.GetTransaction(ctx, in.ID); err != nil {
			return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
		}
		op = amqp.OpUpdate
	} else {
		in.ID = s.opts.newID()
	}

	merchant := strings.TrimSpace(in.Merchant)
	date := in.Date
	if date.IsZero() {
		date = core.DateOf(s.opts.now())
	}

	tx := core.Transaction{
		ID:          in.ID,
		Type:        in.Type,
		AmountCents: in.AmountCents,
		Merchant:    merchant,
		MerchantKey: core.MerchantKeyFrom(merchant),
		Category:    strings.TrimSpace(in.Category),
		Date:        date,
		Notes:       strings.TrimSpace(in.Notes),
		Split:       resolveSplit(in.Split, in.AmountCents),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if tx.Category == "" {
		hint, err := s.CategoryHint(ctx, merchant)
		if err != nil {
			return core.Transaction{}, err
		}
		tx.Category = hint
	}

	if err := s.store.AddTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	if err := s.store.SetMerchantCategory(ctx, tx.MerchantKey, tx.Category); err != nil {
		slog.WarnContext(ctx, "Failed to remember merchant category",
			log.FieldMerchantKey, tx.MerchantKey, log.FieldError, err)
	}
	if err := s.rememberCategory(ctx, tx.Category); err != nil {
		slog.WarnContext(ctx, "Failed to update recent categories", log.FieldError, err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		log.FieldTxID, tx.ID,
		log.FieldTxType, tx.Type,
		log.FieldAmountCents, tx.AmountCents,
		log.FieldCategory, tx.Category,
		log.FieldOperation, op)

	s.changed(ctx, amqp.KindTransaction, op, tx.ID)
	return tx, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction deleted", log.FieldTxID, id)
	s.changed(ctx, amqp.KindTransaction, amqp.OpDelete, id)
	return nil
}

func (s *LedgerService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

func (s *LedgerService) rememberCategory(ctx context.Context, category string) error {
	return s.updateState(ctx, func(st *core.AppState) error {
		st.RecentCategories = categories.RememberRecent(st.RecentCategories, category)
		return nil
	})
}

// updateState applies fn to the stored app state and saves the result.
func (s *LedgerService) updateState(ctx context.Context, fn func(*core.AppState) error) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	st, err := s.store.AppState(ctx)
	if err != nil {
		return fmt.Errorf("load app state: %w", err)
	}
	if err := fn(&st); err != nil {
		return err
	}
	if err := s.store.SaveAppState(ctx, st); err != nil {
		return fmt.Errorf("save app state: %w", err)
	}
	return nil
}

func (s *LedgerService) AppState(ctx context.Context) (core.AppState, error) {
	return s.store.AppState(ctx)
}

// PayScheduleInput updates the income figures of the app state.
type PayScheduleInput struct {
	PayCycle            core.Cycle `json:"payCycle"`
	IncomePerCycleCents int64      `json:"incomePerCycleCents"`
	LastPaydayISO       string     `json:"lastPaydayISO"`
	UseScheduledIncome  bool       `json:"useScheduledIncome"`
}

func (s *LedgerService) UpdatePaySchedule(ctx context.Context, in PayScheduleInput) (core.AppState, error) {
	if !in.PayCycle.Valid() {
		return core.AppState{}, core.ErrInvalidCycle
	}
	if in.IncomePerCycleCents < 0 {
		return core.AppState{}, core.ErrInvalidAmount
	}
	if in.LastPaydayISO != "" {
		if _, err := core.ParseDate(in.LastPaydayISO); err != nil {
			return core.AppState{}, err
		}
	}

	var out core.AppState
	err := s.updateState(ctx, func(st *core.AppState) error {
		st.PayCycle = in.PayCycle
		st.IncomePerCycleCents = in.IncomePerCycleCents
		st.UseScheduledIncome = in.UseScheduledIncome
		if in.LastPaydayISO != "" {
			st.LastPaydayISO = in.LastPaydayISO
		}
		out = *st
		return nil
	})
	if err != nil {
		return core.AppState{}, err
	}
	s.changed(ctx, amqp.KindAppState, amqp.OpUpdate, "")
	return out, nil
}

func (s *LedgerService) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx)
}

// SaveBudgets upserts budget rows by category.
func (s *LedgerService) SaveBudgets(ctx context.Context, budgets []core.Budget) error {
	for i, b := range budgets {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("budget %d (%s): %w", i, b.Category, err)
		}
	}
	if err := s.store.SaveBudgets(ctx, budgets); err != nil {
		return fmt.Errorf("save budgets: %w", err)
	}
	slog.InfoContext(ctx, "Budgets saved", log.FieldCount, len(budgets))
	s.changed(ctx, amqp.KindBudget, amqp.OpUpdate, "")
	return nil
}

func (s *LedgerService) ListBills(ctx context.Context) ([]core.Bill, error) {
	return s.store.ListBills(ctx)
}

// SaveBill creates a bill, or replaces the bill with the same ID.
func (s *LedgerService) SaveBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	b.Name = strings.TrimSpace(b.Name)
	if b.Cycle == "" {
		b.Cycle = core.Monthly
	}
	if b.Category == "" {
		b.Category = "bills"
	}
	if b.Active == nil {
		b.Active = core.Bool(true)
	}
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	op := amqp.OpUpdate
	if b.ID == "" {
		b.ID = s.opts.newID()
		op = amqp.OpCreate
	}
	if err := s.store.SaveBill(ctx, b); err != nil {
		return core.Bill{}, fmt.Errorf("save bill: %w", err)
	}
	slog.InfoContext(ctx, "Bill saved", "bill_id", b.ID, log.FieldAmountCents, b.AmountCents, "cycle", b.Cycle)
	s.changed(ctx, amqp.KindBill, op, b.ID)
	return b, nil
}

func (s *LedgerService) DeleteBill(ctx context.Context, id string) error {
	if err := s.store.DeleteBill(ctx, id); err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	s.changed(ctx, amqp.KindBill, amqp.OpDelete, id)
	return nil
}

// MarkAsSubscription turns a detected recurring charge into a monthly bill
// in "subscriptions" and stops suggesting the merchant.
func (s *LedgerService) MarkAsSubscription(ctx context.Context, merchantKey string) (core.Bill, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return core.Bill{}, fmt.Errorf("load ledger: %w", err)
	}
	candidates := insights.SubscriptionCandidates(snap.Transactions, snap.AppState.SuppressedSubscriptionKeys, snap.Bills)
	idx := slices.IndexFunc(candidates, func(c insights.SubscriptionCandidate) bool {
		return c.MerchantKey == merchantKey
	})
	if idx < 0 {
		return core.Bill{}, fmt.Errorf("subscription candidate %q: %w", merchantKey, core.ErrNotFound)
	}
	c := candidates[idx]

	bill, err := s.SaveBill(ctx, core.Bill{
		Name:        c.MerchantKey,
		MerchantKey: c.MerchantKey,
		AmountCents: c.TypicalCents,
		Cycle:       core.Monthly,
		Category:    "subscriptions",
		Active:      core.Bool(true),
	})
	if err != nil {
		return core.Bill{}, err
	}

	err = s.updateState(ctx, func(st *core.AppState) error {
		if !slices.Contains(st.SuppressedSubscriptionKeys, merchantKey) {
			st.SuppressedSubscriptionKeys = append(st.SuppressedSubscriptionKeys, merchantKey)
		}
		return nil
	})
	if err != nil {
		return bill, err
	}
	return bill, nil
}

// Snapshot returns the whole ledger.
func (s *LedgerService) Snapshot(ctx context.Context) (core.Snapshot, error) {
	return s.store.Snapshot(ctx)
}

// Restore replaces the whole ledger, as an import does.
func (s *LedgerService) Restore(ctx context.Context, snap core.Snapshot) error {
	s.stateMu.Lock()
	err := s.store.Restore(ctx, snap)
	s.stateMu.Unlock()
	if err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}
	slog.InfoContext(ctx, "Ledger imported",
		log.FieldOperation, log.OpImport,
		log.FieldCount, len(snap.Transactions))
	s.changed(ctx, amqp.KindImport, amqp.OpBulk, "")
	return nil
}

// Reset clears every record and returns the app state to a fresh install,
// so onboarding runs again.
func (s *LedgerService) Reset(ctx context.Context) error {
	state := core.DefaultAppState()
	state.OnboardingCompleted = false
	s.stateMu.Lock()
	err := s.store.Restore(ctx, core.Snapshot{
		AppState:     state,
		Transactions: []core.Transaction{},
		Budgets:      []core.Budget{},
		Bills:        []core.Bill{},
		MerchantMap:  []core.MerchantCategory{},
	})
	s.stateMu.Unlock()
	if err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	slog.WarnContext(ctx, "Ledger reset")
	s.changed(ctx, amqp.KindReset, amqp.OpBulk, "")
	return nil
}

// changed runs the change hooks and publishes the event. Publishing is
// best effort: the write already succeeded.
func (s *LedgerService) changed(ctx context.Context, kind, op, id string) {
	s.hooksMu.RLock()
	hooks := append([]func(){}, s.hooks...)
	s.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn()
	}

	if s.events == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping ledger changed message")
		return
	}
	if err := s.events.PublishLedgerChanged(ctx, amqp.NewLedgerChangedMessage(kind, op, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger changed message",
			"kind", kind,
			log.FieldOperation, op,
			log.FieldError, err)
	}
}

// IsValidation reports whether err was caused by bad input rather than a
// storage failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount, core.ErrInvalidDate, core.ErrInvalidType, core.ErrInvalidCycle,
		core.ErrInvalidSplit, core.ErrEmptyMerchant, core.ErrMerchantTooLong, core.ErrEmptyCategory, core.ErrEmptyName,
		core.ErrCategoryMissing,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
