// Package memory is an in-process ledger store, used by tests, the offline
// CLI and the memory backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pocketops/internal/core"
	"pocketops/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type report struct {
	at      time.Time
	payload []byte
}

type Store struct {
	mu       sync.Mutex
	txs      []core.Transaction
	budgets  []core.Budget
	bills    []core.Bill
	merchant map[string]string
	// merchant keys in insertion order, for stable snapshots
	merchantKeys []string
	state        *core.AppState
	reports      []report
}

func New() *Store {
	return &Store{merchant: map[string]string{}}
}

// NewFromSnapshot returns a store holding a copy of s.
func NewFromSnapshot(s core.Snapshot) *Store {
	st := New()
	_ = st.Restore(context.Background(), s)
	return st
}

func (s *Store) Close() error { return nil }

func (s *Store) AddTransaction(_ context.Context, tx core.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("transaction id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == tx.ID {
			s.txs[i] = copyTx(tx)
			return nil
		}
	}
	s.txs = append(s.txs, copyTx(tx))
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.ID == id {
			return copyTx(tx), nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		out = append(out, copyTx(tx))
	}
	s.mu.Unlock()

	// newest date first, later insertions first within a day
	idx := make(map[string]int, len(out))
	for i, tx := range out {
		idx[tx.ID] = i
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[j].Date.Before(out[i].Date)
		}
		return idx[out[i].ID] > idx[out[j].ID]
	})
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Budget(nil), s.budgets...), nil
}

func (s *Store) SaveBudgets(_ context.Context, budgets []core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
next:
	for _, b := range budgets {
		for i := range s.budgets {
			if s.budgets[i].Category == b.Category {
				s.budgets[i] = b
				continue next
			}
		}
		s.budgets = append(s.budgets, b)
	}
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.budgets[:0]
	for _, b := range s.budgets {
		if b.Category != category {
			out = append(out, b)
		}
	}
	s.budgets = out
	return nil
}

func (s *Store) ListBills(_ context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Bill(nil), s.bills...), nil
}

func (s *Store) SaveBill(_ context.Context, b core.Bill) error {
	if b.ID == "" {
		return fmt.Errorf("bill id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bills {
		if s.bills[i].ID == b.ID {
			s.bills[i] = b
			return nil
		}
	}
	s.bills = append(s.bills, b)
	return nil
}

func (s *Store) DeleteBill(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bills {
		if s.bills[i].ID == id {
			s.bills = append(s.bills[:i], s.bills[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("bill %s: %w", id, core.ErrNotFound)
}

func (s *Store) MerchantCategory(_ context.Context, merchantKey string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.merchant[merchantKey]
	return c, ok, nil
}

func (s *Store) SetMerchantCategory(_ context.Context, merchantKey, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setMerchant(merchantKey, category)
	return nil
}

func (s *Store) setMerchant(key, category string) {
	if _, ok := s.merchant[key]; !ok {
		s.merchantKeys = append(s.merchantKeys, key)
	}
	s.merchant[key] = category
}

func (s *Store) AppState(_ context.Context) (core.AppState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return core.DefaultAppState(), nil
	}
	return copyState(*s.state), nil
}

func (s *Store) SaveAppState(_ context.Context, st core.AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := copyState(st)
	s.state = &c
	return nil
}

func (s *Store) Snapshot(ctx context.Context) (core.Snapshot, error) {
	txs, _ := s.ListTransactions(ctx)
	state, _ := s.AppState(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	snap := core.Snapshot{
		AppState:     state,
		Transactions: txs,
		Budgets:      append([]core.Budget{}, s.budgets...),
		Bills:        append([]core.Bill{}, s.bills...),
		MerchantMap:  make([]core.MerchantCategory, 0, len(s.merchantKeys)),
	}
	for _, k := range s.merchantKeys {
		snap.MerchantMap = append(snap.MerchantMap, core.MerchantCategory{MerchantKey: k, Category: s.merchant[k]})
	}
	return snap, nil
}

func (s *Store) Restore(_ context.Context, snap core.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// snapshots list newest first; store oldest first
	s.txs = make([]core.Transaction, 0, len(snap.Transactions))
	for i := len(snap.Transactions) - 1; i >= 0; i-- {
		s.txs = append(s.txs, copyTx(snap.Transactions[i]))
	}
	s.budgets = append([]core.Budget(nil), snap.Budgets...)
	s.bills = append([]core.Bill(nil), snap.Bills...)
	s.merchant = map[string]string{}
	s.merchantKeys = nil
	for _, m := range snap.MerchantMap {
		s.setMerchant(m.MerchantKey, m.Category)
	}
	st := copyState(snap.AppState)
	s.state = &st
	return nil
}

func (s *Store) SaveReport(_ context.Context, generatedAt time.Time, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report{at: generatedAt, payload: append([]byte(nil), payload...)})
	return nil
}

func (s *Store) LatestReport(_ context.Context) (time.Time, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reports) == 0 {
		return time.Time{}, nil, fmt.Errorf("report: %w", core.ErrNotFound)
	}
	r := s.reports[len(s.reports)-1]
	return r.at, append([]byte(nil), r.payload...), nil
}

func copyTx(tx core.Transaction) core.Transaction {
	if tx.Split != nil {
		sp := *tx.Split
		tx.Split = &sp
	}
	return tx
}

func copyState(s core.AppState) core.AppState {
	s.RecentCategories = append([]string{}, s.RecentCategories...)
	s.CustomCategories = append([]core.Category{}, s.CustomCategories...)
	s.DeletedCategoryKeys = append([]string(nil), s.DeletedCategoryKeys...)
	s.SuppressedSubscriptionKeys = append([]string{}, s.SuppressedSubscriptionKeys...)
	if s.CategoryOverrides != nil {
		o := make(map[string]core.CategoryOverride, len(s.CategoryOverrides))
		for k, v := range s.CategoryOverrides {
			o[k] = v
		}
		s.CategoryOverrides = o
	}
	return s
}
