// Package ledger defines the persistence ports the services depend on.
// Implementations live in ledger/memory and storage.
package ledger

import (
	"context"
	"time"

	"pocketops/internal/core"
)

// Ports for outbound adapters.
type (
	TransactionStore interface {
		// AddTransaction stores a new transaction or replaces one with the same ID.
		AddTransaction(ctx context.Context, tx core.Transaction) error
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		// ListTransactions returns every transaction, newest date first.
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	// BudgetStore keeps one budget row per category.
	BudgetStore interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		// SaveBudgets upserts rows by category.
		SaveBudgets(ctx context.Context, budgets []core.Budget) error
		DeleteBudget(ctx context.Context, category string) error
	}

	BillStore interface {
		ListBills(ctx context.Context) ([]core.Bill, error)
		// SaveBill upserts by ID.
		SaveBill(ctx context.Context, b core.Bill) error
		DeleteBill(ctx context.Context, id string) error
	}

	// MerchantMemory remembers the category last used for a merchant.
	MerchantMemory interface {
		MerchantCategory(ctx context.Context, merchantKey string) (string, bool, error)
		SetMerchantCategory(ctx context.Context, merchantKey, category string) error
	}

	AppStateStore interface {
		// AppState returns the stored state, or core.DefaultAppState when none.
		AppState(ctx context.Context) (core.AppState, error)
		SaveAppState(ctx context.Context, s core.AppState) error
	}

	// SnapshotStore reads and replaces the whole ledger at once.
	SnapshotStore interface {
		Snapshot(ctx context.Context) (core.Snapshot, error)
		Restore(ctx context.Context, s core.Snapshot) error
	}

	// ReportStore keeps the reports produced by the report worker as
	// opaque JSON documents.
	ReportStore interface {
		SaveReport(ctx context.Context, generatedAt time.Time, payload []byte) error
		LatestReport(ctx context.Context) (generatedAt time.Time, payload []byte, err error)
	}

	// Store is everything a backend provides.
	Store interface {
		TransactionStore
		BudgetStore
		BillStore
		MerchantMemory
		AppStateStore
		SnapshotStore
		ReportStore
		Close() error
	}
)
