package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pocketops/internal/core"
	"pocketops/internal/ledger"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY on concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SchemaVersion is the migration version the database was brought up to.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

// Ping checks the connection, for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const upsertTransaction = `
INSERT INTO transactions (id, type, amount_cents, merchant, merchant_key, category, date, notes,
    split_enabled, split_type, split_amount_cents)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    type = excluded.type,
    amount_cents = excluded.amount_cents,
    merchant = excluded.merchant,
    merchant_key = excluded.merchant_key,
    category = excluded.category,
    date = excluded.date,
    notes = excluded.notes,
    split_enabled = excluded.split_enabled,
    split_type = excluded.split_type,
    split_amount_cents = excluded.split_amount_cents`

const selectTransaction = `
SELECT id, type, amount_cents, merchant, merchant_key, category, date, notes,
    split_enabled, split_type, split_amount_cents
FROM transactions`

func (r *SQLiteRepository) AddTransaction(ctx context.Context, tx core.Transaction) error {
	if tx.ID == "" {
		return errors.New("transaction id is required")
	}
	if err := insertTransaction(ctx, r.db, tx); err != nil {
		return err
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"type", tx.Type,
		"amount_cents", tx.AmountCents,
		"date", tx.Date.String())
	return nil
}

func insertTransaction(ctx context.Context, ex execer, tx core.Transaction) error {
	var (
		splitEnabled bool
		splitType    string
		splitCents   int64
	)
	if tx.Split != nil {
		splitEnabled = tx.Split.Enabled
		splitType = string(tx.Split.Type)
		splitCents = tx.Split.AmountCents
	}
	_, err := ex.ExecContext(ctx, upsertTransaction,
		tx.ID, string(tx.Type), tx.AmountCents, tx.Merchant, tx.MerchantKey, tx.Category,
		tx.Date.String(), tx.Notes, splitEnabled, splitType, splitCents)
	if err != nil {
		return fmt.Errorf("upsert transaction %s: %w", tx.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx           core.Transaction
		txType, date string
		splitEnabled bool
		splitType    string
		splitCents   int64
	)
	if err := row.Scan(&tx.ID, &txType, &tx.AmountCents, &tx.Merchant, &tx.MerchantKey,
		&tx.Category, &date, &tx.Notes, &splitEnabled, &splitType, &splitCents); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(txType)
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	tx.Date = d
	if splitEnabled || splitType != "" || splitCents != 0 {
		tx.Split = &core.Split{Enabled: splitEnabled, Type: core.SplitType(splitType), AmountCents: splitCents}
	}
	return tx, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectTransaction+` ORDER BY date DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res, "transaction", id)
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, cycle_budget_cents, reserve_from_unallocated FROM budgets ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		var (
			b       core.Budget
			reserve sql.NullBool
		)
		if err := rows.Scan(&b.Category, &b.CycleBudgetCents, &reserve); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if reserve.Valid {
			b.ReserveFromUnallocated = core.Bool(reserve.Bool)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveBudgets(ctx context.Context, budgets []core.Budget) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	for _, b := range budgets {
		if err := insertBudget(ctx, dbTx, b); err != nil {
			return err
		}
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit budgets: %w", err)
	}
	return nil
}

func insertBudget(ctx context.Context, ex execer, b core.Budget) error {
	var reserve sql.NullBool
	if b.ReserveFromUnallocated != nil {
		reserve = sql.NullBool{Bool: *b.ReserveFromUnallocated, Valid: true}
	}
	_, err := ex.ExecContext(ctx, `
INSERT INTO budgets (category, cycle_budget_cents, reserve_from_unallocated) VALUES (?, ?, ?)
ON CONFLICT(category) DO UPDATE SET
    cycle_budget_cents = excluded.cycle_budget_cents,
    reserve_from_unallocated = excluded.reserve_from_unallocated`,
		b.Category, b.CycleBudgetCents, reserve)
	if err != nil {
		return fmt.Errorf("upsert budget %s: %w", b.Category, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, category string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE category = ?`, category); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, merchant_key, amount_cents, cycle, category, active FROM bills ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	out := []core.Bill{}
	for rows.Next() {
		var (
			b      core.Bill
			cycle  string
			active sql.NullBool
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.MerchantKey, &b.AmountCents, &cycle, &b.Category, &active); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		b.Cycle = core.Cycle(cycle)
		if active.Valid {
			b.Active = core.Bool(active.Bool)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveBill(ctx context.Context, b core.Bill) error {
	if b.ID == "" {
		return errors.New("bill id is required")
	}
	return insertBill(ctx, r.db, b)
}

func insertBill(ctx context.Context, ex execer, b core.Bill) error {
	var active sql.NullBool
	if b.Active != nil {
		active = sql.NullBool{Bool: *b.Active, Valid: true}
	}
	_, err := ex.ExecContext(ctx, `
INSERT INTO bills (id, name, merchant_key, amount_cents, cycle, category, active) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    merchant_key = excluded.merchant_key,
    amount_cents = excluded.amount_cents,
    cycle = excluded.cycle,
    category = excluded.category,
    active = excluded.active`,
		b.ID, b.Name, b.MerchantKey, b.AmountCents, string(b.Cycle), b.Category, active)
	if err != nil {
		return fmt.Errorf("upsert bill %s: %w", b.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	return requireAffected(res, "bill", id)
}

func (r *SQLiteRepository) MerchantCategory(ctx context.Context, merchantKey string) (string, bool, error) {
	var category string
	err := r.db.QueryRowContext(ctx,
		`SELECT category FROM merchant_map WHERE merchant_key = ?`, merchantKey).Scan(&category)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get merchant category: %w", err)
	}
	return category, true, nil
}

func (r *SQLiteRepository) SetMerchantCategory(ctx context.Context, merchantKey, category string) error {
	return insertMerchant(ctx, r.db, merchantKey, category)
}

func insertMerchant(ctx context.Context, ex execer, key, category string) error {
	_, err := ex.ExecContext(ctx, `
INSERT INTO merchant_map (merchant_key, category) VALUES (?, ?)
ON CONFLICT(merchant_key) DO UPDATE SET category = excluded.category`, key, category)
	if err != nil {
		return fmt.Errorf("set merchant category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AppState(ctx context.Context) (core.AppState, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM app_state WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultAppState(), nil
	}
	if err != nil {
		return core.AppState{}, fmt.Errorf("get app state: %w", err)
	}
	var st core.AppState
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return core.AppState{}, fmt.Errorf("decode app state: %w", err)
	}
	return st, nil
}

func (r *SQLiteRepository) SaveAppState(ctx context.Context, st core.AppState) error {
	return insertAppState(ctx, r.db, st)
}

func insertAppState(ctx context.Context, ex execer, st core.AppState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode app state: %w", err)
	}
	_, err = ex.ExecContext(ctx, `
INSERT INTO app_state (id, payload, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`, string(payload))
	if err != nil {
		return fmt.Errorf("save app state: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Snapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	var err error

	if snap.AppState, err = r.AppState(ctx); err != nil {
		return snap, err
	}
	if snap.Transactions, err = r.ListTransactions(ctx); err != nil {
		return snap, err
	}
	if snap.Budgets, err = r.ListBudgets(ctx); err != nil {
		return snap, err
	}
	if snap.Bills, err = r.ListBills(ctx); err != nil {
		return snap, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT merchant_key, category FROM merchant_map ORDER BY rowid`)
	if err != nil {
		return snap, fmt.Errorf("list merchant map: %w", err)
	}
	defer rows.Close()
	snap.MerchantMap = []core.MerchantCategory{}
	for rows.Next() {
		var m core.MerchantCategory
		if err := rows.Scan(&m.MerchantKey, &m.Category); err != nil {
			return snap, fmt.Errorf("scan merchant map: %w", err)
		}
		snap.MerchantMap = append(snap.MerchantMap, m)
	}
	return snap, rows.Err()
}

// Restore replaces the whole ledger with snap in a single transaction.
// Stored reports are kept.
func (r *SQLiteRepository) Restore(ctx context.Context, snap core.Snapshot) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	for _, table := range []string{"transactions", "budgets", "bills", "merchant_map", "app_state"} {
		if _, err := dbTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	// Oldest first so rowid order matches the snapshot's newest-first listing.
	for i := len(snap.Transactions) - 1; i >= 0; i-- {
		if err := insertTransaction(ctx, dbTx, snap.Transactions[i]); err != nil {
			return err
		}
	}
	for _, b := range snap.Budgets {
		if err := insertBudget(ctx, dbTx, b); err != nil {
			return err
		}
	}
	for _, b := range snap.Bills {
		if err := insertBill(ctx, dbTx, b); err != nil {
			return err
		}
	}
	for _, m := range snap.MerchantMap {
		if err := insertMerchant(ctx, dbTx, m.MerchantKey, m.Category); err != nil {
			return err
		}
	}
	if err := insertAppState(ctx, dbTx, snap.AppState); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}

	slog.InfoContext(ctx, "Ledger restored",
		"transactions", len(snap.Transactions),
		"budgets", len(snap.Budgets),
		"bills", len(snap.Bills))
	return nil
}

func (r *SQLiteRepository) SaveReport(ctx context.Context, generatedAt time.Time, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO reports (generated_at, payload) VALUES (?, ?)`,
		generatedAt.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LatestReport(ctx context.Context) (time.Time, []byte, error) {
	var at, payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT generated_at, payload FROM reports ORDER BY id DESC LIMIT 1`).Scan(&at, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil, fmt.Errorf("report: %w", core.ErrNotFound)
	}
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("latest report: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("parse report time: %w", err)
	}
	return t, []byte(payload), nil
}
