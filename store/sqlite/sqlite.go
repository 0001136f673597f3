/*
Package sqlite provides the SQLite-backed implementation of the
settlement engine's storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. In production
  the same patterns apply to PostgreSQL - only minor dialect differences.

KEY TABLES:
  users:             party records; the engine owns the balance column
  expenses:          advances with settled/unsettled split
  payments:          one immutable row per settlement event
  balance_snapshots: append-only audit trail of every balance change
  entries:           credit/debit bookkeeping with soft-delete columns

APPEND-ONLY ENFORCEMENT:
  balance_snapshots has no UPDATE or DELETE statements anywhere in this
  package. Entries are soft-deleted: the row gains deletion context and
  drops out of aggregation queries, but stays readable by id.

AMOUNT STORAGE:
  Amounts are stored as TEXT in decimal form and parsed back through the
  money package, so nothing ever round-trips through a float.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL for
  better read concurrency and crash recovery.

SEE ALSO:
  - ledger/store.go: interface definitions
  - ledger/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger"
	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Users (parties trading through the shop)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		shop_id TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0.00',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_shop ON users(shop_id);

	-- Expenses (advances fronted to farmers)
	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		shop_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		settled TEXT NOT NULL,
		unsettled TEXT NOT NULL,
		notes TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: FIFO allocation loads outstanding expenses oldest-first
	CREATE INDEX IF NOT EXISTS idx_expenses_user_created
		ON expenses(user_id, created_at, id);

	-- Payments (one row per settlement event, immutable)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		shop_id TEXT NOT NULL,
		counterparty_id TEXT NOT NULL,
		payer_type TEXT NOT NULL,
		payee_type TEXT NOT NULL,
		direction TEXT NOT NULL,
		amount TEXT NOT NULL,
		method TEXT,
		notes TEXT,
		status TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		applied_to_expenses TEXT NOT NULL,
		applied_to_balance TEXT NOT NULL,
		fifo_result_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_counterparty
		ON payments(counterparty_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_payments_shop ON payments(shop_id);

	-- Balance snapshots (append-only audit trail)
	CREATE TABLE IF NOT EXISTS balance_snapshots (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		previous_balance TEXT NOT NULL,
		new_balance TEXT NOT NULL,
		amount_change TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		reference_type TEXT,
		reference_id TEXT,
		description TEXT,
		balance_type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Hot path: the reconciliation auditor replays per-user deltas
	CREATE INDEX IF NOT EXISTS idx_snapshots_user_created
		ON balance_snapshots(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_snapshots_reference
		ON balance_snapshots(reference_id) WHERE reference_id IS NOT NULL;

	-- Ledger entries (credit/debit bookkeeping, soft-deletable)
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		shop_id TEXT NOT NULL,
		farmer_id TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		commission_amount TEXT NOT NULL DEFAULT '0.00',
		net_amount TEXT NOT NULL,
		notes TEXT,
		transaction_date TEXT NOT NULL,
		created_by TEXT,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		deleted_at TEXT,
		deleted_by TEXT,
		deletion_reason TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: period summaries filter by shop, farmer, category, date
	CREATE INDEX IF NOT EXISTS idx_entries_shop_date
		ON entries(shop_id, transaction_date) WHERE is_deleted = 0;
	CREATE INDEX IF NOT EXISTS idx_entries_farmer
		ON entries(farmer_id) WHERE is_deleted = 0;
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) SaveUser(ctx context.Context, u ledger.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveUser(ctx, s.db, u)
}

func saveUser(ctx context.Context, db execer, u ledger.User) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, shop_id, name, role, balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			shop_id = excluded.shop_id,
			name = excluded.name,
			role = excluded.role
	`, u.ID, u.ShopID, u.Name, string(u.Role), u.Balance.String(), createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUser(ctx, s.db, id)
}

func getUser(ctx context.Context, db execer, id string) (*ledger.User, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, shop_id, name, role, balance, created_at FROM users WHERE id = ?", id)

	var (
		u         ledger.User
		role      string
		balance   string
		createdAt string
	)
	err := row.Scan(&u.ID, &u.ShopID, &u.Name, &role, &balance, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.Role = ledger.Role(role)
	if u.Balance, err = parseMoney(balance); err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, shopID string) ([]ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, shop_id, name, role, balance, created_at FROM users WHERE shop_id = ? OR ? = '' ORDER BY id",
		shopID, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []ledger.User
	for rows.Next() {
		var (
			u         ledger.User
			role      string
			balance   string
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.ShopID, &u.Name, &role, &balance, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Role = ledger.Role(role)
		if u.Balance, err = parseMoney(balance); err != nil {
			return nil, err
		}
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) SetBalance(ctx context.Context, userID string, balance money.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setBalance(ctx, s.db, userID, balance)
}

func setBalance(ctx context.Context, db execer, userID string, balance money.Money) error {
	res, err := db.ExecContext(ctx,
		"UPDATE users SET balance = ? WHERE id = ?", balance.String(), userID)
	if err != nil {
		return fmt.Errorf("failed to write balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrUserNotFound
	}
	return nil
}

// =============================================================================
// EXPENSES
// =============================================================================

func (s *Store) SaveExpense(ctx context.Context, e ledger.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveExpense(ctx, s.db, e)
}

func saveExpense(ctx context.Context, db execer, e ledger.Expense) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, shop_id, amount, settled, unsettled, notes, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.ShopID, e.Amount.String(), e.Settled.String(), e.Unsettled.String(),
		nullString(e.Notes), nullString(e.CreatedBy), e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (*ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getExpense(ctx, s.db, id)
}

func getExpense(ctx context.Context, db execer, id string) (*ledger.Expense, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, shop_id, amount, settled, unsettled, notes, created_by, created_at
		FROM expenses WHERE id = ?`, id)
	e, err := scanExpenseRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) OutstandingExpenses(ctx context.Context, userID string) ([]ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return outstandingExpenses(ctx, s.db, userID)
}

func outstandingExpenses(ctx context.Context, db execer, userID string) ([]ledger.Expense, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, shop_id, amount, settled, unsettled, notes, created_by, created_at
		FROM expenses
		WHERE user_id = ? AND CAST(unsettled AS REAL) > 0
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []ledger.Expense
	for rows.Next() {
		e, err := scanExpenseRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func scanExpenseRow(scan func(...any) error) (*ledger.Expense, error) {
	var (
		e                          ledger.Expense
		amount, settled, unsettled string
		notes, createdBy           sql.NullString
		createdAt                  string
	)
	err := scan(&e.ID, &e.UserID, &e.ShopID, &amount, &settled, &unsettled, &notes, &createdBy, &createdAt)
	if err != nil {
		return nil, err
	}
	if e.Amount, err = parseMoney(amount); err != nil {
		return nil, err
	}
	if e.Settled, err = parseMoney(settled); err != nil {
		return nil, err
	}
	if e.Unsettled, err = parseMoney(unsettled); err != nil {
		return nil, err
	}
	e.Notes = notes.String
	e.CreatedBy = createdBy.String
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

func (s *Store) UpdateExpenseSplit(ctx context.Context, id string, settled, unsettled money.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateExpenseSplit(ctx, s.db, id, settled, unsettled)
}

func updateExpenseSplit(ctx context.Context, db execer, id string, settled, unsettled money.Money) error {
	res, err := db.ExecContext(ctx,
		"UPDATE expenses SET settled = ?, unsettled = ? WHERE id = ?",
		settled.String(), unsettled.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update expense split: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrExpenseNotFound
	}
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) SavePayment(ctx context.Context, p ledger.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savePayment(ctx, s.db, p)
}

func savePayment(ctx context.Context, db execer, p ledger.Payment) error {
	fifoJSON, _ := json.Marshal(p.FifoResult)
	_, err := db.ExecContext(ctx, `
		INSERT INTO payments
		(id, shop_id, counterparty_id, payer_type, payee_type, direction, amount, method, notes,
		 status, payment_date, applied_to_expenses, applied_to_balance, fifo_result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.ShopID, p.CounterpartyID, string(p.PayerType), string(p.PayeeType), string(p.Direction),
		p.Amount.String(), nullString(p.Method), nullString(p.Notes), string(p.Status),
		p.PaymentDate.Format(time.RFC3339), p.AppliedToExpenses.String(), p.AppliedToBalance.String(),
		string(fifoJSON), p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, id string) (*ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, paymentSelect+" WHERE id = ?", id)
	p, err := scanPaymentRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) PaymentsByUser(ctx context.Context, userID string) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, paymentSelect+" WHERE counterparty_id = ? ORDER BY created_at ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []ledger.Payment
	for rows.Next() {
		p, err := scanPaymentRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

const paymentSelect = `
	SELECT id, shop_id, counterparty_id, payer_type, payee_type, direction, amount, method, notes,
	       status, payment_date, applied_to_expenses, applied_to_balance, fifo_result_json, created_at
	FROM payments`

func scanPaymentRow(scan func(...any) error) (*ledger.Payment, error) {
	var (
		p                               ledger.Payment
		payerType, payeeType, direction string
		amount, appliedExp, appliedBal  string
		method, notes, fifoJSON         sql.NullString
		status, paymentDate, createdAt  string
	)
	err := scan(&p.ID, &p.ShopID, &p.CounterpartyID, &payerType, &payeeType, &direction,
		&amount, &method, &notes, &status, &paymentDate, &appliedExp, &appliedBal, &fifoJSON, &createdAt)
	if err != nil {
		return nil, err
	}
	p.PayerType = ledger.PartyType(payerType)
	p.PayeeType = ledger.PartyType(payeeType)
	p.Direction = ledger.Direction(direction)
	if p.Amount, err = parseMoney(amount); err != nil {
		return nil, err
	}
	p.Method = method.String
	p.Notes = notes.String
	p.Status = ledger.PaymentStatus(status)
	p.PaymentDate, _ = time.Parse(time.RFC3339, paymentDate)
	if p.AppliedToExpenses, err = parseMoney(appliedExp); err != nil {
		return nil, err
	}
	if p.AppliedToBalance, err = parseMoney(appliedBal); err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if fifoJSON.Valid && fifoJSON.String != "" {
		json.Unmarshal([]byte(fifoJSON.String), &p.FifoResult)
	}
	return &p, nil
}

// =============================================================================
// BALANCE SNAPSHOTS (append-only)
// =============================================================================

func (s *Store) AppendSnapshot(ctx context.Context, snap ledger.BalanceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendSnapshot(ctx, s.db, snap)
}

func appendSnapshot(ctx context.Context, db execer, snap ledger.BalanceSnapshot) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO balance_snapshots
		(id, user_id, previous_balance, new_balance, amount_change, transaction_type,
		 reference_type, reference_id, description, balance_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.UserID, snap.PreviousBalance.String(), snap.NewBalance.String(),
		snap.AmountChange.String(), string(snap.TransactionType), nullString(snap.ReferenceType),
		nullString(snap.ReferenceID), nullString(snap.Description), snap.BalanceType,
		snap.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append snapshot: %w", err)
	}
	return nil
}

func (s *Store) SnapshotsByUser(ctx context.Context, userID string) ([]ledger.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotsByUser(ctx, s.db, userID)
}

func snapshotsByUser(ctx context.Context, db execer, userID string) ([]ledger.BalanceSnapshot, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, previous_balance, new_balance, amount_change, transaction_type,
		       reference_type, reference_id, description, balance_type, created_at
		FROM balance_snapshots
		WHERE user_id = ?
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []ledger.BalanceSnapshot
	for rows.Next() {
		var (
			snap                      ledger.BalanceSnapshot
			prev, next, change, txTyp string
			refType, refID, desc      sql.NullString
			createdAt                 string
		)
		err := rows.Scan(&snap.ID, &snap.UserID, &prev, &next, &change, &txTyp,
			&refType, &refID, &desc, &snap.BalanceType, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if snap.PreviousBalance, err = parseMoney(prev); err != nil {
			return nil, err
		}
		if snap.NewBalance, err = parseMoney(next); err != nil {
			return nil, err
		}
		if snap.AmountChange, err = parseMoney(change); err != nil {
			return nil, err
		}
		snap.TransactionType = ledger.SnapshotType(txTyp)
		snap.ReferenceType = refType.String
		snap.ReferenceID = refID.String
		snap.Description = desc.String
		snap.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// =============================================================================
// LEDGER ENTRIES
// =============================================================================

func (s *Store) SaveEntry(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveEntry(ctx, s.db, e)
}

func saveEntry(ctx context.Context, db execer, e ledger.Entry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO entries
		(id, shop_id, farmer_id, entry_type, category, amount, commission_amount, net_amount,
		 notes, transaction_date, created_by, is_deleted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`, e.ID, e.ShopID, e.FarmerID, string(e.Type), string(e.Category), e.Amount.String(),
		e.CommissionAmount.String(), e.NetAmount.String(), nullString(e.Notes),
		e.TransactionDate.Format(time.RFC3339), nullString(e.CreatedBy),
		e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

func (s *Store) UpdateEntry(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateEntry(ctx, s.db, e)
}

func updateEntry(ctx context.Context, db execer, e ledger.Entry) error {
	res, err := db.ExecContext(ctx, `
		UPDATE entries SET
			shop_id = ?, farmer_id = ?, entry_type = ?, category = ?, amount = ?,
			commission_amount = ?, net_amount = ?, notes = ?, transaction_date = ?
		WHERE id = ? AND is_deleted = 0
	`, e.ShopID, e.FarmerID, string(e.Type), string(e.Category), e.Amount.String(),
		e.CommissionAmount.String(), e.NetAmount.String(), nullString(e.Notes),
		e.TransactionDate.Format(time.RFC3339), e.ID)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrEntryNotFound
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEntry(ctx, s.db, id)
}

func getEntry(ctx context.Context, db execer, id string) (*ledger.Entry, error) {
	row := db.QueryRowContext(ctx, entrySelect+" WHERE id = ?", id)
	e, err := scanEntryRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) MarkEntryDeleted(ctx context.Context, id string, status ledger.EntryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markEntryDeleted(ctx, s.db, id, status)
}

func markEntryDeleted(ctx context.Context, db execer, id string, status ledger.EntryStatus) error {
	var deletedAt any
	if status.DeletedAt != nil {
		deletedAt = status.DeletedAt.Format(time.RFC3339)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE entries SET is_deleted = 1, deleted_at = ?, deleted_by = ?, deletion_reason = ?
		WHERE id = ? AND is_deleted = 0
	`, deletedAt, nullString(status.DeletedBy), nullString(status.DeletionReason), id)
	if err != nil {
		return fmt.Errorf("failed to mark entry deleted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrEntryNotFound
	}
	return nil
}

func (s *Store) QueryEntries(ctx context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryEntries(ctx, s.db, f)
}

func queryEntries(ctx context.Context, db execer, f ledger.EntryFilter) ([]ledger.Entry, error) {
	query := entrySelect + " WHERE 1=1"
	var args []any

	if !f.IncludeDeleted {
		query += " AND is_deleted = 0"
	}
	if f.ShopID != "" {
		query += " AND shop_id = ?"
		args = append(args, f.ShopID)
	}
	if f.FarmerID != "" {
		query += " AND farmer_id = ?"
		args = append(args, f.FarmerID)
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, string(f.Category))
	}
	if f.From != nil {
		query += " AND transaction_date >= ?"
		args = append(args, f.From.Format(time.RFC3339))
	}
	if f.To != nil {
		query += " AND transaction_date <= ?"
		args = append(args, f.To.Format(time.RFC3339))
	}
	query += " ORDER BY transaction_date ASC, id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntryRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

const entrySelect = `
	SELECT id, shop_id, farmer_id, entry_type, category, amount, commission_amount, net_amount,
	       notes, transaction_date, created_by, is_deleted, deleted_at, deleted_by, deletion_reason, created_at
	FROM entries`

func scanEntryRow(scan func(...any) error) (*ledger.Entry, error) {
	var (
		e                              ledger.Entry
		entryType, category            string
		amount, commission, net        string
		notes, createdBy               sql.NullString
		transactionDate, createdAt     string
		isDeleted                      int
		deletedAt, deletedBy, deletion sql.NullString
	)
	err := scan(&e.ID, &e.ShopID, &e.FarmerID, &entryType, &category, &amount, &commission, &net,
		&notes, &transactionDate, &createdBy, &isDeleted, &deletedAt, &deletedBy, &deletion, &createdAt)
	if err != nil {
		return nil, err
	}
	e.Type = ledger.EntryType(entryType)
	e.Category = ledger.EntryCategory(category)
	if e.Amount, err = parseMoney(amount); err != nil {
		return nil, err
	}
	if e.CommissionAmount, err = parseMoney(commission); err != nil {
		return nil, err
	}
	if e.NetAmount, err = parseMoney(net); err != nil {
		return nil, err
	}
	e.Notes = notes.String
	e.CreatedBy = createdBy.String
	e.TransactionDate, _ = time.Parse(time.RFC3339, transactionDate)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if isDeleted != 0 {
		var at time.Time
		if deletedAt.Valid {
			at, _ = time.Parse(time.RFC3339, deletedAt.String)
		}
		e.Status = ledger.Deleted(deletedBy.String, deletion.String, at)
	}
	return &e, nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every Store call through one *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveUser(ctx context.Context, u ledger.User) error {
	return saveUser(ctx, ts.tx, u)
}

func (ts *txStore) GetUser(ctx context.Context, id string) (*ledger.User, error) {
	return getUser(ctx, ts.tx, id)
}

func (ts *txStore) ListUsers(ctx context.Context, shopID string) ([]ledger.User, error) {
	rows, err := ts.tx.QueryContext(ctx,
		"SELECT id, shop_id, name, role, balance, created_at FROM users WHERE shop_id = ? OR ? = '' ORDER BY id",
		shopID, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []ledger.User
	for rows.Next() {
		var (
			u         ledger.User
			role      string
			balance   string
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.ShopID, &u.Name, &role, &balance, &createdAt); err != nil {
			return nil, err
		}
		u.Role = ledger.Role(role)
		if u.Balance, err = parseMoney(balance); err != nil {
			return nil, err
		}
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (ts *txStore) SetBalance(ctx context.Context, userID string, balance money.Money) error {
	return setBalance(ctx, ts.tx, userID, balance)
}

func (ts *txStore) SaveExpense(ctx context.Context, e ledger.Expense) error {
	return saveExpense(ctx, ts.tx, e)
}

func (ts *txStore) GetExpense(ctx context.Context, id string) (*ledger.Expense, error) {
	return getExpense(ctx, ts.tx, id)
}

func (ts *txStore) OutstandingExpenses(ctx context.Context, userID string) ([]ledger.Expense, error) {
	return outstandingExpenses(ctx, ts.tx, userID)
}

func (ts *txStore) UpdateExpenseSplit(ctx context.Context, id string, settled, unsettled money.Money) error {
	return updateExpenseSplit(ctx, ts.tx, id, settled, unsettled)
}

func (ts *txStore) SavePayment(ctx context.Context, p ledger.Payment) error {
	return savePayment(ctx, ts.tx, p)
}

func (ts *txStore) GetPayment(ctx context.Context, id string) (*ledger.Payment, error) {
	row := ts.tx.QueryRowContext(ctx, paymentSelect+" WHERE id = ?", id)
	p, err := scanPaymentRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (ts *txStore) PaymentsByUser(ctx context.Context, userID string) ([]ledger.Payment, error) {
	rows, err := ts.tx.QueryContext(ctx, paymentSelect+" WHERE counterparty_id = ? ORDER BY created_at ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []ledger.Payment
	for rows.Next() {
		p, err := scanPaymentRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (ts *txStore) AppendSnapshot(ctx context.Context, snap ledger.BalanceSnapshot) error {
	return appendSnapshot(ctx, ts.tx, snap)
}

func (ts *txStore) SnapshotsByUser(ctx context.Context, userID string) ([]ledger.BalanceSnapshot, error) {
	return snapshotsByUser(ctx, ts.tx, userID)
}

func (ts *txStore) SaveEntry(ctx context.Context, e ledger.Entry) error {
	return saveEntry(ctx, ts.tx, e)
}

func (ts *txStore) UpdateEntry(ctx context.Context, e ledger.Entry) error {
	return updateEntry(ctx, ts.tx, e)
}

func (ts *txStore) GetEntry(ctx context.Context, id string) (*ledger.Entry, error) {
	return getEntry(ctx, ts.tx, id)
}

func (ts *txStore) MarkEntryDeleted(ctx context.Context, id string, status ledger.EntryStatus) error {
	return markEntryDeleted(ctx, ts.tx, id, status)
}

func (ts *txStore) QueryEntries(ctx context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
	return queryEntries(ctx, ts.tx, f)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseMoney refuses to paper over a corrupt stored amount: a row that no
// longer parses surfaces as an error instead of silently becoming 0.00.
func parseMoney(s string) (money.Money, error) {
	m, err := money.FromString(s)
	if err != nil {
		return money.Zero(), fmt.Errorf("corrupt stored amount %q: %w", s, err)
	}
	return m, nil
}
