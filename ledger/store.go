/*
store.go - Persistence interface for the settlement engine

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   all reads and writes for users, expenses, payments, snapshots
           and ledger entries
  TxStore: wraps Store with all-or-nothing transaction support

APPEND-ONLY CONTRACT:
  balance_snapshots has no update or delete path. Payments are written
  once; only their status may transition. Ledger entries are never hard
  deleted - MarkEntryDeleted records the deletion context instead.

ATOMICITY:
  WithTx() gives the SettlementCoordinator all-or-nothing semantics.
  A settlement touches expenses, the user balance, a snapshot and a
  payment row; either all land or none do.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite
  - ledger/store: in-memory for testing

SEE ALSO:
  - settle.go: drives WithTx for settlements
  - balance.go: the only caller of SetBalance
*/
package ledger

import (
	"context"
	"time"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// EntryFilter narrows ledger entry queries for aggregation.
// Deleted entries are excluded unless IncludeDeleted is set.
type EntryFilter struct {
	ShopID         string
	FarmerID       string
	Category       EntryCategory
	From           *time.Time
	To             *time.Time
	IncludeDeleted bool
}

// Store handles persistence for every engine record.
type Store interface {
	// Users. The engine owns the balance column only; SetBalance must be
	// reached exclusively through BalanceLedger.ApplyDelta.
	SaveUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context, shopID string) ([]User, error)
	SetBalance(ctx context.Context, userID string, balance money.Money) error

	// Expenses. OutstandingExpenses returns entries with unsettled > 0
	// ordered by created_at ascending, id ascending as tiebreak.
	SaveExpense(ctx context.Context, e Expense) error
	GetExpense(ctx context.Context, id string) (*Expense, error)
	OutstandingExpenses(ctx context.Context, userID string) ([]Expense, error)
	UpdateExpenseSplit(ctx context.Context, id string, settled, unsettled money.Money) error

	// Payments. Written once per settlement event.
	SavePayment(ctx context.Context, p Payment) error
	GetPayment(ctx context.Context, id string) (*Payment, error)
	PaymentsByUser(ctx context.Context, userID string) ([]Payment, error)

	// Balance snapshots. Append-only audit trail.
	AppendSnapshot(ctx context.Context, s BalanceSnapshot) error
	SnapshotsByUser(ctx context.Context, userID string) ([]BalanceSnapshot, error)

	// Ledger entries. GetEntry returns deleted entries too (audit);
	// QueryEntries honors the filter's IncludeDeleted flag.
	SaveEntry(ctx context.Context, e Entry) error
	UpdateEntry(ctx context.Context, e Entry) error
	GetEntry(ctx context.Context, id string) (*Entry, error)
	MarkEntryDeleted(ctx context.Context, id string, status EntryStatus) error
	QueryEntries(ctx context.Context, f EntryFilter) ([]Entry, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
