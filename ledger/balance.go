/*
balance.go - The authoritative balance and its audit trail

PURPOSE:
  BalanceLedger owns the user's balance column. ApplyDelta is the ONLY
  legal way to mutate it anywhere in the system; every call writes one
  BalanceSnapshot that reproduces the arithmetic exactly.

GUARANTEE:
  After ApplyDelta returns, new_balance == previous_balance + delta holds
  exactly, and a snapshot row exists proving it. The ReconciliationAuditor
  replays those snapshots to detect drift.

CORRECTIONS:
  A wrong delta is never edited away. Apply a compensating delta instead;
  both snapshots remain in the trail.
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// Reference describes what caused a balance change, for the snapshot row.
type Reference struct {
	Type        SnapshotType
	RefType     string
	RefID       string
	Description string
}

// BalanceChange reports the before/after of an applied delta.
type BalanceChange struct {
	PreviousBalance money.Money
	NewBalance      money.Money
}

// BalanceLedger is the exclusive owner of the balance column.
type BalanceLedger struct {
	Store Store
	Now   func() time.Time
}

// NewBalanceLedger binds a ledger to a store.
func NewBalanceLedger(store Store) *BalanceLedger {
	return &BalanceLedger{Store: store, Now: time.Now}
}

// ApplyDelta reads the current balance, writes balance+delta back, and
// appends the snapshot capturing the change. Callers needing atomicity
// with other writes run this inside TxStore.WithTx.
func (l *BalanceLedger) ApplyDelta(ctx context.Context, userID string, delta money.Money, ref Reference) (BalanceChange, error) {
	u, err := l.Store.GetUser(ctx, userID)
	if err != nil {
		return BalanceChange{}, &PersistenceError{Op: "load user", Err: err}
	}
	if u == nil {
		return BalanceChange{}, ErrUserNotFound
	}

	prev := u.Balance
	next := prev.Add(delta)

	if err := l.Store.SetBalance(ctx, userID, next); err != nil {
		return BalanceChange{}, &PersistenceError{Op: "write balance", Err: err}
	}

	snap := BalanceSnapshot{
		ID:              uuid.NewString(),
		UserID:          userID,
		PreviousBalance: prev,
		NewBalance:      next,
		AmountChange:    delta,
		TransactionType: ref.Type,
		ReferenceType:   ref.RefType,
		ReferenceID:     ref.RefID,
		Description:     ref.Description,
		BalanceType:     u.BalanceType(),
		CreatedAt:       l.Now().UTC(),
	}
	if err := l.Store.AppendSnapshot(ctx, snap); err != nil {
		return BalanceChange{}, &PersistenceError{Op: "append balance snapshot", Err: err}
	}

	return BalanceChange{PreviousBalance: prev, NewBalance: next}, nil
}
