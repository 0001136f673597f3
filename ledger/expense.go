/*
expense.go - Per-user book of outstanding advances

PURPOSE:
  The ExpenseBook is the view over a farmer's unsettled advances plus the
  single legal mutation that moves value from unsettled to settled. It
  never touches the balance; that is BalanceLedger's job.

INVARIANTS:
  - settled + unsettled == amount on every expense, always
  - unsettled never goes negative; an attempt to settle past it is a
    bug-class over-settlement, surfaced loudly and never clamped
*/
package ledger

import (
	"context"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// ExpenseBook reads and mutates a user's outstanding advances.
type ExpenseBook struct {
	Store Store
}

// NewExpenseBook binds a book to a store.
func NewExpenseBook(store Store) *ExpenseBook {
	return &ExpenseBook{Store: store}
}

// Outstanding returns the user's expenses with unsettled > 0, oldest
// first (id ascending as tiebreak). Buyers have no expenses; the result
// is simply empty.
func (b *ExpenseBook) Outstanding(ctx context.Context, userID string) ([]Expense, error) {
	expenses, err := b.Store.OutstandingExpenses(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "load outstanding expenses", Err: err}
	}
	return expenses, nil
}

// ApplySettlement moves amount from unsettled to settled on one expense.
// Fails with an over-settlement error if amount exceeds the unsettled
// portion at call time.
func (b *ExpenseBook) ApplySettlement(ctx context.Context, expenseID string, amount money.Money) error {
	e, err := b.Store.GetExpense(ctx, expenseID)
	if err != nil {
		return &PersistenceError{Op: "load expense", Err: err}
	}
	if e == nil {
		return ErrExpenseNotFound
	}

	if amount.GreaterThan(e.Unsettled) {
		return &OverSettlementError{ExpenseID: expenseID, Unsettled: e.Unsettled, Attempted: amount}
	}

	settled := e.Settled.Add(amount)
	unsettled := e.Unsettled.Sub(amount)
	if err := b.Store.UpdateExpenseSplit(ctx, expenseID, settled, unsettled); err != nil {
		return &PersistenceError{Op: "update expense split", Err: err}
	}
	return nil
}
