/*
settle.go - Settlement orchestration

PURPOSE:
  Coordinates a single payment event end-to-end: validate, allocate via
  the FIFO engine, apply the balance delta through BalanceLedger, persist
  the Payment with its settlement breakdown. All of it as one atomic unit.

POLICY BY DIRECTION:
  shop_to_user  The shop pays a farmer. No FIFO allocation runs - this
                path never settles expenses. The full amount is a balance
                delta of -amount (the shop owes less). Refused while the
                target balance is negative unless force_override is set,
                because paying a user already in debt widens the debt.
  user_to_shop  A farmer or buyer pays the shop. FIFO allocation runs
                against the payer's expense book; the remainder becomes
                a balance delta of +remaining.

CONCURRENCY:
  Settlements for the same user are serialized by a per-user mutex.
  A second concurrent attempt fails fast with ErrConcurrentModification
  and is safely retryable: the transaction makes the whole operation
  all-or-nothing, so no partial state is ever visible.

SEE ALSO:
  - fifo.go: the pure allocation algorithm
  - balance.go: the delta application and snapshot write
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// SettleRequest carries one settlement event from the API layer.
type SettleRequest struct {
	UserID        string
	Direction     Direction
	Amount        money.Money
	Method        string
	Notes         string
	ForceOverride bool
	CreatedBy     string
}

// Breakdown is how the payment split between expenses and balance.
type Breakdown struct {
	AppliedToExpenses money.Money
	AppliedToBalance  money.Money
	Fifo              FifoResult
}

// SettleResult is returned to the caller after a successful settlement.
type SettleResult struct {
	Payment    Payment
	NewBalance money.Money
	Breakdown  Breakdown
}

// Coordinator orchestrates settlements, expense recording and manual
// adjustments. It is safe for concurrent use; operations on the same
// user are serialized.
type Coordinator struct {
	Store TxStore
	Fifo  FifoEngine
	Now   func() time.Time
	Locks *UserLocks
}

// NewCoordinator binds a coordinator to a transactional store. The lock
// table is shared with every other balance-mutating component.
func NewCoordinator(store TxStore, locks *UserLocks) *Coordinator {
	return &Coordinator{Store: store, Now: time.Now, Locks: locks}
}

// Settle runs one payment event. On any error the pre-call balance is
// unchanged: no Payment, snapshot or expense mutation survives a failure.
func (c *Coordinator) Settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be > 0, got %s", ErrInvalidAmount, req.Amount)
	}
	if req.Direction != DirectionShopToUser && req.Direction != DirectionUserToShop {
		return nil, fmt.Errorf("%w: unknown direction %q", ErrInvalidAmount, req.Direction)
	}

	release, ok := c.Locks.Acquire(req.UserID)
	if !ok {
		return nil, ErrConcurrentModification
	}
	defer release()

	var result *SettleResult
	err := c.Store.WithTx(ctx, func(s Store) error {
		u, err := s.GetUser(ctx, req.UserID)
		if err != nil {
			return &PersistenceError{Op: "load user", Err: err}
		}
		if u == nil {
			return ErrUserNotFound
		}

		var (
			delta money.Money
			fifo  FifoResult
		)

		switch req.Direction {
		case DirectionShopToUser:
			if u.Balance.IsNegative() && !req.ForceOverride {
				return &BlockedError{UserID: u.ID, Balance: u.Balance}
			}
			// Expenses are deliberately untouched on this path.
			delta = req.Amount.Neg()
			fifo = FifoResult{Remaining: money.Zero()}

		case DirectionUserToShop:
			book := NewExpenseBook(s)
			outstanding, err := book.Outstanding(ctx, u.ID)
			if err != nil {
				return err
			}
			fifo = c.Fifo.Allocate(req.Amount, outstanding)
			for _, line := range fifo.Settlements {
				if err := book.ApplySettlement(ctx, line.ExpenseID, line.AmountSettled); err != nil {
					if errors.Is(err, ErrOverSettlement) {
						// Invariant violation: the allocation disagreed with
						// the book it was computed from. Abort everything.
						return &PersistenceError{Op: "apply fifo settlement", Err: err}
					}
					return err
				}
			}
			delta = fifo.Remaining
		}

		paymentID := uuid.NewString()
		bl := &BalanceLedger{Store: s, Now: c.Now}
		change, err := bl.ApplyDelta(ctx, u.ID, delta, Reference{
			Type:        SnapshotPayment,
			RefType:     "payment",
			RefID:       paymentID,
			Description: req.Notes,
		})
		if err != nil {
			return err
		}

		applied := fifo.TotalSettled()
		payment := Payment{
			ID:                paymentID,
			ShopID:            u.ShopID,
			CounterpartyID:    u.ID,
			Direction:         req.Direction,
			Amount:            req.Amount,
			Method:            req.Method,
			Notes:             req.Notes,
			Status:            PaymentPaid,
			PaymentDate:       c.Now().UTC(),
			AppliedToExpenses: applied,
			AppliedToBalance:  req.Amount.Sub(applied),
			FifoResult:        fifo,
			CreatedAt:         c.Now().UTC(),
		}
		payment.PayerType, payment.PayeeType = parties(req.Direction, u.Role)

		if err := s.SavePayment(ctx, payment); err != nil {
			return &PersistenceError{Op: "save payment", Err: err}
		}

		result = &SettleResult{
			Payment:    payment,
			NewBalance: change.NewBalance,
			Breakdown: Breakdown{
				AppliedToExpenses: payment.AppliedToExpenses,
				AppliedToBalance:  payment.AppliedToBalance,
				Fifo:              fifo,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func parties(d Direction, role Role) (payer, payee PartyType) {
	party := PartyFarmer
	if role == RoleBuyer {
		party = PartyBuyer
	}
	if d == DirectionShopToUser {
		return PartyShop, party
	}
	return party, PartyShop
}

// RecordExpense creates an advance against a user. The balance is
// untouched: the debt lives in the expense book until FIFO settlement
// consumes it.
func (c *Coordinator) RecordExpense(ctx context.Context, userID string, amount money.Money, notes, createdBy string) (*Expense, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: expense amount must be > 0, got %s", ErrInvalidAmount, amount)
	}

	release, ok := c.Locks.Acquire(userID)
	if !ok {
		return nil, ErrConcurrentModification
	}
	defer release()

	var created *Expense
	err := c.Store.WithTx(ctx, func(s Store) error {
		u, err := s.GetUser(ctx, userID)
		if err != nil {
			return &PersistenceError{Op: "load user", Err: err}
		}
		if u == nil {
			return ErrUserNotFound
		}

		e := Expense{
			ID:        uuid.NewString(),
			UserID:    u.ID,
			ShopID:    u.ShopID,
			Amount:    amount,
			Settled:   money.Zero(),
			Unsettled: amount,
			Notes:     notes,
			CreatedBy: createdBy,
			CreatedAt: c.Now().UTC(),
		}
		if err := s.SaveExpense(ctx, e); err != nil {
			return &PersistenceError{Op: "save expense", Err: err}
		}

		created = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Adjust applies a manual admin correction through the balance ledger.
func (c *Coordinator) Adjust(ctx context.Context, userID string, delta money.Money, reason, createdBy string) (*BalanceChange, error) {
	if delta.IsZero() {
		return nil, fmt.Errorf("%w: adjustment delta must be non-zero", ErrInvalidAmount)
	}

	release, ok := c.Locks.Acquire(userID)
	if !ok {
		return nil, ErrConcurrentModification
	}
	defer release()

	var change BalanceChange
	err := c.Store.WithTx(ctx, func(s Store) error {
		bl := &BalanceLedger{Store: s, Now: c.Now}
		ch, err := bl.ApplyDelta(ctx, userID, delta, Reference{
			Type:        SnapshotAdjustment,
			RefType:     "adjustment",
			RefID:       uuid.NewString(),
			Description: fmt.Sprintf("%s (by %s)", reason, createdBy),
		})
		if err != nil {
			return err
		}
		change = ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}
