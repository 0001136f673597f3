/*
fifo.go - Oldest-debt-first payment allocation

PURPOSE:
  Decides how an incoming payment is split between a farmer's outstanding
  expenses and their general balance. Oldest expense first; whatever is
  left after all expenses flows to the balance.

PURITY:
  Allocate mutates nothing. The SettlementCoordinator applies the
  resulting lines through the ExpenseBook inside its transaction.

DETERMINISM:
  Expenses with equal created_at are ordered by id ascending so two runs
  over the same book always produce the same allocation.
*/
package ledger

import (
	"sort"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// FifoEngine computes payment allocations across outstanding expenses.
type FifoEngine struct{}

// Allocate walks outstanding expenses oldest to newest, settling each
// from the payment until the payment is exhausted. Returns the per-expense
// lines and the remainder destined for the general balance.
//
// Edge cases: an empty book returns the full amount as Remaining. A zero
// or negative payment amount is the caller's responsibility to reject
// before invoking this.
func (FifoEngine) Allocate(paymentAmount money.Money, outstanding []Expense) FifoResult {
	ordered := make([]Expense, len(outstanding))
	copy(ordered, outstanding)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	remaining := paymentAmount
	var lines []SettlementLine
	for _, e := range ordered {
		if remaining.IsZero() {
			break
		}
		take := remaining.Min(e.Unsettled)
		if !take.IsPositive() {
			continue
		}
		lines = append(lines, SettlementLine{
			ExpenseID:     e.ID,
			AmountSettled: take,
			ExpenseDate:   e.CreatedAt,
			Reason:        e.Notes,
		})
		remaining = remaining.Sub(take)
	}

	return FifoResult{Settlements: lines, Remaining: remaining}
}
