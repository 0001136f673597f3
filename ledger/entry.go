/*
entry.go - Credit/debit bookkeeping lifecycle

PURPOSE:
  Creates, edits and soft-deletes ledger entries - the manual bookkeeping
  records kept in parallel with payments. Entries for a farmer also move
  the farmer's balance so the reconciliation invariant spans every
  mutation path: a credit applies +net_amount, a debit applies -amount,
  an edit applies the difference, and a soft delete applies the reverse.

SOFT DELETE:
  Entries are never hard deleted. Deletion stamps who/when/why and the
  entry drops out of every aggregation while staying queryable by id.

COMMISSION:
  For credit sales, net_amount = amount - commission_amount where the
  commission is amount * rate rounded half-up to two places. Other
  categories carry zero commission.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// EntryInput is the create/update payload for a ledger entry.
type EntryInput struct {
	ShopID          string
	FarmerID        string
	Type            EntryType
	Category        EntryCategory
	Amount          money.Money
	CommissionRate  money.Money // percentage, only used for credit sales
	Notes           string
	TransactionDate time.Time
	CreatedBy       string
}

// EntryService owns the LedgerEntry lifecycle.
type EntryService struct {
	Store TxStore
	Now   func() time.Time
	Locks *UserLocks
}

// NewEntryService binds the service to a store, sharing the per-user
// lock table with the settlement coordinator.
func NewEntryService(store TxStore, locks *UserLocks) *EntryService {
	return &EntryService{Store: store, Now: time.Now, Locks: locks}
}

func (es *EntryService) validate(in EntryInput) error {
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: entry amount must be > 0, got %s", ErrInvalidAmount, in.Amount)
	}
	if in.Type != EntryCredit && in.Type != EntryDebit {
		return fmt.Errorf("%w: unknown entry type %q", ErrInvalidAmount, in.Type)
	}
	switch in.Category {
	case CategorySale, CategoryDeposit, CategoryExpense, CategoryWithdrawal, CategoryLoan, CategoryOther:
	default:
		return fmt.Errorf("%w: unknown category %q", ErrInvalidAmount, in.Category)
	}
	if in.CommissionRate.IsNegative() {
		return fmt.Errorf("%w: commission rate must not be negative", ErrInvalidAmount)
	}
	return nil
}

// build computes the commission/net fields from the input.
func (es *EntryService) build(in EntryInput) Entry {
	commission := money.Zero()
	if in.Category == CategorySale && in.Type == EntryCredit {
		commission = in.Amount.MulRate(in.CommissionRate)
	}
	txDate := in.TransactionDate
	if txDate.IsZero() {
		txDate = es.Now().UTC()
	}
	return Entry{
		ShopID:           in.ShopID,
		FarmerID:         in.FarmerID,
		Type:             in.Type,
		Category:         in.Category,
		Amount:           in.Amount,
		CommissionAmount: commission,
		NetAmount:        in.Amount.Sub(commission),
		Notes:            in.Notes,
		TransactionDate:  txDate,
		CreatedBy:        in.CreatedBy,
		Status:           Active(),
	}
}

// balanceDelta is what an active entry contributes to the farmer balance.
func balanceDelta(e Entry) money.Money {
	if e.Type == EntryCredit {
		return e.NetAmount
	}
	return e.Amount.Neg()
}

// Create validates, persists and applies the entry's balance effect.
func (es *EntryService) Create(ctx context.Context, in EntryInput) (*Entry, error) {
	if err := es.validate(in); err != nil {
		return nil, err
	}

	release, ok := es.Locks.Acquire(in.FarmerID)
	if !ok {
		return nil, ErrConcurrentModification
	}
	defer release()

	e := es.build(in)
	e.ID = uuid.NewString()
	e.CreatedAt = es.Now().UTC()

	err := es.Store.WithTx(ctx, func(s Store) error {
		if err := s.SaveEntry(ctx, e); err != nil {
			return &PersistenceError{Op: "save entry", Err: err}
		}
		bl := &BalanceLedger{Store: s, Now: es.Now}
		_, err := bl.ApplyDelta(ctx, e.FarmerID, balanceDelta(e), Reference{
			Type:        SnapshotEntry,
			RefType:     "ledger_entry",
			RefID:       e.ID,
			Description: e.Notes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Update re-validates like Create, recomputes commission/net, and applies
// only the difference between the new and old balance effect.
func (es *EntryService) Update(ctx context.Context, id string, in EntryInput) (*Entry, error) {
	if err := es.validate(in); err != nil {
		return nil, err
	}

	release, ok := es.Locks.Acquire(in.FarmerID)
	if !ok {
		return nil, ErrConcurrentModification
	}
	defer release()

	var updated Entry
	err := es.Store.WithTx(ctx, func(s Store) error {
		existing, err := s.GetEntry(ctx, id)
		if err != nil {
			return &PersistenceError{Op: "load entry", Err: err}
		}
		if existing == nil {
			return ErrEntryNotFound
		}
		if existing.Status.Deleted {
			return ErrEntryDeleted
		}

		updated = es.build(in)
		updated.ID = existing.ID
		updated.CreatedAt = existing.CreatedAt
		if err := s.UpdateEntry(ctx, updated); err != nil {
			return &PersistenceError{Op: "update entry", Err: err}
		}

		diff := balanceDelta(updated).Sub(balanceDelta(*existing))
		if diff.IsZero() {
			return nil
		}
		bl := &BalanceLedger{Store: s, Now: es.Now}
		_, err = bl.ApplyDelta(ctx, updated.FarmerID, diff, Reference{
			Type:        SnapshotEntry,
			RefType:     "ledger_entry",
			RefID:       updated.ID,
			Description: "entry edited: " + updated.Notes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SoftDelete stamps the deletion context and reverses the entry's balance
// effect. The row remains queryable by id for audit.
func (es *EntryService) SoftDelete(ctx context.Context, id, deletedBy, reason string) error {
	existing, err := es.Store.GetEntry(ctx, id)
	if err != nil {
		return &PersistenceError{Op: "load entry", Err: err}
	}
	if existing == nil {
		return ErrEntryNotFound
	}
	if existing.Status.Deleted {
		return ErrEntryDeleted
	}

	release, ok := es.Locks.Acquire(existing.FarmerID)
	if !ok {
		return ErrConcurrentModification
	}
	defer release()

	return es.Store.WithTx(ctx, func(s Store) error {
		// Re-read under the lock; the pre-lock read only found the farmer.
		e, err := s.GetEntry(ctx, id)
		if err != nil {
			return &PersistenceError{Op: "load entry", Err: err}
		}
		if e == nil {
			return ErrEntryNotFound
		}
		if e.Status.Deleted {
			return ErrEntryDeleted
		}

		if err := s.MarkEntryDeleted(ctx, id, Deleted(deletedBy, reason, es.Now().UTC())); err != nil {
			return &PersistenceError{Op: "mark entry deleted", Err: err}
		}

		bl := &BalanceLedger{Store: s, Now: es.Now}
		_, err = bl.ApplyDelta(ctx, e.FarmerID, balanceDelta(*e).Neg(), Reference{
			Type:        SnapshotEntry,
			RefType:     "ledger_entry",
			RefID:       e.ID,
			Description: "entry deleted: " + reason,
		})
		return err
	})
}

// Get returns an entry by id, deleted or not.
func (es *EntryService) Get(ctx context.Context, id string) (*Entry, error) {
	e, err := es.Store.GetEntry(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "load entry", Err: err}
	}
	if e == nil {
		return nil, ErrEntryNotFound
	}
	return e, nil
}
