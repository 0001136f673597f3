/*
errors.go - Centralized error types for the settlement engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify errors with errors.Is and the helpers at the bottom.

ERROR CATEGORIES:
  1. Input errors - malformed amounts, unknown users/entries
  2. Policy errors - guard rails on settlement direction
  3. Invariant violations - bug-class, abort the whole transaction
  4. Infrastructure - storage failures, settlement races

SEE ALSO:
  - settle.go: the main producer of these errors
  - api/handlers.go: maps them to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned for non-positive or malformed monetary
	// input. Recoverable: reject the request, no state change.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrBlockedByOutstandingAdvance guards shop_to_user payments while the
	// target balance is negative. Recoverable via force_override.
	ErrBlockedByOutstandingAdvance = errors.New("blocked by outstanding advance")

	// ErrOverSettlement means a FIFO allocation tried to settle more than an
	// expense's unsettled amount. Bug-class: the whole settlement aborts and
	// the error surfaces as a persistence failure with context. Never clamp.
	ErrOverSettlement = errors.New("over-settlement")

	// ErrConcurrentModification means two settlements raced for the same
	// user. Safely retryable by the caller.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrPersistenceFailure wraps underlying storage errors. The transaction
	// is rolled back; no partial Payment or BalanceSnapshot exists afterward.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrExpenseNotFound is returned when a referenced expense doesn't exist.
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrEntryNotFound is returned when a referenced ledger entry doesn't exist.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrEntryDeleted is returned when mutating a soft-deleted ledger entry.
	ErrEntryDeleted = errors.New("ledger entry is deleted")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// BlockedError details why a shop_to_user payment was refused.
type BlockedError struct {
	UserID  string
	Balance money.Money
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("user %s owes the shop (balance %s); pass force_override to pay anyway",
		e.UserID, e.Balance)
}

func (e *BlockedError) Unwrap() error { return ErrBlockedByOutstandingAdvance }

// OverSettlementError details the invariant violation for diagnostics.
type OverSettlementError struct {
	ExpenseID string
	Unsettled money.Money
	Attempted money.Money
}

func (e *OverSettlementError) Error() string {
	return fmt.Sprintf("over-settlement on expense %s: attempted %s, unsettled %s",
		e.ExpenseID, e.Attempted, e.Unsettled)
}

func (e *OverSettlementError) Unwrap() error { return ErrOverSettlement }

// PersistenceError wraps a storage failure with the operation that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the classification sentinel and the cause, so
// errors.Is still matches ErrPersistenceFailure while errors.As can reach
// the wrapped store or invariant error for diagnostics.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistenceFailure, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var invalid *money.InvalidAmountError
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrBlockedByOutstandingAdvance) ||
		errors.As(err, &invalid)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrExpenseNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}
