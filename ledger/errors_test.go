package ledger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger"
	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// =============================================================================
// ERROR CHAINS
// =============================================================================

func TestPersistenceError_KeepsClassificationAndCause(t *testing.T) {
	// GIVEN: a persistence error wrapping an over-settlement violation
	// WHEN: inspecting the chain
	// THEN: both the sentinel and the underlying error stay reachable

	cause := &ledger.OverSettlementError{
		ExpenseID: "e1",
		Unsettled: money.MustParse("10.00"),
		Attempted: money.MustParse("25.00"),
	}
	err := &ledger.PersistenceError{Op: "apply fifo settlement", Err: cause}

	assert.ErrorIs(t, err, ledger.ErrPersistenceFailure)
	assert.ErrorIs(t, err, ledger.ErrOverSettlement)

	var got *ledger.OverSettlementError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "e1", got.ExpenseID)
	assert.Equal(t, "25.00", got.Attempted.String())
}

func TestPersistenceError_WrapsPlainStoreErrors(t *testing.T) {
	cause := errors.New("disk full")
	err := &ledger.PersistenceError{Op: "save payment", Err: cause}

	assert.ErrorIs(t, err, ledger.ErrPersistenceFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "save payment")
	assert.Contains(t, err.Error(), "disk full")
}
