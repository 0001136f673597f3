package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger"
	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger/store"
	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// =============================================================================
// TRANSACTION ISOLATION
// =============================================================================

func TestWithTx_RollbackRestoresOnlyItsOwnWrites(t *testing.T) {
	// GIVEN: a committed balance and payment
	// WHEN: a later transaction writes and then fails
	// THEN: only the failed transaction's writes disappear

	tm := store.NewTxMemory()
	ctx := context.Background()
	require.NoError(t, tm.SaveUser(ctx, ledger.User{ID: "farmer-1", ShopID: "shop-1", Role: ledger.RoleFarmer}))

	require.NoError(t, tm.WithTx(ctx, func(s ledger.Store) error {
		if err := s.SavePayment(ctx, ledger.Payment{ID: "pay-1", CounterpartyID: "farmer-1"}); err != nil {
			return err
		}
		return s.SetBalance(ctx, "farmer-1", money.MustParse("10.00"))
	}))

	boom := errors.New("boom")
	err := tm.WithTx(ctx, func(s ledger.Store) error {
		if err := s.SetBalance(ctx, "farmer-1", money.MustParse("99.00")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := tm.GetPayment(ctx, "pay-1")
	require.NoError(t, err)
	assert.NotNil(t, p)

	u, err := tm.GetUser(ctx, "farmer-1")
	require.NoError(t, err)
	assert.Equal(t, "10.00", u.Balance.String())
}

func TestWithTx_FailingTxCannotEraseConcurrentCommit(t *testing.T) {
	// GIVEN: two transactions racing, one slow and failing, one committing
	//        a payment and balance for a different user
	// WHEN: the failing one rolls back
	// THEN: the committed transaction's writes survive regardless of order

	tm := store.NewTxMemory()
	ctx := context.Background()
	require.NoError(t, tm.SaveUser(ctx, ledger.User{ID: "farmer-a", ShopID: "shop-1", Role: ledger.RoleFarmer}))
	require.NoError(t, tm.SaveUser(ctx, ledger.User{ID: "farmer-b", ShopID: "shop-1", Role: ledger.RoleFarmer}))

	boom := errors.New("boom")
	var (
		wg        sync.WaitGroup
		failedErr error
		commitErr error
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		failedErr = tm.WithTx(ctx, func(s ledger.Store) error {
			if err := s.SetBalance(ctx, "farmer-a", money.MustParse("99.00")); err != nil {
				return err
			}
			// Widen the window between snapshot and rollback.
			time.Sleep(5 * time.Millisecond)
			return boom
		})
	}()

	go func() {
		defer wg.Done()
		commitErr = tm.WithTx(ctx, func(s ledger.Store) error {
			if err := s.SavePayment(ctx, ledger.Payment{ID: "pay-1", CounterpartyID: "farmer-b"}); err != nil {
				return err
			}
			return s.SetBalance(ctx, "farmer-b", money.MustParse("10.00"))
		})
	}()

	wg.Wait()
	require.ErrorIs(t, failedErr, boom)
	require.NoError(t, commitErr)

	p, err := tm.GetPayment(ctx, "pay-1")
	require.NoError(t, err)
	assert.NotNil(t, p, "committed payment must survive the other rollback")

	b, err := tm.GetUser(ctx, "farmer-b")
	require.NoError(t, err)
	assert.Equal(t, "10.00", b.Balance.String())

	a, err := tm.GetUser(ctx, "farmer-a")
	require.NoError(t, err)
	assert.True(t, a.Balance.IsZero(), "failed transaction's write must roll back")
}
