package ledger_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger"
	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger/store"
	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// =============================================================================
// RECONCILIATION CHECK
// =============================================================================

func TestAudit_CleanUserNotFlagged(t *testing.T) {
	// GIVEN: a user whose balance moved only through the balance ledger
	// WHEN: auditing
	// THEN: drift is zero and the user is not flagged

	c, mem := newTestCoordinator(t)
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)
	ctx := context.Background()

	_, err := c.Adjust(ctx, "farmer-1", money.MustParse("120.00"), "opening", "admin")
	require.NoError(t, err)
	_, err = c.Settle(ctx, ledger.SettleRequest{
		UserID:    "farmer-1",
		Direction: ledger.DirectionShopToUser,
		Amount:    money.MustParse("50.00"),
	})
	require.NoError(t, err)

	result, err := ledger.NewAuditor(mem).CheckUser(ctx, "farmer-1")
	require.NoError(t, err)

	assert.True(t, result.Drift.IsZero())
	assert.False(t, result.Flagged)
	assert.Equal(t, "70.00", result.Balance.String())
	assert.Equal(t, "70.00", result.ExpectedBalance.String())
}

func TestAudit_DetectsBypassedMutation(t *testing.T) {
	// GIVEN: a balance written directly, bypassing the balance ledger
	// WHEN: auditing
	// THEN: the drift equals the illegal write and the user is flagged

	_, mem := newTestCoordinator(t)
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)
	ctx := context.Background()

	require.NoError(t, mem.SetBalance(ctx, "farmer-1", money.MustParse("99.00")))

	result, err := ledger.NewAuditor(mem).CheckUser(ctx, "farmer-1")
	require.NoError(t, err)

	assert.Equal(t, "99.00", result.Drift.String())
	assert.True(t, result.Flagged)
}

func TestAudit_ThresholdAbsorbsSubPaisaDrift(t *testing.T) {
	_, mem := newTestCoordinator(t)
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)
	ctx := context.Background()

	require.NoError(t, mem.SetBalance(ctx, "farmer-1", money.MustParse("0.01")))

	result, err := ledger.NewAuditor(mem).CheckUser(ctx, "farmer-1")
	require.NoError(t, err)
	assert.False(t, result.Flagged, "drift exactly at threshold is tolerated")
}

func TestAudit_UnknownUser(t *testing.T) {
	_, mem := newTestCoordinator(t)

	_, err := ledger.NewAuditor(mem).CheckUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
}

func TestAudit_CheckAllReturnsOnlyFlagged(t *testing.T) {
	c, mem := newTestCoordinator(t)
	seedUser(t, mem, "farmer-clean", ledger.RoleFarmer)
	seedUser(t, mem, "farmer-drifted", ledger.RoleFarmer)
	ctx := context.Background()

	_, err := c.Adjust(ctx, "farmer-clean", money.MustParse("10.00"), "opening", "admin")
	require.NoError(t, err)
	require.NoError(t, mem.SetBalance(ctx, "farmer-drifted", money.MustParse("5.00")))

	flagged, err := ledger.NewAuditor(mem).CheckAll(ctx, "shop-1")
	require.NoError(t, err)

	require.Len(t, flagged, 1)
	assert.Equal(t, "farmer-drifted", flagged[0].UserID)
}

// =============================================================================
// INVARIANT PROPERTY TEST
// =============================================================================

func TestAudit_InvariantHoldsUnderRandomSequences(t *testing.T) {
	// GIVEN: random interleavings of expenses, settlements in both
	//        directions, ledger entries, edits, deletes and adjustments
	// WHEN: auditing after every step
	// THEN: balance == Σ snapshot deltas, always

	rng := rand.New(rand.NewSource(42))

	mem := store.NewTxMemory()
	locks := ledger.NewUserLocks()
	c := ledger.NewCoordinator(mem, locks)
	es := ledger.NewEntryService(mem, locks)
	auditor := ledger.NewAuditor(mem)
	ctx := context.Background()

	users := []string{"farmer-a", "farmer-b", "buyer-a"}
	seedUser(t, mem, "farmer-a", ledger.RoleFarmer)
	seedUser(t, mem, "farmer-b", ledger.RoleFarmer)
	seedUser(t, mem, "buyer-a", ledger.RoleBuyer)

	var entryIDs []string

	randAmount := func() money.Money {
		return money.FromInt(int64(rng.Intn(200) + 1))
	}

	for step := 0; step < 300; step++ {
		userID := users[rng.Intn(len(users))]

		switch rng.Intn(6) {
		case 0:
			_, err := c.RecordExpense(ctx, userID, randAmount(), "advance", "prop")
			require.NoError(t, err)
		case 1:
			_, err := c.Settle(ctx, ledger.SettleRequest{
				UserID:    userID,
				Direction: ledger.DirectionUserToShop,
				Amount:    randAmount(),
			})
			require.NoError(t, err)
		case 2:
			_, err := c.Settle(ctx, ledger.SettleRequest{
				UserID:        userID,
				Direction:     ledger.DirectionShopToUser,
				Amount:        randAmount(),
				ForceOverride: true,
			})
			require.NoError(t, err)
		case 3:
			typ := ledger.EntryCredit
			if rng.Intn(2) == 0 {
				typ = ledger.EntryDebit
			}
			e, err := es.Create(ctx, ledger.EntryInput{
				ShopID:         "shop-1",
				FarmerID:       userID,
				Type:           typ,
				Category:       ledger.CategorySale,
				Amount:         randAmount(),
				CommissionRate: money.MustParse("2.50"),
			})
			require.NoError(t, err)
			entryIDs = append(entryIDs, e.ID)
		case 4:
			if len(entryIDs) == 0 {
				continue
			}
			id := entryIDs[rng.Intn(len(entryIDs))]
			err := es.SoftDelete(ctx, id, "prop", "random delete")
			if err != nil {
				require.ErrorIs(t, err, ledger.ErrEntryDeleted)
			}
		case 5:
			delta := randAmount()
			if rng.Intn(2) == 0 {
				delta = delta.Neg()
			}
			_, err := c.Adjust(ctx, userID, delta, "random adjustment", "prop")
			require.NoError(t, err)
		}

		for _, u := range users {
			result, err := auditor.CheckUser(ctx, u)
			require.NoError(t, err)
			assert.True(t, result.Drift.IsZero(),
				fmt.Sprintf("step %d: user %s drifted by %s", step, u, result.Drift))
		}
	}
}
