package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger"
	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger/store"
	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEntryService(t *testing.T) (*ledger.EntryService, *store.TxMemory) {
	t.Helper()
	mem := store.NewTxMemory()
	return ledger.NewEntryService(mem, ledger.NewUserLocks()), mem
}

func saleInput(amount, rate string) ledger.EntryInput {
	return ledger.EntryInput{
		ShopID:         "shop-1",
		FarmerID:       "farmer-1",
		Type:           ledger.EntryCredit,
		Category:       ledger.CategorySale,
		Amount:         money.MustParse(amount),
		CommissionRate: money.MustParse(rate),
		Notes:          "sale",
		CreatedBy:      "test",
	}
}

// =============================================================================
// CREATE
// =============================================================================

func TestEntryCreate_CreditSale_CommissionAndBalance(t *testing.T) {
	// GIVEN: a credit sale of 1000 at 2.5% commission
	// WHEN: creating the entry
	// THEN: commission = 25.00, net = 975.00, farmer balance +975.00

	es, mem := newTestEntryService(t)
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)
	ctx := context.Background()

	e, err := es.Create(ctx, saleInput("1000.00", "2.50"))
	require.NoError(t, err)

	assert.Equal(t, "25.00", e.CommissionAmount.String())
	assert.Equal(t, "975.00", e.NetAmount.String())
	assert.Equal(t, "975.00", balanceOf(t, mem, "farmer-1").String())

	snaps, err := mem.SnapshotsByUser(ctx, "farmer-1")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, ledger.SnapshotEntry, snaps[0].TransactionType)
	assert.Equal(t, e.ID, snaps[0].ReferenceID)
}

func TestEntryCreate_Debit_ReducesBalance(t *testing.T) {
	es, mem := newTestEntryService(t)
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)

	_, err := es.Create(context.Background(), ledger.EntryInput{
		ShopID:   "shop-1",
		FarmerID: "farmer-1",
		Type:     ledger.EntryDebit,
		Category: ledger.CategoryWithdrawal,
		Amount:   money.MustParse("200.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, "-200.00", balanceOf(t, mem, "farmer-1").String())
}

func TestEntryCreate_NonSaleCredit_NoCommission(t *testing.T) {
	es, mem := newTestEntryService(t)
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)

	e, err := es.Create(context.Background(), ledger.EntryInput{
		ShopID:         "shop-1",
		FarmerID:       "farmer-1",
		Type:           ledger.EntryCredit,
		Category:       ledger.CategoryDeposit,
		Amount:         money.MustParse("500.00"),
		CommissionRate: money.MustParse("2.50"),
	})
	require.NoError(t, err)

	assert.True(t, e.CommissionAmount.IsZero())
	assert.Equal(t, "500.00", e.NetAmount.String())
}

func TestEntryCreate_Validation(t *testing.T) {
	es, mem := newTestEntryService(t)
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)
	ctx := context.Background()

	in := saleInput("0.00", "2.50")
	_, err := es.Create(ctx, in)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "zero amount")

	in = saleInput("10.00", "2.50")
	in.Type = ledger.EntryType("transfer")
	_, err = es.Create(ctx, in)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "unknown type")

	in = saleInput("10.00", "2.50")
	in.Category = ledger.EntryCategory("gift")
	_, err = es.Create(ctx, in)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "unknown category")

	in = saleInput("10.00", "2.50")
	in.CommissionRate = money.MustParse("-1.00")
	_, err = es.Create(ctx, in)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "negative rate")
}

// =============================================================================
// UPDATE
// =============================================================================

func TestEntryUpdate_AppliesOnlyTheDifference(t *testing.T) {
	// GIVEN: a credit sale of 1000 at 2.5% (balance +975)
	// WHEN: editing the amount to 800
	// THEN: balance moves by the difference to +780, via one extra snapshot

	es, mem := newTestEntryService(t)
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)
	ctx := context.Background()

	e, err := es.Create(ctx, saleInput("1000.00", "2.50"))
	require.NoError(t, err)

	updated, err := es.Update(ctx, e.ID, saleInput("800.00", "2.50"))
	require.NoError(t, err)

	assert.Equal(t, "20.00", updated.CommissionAmount.String())
	assert.Equal(t, "780.00", updated.NetAmount.String())
	assert.Equal(t, "780.00", balanceOf(t, mem, "farmer-1").String())

	snaps, err := mem.SnapshotsByUser(ctx, "farmer-1")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "-195.00", snaps[1].AmountChange.String())
}

func TestEntryUpdate_UnknownAndDeleted(t *testing.T) {
	es, mem := newTestEntryService(t)
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)
	ctx := context.Background()

	_, err := es.Update(ctx, "missing", saleInput("10.00", "0.00"))
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)

	e, err := es.Create(ctx, saleInput("10.00", "0.00"))
	require.NoError(t, err)
	require.NoError(t, es.SoftDelete(ctx, e.ID, "admin", "mistake"))

	_, err = es.Update(ctx, e.ID, saleInput("20.00", "0.00"))
	assert.ErrorIs(t, err, ledger.ErrEntryDeleted)
}

// =============================================================================
// SOFT DELETE
// =============================================================================

func TestEntrySoftDelete_ReversesBalanceAndKeepsRow(t *testing.T) {
	// GIVEN: a credit sale moving the balance to +975
	// WHEN: soft deleting it
	// THEN: the balance returns to zero, the row stays readable with its
	//       deletion context, and a reversing snapshot exists

	es, mem := newTestEntryService(t)
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)
	ctx := context.Background()

	e, err := es.Create(ctx, saleInput("1000.00", "2.50"))
	require.NoError(t, err)

	require.NoError(t, es.SoftDelete(ctx, e.ID, "admin", "duplicate entry"))

	assert.True(t, balanceOf(t, mem, "farmer-1").IsZero())

	got, err := es.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.Status.Deleted)
	assert.Equal(t, "admin", got.Status.DeletedBy)
	assert.Equal(t, "duplicate entry", got.Status.DeletionReason)
	require.NotNil(t, got.Status.DeletedAt)

	snaps, err := mem.SnapshotsByUser(ctx, "farmer-1")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "-975.00", snaps[1].AmountChange.String())
}

func TestEntrySoftDelete_Twice(t *testing.T) {
	es, mem := newTestEntryService(t)
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)
	ctx := context.Background()

	e, err := es.Create(ctx, saleInput("10.00", "0.00"))
	require.NoError(t, err)

	require.NoError(t, es.SoftDelete(ctx, e.ID, "admin", "first"))
	err = es.SoftDelete(ctx, e.ID, "admin", "second")
	assert.ErrorIs(t, err, ledger.ErrEntryDeleted)
}

func TestEntrySoftDelete_ExcludedFromQueriesButNotByID(t *testing.T) {
	es, mem := newTestEntryService(t)
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)
	ctx := context.Background()

	e, err := es.Create(ctx, saleInput("10.00", "0.00"))
	require.NoError(t, err)
	require.NoError(t, es.SoftDelete(ctx, e.ID, "admin", "oops"))

	active, err := mem.QueryEntries(ctx, ledger.EntryFilter{ShopID: "shop-1"})
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := mem.QueryEntries(ctx, ledger.EntryFilter{ShopID: "shop-1", IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	got, err := es.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
}

func TestEntry_TransactionDateDefaultsToNow(t *testing.T) {
	es, mem := newTestEntryService(t)
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)

	fixed := time.Date(2025, time.August, 1, 10, 0, 0, 0, time.UTC)
	es.Now = func() time.Time { return fixed }

	e, err := es.Create(context.Background(), saleInput("10.00", "0.00"))
	require.NoError(t, err)
	assert.True(t, e.TransactionDate.Equal(fixed))
}
