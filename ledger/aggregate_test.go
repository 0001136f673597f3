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

type aggFixture struct {
	agg     *ledger.Aggregator
	entries *ledger.EntryService
	mem     *store.TxMemory
}

func newAggFixture(t *testing.T) aggFixture {
	t.Helper()
	mem := store.NewTxMemory()
	seedUser(t, mem, "farmer-1", ledger.RoleFarmer)
	seedUser(t, mem, "farmer-2", ledger.RoleFarmer)
	return aggFixture{
		agg:     ledger.NewAggregator(mem),
		entries: ledger.NewEntryService(mem, ledger.NewUserLocks()),
		mem:     mem,
	}
}

func (f aggFixture) add(t *testing.T, farmerID string, typ ledger.EntryType, cat ledger.EntryCategory, amount, rate string, on time.Time) *ledger.Entry {
	t.Helper()
	e, err := f.entries.Create(context.Background(), ledger.EntryInput{
		ShopID:          "shop-1",
		FarmerID:        farmerID,
		Type:            typ,
		Category:        cat,
		Amount:          money.MustParse(amount),
		CommissionRate:  money.MustParse(rate),
		TransactionDate: on,
	})
	require.NoError(t, err)
	return e
}

// =============================================================================
// REDUCTION
// =============================================================================

func TestSummarize_OverallTotals(t *testing.T) {
	// GIVEN: a credit sale of 1000 at 2.5% and a debit of 200
	// WHEN: summarizing without buckets
	// THEN: credit=1000, debit=200, commission=25, balance=775

	f := newAggFixture(t)
	july := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	f.add(t, "farmer-1", ledger.EntryCredit, ledger.CategorySale, "1000.00", "2.50", july)
	f.add(t, "farmer-1", ledger.EntryDebit, ledger.CategoryWithdrawal, "200.00", "0.00", july)

	s, err := f.agg.Summarize(context.Background(), ledger.SummaryQuery{ShopID: "shop-1"})
	require.NoError(t, err)

	assert.Equal(t, "1000.00", s.Overall.Credit.String())
	assert.Equal(t, "200.00", s.Overall.Debit.String())
	assert.Equal(t, "25.00", s.Overall.Commission.String())
	assert.Equal(t, "775.00", s.Overall.Balance.String())
	assert.Empty(t, s.Period)
}

func TestSummarize_MonthlyBuckets_AscendingAndSparse(t *testing.T) {
	// GIVEN: entries in July and September, nothing in August
	// WHEN: summarizing monthly
	// THEN: two buckets, ascending, August omitted

	f := newAggFixture(t)
	f.add(t, "farmer-1", ledger.EntryCredit, ledger.CategorySale, "100.00", "0.00",
		time.Date(2025, time.September, 2, 0, 0, 0, 0, time.UTC))
	f.add(t, "farmer-1", ledger.EntryCredit, ledger.CategorySale, "300.00", "0.00",
		time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC))

	s, err := f.agg.Summarize(context.Background(), ledger.SummaryQuery{
		ShopID: "shop-1",
		Period: ledger.PeriodMonthly,
	})
	require.NoError(t, err)

	require.Len(t, s.Period, 2)
	assert.Equal(t, "2025-07", s.Period[0].PeriodLabel)
	assert.Equal(t, "300.00", s.Period[0].Credit.String())
	assert.Equal(t, "2025-09", s.Period[1].PeriodLabel)
	assert.Equal(t, "100.00", s.Period[1].Credit.String())
	assert.Equal(t, "400.00", s.Overall.Credit.String())
}

func TestSummarize_WeeklyBuckets_ISOWeek(t *testing.T) {
	// Monday 2025-07-07 and Sunday 2025-07-13 share ISO week 28;
	// Monday 2025-07-14 starts week 29.

	f := newAggFixture(t)
	f.add(t, "farmer-1", ledger.EntryCredit, ledger.CategorySale, "10.00", "0.00",
		time.Date(2025, time.July, 7, 0, 0, 0, 0, time.UTC))
	f.add(t, "farmer-1", ledger.EntryCredit, ledger.CategorySale, "20.00", "0.00",
		time.Date(2025, time.July, 13, 0, 0, 0, 0, time.UTC))
	f.add(t, "farmer-1", ledger.EntryCredit, ledger.CategorySale, "40.00", "0.00",
		time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC))

	s, err := f.agg.Summarize(context.Background(), ledger.SummaryQuery{
		ShopID: "shop-1",
		Period: ledger.PeriodWeekly,
	})
	require.NoError(t, err)

	require.Len(t, s.Period, 2)
	assert.Equal(t, "2025-W28", s.Period[0].PeriodLabel)
	assert.Equal(t, "30.00", s.Period[0].Credit.String())
	assert.Equal(t, "2025-W29", s.Period[1].PeriodLabel)
	assert.Equal(t, "40.00", s.Period[1].Credit.String())
}

func TestSummarize_ExcludesSoftDeleted(t *testing.T) {
	// GIVEN: two sales, one of which gets soft deleted
	// WHEN: summarizing
	// THEN: only the surviving sale counts

	f := newAggFixture(t)
	july := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	keep := f.add(t, "farmer-1", ledger.EntryCredit, ledger.CategorySale, "100.00", "0.00", july)
	gone := f.add(t, "farmer-1", ledger.EntryCredit, ledger.CategorySale, "900.00", "0.00", july)
	_ = keep

	require.NoError(t, f.entries.SoftDelete(context.Background(), gone.ID, "admin", "duplicate"))

	s, err := f.agg.Summarize(context.Background(), ledger.SummaryQuery{ShopID: "shop-1"})
	require.NoError(t, err)
	assert.Equal(t, "100.00", s.Overall.Credit.String())
}

func TestSummarize_Filters(t *testing.T) {
	f := newAggFixture(t)
	july := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	august := time.Date(2025, time.August, 10, 0, 0, 0, 0, time.UTC)
	f.add(t, "farmer-1", ledger.EntryCredit, ledger.CategorySale, "100.00", "0.00", july)
	f.add(t, "farmer-2", ledger.EntryCredit, ledger.CategoryDeposit, "50.00", "0.00", july)
	f.add(t, "farmer-1", ledger.EntryCredit, ledger.CategorySale, "70.00", "0.00", august)

	ctx := context.Background()

	byFarmer, err := f.agg.Summarize(ctx, ledger.SummaryQuery{ShopID: "shop-1", FarmerID: "farmer-2"})
	require.NoError(t, err)
	assert.Equal(t, "50.00", byFarmer.Overall.Credit.String())

	byCategory, err := f.agg.Summarize(ctx, ledger.SummaryQuery{ShopID: "shop-1", Category: ledger.CategorySale})
	require.NoError(t, err)
	assert.Equal(t, "170.00", byCategory.Overall.Credit.String())

	to := time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC)
	byRange, err := f.agg.Summarize(ctx, ledger.SummaryQuery{ShopID: "shop-1", To: &to})
	require.NoError(t, err)
	assert.Equal(t, "150.00", byRange.Overall.Credit.String())
}

func TestSummarize_IsDeterministic(t *testing.T) {
	// Two identical calls over unchanged data return identical results.

	f := newAggFixture(t)
	july := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	f.add(t, "farmer-1", ledger.EntryCredit, ledger.CategorySale, "123.45", "2.50", july)
	f.add(t, "farmer-1", ledger.EntryDebit, ledger.CategoryExpense, "23.45", "0.00", july)

	q := ledger.SummaryQuery{ShopID: "shop-1", Period: ledger.PeriodMonthly}
	first, err := f.agg.Summarize(context.Background(), q)
	require.NoError(t, err)
	second, err := f.agg.Summarize(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first.Overall.Balance.String(), second.Overall.Balance.String())
	require.Equal(t, len(first.Period), len(second.Period))
	for i := range first.Period {
		assert.Equal(t, first.Period[i].PeriodLabel, second.Period[i].PeriodLabel)
		assert.Equal(t, first.Period[i].Credit.String(), second.Period[i].Credit.String())
	}
}
