/*
aggregate.go - Period-based financial summaries

PURPOSE:
  Reduces active ledger entries into weekly/monthly/overall totals of
  credit, debit, commission and the derived balance. A read-only consumer
  of ledger state; it takes no locks and tolerates marginally stale reads.

BUCKETING:
  Weekly buckets use the ISO week of the transaction date ("2025-W31"),
  monthly buckets the calendar month ("2025-07"). The transaction date
  falls back to created_at when absent. Buckets with no matching rows are
  omitted; zero-filling is a presentation concern of the caller.

EXCLUSION:
  The aggregator is only ever handed active entries - the store filter
  drops soft-deleted rows before they reach any sum.

DETERMINISM:
  Two calls with identical filters over unchanged data return identical
  results: buckets are emitted in ascending period order and nothing here
  depends on the clock.
*/
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// PeriodKind selects the bucketing of a summary.
type PeriodKind string

const (
	PeriodNone    PeriodKind = ""
	PeriodWeekly  PeriodKind = "weekly"
	PeriodMonthly PeriodKind = "monthly"
)

// SummaryQuery filters and shapes a summary request.
type SummaryQuery struct {
	ShopID   string
	Period   PeriodKind
	FarmerID string
	Category EntryCategory
	From     *time.Time
	To       *time.Time
}

// Totals is one reduction of entries: credit, debit, commission and the
// derived balance (credit - debit - commission).
type Totals struct {
	Credit     money.Money
	Debit      money.Money
	Commission money.Money
	Balance    money.Money
}

// PeriodTotals is the reduction of one bucket.
type PeriodTotals struct {
	PeriodLabel string
	Totals
}

// Summary is the full response: per-bucket rows plus the overall
// reduction over the same filtered set.
type Summary struct {
	Period  []PeriodTotals
	Overall Totals
}

// Aggregator derives summaries from the entry store.
type Aggregator struct {
	Store Store
}

// NewAggregator binds the aggregator to a store.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{Store: store}
}

// Summarize reduces the filtered active entries into period buckets and
// an overall total.
func (a *Aggregator) Summarize(ctx context.Context, q SummaryQuery) (*Summary, error) {
	entries, err := a.Store.QueryEntries(ctx, EntryFilter{
		ShopID:   q.ShopID,
		FarmerID: q.FarmerID,
		Category: q.Category,
		From:     q.From,
		To:       q.To,
	})
	if err != nil {
		return nil, &PersistenceError{Op: "query entries", Err: err}
	}

	summary := &Summary{}
	buckets := make(map[string]*Totals)

	for _, e := range entries {
		accumulate(&summary.Overall, e)
		if q.Period == PeriodNone {
			continue
		}
		label := bucketLabel(q.Period, entryDate(e))
		t, ok := buckets[label]
		if !ok {
			t = &Totals{}
			buckets[label] = t
		}
		accumulate(t, e)
	}

	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		summary.Period = append(summary.Period, PeriodTotals{PeriodLabel: label, Totals: *buckets[label]})
	}

	return summary, nil
}

func accumulate(t *Totals, e Entry) {
	switch e.Type {
	case EntryCredit:
		t.Credit = t.Credit.Add(e.Amount)
		t.Commission = t.Commission.Add(e.CommissionAmount)
	case EntryDebit:
		t.Debit = t.Debit.Add(e.Amount)
	}
	t.Balance = t.Credit.Sub(t.Debit).Sub(t.Commission)
}

func entryDate(e Entry) time.Time {
	if !e.TransactionDate.IsZero() {
		return e.TransactionDate
	}
	return e.CreatedAt
}

func bucketLabel(kind PeriodKind, at time.Time) string {
	switch kind {
	case PeriodWeekly:
		year, week := at.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case PeriodMonthly:
		return at.Format("2006-01")
	default:
		return ""
	}
}
