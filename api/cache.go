/*
cache.go - Read-through TTL cache for summary responses

PURPOSE:
  Summaries reduce every active entry of a shop on each request. The
  cache keeps recent reductions for a short TTL so dashboards polling
  the endpoint do not rescan the entry table on every refresh.

INVALIDATION:
  Any entry mutation (create/update/soft delete) flushes the whole
  cache. Coarse, but a summary must never reflect a deleted entry and
  the cache is tiny.
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger"
)

// SummaryCache is a read-through cache keyed by the summary query.
type SummaryCache struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time

	entries map[string]cachedSummary
}

type cachedSummary struct {
	summary   *ledger.Summary
	expiresAt time.Time
}

// NewSummaryCache creates a cache with the given TTL.
func NewSummaryCache(ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedSummary),
	}
}

// Get returns the cached summary for the query, computing and storing
// it through the aggregator on a miss or expiry.
func (c *SummaryCache) Get(ctx context.Context, q ledger.SummaryQuery, agg *ledger.Aggregator) (*ledger.Summary, error) {
	key := cacheKey(q)

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok && c.now().Before(cached.expiresAt) {
		return cached.summary, nil
	}

	summary, err := agg.Summarize(ctx, q)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cachedSummary{summary: summary, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return summary, nil
}

// Invalidate flushes every cached summary.
func (c *SummaryCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cachedSummary)
	c.mu.Unlock()
}

func cacheKey(q ledger.SummaryQuery) string {
	from, to := "", ""
	if q.From != nil {
		from = q.From.Format(time.RFC3339)
	}
	if q.To != nil {
		to = q.To.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s", q.ShopID, q.Period, q.FarmerID, q.Category, from, to)
}
