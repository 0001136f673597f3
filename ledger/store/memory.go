// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger"
	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	users     map[string]ledger.User
	expenses  map[string]ledger.Expense
	payments  map[string]ledger.Payment
	snapshots map[string][]ledger.BalanceSnapshot // userID -> append-only trail
	entries   map[string]ledger.Entry
}

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]ledger.User),
		expenses:  make(map[string]ledger.Expense),
		payments:  make(map[string]ledger.Payment),
		snapshots: make(map[string][]ledger.BalanceSnapshot),
		entries:   make(map[string]ledger.Entry),
	}
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

func (m *Memory) SaveUser(_ context.Context, u ledger.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUserLocked(u)
}

func (m *Memory) saveUserLocked(u ledger.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getUserLocked(id)
}

func (m *Memory) getUserLocked(id string) (*ledger.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) ListUsers(_ context.Context, shopID string) ([]ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listUsersLocked(shopID)
}

func (m *Memory) listUsersLocked(shopID string) ([]ledger.User, error) {
	var users []ledger.User
	for _, u := range m.users {
		if shopID == "" || u.ShopID == shopID {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *Memory) SetBalance(_ context.Context, userID string, balance money.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setBalanceLocked(userID, balance)
}

func (m *Memory) setBalanceLocked(userID string, balance money.Money) error {
	u, ok := m.users[userID]
	if !ok {
		return ledger.ErrUserNotFound
	}
	u.Balance = balance
	m.users[userID] = u
	return nil
}

// -----------------------------------------------------------------------------
// Expenses
// -----------------------------------------------------------------------------

func (m *Memory) SaveExpense(_ context.Context, e ledger.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveExpenseLocked(e)
}

func (m *Memory) saveExpenseLocked(e ledger.Expense) error {
	m.expenses[e.ID] = e
	return nil
}

func (m *Memory) GetExpense(_ context.Context, id string) (*ledger.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getExpenseLocked(id)
}

func (m *Memory) getExpenseLocked(id string) (*ledger.Expense, error) {
	e, ok := m.expenses[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) OutstandingExpenses(_ context.Context, userID string) ([]ledger.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.outstandingExpensesLocked(userID)
}

func (m *Memory) outstandingExpensesLocked(userID string) ([]ledger.Expense, error) {
	var out []ledger.Expense
	for _, e := range m.expenses {
		if e.UserID == userID && e.Unsettled.IsPositive() {
			out = append(out, e)
		}
	}
	// Oldest first, id as tiebreak: the FIFO contract.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) UpdateExpenseSplit(_ context.Context, id string, settled, unsettled money.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateExpenseSplitLocked(id, settled, unsettled)
}

func (m *Memory) updateExpenseSplitLocked(id string, settled, unsettled money.Money) error {
	e, ok := m.expenses[id]
	if !ok {
		return ledger.ErrExpenseNotFound
	}
	e.Settled = settled
	e.Unsettled = unsettled
	m.expenses[id] = e
	return nil
}

// -----------------------------------------------------------------------------
// Payments
// -----------------------------------------------------------------------------

func (m *Memory) SavePayment(_ context.Context, p ledger.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savePaymentLocked(p)
}

func (m *Memory) savePaymentLocked(p ledger.Payment) error {
	m.payments[p.ID] = p
	return nil
}

func (m *Memory) GetPayment(_ context.Context, id string) (*ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPaymentLocked(id)
}

func (m *Memory) getPaymentLocked(id string) (*ledger.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) PaymentsByUser(_ context.Context, userID string) ([]ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paymentsByUserLocked(userID)
}

func (m *Memory) paymentsByUserLocked(userID string) ([]ledger.Payment, error) {
	var out []ledger.Payment
	for _, p := range m.payments {
		if p.CounterpartyID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// -----------------------------------------------------------------------------
// Snapshots (append-only)
// -----------------------------------------------------------------------------

func (m *Memory) AppendSnapshot(_ context.Context, s ledger.BalanceSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendSnapshotLocked(s)
}

func (m *Memory) appendSnapshotLocked(s ledger.BalanceSnapshot) error {
	m.snapshots[s.UserID] = append(m.snapshots[s.UserID], s)
	return nil
}

func (m *Memory) SnapshotsByUser(_ context.Context, userID string) ([]ledger.BalanceSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotsByUserLocked(userID)
}

func (m *Memory) snapshotsByUserLocked(userID string) ([]ledger.BalanceSnapshot, error) {
	out := make([]ledger.BalanceSnapshot, len(m.snapshots[userID]))
	copy(out, m.snapshots[userID])
	return out, nil
}

// -----------------------------------------------------------------------------
// Ledger entries
// -----------------------------------------------------------------------------

func (m *Memory) SaveEntry(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveEntryLocked(e)
}

func (m *Memory) saveEntryLocked(e ledger.Entry) error {
	m.entries[e.ID] = e
	return nil
}

func (m *Memory) UpdateEntry(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateEntryLocked(e)
}

func (m *Memory) updateEntryLocked(e ledger.Entry) error {
	if _, ok := m.entries[e.ID]; !ok {
		return ledger.ErrEntryNotFound
	}
	m.entries[e.ID] = e
	return nil
}

func (m *Memory) GetEntry(_ context.Context, id string) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEntryLocked(id)
}

func (m *Memory) getEntryLocked(id string) (*ledger.Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) MarkEntryDeleted(_ context.Context, id string, status ledger.EntryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markEntryDeletedLocked(id, status)
}

func (m *Memory) markEntryDeletedLocked(id string, status ledger.EntryStatus) error {
	e, ok := m.entries[id]
	if !ok {
		return ledger.ErrEntryNotFound
	}
	e.Status = status
	m.entries[id] = e
	return nil
}

func (m *Memory) QueryEntries(_ context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryEntriesLocked(f)
}

func (m *Memory) queryEntriesLocked(f ledger.EntryFilter) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range m.entries {
		if !matches(e, f) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matches(e ledger.Entry, f ledger.EntryFilter) bool {
	if e.Status.Deleted && !f.IncludeDeleted {
		return false
	}
	if f.ShopID != "" && e.ShopID != f.ShopID {
		return false
	}
	if f.FarmerID != "" && e.FarmerID != f.FarmerID {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	date := e.TransactionDate
	if date.IsZero() {
		date = e.CreatedAt
	}
	if f.From != nil && date.Before(*f.From) {
		return false
	}
	if f.To != nil && date.After(*f.To) {
		return false
	}
	return true
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support, simulated with a full
// snapshot + rollback on error.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx runs fn against the live maps and restores the pre-call state on
// error. The store mutex is held for the entire transaction, so a rollback
// can never erase writes from a concurrently committed transaction; fn's
// store calls go through a view that skips the (already held) lock.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snap := tm.snapshotLocked()
	if err := fn(&txMemoryView{m: tm.Memory}); err != nil {
		tm.restoreLocked(snap)
		return err
	}
	return nil
}

// txMemoryView routes Store calls to the unlocked method set. Only WithTx
// hands it out, with the store mutex held.
type txMemoryView struct {
	m *Memory
}

func (v *txMemoryView) SaveUser(_ context.Context, u ledger.User) error {
	return v.m.saveUserLocked(u)
}

func (v *txMemoryView) GetUser(_ context.Context, id string) (*ledger.User, error) {
	return v.m.getUserLocked(id)
}

func (v *txMemoryView) ListUsers(_ context.Context, shopID string) ([]ledger.User, error) {
	return v.m.listUsersLocked(shopID)
}

func (v *txMemoryView) SetBalance(_ context.Context, userID string, balance money.Money) error {
	return v.m.setBalanceLocked(userID, balance)
}

func (v *txMemoryView) SaveExpense(_ context.Context, e ledger.Expense) error {
	return v.m.saveExpenseLocked(e)
}

func (v *txMemoryView) GetExpense(_ context.Context, id string) (*ledger.Expense, error) {
	return v.m.getExpenseLocked(id)
}

func (v *txMemoryView) OutstandingExpenses(_ context.Context, userID string) ([]ledger.Expense, error) {
	return v.m.outstandingExpensesLocked(userID)
}

func (v *txMemoryView) UpdateExpenseSplit(_ context.Context, id string, settled, unsettled money.Money) error {
	return v.m.updateExpenseSplitLocked(id, settled, unsettled)
}

func (v *txMemoryView) SavePayment(_ context.Context, p ledger.Payment) error {
	return v.m.savePaymentLocked(p)
}

func (v *txMemoryView) GetPayment(_ context.Context, id string) (*ledger.Payment, error) {
	return v.m.getPaymentLocked(id)
}

func (v *txMemoryView) PaymentsByUser(_ context.Context, userID string) ([]ledger.Payment, error) {
	return v.m.paymentsByUserLocked(userID)
}

func (v *txMemoryView) AppendSnapshot(_ context.Context, s ledger.BalanceSnapshot) error {
	return v.m.appendSnapshotLocked(s)
}

func (v *txMemoryView) SnapshotsByUser(_ context.Context, userID string) ([]ledger.BalanceSnapshot, error) {
	return v.m.snapshotsByUserLocked(userID)
}

func (v *txMemoryView) SaveEntry(_ context.Context, e ledger.Entry) error {
	return v.m.saveEntryLocked(e)
}

func (v *txMemoryView) UpdateEntry(_ context.Context, e ledger.Entry) error {
	return v.m.updateEntryLocked(e)
}

func (v *txMemoryView) GetEntry(_ context.Context, id string) (*ledger.Entry, error) {
	return v.m.getEntryLocked(id)
}

func (v *txMemoryView) MarkEntryDeleted(_ context.Context, id string, status ledger.EntryStatus) error {
	return v.m.markEntryDeletedLocked(id, status)
}

func (v *txMemoryView) QueryEntries(_ context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
	return v.m.queryEntriesLocked(f)
}

type memorySnapshot struct {
	users     map[string]ledger.User
	expenses  map[string]ledger.Expense
	payments  map[string]ledger.Payment
	snapshots map[string][]ledger.BalanceSnapshot
	entries   map[string]ledger.Entry
}

func (tm *TxMemory) snapshotLocked() memorySnapshot {
	s := memorySnapshot{
		users:     make(map[string]ledger.User, len(tm.users)),
		expenses:  make(map[string]ledger.Expense, len(tm.expenses)),
		payments:  make(map[string]ledger.Payment, len(tm.payments)),
		snapshots: make(map[string][]ledger.BalanceSnapshot, len(tm.snapshots)),
		entries:   make(map[string]ledger.Entry, len(tm.entries)),
	}
	for k, v := range tm.users {
		s.users[k] = v
	}
	for k, v := range tm.expenses {
		s.expenses[k] = v
	}
	for k, v := range tm.payments {
		s.payments[k] = v
	}
	for k, v := range tm.snapshots {
		s.snapshots[k] = append([]ledger.BalanceSnapshot{}, v...)
	}
	for k, v := range tm.entries {
		s.entries[k] = v
	}
	return s
}

func (tm *TxMemory) restoreLocked(s memorySnapshot) {
	tm.users = s.users
	tm.expenses = s.expenses
	tm.payments = s.payments
	tm.snapshots = s.snapshots
	tm.entries = s.entries
}
