/*
Package ledger provides the payment settlement and ledger-reconciliation
engine for the trading center.

PURPOSE:
  Tracks money owed between the shop and the farmers/buyers who trade
  through it. Every settlement, bookkeeping entry and adjustment mutates
  a per-user running balance, and the engine must always be able to
  prove that balance is the exact sum of its history. Advances live in
  the expense book and reach the balance only through FIFO settlement.

KEY CONCEPTS IN THIS FILE (types.go):
  - User: a farmer, buyer or the shop owner, carrying the running balance
  - Expense: an advance the shop fronted to a farmer, with settled/unsettled split
  - Payment: one settlement event, immutable once written
  - Entry: a credit/debit bookkeeping record with soft-delete status
  - BalanceSnapshot: the append-only audit row written per balance change
  - FifoResult: the allocation of a payment across outstanding expenses

DESIGN PRINCIPLES:
  1. Exactness: all amounts are money.Money, never binary floats
  2. Auditability: every balance mutation leaves a BalanceSnapshot
  3. Immutability: payments and snapshots are never edited; entries are
     soft-deleted with reason, never removed

SIGN CONVENTION:
  For a farmer, balance > 0 means the shop owes the farmer; balance < 0
  means the farmer owes the shop (advances exceed earnings). For a buyer,
  balance >= 0 is what the buyer owes the shop.

SEE ALSO:
  - fifo.go: oldest-debt-first allocation
  - settle.go: settlement orchestration
  - balance.go: the only legal balance mutation path
*/
package ledger

import (
	"time"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// =============================================================================
// USERS
// =============================================================================

type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
	RoleOwner  Role = "owner"
)

// User is a party trading through the shop. The engine owns only the
// Balance column; identity and authentication live outside this core.
type User struct {
	ID        string
	ShopID    string
	Name      string
	Role      Role
	Balance   money.Money
	CreatedAt time.Time
}

// BalanceType tags snapshots with which sign convention applies.
func (u User) BalanceType() string {
	if u.Role == RoleBuyer {
		return "buyer"
	}
	return "farmer"
}

// =============================================================================
// EXPENSES - advances fronted to farmers, repayable oldest-first
// =============================================================================

// Expense is money the shop has fronted to a farmer. It is never deleted;
// settlement moves value from Unsettled to Settled until Unsettled is zero.
//
// INVARIANT: Settled + Unsettled == Amount, Unsettled >= 0.
type Expense struct {
	ID        string
	UserID    string
	ShopID    string
	Amount    money.Money
	Settled   money.Money
	Unsettled money.Money
	Notes     string
	CreatedBy string
	CreatedAt time.Time
}

// FullySettled reports whether nothing remains outstanding.
func (e Expense) FullySettled() bool { return e.Unsettled.IsZero() }

// =============================================================================
// PAYMENTS - one record per settlement event
// =============================================================================

type Direction string

const (
	// DirectionShopToUser: shop pays a farmer. Never settles expenses.
	DirectionShopToUser Direction = "shop_to_user"
	// DirectionUserToShop: farmer or buyer pays the shop. Runs FIFO
	// allocation against the payer's outstanding expenses first.
	DirectionUserToShop Direction = "user_to_shop"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

type PartyType string

const (
	PartyShop   PartyType = "SHOP"
	PartyFarmer PartyType = "FARMER"
	PartyBuyer  PartyType = "BUYER"
)

// Payment records a single settlement event. Immutable after creation
// except for status transitions.
//
// INVARIANT: AppliedToExpenses + AppliedToBalance == Amount.
type Payment struct {
	ID                string
	ShopID            string
	CounterpartyID    string
	PayerType         PartyType
	PayeeType         PartyType
	Direction         Direction
	Amount            money.Money
	Method            string
	Notes             string
	Status            PaymentStatus
	PaymentDate       time.Time
	AppliedToExpenses money.Money
	AppliedToBalance  money.Money
	FifoResult        FifoResult
	CreatedAt         time.Time
}

// =============================================================================
// FIFO RESULT - computed allocation, embedded in Payment
// =============================================================================

// SettlementLine is one expense touched by a FIFO allocation.
type SettlementLine struct {
	ExpenseID     string      `json:"expense_id"`
	AmountSettled money.Money `json:"amount_settled"`
	ExpenseDate   time.Time   `json:"expense_date"`
	Reason        string      `json:"reason"`
}

// FifoResult is the outcome of allocating a payment across outstanding
// expenses oldest-first. Remaining is what flows to the general balance.
type FifoResult struct {
	Settlements []SettlementLine `json:"settlements"`
	Remaining   money.Money      `json:"remaining"`
}

// TotalSettled sums the allocation lines.
func (r FifoResult) TotalSettled() money.Money {
	total := money.Zero()
	for _, s := range r.Settlements {
		total = total.Add(s.AmountSettled)
	}
	return total
}

// =============================================================================
// LEDGER ENTRIES - credit/debit bookkeeping, parallel to payments
// =============================================================================

type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
)

type EntryCategory string

const (
	CategorySale       EntryCategory = "sale"
	CategoryDeposit    EntryCategory = "deposit"
	CategoryExpense    EntryCategory = "expense"
	CategoryWithdrawal EntryCategory = "withdrawal"
	CategoryLoan       EntryCategory = "loan"
	CategoryOther      EntryCategory = "other"
)

// EntryStatus is a tagged status: an entry is either Active or Deleted
// with the full deletion context. Aggregation only ever sees Active
// entries; deleted ones stay queryable by id for audit.
type EntryStatus struct {
	Deleted        bool
	DeletedAt      *time.Time
	DeletedBy      string
	DeletionReason string
}

// Active is the status of a live entry.
func Active() EntryStatus { return EntryStatus{} }

// Deleted builds the status for a soft-deleted entry.
func Deleted(by, reason string, at time.Time) EntryStatus {
	return EntryStatus{Deleted: true, DeletedAt: &at, DeletedBy: by, DeletionReason: reason}
}

// Entry is a manual or derived credit/debit bookkeeping record.
//
// INVARIANT: NetAmount == Amount - CommissionAmount for credit sales;
// other categories carry zero commission.
type Entry struct {
	ID               string
	ShopID           string
	FarmerID         string
	Type             EntryType
	Category         EntryCategory
	Amount           money.Money
	CommissionAmount money.Money
	NetAmount        money.Money
	Notes            string
	TransactionDate  time.Time
	CreatedBy        string
	Status           EntryStatus
	CreatedAt        time.Time
}

// =============================================================================
// BALANCE SNAPSHOT - append-only audit trail of every balance change
// =============================================================================

// SnapshotType names what kind of event moved the balance.
type SnapshotType string

const (
	SnapshotPayment    SnapshotType = "payment"
	SnapshotExpense    SnapshotType = "expense"
	SnapshotEntry      SnapshotType = "ledger_entry"
	SnapshotAdjustment SnapshotType = "adjustment"
)

// BalanceSnapshot captures one balance mutation. Append-only.
//
// INVARIANT: NewBalance == PreviousBalance + AmountChange, and NewBalance
// equals the user's stored balance at write time.
type BalanceSnapshot struct {
	ID              string
	UserID          string
	PreviousBalance money.Money
	NewBalance      money.Money
	AmountChange    money.Money
	TransactionType SnapshotType
	ReferenceType   string
	ReferenceID     string
	Description     string
	BalanceType     string
	CreatedAt       time.Time
}
