/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Every monetary field is money.Money, which marshals as a fixed
  two-decimal JSON string ("150.00"). Clients never see binary floats.

VALIDATION:
  Validation is done in the domain services, not in DTOs. DTOs are pure
  data carriers; handlers only check structural problems (bad JSON,
  missing ids).

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain types these mirror
*/
package api

import (
	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger"
	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

// =============================================================================
// USERS
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID        string      `json:"id"`
	ShopID    string      `json:"shop_id"`
	Name      string      `json:"name"`
	Role      string      `json:"role"`
	Balance   money.Money `json:"balance"`
	CreatedAt string      `json:"created_at,omitempty"`
}

// CreateUserRequest is the request to register a user.
type CreateUserRequest struct {
	ID     string `json:"id"`
	ShopID string `json:"shop_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// BalanceDTO is the balance summary for one user.
type BalanceDTO struct {
	UserID      string      `json:"user_id"`
	Balance     money.Money `json:"balance"`
	BalanceType string      `json:"balance_type"`
}

// =============================================================================
// EXPENSES
// =============================================================================

// ExpenseDTO represents an expense (advance) in API responses.
type ExpenseDTO struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	ShopID    string      `json:"shop_id"`
	Amount    money.Money `json:"amount"`
	Settled   money.Money `json:"settled"`
	Unsettled money.Money `json:"unsettled"`
	Notes     string      `json:"notes,omitempty"`
	CreatedBy string      `json:"created_by,omitempty"`
	CreatedAt string      `json:"created_at"`
}

// CreateExpenseRequest is the request to record an advance.
type CreateExpenseRequest struct {
	Amount    money.Money `json:"amount"`
	Notes     string      `json:"notes,omitempty"`
	CreatedBy string      `json:"created_by,omitempty"`
}

// =============================================================================
// SETTLEMENTS
// =============================================================================

// SettleRequestDTO is the request body for a settlement.
type SettleRequestDTO struct {
	Direction     string      `json:"direction"`
	Amount        money.Money `json:"amount"`
	Method        string      `json:"method,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	ForceOverride bool        `json:"force_override,omitempty"`
	CreatedBy     string      `json:"created_by,omitempty"`
}

// SettleResponseDTO is returned after a successful settlement.
type SettleResponseDTO struct {
	Payment           PaymentDTO        `json:"payment"`
	NewBalance        money.Money       `json:"new_balance"`
	AppliedToExpenses money.Money       `json:"applied_to_expenses"`
	AppliedToBalance  money.Money       `json:"applied_to_balance"`
	Fifo              ledger.FifoResult `json:"fifo_result"`
}

// PaymentDTO represents a payment in API responses.
type PaymentDTO struct {
	ID                string      `json:"id"`
	ShopID            string      `json:"shop_id"`
	CounterpartyID    string      `json:"counterparty_id"`
	PayerType         string      `json:"payer_type"`
	PayeeType         string      `json:"payee_type"`
	Direction         string      `json:"direction"`
	Amount            money.Money `json:"amount"`
	Method            string      `json:"method,omitempty"`
	Notes             string      `json:"notes,omitempty"`
	Status            string      `json:"status"`
	PaymentDate       string      `json:"payment_date"`
	AppliedToExpenses money.Money `json:"applied_to_expenses"`
	AppliedToBalance  money.Money `json:"applied_to_balance"`
}

// =============================================================================
// LEDGER ENTRIES
// =============================================================================

// EntryDTO represents a ledger entry in API responses.
type EntryDTO struct {
	ID               string      `json:"id"`
	ShopID           string      `json:"shop_id"`
	FarmerID         string      `json:"farmer_id"`
	Type             string      `json:"type"`
	Category         string      `json:"category"`
	Amount           money.Money `json:"amount"`
	CommissionAmount money.Money `json:"commission_amount"`
	NetAmount        money.Money `json:"net_amount"`
	Notes            string      `json:"notes,omitempty"`
	TransactionDate  string      `json:"transaction_date"`
	CreatedBy        string      `json:"created_by,omitempty"`
	IsDeleted        bool        `json:"is_deleted"`
	DeletedAt        string      `json:"deleted_at,omitempty"`
	DeletedBy        string      `json:"deleted_by,omitempty"`
	DeletionReason   string      `json:"deletion_reason,omitempty"`
	CreatedAt        string      `json:"created_at"`
}

// EntryRequest is the create/update payload for a ledger entry.
type EntryRequest struct {
	ShopID          string      `json:"shop_id"`
	FarmerID        string      `json:"farmer_id"`
	Type            string      `json:"type"`
	Category        string      `json:"category"`
	Amount          money.Money `json:"amount"`
	CommissionRate  money.Money `json:"commission_rate,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	TransactionDate string      `json:"transaction_date,omitempty"`
	CreatedBy       string      `json:"created_by,omitempty"`
}

// DeleteEntryRequest carries the soft-delete context.
type DeleteEntryRequest struct {
	DeletedBy string `json:"deleted_by"`
	Reason    string `json:"reason"`
}

// =============================================================================
// SNAPSHOTS, SUMMARIES, AUDIT
// =============================================================================

// SnapshotDTO represents one audit trail row.
type SnapshotDTO struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	PreviousBalance money.Money `json:"previous_balance"`
	NewBalance      money.Money `json:"new_balance"`
	AmountChange    money.Money `json:"amount_change"`
	TransactionType string      `json:"transaction_type"`
	ReferenceType   string      `json:"reference_type,omitempty"`
	ReferenceID     string      `json:"reference_id,omitempty"`
	Description     string      `json:"description,omitempty"`
	BalanceType     string      `json:"balance_type"`
	CreatedAt       string      `json:"created_at"`
}

// TotalsDTO is one reduction of entries.
type TotalsDTO struct {
	Credit     money.Money `json:"total_credit"`
	Debit      money.Money `json:"total_debit"`
	Commission money.Money `json:"total_commission"`
	Balance    money.Money `json:"balance"`
}

// PeriodTotalsDTO is the reduction of one weekly/monthly bucket.
type PeriodTotalsDTO struct {
	Period string `json:"period"`
	TotalsDTO
}

// SummaryDTO is the full summary response.
type SummaryDTO struct {
	Periods []PeriodTotalsDTO `json:"periods,omitempty"`
	Overall TotalsDTO         `json:"overall"`
}

// AuditResultDTO is the reconciliation outcome for one flagged user.
type AuditResultDTO struct {
	UserID          string      `json:"user_id"`
	Balance         money.Money `json:"balance"`
	ExpectedBalance money.Money `json:"expected_balance"`
	Drift           money.Money `json:"drift"`
	Flagged         bool        `json:"flagged"`
}

// AdjustmentRequest is the admin manual-correction payload.
type AdjustmentRequest struct {
	UserID    string      `json:"user_id"`
	Delta     money.Money `json:"delta"`
	Reason    string      `json:"reason"`
	CreatedBy string      `json:"created_by,omitempty"`
}

// AdjustmentResponse reports the balance movement.
type AdjustmentResponse struct {
	UserID          string      `json:"user_id"`
	PreviousBalance money.Money `json:"previous_balance"`
	NewBalance      money.Money `json:"new_balance"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}
