/*
handlers.go - HTTP API handlers for the settlement engine

PURPOSE:
  Exposes the settlement and ledger engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Users:
    GET    /api/users                   List users
    POST   /api/users                   Register user
    GET    /api/users/{id}/balance      Current balance
    GET    /api/users/{id}/snapshots    Append-only audit trail
    GET    /api/users/{id}/payments     Payment history

  Expenses:
    POST   /api/users/{id}/expenses     Record an advance
    GET    /api/users/{id}/expenses     Outstanding advances

  Settlements:
    POST   /api/users/{id}/settlements  Run one settlement

  Entries:
    POST   /api/entries                 Create ledger entry
    GET    /api/entries/{id}            Get entry (includes deleted)
    PUT    /api/entries/{id}            Edit entry
    DELETE /api/entries/{id}            Soft delete with reason

  Reporting:
    GET    /api/summary                 Period summaries (cached)
    GET    /api/audit                   Drift check across a shop

  Admin:
    POST   /api/admin/adjustments       Manual balance correction

  Scenarios:
    GET    /api/scenarios               List demo scenarios
    POST   /api/scenarios/load          Load a demo scenario

ERROR HANDLING:
  Domain errors map to HTTP status via the ledger error helpers:
  - 400: invalid amounts, blocked settlements, malformed input
  - 404: unknown user/expense/entry
  - 409: concurrent modification (retryable), deleted entry
  - 500: persistence failures

SECURITY NOTE:
  Currently NO authentication or authorization. Identity and auth are
  external collaborators; created_by fields are taken on faith.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger/errors.go: The taxonomy mapped to statuses here
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       ledger.TxStore
	Coordinator *ledger.Coordinator
	Entries     *ledger.EntryService
	Aggregator  *ledger.Aggregator
	Auditor     *ledger.Auditor
	Summaries   *SummaryCache
	Log         zerolog.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler wires the domain services around a single store. All
// balance-mutating services share one per-user lock table.
func NewHandler(store ledger.TxStore, log zerolog.Logger) *Handler {
	locks := ledger.NewUserLocks()
	return &Handler{
		Store:       store,
		Coordinator: ledger.NewCoordinator(store, locks),
		Entries:     ledger.NewEntryService(store, locks),
		Aggregator:  ledger.NewAggregator(store),
		Auditor:     ledger.NewAuditor(store),
		Summaries:   NewSummaryCache(30 * time.Second),
		Log:         log,
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users, optionally filtered by shop_id.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context(), r.URL.Query().Get("shop_id"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser registers a new user with a zero balance.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.ShopID == "" {
		h.writeError(w, http.StatusBadRequest, "id and shop_id are required", nil)
		return
	}

	role := ledger.Role(req.Role)
	switch role {
	case ledger.RoleFarmer, ledger.RoleBuyer, ledger.RoleOwner:
	default:
		h.writeError(w, http.StatusBadRequest, "role must be farmer, buyer or owner", nil)
		return
	}

	u := ledger.User{
		ID:        req.ID,
		ShopID:    req.ShopID,
		Name:      req.Name,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveUser(r.Context(), u); err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

// GetBalance returns the current balance for a user.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	u, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	if u == nil {
		h.writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		UserID:      u.ID,
		Balance:     u.Balance,
		BalanceType: u.BalanceType(),
	})
}

// GetSnapshots returns the append-only audit trail for a user.
func (h *Handler) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snaps, err := h.Store.SnapshotsByUser(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to get snapshots", err)
		return
	}

	dtos := make([]SnapshotDTO, len(snaps))
	for i, s := range snaps {
		dtos[i] = SnapshotDTO{
			ID:              s.ID,
			UserID:          s.UserID,
			PreviousBalance: s.PreviousBalance,
			NewBalance:      s.NewBalance,
			AmountChange:    s.AmountChange,
			TransactionType: string(s.TransactionType),
			ReferenceType:   s.ReferenceType,
			ReferenceID:     s.ReferenceID,
			Description:     s.Description,
			BalanceType:     s.BalanceType,
			CreatedAt:       s.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPayments returns a user's payment history.
func (h *Handler) GetPayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	payments, err := h.Store.PaymentsByUser(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to get payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// CreateExpense records an advance against a user.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	e, err := h.Coordinator.RecordExpense(r.Context(), userID, req.Amount, req.Notes, req.CreatedBy)
	if err != nil {
		h.writeDomainError(w, "Failed to record expense", err)
		return
	}

	h.Log.Info().
		Str("user_id", userID).
		Str("expense_id", e.ID).
		Str("amount", e.Amount.String()).
		Msg("expense recorded")

	writeJSON(w, http.StatusCreated, toExpenseDTO(*e))
}

// ListExpenses returns a user's outstanding advances, oldest first.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	expenses, err := h.Store.OutstandingExpenses(r.Context(), userID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list expenses", err)
		return
	}

	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SETTLEMENT HANDLER
// =============================================================================

// Settle runs one settlement against a user.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req SettleRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Coordinator.Settle(r.Context(), ledger.SettleRequest{
		UserID:        userID,
		Direction:     ledger.Direction(req.Direction),
		Amount:        req.Amount,
		Method:        req.Method,
		Notes:         req.Notes,
		ForceOverride: req.ForceOverride,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		h.writeDomainError(w, "Settlement failed", err)
		return
	}

	h.Log.Info().
		Str("user_id", userID).
		Str("payment_id", result.Payment.ID).
		Str("direction", string(result.Payment.Direction)).
		Str("amount", result.Payment.Amount.String()).
		Str("applied_to_expenses", result.Breakdown.AppliedToExpenses.String()).
		Str("new_balance", result.NewBalance.String()).
		Msg("settlement completed")

	writeJSON(w, http.StatusCreated, SettleResponseDTO{
		Payment:           toPaymentDTO(result.Payment),
		NewBalance:        result.NewBalance,
		AppliedToExpenses: result.Breakdown.AppliedToExpenses,
		AppliedToBalance:  result.Breakdown.AppliedToBalance,
		Fifo:              result.Breakdown.Fifo,
	})
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// CreateEntry creates a ledger entry and applies its balance effect.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := toEntryInput(req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction_date (use RFC3339 or YYYY-MM-DD)", err)
		return
	}

	e, err := h.Entries.Create(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to create entry", err)
		return
	}

	h.Summaries.Invalidate()
	writeJSON(w, http.StatusCreated, toEntryDTO(*e))
}

// GetEntry returns an entry by id, deleted or not.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.Entries.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(*e))
}

// UpdateEntry edits an entry; only the balance difference is applied.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := toEntryInput(req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction_date (use RFC3339 or YYYY-MM-DD)", err)
		return
	}

	e, err := h.Entries.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeDomainError(w, "Failed to update entry", err)
		return
	}

	h.Summaries.Invalidate()
	writeJSON(w, http.StatusOK, toEntryDTO(*e))
}

// DeleteEntry soft-deletes an entry with its deletion context.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	var req DeleteEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Reason == "" {
		h.writeError(w, http.StatusBadRequest, "reason is required", nil)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Entries.SoftDelete(r.Context(), id, req.DeletedBy, req.Reason); err != nil {
		h.writeDomainError(w, "Failed to delete entry", err)
		return
	}

	h.Summaries.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// =============================================================================
// SUMMARY AND AUDIT HANDLERS
// =============================================================================

// GetSummary returns period totals for a shop's active entries.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	q := ledger.SummaryQuery{
		ShopID:   r.URL.Query().Get("shop_id"),
		Period:   ledger.PeriodKind(r.URL.Query().Get("period")),
		FarmerID: r.URL.Query().Get("farmer_id"),
		Category: ledger.EntryCategory(r.URL.Query().Get("category")),
	}
	if q.ShopID == "" {
		h.writeError(w, http.StatusBadRequest, "shop_id is required", nil)
		return
	}
	switch q.Period {
	case ledger.PeriodNone, ledger.PeriodWeekly, ledger.PeriodMonthly:
	default:
		h.writeError(w, http.StatusBadRequest, "period must be weekly or monthly", nil)
		return
	}

	var err error
	if q.From, err = parseDateParam(r.URL.Query().Get("from")); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	if q.To, err = parseDateParam(r.URL.Query().Get("to")); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}

	summary, err := h.Summaries.Get(r.Context(), q, h.Aggregator)
	if err != nil {
		h.writeDomainError(w, "Failed to build summary", err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// GetAudit runs the reconciliation check across a shop and returns the
// flagged users.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	shopID := r.URL.Query().Get("shop_id")
	if shopID == "" {
		h.writeError(w, http.StatusBadRequest, "shop_id is required", nil)
		return
	}

	flagged, err := h.Auditor.CheckAll(r.Context(), shopID)
	if err != nil {
		h.writeDomainError(w, "Audit failed", err)
		return
	}

	dtos := make([]AuditResultDTO, len(flagged))
	for i, f := range flagged {
		dtos[i] = AuditResultDTO{
			UserID:          f.UserID,
			Balance:         f.Balance,
			ExpectedBalance: f.ExpectedBalance,
			Drift:           f.Drift,
			Flagged:         f.Flagged,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// CreateAdjustment applies a manual balance correction.
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" || req.Reason == "" {
		h.writeError(w, http.StatusBadRequest, "user_id and reason are required", nil)
		return
	}

	change, err := h.Coordinator.Adjust(r.Context(), req.UserID, req.Delta, req.Reason, req.CreatedBy)
	if err != nil {
		h.writeDomainError(w, "Adjustment failed", err)
		return
	}

	h.Log.Info().
		Str("user_id", req.UserID).
		Str("delta", req.Delta.String()).
		Str("reason", req.Reason).
		Msg("manual adjustment applied")

	writeJSON(w, http.StatusCreated, AdjustmentResponse{
		UserID:          req.UserID,
		PreviousBalance: change.PreviousBalance,
		NewBalance:      change.NewBalance,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func toUserDTO(u ledger.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		ShopID:    u.ShopID,
		Name:      u.Name,
		Role:      string(u.Role),
		Balance:   u.Balance,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

func toExpenseDTO(e ledger.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:        e.ID,
		UserID:    e.UserID,
		ShopID:    e.ShopID,
		Amount:    e.Amount,
		Settled:   e.Settled,
		Unsettled: e.Unsettled,
		Notes:     e.Notes,
		CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentDTO(p ledger.Payment) PaymentDTO {
	return PaymentDTO{
		ID:                p.ID,
		ShopID:            p.ShopID,
		CounterpartyID:    p.CounterpartyID,
		PayerType:         string(p.PayerType),
		PayeeType:         string(p.PayeeType),
		Direction:         string(p.Direction),
		Amount:            p.Amount,
		Method:            p.Method,
		Notes:             p.Notes,
		Status:            string(p.Status),
		PaymentDate:       p.PaymentDate.Format(time.RFC3339),
		AppliedToExpenses: p.AppliedToExpenses,
		AppliedToBalance:  p.AppliedToBalance,
	}
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:               e.ID,
		ShopID:           e.ShopID,
		FarmerID:         e.FarmerID,
		Type:             string(e.Type),
		Category:         string(e.Category),
		Amount:           e.Amount,
		CommissionAmount: e.CommissionAmount,
		NetAmount:        e.NetAmount,
		Notes:            e.Notes,
		TransactionDate:  e.TransactionDate.Format(time.RFC3339),
		CreatedBy:        e.CreatedBy,
		IsDeleted:        e.Status.Deleted,
		DeletedBy:        e.Status.DeletedBy,
		DeletionReason:   e.Status.DeletionReason,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
	}
	if e.Status.DeletedAt != nil {
		dto.DeletedAt = e.Status.DeletedAt.Format(time.RFC3339)
	}
	return dto
}

func toEntryInput(req EntryRequest) (ledger.EntryInput, error) {
	in := ledger.EntryInput{
		ShopID:         req.ShopID,
		FarmerID:       req.FarmerID,
		Type:           ledger.EntryType(req.Type),
		Category:       ledger.EntryCategory(req.Category),
		Amount:         req.Amount,
		CommissionRate: req.CommissionRate,
		Notes:          req.Notes,
		CreatedBy:      req.CreatedBy,
	}
	if req.TransactionDate != "" {
		t, err := parseDate(req.TransactionDate)
		if err != nil {
			return in, err
		}
		in.TransactionDate = t
	}
	return in, nil
}

func toSummaryDTO(s *ledger.Summary) SummaryDTO {
	dto := SummaryDTO{Overall: toTotalsDTO(s.Overall)}
	for _, p := range s.Period {
		dto.Periods = append(dto.Periods, PeriodTotalsDTO{
			Period:    p.PeriodLabel,
			TotalsDTO: toTotalsDTO(p.Totals),
		})
	}
	return dto
}

func toTotalsDTO(t ledger.Totals) TotalsDTO {
	return TotalsDTO{
		Credit:     t.Credit,
		Debit:      t.Debit,
		Commission: t.Commission,
		Balance:    t.Balance,
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func parseDateParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps ledger errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case ledger.IsClientError(err):
		status = http.StatusBadRequest
	case ledger.IsNotFound(err):
		status = http.StatusNotFound
	case ledger.IsRetryable(err), errors.Is(err, ledger.ErrEntryDeleted):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.Log.Error().Err(err).Msg(message)
	}

	writeJSON(w, status, ErrorResponse{
		Error:     message,
		Details:   err.Error(),
		Retryable: ledger.IsRetryable(err),
	})
}
