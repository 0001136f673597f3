/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the store with small, recognizable datasets for demos and manual
  testing. Each scenario is built through the real domain services, so
  every seeded balance has its full snapshot trail and the audit check
  passes on fresh data.

SCENARIOS:
  harvest-season  Two farmers with advances, one partial FIFO settlement
  mixed-parties   A farmer and a buyer with sales entries and commission

SEE ALSO:
  - handlers.go: ListScenarios/LoadScenario endpoints
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/iamramakanthreddyk/kisaan-center-sub000/ledger"
	"github.com/iamramakanthreddyk/kisaan-center-sub000/money"
)

var scenarios = []ScenarioDTO{
	{
		ID:          "harvest-season",
		Name:        "Harvest Season",
		Description: "Two farmers with outstanding advances; one pays back part of the oldest debt",
	},
	{
		ID:          "mixed-parties",
		Name:        "Mixed Parties",
		Description: "A farmer selling on commission and a buyer taking goods on credit",
	},
}

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": scenarios,
		"current":   h.currentScenario,
	})
}

// LoadScenario seeds the store with the selected scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "harvest-season":
		err = h.loadHarvestSeason(r.Context())
	case "mixed-parties":
		err = h.loadMixedParties(r.Context())
	default:
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.Summaries.Invalidate()
	h.Log.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func (h *Handler) loadHarvestSeason(ctx context.Context) error {
	users := []ledger.User{
		{ID: "farmer-ravi", ShopID: "shop-1", Name: "Ravi", Role: ledger.RoleFarmer},
		{ID: "farmer-lakshmi", ShopID: "shop-1", Name: "Lakshmi", Role: ledger.RoleFarmer},
	}
	for _, u := range users {
		if err := h.Store.SaveUser(ctx, u); err != nil {
			return err
		}
	}

	// Ravi took two advances; the older one gets settled first.
	if _, err := h.Coordinator.RecordExpense(ctx, "farmer-ravi", money.MustParse("100.00"), "seed advance", "demo"); err != nil {
		return err
	}
	if _, err := h.Coordinator.RecordExpense(ctx, "farmer-ravi", money.MustParse("50.00"), "fertilizer advance", "demo"); err != nil {
		return err
	}
	if _, err := h.Coordinator.RecordExpense(ctx, "farmer-lakshmi", money.MustParse("200.00"), "equipment advance", "demo"); err != nil {
		return err
	}

	// Partial repayment: clears the 100 fully and 20 of the 50.
	_, err := h.Coordinator.Settle(ctx, ledger.SettleRequest{
		UserID:    "farmer-ravi",
		Direction: ledger.DirectionUserToShop,
		Amount:    money.MustParse("120.00"),
		Method:    "cash",
		Notes:     "harvest repayment",
	})
	return err
}

func (h *Handler) loadMixedParties(ctx context.Context) error {
	users := []ledger.User{
		{ID: "farmer-gopal", ShopID: "shop-2", Name: "Gopal", Role: ledger.RoleFarmer},
		{ID: "buyer-anand", ShopID: "shop-2", Name: "Anand Traders", Role: ledger.RoleBuyer},
	}
	for _, u := range users {
		if err := h.Store.SaveUser(ctx, u); err != nil {
			return err
		}
	}

	// Gopal sells through the shop at 5% commission.
	if _, err := h.Entries.Create(ctx, ledger.EntryInput{
		ShopID:         "shop-2",
		FarmerID:       "farmer-gopal",
		Type:           ledger.EntryCredit,
		Category:       ledger.CategorySale,
		Amount:         money.MustParse("1000.00"),
		CommissionRate: money.MustParse("5.00"),
		Notes:          "onion sale",
		CreatedBy:      "demo",
	}); err != nil {
		return err
	}

	// Anand takes goods on credit, then pays part of it back.
	if _, err := h.Coordinator.RecordExpense(ctx, "buyer-anand", money.MustParse("300.00"), "goods on credit", "demo"); err != nil {
		return err
	}
	_, err := h.Coordinator.Settle(ctx, ledger.SettleRequest{
		UserID:    "buyer-anand",
		Direction: ledger.DirectionUserToShop,
		Amount:    money.MustParse("150.00"),
		Method:    "upi",
		Notes:     "partial credit repayment",
	})
	return err
}
