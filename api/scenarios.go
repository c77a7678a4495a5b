/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario seeds custom flows and
	invoice metadata, and optionally trains the predictor on a settled
	invoice history.

AVAILABLE SCENARIOS:

	steady-state:   Recurring payroll/rent outflows and a retainer inflow
	portal-heavy:   Invoices tracked through customer payment portals
	trained-model:  Settled invoice history that trains the predictor

HOW SCENARIOS WORK:
 1. Reset the store (clear all flows and metadata)
 2. Seed custom flows and invoice metadata
 3. Train the predictor when the scenario carries history

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "steady-state"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: writeJSON/writeError helpers
  - server.go: Route wiring
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vzt/cashflow-engine/forecast"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "steady-state",
		Name:        "Steady State",
		Description: "Recurring payroll and rent outflows plus a monthly retainer inflow",
	},
	{
		ID:          "portal-heavy",
		Name:        "Portal Heavy",
		Description: "Invoices tracked through customer payment portals with submission dates",
	},
	{
		ID:          "trained-model",
		Name:        "Trained Model",
		Description: "Settled invoice history that trains the payment predictor",
	},
}

// ListScenarios returns available scenarios and the currently loaded one.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": scenarios,
		"current":   current,
	})
}

// LoadScenario resets the store and loads the requested scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var seed scenarioSeed
	switch req.ScenarioID {
	case "steady-state":
		seed = steadyStateScenario()
	case "portal-heavy":
		seed = portalHeavyScenario()
	case "trained-model":
		seed = trainedModelScenario()
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	for _, flow := range seed.flows {
		if err := h.Store.SaveCustomFlow(ctx, flow); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed custom flows", err)
			return
		}
	}
	for _, meta := range seed.metadata {
		if err := h.Store.SaveInvoiceMetadata(ctx, meta); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed invoice metadata", err)
			return
		}
	}

	trained := false
	if len(seed.history) > 0 {
		result := h.Predictor.Train(seed.history)
		trained = result.Success
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": req.ScenarioID,
		"flows":    len(seed.flows),
		"metadata": len(seed.metadata),
		"trained":  trained,
	})
}

// ResetStore clears all stored data.
// POST /api/scenarios/reset
func (h *Handler) ResetStore(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

// =============================================================================
// SCENARIO DATA
// =============================================================================

type scenarioSeed struct {
	flows    []forecast.CustomFlow
	metadata []forecast.ItemMetadata
	history  []forecast.HistoricalItem
}

func mustDate(s string) forecast.Date {
	d, ok := forecast.ParseDate(s)
	if !ok {
		panic("bad scenario date: " + s)
	}
	return d
}

func steadyStateScenario() scenarioSeed {
	anchor := forecast.Today()
	return scenarioSeed{
		flows: []forecast.CustomFlow{
			{
				ID:          "demo-payroll",
				Direction:   forecast.FlowOutflow,
				Amount:      decimal.NewFromInt(42000),
				Description: "Payroll",
				Recurring:   true,
				Recurrence: forecast.RecurrenceRule{
					Type:     forecast.RecurWeekly,
					Interval: 2,
					Start:    anchor,
				},
			},
			{
				ID:          "demo-rent",
				Direction:   forecast.FlowOutflow,
				Amount:      decimal.NewFromInt(8500),
				Description: "Office rent",
				Recurring:   true,
				Recurrence: forecast.RecurrenceRule{
					Type:     forecast.RecurMonthly,
					Interval: 1,
					Start:    anchor,
				},
			},
			{
				ID:          "demo-retainer",
				Direction:   forecast.FlowInflow,
				Amount:      decimal.NewFromInt(15000),
				Description: "Support retainer",
				Recurring:   true,
				Recurrence: forecast.RecurrenceRule{
					Type:     forecast.RecurMonthly,
					Interval: 1,
					Start:    anchor.AddDays(3),
				},
			},
			{
				ID:          "demo-tax",
				Direction:   forecast.FlowOutflow,
				Amount:      decimal.NewFromInt(12750),
				Description: "Quarterly tax payment",
				Date:        anchor.AddDays(21),
			},
		},
	}
}

func portalHeavyScenario() scenarioSeed {
	anchor := forecast.Today()
	return scenarioSeed{
		flows: []forecast.CustomFlow{
			{
				ID:          "demo-saas",
				Direction:   forecast.FlowOutflow,
				Amount:      decimal.NewFromInt(1900),
				Description: "SaaS subscriptions",
				Recurring:   true,
				Recurrence: forecast.RecurrenceRule{
					Type:     forecast.RecurMonthly,
					Interval: 1,
					Start:    anchor,
				},
			},
		},
		metadata: []forecast.ItemMetadata{
			{
				InvoiceID:            "INV-2001",
				PortalSubmissionDate: anchor.AddDays(-10),
				PortalName:           "Coupa",
				Rep:                  "Dana",
			},
			{
				InvoiceID:            "INV-2002",
				PortalSubmissionDate: anchor.AddDays(-4),
				PortalName:           "Ariba",
				Rep:                  "Dana",
			},
			{
				InvoiceID:          "INV-2003",
				ManualOverrideDate: anchor.AddDays(14),
				Rep:                "Miguel",
			},
		},
	}
}

func trainedModelScenario() scenarioSeed {
	// Twelve settled invoices, paid between 28 and 48 days after issue.
	history := make([]forecast.HistoricalItem, 0, 12)
	for i := 0; i < 12; i++ {
		issued := mustDate("2026-01-05").AddDays(i * 9)
		history = append(history, forecast.HistoricalItem{
			CustomerID:  fmt.Sprintf("cust-%d", i%4),
			Amount:      decimal.NewFromInt(int64(2500 + 450*i)),
			TermsDays:   30,
			TxnDate:     issued,
			PaymentDate: issued.AddDays(28 + (i*2)%21),
		})
	}
	return scenarioSeed{history: history}
}
