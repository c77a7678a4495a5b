package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vzt/cashflow-engine/api"
	"github.com/vzt/cashflow-engine/forecast"
	"github.com/vzt/cashflow-engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler := api.NewHandler(store.NewMemory())
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw := new(bytes.Buffer)
	_, err = raw.ReadFrom(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	return resp, raw.Bytes()
}

func trainingHistory(n int) []map[string]any {
	history := make([]map[string]any, 0, n)
	issued := forecast.NewDate(2026, 1, 5)
	for i := 0; i < n; i++ {
		txn := issued.AddDays(i * 7)
		history = append(history, map[string]any{
			"customer_id":  "cust-1",
			"amount":       1000 + 100*i,
			"terms_days":   30,
			"txn_date":     txn.String(),
			"payment_date": txn.AddDays(32).String(),
		})
	}
	return history
}

// =============================================================================
// PROJECTION ENDPOINTS
// =============================================================================

func TestCashflowEndpoint(t *testing.T) {
	srv := newTestServer(t)
	today := forecast.Today()

	resp, body := doJSON(t, "POST", srv.URL+"/api/cashflow", map[string]any{
		"days": 14,
		"receivables": []map[string]any{
			{"id": "INV-1", "amount": 1200, "due_date": today.AddDays(3).String()},
		},
		"payables": []map[string]any{
			{"id": "BILL-1", "amount": 500, "due_date": today.AddDays(6).String()},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Days         []map[string]any `json:"days"`
		ProjectedNet decimal.Decimal  `json:"projected_net"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Len(t, out.Days, 15, "inclusive horizon")
	assert.True(t, out.ProjectedNet.Equal(decimal.NewFromInt(700)), "got %s", out.ProjectedNet)
}

func TestCashflowEndpoint_NegativeDays(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, "POST", srv.URL+"/api/cashflow", map[string]any{"days": -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCalendarEndpoint_BalanceContinuity(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, "POST", srv.URL+"/api/cashflow/calendar", map[string]any{
		"start_date":      "2026-03-01",
		"end_date":        "2026-03-10",
		"initial_balance": 1000,
		"receivables": []map[string]any{
			{"id": "INV-1", "amount": 500, "balance": 500, "due_date": "2026-03-04"},
		},
		"custom_flows": []map[string]any{
			{"direction": "outflow", "amount": 200, "date": "2026-03-06", "description": "Rent"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Calendar []struct {
			Date           string          `json:"date"`
			OpeningBalance decimal.Decimal `json:"opening_balance"`
			NetChange      decimal.Decimal `json:"net_change"`
			ClosingBalance decimal.Decimal `json:"closing_balance"`
		} `json:"calendar"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Calendar, 10)

	assert.True(t, out.Calendar[0].OpeningBalance.Equal(decimal.NewFromInt(1000)))
	for i, day := range out.Calendar {
		assert.True(t, day.ClosingBalance.Equal(day.OpeningBalance.Add(day.NetChange)), "day %s", day.Date)
		if i > 0 {
			assert.True(t, day.OpeningBalance.Equal(out.Calendar[i-1].ClosingBalance), "day %s", day.Date)
		}
	}
	// 1000 + 500 (heuristic posts the invoice on 2026-03-09) - 200 rent.
	assert.True(t, out.Calendar[9].ClosingBalance.Equal(decimal.NewFromInt(1300)),
		"got %s", out.Calendar[9].ClosingBalance)
}

func TestCalendarEndpoint_InvalidRange(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, "POST", srv.URL+"/api/cashflow/calendar", map[string]any{
		"start_date": "2026-03-10",
		"end_date":   "2026-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCalendarEndpoint_MergesStoredFlowsAndMetadata(t *testing.T) {
	srv := newTestServer(t)

	// Store a flow and metadata first, then project without carrying
	// either in the body.
	resp, _ := doJSON(t, "POST", srv.URL+"/api/custom-cash-flows", map[string]any{
		"direction": "inflow", "amount": 900, "date": "2026-03-05", "description": "Grant",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, "POST", srv.URL+"/api/invoices/INV-9/metadata", map[string]any{
		"manual_override_date": "2026-03-08",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, "POST", srv.URL+"/api/cashflow/calendar", map[string]any{
		"start_date":      "2026-03-01",
		"end_date":        "2026-03-10",
		"initial_balance": 0,
		"receivables": []map[string]any{
			{"id": "INV-9", "amount": 100, "due_date": "2026-03-02"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Calendar []struct {
			Date    string `json:"date"`
			Inflows []struct {
				ID string `json:"id"`
			} `json:"inflows"`
		} `json:"calendar"`
	}
	require.NoError(t, json.Unmarshal(body, &out))

	var grantDay, overrideDay string
	for _, day := range out.Calendar {
		for _, in := range day.Inflows {
			switch in.ID {
			case "INV-9":
				overrideDay = day.Date
			default:
				grantDay = day.Date
			}
		}
	}
	assert.Equal(t, "2026-03-05", grantDay, "stored custom flow is merged in")
	assert.Equal(t, "2026-03-08", overrideDay, "stored override moves the invoice")
}

// =============================================================================
// PREDICTOR ENDPOINTS
// =============================================================================

func TestPredictorTrainAndStatus(t *testing.T) {
	srv := newTestServer(t)

	// Thin history is refused.
	resp, body := doJSON(t, "POST", srv.URL+"/api/predictor/train", map[string]any{
		"history": trainingHistory(3),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Success bool   `json:"success"`
		Samples int    `json:"samples"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Samples)

	resp, body = doJSON(t, "GET", srv.URL+"/api/predictor/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status struct {
		Trained bool `json:"trained"`
	}
	require.NoError(t, json.Unmarshal(body, &status))
	assert.False(t, status.Trained)

	// Enough history trains.
	resp, body = doJSON(t, "POST", srv.URL+"/api/predictor/train", map[string]any{
		"history": trainingHistory(12),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &result))
	assert.True(t, result.Success, result.Message)
	assert.Equal(t, 12, result.Samples)

	resp, body = doJSON(t, "GET", srv.URL+"/api/predictor/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &status))
	assert.True(t, status.Trained)
}

func TestPredictSingle_UntrainedHeuristic(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, "POST", srv.URL+"/api/predictor/predict", map[string]any{
		"item": map[string]any{"id": "INV-1", "amount": 100, "due_date": "2023-10-01"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Prediction *struct {
			Date string `json:"date"`
		} `json:"prediction"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotNil(t, out.Prediction)
	assert.Equal(t, "2023-10-06", out.Prediction.Date)
}

func TestPredictBatch(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, "POST", srv.URL+"/api/predictor/predict", map[string]any{
		"items": []map[string]any{
			{"id": "a", "amount": 100, "due_date": "2026-03-01"},
			{"id": "b", "amount": 100}, // no usable date
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Predictions map[string]struct {
			Date       string  `json:"date"`
			Confidence float64 `json:"confidence"`
		} `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Predictions, 1)
	assert.Equal(t, "2026-03-06", out.Predictions["a"].Date)
	assert.Equal(t, 0.5, out.Predictions["a"].Confidence)
}

// =============================================================================
// CUSTOM FLOW CRUD
// =============================================================================

func TestCustomFlowCRUD(t *testing.T) {
	srv := newTestServer(t)

	// Create without an ID; the server assigns one.
	resp, body := doJSON(t, "POST", srv.URL+"/api/custom-cash-flows", map[string]any{
		"direction":   "outflow",
		"amount":      750,
		"date":        "2026-04-01",
		"description": "Insurance",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)

	// List contains it.
	resp, body = doJSON(t, "GET", srv.URL+"/api/custom-cash-flows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		CustomFlows []struct {
			ID          string          `json:"id"`
			Amount      decimal.Decimal `json:"amount"`
			Description string          `json:"description"`
		} `json:"custom_flows"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.CustomFlows, 1)
	assert.True(t, list.CustomFlows[0].Amount.Equal(decimal.NewFromInt(750)))

	// Update.
	resp, _ = doJSON(t, "PUT", fmt.Sprintf("%s/api/custom-cash-flows/%s", srv.URL, created.ID), map[string]any{
		"direction": "outflow", "amount": 800, "date": "2026-04-01", "description": "Insurance",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, "GET", fmt.Sprintf("%s/api/custom-cash-flows/%s", srv.URL, created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		Amount decimal.Decimal `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(800)))

	// Delete, then 404.
	resp, _ = doJSON(t, "DELETE", fmt.Sprintf("%s/api/custom-cash-flows/%s", srv.URL, created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, "GET", fmt.Sprintf("%s/api/custom-cash-flows/%s", srv.URL, created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateCustomFlow_Validation(t *testing.T) {
	srv := newTestServer(t)

	cases := []map[string]any{
		{"direction": "sideways", "amount": 100, "date": "2026-04-01"},
		{"direction": "inflow", "amount": 0, "date": "2026-04-01"},
		{"direction": "inflow", "amount": 100}, // one-time flow without a date
		{"direction": "inflow", "amount": 100, "is_recurring": true, "recurrence_type": "hourly", "recurrence_interval": 1, "recurrence_start": "2026-04-01"},
	}
	for i, payload := range cases {
		resp, _ := doJSON(t, "POST", srv.URL+"/api/custom-cash-flows", payload)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "case %d", i)
	}
}

// =============================================================================
// INVOICE METADATA
// =============================================================================

func TestInvoiceMetadataRoundtrip(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, "POST", srv.URL+"/api/invoices/INV-1/metadata", map[string]any{
		"portal_submission_date": "2026-03-03",
		"portal_name":            "Coupa",
		"rep":                    "Dana",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, "GET", srv.URL+"/api/invoices/INV-1/metadata", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var meta struct {
		InvoiceID            string `json:"invoice_id"`
		PortalSubmissionDate string `json:"portal_submission_date"`
		PortalName           string `json:"portal_name"`
	}
	require.NoError(t, json.Unmarshal(body, &meta))
	assert.Equal(t, "INV-1", meta.InvoiceID)
	assert.Equal(t, "2026-03-03", meta.PortalSubmissionDate)
	assert.Equal(t, "Coupa", meta.PortalName)
}

// =============================================================================
// LIQUIDITY
// =============================================================================

func TestLiquidityEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, "POST", srv.URL+"/api/liquidity", map[string]any{
		"bank_balance": 500,
		"receivables": []map[string]any{
			{"id": "INV-1", "amount": 600, "balance": 600},
			{"id": "INV-2", "amount": 900, "balance": 400},
		},
		"payables": []map[string]any{
			{"id": "BILL-1", "amount": 200, "balance": 200},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Cash             decimal.Decimal  `json:"cash"`
		TotalReceivables decimal.Decimal  `json:"total_receivables"`
		TotalPayables    decimal.Decimal  `json:"total_payables"`
		QuickRatio       *decimal.Decimal `json:"quick_ratio"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.TotalReceivables.Equal(decimal.NewFromInt(1000)), "outstanding balances, not amounts")
	require.NotNil(t, out.QuickRatio)
	assert.True(t, out.QuickRatio.Equal(decimal.NewFromFloat(7.5)), "got %s", out.QuickRatio)
}

func TestLiquidityEndpoint_NullRatioWithoutPayables(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, "POST", srv.URL+"/api/liquidity", map[string]any{
		"bank_balance": 500,
		"receivables":  []map[string]any{{"id": "INV-1", "amount": 600}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		QuickRatio *decimal.Decimal `json:"quick_ratio"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Nil(t, out.QuickRatio, "quick ratio is undefined with zero payables")
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarioLoad(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, "POST", srv.URL+"/api/scenarios/load", map[string]any{
		"scenario_id": "steady-state",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = doJSON(t, "GET", srv.URL+"/api/custom-cash-flows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		CustomFlows []json.RawMessage `json:"custom_flows"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.NotEmpty(t, list.CustomFlows, "scenario seeds flows")

	resp, _ = doJSON(t, "POST", srv.URL+"/api/scenarios/load", map[string]any{
		"scenario_id": "no-such-scenario",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
