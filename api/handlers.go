/*
handlers.go - HTTP API handlers for the cash flow forecasting engine

PURPOSE:
  Exposes the forecasting engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Projections:
    POST   /api/cashflow                 Day-change projection over N days
    POST   /api/cashflow/calendar        Daily calendar with running balance

  Predictor:
    POST   /api/predictor/train          Fit the payment predictor
    GET    /api/predictor/status         Training diagnostics
    POST   /api/predictor/predict        Predict single item or batch

  Custom flows:
    GET    /api/custom-cash-flows        List stored flows
    POST   /api/custom-cash-flows        Create flow
    GET    /api/custom-cash-flows/{id}   Get flow
    PUT    /api/custom-cash-flows/{id}   Update flow
    DELETE /api/custom-cash-flows/{id}   Delete flow

  Invoice metadata:
    GET    /api/invoices/{id}/metadata   Get metadata for an invoice
    POST   /api/invoices/{id}/metadata   Upsert metadata

  Liquidity:
    POST   /api/liquidity                Cash / AR / AP snapshot

  Scenarios:
    GET    /api/scenarios                List demo scenarios
    POST   /api/scenarios/load           Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: custom flow and metadata persistence
  - Predictor: the shared payment predictor (trained via the API)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (projector, calendar, predictor)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Contract violations (bad window, uncoercible amounts, bad JSON)
  - 404: Resource not found
  - 500: Internal errors
  Data-quality problems in records never error; the engine skips them.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario data
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vzt/cashflow-engine/forecast"
	"github.com/vzt/cashflow-engine/store"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     store.Store
	Predictor *forecast.PaymentPredictor

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(st store.Store) *Handler {
	return &Handler{
		Store:     st,
		Predictor: forecast.NewPaymentPredictor(),
	}
}

// =============================================================================
// PROJECTION HANDLERS
// =============================================================================

// Cashflow returns the day-change projection over the requested horizon.
// POST /api/cashflow
func (h *Handler) Cashflow(w http.ResponseWriter, r *http.Request) {
	var req CashflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	projector := forecast.NewCashFlowProjector(
		toReceivables(req.Receivables),
		toPayables(req.Payables),
		h.Predictor,
	)

	days, err := projector.CalculateProjection(req.Days)
	if err != nil {
		writeEngineError(w, "Projection failed", err)
		return
	}

	net := decimal.Zero
	for _, d := range days {
		net = net.Add(d.NetChange)
	}

	writeJSON(w, http.StatusOK, CashflowResponse{
		Days:         toDayChangeDTOs(days),
		ProjectedNet: net,
	})
}

// CashflowCalendar returns the full daily calendar. Custom flows and
// invoice metadata stored on the server are merged with anything carried
// in the request body.
// POST /api/cashflow/calendar
func (h *Handler) CashflowCalendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, ok := forecast.ParseDate(req.StartDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", nil)
		return
	}
	end, ok := forecast.ParseDate(req.EndDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", nil)
		return
	}

	flows, err := h.Store.ListCustomFlows(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load custom flows", err)
		return
	}
	for _, dto := range req.CustomFlows {
		flows = append(flows, toCustomFlow(dto))
	}

	metadata, err := h.Store.ListInvoiceMetadata(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load invoice metadata", err)
		return
	}
	// Body metadata appended last so it wins over stored records.
	for _, dto := range req.Metadata {
		metadata = append(metadata, toMetadata(dto))
	}

	opts := forecast.ProjectionOptions{
		ShowProjectedInflows:  boolOrDefault(req.ShowProjectedInflows, true),
		ShowProjectedOutflows: boolOrDefault(req.ShowProjectedOutflows, true),
		ShowCustomInflows:     boolOrDefault(req.ShowCustomInflows, true),
		ShowCustomOutflows:    boolOrDefault(req.ShowCustomOutflows, true),
	}

	calendar := forecast.NewCashFlowCalendar(
		toReceivables(req.Receivables),
		toPayables(req.Payables),
		flows,
		h.Predictor,
		metadata,
	)

	buckets, err := calendar.CalculateDailyProjection(start, end, req.InitialBalance, opts)
	if err != nil {
		writeEngineError(w, "Calendar projection failed", err)
		return
	}

	writeJSON(w, http.StatusOK, CalendarResponse{
		StartDate: start.String(),
		EndDate:   end.String(),
		Calendar:  toDailyBucketDTOs(buckets),
	})
}

// =============================================================================
// PREDICTOR HANDLERS
// =============================================================================

// TrainPredictor fits the shared predictor from settled invoices.
// POST /api/predictor/train
func (h *Handler) TrainPredictor(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result := h.Predictor.Train(toHistoricalItems(req.History))
	writeJSON(w, http.StatusOK, toTrainResultDTO(result))
}

// PredictorStatus returns the current training diagnostics.
// GET /api/predictor/status
func (h *Handler) PredictorStatus(w http.ResponseWriter, r *http.Request) {
	status := h.Predictor.Status()
	dto := PredictorStatusDTO{
		Trained: status.Trained,
		Samples: status.Samples,
		Score:   status.Score,
	}
	if !status.TrainedAt.IsZero() {
		dto.TrainedAt = status.TrainedAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, dto)
}

// Predict predicts payment dates for a single item or a batch.
// POST /api/predictor/predict
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Item != nil {
		date, ok := h.Predictor.PredictExpectedDate(toOpenItem(*req.Item))
		if !ok {
			// No usable date at all; explicit null, not an error.
			writeJSON(w, http.StatusOK, map[string]any{"prediction": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"prediction": map[string]any{"date": date.String()},
		})
		return
	}

	items := make([]forecast.OpenItem, len(req.Items))
	for i, dto := range req.Items {
		items[i] = toOpenItem(dto)
	}
	predictions := h.Predictor.PredictMultiple(items)

	dtos := make(map[string]PredictionDTO, len(predictions))
	for key, pred := range predictions {
		dtos[key] = PredictionDTO{
			Date:       pred.Date.String(),
			Confidence: pred.Confidence,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": dtos})
}

// =============================================================================
// CUSTOM FLOW HANDLERS
// =============================================================================

// ListCustomFlows returns all stored custom flows.
// GET /api/custom-cash-flows
func (h *Handler) ListCustomFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := h.Store.ListCustomFlows(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list custom flows", err)
		return
	}

	dtos := make([]CustomFlowDTO, len(flows))
	for i, f := range flows {
		dtos[i] = toCustomFlowDTO(f)
	}
	writeJSON(w, http.StatusOK, map[string]any{"custom_flows": dtos})
}

// CreateCustomFlow stores a new custom flow.
// POST /api/custom-cash-flows
func (h *Handler) CreateCustomFlow(w http.ResponseWriter, r *http.Request) {
	var dto CustomFlowDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	flow := toCustomFlow(dto)
	if msg := validateCustomFlow(flow); msg != "" {
		writeError(w, http.StatusBadRequest, msg, nil)
		return
	}
	if flow.ID == "" {
		flow.ID = uuid.NewString()
	}

	if err := h.Store.SaveCustomFlow(r.Context(), flow); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save custom flow", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomFlowDTO(flow))
}

// GetCustomFlow returns a single stored flow.
// GET /api/custom-cash-flows/{id}
func (h *Handler) GetCustomFlow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	flow, err := h.Store.GetCustomFlow(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get custom flow", err)
		return
	}
	if flow == nil {
		writeError(w, http.StatusNotFound, "Custom flow not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toCustomFlowDTO(*flow))
}

// UpdateCustomFlow replaces a stored flow.
// PUT /api/custom-cash-flows/{id}
func (h *Handler) UpdateCustomFlow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	existing, err := h.Store.GetCustomFlow(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get custom flow", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Custom flow not found", nil)
		return
	}

	var dto CustomFlowDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	flow := toCustomFlow(dto)
	flow.ID = id // path wins over body
	if msg := validateCustomFlow(flow); msg != "" {
		writeError(w, http.StatusBadRequest, msg, nil)
		return
	}

	if err := h.Store.SaveCustomFlow(ctx, flow); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update custom flow", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomFlowDTO(flow))
}

// DeleteCustomFlow removes a stored flow.
// DELETE /api/custom-cash-flows/{id}
func (h *Handler) DeleteCustomFlow(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteCustomFlow(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete custom flow", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// validateCustomFlow checks the fields that make a flow usable. Returns
// an empty string when the flow is acceptable.
func validateCustomFlow(flow forecast.CustomFlow) string {
	if flow.Direction != forecast.FlowInflow && flow.Direction != forecast.FlowOutflow {
		return "Direction must be \"inflow\" or \"outflow\""
	}
	if !flow.Amount.IsPositive() {
		return "Amount must be positive"
	}
	if flow.Recurring {
		switch flow.Recurrence.Type {
		case forecast.RecurWeekly, forecast.RecurMonthly, forecast.RecurCustomDays:
		default:
			return "Recurrence type must be weekly, monthly or custom_days"
		}
		if flow.Recurrence.Interval < 1 {
			return "Recurrence interval must be at least 1"
		}
		if flow.Recurrence.Start.IsZero() {
			return "Recurring flows need a recurrence_start date"
		}
	} else if flow.Date.IsZero() {
		return "One-time flows need a date"
	}
	return ""
}

// =============================================================================
// INVOICE METADATA HANDLERS
// =============================================================================

// GetInvoiceMetadata returns stored metadata for an invoice.
// GET /api/invoices/{id}/metadata
func (h *Handler) GetInvoiceMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	meta, err := h.Store.GetInvoiceMetadata(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get invoice metadata", err)
		return
	}
	if meta == nil {
		// An invoice without metadata is normal; return the empty record.
		writeJSON(w, http.StatusOK, MetadataDTO{InvoiceID: id})
		return
	}
	writeJSON(w, http.StatusOK, toMetadataDTO(*meta))
}

// SaveInvoiceMetadata upserts metadata for an invoice.
// POST /api/invoices/{id}/metadata
func (h *Handler) SaveInvoiceMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var dto MetadataDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	meta := toMetadata(dto)
	meta.InvoiceID = id // path wins over body

	if err := h.Store.SaveInvoiceMetadata(r.Context(), meta); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save invoice metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, toMetadataDTO(meta))
}

// =============================================================================
// LIQUIDITY HANDLER
// =============================================================================

// Liquidity computes the quick-ratio snapshot from current positions.
// POST /api/liquidity
func (h *Handler) Liquidity(w http.ResponseWriter, r *http.Request) {
	var req LiquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	totalAR := decimal.Zero
	for _, dto := range req.Receivables {
		item := toReceivable(dto)
		if item.Balance.IsPositive() {
			totalAR = totalAR.Add(item.Balance)
		}
	}
	totalAP := decimal.Zero
	for _, dto := range req.Payables {
		item := toPayable(dto)
		if item.Balance.IsPositive() {
			totalAP = totalAP.Add(item.Balance)
		}
	}

	snapshot := LiquidityDTO{
		Cash:             req.BankBalance,
		TotalReceivables: totalAR,
		TotalPayables:    totalAP,
	}
	// Quick ratio is undefined with no payables, reported as null.
	if totalAP.IsPositive() {
		ratio := req.BankBalance.Add(totalAR).DivRound(totalAP, 4)
		snapshot.QuickRatio = &ratio
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// =============================================================================
// HELPERS
// =============================================================================

func boolOrDefault(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors to status codes: contract
// violations are the caller's fault, everything else is ours.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	if forecast.IsClientError(err) {
		writeError(w, http.StatusBadRequest, message, err)
		return
	}
	writeError(w, http.StatusInternalServerError, message, err)
}
