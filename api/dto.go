/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNT FIELDS:
  Request and response amounts are decimal.Decimal, which accepts both
  JSON numbers and numeric strings on input and marshals as a string.
  A value that cannot be coerced fails JSON decoding, which the handlers
  map to 400 - amounts are the one input class that is rejected rather
  than skipped.

DATE FIELDS:
  Dates travel as YYYY-MM-DD strings. Unparseable dates become absent
  dates at ingestion and the engine skips or falls back per field; they
  are never a request error.

SEE ALSO:
  - handlers.go: Uses these types
  - forecast/records.go: Domain record types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vzt/cashflow-engine/forecast"
)

// =============================================================================
// RECORD TYPES (requests)
// =============================================================================

// ReceivableDTO is an open invoice supplied by the caller.
type ReceivableDTO struct {
	ID           string           `json:"id"`
	DocNumber    string           `json:"doc_number,omitempty"`
	CustomerID   string           `json:"customer_id,omitempty"`
	CustomerName string           `json:"customer_name,omitempty"`
	Amount       decimal.Decimal  `json:"amount"`
	Balance      *decimal.Decimal `json:"balance,omitempty"` // nil = full amount open
	DueDate      string           `json:"due_date,omitempty"`
	TxnDate      string           `json:"txn_date,omitempty"`
	TermsDays    *int             `json:"terms_days,omitempty"` // nil = 30
	Metadata     *MetadataDTO     `json:"metadata,omitempty"`
}

// PayableDTO is an open bill supplied by the caller.
type PayableDTO struct {
	ID         string           `json:"id"`
	DocNumber  string           `json:"doc_number,omitempty"`
	VendorID   string           `json:"vendor_id,omitempty"`
	VendorName string           `json:"vendor_name,omitempty"`
	Amount     decimal.Decimal  `json:"amount"`
	Balance    *decimal.Decimal `json:"balance,omitempty"`
	DueDate    string           `json:"due_date,omitempty"`
	TxnDate    string           `json:"txn_date,omitempty"`
	TermsDays  *int             `json:"terms_days,omitempty"`
	Metadata   *MetadataDTO     `json:"metadata,omitempty"`
}

// CustomFlowDTO is a manually entered flow, one-time or recurring.
type CustomFlowDTO struct {
	ID          string          `json:"id,omitempty"`
	Direction   string          `json:"direction"` // "inflow" or "outflow"
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date,omitempty"`

	IsRecurring        bool   `json:"is_recurring,omitempty"`
	RecurrenceType     string `json:"recurrence_type,omitempty"` // weekly, monthly, custom_days
	RecurrenceInterval int    `json:"recurrence_interval,omitempty"`
	RecurrenceStart    string `json:"recurrence_start,omitempty"`
	RecurrenceEnd      string `json:"recurrence_end,omitempty"`
}

// MetadataDTO carries operator-entered invoice metadata.
type MetadataDTO struct {
	InvoiceID            string `json:"invoice_id,omitempty"`
	ManualOverrideDate   string `json:"manual_override_date,omitempty"`
	PortalSubmissionDate string `json:"portal_submission_date,omitempty"`
	PortalName           string `json:"portal_name,omitempty"`
	Rep                  string `json:"rep,omitempty"`
	SentToRepDate        string `json:"sent_to_rep_date,omitempty"`
}

// =============================================================================
// PREDICTOR TYPES
// =============================================================================

// HistoricalItemDTO is one settled invoice for training.
type HistoricalItemDTO struct {
	CustomerID  string          `json:"customer_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	TermsDays   *int            `json:"terms_days,omitempty"`
	TxnDate     string          `json:"txn_date"`
	PaymentDate string          `json:"payment_date"`
}

// TrainRequest is the request to fit the predictor.
type TrainRequest struct {
	History []HistoricalItemDTO `json:"history"`
}

// TrainResultDTO reports the outcome of a training run.
type TrainResultDTO struct {
	Success   bool    `json:"success"`
	Samples   int     `json:"samples"`
	Score     float64 `json:"score,omitempty"`
	TrainedAt string  `json:"trained_at,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// PredictorStatusDTO exposes current training diagnostics.
type PredictorStatusDTO struct {
	Trained   bool    `json:"trained"`
	Samples   int     `json:"samples"`
	Score     float64 `json:"score,omitempty"`
	TrainedAt string  `json:"trained_at,omitempty"`
}

// OpenItemDTO is an unpaid item submitted for prediction.
type OpenItemDTO struct {
	ID         string          `json:"id"`
	DocNumber  string          `json:"doc_number,omitempty"`
	CustomerID string          `json:"customer_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	TermsDays  *int            `json:"terms_days,omitempty"`
	TxnDate    string          `json:"txn_date,omitempty"`
	DueDate    string          `json:"due_date,omitempty"`
}

// PredictRequest predicts a single item or a batch.
type PredictRequest struct {
	Item  *OpenItemDTO  `json:"item,omitempty"`
	Items []OpenItemDTO `json:"items,omitempty"`
}

// PredictionDTO is one predicted payment date.
type PredictionDTO struct {
	Date       string  `json:"date"`
	Confidence float64 `json:"confidence"`
}

// =============================================================================
// PROJECTION TYPES
// =============================================================================

// CashflowRequest is the request for the simple day-change projection.
type CashflowRequest struct {
	Days        int             `json:"days"`
	Receivables []ReceivableDTO `json:"receivables"`
	Payables    []PayableDTO    `json:"payables"`
}

// DayChangeDTO is one row of the simple projection.
type DayChangeDTO struct {
	Date      string          `json:"date"`
	Inflow    decimal.Decimal `json:"inflow"`
	Outflow   decimal.Decimal `json:"outflow"`
	NetChange decimal.Decimal `json:"net_change"`
}

// CashflowResponse wraps the day list with its net total.
type CashflowResponse struct {
	Days         []DayChangeDTO  `json:"days"`
	ProjectedNet decimal.Decimal `json:"projected_net"`
}

// CalendarRequest is the request for the full daily calendar. Custom
// flows and invoice metadata stored on the server are merged in; the
// body may carry additional ad hoc flows and metadata.
type CalendarRequest struct {
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	InitialBalance decimal.Decimal `json:"initial_balance"`

	Receivables []ReceivableDTO `json:"receivables"`
	Payables    []PayableDTO    `json:"payables"`
	CustomFlows []CustomFlowDTO `json:"custom_flows,omitempty"`
	Metadata    []MetadataDTO   `json:"metadata,omitempty"`

	// Visibility toggles, default true.
	ShowProjectedInflows  *bool `json:"show_projected_inflows,omitempty"`
	ShowProjectedOutflows *bool `json:"show_projected_outflows,omitempty"`
	ShowCustomInflows     *bool `json:"show_custom_inflows,omitempty"`
	ShowCustomOutflows    *bool `json:"show_custom_outflows,omitempty"`
}

// FlowEntryDTO is a single posted amount in a calendar day.
type FlowEntryDTO struct {
	Type        string          `json:"type"`
	ID          string          `json:"id,omitempty"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Projected   bool            `json:"projected"`
}

// DailyBucketDTO is one calendar day with running balances.
type DailyBucketDTO struct {
	Date           string          `json:"date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Inflows        []FlowEntryDTO  `json:"inflows"`
	Outflows       []FlowEntryDTO  `json:"outflows"`
	NetChange      decimal.Decimal `json:"net_change"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// CalendarResponse wraps the bucket list.
type CalendarResponse struct {
	StartDate string           `json:"start_date"`
	EndDate   string           `json:"end_date"`
	Calendar  []DailyBucketDTO `json:"calendar"`
}

// =============================================================================
// LIQUIDITY TYPES
// =============================================================================

// LiquidityRequest computes a liquidity snapshot from current positions.
type LiquidityRequest struct {
	BankBalance decimal.Decimal `json:"bank_balance"`
	Receivables []ReceivableDTO `json:"receivables"`
	Payables    []PayableDTO    `json:"payables"`
}

// LiquidityDTO is the snapshot. QuickRatio is null when there are no
// payables - the ratio is undefined, not infinite.
type LiquidityDTO struct {
	Cash             decimal.Decimal  `json:"cash"`
	TotalReceivables decimal.Decimal  `json:"total_receivables"`
	TotalPayables    decimal.Decimal  `json:"total_payables"`
	QuickRatio       *decimal.Decimal `json:"quick_ratio"`
}

// =============================================================================
// SCENARIO AND ERROR TYPES
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func termsOrDefault(terms *int) int {
	if terms == nil {
		return forecast.DefaultTermsDays
	}
	return *terms
}

func parseDate(s string) forecast.Date {
	d, _ := forecast.ParseDate(s)
	return d
}

func toReceivable(dto ReceivableDTO) forecast.ReceivableItem {
	balance := dto.Amount
	if dto.Balance != nil {
		balance = *dto.Balance
	}
	item := forecast.ReceivableItem{
		ID:         dto.ID,
		DocNumber:  dto.DocNumber,
		CustomerID: dto.CustomerID,
		Customer:   dto.CustomerName,
		Amount:     dto.Amount,
		Balance:    balance,
		DueDate:    parseDate(dto.DueDate),
		TxnDate:    parseDate(dto.TxnDate),
		TermsDays:  termsOrDefault(dto.TermsDays),
	}
	if dto.Metadata != nil {
		meta := toMetadata(*dto.Metadata)
		if meta.InvoiceID == "" {
			meta.InvoiceID = item.AddressableID()
		}
		item.Metadata = &meta
	}
	return item
}

func toReceivables(dtos []ReceivableDTO) []forecast.ReceivableItem {
	items := make([]forecast.ReceivableItem, len(dtos))
	for i, dto := range dtos {
		items[i] = toReceivable(dto)
	}
	return items
}

func toPayable(dto PayableDTO) forecast.PayableItem {
	balance := dto.Amount
	if dto.Balance != nil {
		balance = *dto.Balance
	}
	item := forecast.PayableItem{
		ID:        dto.ID,
		DocNumber: dto.DocNumber,
		VendorID:  dto.VendorID,
		Vendor:    dto.VendorName,
		Amount:    dto.Amount,
		Balance:   balance,
		DueDate:   parseDate(dto.DueDate),
		TxnDate:   parseDate(dto.TxnDate),
		TermsDays: termsOrDefault(dto.TermsDays),
	}
	if dto.Metadata != nil {
		meta := toMetadata(*dto.Metadata)
		if meta.InvoiceID == "" {
			meta.InvoiceID = item.AddressableID()
		}
		item.Metadata = &meta
	}
	return item
}

func toPayables(dtos []PayableDTO) []forecast.PayableItem {
	items := make([]forecast.PayableItem, len(dtos))
	for i, dto := range dtos {
		items[i] = toPayable(dto)
	}
	return items
}

func toCustomFlow(dto CustomFlowDTO) forecast.CustomFlow {
	return forecast.CustomFlow{
		ID:          dto.ID,
		Direction:   forecast.FlowDirection(dto.Direction),
		Amount:      dto.Amount,
		Description: dto.Description,
		Date:        parseDate(dto.Date),
		Recurring:   dto.IsRecurring,
		Recurrence: forecast.RecurrenceRule{
			Type:     forecast.RecurrenceType(dto.RecurrenceType),
			Interval: dto.RecurrenceInterval,
			Start:    parseDate(dto.RecurrenceStart),
			End:      parseDate(dto.RecurrenceEnd),
		},
	}
}

func toCustomFlowDTO(flow forecast.CustomFlow) CustomFlowDTO {
	dto := CustomFlowDTO{
		ID:          flow.ID,
		Direction:   string(flow.Direction),
		Amount:      flow.Amount,
		Description: flow.Description,
		IsRecurring: flow.Recurring,
	}
	if !flow.Date.IsZero() {
		dto.Date = flow.Date.String()
	}
	if flow.Recurring {
		dto.RecurrenceType = string(flow.Recurrence.Type)
		dto.RecurrenceInterval = flow.Recurrence.Interval
		if !flow.Recurrence.Start.IsZero() {
			dto.RecurrenceStart = flow.Recurrence.Start.String()
		}
		if !flow.Recurrence.End.IsZero() {
			dto.RecurrenceEnd = flow.Recurrence.End.String()
		}
	}
	return dto
}

func toMetadata(dto MetadataDTO) forecast.ItemMetadata {
	return forecast.ItemMetadata{
		InvoiceID:            dto.InvoiceID,
		ManualOverrideDate:   parseDate(dto.ManualOverrideDate),
		PortalSubmissionDate: parseDate(dto.PortalSubmissionDate),
		PortalName:           dto.PortalName,
		Rep:                  dto.Rep,
		SentToRepDate:        parseDate(dto.SentToRepDate),
	}
}

func toMetadataDTO(meta forecast.ItemMetadata) MetadataDTO {
	dto := MetadataDTO{
		InvoiceID:  meta.InvoiceID,
		PortalName: meta.PortalName,
		Rep:        meta.Rep,
	}
	if !meta.ManualOverrideDate.IsZero() {
		dto.ManualOverrideDate = meta.ManualOverrideDate.String()
	}
	if !meta.PortalSubmissionDate.IsZero() {
		dto.PortalSubmissionDate = meta.PortalSubmissionDate.String()
	}
	if !meta.SentToRepDate.IsZero() {
		dto.SentToRepDate = meta.SentToRepDate.String()
	}
	return dto
}

func toOpenItem(dto OpenItemDTO) forecast.OpenItem {
	return forecast.OpenItem{
		ID:         dto.ID,
		DocNumber:  dto.DocNumber,
		CustomerID: dto.CustomerID,
		Amount:     dto.Amount,
		TermsDays:  termsOrDefault(dto.TermsDays),
		TxnDate:    parseDate(dto.TxnDate),
		DueDate:    parseDate(dto.DueDate),
	}
}

func toHistoricalItems(dtos []HistoricalItemDTO) []forecast.HistoricalItem {
	items := make([]forecast.HistoricalItem, len(dtos))
	for i, dto := range dtos {
		items[i] = forecast.HistoricalItem{
			CustomerID:  dto.CustomerID,
			Amount:      dto.Amount,
			TermsDays:   termsOrDefault(dto.TermsDays),
			TxnDate:     parseDate(dto.TxnDate),
			PaymentDate: parseDate(dto.PaymentDate),
		}
	}
	return items
}

func toDayChangeDTOs(days []forecast.DayChange) []DayChangeDTO {
	dtos := make([]DayChangeDTO, len(days))
	for i, d := range days {
		dtos[i] = DayChangeDTO{
			Date:      d.Date.String(),
			Inflow:    d.Inflow,
			Outflow:   d.Outflow,
			NetChange: d.NetChange,
		}
	}
	return dtos
}

func toFlowEntryDTOs(entries []forecast.FlowEntry) []FlowEntryDTO {
	dtos := make([]FlowEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = FlowEntryDTO{
			Type:        string(e.Type),
			ID:          e.ID,
			Description: e.Description,
			Amount:      e.Amount,
			Projected:   e.Projected,
		}
	}
	return dtos
}

func toDailyBucketDTOs(buckets []forecast.DailyBucket) []DailyBucketDTO {
	dtos := make([]DailyBucketDTO, len(buckets))
	for i, b := range buckets {
		dtos[i] = DailyBucketDTO{
			Date:           b.Date.String(),
			OpeningBalance: b.OpeningBalance,
			Inflows:        toFlowEntryDTOs(b.Inflows),
			Outflows:       toFlowEntryDTOs(b.Outflows),
			NetChange:      b.NetChange,
			ClosingBalance: b.ClosingBalance,
		}
	}
	return dtos
}

func toTrainResultDTO(result forecast.TrainingResult) TrainResultDTO {
	dto := TrainResultDTO{
		Success: result.Success,
		Samples: result.Samples,
		Score:   result.Score,
		Message: result.Message,
	}
	if !result.TrainedAt.IsZero() {
		dto.TrainedAt = result.TrainedAt.Format(time.RFC3339)
	}
	return dto
}
