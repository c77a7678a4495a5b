package forecast

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT RECORDS
// =============================================================================
// Receivables, payables and custom flows arrive as explicit structs, not
// maps. Dates are parsed at ingestion (the HTTP layer or whatever feeds
// the engine); a field that failed to parse is simply the zero Date.

// DefaultTermsDays is assumed when a record carries no payment terms.
const DefaultTermsDays = 30

// ReceivableItem is money owed to the business (an open invoice).
type ReceivableItem struct {
	ID         string
	DocNumber  string
	CustomerID string
	Customer   string // display name

	Amount  decimal.Decimal
	Balance decimal.Decimal // outstanding; <= 0 means settled

	DueDate   Date
	TxnDate   Date
	TermsDays int

	// Optional per-item metadata carried inline (the projector's
	// override tier reads this; the calendar uses its bulk metadata map).
	Metadata *ItemMetadata
}

// AddressableID returns the primary identifier, falling back to the
// document number. Empty means the item cannot be keyed in prediction
// caches - it still consumes a batch slot, see PredictMultiple.
func (r ReceivableItem) AddressableID() string {
	if r.ID != "" {
		return r.ID
	}
	return r.DocNumber
}

// OpenItem converts to the predictor's view of the item.
func (r ReceivableItem) OpenItem() OpenItem {
	return OpenItem{
		ID:         r.ID,
		DocNumber:  r.DocNumber,
		CustomerID: r.CustomerID,
		Amount:     r.Amount,
		TermsDays:  r.TermsDays,
		TxnDate:    r.TxnDate,
		DueDate:    r.DueDate,
	}
}

// PayableItem is money owed by the business (a bill). Always an outflow.
type PayableItem struct {
	ID        string
	DocNumber string
	VendorID  string
	Vendor    string

	Amount  decimal.Decimal
	Balance decimal.Decimal

	DueDate   Date
	TxnDate   Date
	TermsDays int

	Metadata *ItemMetadata
}

func (p PayableItem) AddressableID() string {
	if p.ID != "" {
		return p.ID
	}
	return p.DocNumber
}

func (p PayableItem) OpenItem() OpenItem {
	return OpenItem{
		ID:         p.ID,
		DocNumber:  p.DocNumber,
		CustomerID: p.VendorID,
		Amount:     p.Amount,
		TermsDays:  p.TermsDays,
		TxnDate:    p.TxnDate,
		DueDate:    p.DueDate,
	}
}

// OpenItem is the predictor's uniform view of an unpaid receivable or
// payable. The receivable and payable identifier spaces stay independent
// because each collection is batched into its own prediction cache.
type OpenItem struct {
	ID         string
	DocNumber  string
	CustomerID string
	Amount     decimal.Decimal
	TermsDays  int
	TxnDate    Date
	DueDate    Date
}

func (o OpenItem) AddressableID() string {
	if o.ID != "" {
		return o.ID
	}
	return o.DocNumber
}

// HistoricalItem is a settled invoice used for training: both the
// transaction date and the actual payment date are known.
type HistoricalItem struct {
	CustomerID  string
	Amount      decimal.Decimal
	TermsDays   int
	TxnDate     Date
	PaymentDate Date
}

// =============================================================================
// CUSTOM FLOWS
// =============================================================================

// RecurrenceType is how a recurring flow repeats.
type RecurrenceType string

const (
	RecurWeekly     RecurrenceType = "weekly"      // every interval*7 days
	RecurMonthly    RecurrenceType = "monthly"     // every interval months, day-of-month clamped
	RecurCustomDays RecurrenceType = "custom_days" // every interval days
)

// RecurrenceRule bounds a repeating flow. End may be zero for open-ended
// rules; expansion then stops at the projection window.
type RecurrenceRule struct {
	Type     RecurrenceType
	Interval int
	Start    Date
	End      Date
}

// CustomFlow is a manually entered inflow or outflow: either a single
// dated amount or a recurrence rule.
type CustomFlow struct {
	ID          string
	Direction   FlowDirection
	Amount      decimal.Decimal
	Description string

	// Single occurrence (when Recurring is false).
	Date Date

	Recurring  bool
	Recurrence RecurrenceRule
}

// =============================================================================
// INVOICE METADATA
// =============================================================================

// ItemMetadata is operator-entered data attached to a receivable: the
// manual override wins over every predicted date, and a portal
// submission date shifts the expected payment to submission + terms.
type ItemMetadata struct {
	InvoiceID            string
	ManualOverrideDate   Date
	PortalSubmissionDate Date
	PortalName           string
	Rep                  string
	SentToRepDate        Date
}

// MetadataMap indexes metadata records by invoice identifier. Later
// records for the same invoice win, so appending keeps the latest.
func MetadataMap(records []ItemMetadata) map[string]ItemMetadata {
	m := make(map[string]ItemMetadata, len(records))
	for _, r := range records {
		if r.InvoiceID != "" {
			m[r.InvoiceID] = r
		}
	}
	return m
}
