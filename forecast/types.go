/*
Package forecast implements the cash flow forecasting engine.

PURPOSE:
  Predicts when open receivables and payables will actually be paid and
  turns them - together with manually entered custom flows - into a
  day-by-day running-balance calendar. The engine is synchronous and
  performs no I/O: callers materialize every record before construction
  and receive one projection per call.

KEY CONCEPTS IN THIS FILE (types.go):
  - FlowEntry:   A single amount posted to a calendar day
  - DailyBucket: One calendar day with opening/closing balance
  - DayChange:   Lightweight net-change row (projector output)
  - Prediction:  A predicted payment date with a confidence score

DESIGN PRINCIPLES:
  1. Precision: All currency amounts use decimal.Decimal. The balance
     continuity invariant (closing(d) == opening(d+1)) must hold exactly.
  2. Degradation over failure: messy input data is skipped, never raised.
     Only malformed requests (end before start, uncoercible amounts)
     surface as errors.
  3. One batch inference per projection: predictions are computed once at
     construction and cached by record identifier.

SEE ALSO:
  - records.go:    Input record types (receivables, payables, flows)
  - predictor.go:  Payment date prediction with fallback ladder
  - calendar.go:   The full daily projection
  - projector.go:  The simple day-change projection
*/
package forecast

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// FLOW DIRECTION AND ENTRY TYPES
// =============================================================================

// FlowDirection is which side of the ledger a flow lands on.
type FlowDirection string

const (
	FlowInflow  FlowDirection = "inflow"
	FlowOutflow FlowDirection = "outflow"
)

// EntryType identifies the source of a calendar entry.
type EntryType string

const (
	EntryInvoice EntryType = "invoice" // projected receivable payment
	EntryBill    EntryType = "bill"    // projected payable payment
	EntryCustom  EntryType = "custom"  // manually entered flow
)

// =============================================================================
// CALENDAR OUTPUT TYPES
// =============================================================================

// FlowEntry is a single amount posted to a calendar day.
type FlowEntry struct {
	Type        EntryType
	ID          string
	Description string
	Amount      decimal.Decimal

	// Projected entries come from date prediction; custom entries are
	// treated as certain.
	Projected bool
}

// DailyBucket is one calendar day in a daily projection.
//
// Invariants for a projection over [start, end]:
//   - exactly one bucket per day, ascending, no gaps
//   - ClosingBalance = OpeningBalance + NetChange
//   - OpeningBalance(d+1) = ClosingBalance(d)
//   - OpeningBalance(start) = the caller's initial balance
type DailyBucket struct {
	Date           Date
	OpeningBalance decimal.Decimal
	Inflows        []FlowEntry
	Outflows       []FlowEntry
	NetChange      decimal.Decimal
	ClosingBalance decimal.Decimal
}

// TotalInflow sums the day's inflow entries.
func (b DailyBucket) TotalInflow() decimal.Decimal {
	total := decimal.Zero
	for _, e := range b.Inflows {
		total = total.Add(e.Amount)
	}
	return total
}

// TotalOutflow sums the day's outflow entries.
func (b DailyBucket) TotalOutflow() decimal.Decimal {
	total := decimal.Zero
	for _, e := range b.Outflows {
		total = total.Add(e.Amount)
	}
	return total
}

// DayChange is one row of the simple projection: net movement for a day
// without running balances or per-entry detail.
type DayChange struct {
	Date      Date
	Inflow    decimal.Decimal
	Outflow   decimal.Decimal
	NetChange decimal.Decimal
}

// =============================================================================
// PREDICTION
// =============================================================================

// Prediction is a predicted payment date for a single open item.
// Confidence is in [0, 1] and is surfaced to callers but never consumed
// by balance arithmetic.
type Prediction struct {
	Date       Date
	Confidence float64
}

// Predictor produces payment date predictions. PaymentPredictor is the
// real implementation; projections accept the interface so tests can
// count invocations.
type Predictor interface {
	// PredictExpectedDate predicts a single item. ok is false when no
	// date can be derived at all.
	PredictExpectedDate(item OpenItem) (date Date, ok bool)

	// PredictMultiple predicts a batch, keyed by addressable identifier.
	// Items without an addressable identifier are fed through the model
	// (their feature row keeps batch output aligned) but never appear
	// as keys.
	PredictMultiple(items []OpenItem) map[string]Prediction
}
