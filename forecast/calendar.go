/*
calendar.go - Daily cash flow calendar with running balance

PURPOSE:
  The full forecast: one bucket per calendar day with opening balance,
  itemized inflows/outflows, net change and closing balance. Merges three
  sources - open receivables, open payables, custom flows (single or
  recurring) - under per-source visibility toggles.

RECEIVABLE POSTING DATE (four-tier priority, first hit wins):
  1. Manual override date from invoice metadata
  2. Portal submission date + payment terms
  3. Cached batch prediction for the invoice identifier
  4. Due date
  A receivable with a positive balance is never dropped for bad dates:
  if nothing above resolves, it posts on the current date.

PAYABLES:
  Post on their due date only. No override or portal tiers exist for
  bills; a payable without a parseable due date is excluded.

TOGGLES:
  Each toggle removes its entries from the bucket lists AND from the
  balance arithmetic. A hidden flow does not move the balance.

CONSTRUCTION:
  Metadata map and the receivable prediction batch are computed once in
  the constructor. The projection loop only reads caches.

SEE ALSO:
  - recurrence.go: Custom flow expansion
  - projector.go:  The lightweight net-change variant
*/
package forecast

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ProjectionOptions toggles flow-source visibility. A disabled source
// contributes nothing - neither entries nor balance movement.
type ProjectionOptions struct {
	ShowProjectedInflows  bool
	ShowProjectedOutflows bool
	ShowCustomInflows     bool
	ShowCustomOutflows    bool
}

// DefaultProjectionOptions shows everything.
func DefaultProjectionOptions() ProjectionOptions {
	return ProjectionOptions{
		ShowProjectedInflows:  true,
		ShowProjectedOutflows: true,
		ShowCustomInflows:     true,
		ShowCustomOutflows:    true,
	}
}

// CashFlowCalendar builds daily projections from a materialized snapshot
// of receivables, payables, custom flows and invoice metadata.
type CashFlowCalendar struct {
	receivables []ReceivableItem
	payables    []PayableItem
	customFlows []CustomFlow

	metadata    map[string]ItemMetadata
	predictions map[string]Prediction
}

// NewCashFlowCalendar precomputes the metadata index and the receivable
// prediction batch. predictor and metadata may be nil/empty; the
// resolution chain simply skips those tiers.
func NewCashFlowCalendar(
	receivables []ReceivableItem,
	payables []PayableItem,
	customFlows []CustomFlow,
	predictor Predictor,
	metadata []ItemMetadata,
) *CashFlowCalendar {
	c := &CashFlowCalendar{
		receivables: receivables,
		payables:    payables,
		customFlows: customFlows,
		metadata:    MetadataMap(metadata),
		predictions: map[string]Prediction{},
	}
	if predictor != nil {
		items := make([]OpenItem, len(receivables))
		for i, r := range receivables {
			items[i] = r.OpenItem()
		}
		c.predictions = predictor.PredictMultiple(items)
	}
	return c
}

// CalculateDailyProjection returns one DailyBucket per day in
// [start, end] inclusive, ascending, with exact running balances.
// end before start is a contract error.
func (c *CashFlowCalendar) CalculateDailyProjection(
	start, end Date,
	initialBalance decimal.Decimal,
	opts ProjectionOptions,
) ([]DailyBucket, error) {
	if end.Before(start) {
		return nil, &RangeError{Start: start, End: end}
	}

	// One bucket per day, plus an index for O(1) posting.
	dayCount := DaysBetween(start, end) + 1
	buckets := make([]DailyBucket, 0, dayCount)
	index := make(map[string]int, dayCount)
	for current := start; current.BeforeOrEqual(end); current = current.AddDays(1) {
		index[current.String()] = len(buckets)
		buckets = append(buckets, DailyBucket{Date: current})
	}
	post := func(date Date, entry FlowEntry, direction FlowDirection) {
		i, ok := index[date.String()]
		if !ok {
			return
		}
		if direction == FlowInflow {
			buckets[i].Inflows = append(buckets[i].Inflows, entry)
		} else {
			buckets[i].Outflows = append(buckets[i].Outflows, entry)
		}
	}

	if opts.ShowProjectedInflows {
		for _, item := range c.receivables {
			if !item.Balance.IsPositive() {
				continue // settled
			}
			date := c.resolveReceivableDate(item)
			if date.Before(start) || date.After(end) {
				continue
			}
			post(date, FlowEntry{
				Type:        EntryInvoice,
				ID:          item.AddressableID(),
				Description: receivableDescription(item),
				Amount:      item.Balance, // outstanding, not original amount
				Projected:   true,
			}, FlowInflow)
		}
	}

	if opts.ShowProjectedOutflows {
		for _, item := range c.payables {
			if item.DueDate.IsZero() {
				continue
			}
			if item.DueDate.Before(start) || item.DueDate.After(end) {
				continue
			}
			post(item.DueDate, FlowEntry{
				Type:        EntryBill,
				ID:          item.AddressableID(),
				Description: payableDescription(item),
				Amount:      item.Amount,
				Projected:   true,
			}, FlowOutflow)
		}
	}

	for _, flow := range c.customFlows {
		switch flow.Direction {
		case FlowInflow:
			if !opts.ShowCustomInflows {
				continue
			}
		case FlowOutflow:
			if !opts.ShowCustomOutflows {
				continue
			}
		default:
			continue // unknown direction contributes nothing
		}

		for _, date := range c.flowDates(flow, start, end) {
			post(date, FlowEntry{
				Type:        EntryCustom,
				ID:          flow.ID,
				Description: flow.Description,
				Amount:      flow.Amount,
				Projected:   false, // manual entries are certain
			}, flow.Direction)
		}
	}

	// Balance walk: strictly chronological accumulation.
	running := initialBalance
	for i := range buckets {
		buckets[i].OpeningBalance = running
		buckets[i].NetChange = buckets[i].TotalInflow().Sub(buckets[i].TotalOutflow())
		running = running.Add(buckets[i].NetChange)
		buckets[i].ClosingBalance = running
	}

	return buckets, nil
}

// resolveReceivableDate applies the four-tier posting date chain, with
// the current date as the absolute last resort - a receivable with a
// positive balance always lands somewhere.
func (c *CashFlowCalendar) resolveReceivableDate(item ReceivableItem) Date {
	meta, hasMeta := c.metadata[item.AddressableID()]

	if hasMeta && !meta.ManualOverrideDate.IsZero() {
		return meta.ManualOverrideDate
	}

	if hasMeta && !meta.PortalSubmissionDate.IsZero() {
		// Terms defaulting happens at ingestion; an explicit zero means
		// payment is expected on submission.
		return meta.PortalSubmissionDate.AddDays(item.TermsDays)
	}

	if key := item.AddressableID(); key != "" {
		if pred, ok := c.predictions[key]; ok && !pred.Date.IsZero() {
			return pred.Date
		}
	}

	if !item.DueDate.IsZero() {
		return item.DueDate
	}

	return Today()
}

// flowDates resolves a custom flow to its occurrence dates within the
// window. Unparseable single dates contribute nothing.
func (c *CashFlowCalendar) flowDates(flow CustomFlow, start, end Date) []Date {
	if flow.Recurring {
		return ExpandRecurrence(flow.Recurrence, start, end)
	}
	if flow.Date.IsZero() || flow.Date.Before(start) || flow.Date.After(end) {
		return nil
	}
	return []Date{flow.Date}
}

func receivableDescription(item ReceivableItem) string {
	if item.DocNumber != "" && item.Customer != "" {
		return fmt.Sprintf("Invoice #%s - %s", item.DocNumber, item.Customer)
	}
	if item.DocNumber != "" {
		return fmt.Sprintf("Invoice #%s", item.DocNumber)
	}
	return "Invoice"
}

func payableDescription(item PayableItem) string {
	if item.DocNumber != "" && item.Vendor != "" {
		return fmt.Sprintf("Bill #%s - %s", item.DocNumber, item.Vendor)
	}
	if item.DocNumber != "" {
		return fmt.Sprintf("Bill #%s", item.DocNumber)
	}
	return "Bill"
}
