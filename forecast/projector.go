/*
projector.go - Simple day-change projection

PURPOSE:
  Produces an ordered day-by-day net-change series over the next N days:
  no running balance, no per-entry detail. The full calendar lives in
  calendar.go; this is the lightweight dashboard view.

DATE RESOLUTION (per item, first hit wins):
  1. Manual override date from the item's inline metadata
  2. Cached batch prediction for the item's addressable identifier
  3. The item's due date
  Items resolving to nothing, or outside the window, are excluded.

PREDICTION CACHES:
  Both collections are batch-predicted once at construction - never per
  item inside the projection loop. Receivables and payables get separate
  caches so a receivable "1" and a payable "1" never collide.
*/
package forecast

import (
	"github.com/shopspring/decimal"
)

// CashFlowProjector projects net cash movement per day from open
// receivables and payables.
type CashFlowProjector struct {
	receivables []ReceivableItem
	payables    []PayableItem

	// Independent per-direction prediction caches, filled once.
	receivablePredictions map[string]Prediction
	payablePredictions    map[string]Prediction
}

// NewCashFlowProjector precomputes batch predictions for both
// collections. predictor may be nil; resolution then skips straight to
// due dates.
func NewCashFlowProjector(receivables []ReceivableItem, payables []PayableItem, predictor Predictor) *CashFlowProjector {
	p := &CashFlowProjector{
		receivables:           receivables,
		payables:              payables,
		receivablePredictions: map[string]Prediction{},
		payablePredictions:    map[string]Prediction{},
	}
	if predictor != nil {
		receivableItems := make([]OpenItem, len(receivables))
		for i, r := range receivables {
			receivableItems[i] = r.OpenItem()
		}
		payableItems := make([]OpenItem, len(payables))
		for i, b := range payables {
			payableItems[i] = b.OpenItem()
		}
		p.receivablePredictions = predictor.PredictMultiple(receivableItems)
		p.payablePredictions = predictor.PredictMultiple(payableItems)
	}
	return p
}

// CalculateProjection returns one DayChange per day over
// [today, today+days] inclusive, in ascending order, including zero-flow
// days. A negative horizon is a contract error.
func (p *CashFlowProjector) CalculateProjection(days int) ([]DayChange, error) {
	today := Today()
	if days < 0 {
		return nil, &RangeError{Start: today, End: today.AddDays(days)}
	}
	end := today.AddDays(days)

	type dayTotals struct {
		inflow  decimal.Decimal
		outflow decimal.Decimal
	}
	totals := make(map[string]*dayTotals)
	bump := func(d Date) *dayTotals {
		key := d.String()
		if t, ok := totals[key]; ok {
			return t
		}
		t := &dayTotals{inflow: decimal.Zero, outflow: decimal.Zero}
		totals[key] = t
		return t
	}

	for _, item := range p.receivables {
		if !item.Balance.IsPositive() {
			continue // settled
		}
		date, ok := resolveEffectiveDate(item.OpenItem(), item.Metadata, p.receivablePredictions)
		if !ok || date.Before(today) || date.After(end) {
			continue
		}
		t := bump(date)
		t.inflow = t.inflow.Add(item.Amount)
	}

	for _, item := range p.payables {
		date, ok := resolveEffectiveDate(item.OpenItem(), item.Metadata, p.payablePredictions)
		if !ok || date.Before(today) || date.After(end) {
			continue
		}
		t := bump(date)
		t.outflow = t.outflow.Add(item.Amount)
	}

	projection := make([]DayChange, 0, days+1)
	for current := today; current.BeforeOrEqual(end); current = current.AddDays(1) {
		change := DayChange{
			Date:    current,
			Inflow:  decimal.Zero,
			Outflow: decimal.Zero,
		}
		if t, ok := totals[current.String()]; ok {
			change.Inflow = t.inflow
			change.Outflow = t.outflow
		}
		change.NetChange = change.Inflow.Sub(change.Outflow)
		projection = append(projection, change)
	}
	return projection, nil
}

// ProjectedNet returns the total net change over the horizon - the
// scalar view for callers that only want one number.
func (p *CashFlowProjector) ProjectedNet(days int) (decimal.Decimal, error) {
	projection, err := p.CalculateProjection(days)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, day := range projection {
		total = total.Add(day.NetChange)
	}
	return total, nil
}

// resolveEffectiveDate applies the projector's three-tier priority:
// override, cached prediction, due date.
func resolveEffectiveDate(item OpenItem, metadata *ItemMetadata, predictions map[string]Prediction) (Date, bool) {
	if metadata != nil && !metadata.ManualOverrideDate.IsZero() {
		return metadata.ManualOverrideDate, true
	}
	if key := item.AddressableID(); key != "" {
		if pred, ok := predictions[key]; ok && !pred.Date.IsZero() {
			return pred.Date, true
		}
	}
	if !item.DueDate.IsZero() {
		return item.DueDate, true
	}
	return Date{}, false
}
