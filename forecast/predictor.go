/*
predictor.go - Payment date prediction

PURPOSE:
  Estimates when an open item will actually be paid. Learns from settled
  invoices when at least ten clean rows exist; below that, prediction
  degrades to a fixed lateness heuristic. Insufficient data is a
  degraded-capability signal, not an error.

FALLBACK LADDER (single item, first usable result wins):
  1. Trained model inference, clamped to at least one day after the
     transaction date. Anything unusable about the inference result
     falls through.
  2. Due date + 5 days.
  3. No prediction (item has no usable date at all).

BATCH ALIGNMENT CONTRACT:
  The model predicts one value per feature row, positionally. An item
  with no addressable identifier still gets a feature row - its
  prediction is consumed and discarded - so every later item keeps its
  own prediction. Dropping the row instead would shift every prediction
  after it by one.

CONCURRENCY:
  Train publishes a whole immutable model snapshot with an atomic swap.
  Readers either see the previous model or the new one, never a
  half-trained state. Callers serialize Train itself.

SEE ALSO:
  - regression.go: The fitted model
  - projector.go, calendar.go: Consume batch predictions via caches
*/
package forecast

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

const (
	// minTrainingSamples is the minimum number of valid history rows
	// required before a model is fitted.
	minTrainingSamples = 10

	// heuristicLateDays assumes customers pay about this many days after
	// the due date when no model is available.
	heuristicLateDays = 5

	// defaultCustomerAvgDays is the placeholder per-customer average
	// delay feature. TODO: derive per-customer averages from history
	// once the training set carries customer identifiers densely enough.
	defaultCustomerAvgDays = 35

	// heuristicConfidence is reported for due-date-plus-lateness guesses.
	heuristicConfidence = 0.5
)

// =============================================================================
// BEHAVIOR ANALYZER - optional per-customer collaborator
// =============================================================================

// CustomerBehavior summarizes how a customer has paid recently.
type CustomerBehavior struct {
	AverageDelay    float64 // days past due date, may be negative
	ConfidenceScore float64 // [0, 1]
}

// BehaviorAnalyzer supplies observed payment behavior per customer.
// When available it outranks the trained regression: a customer's own
// track record beats a population-level fit.
type BehaviorAnalyzer interface {
	// AnalyzeCustomer returns behavior for a customer. ok is false when
	// the analyzer has no usable history for that customer.
	AnalyzeCustomer(customerID string) (behavior CustomerBehavior, ok bool)
}

// =============================================================================
// PAYMENT PREDICTOR
// =============================================================================

// modelSnapshot pairs a fitted model with its training diagnostics.
type modelSnapshot struct {
	model     regressor
	samples   int
	score     float64
	trainedAt time.Time
}

// PaymentPredictor predicts payment dates for open items. The zero-ish
// state (fresh NewPaymentPredictor) is untrained and falls back to
// heuristics; it is still fully usable.
type PaymentPredictor struct {
	snapshot atomic.Pointer[modelSnapshot]
	behavior BehaviorAnalyzer
}

func NewPaymentPredictor() *PaymentPredictor {
	return &PaymentPredictor{}
}

// NewPaymentPredictorWithBehavior attaches a per-customer behavior
// analyzer. Items the analyzer cannot resolve fall back to the ladder.
func NewPaymentPredictorWithBehavior(b BehaviorAnalyzer) *PaymentPredictor {
	return &PaymentPredictor{behavior: b}
}

// IsTrained reports whether a fitted model is currently published.
func (p *PaymentPredictor) IsTrained() bool {
	return p.snapshot.Load() != nil
}

// TrainingResult reports the outcome of a training run.
type TrainingResult struct {
	Success   bool
	Samples   int
	Score     float64 // coefficient of determination on the training set
	TrainedAt time.Time
	Message   string
}

// PredictorStatus exposes current training diagnostics.
type PredictorStatus struct {
	Trained   bool
	Samples   int
	Score     float64
	TrainedAt time.Time
}

// Status returns the currently published training diagnostics.
func (p *PaymentPredictor) Status() PredictorStatus {
	snap := p.snapshot.Load()
	if snap == nil {
		return PredictorStatus{}
	}
	return PredictorStatus{
		Trained:   true,
		Samples:   snap.samples,
		Score:     snap.score,
		TrainedAt: snap.trainedAt,
	}
}

// Train fits a model from settled invoices. Rows missing either date, or
// paid before their transaction date, are dropped. Fewer than
// minTrainingSamples valid rows leaves the predictor untrained; no error
// is returned because thin history is expected, not exceptional.
func (p *PaymentPredictor) Train(history []HistoricalItem) TrainingResult {
	var rows [][]float64
	var targets []float64

	for _, h := range history {
		if h.TxnDate.IsZero() || h.PaymentDate.IsZero() {
			continue
		}
		daysToPay := DaysBetween(h.TxnDate, h.PaymentDate)
		if daysToPay < 0 {
			continue
		}
		rows = append(rows, featureRow(OpenItem{
			CustomerID: h.CustomerID,
			Amount:     h.Amount,
			TermsDays:  h.TermsDays,
			TxnDate:    h.TxnDate,
		}))
		targets = append(targets, float64(daysToPay))
	}

	if len(rows) < minTrainingSamples {
		p.snapshot.Store(nil)
		return TrainingResult{
			Success: false,
			Samples: len(rows),
			Message: fmt.Sprintf("insufficient data: %d valid rows, need %d", len(rows), minTrainingSamples),
		}
	}

	model, err := fitLinearModel(rows, targets)
	if err != nil {
		p.snapshot.Store(nil)
		return TrainingResult{
			Success: false,
			Samples: len(rows),
			Message: fmt.Sprintf("fit failed: %v", err),
		}
	}

	snap := &modelSnapshot{
		model:     model,
		samples:   len(rows),
		score:     model.score(),
		trainedAt: model.trainedAt,
	}
	p.snapshot.Store(snap)

	return TrainingResult{
		Success:   true,
		Samples:   snap.samples,
		Score:     snap.score,
		TrainedAt: snap.trainedAt,
	}
}

// featureRow extracts the model features from an item. Absent transaction
// dates yield neutral calendar features rather than dropping the row -
// row count must match the caller's item count.
func featureRow(item OpenItem) []float64 {
	amount, _ := item.Amount.Float64()
	dayOfWeek := 0.0
	month := 1.0
	if !item.TxnDate.IsZero() {
		dayOfWeek = float64(item.TxnDate.Weekday())
		month = float64(item.TxnDate.Month())
	}
	return []float64{
		amount,
		defaultCustomerAvgDays,
		float64(item.TermsDays),
		dayOfWeek,
		month,
	}
}

// =============================================================================
// SINGLE-ITEM PREDICTION
// =============================================================================

// PredictExpectedDate predicts the payment date for one item via the
// fallback ladder. ok is false only when the item carries no usable date.
func (p *PaymentPredictor) PredictExpectedDate(item OpenItem) (Date, bool) {
	if snap := p.snapshot.Load(); snap != nil {
		if d, ok := p.modelDate(snap, item); ok {
			return d, true
		}
	}
	return p.heuristicDate(item)
}

// modelDate runs trained inference. Any unusable result (no transaction
// date to anchor on, non-finite prediction) falls through to the
// heuristic rather than propagating.
func (p *PaymentPredictor) modelDate(snap *modelSnapshot, item OpenItem) (Date, bool) {
	if item.TxnDate.IsZero() {
		return Date{}, false
	}
	days := snap.model.predictOne(featureRow(item))
	if math.IsNaN(days) || math.IsInf(days, 0) {
		return Date{}, false
	}
	return item.TxnDate.AddDays(clampDays(days)), true
}

// heuristicDate assumes payment lands heuristicLateDays after the due
// date. No due date, no prediction.
func (p *PaymentPredictor) heuristicDate(item OpenItem) (Date, bool) {
	if item.DueDate.IsZero() {
		return Date{}, false
	}
	return item.DueDate.AddDays(heuristicLateDays), true
}

// clampDays rounds a predicted day count and keeps it at least one day
// out: a payment never lands before its own transaction.
func clampDays(days float64) int {
	n := int(math.Round(days))
	if n < 1 {
		n = 1
	}
	return n
}

// =============================================================================
// BATCH PREDICTION
// =============================================================================

// PredictMultiple predicts the whole batch at once, keyed by addressable
// identifier. Projections call this exactly once at construction; the
// result is their prediction cache.
//
// A single bad item degrades to the heuristic for that item only.
func (p *PaymentPredictor) PredictMultiple(items []OpenItem) map[string]Prediction {
	results := make(map[string]Prediction)

	remaining := items
	if p.behavior != nil {
		remaining = p.predictByBehavior(items, results)
	}

	snap := p.snapshot.Load()
	if snap == nil {
		p.applyHeuristics(remaining, results)
		return results
	}

	// Every remaining item gets a feature row, addressable or not: the
	// model output is positional and skipping a row would misassign
	// every prediction after it.
	rows := make([][]float64, len(remaining))
	keys := make([]string, len(remaining))
	for i, item := range remaining {
		rows[i] = featureRow(item)
		keys[i] = item.AddressableID()
	}

	preds := snap.model.predictBatch(rows)
	confidence := clamp01(snap.score)

	for i, item := range remaining {
		if i >= len(preds) {
			break
		}
		if keys[i] == "" {
			continue // slot consumed, nothing to key it under
		}
		days := preds[i]
		if math.IsNaN(days) || math.IsInf(days, 0) || item.TxnDate.IsZero() {
			if d, ok := p.heuristicDate(item); ok {
				results[keys[i]] = Prediction{Date: d, Confidence: heuristicConfidence}
			}
			continue
		}
		results[keys[i]] = Prediction{
			Date:       item.TxnDate.AddDays(clampDays(days)),
			Confidence: confidence,
		}
	}

	// Fill pass: anything addressable that slipped through (model row
	// unusable and no heuristic applied above) gets one more heuristic try.
	p.applyHeuristics(remaining, results)

	return results
}

// predictByBehavior resolves items through the per-customer analyzer and
// returns the items it could not handle.
func (p *PaymentPredictor) predictByBehavior(items []OpenItem, results map[string]Prediction) []OpenItem {
	var remaining []OpenItem
	for _, item := range items {
		if item.CustomerID == "" || item.DueDate.IsZero() {
			remaining = append(remaining, item)
			continue
		}
		behavior, ok := p.behavior.AnalyzeCustomer(item.CustomerID)
		if !ok {
			remaining = append(remaining, item)
			continue
		}
		if key := item.AddressableID(); key != "" {
			results[key] = Prediction{
				Date:       item.DueDate.AddDays(int(math.Round(behavior.AverageDelay))),
				Confidence: clamp01(behavior.ConfidenceScore),
			}
		}
	}
	return remaining
}

// applyHeuristics fills heuristic predictions for addressable items not
// yet in results.
func (p *PaymentPredictor) applyHeuristics(items []OpenItem, results map[string]Prediction) {
	for _, item := range items {
		key := item.AddressableID()
		if key == "" {
			continue
		}
		if _, done := results[key]; done {
			continue
		}
		if d, ok := p.heuristicDate(item); ok {
			results[key] = Prediction{Date: d, Confidence: heuristicConfidence}
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
