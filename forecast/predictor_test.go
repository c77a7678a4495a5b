package forecast_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vzt/cashflow-engine/forecast"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func historyWithConstantLag(n, daysToPay int) []forecast.HistoricalItem {
	items := make([]forecast.HistoricalItem, 0, n)
	issued := forecast.NewDate(2026, time.January, 5)
	for i := 0; i < n; i++ {
		txn := issued.AddDays(i * 7)
		items = append(items, forecast.HistoricalItem{
			CustomerID:  "cust-1",
			Amount:      decimal.NewFromInt(int64(1000 + 250*i)),
			TermsDays:   30,
			TxnDate:     txn,
			PaymentDate: txn.AddDays(daysToPay),
		})
	}
	return items
}

// =============================================================================
// UNTRAINED BEHAVIOR
// =============================================================================

func TestPredictExpectedDate_Untrained_UsesDueDateHeuristic(t *testing.T) {
	// GIVEN: a fresh predictor with no training data
	// WHEN: predicting an item with a due date
	// THEN: the prediction is due date + 5 days, deterministically

	p := forecast.NewPaymentPredictor()
	assert.False(t, p.IsTrained())

	item := forecast.OpenItem{
		ID:      "inv-1",
		Amount:  decimal.NewFromInt(500),
		DueDate: forecast.NewDate(2023, time.October, 1),
	}

	for i := 0; i < 3; i++ {
		date, ok := p.PredictExpectedDate(item)
		require.True(t, ok)
		assert.Equal(t, "2023-10-06", date.String())
	}
}

func TestPredictExpectedDate_NoUsableDates(t *testing.T) {
	p := forecast.NewPaymentPredictor()

	_, ok := p.PredictExpectedDate(forecast.OpenItem{ID: "inv-1", Amount: decimal.NewFromInt(100)})
	assert.False(t, ok, "an item with neither txn nor due date has no prediction")
}

func TestPredictMultiple_Untrained_HeuristicsAndSkips(t *testing.T) {
	p := forecast.NewPaymentPredictor()

	results := p.PredictMultiple([]forecast.OpenItem{
		{ID: "a", DueDate: forecast.NewDate(2026, time.March, 1)},
		{ID: "b"}, // no dates at all
		{DocNumber: "DOC-7", DueDate: forecast.NewDate(2026, time.March, 10)},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "2026-03-06", results["a"].Date.String())
	assert.Equal(t, 0.5, results["a"].Confidence)
	assert.Equal(t, "2026-03-15", results["DOC-7"].Date.String(), "doc number is the fallback key")
	_, found := results["b"]
	assert.False(t, found)
}

// =============================================================================
// TRAINING
// =============================================================================

func TestTrain_InsufficientData(t *testing.T) {
	// GIVEN: fewer than the minimum valid history rows
	// WHEN: training
	// THEN: the run is refused and the predictor stays untrained

	p := forecast.NewPaymentPredictor()
	result := p.Train(historyWithConstantLag(4, 30))

	assert.False(t, result.Success)
	assert.Equal(t, 4, result.Samples)
	assert.Contains(t, result.Message, "insufficient data")
	assert.False(t, p.IsTrained())
}

func TestTrain_DirtyRowsAreDropped(t *testing.T) {
	// Ten rows, but two are unusable: missing payment date, paid before
	// issue. Eight valid rows is below the threshold.

	history := historyWithConstantLag(10, 30)
	history[3].PaymentDate = forecast.Date{}
	history[7].PaymentDate = history[7].TxnDate.AddDays(-2)

	p := forecast.NewPaymentPredictor()
	result := p.Train(history)

	assert.False(t, result.Success)
	assert.Equal(t, 8, result.Samples)
	assert.False(t, p.IsTrained())
}

func TestTrain_Success(t *testing.T) {
	// GIVEN: twelve settled invoices all paid exactly 30 days after issue
	// WHEN: training and predicting
	// THEN: the model predicts txn date + 30 with full confidence

	p := forecast.NewPaymentPredictor()
	result := p.Train(historyWithConstantLag(12, 30))

	require.True(t, result.Success, "message: %s", result.Message)
	assert.Equal(t, 12, result.Samples)
	assert.InDelta(t, 1.0, result.Score, 1e-6)
	assert.True(t, p.IsTrained())

	status := p.Status()
	assert.True(t, status.Trained)
	assert.Equal(t, 12, status.Samples)
	assert.False(t, status.TrainedAt.IsZero())

	txn := forecast.NewDate(2026, time.March, 2)
	date, ok := p.PredictExpectedDate(forecast.OpenItem{
		ID:      "inv-9",
		Amount:  decimal.NewFromInt(2000),
		TxnDate: txn,
	})
	require.True(t, ok)
	assert.Equal(t, txn.AddDays(30).String(), date.String())
}

func TestTrain_FailureReturnsToUntrained(t *testing.T) {
	p := forecast.NewPaymentPredictor()
	require.True(t, p.Train(historyWithConstantLag(12, 30)).Success)
	require.True(t, p.IsTrained())

	// A retrain on thin data does not keep the stale model around.
	p.Train(historyWithConstantLag(3, 30))
	assert.False(t, p.IsTrained())
	assert.False(t, p.Status().Trained)
}

func TestTrain_ModelItemWithoutTxnDateFallsBack(t *testing.T) {
	p := forecast.NewPaymentPredictor()
	require.True(t, p.Train(historyWithConstantLag(12, 30)).Success)

	// No txn date to anchor model inference on; the ladder degrades to
	// the due date heuristic.
	date, ok := p.PredictExpectedDate(forecast.OpenItem{
		ID:      "inv-2",
		DueDate: forecast.NewDate(2026, time.April, 1),
	})
	require.True(t, ok)
	assert.Equal(t, "2026-04-06", date.String())
}

// =============================================================================
// BEHAVIOR ANALYZER
// =============================================================================

type stubAnalyzer struct {
	known map[string]forecast.CustomerBehavior
}

func (s stubAnalyzer) AnalyzeCustomer(customerID string) (forecast.CustomerBehavior, bool) {
	b, ok := s.known[customerID]
	return b, ok
}

func TestPredictMultiple_BehaviorAnalyzerOutranksHeuristic(t *testing.T) {
	analyzer := stubAnalyzer{known: map[string]forecast.CustomerBehavior{
		"cust-late": {AverageDelay: 12, ConfidenceScore: 0.9},
	}}
	p := forecast.NewPaymentPredictorWithBehavior(analyzer)

	due := forecast.NewDate(2026, time.May, 1)
	results := p.PredictMultiple([]forecast.OpenItem{
		{ID: "a", CustomerID: "cust-late", DueDate: due},
		{ID: "b", CustomerID: "cust-unknown", DueDate: due},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "2026-05-13", results["a"].Date.String(), "due + average delay")
	assert.Equal(t, 0.9, results["a"].Confidence)
	assert.Equal(t, "2026-05-06", results["b"].Date.String(), "unknown customer falls back")
	assert.Equal(t, 0.5, results["b"].Confidence)
}
