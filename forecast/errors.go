/*
errors.go - Error types for the forecasting engine

PURPOSE:
  The engine distinguishes three failure classes and only one of them is
  an error in the Go sense:

  1. Data-quality problems (unparseable dates, missing identifiers,
     malformed recurrence rules) are absorbed by skipping the offending
     record or occurrence. They never abort a projection.
  2. Capability problems (too little training data, inference failure)
     degrade the predictor to its next fallback tier.
  3. Contract violations (a window with end before start, an amount that
     cannot be coerced) surface as errors - the request itself is bad.

USAGE:
  if errors.Is(err, forecast.ErrInvalidRange) { ... 400 ... }
*/
package forecast

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when a projection window ends before it
	// starts or a horizon is negative.
	ErrInvalidRange = errors.New("invalid range: end before start")

	// ErrInvalidAmount is returned when a currency amount cannot be
	// coerced to a decimal value.
	ErrInvalidAmount = errors.New("invalid amount")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// RangeError reports the offending projection window.
type RangeError struct {
	Start Date
	End   Date
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid projection range: start %s, end %s", e.Start, e.End)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// AmountError reports the raw value that failed coercion.
type AmountError struct {
	Field string
	Raw   string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("cannot coerce %s value %q to a decimal amount", e.Field, e.Raw)
}

func (e *AmountError) Unwrap() error { return ErrInvalidAmount }

// IsClientError returns true if the error is due to a malformed request
// rather than an engine failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) || errors.Is(err, ErrInvalidAmount)
}
