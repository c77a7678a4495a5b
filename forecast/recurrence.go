/*
recurrence.go - Recurring flow expansion

PURPOSE:
  Expands a recurrence rule into concrete occurrence dates inside a
  projection window. The effective range is the intersection of the
  rule's own range and the window; generation walks forward from the
  first effective occurrence and stops once past the effective end.

MONTHLY DAY OVERFLOW:
  Monthly rules preserve the day-of-month of the first effective
  occurrence. When a target month is shorter, that occurrence clamps to
  the month's last day without disturbing later months: a rule anchored
  on Jan 31 emits Feb 28 and then Mar 31, not Mar 28.
*/
package forecast

// ExpandRecurrence returns the occurrence dates of a recurring rule
// within [windowStart, windowEnd], in ascending order. Malformed rules
// (missing start, non-positive interval, unknown type) expand to nothing
// rather than erroring - a broken rule contributes no flows.
func ExpandRecurrence(rule RecurrenceRule, windowStart, windowEnd Date) []Date {
	if rule.Interval < 1 || rule.Start.IsZero() {
		return nil
	}
	if windowStart.IsZero() || windowEnd.IsZero() {
		return nil
	}

	effectiveStart := maxDate(windowStart, rule.Start)
	effectiveEnd := windowEnd
	if !rule.End.IsZero() {
		effectiveEnd = minDate(windowEnd, rule.End)
	}
	if effectiveEnd.Before(effectiveStart) {
		return nil
	}

	var dates []Date
	switch rule.Type {
	case RecurWeekly:
		step := rule.Interval * 7
		for current := effectiveStart; current.BeforeOrEqual(effectiveEnd); current = current.AddDays(step) {
			dates = append(dates, current)
		}

	case RecurMonthly:
		// Anchor on the first effective occurrence; clamp each target
		// month independently.
		for i := 0; ; i++ {
			occurrence := effectiveStart.AddMonthsClamped(i * rule.Interval)
			if occurrence.After(effectiveEnd) {
				break
			}
			dates = append(dates, occurrence)
		}

	case RecurCustomDays:
		for current := effectiveStart; current.BeforeOrEqual(effectiveEnd); current = current.AddDays(rule.Interval) {
			dates = append(dates, current)
		}
	}

	return dates
}
