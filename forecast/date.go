package forecast

import (
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date
// =============================================================================

// Date is a calendar date with day granularity. All engine inputs and
// outputs use dates, never instants: a flow lands on a day, not a moment.
// The zero value means "absent" - records with unparseable date fields
// carry zero Dates and downstream code checks IsZero.
type Date struct {
	Time time.Time
}

const dateLayout = "2006-01-02"

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. The boolean is false for empty or
// malformed input; callers skip the record rather than erroring.
func ParseDate(s string) (Date, bool) {
	if s == "" {
		return Date{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, false
	}
	return Date{Time: t}, true
}

func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.normalize().AddDate(0, 0, n)} }

// AddMonthsClamped adds n months preserving the day-of-month, clamping to
// the last day of the target month on overflow (Jan 31 + 1 month = Feb 28,
// or Feb 29 in a leap year). time.AddDate would roll Jan 31 into Mar 3,
// which is wrong for monthly billing rules.
func (d Date) AddMonthsClamped(n int) Date {
	year := d.Time.Year()
	month := int(d.Time.Month()) + n
	year += (month - 1) / 12
	month = (month-1)%12 + 1
	if month < 1 {
		month += 12
		year--
	}
	day := d.Time.Day()
	if last := daysInMonth(year, time.Month(month)); day > last {
		day = last
	}
	return NewDate(year, time.Month(month), day)
}

func daysInMonth(year int, month time.Month) int {
	// First day of next month, minus one day.
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1).Day()
}

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

func (d Date) String() string { return d.normalize().Format(dateLayout) }

// DaysBetween returns the whole-day distance from one date to another.
func DaysBetween(from, to Date) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

func minDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func maxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}
