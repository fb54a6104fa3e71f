/*
Package generic provides the domain-agnostic primitives of the attendance engine.

PURPOSE:
  This package contains the time and interval arithmetic that the attendance
  evaluator is built on. Nothing here knows about punches, schedules or
  incidents; it only knows about instants, civil dates, wall-clock times and
  half-open ranges between instants.

KEY CONCEPTS IN THIS FILE (types.go):
  - EmployeeID / PunchID: Type-safe identifiers
  - Date: A civil calendar date with no time-of-day and no zone
  - TimeOfDay: A wall-clock time with no date and no zone

DESIGN PRINCIPLES:
  1. Half-open ranges: every comparison is [start, end)
  2. One civil zone: wall-clock values are always interpreted in LocalZone
  3. Type Safety: Strong typing for IDs prevents mixing employee/punch IDs
  4. Explicit rounding: minutes round half toward +inf, like the source data

USAGE:
  date, err := generic.ParseDate("2025-03-10")
  start := generic.CombineDateAndTimeLocal(date, generic.NewTimeOfDay(8, 30, 0))
  day := generic.DayRangeUTC(date)

SEE ALSO:
  - range.go: TimeRange, overlap and subtraction
  - time.go: Civil zone conversion helpers
  - period.go: Multi-day date ranges
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"fmt"
	"strconv"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID int64
type PunchID int64

func (id EmployeeID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id PunchID) String() string    { return strconv.FormatInt(int64(id), 10) }

// ParseEmployeeID parses a positive decimal employee id.
func ParseEmployeeID(s string) (EmployeeID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEmployeeID, s)
	}
	return EmployeeID(n), nil
}

// =============================================================================
// DATE - Civil calendar date
// =============================================================================

const DateLayout = "2006-01-02"

// Date is a calendar day with no zone attached. It only becomes an instant
// range through DayRangeUTC.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a strict YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	if len(s) != len(DateLayout) {
		return Date{}, &DateError{Value: s}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, &DateError{Value: s, Err: err}
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for fixtures and presets. It panics on bad input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the civil date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// LocalDateOf returns the civil date of an instant as observed in LocalZone.
func LocalDateOf(t time.Time) Date {
	return DateOf(t.In(LocalZone))
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool { return d == Date{} }

// midnight returns 00:00 of d in loc.
func (d Date) midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.midnight(time.UTC).AddDate(0, 0, n))
}

// Comparison
func (d Date) Before(other Date) bool        { return d.midnight(time.UTC).Before(other.midnight(time.UTC)) }
func (d Date) After(other Date) bool         { return other.Before(d) }
func (d Date) Equal(other Date) bool         { return d == other }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// DaysBetween returns the number of whole days from `from` to `to`.
func DaysBetween(from, to Date) int {
	return int(to.midnight(time.UTC).Sub(from.midnight(time.UTC)).Hours() / 24)
}

// =============================================================================
// TIME OF DAY - Wall-clock time without a date
// =============================================================================

type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute, Second: second}
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS" in 24h notation.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

func MustParseTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Seconds returns the offset from midnight in seconds.
func (t TimeOfDay) Seconds() int { return t.Hour*3600 + t.Minute*60 + t.Second }

func (t TimeOfDay) Before(other TimeOfDay) bool { return t.Seconds() < other.Seconds() }
