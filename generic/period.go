package generic

// =============================================================================
// DATE RANGE - Inclusive span of civil days
// =============================================================================

const (
	DefaultMaxRangeDays = 62
	MaxRangeDaysLimit   = 365
)

// DateRange is the inclusive span [From, To] of civil dates. Range
// evaluations walk it day by day.
//
// Examples:
//   - A single day: From == To
//   - A month: 2025-03-01 .. 2025-03-31 (31 days)
type DateRange struct {
	From Date
	To   Date
}

// ParseDateRange parses both bounds and checks To >= From.
func ParseDateRange(from, to string) (DateRange, error) {
	f, err := ParseDate(from)
	if err != nil {
		return DateRange{}, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return DateRange{}, err
	}
	dr := DateRange{From: f, To: t}
	if dr.To.Before(dr.From) {
		return DateRange{}, ErrInvalidRange
	}
	return dr, nil
}

// Contains returns true if the date is within [From, To].
func (dr DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(dr.From) && d.BeforeOrEqual(dr.To)
}

// Len is the number of days in the range, both ends included.
func (dr DateRange) Len() int {
	return DaysBetween(dr.From, dr.To) + 1
}

// Days returns every date in the range in ascending order.
func (dr DateRange) Days() []Date {
	days := make([]Date, 0, dr.Len())
	for current := dr.From; current.BeforeOrEqual(dr.To); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Bound rejects ranges longer than maxDays.
func (dr DateRange) Bound(maxDays int) error {
	if n := dr.Len(); n > maxDays {
		return &RangeTooLargeError{Days: n, MaxDays: maxDays}
	}
	return nil
}

// ClampMaxDays applies the default for non-positive values and the hard
// ceiling for everything else.
func ClampMaxDays(maxDays int) int {
	switch {
	case maxDays <= 0:
		return DefaultMaxRangeDays
	case maxDays > MaxRangeDaysLimit:
		return MaxRangeDaysLimit
	default:
		return maxDays
	}
}

func (dr DateRange) String() string {
	return "[" + dr.From.String() + ", " + dr.To.String() + "]"
}
