package generic

import (
	"math"
	"time"
)

// =============================================================================
// LOCAL CIVIL ZONE
// =============================================================================

// LocalZone is the civil calendar every schedule, exception and day boundary
// is expressed in. Costa Rica observes UTC-6 with no daylight saving, so a
// fixed zone is exact and does not depend on the host tz database.
var LocalZone = time.FixedZone("America/Costa_Rica", -6*60*60)

// =============================================================================
// CONVERSIONS
// =============================================================================

// CombineDateAndTimeLocal places the wall-clock time on the civil date in
// LocalZone and returns the resulting instant.
func CombineDateAndTimeLocal(date Date, tod TimeOfDay) time.Time {
	return time.Date(date.Year, date.Month, date.Day, tod.Hour, tod.Minute, tod.Second, 0, LocalZone)
}

// DayRangeUTC returns [start of local day, start of next local day) in UTC.
func DayRangeUTC(date Date) TimeRange {
	start := date.midnight(LocalZone)
	end := date.AddDays(1).midnight(LocalZone)
	return TimeRange{Start: start.UTC(), End: end.UTC()}
}

// WeekdayLocal returns the ISO weekday of the date: 1=Monday .. 7=Sunday.
func WeekdayLocal(date Date) int {
	return ISOWeekday(date.midnight(LocalZone).Weekday())
}

// ISOWeekday maps time.Weekday (Sunday=0) onto ISO numbering (Sunday=7).
func ISOWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// InLocal converts an instant to LocalZone without changing the instant.
func InLocal(t time.Time) time.Time { return t.In(LocalZone) }

// =============================================================================
// MINUTE ARITHMETIC
// =============================================================================

// DiffMinutes returns the signed number of minutes from a to b, rounded to
// the nearest minute with halves rounded toward +inf.
func DiffMinutes(a, b time.Time) int {
	return roundMinutes(b.Sub(a))
}

func roundMinutes(d time.Duration) int {
	return int(math.Floor(d.Minutes() + 0.5))
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// AbsDiffMinutes is |DiffMinutes(a, b)|.
func AbsDiffMinutes(a, b time.Time) int { return absInt(DiffMinutes(a, b)) }
