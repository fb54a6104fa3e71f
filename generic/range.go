package generic

import (
	"sort"
	"time"
)

// =============================================================================
// TIME RANGE - Half-open interval between two instants
// =============================================================================

// TimeRange is the half-open interval [Start, End). A stored TimeRange always
// has End after Start; use NewTimeRange to build one from untrusted bounds.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange returns the range and true, or false when end <= start.
func NewTimeRange(start, end time.Time) (TimeRange, bool) {
	if !end.After(start) {
		return TimeRange{}, false
	}
	return TimeRange{Start: start, End: end}, true
}

func (r TimeRange) Duration() time.Duration { return r.End.Sub(r.Start) }

// Minutes is the rounded length of the range.
func (r TimeRange) Minutes() int { return roundMinutes(r.Duration()) }

// Contains reports whether t is in [Start, End).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Intersects reports whether the two ranges share any instant.
func (r TimeRange) Intersects(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Local returns the same range expressed in LocalZone.
func (r TimeRange) Local() TimeRange {
	return TimeRange{Start: r.Start.In(LocalZone), End: r.End.In(LocalZone)}
}

func (r TimeRange) String() string {
	return "[" + r.Start.Format(time.RFC3339) + ", " + r.End.Format(time.RFC3339) + ")"
}

// =============================================================================
// RANGE ALGEBRA
// =============================================================================

// OverlapMinutes returns the rounded number of minutes shared by a and b,
// or 0 when they do not intersect.
func OverlapMinutes(a, b TimeRange) int {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	if !end.After(start) {
		return 0
	}
	return roundMinutes(end.Sub(start))
}

// SubtractOne removes cut from base. Disjoint cuts return base unchanged;
// otherwise the left and right remainders are returned, zero-length parts
// discarded.
func SubtractOne(base, cut TimeRange) []TimeRange {
	if !base.Intersects(cut) {
		return []TimeRange{base}
	}

	var parts []TimeRange
	if cut.Start.After(base.Start) {
		if left, ok := NewTimeRange(base.Start, cut.Start); ok {
			parts = append(parts, left)
		}
	}
	if cut.End.Before(base.End) {
		if right, ok := NewTimeRange(cut.End, base.End); ok {
			parts = append(parts, right)
		}
	}
	return parts
}

// SubtractMany folds every cut over the current set of ranges, cut by cut,
// and returns the survivors sorted by start.
func SubtractMany(ranges, cuts []TimeRange) []TimeRange {
	current := append([]TimeRange(nil), ranges...)
	for _, cut := range cuts {
		next := make([]TimeRange, 0, len(current))
		for _, r := range current {
			next = append(next, SubtractOne(r, cut)...)
		}
		current = next
	}
	SortRanges(current)
	return current
}

// SortRanges orders ranges by start in place. Equal starts keep their order.
func SortRanges(ranges []TimeRange) {
	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Start.Before(ranges[j].Start)
	})
}

// TotalMinutes sums the rounded minutes of every range.
func TotalMinutes(ranges []TimeRange) int {
	total := 0
	for _, r := range ranges {
		total += r.Minutes()
	}
	return total
}
