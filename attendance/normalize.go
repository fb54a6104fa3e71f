package attendance

import (
	"sort"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// PUNCH NORMALIZATION & DEDUPLICATION
// =============================================================================

// NormalizePunches returns a sorted working copy of the punches. Ties on the
// instant are broken by ID so the order is stable across runs. Duplicate
// marks on the input are cleared.
func NormalizePunches(punches []Punch) []Punch {
	out := make([]Punch, len(punches))
	for i, p := range punches {
		out[i] = Punch{ID: p.ID, At: generic.InLocal(p.At), Type: p.Type}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].ID < out[j].ID
		}
		return out[i].At.Before(out[j].At)
	})
	return out
}

// MarkDuplicates flags every punch that has the same type as its immediate
// predecessor and lies within windowMinutes of it. The comparison is
// pairwise: three same-type punches one minute apart yield two duplicates,
// each pointing at the punch right before it.
//
// The punches must already be sorted. The slice is updated in place and the
// duplicate ids are returned in order.
func MarkDuplicates(punches []Punch, windowMinutes int) []generic.PunchID {
	var dupIDs []generic.PunchID
	for i := range punches {
		punches[i].IsDuplicate = false
		punches[i].DuplicateOfID = 0
		if i == 0 {
			continue
		}
		prev, cur := punches[i-1], &punches[i]
		if cur.Type != prev.Type {
			continue
		}
		if generic.AbsDiffMinutes(prev.At, cur.At) <= windowMinutes {
			cur.IsDuplicate = true
			cur.DuplicateOfID = prev.ID
			dupIDs = append(dupIDs, cur.ID)
		}
	}
	return dupIDs
}

// UsablePunches drops duplicates, keeping chronological order.
func UsablePunches(punches []Punch) []Punch {
	usable := make([]Punch, 0, len(punches))
	for _, p := range punches {
		if !p.IsDuplicate {
			usable = append(usable, p)
		}
	}
	return usable
}

// firstOfType returns the earliest usable punch of the given type.
func firstOfType(punches []Punch, t PunchType) (Punch, bool) {
	for _, p := range punches {
		if p.Type == t {
			return p, true
		}
	}
	return Punch{}, false
}

// lastOfType returns the latest usable punch of the given type.
func lastOfType(punches []Punch, t PunchType) (Punch, bool) {
	for i := len(punches) - 1; i >= 0; i-- {
		if punches[i].Type == t {
			return punches[i], true
		}
	}
	return Punch{}, false
}
