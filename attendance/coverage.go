package attendance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// COVERAGE - How much of the required time was actually worked
// =============================================================================

// ratioPlaces is the precision of reported coverage ratios.
const ratioPlaces = 4

// BlockCoverage reports one expected block against the complete sessions.
type BlockCoverage struct {
	Start           time.Time       `json:"start"`
	End             time.Time       `json:"end"`
	RequiredMinutes int             `json:"required_minutes"`
	CoveredMinutes  int             `json:"covered_minutes"`
	Ratio           decimal.Decimal `json:"ratio"`
}

// Coverage is informational. Classification never reads it.
type Coverage struct {
	Blocks          []BlockCoverage `json:"blocks"`
	RequiredMinutes int             `json:"required_minutes"`
	CoveredMinutes  int             `json:"covered_minutes"`
	Ratio           decimal.Decimal `json:"ratio"`
}

// ComputeCoverage sums, per block, the overlap with every worked range.
// Covered minutes are capped at the block's own length.
func ComputeCoverage(expected []generic.TimeRange, worked []generic.TimeRange) Coverage {
	cov := Coverage{Blocks: make([]BlockCoverage, 0, len(expected)), Ratio: decimal.Zero}

	for _, block := range expected {
		required := block.Minutes()
		covered := 0
		for _, w := range worked {
			covered += generic.OverlapMinutes(w, block)
		}
		covered = min(covered, required)

		cov.Blocks = append(cov.Blocks, BlockCoverage{
			Start:           block.Start,
			End:             block.End,
			RequiredMinutes: required,
			CoveredMinutes:  covered,
			Ratio:           ratio(covered, required),
		})
		cov.RequiredMinutes += required
		cov.CoveredMinutes += covered
	}
	cov.Ratio = ratio(cov.CoveredMinutes, cov.RequiredMinutes)
	return cov
}

func ratio(covered, required int) decimal.Decimal {
	if required <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(covered)).
		DivRound(decimal.NewFromInt(int64(required)), ratioPlaces)
}
