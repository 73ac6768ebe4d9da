package hierarchy

import (
	"sort"

	"egu-projection/core/store"
	"egu-projection/core/types"
	"egu-projection/internal/logging"
)

// defaultPlacementPct is used when a group has no configured placement
// percentile for new units.
const defaultPlacementPct = 95.0

// BuildUnits ranks a group's units for allocation priority.
//
// Pass 1 ranks every unit active during any overlap of base and future year
// by descending base-year utilization, excluding non-generating units.
// Pass 2 ranks units that come online only after the base year by descending
// maximum utilization and splices them in at a percentile-chosen anchor,
// shifting lower-ranked units down.
func BuildUnits(w *store.WorkingSet, g types.GroupKey) {
	units := w.Units[g]

	var existing, arriving []*types.Unit
	for _, u := range units {
		if u.Status == types.StatusNonGenerating {
			continue
		}
		if u.Offline.Before(w.Calendar.FirstFutureDay()) || u.Offline.Equal(w.Calendar.FirstFutureDay()) {
			continue
		}
		if u.Online.Before(w.Calendar.DayAfterBase()) {
			existing = append(existing, u)
		} else if u.Online.Before(w.Calendar.DayAfterFuture()) {
			arriving = append(arriving, u)
		}
	}

	sort.Slice(existing, func(i, j int) bool {
		if existing[i].BaseUF != existing[j].BaseUF {
			return existing[i].BaseUF > existing[j].BaseUF
		}
		return lessByID(existing[i], existing[j])
	})
	ranked := make([]types.UnitKey, 0, len(existing)+len(arriving))
	for _, u := range existing {
		ranked = append(ranked, u.Key)
	}

	if len(arriving) > 0 {
		sort.Slice(arriving, func(i, j int) bool {
			ui := arriving[i].EffectiveUF(0)
			uj := arriving[j].EffectiveUF(0)
			if ui != uj {
				return ui > uj
			}
			return lessByID(arriving[i], arriving[j])
		})

		pct := defaultPlacementPct
		if params := w.Params[g]; params != nil && params.PlacementPct > 0 {
			pct = params.PlacementPct
		} else {
			logging.Warn("no placement percentile configured, using default",
				logging.Region(g.Region), logging.Fuel(g.Fuel),
			)
		}
		anchor := anchorRank(len(ranked), pct)

		spliced := make([]types.UnitKey, 0, len(ranked)+len(arriving))
		spliced = append(spliced, ranked[:anchor]...)
		for _, u := range arriving {
			spliced = append(spliced, u.Key)
		}
		spliced = append(spliced, ranked[anchor:]...)
		ranked = spliced
	}

	w.UnitRanks[g] = ranked
}

// anchorRank computes how many existing ranks stay above the inserted units.
// nextRank is one past the last occupied rank, matching the running
// allocation counter the placement rule is defined against.
func anchorRank(rankedCount int, placementPct float64) int {
	nextRank := rankedCount + 1
	anchor := nextRank - int(float64(nextRank)*placementPct/100.0)
	if anchor < 0 {
		anchor = 0
	}
	if anchor > rankedCount {
		anchor = rankedCount
	}
	return anchor
}

// lessByID breaks utilization ties by facility then unit id, ascending
func lessByID(a, b *types.Unit) bool {
	if a.Key.Facility != b.Key.Facility {
		return a.Key.Facility < b.Key.Facility
	}
	return a.Key.Unit < b.Key.Unit
}

// InsertAfterNew splices a synthesized unit into the hierarchy directly
// after the group's highest-ranked unit with no base-year history, or at the
// percentile anchor when none exists. Returns the inserted 1-based rank.
func InsertAfterNew(w *store.WorkingSet, g types.GroupKey, key types.UnitKey) int {
	ranked := w.UnitRanks[g]

	insertAt := -1
	for i, k := range ranked {
		u := w.Unit(g, k)
		if u != nil && u.IsNew() {
			insertAt = i
		}
	}
	if insertAt < 0 {
		pct := defaultPlacementPct
		if params := w.Params[g]; params != nil && params.PlacementPct > 0 {
			pct = params.PlacementPct
		}
		insertAt = anchorRank(len(ranked), pct) - 1
	}

	pos := insertAt + 1
	out := make([]types.UnitKey, 0, len(ranked)+1)
	out = append(out, ranked[:pos]...)
	out = append(out, key)
	out = append(out, ranked[pos:]...)
	w.UnitRanks[g] = out
	return pos + 1
}
