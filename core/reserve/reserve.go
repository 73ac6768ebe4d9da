// Package reserve evaluates spinning reserve for each region after all of
// its fuel groups have been assigned.
//
// Reads: GenParams (Future), Assignments, Units, Params.
// Writes: ReserveChecks.
//
// The required reserve at an hour is the capacity of the largest unit
// actually operating anywhere in the region, scaled by the demand cushion.
// The available reserve is total regional capacity minus total regional load.
package reserve

import (
	"sort"

	"go.uber.org/zap"

	"egu-projection/core/store"
	"egu-projection/core/types"
	"egu-projection/internal/logging"
)

// Check evaluates every hour of one region, ranked by descending total load,
// and appends a ReserveCheck row per hour.
func Check(w *store.WorkingSet, region string) {
	groups := w.GroupsInRegion(region)
	if len(groups) == 0 {
		return
	}

	cushion := regionCushion(w, groups)
	capacity := w.RegionCapacity(region)

	type hourLoad struct {
		calendarHour int
		load         float64
	}
	loads := make([]hourLoad, w.Calendar.Hours())
	for i := range loads {
		loads[i].calendarHour = i + 1
	}
	for _, g := range groups {
		for _, p := range w.GenParams[g] {
			loads[p.CalendarHour-1].load += p.Future
		}
	}
	sort.SliceStable(loads, func(i, j int) bool { return loads[i].load > loads[j].load })

	failed := 0
	for rank, h := range loads {
		needed := largestOperating(w, groups, h.calendarHour) * cushion
		available := capacity - h.load

		check := types.ReserveCheck{
			Region:       region,
			CalendarHour: h.calendarHour,
			Rank:         rank + 1,
			Pass:         available >= needed,
			Needed:       needed,
			Available:    available,
		}
		if !check.Pass {
			check.Deficit = needed - available
			failed++
		}
		w.ReserveChecks = append(w.ReserveChecks, check)
	}

	if failed > 0 {
		logging.Warn("spinning reserve requirement not met",
			logging.Region(region), zap.Int("hours_failed", failed),
		)
	}
}

// largestOperating returns the capacity of the biggest unit with nonzero
// load at one calendar hour, across the region's fuel groups.
func largestOperating(w *store.WorkingSet, groups []types.GroupKey, calendarHour int) float64 {
	largest := 0.0
	for _, g := range groups {
		rank := 0
		for _, p := range w.GenParams[g] {
			if p.CalendarHour == calendarHour {
				rank = p.Rank
				break
			}
		}
		if rank == 0 {
			continue
		}
		for _, k := range w.UnitRanks[g] {
			u := w.Unit(g, k)
			if u == nil {
				continue
			}
			rows := w.Assignments[g][k]
			if rows == nil || rows[rank-1] == nil || rows[rank-1].Load <= 0 {
				continue
			}
			if c := u.Capacity(); c > largest {
				largest = c
			}
		}
	}
	return largest
}

// regionCushion takes the demand cushion from the region's configured groups.
// The cushion is a regional property; differing per-fuel values are a
// configuration slip, resolved by taking the largest.
func regionCushion(w *store.WorkingSet, groups []types.GroupKey) float64 {
	cushion := 0.0
	distinct := 0
	for _, g := range groups {
		if params := w.Params[g]; params != nil && params.DemandCushion > 0 {
			if params.DemandCushion != cushion {
				distinct++
			}
			if params.DemandCushion > cushion {
				cushion = params.DemandCushion
			}
		}
	}
	if distinct > 1 {
		logging.Warn("demand cushion differs across fuel groups in one region; using the largest",
			logging.Region(groups[0].Region),
		)
	}
	return cushion
}
