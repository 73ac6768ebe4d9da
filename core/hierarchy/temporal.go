// Package hierarchy builds the temporal and unit allocation orders for a
// region/fuel group.
//
// Reads: Units, Base, Params. Writes: GenParams (Rank), UnitRanks.
package hierarchy

import (
	"sort"

	"egu-projection/core/store"
	"egu-projection/core/types"
	"egu-projection/internal/errors"
)

// hourDemand is one hour's total base-year demand within a group
type hourDemand struct {
	calendarHour int
	demand       float64
}

// groupDemand totals base-year generation per calendar hour
func groupDemand(w *store.WorkingSet, g types.GroupKey) []hourDemand {
	totals := make([]hourDemand, w.Calendar.Hours())
	for i := range totals {
		totals[i].calendarHour = i + 1
	}
	for _, obs := range w.Base[g] {
		for i := range obs {
			totals[i].demand += obs[i].Gen
		}
	}
	return totals
}

// BuildTemporal assigns each calendar hour a hierarchy rank by descending
// total demand. For bucketed granularities the bucket's maximum demand ranks
// the whole bucket, and hours within a bucket take consecutive ranks in
// calendar order.
func BuildTemporal(w *store.WorkingSet, g types.GroupKey) error {
	params := w.Params[g]
	if params == nil {
		return errors.Config("no run parameters for group").WithGroup(g.Region, g.Fuel)
	}
	bucketSize := params.Hierarchy.BucketSize()
	if bucketSize == 0 {
		return errors.Newf(errors.TypeConfig, "unknown hourly hierarchy code %q", string(params.Hierarchy)).
			WithGroup(g.Region, g.Fuel)
	}

	demand := groupDemand(w, g)
	parms := w.EnsureGenParams(g)

	if bucketSize == 1 {
		order := make([]hourDemand, len(demand))
		copy(order, demand)
		sort.SliceStable(order, func(i, j int) bool {
			if order[i].demand != order[j].demand {
				return order[i].demand > order[j].demand
			}
			return order[i].calendarHour < order[j].calendarHour
		})
		for rank, h := range order {
			parms[h.calendarHour-1].Rank = rank + 1
		}
		return nil
	}

	// Bucketed: rank is bucket-level, not hour-level, within a bucket.
	type bucket struct {
		firstHour int
		maxDemand float64
	}
	var buckets []bucket
	for start := 0; start < len(demand); start += bucketSize {
		b := bucket{firstHour: start + 1}
		for i := start; i < start+bucketSize && i < len(demand); i++ {
			if demand[i].demand > b.maxDemand {
				b.maxDemand = demand[i].demand
			}
		}
		buckets = append(buckets, b)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].maxDemand != buckets[j].maxDemand {
			return buckets[i].maxDemand > buckets[j].maxDemand
		}
		return buckets[i].firstHour < buckets[j].firstHour
	})
	rank := 1
	for _, b := range buckets {
		for i := 0; i < bucketSize && b.firstHour+i <= len(parms); i++ {
			parms[b.firstHour-1+i].Rank = rank
			rank++
		}
	}
	return nil
}
