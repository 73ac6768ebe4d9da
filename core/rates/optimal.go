package rates

import (
	"github.com/montanaflynn/stats"

	"egu-projection/core/store"
	"egu-projection/core/types"
)

// BuildOptimalLoads derives the optimal-load threshold for units that do not
// carry a configured one: the configured percentile of the unit's positive
// base-year hourly loads. The threshold marks where the excess allocator
// stops its first pass, so it should sit near the unit's routine operating
// level, not its extremes.
func BuildOptimalLoads(w *store.WorkingSet, g types.GroupKey) {
	params := w.Params[g]
	if params == nil || params.OptimalLoadPct <= 0 {
		return
	}
	for key, obs := range w.Base[g] {
		u := w.Unit(g, key)
		if u == nil || u.OptimalLoad != nil {
			continue
		}
		var loads []float64
		for i := range obs {
			if obs[i].Gen > 0 {
				loads = append(loads, obs[i].Gen)
			}
		}
		if len(loads) == 0 {
			continue
		}
		v, err := stats.Percentile(loads, params.OptimalLoadPct)
		if err != nil {
			continue
		}
		u.OptimalLoad = &v
	}
}
