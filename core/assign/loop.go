// Package assign implements the hourly generation assignment loop and the
// two-pass excess allocator.
//
// Reads: Units, Base, Proxy, UnitRanks, GenParams, Params.
// Writes: GenParams (TotalProxy, Adjusted, AFYGR, ExcessPool), Assignments.
//
// The loop walks hours in hierarchy-rank order and units in allocation
// order, clamping each unit to its hourly heat-input limit, its effective
// annual cap, and its operating-hour cap, in that order. A capacity deficit
// detected at the configured review rank discards the group's assignment
// records and surfaces the shortfall to the caller, which synthesizes
// generic units and restarts from rank 1. Returning an explicit Outcome
// keeps the rollback visible at the call site instead of buried in shared
// state.
package assign

import (
	"egu-projection/core/store"
	"egu-projection/core/types"
)

// Outcome reports how one pass of the assignment loop ended
type Outcome struct {
	// Deficit is the capacity shortfall detected at the review rank;
	// zero means the pass completed.
	Deficit float64
}

// Complete reports whether the pass finished without a capacity deficit
func (o Outcome) Complete() bool {
	return o.Deficit <= 0
}

// Run executes one full pass of the assignment loop for a group
func Run(w *store.WorkingSet, g types.GroupKey) Outcome {
	params := w.Params[g]
	fleetCapacity := w.FleetCapacity(g)
	maxFuture := 0.0

	for _, p := range w.HoursByRank(g) {
		maxFuture = max(maxFuture, p.Future)

		totalProxy := w.TotalProxyAt(g, p.CalendarHour)
		p.TotalProxy = totalProxy
		p.Adjusted = max(p.Future-totalProxy, 0)
		denom := p.BaseActual - p.BaseRetired
		if denom > 0 {
			p.AFYGR = p.Adjusted / denom
		} else {
			p.AFYGR = 0
		}

		if params != nil && p.Rank == params.DeficitReviewRank && maxFuture > fleetCapacity {
			// Early exit: roll back this pass entirely and let the caller
			// add capacity before restarting.
			w.ResetAssignments(g)
			return Outcome{Deficit: maxFuture - fleetCapacity}
		}

		assignProxyHour(w, g, p)
		assignGrownHour(w, g, p)

		assigned := 0.0
		for _, k := range w.UnitRanks[g] {
			if row := w.UnitAssignments(g, k)[p.Rank-1]; row != nil {
				assigned += row.Load
			}
		}
		p.ExcessPool = max(p.Future-assigned, 0)
	}
	return Outcome{}
}

// assignProxyHour assigns proxy generation to every new unit at one hour.
// When the hour's total proxy exceeds projected demand, each unit's share is
// scaled down proportionally.
func assignProxyHour(w *store.WorkingSet, g types.GroupKey, p *types.GenParams) {
	for _, k := range w.UnitRanks[g] {
		u := w.Unit(g, k)
		if u == nil || !u.IsNew() {
			continue
		}
		profile := w.Proxy[g][k]
		load := 0.0
		if profile != nil {
			load = profile[p.CalendarHour-1]
		}
		if p.TotalProxy > 0 && p.Future < p.TotalProxy {
			load = load * p.Future / p.TotalProxy
		}
		writeAssignment(w, g, u, p, load)
	}
}

// assignGrownHour assigns grown base-year generation to every existing unit
// at one hour. Retired and capacity-limited units contribute zero.
func assignGrownHour(w *store.WorkingSet, g types.GroupKey, p *types.GenParams) {
	futureDate := w.Calendar.FutureDate(p.CalendarHour)
	for _, k := range w.UnitRanks[g] {
		u := w.Unit(g, k)
		if u == nil || u.IsNew() {
			continue
		}
		obs := w.Base[g][k]
		load := 0.0
		if obs != nil && !u.CapacityLimited && futureDate.Before(u.Offline) {
			load = obs[p.CalendarHour-1].Gen * p.AFYGR
		}
		writeAssignment(w, g, u, p, load)
	}
}

// writeAssignment clamps a candidate load to the unit's limits and appends
// the hour's record, carrying running totals forward from the previous rank.
func writeAssignment(w *store.WorkingSet, g types.GroupKey, u *types.Unit, p *types.GenParams, load float64) {
	rows := w.UnitAssignments(g, u.Key)

	var cumHI, cumGen float64
	var cumHours int
	if p.Rank > 1 {
		if prev := rows[p.Rank-2]; prev != nil {
			cumHI, cumGen, cumHours = prev.CumHI, prev.CumGen, prev.CumHours
		}
	}

	row := &types.Assignment{CalendarHour: p.CalendarHour, Rank: p.Rank}
	load, heatInput := clampHour(w, g, u, row, load, cumHI)

	// Operating-hour cap: a nonzero assignment that would exceed the cap is
	// zeroed outright, not reduced.
	if cap := hourCap(w, g, u); cap != nil && load > 0 {
		if cumHours+1 > *cap {
			load = 0
			heatInput = 0
			row.HoursLimited = true
		} else {
			cumHours++
		}
	} else if load > 0 {
		cumHours++
	}

	row.Load = load
	row.HeatInput = heatInput
	row.CumHI = cumHI + heatInput
	row.CumGen = cumGen + load
	row.CumHours = cumHours
	rows[p.Rank-1] = row
}

// clampHour applies the hourly then annual heat-input limits, setting the
// row's flags, and returns the clamped load and heat input.
func clampHour(w *store.WorkingSet, g types.GroupKey, u *types.Unit, row *types.Assignment, load, cumHI float64) (float64, float64) {
	heatInput := 0.0
	if u.HeatRate > 0 && load > 0 {
		heatInput = u.HeatRate * load / 1000.0
	}

	if u.MaxHourlyHI > 0 && heatInput >= u.MaxHourlyHI {
		row.HourlyLimited = true
		heatInput = u.MaxHourlyHI
		load = heatInput * 1000.0 / u.HeatRate
	}

	if cap := annualCap(w, g, u); cap > 0 && cumHI+heatInput >= cap {
		row.AnnualLimited = true
		heatInput = cap - cumHI
		if heatInput < 0 {
			heatInput = 0
		}
		if u.HeatRate > 0 {
			load = heatInput * 1000.0 / u.HeatRate
		} else {
			load = 0
		}
	}
	return load, heatInput
}

// annualCap is the unit's effective annual heat-input cap: maximum hourly
// heat input times effective utilization fraction times hours in the year.
// Zero means uncapped (missing inputs).
func annualCap(w *store.WorkingSet, g types.GroupKey, u *types.Unit) float64 {
	if u.MaxHourlyHI <= 0 {
		return 0
	}
	groupDefault := 0.0
	if params := w.Params[g]; params != nil {
		groupDefault = params.MaxUF
	}
	uf := u.EffectiveUF(groupDefault)
	if uf <= 0 {
		return 0
	}
	return float64(w.Calendar.Hours()) * u.MaxHourlyHI * uf
}

// hourCap returns the unit's operating-hour cap, preferring the unit's own
// over the group default; nil means uncapped.
func hourCap(w *store.WorkingSet, g types.GroupKey, u *types.Unit) *int {
	if u.MaxOperatingHours != nil {
		return u.MaxOperatingHours
	}
	if params := w.Params[g]; params != nil {
		return params.MaxOperatingHours
	}
	return nil
}
