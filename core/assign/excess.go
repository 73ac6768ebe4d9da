package assign

import (
	"egu-projection/core/store"
	"egu-projection/core/types"
)

// AllocateExcess redistributes each hour's leftover excess-generation pool
// in two ordered passes over the unit hierarchy: the first raises eligible
// units to their optimal-load threshold, the second to their hard hourly
// maximum. Whatever remains after both passes stays in the pool as an honest
// deficit; generation is never forced onto a unit beyond its limits.
//
// Raising output at one hour changes year-to-date totals for every later
// hour, so both passes propagate deltas through the cumulative chain to the
// last-ranked hour.
func AllocateExcess(w *store.WorkingSet, g types.GroupKey) {
	lastRank := len(w.GenParams[g])
	if lastRank == 0 {
		return
	}

	for _, p := range w.HoursByRank(g) {
		excess := p.ExcessPool
		excess = excessPass(w, g, p, excess, lastRank, false)
		excess = excessPass(w, g, p, excess, lastRank, true)
		p.ExcessPool = excess
	}
}

// excessPass runs one allocation pass at one hour. toMaximum false targets
// each unit's optimal-load heat input; true targets its hourly maximum.
func excessPass(w *store.WorkingSet, g types.GroupKey, p *types.GenParams, excess float64, lastRank int, toMaximum bool) float64 {
	if excess <= 0 {
		return excess
	}
	futureDate := w.Calendar.FutureDate(p.CalendarHour)

	for _, k := range w.UnitRanks[g] {
		if excess <= 0 {
			break
		}
		u := w.Unit(g, k)
		if u == nil || u.HeatRate <= 0 {
			continue
		}

		var targetHI float64
		if toMaximum {
			if u.MaxHourlyHI <= 0 {
				continue
			}
			targetHI = u.MaxHourlyHI
		} else {
			if u.OptimalLoad == nil {
				continue
			}
			targetHI = u.HeatRate * *u.OptimalLoad / 1000.0
		}

		rows := w.UnitAssignments(g, k)
		row := rows[p.Rank-1]
		last := rows[lastRank-1]
		if row == nil || last == nil {
			continue
		}
		if row.HeatInput >= targetHI || last.AnnualLimited || !u.ActiveOn(futureDate) {
			continue
		}

		// Raising a unit from idle adds an operating hour; respect the cap.
		addsHour := row.Load == 0
		if addsHour {
			if cap := hourCap(w, g, u); cap != nil && last.CumHours+1 > *cap {
				continue
			}
		}

		initialLoad := row.Load
		initialHI := row.HeatInput

		load := initialLoad + excess
		excess = 0
		heatInput := u.HeatRate * load / 1000.0

		if heatInput > targetHI {
			excess += (heatInput - targetHI) * 1000.0 / u.HeatRate
			heatInput = targetHI
			load = heatInput * 1000.0 / u.HeatRate
		}

		annualExhausted := false
		if cap := annualCap(w, g, u); cap > 0 {
			headroom := cap - last.CumHI
			if heatInput > initialHI+headroom {
				// All remaining annual capacity through year end is used.
				excess += (heatInput - (initialHI + headroom)) * 1000.0 / u.HeatRate
				heatInput = initialHI + headroom
				load = heatInput * 1000.0 / u.HeatRate
				annualExhausted = true
			}
		}

		if toMaximum && heatInput >= u.MaxHourlyHI {
			row.HourlyLimited = true
		}

		deltaHI := heatInput - initialHI
		deltaGen := load - initialLoad
		if deltaHI <= 0 && deltaGen <= 0 {
			continue
		}

		row.Load = load
		row.HeatInput = heatInput

		hoursDelta := 0
		if addsHour && load > 0 {
			hoursDelta = 1
		}
		for r := p.Rank; r <= lastRank; r++ {
			cr := rows[r-1]
			if cr == nil {
				continue
			}
			cr.CumHI += deltaHI
			cr.CumGen += deltaGen
			cr.CumHours += hoursDelta
		}
		if annualExhausted {
			last.AnnualLimited = true
		}
	}
	return excess
}
