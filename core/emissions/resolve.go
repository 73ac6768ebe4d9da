// Package emissions resolves SO2, NOx, and CO2 rates for every projected
// operating hour and fills the assignment records' mass fields.
//
// Reads: Units, Base, Rates, Controls, Params, Assignments.
// Writes: Assignments (rate and mass fields).
//
// Resolution order per unit-hour: an explicit rate override wins outright; a
// control efficiency scales the resolved rate; otherwise the resolver starts
// at the configured averaging granularity and climbs to coarser levels until
// a defined, in-bounds rate is found. The annual level is terminal. Units
// with no base-year history take the group's percentile rate.
package emissions

import (
	"sort"
	"time"

	"egu-projection/core/store"
	"egu-projection/core/types"
	"egu-projection/internal/logging"
)

// defaultFactorPct is used when a group has no configured emission-factor
// percentile for never-observed units.
const defaultFactorPct = 50.0

// Resolve fills emission rates and masses for every assignment row in a
// group. It never fails: a unit with no resolvable rate gets zero mass and a
// warning.
func Resolve(w *store.WorkingSet, g types.GroupKey) {
	so2Start, noxStart := types.GranularityAnnual, types.GranularitySeasonal
	if params := w.Params[g]; params != nil {
		so2Start = params.SO2Granularity
		noxStart = params.NOxGranularity
	}

	newRates := buildNewUnitRates(w, g)

	for _, k := range w.UnitRanks[g] {
		u := w.Unit(g, k)
		if u == nil {
			continue
		}
		rows := w.Assignments[g][k]
		if rows == nil {
			continue
		}

		var agg *unitAggregates
		table := w.Rates[types.FullKey{Group: g, Unit: k}]
		useGroupRates := u.IsNew() || table == nil || len(table.Annual) == 0
		if !useGroupRates {
			agg = aggregate(w, g, k)
		}

		warned := map[types.Pollutant]bool{}
		for _, row := range rows {
			if row == nil || row.HeatInput <= 0 {
				continue
			}
			for _, p := range []types.Pollutant{types.SO2, types.NOx} {
				start := so2Start
				if p == types.NOx {
					start = noxStart
				}

				rate, ok := 0.0, false
				if useGroupRates {
					rate, ok = newRates[p]
				} else {
					rate, ok = resolveLadder(w, table, agg, p, start, row.CalendarHour)
				}
				rate, ok = applyControls(w, k, p, w.Calendar.FutureDate(row.CalendarHour), w.Calendar.DayAfterBase(), rate, ok)
				if !ok {
					if !warned[p] {
						logging.Warn("no emission rate resolvable for unit; projected mass left zero",
							logging.Region(g.Region), logging.Fuel(g.Fuel),
							logging.Facility(k.Facility), logging.Unit(k.Unit),
							logging.Pollutant(string(p)), logging.Hour(row.CalendarHour),
						)
						warned[p] = true
					}
					continue
				}

				mass := row.HeatInput * rate
				switch p {
				case types.SO2:
					row.SO2Rate, row.SO2Mass = rate, mass
				case types.NOx:
					row.NOxRate, row.NOxMass = rate, mass
				}
			}

			co2, ok := 0.0, false
			if useGroupRates {
				co2, ok = newRates[types.CO2]
			} else {
				co2, ok = table.Annual[types.CO2]
			}
			if ok {
				row.CO2Mass = row.HeatInput * co2
			}
		}
	}
}

// resolveLadder climbs the granularity ladder for one pollutant at one hour.
// A candidate is accepted when it is defined and inside the unit's effective
// rate bounds; the annual average is accepted unconditionally.
func resolveLadder(w *store.WorkingSet, table *types.UnitRates, agg *unitAggregates, p types.Pollutant, start types.RateGranularity, calendarHour int) (float64, bool) {
	bounds := table.RateBounds[p]
	for gran := start; ; gran = gran.Coarser() {
		rate, ok := rateAt(w, table, agg, p, gran, calendarHour)
		if gran == types.GranularityAnnual {
			return rate, ok
		}
		if ok && bounds.Contains(rate) {
			return rate, true
		}
	}
}

// rateAt computes the base-year average rate at one granularity
func rateAt(w *store.WorkingSet, table *types.UnitRates, agg *unitAggregates, p types.Pollutant, gran types.RateGranularity, calendarHour int) (float64, bool) {
	switch gran {
	case types.GranularityHourly:
		return agg.hourly(p, calendarHour)
	case types.GranularityDaily:
		return agg.period(p, agg.dayIdx, w.Calendar.Day(calendarHour)-1)
	case types.GranularityMonthly:
		return agg.period(p, agg.monthIdx, w.Calendar.Month(calendarHour)-1)
	case types.GranularityQuarterly:
		return agg.period(p, agg.quarterIdx, w.Calendar.Quarter(calendarHour)-1)
	case types.GranularitySeasonal:
		// Season membership follows the projected hour's future-year date.
		if w.Calendar.InOzoneSeason(calendarHour) {
			r, ok := table.Ozone[p]
			return r, ok
		}
		r, ok := table.NonOzone[p]
		return r, ok
	default:
		r, ok := table.Annual[p]
		return r, ok
	}
}

// applyControls applies the unit's explicit override or control efficiency
// for a pollutant on a future date. An explicit rate replaces the resolved
// rate even when none was resolvable; an efficiency can only scale a rate
// that exists.
func applyControls(w *store.WorkingSet, k types.UnitKey, p types.Pollutant, futureDate, dayAfterBase time.Time, rate float64, ok bool) (float64, bool) {
	for i := range w.Controls[k] {
		c := &w.Controls[k][i]
		if c.Pollutant != p || !c.AppliesOn(futureDate, dayAfterBase) {
			continue
		}
		if c.Rate != nil {
			return *c.Rate, true
		}
		if c.Efficiency != nil && ok {
			rate *= 1 - *c.Efficiency/100.0
		}
	}
	return rate, ok
}

// unitAggregates holds per-period mass and heat-input totals for one unit's
// base-year observations, built once per unit.
type unitAggregates struct {
	obs []types.HourlyBase

	// indexed [pollutant][period] pairs of (mass, heat input)
	dayIdx     map[types.Pollutant][][2]float64
	monthIdx   map[types.Pollutant][][2]float64
	quarterIdx map[types.Pollutant][][2]float64
}

func (a *unitAggregates) hourly(p types.Pollutant, calendarHour int) (float64, bool) {
	o := &a.obs[calendarHour-1]
	if o.HeatInput <= 0 {
		return 0, false
	}
	mass := massOf(o, p)
	if mass <= 0 {
		return 0, false
	}
	return mass / o.HeatInput, true
}

func (a *unitAggregates) period(p types.Pollutant, idx map[types.Pollutant][][2]float64, i int) (float64, bool) {
	rows := idx[p]
	if i < 0 || i >= len(rows) || rows[i][1] <= 0 {
		return 0, false
	}
	return rows[i][0] / rows[i][1], true
}

func massOf(o *types.HourlyBase, p types.Pollutant) float64 {
	switch p {
	case types.SO2:
		return o.SO2Mass
	case types.NOx:
		return o.NOxMass
	default:
		return o.CO2Mass
	}
}

// aggregate builds day, month, and quarter totals for one unit
func aggregate(w *store.WorkingSet, g types.GroupKey, k types.UnitKey) *unitAggregates {
	obs := w.Base[g][k]
	a := &unitAggregates{
		obs:        obs,
		dayIdx:     make(map[types.Pollutant][][2]float64),
		monthIdx:   make(map[types.Pollutant][][2]float64),
		quarterIdx: make(map[types.Pollutant][][2]float64),
	}
	days := w.Calendar.Hours() / 24
	for _, p := range []types.Pollutant{types.SO2, types.NOx} {
		a.dayIdx[p] = make([][2]float64, days)
		a.monthIdx[p] = make([][2]float64, 12)
		a.quarterIdx[p] = make([][2]float64, 4)
	}
	for i := range obs {
		o := &obs[i]
		if o.HeatInput <= 0 {
			continue
		}
		hour := i + 1
		d := w.Calendar.Day(hour) - 1
		m := w.Calendar.Month(hour) - 1
		q := w.Calendar.Quarter(hour) - 1
		for _, p := range []types.Pollutant{types.SO2, types.NOx} {
			mass := massOf(o, p)
			a.dayIdx[p][d][0] += mass
			a.dayIdx[p][d][1] += o.HeatInput
			a.monthIdx[p][m][0] += mass
			a.monthIdx[p][m][1] += o.HeatInput
			a.quarterIdx[p][q][0] += mass
			a.quarterIdx[p][q][1] += o.HeatInput
		}
	}
	return a
}

// buildNewUnitRates picks the group's percentile rates for units with no
// base-year history: the configured percentile over descending existing-unit
// rates, ozone-season NOx applied year round, annual SO2 and CO2.
func buildNewUnitRates(w *store.WorkingSet, g types.GroupKey) map[types.Pollutant]float64 {
	pct := defaultFactorPct
	if params := w.Params[g]; params != nil && params.EmissionFactorPct > 0 {
		pct = params.EmissionFactorPct
	}

	out := make(map[types.Pollutant]float64)
	for _, p := range []types.Pollutant{types.SO2, types.NOx, types.CO2} {
		var rates []float64
		for k := range w.Units[g] {
			table := w.Rates[types.FullKey{Group: g, Unit: k}]
			if table == nil {
				continue
			}
			src := table.Annual
			if p == types.NOx {
				src = table.Ozone
			}
			if r, ok := src[p]; ok && r > 0 {
				rates = append(rates, r)
			}
		}
		if len(rates) == 0 {
			continue
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(rates)))
		idx := int(float64(len(rates)) * pct / 100.0)
		if idx < 0 {
			idx = 0
		}
		if idx >= len(rates) {
			idx = len(rates) - 1
		}
		out[p] = rates[idx]
	}
	return out
}
