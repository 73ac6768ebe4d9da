// Package summary produces the run's rollup tables after projection and
// emission resolution are complete.
//
// Reads: Units, Base, Assignments, UnitRanks, GenParams, CapListings,
// ReserveChecks.
// Writes: UnitActivities, CapAnalyses, CapacityDemands, ReserveRollups.
package summary

import (
	"github.com/shopspring/decimal"

	"egu-projection/core/store"
	"egu-projection/core/types"
)

// lbsPerTon converts emitted pounds to short tons for cap comparisons
var lbsPerTon = decimal.NewFromInt(2000)

// BuildUnitActivity appends one annual activity rollup per ranked unit
func BuildUnitActivity(w *store.WorkingSet) {
	hours := w.Calendar.Hours()
	for _, g := range w.Groups() {
		for _, k := range w.UnitRanks[g] {
			u := w.Unit(g, k)
			if u == nil {
				continue
			}

			act := types.UnitActivity{
				Region:       g.Region,
				Fuel:         g.Fuel,
				State:        u.State,
				Facility:     k.Facility,
				UnitID:       k.Unit,
				FacilityName: u.FacilityName,
				MaxHourlyHI:  u.MaxHourlyHI,
				HeatRate:     u.HeatRate,
				CapacityMW:   u.Capacity(),
			}

			rows := w.Assignments[g][k]
			if rows != nil {
				if last := rows[hours-1]; last != nil {
					act.FYGen = last.CumGen
					act.FYHI = last.CumHI
					act.FYHours = last.CumHours
				}
				for _, row := range rows {
					if row != nil && row.HourlyLimited {
						act.HoursAtMax++
					}
				}
			}

			for i := range w.Base[g][k] {
				o := &w.Base[g][k][i]
				act.BYGen += o.Gen
				act.BYHI += o.HeatInput
				if o.OpTime > 0 {
					act.BYHours++
				}
			}

			if u.MaxHourlyHI > 0 {
				act.UF = act.FYHI / (float64(hours) * u.MaxHourlyHI)
			}

			w.UnitActivities = append(w.UnitActivities, act)
		}
	}
}

// BuildCapacityDemand appends one capacity/demand rollup per group
func BuildCapacityDemand(w *store.WorkingSet) {
	hours := w.Calendar.Hours()
	for _, g := range w.Groups() {
		cd := types.CapacityDemand{Region: g.Region, Fuel: g.Fuel}

		for _, obs := range w.Base[g] {
			for i := range obs {
				cd.BYGen += obs[i].Gen
				cd.BYHI += obs[i].HeatInput
			}
		}

		for _, k := range w.UnitRanks[g] {
			if rows := w.Assignments[g][k]; rows != nil {
				if last := rows[hours-1]; last != nil {
					cd.FYGen += last.CumGen
					cd.FYHI += last.CumHI
				}
			}
			if u := w.Unit(g, k); u != nil && u.IsNew() {
				cd.NewCapacityMW += u.Capacity()
			}
		}

		w.CapacityDemands = append(w.CapacityDemands, cd)
	}
}

// BuildCapAnalyses compares projected emissions against every configured
// state or state-group cap. Pounds accumulate in floating point; the
// ton conversion and rendered total use decimal arithmetic so the reported
// figure is exact at its printed precision.
func BuildCapAnalyses(w *store.WorkingSet) {
	for _, cap := range w.CapListings {
		states := make(map[string]bool, len(cap.States))
		for _, s := range cap.States {
			states[s] = true
		}

		lbs := 0.0
		for _, g := range w.Groups() {
			for _, k := range w.UnitRanks[g] {
				u := w.Unit(g, k)
				if u == nil || !states[u.State] {
					continue
				}
				for _, row := range w.Assignments[g][k] {
					if row == nil {
						continue
					}
					if cap.Period == "OS" && !w.Calendar.InOzoneSeason(row.CalendarHour) {
						continue
					}
					switch cap.Pollutant {
					case types.SO2:
						lbs += row.SO2Mass
					case types.NOx:
						lbs += row.NOxMass
					}
				}
			}
		}

		tons := decimal.NewFromFloat(lbs).Div(lbsPerTon)
		w.CapAnalyses = append(w.CapAnalyses, types.CapAnalysis{
			Name:           cap.Name,
			Period:         cap.Period,
			Pollutant:      cap.Pollutant,
			CapTons:        cap.CapTons,
			YearApplicable: cap.YearApplicable,
			ProjectedTons:  tons.StringFixed(3),
			Comments:       cap.Comments,
		})
	}
}

// BuildReserveRollups condenses the hourly reserve checks into one row per
// region.
func BuildReserveRollups(w *store.WorkingSet) {
	byRegion := make(map[string]*types.ReserveRollup)
	var order []string
	for _, check := range w.ReserveChecks {
		r := byRegion[check.Region]
		if r == nil {
			r = &types.ReserveRollup{Region: check.Region, Met: true}
			byRegion[check.Region] = r
			order = append(order, check.Region)
		}
		if !check.Pass {
			r.Met = false
			if check.Deficit > r.MaxDeficit {
				r.MaxDeficit = check.Deficit
			}
		}
	}
	for _, region := range order {
		w.ReserveRollups = append(w.ReserveRollups, *byRegion[region])
	}
}
