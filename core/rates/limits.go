// Package rates assembles per-unit rate limits and average emission rates
// from base-year activity.
//
// Reads: Units, Base, Params. Writes: Rates.
//
// The builder never fails: absent data simply yields absent (unbounded)
// limits and missing average rates.
package rates

import (
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"egu-projection/core/store"
	"egu-projection/core/types"
	"egu-projection/internal/logging"
)

// pollutantOf extracts one pollutant's hourly mass from a base observation
func pollutantOf(obs *types.HourlyBase, p types.Pollutant) float64 {
	switch p {
	case types.SO2:
		return obs.SO2Mass
	case types.NOx:
		return obs.NOxMass
	default:
		return obs.CO2Mass
	}
}

// statBounds derives a mean +/- k*sd interval over strictly positive samples.
// Inactive hours are excluded so they cannot pull the distribution down.
// Fewer than two samples yields unbounded.
func statBounds(samples []float64, k float64) types.Bounds {
	if len(samples) < 2 {
		return types.Bounds{}
	}
	mean, err := stats.Mean(samples)
	if err != nil {
		return types.Bounds{}
	}
	sd, err := stats.StandardDeviationSample(samples)
	if err != nil {
		return types.Bounds{}
	}
	lo := mean - k*sd
	hi := mean + k*sd
	if lo < 0 {
		lo = 0
	}
	return types.Bounds{Lower: &lo, Upper: &hi}
}

// BuildGroup populates limit and average-rate tables for every unit in a
// region/fuel group.
func BuildGroup(w *store.WorkingSet, g types.GroupKey) {
	params := w.Params[g]
	k := 3.0
	hardHeat := types.Bounds{}
	hardRates := map[types.Pollutant]types.Bounds{}
	if params != nil {
		if params.StatMultiplier > 0 {
			k = params.StatMultiplier
		}
		hardHeat = params.HeatRateHardBounds
		if params.RateHardBounds != nil {
			hardRates = params.RateHardBounds
		}
	}

	ozStart, ozEnd := w.Calendar.OzoneWindow()

	for key, obs := range w.Base[g] {
		table := w.UnitRatesFor(g, key)

		var heatSamples []float64
		rateSamples := map[types.Pollutant][]float64{}
		var totalGen, totalHI float64
		totals := map[types.Pollutant]*seasonTotals{
			types.SO2: {}, types.NOx: {}, types.CO2: {},
		}

		for i := range obs {
			o := &obs[i]
			if o.Gen > 0 && o.HeatInput > 0 {
				heatSamples = append(heatSamples, o.HeatInput*1000.0/o.Gen)
			}
			totalGen += o.Gen
			totalHI += o.HeatInput
			inOzone := o.CalendarHour >= ozStart && o.CalendarHour <= ozEnd
			for p, t := range totals {
				mass := pollutantOf(o, p)
				if o.HeatInput > 0 && mass > 0 {
					rateSamples[p] = append(rateSamples[p], mass/o.HeatInput)
				}
				t.add(mass, o.HeatInput, inOzone)
			}
		}

		table.HeatRateBounds = statBounds(heatSamples, k).Tighten(hardHeat)
		if totalGen > 0 {
			table.AvgHeatRate = totalHI * 1000.0 / totalGen
		}

		for p, t := range totals {
			table.RateBounds[p] = statBounds(rateSamples[p], k).Tighten(hardRates[p])
			// Average rates come from summed totals, not averaged hourly
			// rates, to avoid weighting artifacts.
			if t.hi > 0 {
				table.Annual[p] = t.mass / t.hi
			}
			if t.ozHI > 0 {
				table.Ozone[p] = t.ozMass / t.ozHI
			}
			if t.hi-t.ozHI > 0 {
				table.NonOzone[p] = (t.mass - t.ozMass) / (t.hi - t.ozHI)
			}
		}

		reconcileHeatRate(w.Unit(g, key), table, g)
	}
}

// reconcileHeatRate checks a unit's configured heat rate against the effective
// bounds. A missing heat rate is filled from the observed average, clamped to
// the bounds; a configured rate outside the bounds is kept but flagged.
func reconcileHeatRate(u *types.Unit, table *types.UnitRates, g types.GroupKey) {
	if u == nil {
		return
	}
	if u.HeatRate <= 0 {
		if table.AvgHeatRate > 0 {
			u.HeatRate = clamp(table.AvgHeatRate, table.HeatRateBounds)
		}
		return
	}
	if !table.HeatRateBounds.Contains(u.HeatRate) {
		logging.Warn("configured heat rate outside believable bounds",
			logging.Region(g.Region), logging.Fuel(g.Fuel),
			logging.Facility(u.Key.Facility), logging.Unit(u.Key.Unit),
			zap.Float64("heat_rate", u.HeatRate),
		)
	}
}

// clamp pulls a value inside bounds, leaving it unchanged when already inside
func clamp(v float64, b types.Bounds) float64 {
	if b.Lower != nil && v < *b.Lower {
		return *b.Lower
	}
	if b.Upper != nil && v > *b.Upper {
		return *b.Upper
	}
	return v
}

// seasonTotals accumulates mass and heat input, with an ozone-season split
type seasonTotals struct {
	mass, hi     float64
	ozMass, ozHI float64
}

func (t *seasonTotals) add(mass, hi float64, inOzone bool) {
	t.mass += mass
	t.hi += hi
	if inOzone {
		t.ozMass += mass
		t.ozHI += hi
	}
}
