// Package growth derives hourly growth factors and projects base-year
// generation into the future year.
//
// Reads: Base, Units, GenParams (Rank), Growth, Transfers.
// Writes: GenParams (BaseActual, BaseRetired, GrowthFactor, Future),
// Growth (NonPeakFactor).
package growth

import (
	"math"

	"egu-projection/core/store"
	"egu-projection/core/types"
	"egu-projection/internal/errors"
	"egu-projection/internal/logging"
)

// Solver tolerances and iteration cap for the secant method
const (
	residualTol = 1e-12
	stepTol     = 1e-12
	maxIter     = 10
)

// FactorAt evaluates the two-segment linear growth curve at a hierarchy
// rank: full peak factor through transitionPeak, non-peak factor from
// transitionNonPeak, linear interpolation between.
func FactorAt(peak, nonPeak float64, transitionPeak, transitionNonPeak, rank int) float64 {
	switch {
	case rank <= transitionPeak:
		return peak
	case rank < transitionNonPeak:
		return peak + (nonPeak-peak)*float64(rank-transitionPeak)/float64(transitionNonPeak-transitionPeak)
	default:
		return nonPeak
	}
}

// annualTotal regrows the group's base generation under a candidate
// non-peak factor and returns the annual total.
func annualTotal(parms []*types.GenParams, gr *types.GrowthRate, nonPeak float64) float64 {
	total := 0.0
	for _, p := range parms {
		total += p.BaseActual * FactorAt(gr.PeakFactor, nonPeak, gr.TransitionPeak, gr.TransitionNonPeak, p.Rank)
	}
	return total
}

// Solve finds the non-peak growth factor that reproduces the group's target
// annual total under the configured peak factor and transition ranks, using
// the secant method seeded with the peak and average factors.
//
// Non-convergence and flat-secant stalls are recoverable: the run proceeds
// with the best estimate found, and a physically impossible negative factor
// is clamped to zero. Both cases log warnings, never fail the run.
func Solve(w *store.WorkingSet, g types.GroupKey) {
	gr := w.Growth[g]
	if gr == nil {
		return
	}
	parms := w.GenParams[g]

	baseAnnual := 0.0
	for _, p := range parms {
		baseAnnual += p.BaseActual
	}
	if baseAnnual <= 0 {
		// Nothing to grow; nothing to solve.
		gr.NonPeakFactor = gr.AvgFactor
		return
	}
	target := baseAnnual * gr.AvgFactor

	if gr.AvgFactor == gr.PeakFactor {
		// Both initial guesses coincide; the secant slope would be zero.
		gr.NonPeakFactor = gr.AvgFactor
		return
	}

	x0 := gr.PeakFactor
	y0 := annualTotal(parms, gr, x0) - target
	x := gr.AvgFactor
	var y float64

	for i := 1; ; i++ {
		y = annualTotal(parms, gr, x) - target
		if math.Abs(y) <= residualTol*(1+math.Abs(y0)) {
			break
		}
		if y == y0 {
			logging.Warn("secant root-finding stalled on zero slope; transition ranks may be set too late",
				logging.Region(g.Region), logging.Fuel(g.Fuel),
			)
			break
		}
		dx := -y * (x - x0) / (y - y0)
		if math.Abs(dx) <= stepTol*math.Max(math.Abs(x0), math.Abs(x)) {
			break
		}
		if i > maxIter {
			logging.Warn("secant root-finding did not converge",
				logging.Region(g.Region), logging.Fuel(g.Fuel),
			)
			break
		}
		x0, y0, x = x, y, x+dx
	}

	if x < 0 {
		// Impossible negative factor: clamp and recompute downstream from 0.
		x = 0
		logging.Warn("negative non-peak growth factor clamped to zero; average factor unreachable",
			logging.Region(g.Region), logging.Fuel(g.Fuel),
		)
	}
	gr.NonPeakFactor = x
}

// PrepareBase fills each hour's base actual and base retired generation.
// Retired generation is base-year output from units that are capacity
// limited or already offline by the hour's future date; it is excluded from
// the AFYGR denominator because it cannot be grown.
func PrepareBase(w *store.WorkingSet, g types.GroupKey) {
	parms := w.EnsureGenParams(g)
	for _, p := range parms {
		p.BaseActual = 0
		p.BaseRetired = 0
	}
	for key, obs := range w.Base[g] {
		u := w.Unit(g, key)
		for i := range obs {
			gen := obs[i].Gen
			if gen == 0 {
				continue
			}
			parms[i].BaseActual += gen
			if u != nil && (u.CapacityLimited || !w.Calendar.FutureDate(i+1).Before(u.Offline)) {
				parms[i].BaseRetired += gen
			}
		}
	}
}

// Apply projects every hour's base generation into the future year using
// the solved factors, then applies net demand transfers. A transfer that
// drives an hour's projected generation negative is physically inconsistent
// input and fails the whole run.
func Apply(w *store.WorkingSet, g types.GroupKey) error {
	gr := w.Growth[g]
	if gr == nil {
		return errors.Config("no growth rate configured for group").WithGroup(g.Region, g.Fuel)
	}
	for _, p := range w.GenParams[g] {
		p.GrowthFactor = FactorAt(gr.PeakFactor, gr.NonPeakFactor, gr.TransitionPeak, gr.TransitionNonPeak, p.Rank)
		p.Transfer = w.TransferAt(g, p.CalendarHour)
		p.Future = p.BaseActual*p.GrowthFactor + p.Transfer
		if p.Future < 0 {
			return errors.Newf(errors.TypeData,
				"demand transfer drives projected generation negative (%.3f) at hour %d",
				p.Future, p.CalendarHour).WithGroup(g.Region, g.Fuel)
		}
	}
	return nil
}
