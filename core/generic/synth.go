// Package generic synthesizes placeholder units when a group's projected
// demand exceeds its fleet capacity.
//
// Reads: Units, Base, Params, GenParams, StateCodes.
// Writes: Units, UnitRanks, Proxy, GenericUnits, Deficits.
package generic

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"egu-projection/core/assign"
	"egu-projection/core/hierarchy"
	"egu-projection/core/store"
	"egu-projection/core/types"
	"egu-projection/internal/errors"
	"egu-projection/internal/logging"
)

// maxPerGroup caps synthesized units in one group. Reaching it means the
// configured sizes are far too small for the deficit, and the group proceeds
// with whatever capacity was added.
const maxPerGroup = 10000

// Synthesizer creates generic units and keeps the facility rotation position
// across repeated deficits in the same group.
type Synthesizer struct {
	facIdx map[types.GroupKey]int
	hosts  map[types.GroupKey][]string
}

// NewSynthesizer returns an empty synthesizer
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		facIdx: make(map[types.GroupKey]int),
		hosts:  make(map[types.GroupKey][]string),
	}
}

// Fill creates enough generic units to cover a capacity deficit, splices each
// into the unit hierarchy, and builds its proxy profile. Units take the
// configured maximum size while the deficit exceeds the minimum size, then
// one minimum-size unit finishes the job. Returns how many units were added.
func (s *Synthesizer) Fill(w *store.WorkingSet, g types.GroupKey, deficit float64) (int, error) {
	params := w.Params[g]
	if params == nil || params.NewUnitMaxMW <= 0 || params.NewUnitMinMW <= 0 {
		return 0, errors.Config("cannot size generic units without new-unit size bounds").WithGroup(g.Region, g.Fuel)
	}

	heatRate := groupAvgHeatRate(w, g)
	if heatRate <= 0 {
		return 0, errors.Config("cannot synthesize units for a group with no usable heat rates").WithGroup(g.Region, g.Fuel)
	}

	hosts := s.hostFacilities(w, g)
	if len(hosts) == 0 {
		return 0, errors.Config("no facility available to host generic units").WithGroup(g.Region, g.Fuel)
	}

	added := 0
	for deficit > 0 {
		if groupGenericCount(w, g) >= maxPerGroup {
			logging.Warn("generic unit cap reached; group proceeds short of capacity",
				logging.Region(g.Region), logging.Fuel(g.Fuel),
			)
			break
		}

		sizeMW := params.NewUnitMaxMW
		if deficit <= params.NewUnitMinMW {
			sizeMW = params.NewUnitMinMW
		}

		facility := hosts[s.facIdx[g]%len(hosts)]
		s.facIdx[g]++

		u := s.buildUnit(w, g, facility, sizeMW, heatRate)
		w.AddUnit(u)
		hierarchy.InsertAfterNew(w, g, u.Key)
		assign.ComputeProxy(w, g, u)

		w.GenericUnits = append(w.GenericUnits, types.GenericUnit{
			RecordID:     uuid.NewString(),
			Region:       g.Region,
			Fuel:         g.Fuel,
			SizeMW:       sizeMW,
			Facility:     facility,
			UnitID:       u.Key.Unit,
			FacilityName: u.FacilityName,
			State:        u.State,
		})

		logging.Info("synthesized generic unit",
			logging.Region(g.Region), logging.Fuel(g.Fuel),
			logging.Facility(facility), logging.Unit(u.Key.Unit),
		)

		deficit -= sizeMW
		added++
	}
	return added, nil
}

// buildUnit assembles one generic unit record at a host facility
func (s *Synthesizer) buildUnit(w *store.WorkingSet, g types.GroupKey, facility string, sizeMW, heatRate float64) *types.Unit {
	state, facilityName := facilityIdentity(w, g, facility)

	code := w.StateCodes[state]
	if code == "" {
		code = state
		logging.Warn("no numeric code for state; generic unit named with abbreviation",
			logging.Region(g.Region), logging.Fuel(g.Fuel),
		)
	}
	id := fmt.Sprintf("G%s%03d", code, w.NextGenericSeq(state))

	return &types.Unit{
		Key:          types.UnitKey{Facility: facility, Unit: id},
		Region:       g.Region,
		Fuel:         g.Fuel,
		State:        state,
		FacilityName: facilityName,
		Status:       types.StatusNew,
		Online:       w.Calendar.FirstFutureDay(),
		Offline:      types.OfflineDefault,
		MaxHourlyHI:  sizeMW * heatRate / 1000.0,
		HeatRate:     heatRate,
		NameplateMW:  sizeMW,
		GenericID:    id,
	}
}

// hostFacilities returns the group's host rotation: the configured facility
// list, or the top ten facilities by base-year generation when none is
// configured. The inferred list is cached so repeated deficits rotate through
// the same hosts.
func (s *Synthesizer) hostFacilities(w *store.WorkingSet, g types.GroupKey) []string {
	if params := w.Params[g]; params != nil && len(params.Facilities) > 0 {
		return params.Facilities
	}
	if cached := s.hosts[g]; cached != nil {
		return cached
	}

	totals := make(map[string]float64)
	for k, obs := range w.Base[g] {
		for i := range obs {
			totals[k.Facility] += obs[i].Gen
		}
	}
	facs := make([]string, 0, len(totals))
	for f := range totals {
		facs = append(facs, f)
	}
	sort.Slice(facs, func(i, j int) bool {
		if totals[facs[i]] != totals[facs[j]] {
			return totals[facs[i]] > totals[facs[j]]
		}
		return facs[i] < facs[j]
	})
	if len(facs) > 10 {
		facs = facs[:10]
	}
	s.hosts[g] = facs
	return facs
}

// facilityIdentity finds the state and plant name of a facility from any of
// its existing units, falling back to any unit in the group.
func facilityIdentity(w *store.WorkingSet, g types.GroupKey, facility string) (string, string) {
	var state, name string
	for _, u := range w.Units[g] {
		if u.Key.Facility == facility {
			return u.State, u.FacilityName
		}
		if state == "" {
			state, name = u.State, u.FacilityName
		}
	}
	return state, name
}

// groupAvgHeatRate averages heat rates over the group's units with usable
// values, so synthesized units convert load the way their neighbors do.
func groupAvgHeatRate(w *store.WorkingSet, g types.GroupKey) float64 {
	total := 0.0
	n := 0
	for _, u := range w.Units[g] {
		if u.HeatRate > 0 && u.GenericID == "" {
			total += u.HeatRate
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

func groupGenericCount(w *store.WorkingSet, g types.GroupKey) int {
	n := 0
	for _, u := range w.Units[g] {
		if u.GenericID != "" {
			n++
		}
	}
	return n
}

// RecordDeficits logs every hour whose projected demand exceeded the
// pre-synthesis fleet capacity, alongside the capacity after synthesis.
func RecordDeficits(w *store.WorkingSet, g types.GroupKey, initialCapacity float64) {
	finalCapacity := w.FleetCapacity(g)
	for _, p := range w.HoursByRank(g) {
		if p.Future <= initialCapacity {
			continue
		}
		w.Deficits = append(w.Deficits, types.DemandDeficit{
			Region:          g.Region,
			Fuel:            g.Fuel,
			CalendarHour:    p.CalendarHour,
			Rank:            p.Rank,
			Demand:          p.Future,
			InitialCapacity: initialCapacity,
			Shortfall:       p.Future - initialCapacity,
			FinalCapacity:   finalCapacity,
		})
	}
}
