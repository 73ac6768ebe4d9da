// Package store holds the mutable working dataset for one projection run.
//
// Every component receives the same *WorkingSet and is documented as to which
// tables it reads and writes. All collections are plain indexed maps keyed by
// region/fuel/unit/hour; grouping and aggregation are ordinary iteration and
// sort, so access patterns are compile-time checked.
package store

import (
	"sort"

	"egu-projection/core/types"
)

// WorkingSet is the complete in-memory dataset for one run.
//
// Writers:
//
//	ingestion       Units, Base, Growth, Params, Controls, Transfers, CapListings
//	rates           Rates
//	hierarchy       GenParams (Rank), UnitRanks
//	growth          Growth (NonPeakFactor), GenParams (growth fields)
//	assign          GenParams (proxy/AFYGR/excess), Assignments
//	generic         Units, UnitRanks, Proxy, GenericUnits
//	reserve         ReserveChecks
//	emissions       Assignments (rate/mass fields)
//	summary         UnitActivities, CapAnalyses, CapacityDemands, ReserveRollups
//
// The assignment loop's restart is the only rollback: ResetAssignments
// discards a group's Assignment records wholesale.
type WorkingSet struct {
	Calendar *types.Calendar

	// Units indexes unit records by group then unit key
	Units map[types.GroupKey]map[types.UnitKey]*types.Unit

	// Base holds base-year hourly observations, indexed by calendar hour-1;
	// slices always span the full calendar.
	Base map[types.GroupKey]map[types.UnitKey][]types.HourlyBase

	// GenParams holds the per-group hourly bookkeeping rows in calendar
	// order (index = calendar hour-1).
	GenParams map[types.GroupKey][]*types.GenParams

	// Proxy holds proxy-generation profiles for new units, calendar order
	Proxy map[types.GroupKey]map[types.UnitKey][]float64

	// UnitRanks is the allocation-priority order of units within a group
	UnitRanks map[types.GroupKey][]types.UnitKey

	// Assignments holds per-unit projection rows indexed by hierarchy
	// rank-1, so running totals follow allocation order.
	Assignments map[types.GroupKey]map[types.UnitKey][]*types.Assignment

	// Growth and Params are the configured rows per group
	Growth map[types.GroupKey]*types.GrowthRate
	Params map[types.GroupKey]*types.RunParams

	// Rates holds per-unit limit and average-rate tables
	Rates map[types.FullKey]*types.UnitRates

	// Controls holds explicit future override records per unit/pollutant
	Controls map[types.UnitKey][]types.ControlEmission

	// Transfers holds net external demand transfers, calendar order
	Transfers map[types.GroupKey][]float64

	// CapListings are configured state and group caps
	CapListings []types.CapListing

	// StateCodes maps state abbreviations to numeric codes for generic
	// unit naming
	StateCodes map[string]string

	// genericCounts counts generic units created per state, across all
	// regions and fuels
	genericCounts map[string]int

	// Output tables
	GenericUnits    []types.GenericUnit
	Deficits        []types.DemandDeficit
	ReserveChecks   []types.ReserveCheck
	UnitActivities  []types.UnitActivity
	CapAnalyses     []types.CapAnalysis
	CapacityDemands []types.CapacityDemand
	ReserveRollups  []types.ReserveRollup
}

// New creates an empty working set over a calendar
func New(cal *types.Calendar) *WorkingSet {
	return &WorkingSet{
		Calendar:      cal,
		Units:         make(map[types.GroupKey]map[types.UnitKey]*types.Unit),
		Base:          make(map[types.GroupKey]map[types.UnitKey][]types.HourlyBase),
		GenParams:     make(map[types.GroupKey][]*types.GenParams),
		Proxy:         make(map[types.GroupKey]map[types.UnitKey][]float64),
		UnitRanks:     make(map[types.GroupKey][]types.UnitKey),
		Assignments:   make(map[types.GroupKey]map[types.UnitKey][]*types.Assignment),
		Growth:        make(map[types.GroupKey]*types.GrowthRate),
		Params:        make(map[types.GroupKey]*types.RunParams),
		Rates:         make(map[types.FullKey]*types.UnitRates),
		Controls:      make(map[types.UnitKey][]types.ControlEmission),
		Transfers:     make(map[types.GroupKey][]float64),
		StateCodes:    make(map[string]string),
		genericCounts: make(map[string]int),
	}
}

// AddUnit inserts or replaces a unit record
func (w *WorkingSet) AddUnit(u *types.Unit) {
	g := types.GroupKey{Region: u.Region, Fuel: u.Fuel}
	if w.Units[g] == nil {
		w.Units[g] = make(map[types.UnitKey]*types.Unit)
	}
	w.Units[g][u.Key] = u
}

// Unit returns a unit record, or nil
func (w *WorkingSet) Unit(g types.GroupKey, k types.UnitKey) *types.Unit {
	return w.Units[g][k]
}

// Groups returns all region/fuel groups with generation parameters, sorted
// by region then fuel for deterministic iteration.
func (w *WorkingSet) Groups() []types.GroupKey {
	keys := make([]types.GroupKey, 0, len(w.GenParams))
	for g := range w.GenParams {
		keys = append(keys, g)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Region != keys[j].Region {
			return keys[i].Region < keys[j].Region
		}
		return keys[i].Fuel < keys[j].Fuel
	})
	return keys
}

// Regions returns all distinct regions, sorted
func (w *WorkingSet) Regions() []string {
	seen := make(map[string]bool)
	for g := range w.GenParams {
		seen[g.Region] = true
	}
	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// GroupsInRegion returns the fuel groups of one region, sorted by fuel
func (w *WorkingSet) GroupsInRegion(region string) []types.GroupKey {
	var out []types.GroupKey
	for _, g := range w.Groups() {
		if g.Region == region {
			out = append(out, g)
		}
	}
	return out
}

// HoursByRank returns the group's calendar hours ordered by hierarchy rank.
// Valid only after the temporal hierarchy has been built.
func (w *WorkingSet) HoursByRank(g types.GroupKey) []*types.GenParams {
	parms := w.GenParams[g]
	out := make([]*types.GenParams, len(parms))
	copy(out, parms)
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// EnsureGenParams materializes a group's hourly rows if absent
func (w *WorkingSet) EnsureGenParams(g types.GroupKey) []*types.GenParams {
	if w.GenParams[g] == nil {
		rows := make([]*types.GenParams, w.Calendar.Hours())
		for i := range rows {
			rows[i] = &types.GenParams{CalendarHour: i + 1}
		}
		w.GenParams[g] = rows
	}
	return w.GenParams[g]
}

// ResetAssignments discards all assignment records for one group. This is
// the deficit-detected rollback: no partial results from an aborted pass are
// ever visible downstream.
func (w *WorkingSet) ResetAssignments(g types.GroupKey) {
	w.Assignments[g] = make(map[types.UnitKey][]*types.Assignment)
}

// UnitAssignments returns (allocating if needed) a unit's assignment slice,
// indexed by hierarchy rank-1.
func (w *WorkingSet) UnitAssignments(g types.GroupKey, k types.UnitKey) []*types.Assignment {
	if w.Assignments[g] == nil {
		w.Assignments[g] = make(map[types.UnitKey][]*types.Assignment)
	}
	rows := w.Assignments[g][k]
	if rows == nil {
		rows = make([]*types.Assignment, w.Calendar.Hours())
		w.Assignments[g][k] = rows
	}
	return rows
}

// SetProxy stores a new unit's proxy profile
func (w *WorkingSet) SetProxy(g types.GroupKey, k types.UnitKey, profile []float64) {
	if w.Proxy[g] == nil {
		w.Proxy[g] = make(map[types.UnitKey][]float64)
	}
	w.Proxy[g][k] = profile
}

// TotalProxyAt sums proxy generation across a group's new units at one
// calendar hour.
func (w *WorkingSet) TotalProxyAt(g types.GroupKey, calendarHour int) float64 {
	total := 0.0
	for _, profile := range w.Proxy[g] {
		total += profile[calendarHour-1]
	}
	return total
}

// FleetCapacity sums hourly generating capacity over a group's ranked units
func (w *WorkingSet) FleetCapacity(g types.GroupKey) float64 {
	total := 0.0
	for _, k := range w.UnitRanks[g] {
		if u := w.Unit(g, k); u != nil {
			total += u.Capacity()
		}
	}
	return total
}

// RegionCapacity sums hourly generating capacity over all ranked units in a
// region, across fuel groups.
func (w *WorkingSet) RegionCapacity(region string) float64 {
	total := 0.0
	for _, g := range w.GroupsInRegion(region) {
		total += w.FleetCapacity(g)
	}
	return total
}

// NextGenericSeq increments and returns the per-state generic unit counter
func (w *WorkingSet) NextGenericSeq(state string) int {
	w.genericCounts[state]++
	return w.genericCounts[state]
}

// UnitRatesFor returns (allocating if needed) a unit's rate/limit table
func (w *WorkingSet) UnitRatesFor(g types.GroupKey, k types.UnitKey) *types.UnitRates {
	fk := types.FullKey{Group: g, Unit: k}
	r := w.Rates[fk]
	if r == nil {
		r = types.NewUnitRates()
		w.Rates[fk] = r
	}
	return r
}

// TransferAt returns the net demand transfer for a group at one hour
func (w *WorkingSet) TransferAt(g types.GroupKey, calendarHour int) float64 {
	t := w.Transfers[g]
	if t == nil {
		return 0
	}
	return t[calendarHour-1]
}
