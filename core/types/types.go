// Package types defines the domain records shared by the projection engine.
//
// The engine consumes already-validated, typed tabular records and produces
// typed tabular results; these structs are the row types for both sides.
package types

import "time"

// GroupKey is the partition key under which nearly all algorithm state is
// scoped: geographic region crossed with fuel/unit-type bin.
type GroupKey struct {
	Region string
	Fuel   string
}

// UnitKey identifies a unit within a region/fuel group
type UnitKey struct {
	Facility string
	Unit     string
}

// FullKey identifies a unit across the whole run
type FullKey struct {
	Group GroupKey
	Unit  UnitKey
}

// BaseStatus classifies a unit's reporting status in the base year
type BaseStatus string

const (
	// StatusFull is a full-year reporter
	StatusFull BaseStatus = "Full"

	// StatusPartial is a partial-year reporter
	StatusPartial BaseStatus = "Partial"

	// StatusNew is a unit that comes online only after the base year
	StatusNew BaseStatus = "New"

	// StatusNonGenerating is a unit excluded from generation ranking
	StatusNonGenerating BaseStatus = "Non-EGU"
)

// Sentinel dates substituted for absent online/offline dates so that window
// comparisons never have to special-case missing values.
var (
	OnlineDefault  = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	OfflineDefault = time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Unit is one generating unit under one fuel bin. A unit that switched fuels
// during the base year appears once per fuel bin.
type Unit struct {
	Key          UnitKey
	Region       string
	Fuel         string
	State        string
	FacilityName string

	// Status is the base-year reporting classification
	Status BaseStatus

	// Online and Offline bound the unit's operating window. Online strictly
	// precedes Offline; absent dates carry the sentinels above.
	Online  time.Time
	Offline time.Time

	// MaxHourlyHI is the maximum hourly heat input (mmBtu/hr); 0 if unknown
	MaxHourlyHI float64

	// HeatRate converts load to heat input (Btu/kWh); 0 if unknown
	HeatRate float64

	// NameplateMW is the unit's nameplate capacity in MW
	NameplateMW float64

	// BaseUF is the utilization fraction observed in the base year
	BaseUF float64

	// MaxAnnualUF is the unit's maximum annual utilization fraction;
	// nil falls back to the group default
	MaxAnnualUF *float64

	// CapacityLimit overrides MaxAnnualUF for capacity-limited units
	CapacityLimit *float64

	// CapacityLimited marks units whose base-year activity is not grown
	CapacityLimited bool

	// OptimalLoad is the optimal-load threshold in MW; nil if not set
	OptimalLoad *float64

	// MaxOperatingHours caps annual operating hours; nil means uncapped
	MaxOperatingHours *int

	// GenericID is set only on synthesized units
	GenericID string
}

// Capacity returns the unit's hourly generating capacity in MW,
// computed as 1000 * maxHI / heatRate, or 0 when either is missing.
func (u *Unit) Capacity() float64 {
	if u.MaxHourlyHI <= 0 || u.HeatRate <= 0 {
		return 0
	}
	return 1000.0 * u.MaxHourlyHI / u.HeatRate
}

// EffectiveUF returns the unit's effective maximum utilization fraction,
// preferring the capacity limit, then the unit cap, then the group default.
func (u *Unit) EffectiveUF(groupDefault float64) float64 {
	if u.CapacityLimit != nil {
		return *u.CapacityLimit
	}
	if u.MaxAnnualUF != nil {
		return *u.MaxAnnualUF
	}
	return groupDefault
}

// ActiveOn reports whether the unit is inside its online window on a date
func (u *Unit) ActiveOn(date time.Time) bool {
	return !date.Before(u.Online) && date.Before(u.Offline)
}

// IsNew reports whether the unit has no base-year history to grow
func (u *Unit) IsNew() bool {
	return u.Status == StatusNew
}

// HourlyBase is one base-year observation for one unit
type HourlyBase struct {
	CalendarHour int
	Gen          float64 // MW
	HeatInput    float64 // mmBtu
	SO2Mass      float64 // lbs
	NOxMass      float64 // lbs
	CO2Mass      float64 // tons
	OpTime       float64
}

// GenParams is the per-hour generation bookkeeping row for one group.
// Created by growth application, updated by the assignment loop, read-only
// afterward except for the excess pool.
type GenParams struct {
	CalendarHour int

	// Rank is the hierarchy hour: 1 = highest base-year demand
	Rank int

	// BaseActual is total base-year generation at this hour
	BaseActual float64

	// BaseRetired is the part of BaseActual from units retired or
	// capacity-limited by the future year
	BaseRetired float64

	// GrowthFactor is the hour-specific growth multiplier
	GrowthFactor float64

	// Future is the grown projected generation, net of demand transfers
	Future float64

	// Transfer is the net external demand transfer applied to this hour
	Transfer float64

	// TotalProxy is the summed proxy generation of new units at this hour
	TotalProxy float64

	// Adjusted is max(Future - TotalProxy, 0)
	Adjusted float64

	// AFYGR is the adjusted future-year growth ratio applied to base
	// generation of existing units
	AFYGR float64

	// ExcessPool is generation left unassigned after the main loop
	ExcessPool float64
}

// Assignment is the per-unit-per-hour projection result. Records are indexed
// by hierarchy rank so running totals follow allocation order, not calendar
// order.
type Assignment struct {
	CalendarHour int
	Rank         int

	// Load is the assigned generation in MW
	Load float64

	// HeatInput is the assigned heat input in mmBtu
	HeatInput float64

	// CumHI and CumGen are running totals in hierarchy order
	CumHI  float64
	CumGen float64

	// CumHours counts operating hours assigned so far
	CumHours int

	// Limit flags
	HourlyLimited bool
	AnnualLimited bool
	HoursLimited  bool

	// Resolved emissions
	SO2Rate float64
	SO2Mass float64
	NOxRate float64
	NOxMass float64
	CO2Mass float64
}

// GrowthRate is the configured growth row for one group
type GrowthRate struct {
	// AvgFactor is the annual average growth multiplier
	AvgFactor float64

	// PeakFactor is the growth multiplier for the highest-ranked hours
	PeakFactor float64

	// NonPeakFactor is solved so the annual total matches AvgFactor
	NonPeakFactor float64

	// TransitionPeak is the last hierarchy rank receiving the full peak
	// factor; TransitionNonPeak is the first receiving the non-peak factor,
	// with linear interpolation between.
	TransitionPeak    int
	TransitionNonPeak int
}

// HierarchyCode selects the temporal ranking granularity
type HierarchyCode string

const (
	HierarchyHourly HierarchyCode = "HOURLY"
	Hierarchy6Hour  HierarchyCode = "6-HOUR"
	Hierarchy24Hour HierarchyCode = "24-HOUR"
)

// BucketSize returns the ranking bucket size in hours, or 0 if the code is
// unrecognized.
func (h HierarchyCode) BucketSize() int {
	switch h {
	case HierarchyHourly:
		return 1
	case Hierarchy6Hour:
		return 6
	case Hierarchy24Hour:
		return 24
	}
	return 0
}

// RunParams is the configured run-parameter row for one group
type RunParams struct {
	// NewUnitMaxMW and NewUnitMinMW bound synthesized unit sizes
	NewUnitMaxMW float64
	NewUnitMinMW float64

	// DemandCushion multiplies the largest operating unit's capacity to set
	// required spinning reserve
	DemandCushion float64

	// Facilities hosts synthesized units, round-robin; empty infers the
	// top facilities by base-year demand
	Facilities []string

	// MaxUF is the group-default maximum annual utilization fraction
	MaxUF float64

	// DeficitReviewRank is the hierarchy hour at which the assignment loop
	// checks fleet capacity against peak demand
	DeficitReviewRank int

	// OptimalLoadPct determines optimal-load thresholds
	OptimalLoadPct float64

	// PlacementPct is the percentile anchor for inserting new units into
	// the unit hierarchy
	PlacementPct float64

	// EmissionFactorPct is the percentile used to pick rates for
	// never-observed units
	EmissionFactorPct float64

	// ProxyPct scales proxy load for new coal units
	ProxyPct float64

	// Hierarchy selects temporal ranking granularity
	Hierarchy HierarchyCode

	// NOxGranularity and SO2Granularity pick the finest averaging level the
	// emission resolver starts from
	NOxGranularity RateGranularity
	SO2Granularity RateGranularity

	// MaxOperatingHours is a group-default operating-hour cap; nil uncapped
	MaxOperatingHours *int

	// StatMultiplier widens the statistical rate interval (mean +/- k*sd)
	StatMultiplier float64

	// HeatRateHardBounds and RateHardBounds are configured hard limits,
	// combined with statistical bounds into each unit's effective limits
	HeatRateHardBounds Bounds
	RateHardBounds     map[Pollutant]Bounds
}

// Pollutant identifies an emitted species
type Pollutant string

const (
	SO2 Pollutant = "SO2"
	NOx Pollutant = "NOX"
	CO2 Pollutant = "CO2"
)

// RateGranularity orders the emission-rate averaging levels from finest to
// coarsest. The resolver falls through out-of-bounds candidates toward
// GranularityAnnual, which is terminal.
type RateGranularity int

const (
	GranularityHourly RateGranularity = iota
	GranularityDaily
	GranularityMonthly
	GranularityQuarterly
	GranularitySeasonal
	GranularityAnnual
)

// Coarser returns the next coarser granularity; annual returns itself.
func (g RateGranularity) Coarser() RateGranularity {
	if g >= GranularityAnnual {
		return GranularityAnnual
	}
	return g + 1
}

func (g RateGranularity) String() string {
	switch g {
	case GranularityHourly:
		return "hourly"
	case GranularityDaily:
		return "daily"
	case GranularityMonthly:
		return "monthly"
	case GranularityQuarterly:
		return "quarterly"
	case GranularitySeasonal:
		return "seasonal"
	default:
		return "annual"
	}
}

// ControlEmission is an explicit future control or emission-rate override
type ControlEmission struct {
	Facility  string
	Unit      string
	Pollutant Pollutant

	// Start and End bound the dates the factor applies to
	Start time.Time
	End   time.Time

	// Rate, when set, replaces the resolved rate outright
	Rate *float64

	// Efficiency, when set, reduces the resolved rate by this percentage
	Efficiency *float64
}

// AppliesOn reports whether the override covers a future date, given the
// first day after the base year as the earliest credible start.
func (c *ControlEmission) AppliesOn(date, dayAfterBase time.Time) bool {
	if c.Start.Before(dayAfterBase) {
		return false
	}
	return !c.Start.After(date) && !c.End.Before(date)
}

// DemandTransfer moves net demand into (positive) or out of (negative) a
// group at one hour.
type DemandTransfer struct {
	CalendarHour int
	Amount       float64
}
