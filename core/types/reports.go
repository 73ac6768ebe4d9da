package types

// Report row types handed to the export collaborator. These are finished
// tables; the engine never formats or writes files itself.

// GenericUnit records one synthesized unit
type GenericUnit struct {
	// RecordID is a unique id for the synthesis event itself
	RecordID string

	Region string
	Fuel   string

	// SizeMW is the unit's nameplate size
	SizeMW float64

	Facility     string
	UnitID       string
	FacilityName string
	State        string
}

// DemandDeficit records an hour whose projected demand exceeded the
// pre-synthesis fleet capacity.
type DemandDeficit struct {
	Region       string
	Fuel         string
	CalendarHour int
	Rank         int

	// Demand is the projected generation at the hour
	Demand float64

	// InitialCapacity is fleet capacity before generic units were added
	InitialCapacity float64

	// Shortfall is Demand - InitialCapacity
	Shortfall float64

	// FinalCapacity is fleet capacity after synthesis
	FinalCapacity float64
}

// ReserveCheck is the per-region-per-hour spinning reserve evaluation
type ReserveCheck struct {
	Region       string
	CalendarHour int

	// Rank orders hours by descending region-wide load
	Rank int

	Pass bool

	// Needed is largest-operating-unit capacity times the demand cushion
	Needed float64

	// Available is fleet capacity minus total load
	Available float64

	// Deficit is Needed - Available when the check fails, else 0
	Deficit float64
}

// UnitActivity is the per-unit annual rollup
type UnitActivity struct {
	Region       string
	Fuel         string
	State        string
	Facility     string
	UnitID       string
	FacilityName string

	// Future-year totals
	FYGen   float64
	FYHI    float64
	FYHours int

	// HoursAtMax counts hours pinned at the hourly heat-input limit
	HoursAtMax int

	// Base-year comparatives
	BYGen   float64
	BYHI    float64
	BYHours int

	MaxHourlyHI float64
	HeatRate    float64
	CapacityMW  float64

	// UF is the achieved future-year utilization fraction
	UF float64
}

// CapListing is a configured state or state-group emissions cap
type CapListing struct {
	// Name is the state abbreviation or group name
	Name string

	// States lists member states; a single-state cap lists itself
	States []string

	Pollutant Pollutant

	// Period is "Annual" or "OS" (ozone season)
	Period string

	CapTons        float64
	YearApplicable int
	Comments       string
}

// CapAnalysis compares projected emissions against one cap
type CapAnalysis struct {
	Name           string
	Period         string
	Pollutant      Pollutant
	CapTons        float64
	YearApplicable int

	// ProjectedTons is the modeled future-year total, rendered as a string
	// with fixed precision by the summary layer
	ProjectedTons string

	Comments string
}

// CapacityDemand is the per-group capacity and demand rollup
type CapacityDemand struct {
	Region string
	Fuel   string

	BYGen float64
	BYHI  float64
	FYGen float64
	FYHI  float64

	// NewCapacityMW is capacity contributed by units with no base-year data
	NewCapacityMW float64
}

// ReserveRollup is the per-region reserve summary
type ReserveRollup struct {
	Region string

	// Met is false when any hour failed the reserve check
	Met bool

	// MaxDeficit is the worst hourly deficit observed
	MaxDeficit float64
}
