package types

// Bounds is an effective lower/upper limit on a rate. Either side may be
// absent (nil), meaning unbounded on that side.
type Bounds struct {
	Lower *float64
	Upper *float64
}

// Contains reports whether a value is inside the bounds
func (b Bounds) Contains(v float64) bool {
	if b.Lower != nil && v < *b.Lower {
		return false
	}
	if b.Upper != nil && v > *b.Upper {
		return false
	}
	return true
}

// Tighten combines two bounds, keeping the tighter side of each
func (b Bounds) Tighten(other Bounds) Bounds {
	out := b
	if other.Lower != nil && (out.Lower == nil || *other.Lower > *out.Lower) {
		out.Lower = other.Lower
	}
	if other.Upper != nil && (out.Upper == nil || *other.Upper < *out.Upper) {
		out.Upper = other.Upper
	}
	return out
}

// UnitRates holds the per-unit limit and average-rate tables produced by the
// rate/limit builder and consumed by every rate lookup above it.
type UnitRates struct {
	// HeatRateBounds limits believable hourly heat rates
	HeatRateBounds Bounds

	// RateBounds limits believable emission rates per pollutant
	RateBounds map[Pollutant]Bounds

	// Annual, Ozone, and NonOzone are average rates from summed base-year
	// totals. Presence in the map means the rate is defined.
	Annual   map[Pollutant]float64
	Ozone    map[Pollutant]float64
	NonOzone map[Pollutant]float64

	// AvgHeatRate is total heat input over total generation, Btu/kWh
	AvgHeatRate float64
}

// NewUnitRates returns an empty table
func NewUnitRates() *UnitRates {
	return &UnitRates{
		RateBounds: make(map[Pollutant]Bounds),
		Annual:     make(map[Pollutant]float64),
		Ozone:      make(map[Pollutant]float64),
		NonOzone:   make(map[Pollutant]float64),
	}
}
