package logging

import "go.uber.org/zap"

// Field helpers for the identifiers that locate an offending input row.
// Warnings from the engine should carry at least region and fuel.

// Region tags a log entry with the region being processed
func Region(region string) zap.Field {
	return zap.String("region", region)
}

// Fuel tags a log entry with the fuel/unit-type bin
func Fuel(fuel string) zap.Field {
	return zap.String("fuel", fuel)
}

// Facility tags a log entry with a facility (plant) id
func Facility(id string) zap.Field {
	return zap.String("facility", id)
}

// Unit tags a log entry with a unit id
func Unit(id string) zap.Field {
	return zap.String("unit", id)
}

// Hour tags a log entry with a 1-based calendar hour
func Hour(h int) zap.Field {
	return zap.Int("calendar_hour", h)
}

// Pollutant tags a log entry with an emitted species
func Pollutant(p string) zap.Field {
	return zap.String("pollutant", p)
}
