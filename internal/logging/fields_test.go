package logging

import (
	"testing"

	"go.uber.org/zap"
)

// TestFieldHelpers tests that each helper produces the expected zap field
func TestFieldHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  zap.Field
		want zap.Field
	}{
		{"region", Region("ERC"), zap.String("region", "ERC")},
		{"fuel", Fuel("Coal"), zap.String("fuel", "Coal")},
		{"facility", Facility("F1"), zap.String("facility", "F1")},
		{"unit", Unit("U1"), zap.String("unit", "U1")},
		{"hour", Hour(4217), zap.Int("calendar_hour", 4217)},
		{"pollutant", Pollutant("NOX"), zap.String("pollutant", "NOX")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Equals(tt.want) {
				t.Errorf("field = %+v, want %+v", tt.got, tt.want)
			}
		})
	}
}
