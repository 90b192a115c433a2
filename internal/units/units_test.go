package units

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestConversions(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"100 m in yards", MetersToYards(100), 109.3613298},
		{"100 yd in meters", YardsToMeters(100), 91.44},
		{"1000 ft in meters", FeetToMeters(1000), 304.8},
		{"38 mm sight in inches", MillimetersToInches(38.1), 1.5},
		{"4 cm in inches", CentimetersToInches(5.08), 2},
		{"800 m/s in ft/s", MetersPerSecondToFPS(800), 2624.6719160},
		{"16.09 km/h in mph", KMHToMPH(16.09344), 10},
		{"15 C in F", CelsiusToFahrenheit(15), 59},
		{"-40 F in C", FahrenheitToCelsius(-40), -40},
		{"1013.25 hPa in inHg", HectopascalsToInHg(1013.25), 29.9212},
		{"10.89 g in grains", GramsToGrains(10.886217), 168},
		{"1 mil in moa", MilsToMOA(1), 3.4377467707849},
		{"1 ft-lbf in J", FootPoundsToJoules(1), 1.3558179483},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !scalar.EqualWithinAbs(tt.got, tt.want, 1e-4) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestRoundTrips(t *testing.T) {
	for _, v := range []float64{0, 1, 12.5, 1000} {
		if got := YardsToMeters(MetersToYards(v)); !scalar.EqualWithinAbs(got, v, 1e-9) {
			t.Errorf("yards round trip of %v = %v", v, got)
		}
		if got := InchesToMillimeters(MillimetersToInches(v)); !scalar.EqualWithinAbs(got, v, 1e-9) {
			t.Errorf("inches round trip of %v = %v", v, got)
		}
		if got := MOAToMils(MilsToMOA(v)); !scalar.EqualWithinAbs(got, v, 1e-9) {
			t.Errorf("mils round trip of %v = %v", v, got)
		}
		if got := InHgToHectopascals(HectopascalsToInHg(v)); !scalar.EqualWithinAbs(got, v, 1e-9) {
			t.Errorf("pressure round trip of %v = %v", v, got)
		}
	}
}

func TestSystem(t *testing.T) {
	if !Metric.IsMetric() || Imperial.IsMetric() || System("").IsMetric() {
		t.Error("IsMetric mismatch")
	}
	if !System("").Valid() || System("furlongs").Valid() {
		t.Error("Valid mismatch")
	}
}
