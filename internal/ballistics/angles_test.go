package ballistics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestAngleRoundTrips(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"deg-rad-deg", RadiansToDegrees(DegreesToRadians(45)), 45},
		{"moa-rad-moa", RadiansToMOA(MOAToRadians(60)), 60},
		{"deg-moa-deg", MOAToDegrees(DegreesToMOA(1.5)), 1.5},
		{"180 deg is pi", DegreesToRadians(180), math.Pi},
		{"one degree is 60 moa", DegreesToMOA(1), 60},
		{"60 moa in radians", MOAToRadians(60), math.Pi / 180},
		{"one radian in moa", RadiansToMOA(1), 3437.7467707849392},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !scalar.EqualWithinAbs(tt.got, tt.want, 1e-9) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestWindComponents(t *testing.T) {
	tests := []struct {
		angle float64
		head  float64
		cross float64
	}{
		{0, 10, 0},
		{90, 0, 10},
		{180, -10, 0},
		{270, 0, -10},
		{-90, 0, -10},
	}
	for _, tt := range tests {
		w := Wind{Speed: 10, Angle: tt.angle}
		if got := HeadWind(w); !scalar.EqualWithinAbs(got, tt.head, 1e-9) {
			t.Errorf("HeadWind(%v) = %v, want %v", tt.angle, got, tt.head)
		}
		if got := CrossWind(w); !scalar.EqualWithinAbs(got, tt.cross, 1e-9) {
			t.Errorf("CrossWind(%v) = %v, want %v", tt.angle, got, tt.cross)
		}
	}
}

func TestWindageCorrection(t *testing.T) {
	// 10 mph crosswind, 1 second lag behind vacuum flight time.
	got := WindageCorrection(10, 3000, 3000, 2)
	if !scalar.EqualWithinAbs(got, 176, 1e-9) {
		t.Errorf("WindageCorrection = %v, want 176", got)
	}
	if got := WindageCorrection(0, 3000, 3000, 2); got != 0 {
		t.Errorf("WindageCorrection with no wind = %v, want 0", got)
	}
}
