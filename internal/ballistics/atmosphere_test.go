package ballistics

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestCorrectDragCoefficientStandard(t *testing.T) {
	got := CorrectDragCoefficient(0.465, StandardAtmosphere())
	if !scalar.EqualWithinAbs(got, 0.465, 1e-12) {
		t.Errorf("CorrectDragCoefficient(standard) = %v, want 0.465", got)
	}
}

func TestStandardHumidity(t *testing.T) {
	if StandardHumidity < 0.69 || StandardHumidity > 0.71 {
		t.Errorf("StandardHumidity = %v, want about 0.70", StandardHumidity)
	}
	fr := HumidityFactor(StandardTemperature, StandardPressure, StandardHumidity)
	if !scalar.EqualWithinAbs(fr, 1, 1e-12) {
		t.Errorf("HumidityFactor at standard = %v, want 1", fr)
	}
}

func TestAtmosphereFactors(t *testing.T) {
	atm := Atmosphere{Altitude: 5000, Pressure: 29.53, Temperature: 59, Humidity: 0}
	f := atm.Factors()

	wantFA := 1 / 0.8595
	if !scalar.EqualWithinRel(f.Altitude, wantFA, 1e-12) {
		t.Errorf("altitude factor = %v, want %v", f.Altitude, wantFA)
	}
	wantFT := 18.0 / 500.6
	if !scalar.EqualWithinRel(f.Temperature, wantFT, 1e-12) {
		t.Errorf("temperature factor = %v, want %v", f.Temperature, wantFT)
	}
	if f.Pressure != 0 {
		t.Errorf("pressure factor = %v, want 0", f.Pressure)
	}
	if !scalar.EqualWithinAbs(f.Humidity, 0.995, 1e-12) {
		t.Errorf("humidity factor with dry air = %v, want 0.995", f.Humidity)
	}
	want := f.Altitude * (1 + f.Temperature - f.Pressure) * f.Humidity
	if f.Combined != want {
		t.Errorf("combined = %v, want %v", f.Combined, want)
	}
}

func TestCorrectDragCoefficientDirection(t *testing.T) {
	std := StandardAtmosphere()
	const bc = 0.5

	tests := []struct {
		name   string
		modify func(a *Atmosphere)
		higher bool
	}{
		{"altitude thins the air", func(a *Atmosphere) { a.Altitude = 6000 }, true},
		{"heat thins the air", func(a *Atmosphere) { a.Temperature = 95 }, true},
		{"cold thickens the air", func(a *Atmosphere) { a.Temperature = 10 }, false},
		{"high pressure thickens the air", func(a *Atmosphere) { a.Pressure = 30.5 }, false},
		{"low pressure thins the air", func(a *Atmosphere) { a.Pressure = 28.0 }, true},
		{"humid air is lighter", func(a *Atmosphere) { a.Humidity = 1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			atm := std
			tt.modify(&atm)
			got := CorrectDragCoefficient(bc, atm)
			if (got > bc) != tt.higher {
				t.Errorf("CorrectDragCoefficient = %v, want higher=%v than %v", got, tt.higher, bc)
			}
		})
	}
}

func TestCorrectDragCoefficientPressureOnly(t *testing.T) {
	if got := CorrectDragCoefficientPressureOnly(0.5, StandardPressure); got != 0.5 {
		t.Errorf("at standard pressure = %v, want 0.5", got)
	}
	got := CorrectDragCoefficientPressureOnly(0.5, 24.9)
	want := 0.5 * (1 - (24.9-29.53)/29.53)
	if !scalar.EqualWithinRel(got, want, 1e-12) {
		t.Errorf("at 24.9 inHg = %v, want %v", got, want)
	}
}

func TestSpeedOfSound(t *testing.T) {
	got := StandardAtmosphere().SpeedOfSound()
	if got < 1115 || got > 1118 {
		t.Errorf("speed of sound at 59F = %v, want about 1116", got)
	}
}
