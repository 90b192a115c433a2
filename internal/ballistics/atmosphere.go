package ballistics

import "math"

const (
	// StandardPressure is the reference barometric pressure in inHg.
	StandardPressure = 29.53
	// StandardTemperature is the sea-level reference temperature in °F.
	StandardTemperature = 59.0
)

// StandardHumidity is the relative humidity at which the humidity factor is
// exactly 1 under standard pressure and temperature.
var StandardHumidity = 0.005 * StandardPressure / (0.3783 * vaporPressure(StandardTemperature))

// Atmosphere describes the air the projectile flies through.
type Atmosphere struct {
	Altitude    float64 `json:"altitude"`    // ft above sea level
	Pressure    float64 `json:"pressure"`    // inHg, station-corrected (as reported)
	Temperature float64 `json:"temperature"` // °F
	Humidity    float64 `json:"humidity"`    // fraction, 0..1
}

// StandardAtmosphere returns the reference conditions of the drag tables.
func StandardAtmosphere() Atmosphere {
	return Atmosphere{
		Altitude:    0,
		Pressure:    StandardPressure,
		Temperature: StandardTemperature,
		Humidity:    StandardHumidity,
	}
}

// CorrectionFactors holds the individual terms of the coefficient correction.
type CorrectionFactors struct {
	Altitude    float64 `json:"altitude"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	Combined    float64 `json:"combined"`
}

// Factors computes the correction terms for atm. Combined is the multiplier
// applied to a standard ballistic coefficient.
func (atm Atmosphere) Factors() CorrectionFactors {
	fa := AltitudeFactor(atm.Altitude)
	ft := TemperatureFactor(atm.Temperature, atm.Altitude)
	fr := HumidityFactor(atm.Temperature, atm.Pressure, atm.Humidity)
	fp := PressureFactor(atm.Pressure)
	return CorrectionFactors{
		Altitude:    fa,
		Temperature: ft,
		Humidity:    fr,
		Pressure:    fp,
		Combined:    fa * (1 + ft - fp) * fr,
	}
}

// SpeedOfSound returns the speed of sound in ft/s at the atmosphere's temperature.
func (atm Atmosphere) SpeedOfSound() float64 {
	return 49.0223 * math.Sqrt(atm.Temperature+459.67)
}

// CorrectDragCoefficient adjusts a standard-conditions ballistic coefficient
// for the given atmosphere. Inputs are not range checked.
func CorrectDragCoefficient(coefficient float64, atm Atmosphere) float64 {
	return coefficient * atm.Factors().Combined
}

// CorrectDragCoefficientPressureOnly adjusts coefficient for an absolute
// (station) pressure reading, which already accounts for altitude.
func CorrectDragCoefficientPressureOnly(coefficient, pressure float64) float64 {
	return coefficient * (1 - PressureFactor(pressure))
}

// AltitudeFactor is the reciprocal of the cubic air density fit at altitude ft.
func AltitudeFactor(altitude float64) float64 {
	fa := -4e-15*math.Pow(altitude, 3) + 4e-10*math.Pow(altitude, 2) - 3e-5*altitude + 1
	return 1 / fa
}

// TemperatureFactor is the relative deviation from the standard temperature
// at altitude.
func TemperatureFactor(temperature, altitude float64) float64 {
	tstd := -0.0036*altitude + StandardTemperature
	return (temperature - tstd) / (459.6 + tstd)
}

// HumidityFactor corrects for water vapour displacing dry air.
func HumidityFactor(temperature, pressure, humidity float64) float64 {
	return 0.995 * (pressure / (pressure - 0.3783*humidity*vaporPressure(temperature)))
}

// PressureFactor is the relative deviation from standard pressure.
func PressureFactor(pressure float64) float64 {
	return (pressure - StandardPressure) / StandardPressure
}

// vaporPressure is the saturation vapour pressure fit in inHg at °F.
func vaporPressure(temperature float64) float64 {
	return 4e-6*math.Pow(temperature, 3) - 0.0004*math.Pow(temperature, 2) + 0.0234*temperature - 0.2517
}
