// Package units converts between the metric inputs clients may send and the
// imperial units the ballistics engine works in.
package units

import "math"

const (
	metersPerYard  = 0.9144
	metersPerFoot  = 0.3048
	mmPerInch      = 25.4
	kmhPerMph      = 1.609344
	hPaPerInHg     = 33.8638866667
	gramsPerGrain  = 0.06479891
	joulesPerFtLbf = 1.3558179483314004
)

// System names a unit system in request payloads.
type System string

const (
	Imperial System = "imperial"
	Metric   System = "metric"
)

// IsMetric reports whether s selects metric units. The empty value is imperial.
func (s System) IsMetric() bool { return s == Metric }

// Valid reports whether s is a recognised unit system.
func (s System) Valid() bool { return s == "" || s == Imperial || s == Metric }

func MetersToYards(m float64) float64  { return m / metersPerYard }
func YardsToMeters(yd float64) float64 { return yd * metersPerYard }

func MetersToFeet(m float64) float64  { return m / metersPerFoot }
func FeetToMeters(ft float64) float64 { return ft * metersPerFoot }

func MillimetersToInches(mm float64) float64 { return mm / mmPerInch }
func InchesToMillimeters(in float64) float64 { return in * mmPerInch }

func CentimetersToInches(cm float64) float64 { return cm * 10 / mmPerInch }
func InchesToCentimeters(in float64) float64 { return in * mmPerInch / 10 }

func MetersPerSecondToFPS(mps float64) float64 { return mps / metersPerFoot }
func FPSToMetersPerSecond(fps float64) float64 { return fps * metersPerFoot }

func KMHToMPH(kmh float64) float64 { return kmh / kmhPerMph }
func MPHToKMH(mph float64) float64 { return mph * kmhPerMph }

func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }
func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

func HectopascalsToInHg(hPa float64) float64 { return hPa / hPaPerInHg }
func InHgToHectopascals(inHg float64) float64 { return inHg * hPaPerInHg }

func GramsToGrains(g float64) float64 { return g / gramsPerGrain }
func GrainsToGrams(gr float64) float64 { return gr * gramsPerGrain }

func FootPoundsToJoules(ftlbf float64) float64 { return ftlbf * joulesPerFtLbf }

// MilsToMOA converts milliradians to minutes of angle.
func MilsToMOA(mil float64) float64 { return mil / 1000 * 60 * 180 / math.Pi }

// MOAToMils converts minutes of angle to milliradians.
func MOAToMils(moa float64) float64 { return moa / 60 * math.Pi / 180 * 1000 }
