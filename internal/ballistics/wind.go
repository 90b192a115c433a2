package ballistics

import "math"

// Wind is a steady horizontal wind. Angle is in degrees: 0 is a headwind,
// 90 blows from the shooter's right, 180 is a tailwind, 270 (or -90) blows
// from the left.
type Wind struct {
	Speed float64 `json:"speed"` // mph
	Angle float64 `json:"angle"` // degrees
}

// HeadWind returns the component of w blowing toward the shooter, in mph.
func HeadWind(w Wind) float64 {
	return math.Cos(DegreesToRadians(w.Angle)) * w.Speed
}

// CrossWind returns the right-to-left component of w, in mph.
func CrossWind(w Wind) float64 {
	return math.Sin(DegreesToRadians(w.Angle)) * w.Speed
}

// WindageCorrection returns the lateral drift in inches after time seconds
// over rangeFeet, from the lag between actual and vacuum flight time.
func WindageCorrection(crosswind, muzzleVelocity, rangeFeet, time float64) float64 {
	vw := crosswind * 17.60 // mph to in/s
	return vw * (time - rangeFeet/muzzleVelocity)
}
