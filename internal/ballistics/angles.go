package ballistics

import "math"

// DegreesToMOA converts degrees to minutes of angle.
func DegreesToMOA(deg float64) float64 { return deg * 60 }

// DegreesToRadians converts degrees to radians.
func DegreesToRadians(deg float64) float64 { return deg * math.Pi / 180 }

// MOAToDegrees converts minutes of angle to degrees.
func MOAToDegrees(moa float64) float64 { return moa / 60 }

// MOAToRadians converts minutes of angle to radians.
func MOAToRadians(moa float64) float64 { return moa / 60 * math.Pi / 180 }

// RadiansToDegrees converts radians to degrees.
func RadiansToDegrees(rad float64) float64 { return rad * 180 / math.Pi }

// RadiansToMOA converts radians to minutes of angle.
func RadiansToMOA(rad float64) float64 { return rad * 60 * 180 / math.Pi }
