package solver

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/star/ballistics/internal/ballistics"
)

// ErrInvalidRequest wraps every validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// Config holds solver configuration loaded from environment variables.
type Config struct {
	Workers  int     // Worker pool size (default: runtime.NumCPU())
	MaxRange int     // Trajectory table limit in yards (default: 50000)
	Gravity  float64 // ft/s² (default: -32.194)
}

// Request is one complete shot: the load, how it was zeroed, and the
// conditions it is fired in.
type Request struct {
	Label string          `json:"label,omitempty"`
	Load  ballistics.Load `json:"load"`

	ZeroRange  float64 `json:"zero_range"`  // yd
	YIntercept float64 `json:"y_intercept"` // in above line of sight at ZeroRange

	HillAngle float64         `json:"hill_angle"` // degrees, positive uphill
	Wind      ballistics.Wind `json:"wind"`

	// Atmosphere is where the shot is fired. Nil means the standard
	// conditions of the drag tables, with no correction.
	Atmosphere *ballistics.Atmosphere `json:"atmosphere,omitempty"`
	// ZeroAtmosphere is where the rifle was zeroed. Nil means Atmosphere.
	ZeroAtmosphere *ballistics.Atmosphere `json:"zero_atmosphere,omitempty"`
	// AbsolutePressure marks pressures as station readings, corrected by
	// pressure alone.
	AbsolutePressure bool `json:"absolute_pressure,omitempty"`
}

// Validate checks the request for values the engine cannot solve.
func (r Request) Validate() error {
	var problems []string
	if !r.Load.Drag.Supported() {
		problems = append(problems, fmt.Sprintf("drag function %s has no retardation table", r.Load.Drag))
	}
	if !(r.Load.Coefficient > 0) {
		problems = append(problems, "ballistic coefficient must be positive")
	}
	if !(r.Load.MuzzleVelocity > 0) {
		problems = append(problems, "muzzle velocity must be positive")
	}
	if r.Load.SightHeight < 0 || math.IsNaN(r.Load.SightHeight) {
		problems = append(problems, "sight height must not be negative")
	}
	if r.Load.WeightGrains < 0 {
		problems = append(problems, "weight must not be negative")
	}
	if !(r.ZeroRange > 0) {
		problems = append(problems, "zero range must be positive")
	}
	if !(math.Abs(r.HillAngle) < 90) {
		problems = append(problems, "hill angle must be between -90 and 90 degrees")
	}
	if r.Wind.Speed < 0 || math.IsNaN(r.Wind.Speed) {
		problems = append(problems, "wind speed must not be negative")
	}
	for _, a := range []struct {
		name string
		atm  *ballistics.Atmosphere
	}{{"atmosphere", r.Atmosphere}, {"zero_atmosphere", r.ZeroAtmosphere}} {
		if a.atm == nil {
			continue
		}
		if !(a.atm.Pressure > 0) {
			problems = append(problems, a.name+" pressure must be positive")
		}
		if a.atm.Humidity < 0 || a.atm.Humidity > 1 {
			problems = append(problems, a.name+" humidity must be between 0 and 1")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}

// Key returns a canonical fingerprint of everything that affects the result.
// The label is excluded.
func (r Request) Key() string {
	var b strings.Builder
	f := func(v float64) {
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		b.WriteByte('|')
	}
	b.WriteString(r.Load.Drag.String())
	b.WriteByte('|')
	f(r.Load.Coefficient)
	f(r.Load.MuzzleVelocity)
	f(r.Load.SightHeight)
	f(r.Load.WeightGrains)
	f(r.ZeroRange)
	f(r.YIntercept)
	f(r.HillAngle)
	f(r.Wind.Speed)
	f(r.Wind.Angle)
	for _, atm := range []*ballistics.Atmosphere{r.Atmosphere, r.ZeroAtmosphere} {
		if atm == nil {
			b.WriteString("std|")
			continue
		}
		f(atm.Altitude)
		f(atm.Pressure)
		f(atm.Temperature)
		f(atm.Humidity)
	}
	if r.AbsolutePressure {
		b.WriteString("abs")
	}
	return b.String()
}

// Result is a solved request.
type Result struct {
	Request         Request
	Coefficient     float64 // corrected for the firing atmosphere
	ZeroCoefficient float64 // corrected for the zeroing atmosphere
	BoreAngle       float64 // degrees
	Solution        *ballistics.Solution
	Truncated       bool
	Duration        time.Duration
}

// ZeroResult is the outcome of a zero-only request.
type ZeroResult struct {
	BoreAngle       float64 `json:"bore_angle"`
	BoreAngleMOA    float64 `json:"bore_angle_moa"`
	ZeroCoefficient float64 `json:"zero_coefficient"`
}
