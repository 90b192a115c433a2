// Package ballistics is a point-mass exterior ballistics engine. It corrects a
// ballistic coefficient for atmospheric conditions, finds the bore angle that
// zeroes a sight at a given range, and integrates the trajectory into a table
// sampled at every yard.
//
// All quantities use imperial units: yards for range, inches for path and
// windage, ft/s for velocity, mph for wind, degrees for input angles.
package ballistics

// Load describes a projectile as fired from a particular rifle and sight.
type Load struct {
	Drag           DragFunction `json:"drag"`
	Coefficient    float64      `json:"bc"`
	MuzzleVelocity float64      `json:"velocity"`     // ft/s
	SightHeight    float64      `json:"sight_height"` // inches above bore
	WeightGrains   float64      `json:"weight,omitempty"`
}

// Sample is the projectile state at the first integration step reaching a
// whole-yard marker.
type Sample struct {
	Yard       int     `json:"yard"`
	Range      float64 `json:"range"`       // yd
	Path       float64 `json:"path"`        // in, relative to line of sight
	MOA        float64 `json:"moa"`         // elevation correction
	Time       float64 `json:"time"`        // s
	Windage    float64 `json:"windage"`     // in
	WindageMOA float64 `json:"windage_moa"` // windage correction
	Velocity   float64 `json:"velocity"`    // ft/s
	Vx         float64 `json:"vx"`          // ft/s along bore
	Vy         float64 `json:"vy"`          // ft/s across bore
	Energy     float64 `json:"energy"`      // ft·lbf, 0 when weight unknown
}

// Termination records why integration stopped.
type Termination int

const (
	// Vertical means the transverse velocity exceeded three times the axial one.
	Vertical Termination = iota
	// Stalled means axial velocity reached zero with nothing to restore it.
	Stalled
	// RangeLimit means the configured maximum range was reached.
	RangeLimit
)

func (t Termination) String() string {
	switch t {
	case Vertical:
		return "vertical"
	case Stalled:
		return "stalled"
	case RangeLimit:
		return "range_limit"
	default:
		return "unknown"
	}
}

// MarshalText encodes t by name.
func (t Termination) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Solution is the integrated trajectory table. Samples[i] is the first step
// that reached i yards.
type Solution struct {
	Samples     []Sample
	Termination Termination
}

// Len returns the number of samples.
func (s *Solution) Len() int { return len(s.Samples) }

// Truncated reports whether the table stopped at the range limit.
func (s *Solution) Truncated() bool { return s.Termination == RangeLimit }

// At returns the sample for the given yard.
func (s *Solution) At(yard int) (Sample, bool) {
	if yard < 0 || yard >= len(s.Samples) {
		return Sample{}, false
	}
	return s.Samples[yard], true
}

// Last returns the furthest sample.
func (s *Solution) Last() (Sample, bool) {
	if len(s.Samples) == 0 {
		return Sample{}, false
	}
	return s.Samples[len(s.Samples)-1], true
}

// Every returns the samples at multiples of step up to and including
// maxYard. A non-positive maxYard means the whole table.
func (s *Solution) Every(step, maxYard int) []Sample {
	if step < 1 {
		step = 1
	}
	last := len(s.Samples) - 1
	if maxYard > 0 && maxYard < last {
		last = maxYard
	}
	if last < 0 {
		return nil
	}
	out := make([]Sample, 0, last/step+1)
	for y := 0; y <= last; y += step {
		out = append(out, s.Samples[y])
	}
	return out
}

// Energy returns kinetic energy in ft·lbf for a projectile of weightGrains
// at velocity ft/s.
func Energy(weightGrains, velocity float64) float64 {
	return weightGrains * velocity * velocity / 450800
}
