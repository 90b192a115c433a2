package ballistics

import (
	"fmt"
	"math"
)

// Solve integrates the trajectory of l fired at boreAngle degrees above the
// line of sight, with the line of sight inclined hillAngle degrees, through
// wind. The table holds one sample per yard until the projectile turns
// near-vertical, stalls, or reaches the configured maximum range.
//
// When the range limit stops integration the truncated solution is returned
// together with ErrRangeLimitExceeded. Any other error returns no solution.
func (e *Engine) Solve(l Load, hillAngle, boreAngle float64, w Wind) (*Solution, error) {
	headwind := HeadWind(w)
	crosswind := CrossWind(w)
	headwindFPS := headwind * 5280 / 3600

	inclination := DegreesToRadians(hillAngle + boreAngle)
	gy := e.config.Gravity * math.Cos(inclination)
	gx := e.config.Gravity * math.Sin(inclination)

	bore := DegreesToRadians(boreAngle)
	vx := l.MuzzleVelocity * math.Cos(bore)
	vy := l.MuzzleVelocity * math.Sin(bore)

	x, y := 0.0, -l.SightHeight/12
	t, dt := 0.0, 0.0

	limit := e.config.MaxRange + 1
	samples := make([]Sample, 0, initialCapacity(limit))

	for {
		vxLast, vyLast := vx, vy
		v := math.Hypot(vx, vy)

		dv, err := Retardation(l.Drag, l.Coefficient, v+headwindFPS)
		if err != nil {
			return nil, fmt.Errorf("trajectory at %.1f yd: %w", x/3, err)
		}
		dvx := -(vx / v) * dv
		dvy := -(vy / v) * dv

		vx += dt*dvx + dt*gx
		vy += dt*dvy + dt*gy

		if x/3 >= float64(len(samples)) {
			samples = append(samples, e.sample(l, len(samples), x, y, t+dt, v, vx, vy, crosswind))
		}

		x += dt * (vx + vxLast) / 2
		y += dt * (vy + vyLast) / 2

		dt = 0.5 / v

		if math.Abs(vy) > math.Abs(3*vx) {
			return e.finish(samples, Vertical), nil
		}
		if len(samples) >= limit {
			return e.finish(samples, RangeLimit), fmt.Errorf("%w: %d yd", ErrRangeLimitExceeded, e.config.MaxRange)
		}
		if vx <= 0 && gx <= 0 {
			return e.finish(samples, Stalled), nil
		}

		t += dt
	}
}

// sample builds the table row for yard from the integrator state.
func (e *Engine) sample(l Load, yard int, x, y, time, v, vx, vy, crosswind float64) Sample {
	s := Sample{
		Yard:     yard,
		Range:    x / 3,
		Path:     y * 12,
		Time:     time,
		Windage:  WindageCorrection(crosswind, l.MuzzleVelocity, x, time),
		Velocity: v,
		Vx:       vx,
		Vy:       vy,
	}
	// Angular corrections are undefined at the muzzle.
	if x > 0 {
		s.MOA = -RadiansToMOA(math.Atan(y / x))
		s.WindageMOA = RadiansToMOA(math.Atan(s.Windage / (12 * x)))
	}
	if l.WeightGrains > 0 {
		s.Energy = Energy(l.WeightGrains, v)
	}
	return s
}

func (e *Engine) finish(samples []Sample, term Termination) *Solution {
	e.logger.Debug("trajectory solved",
		"samples", len(samples),
		"termination", term.String(),
	)
	return &Solution{Samples: samples, Termination: term}
}

// initialCapacity bounds the up-front allocation; typical tables end well
// short of the range limit.
func initialCapacity(limit int) int {
	if limit < 2048 {
		return limit
	}
	return 2048
}
