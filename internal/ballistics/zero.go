package ballistics

import (
	"fmt"
	"math"
)

// maxZeroAngle is the steepest bore angle the zero search will try.
var maxZeroAngle = DegreesToRadians(45)

// zeroTolerance ends the search once the angle step is this small.
var zeroTolerance = MOAToRadians(0.01)

// zeroReach is the share of the zero range a converged pass must cover
// before falling below the target. A pass a hair under the true angle
// drops through the target just short of the zero range.
const zeroReach = 0.99

// zeroExit records why a micro-integration pass stopped.
type zeroExit int

const (
	exitRange    zeroExit = iota // travelled past the zero range
	exitFell                     // dropped below the target height
	exitVertical                 // climbing near vertically in the bore frame
)

// ZeroAngle finds the bore angle, in degrees, at which the projectile crosses
// yIntercept inches above the line of sight at zeroRange yards. The shot is
// level and windless; pass an atmosphere-corrected coefficient in l if the
// zero was taken in non-standard air.
//
// The search starts level and climbs in 14 degree steps, halving and
// reversing the step every time the impact crosses the target height.
func (e *Engine) ZeroAngle(l Load, zeroRange, yIntercept float64) (float64, error) {
	target := yIntercept / 12
	limit := zeroRange * 3
	g := e.config.Gravity

	da := DegreesToRadians(14)
	iterations := 0
	for angle := 0.0; ; angle += da {
		iterations++
		vx := l.MuzzleVelocity * math.Cos(angle)
		vy := l.MuzzleVelocity * math.Sin(angle)
		gx := g * math.Sin(angle)
		gy := g * math.Cos(angle)

		x, y := 0.0, -l.SightHeight/12
		exit := exitRange
		for x <= limit {
			vxLast, vyLast := vx, vy
			v := math.Hypot(vx, vy)
			dt := 1 / v

			dv, err := Retardation(l.Drag, l.Coefficient, v)
			if err != nil {
				return 0, fmt.Errorf("zero search at %.4f deg: %w", RadiansToDegrees(angle), err)
			}
			dvx := -(vx / v) * dv
			dvy := -(vy / v) * dv

			vx += dt*dvx + dt*gx
			vy += dt*dvy + dt*gy

			x += dt * (vx + vxLast) / 2
			y += dt * (vy + vyLast) / 2

			// Falling below the target, or climbing near vertically, cannot
			// recover within this angle.
			if vy < 0 && y < target {
				exit = exitFell
				break
			}
			if vy > 3*vx {
				exit = exitVertical
				break
			}
		}

		if y > target && da > 0 {
			da = -da / 2
		}
		if y < target && da < 0 {
			da = -da / 2
		}

		if math.Abs(da) < zeroTolerance {
			// Past the maximum range the search settles on the angle where
			// the bore-frame velocity reverses, which never reaches the target.
			if exit == exitVertical || (exit == exitFell && x < limit*zeroReach) {
				return 0, fmt.Errorf("%w: zero range %.1f yd with %s bc %.3f at %.0f ft/s (search stalled at %.2f deg)",
					ErrNoZeroSolution, zeroRange, l.Drag, l.Coefficient, l.MuzzleVelocity, RadiansToDegrees(angle))
			}
			e.logger.Debug("zero angle found",
				"angle_deg", RadiansToDegrees(angle),
				"iterations", iterations,
				"zero_range", zeroRange,
			)
			return RadiansToDegrees(angle), nil
		}
		if angle > maxZeroAngle {
			return 0, fmt.Errorf("%w: zero range %.1f yd with %s bc %.3f at %.0f ft/s",
				ErrNoZeroSolution, zeroRange, l.Drag, l.Coefficient, l.MuzzleVelocity)
		}
	}
}
