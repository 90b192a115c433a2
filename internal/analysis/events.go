// Package analysis derives range-card events from solved trajectories: apex,
// line-of-sight crossings, point-blank range and the subsonic transition.
package analysis

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/star/ballistics/internal/ballistics"
	"github.com/star/ballistics/internal/metrics"
	"github.com/star/ballistics/internal/solver"
)

// DefaultVitalZone is the target diameter in inches used for point-blank range.
const DefaultVitalZone = 6.0

// Solver produces complete solutions. Satisfied by *solver.Solver and
// *cache.SolutionCache.
type Solver interface {
	Solve(ctx context.Context, r solver.Request) (*solver.Result, error)
}

// Apex is the highest point of the path relative to the line of sight.
type Apex struct {
	Yard int     `json:"yard"`
	Path float64 `json:"path"` // in
}

// PointBlank is the longest range a shooter can hold dead on and stay
// inside the vital zone.
type PointBlank struct {
	VitalZone float64 `json:"vital_zone"` // in
	Range     int     `json:"range"`      // yd
	// Limit names what ends point-blank: "high", "low" or "end" when the
	// trajectory finished inside the zone.
	Limit string `json:"limit"`
}

// Events is everything derived from one trajectory.
type Events struct {
	Apex       Apex       `json:"apex"`
	NearZero   *float64   `json:"near_zero,omitempty"` // yd, path rises through the line of sight
	FarZero    *float64   `json:"far_zero,omitempty"`  // yd, path falls through the line of sight
	PointBlank PointBlank `json:"point_blank"`

	SpeedOfSound float64 `json:"speed_of_sound"` // ft/s
	// SupersonicRange is the last yard still above the speed of sound.
	// Nil when the load never goes subsonic inside the solution.
	SupersonicRange  *int `json:"supersonic_range,omitempty"`
	SubsonicAtMuzzle bool `json:"subsonic_at_muzzle,omitempty"`

	MaxYard      int                    `json:"max_yard"`
	TimeOfFlight float64                `json:"time_of_flight"` // s
	Velocity     float64                `json:"velocity"`       // ft/s at MaxYard
	Energy       float64                `json:"energy"`         // ft·lbf at MaxYard
	Termination  ballistics.Termination `json:"termination"`
	BoreAngle    float64                `json:"bore_angle"` // degrees
}

// ProfileEvents holds the events for one request.
type ProfileEvents struct {
	Label  string  `json:"label"`
	Events *Events `json:"events,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Request holds the shots to analyze.
type Request struct {
	Shots     []solver.Request
	VitalZone float64 // in, DefaultVitalZone when zero
}

// Analyze solves and analyzes every shot. Each shot is processed in its own
// goroutine, bounded by a semaphore.
func Analyze(ctx context.Context, s Solver, req Request) []ProfileEvents {
	start := time.Now()
	defer func() { metrics.ObserveAnalysisDuration(time.Since(start)) }()

	vital := req.VitalZone
	if vital <= 0 {
		vital = DefaultVitalZone
	}

	results := make([]ProfileEvents, len(req.Shots))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, shot := range req.Shots {
		wg.Add(1)
		go func(idx int, r solver.Request) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = ProfileEvents{Label: r.Label, Error: "cancelled"}
				return
			}

			res, err := s.Solve(ctx, r)
			if err != nil {
				results[idx] = ProfileEvents{Label: r.Label, Error: err.Error()}
				return
			}
			ev, err := Derive(res, vital)
			if err != nil {
				results[idx] = ProfileEvents{Label: r.Label, Error: err.Error()}
				return
			}
			results[idx] = ProfileEvents{Label: r.Label, Events: ev}
		}(i, shot)
	}

	wg.Wait()
	return results
}

// Derive computes the events of a single solved request.
func Derive(res *solver.Result, vitalZone float64) (*Events, error) {
	if res == nil || res.Solution == nil || res.Solution.Len() == 0 {
		return nil, fmt.Errorf("empty solution")
	}
	samples := res.Solution.Samples

	path := make([]float64, len(samples))
	for i, s := range samples {
		path[i] = s.Path
	}

	apexIdx := floats.MaxIdx(path)
	last := samples[len(samples)-1]

	atm := ballistics.StandardAtmosphere()
	if res.Request.Atmosphere != nil {
		atm = *res.Request.Atmosphere
	}

	ev := &Events{
		Apex:         Apex{Yard: samples[apexIdx].Yard, Path: path[apexIdx]},
		PointBlank:   pointBlank(samples, vitalZone),
		SpeedOfSound: atm.SpeedOfSound(),
		MaxYard:      last.Yard,
		TimeOfFlight: last.Time,
		Velocity:     last.Velocity,
		Energy:       last.Energy,
		Termination:  res.Solution.Termination,
		BoreAngle:    res.BoreAngle,
	}
	ev.NearZero, ev.FarZero = zeroCrossings(samples)

	if res.Request.Load.MuzzleVelocity < ev.SpeedOfSound {
		ev.SubsonicAtMuzzle = true
		zero := 0
		ev.SupersonicRange = &zero
	} else {
		for i, s := range samples {
			if s.Velocity < ev.SpeedOfSound {
				yard := 0
				if i > 0 {
					yard = samples[i-1].Yard
				}
				ev.SupersonicRange = &yard
				break
			}
		}
	}

	return ev, nil
}

// zeroCrossings returns the interpolated yards where the path first rises
// through the line of sight and where it next falls back through it.
func zeroCrossings(samples []ballistics.Sample) (near, far *float64) {
	for i := 1; i < len(samples); i++ {
		a, b := samples[i-1], samples[i]
		switch {
		case near == nil && a.Path < 0 && b.Path >= 0:
			y := interpolate(a, b)
			near = &y
		case near != nil && a.Path >= 0 && b.Path < 0:
			y := interpolate(a, b)
			far = &y
			return near, far
		}
	}
	return near, far
}

// interpolate returns the range where the path between a and b is zero.
func interpolate(a, b ballistics.Sample) float64 {
	if b.Path == a.Path {
		return b.Range
	}
	return a.Range + (b.Range-a.Range)*(-a.Path)/(b.Path-a.Path)
}

// pointBlank scans outward until the path leaves ±vitalZone/2. A muzzle
// start below the zone (tall sights) is not counted as leaving it.
func pointBlank(samples []ballistics.Sample, vitalZone float64) PointBlank {
	half := vitalZone / 2
	pb := PointBlank{VitalZone: vitalZone, Limit: "end"}
	entered := false
	for i, s := range samples {
		inside := s.Path >= -half && s.Path <= half
		if !entered {
			if inside {
				entered = true
				pb.Range = s.Yard
			}
			continue
		}
		if !inside {
			pb.Limit = "low"
			if s.Path > half {
				pb.Limit = "high"
			}
			pb.Range = samples[i-1].Yard
			return pb
		}
		pb.Range = s.Yard
	}
	return pb
}
