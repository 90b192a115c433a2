// Package solver runs complete shot solutions (atmospheric correction, zero
// search, trajectory integration) and fans batches out over a worker pool.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/star/ballistics/internal/ballistics"
	"github.com/star/ballistics/internal/metrics"
)

// Solver orchestrates single and batched solves over one engine.
type Solver struct {
	engine *ballistics.Engine
	pool   *WorkerPool
	config Config
	logger *slog.Logger
}

// NewSolver creates a solver and its worker pool.
func NewSolver(config Config, logger *slog.Logger) *Solver {
	if config.Workers < 1 {
		config.Workers = 1
	}
	engine := ballistics.NewEngine(ballistics.Config{
		Gravity:  config.Gravity,
		MaxRange: config.MaxRange,
	}, logger)
	s := &Solver{
		engine: engine,
		config: config,
		logger: logger,
	}
	s.pool = NewWorkerPool(config.Workers, s, logger)
	return s
}

// Engine returns the underlying ballistics engine.
func (s *Solver) Engine() *ballistics.Engine {
	return s.engine
}

// Workers returns the worker pool size.
func (s *Solver) Workers() int {
	return s.config.Workers
}

// coefficients returns the firing and zeroing coefficients for r.
func (s *Solver) coefficients(r Request) (shot, zero float64) {
	correct := func(atm *ballistics.Atmosphere) float64 {
		if atm == nil {
			return r.Load.Coefficient
		}
		if r.AbsolutePressure {
			return ballistics.CorrectDragCoefficientPressureOnly(r.Load.Coefficient, atm.Pressure)
		}
		return ballistics.CorrectDragCoefficient(r.Load.Coefficient, *atm)
	}
	shot = correct(r.Atmosphere)
	zero = shot
	if r.ZeroAtmosphere != nil {
		zero = correct(r.ZeroAtmosphere)
	}
	return shot, zero
}

// Zero finds the bore angle for r without integrating the full trajectory.
func (s *Solver) Zero(ctx context.Context, r Request) (*ZeroResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	_, zeroBC := s.coefficients(r)
	load := r.Load
	load.Coefficient = zeroBC

	bore, err := s.engine.ZeroAngle(load, r.ZeroRange, r.YIntercept)
	if err != nil {
		return nil, err
	}
	return &ZeroResult{
		BoreAngle:       bore,
		BoreAngleMOA:    ballistics.DegreesToMOA(bore),
		ZeroCoefficient: zeroBC,
	}, nil
}

// Solve corrects, zeroes and integrates r. A solution cut off by the range
// limit is returned with Truncated set and no error.
func (s *Solver) Solve(ctx context.Context, r Request) (*Result, error) {
	start := time.Now()
	res, err := s.solve(ctx, r)
	duration := time.Since(start)

	outcome := Outcome(err)
	if err == nil && res.Truncated {
		outcome = "truncated"
	}
	metrics.RecordSolve(outcome, duration)

	if err != nil {
		s.logger.Debug("solve failed", "label", r.Label, "outcome", outcome, "error", err)
		return nil, err
	}
	res.Duration = duration
	s.logger.Debug("solve complete",
		"label", r.Label,
		"samples", res.Solution.Len(),
		"bore_angle", res.BoreAngle,
		"duration_ms", duration.Milliseconds(),
	)
	return res, nil
}

func (s *Solver) solve(ctx context.Context, r Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	shotBC, zeroBC := s.coefficients(r)

	zeroLoad := r.Load
	zeroLoad.Coefficient = zeroBC
	bore, err := s.engine.ZeroAngle(zeroLoad, r.ZeroRange, r.YIntercept)
	if err != nil {
		return nil, fmt.Errorf("zeroing at %.0f yd: %w", r.ZeroRange, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shotLoad := r.Load
	shotLoad.Coefficient = shotBC
	sol, err := s.engine.Solve(shotLoad, r.HillAngle, bore, r.Wind)
	truncated := false
	if err != nil {
		if !errors.Is(err, ballistics.ErrRangeLimitExceeded) {
			return nil, fmt.Errorf("integrating trajectory: %w", err)
		}
		truncated = true
	}

	return &Result{
		Request:         r,
		Coefficient:     shotBC,
		ZeroCoefficient: zeroBC,
		BoreAngle:       bore,
		Solution:        sol,
		Truncated:       truncated,
	}, nil
}

// SolveBatch solves every request on the worker pool. Items are returned in
// request order.
func (s *Solver) SolveBatch(ctx context.Context, reqs []Request) ([]BatchItem, int, int) {
	start := time.Now()
	items, ok, failed := s.pool.SolveBatch(ctx, reqs)
	duration := time.Since(start)
	metrics.RecordBatch(len(reqs), duration)

	s.logger.Debug("batch complete",
		"requests", len(reqs),
		"success", ok,
		"errors", failed,
		"duration_ms", duration.Milliseconds(),
	)
	return items, ok, failed
}

// Outcome classifies a solve error for metrics and HTTP status mapping.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, ballistics.ErrNoZeroSolution):
		return "no_zero"
	case errors.Is(err, ballistics.ErrDragOutOfRange):
		return "drag_out_of_range"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
