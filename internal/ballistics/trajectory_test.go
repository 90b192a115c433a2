package ballistics

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// testLoad is a common .308 match load: 168gr, G1 0.465 at 2650 ft/s.
func testLoad() Load {
	return Load{
		Drag:           G1,
		Coefficient:    0.465,
		MuzzleVelocity: 2650,
		SightHeight:    1.6,
		WeightGrains:   168,
	}
}

func solveZeroed(t *testing.T, e *Engine, l Load, zero float64, w Wind) *Solution {
	t.Helper()
	bore, err := e.ZeroAngle(l, zero, 0)
	if err != nil {
		t.Fatalf("ZeroAngle: %v", err)
	}
	sol, err := e.Solve(l, 0, bore, w)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	return sol
}

func TestSolveEndToEnd(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger())
	sol := solveZeroed(t, e, testLoad(), 200, Wind{})

	if sol.Len() < 1000 {
		t.Fatalf("solution has %d samples, want at least 1000", sol.Len())
	}
	if sol.Termination != Vertical {
		t.Errorf("termination = %v, want vertical", sol.Termination)
	}

	muzzle, _ := sol.At(0)
	if !scalar.EqualWithinAbs(muzzle.Path, -1.6, 1e-9) {
		t.Errorf("path at muzzle = %v, want -1.6", muzzle.Path)
	}
	if muzzle.MOA != 0 || muzzle.WindageMOA != 0 {
		t.Errorf("angular corrections at muzzle = %v/%v, want 0/0", muzzle.MOA, muzzle.WindageMOA)
	}
	if muzzle.Time != 0 {
		t.Errorf("time at muzzle = %v, want 0", muzzle.Time)
	}

	zero, _ := sol.At(200)
	if math.Abs(zero.Path) > 0.05 {
		t.Errorf("path at zero range = %v, want within 0.05 of 0", zero.Path)
	}
	if zero.Range < 200 || zero.Range > 200.5 {
		t.Errorf("range of yard 200 sample = %v, want in [200, 200.5)", zero.Range)
	}

	// Between the two zero crossings the projectile is above the line of
	// sight, so the correction is downward.
	mid, _ := sol.At(100)
	if mid.Path <= 0 {
		t.Errorf("path at 100 yd = %v, want above line of sight", mid.Path)
	}
	if mid.MOA >= 0 {
		t.Errorf("moa at 100 yd = %v, want negative", mid.MOA)
	}

	far, _ := sol.At(500)
	if far.Path > -30 || far.Path < -80 {
		t.Errorf("path at 500 yd = %v, want roughly -50", far.Path)
	}
	if far.Velocity >= muzzle.Velocity {
		t.Errorf("velocity at 500 yd = %v, want below muzzle %v", far.Velocity, muzzle.Velocity)
	}
}

func TestSolveYInterceptAtZero(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger())
	l := testLoad()

	bore, err := e.ZeroAngle(l, 200, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	sol, err := e.Solve(l, 0, bore, Wind{})
	if err != nil {
		t.Fatal(err)
	}
	s, _ := sol.At(200)
	if !scalar.EqualWithinAbs(s.Path, 1.5, 0.05) {
		t.Errorf("path at 200 yd = %v, want 1.5 ± 0.05", s.Path)
	}
}

func TestSolveMonotonic(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger())
	sol := solveZeroed(t, e, testLoad(), 100, Wind{Speed: 10, Angle: 90})

	for i, s := range sol.Samples {
		if s.Yard != i {
			t.Fatalf("sample %d has yard %d", i, s.Yard)
		}
		if s.Range < float64(i) {
			t.Fatalf("sample %d range %v below its yard marker", i, s.Range)
		}
		if i == 0 {
			continue
		}
		prev := sol.Samples[i-1]
		if s.Range <= prev.Range {
			t.Fatalf("range not increasing at %d: %v <= %v", i, s.Range, prev.Range)
		}
		if s.Time <= prev.Time {
			t.Fatalf("time not increasing at %d: %v <= %v", i, s.Time, prev.Time)
		}
	}
}

func TestSolveNoWindNoWindage(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger())
	sol := solveZeroed(t, e, testLoad(), 200, Wind{Speed: 0, Angle: 90})

	for _, s := range sol.Samples {
		if s.Windage != 0 || s.WindageMOA != 0 {
			t.Fatalf("yard %d windage = %v (%v moa), want 0", s.Yard, s.Windage, s.WindageMOA)
		}
	}
}

func TestSolveWind(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger())
	l := testLoad()
	bore, err := e.ZeroAngle(l, 200, 0)
	if err != nil {
		t.Fatal(err)
	}

	calm, err := e.Solve(l, 0, bore, Wind{})
	if err != nil {
		t.Fatal(err)
	}
	right, err := e.Solve(l, 0, bore, Wind{Speed: 10, Angle: 90})
	if err != nil {
		t.Fatal(err)
	}
	left, err := e.Solve(l, 0, bore, Wind{Speed: 10, Angle: 270})
	if err != nil {
		t.Fatal(err)
	}
	head, err := e.Solve(l, 0, bore, Wind{Speed: 20, Angle: 0})
	if err != nil {
		t.Fatal(err)
	}

	r, _ := right.At(500)
	lf, _ := left.At(500)
	if r.Windage <= 0 {
		t.Errorf("windage at 500 yd with wind from the right = %v, want positive", r.Windage)
	}
	if !scalar.EqualWithinAbs(r.Windage, -lf.Windage, 1e-9) {
		t.Errorf("opposite crosswinds should mirror: %v vs %v", r.Windage, lf.Windage)
	}
	if r.WindageMOA <= 0 {
		t.Errorf("windage moa at 500 yd = %v, want positive", r.WindageMOA)
	}

	c, _ := calm.At(500)
	h, _ := head.At(500)
	if h.Path >= c.Path {
		t.Errorf("headwind path at 500 yd = %v, want below calm %v", h.Path, c.Path)
	}
	if h.Time <= c.Time {
		t.Errorf("headwind time at 500 yd = %v, want above calm %v", h.Time, c.Time)
	}
}

func TestSolveRangeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRange = 100
	e := NewEngine(cfg, testLogger())

	sol, err := e.Solve(testLoad(), 0, 0.1, Wind{})
	if !errors.Is(err, ErrRangeLimitExceeded) {
		t.Fatalf("error = %v, want ErrRangeLimitExceeded", err)
	}
	if sol == nil {
		t.Fatal("truncated solution should be returned")
	}
	if sol.Len() != 101 {
		t.Errorf("samples = %d, want 101", sol.Len())
	}
	if !sol.Truncated() {
		t.Error("Truncated() = false, want true")
	}
	last, _ := sol.Last()
	if last.Yard != 100 {
		t.Errorf("last yard = %d, want 100", last.Yard)
	}
}

func TestSolveEnergy(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger())
	sol := solveZeroed(t, e, testLoad(), 200, Wind{})

	muzzle, _ := sol.At(0)
	want := 168 * 2650.0 * 2650.0 / 450800
	if !scalar.EqualWithinRel(muzzle.Energy, want, 1e-9) {
		t.Errorf("muzzle energy = %v, want %v", muzzle.Energy, want)
	}

	l := testLoad()
	l.WeightGrains = 0
	sol = solveZeroed(t, e, l, 200, Wind{})
	s, _ := sol.At(300)
	if s.Energy != 0 {
		t.Errorf("energy without weight = %v, want 0", s.Energy)
	}
}

func TestSolveSteepAngles(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger())
	tests := []struct {
		name string
		hill float64
	}{
		{"steep uphill", 80},
		{"vertical", 90},
		{"moderate downhill", -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, err := e.Solve(testLoad(), tt.hill, 0.1, Wind{})
			if err != nil {
				t.Fatalf("Solve(hill=%v): %v", tt.hill, err)
			}
			if sol.Truncated() {
				t.Errorf("hill %v: solution truncated at %d samples", tt.hill, sol.Len())
			}
			if sol.Len() == 0 {
				t.Errorf("hill %v: empty solution", tt.hill)
			}
		})
	}
}

// On a slope steeper than atan(1/3) below level, gravity resolved into the
// bore frame never lets the transverse velocity dominate, so only the range
// limit stops integration.
func TestSolveSteepDownhillTruncates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRange = 2000
	e := NewEngine(cfg, testLogger())

	sol, err := e.Solve(testLoad(), -60, 0.1, Wind{})
	if !errors.Is(err, ErrRangeLimitExceeded) {
		t.Fatalf("error = %v, want ErrRangeLimitExceeded", err)
	}
	if sol.Len() != 2001 {
		t.Errorf("samples = %d, want 2001", sol.Len())
	}
}

func TestSolveUnsupportedDrag(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger())
	l := testLoad()
	l.Drag = G4
	sol, err := e.Solve(l, 0, 0, Wind{})
	if !errors.Is(err, ErrDragOutOfRange) {
		t.Fatalf("error = %v, want ErrDragOutOfRange", err)
	}
	if sol != nil {
		t.Error("no solution should be returned on drag failure")
	}
}

func TestSolutionEvery(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger())
	sol := solveZeroed(t, e, testLoad(), 200, Wind{})

	rows := sol.Every(10, 100)
	if len(rows) != 11 {
		t.Fatalf("Every(10, 100) returned %d rows, want 11", len(rows))
	}
	for i, r := range rows {
		if r.Yard != i*10 {
			t.Errorf("row %d yard = %d, want %d", i, r.Yard, i*10)
		}
	}
	if all := sol.Every(1, 0); len(all) != sol.Len() {
		t.Errorf("Every(1, 0) returned %d rows, want %d", len(all), sol.Len())
	}
	if _, ok := sol.At(-1); ok {
		t.Error("At(-1) should miss")
	}
	if _, ok := sol.At(sol.Len()); ok {
		t.Error("At(Len()) should miss")
	}
}

func TestSolveConcurrent(t *testing.T) {
	e := NewEngine(DefaultConfig(), testLogger())
	l := testLoad()
	ref, err := e.Solve(l, 0, 0.1, Wind{Speed: 5, Angle: 45})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sol, err := e.Solve(l, 0, 0.1, Wind{Speed: 5, Angle: 45})
			if err != nil {
				t.Error(err)
				return
			}
			if sol.Len() != ref.Len() {
				t.Errorf("concurrent solve returned %d samples, want %d", sol.Len(), ref.Len())
				return
			}
			got, _ := sol.At(400)
			want, _ := ref.At(400)
			if got != want {
				t.Errorf("concurrent solve sample 400 = %+v, want %+v", got, want)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkSolve(b *testing.B) {
	e := NewEngine(DefaultConfig(), testLogger())
	l := testLoad()
	for i := 0; i < b.N; i++ {
		if _, err := e.Solve(l, 0, 0.1, Wind{Speed: 10, Angle: 90}); err != nil {
			b.Fatal(err)
		}
	}
}
