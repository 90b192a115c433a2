package solver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/star/ballistics/internal/ballistics"
)

// TestWorkerPoolBatch verifies the worker pool returns every request's
// result at its own index.
func TestWorkerPoolBatch(t *testing.T) {
	s := testSolver(4)

	var reqs []Request
	for _, zero := range []float64{100, 200, 300, 400, 500, 600} {
		r := testRequest()
		r.Label = fmt.Sprintf("zero-%.0f", zero)
		r.ZeroRange = zero
		reqs = append(reqs, r)
	}

	items, ok, failed := s.SolveBatch(context.Background(), reqs)
	if failed != 0 {
		t.Fatalf("errors: %d, want 0", failed)
	}
	if ok != len(reqs) {
		t.Fatalf("success = %d, want %d", ok, len(reqs))
	}
	if len(items) != len(reqs) {
		t.Fatalf("items = %d, want %d", len(items), len(reqs))
	}

	prev := 0.0
	for i, item := range items {
		if item.Index != i {
			t.Errorf("item %d has index %d", i, item.Index)
		}
		if item.Result.Request.Label != reqs[i].Label {
			t.Errorf("item %d label = %q, want %q", i, item.Result.Request.Label, reqs[i].Label)
		}
		// Longer zero ranges need steeper bore angles.
		if item.Result.BoreAngle <= prev {
			t.Errorf("item %d bore angle %v not above %v", i, item.Result.BoreAngle, prev)
		}
		prev = item.Result.BoreAngle
	}
}

// TestWorkerPoolPartialFailure verifies one bad request does not fail the batch.
func TestWorkerPoolPartialFailure(t *testing.T) {
	s := testSolver(2)

	bad := testRequest()
	bad.Load.Drag = ballistics.G4
	reqs := []Request{testRequest(), bad, testRequest()}

	items, ok, failed := s.SolveBatch(context.Background(), reqs)
	if ok != 2 || failed != 1 {
		t.Fatalf("success/errors = %d/%d, want 2/1", ok, failed)
	}
	if !errors.Is(items[1].Err, ErrInvalidRequest) {
		t.Errorf("item 1 error = %v, want ErrInvalidRequest", items[1].Err)
	}
	if items[0].Err != nil || items[2].Err != nil {
		t.Errorf("good items failed: %v, %v", items[0].Err, items[2].Err)
	}
}

// TestWorkerPoolCancellation verifies the worker pool respects context cancellation.
func TestWorkerPoolCancellation(t *testing.T) {
	s := testSolver(2)

	reqs := make([]Request, 200)
	for i := range reqs {
		reqs[i] = testRequest()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	items, ok, failed := s.SolveBatch(ctx, reqs)
	if time.Since(start) > 5*time.Second {
		t.Errorf("cancelled batch took %v", time.Since(start))
	}
	if len(items) != len(reqs) {
		t.Fatalf("items = %d, want %d", len(items), len(reqs))
	}
	if ok+failed != len(reqs) {
		t.Errorf("success+errors = %d, want %d", ok+failed, len(reqs))
	}
	if failed == 0 {
		t.Error("expected cancelled requests to fail")
	}
	for _, item := range items {
		if item.Err != nil && !errors.Is(item.Err, context.Canceled) {
			t.Errorf("item %d error = %v, want context.Canceled", item.Index, item.Err)
		}
	}
}

func TestWorkerPoolEmpty(t *testing.T) {
	s := testSolver(2)
	items, ok, failed := s.SolveBatch(context.Background(), nil)
	if items != nil || ok != 0 || failed != 0 {
		t.Errorf("empty batch = %v/%d/%d, want nil/0/0", items, ok, failed)
	}
}

func BenchmarkSolveBatch(b *testing.B) {
	s := testSolver(4)
	reqs := make([]Request, 16)
	for i := range reqs {
		reqs[i] = testRequest()
		reqs[i].Wind = ballistics.Wind{Speed: float64(i), Angle: 90}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.SolveBatch(context.Background(), reqs)
	}
}
