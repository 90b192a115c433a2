package cache

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/star/ballistics/internal/ballistics"
	"github.com/star/ballistics/internal/catalog"
	"github.com/star/ballistics/internal/solver"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testDataset(fetchedAt time.Time, names ...string) *catalog.Dataset {
	ds := &catalog.Dataset{Source: "test", FetchedAt: fetchedAt}
	for i, name := range names {
		ds.Profiles = append(ds.Profiles, catalog.Profile{
			Name: name,
			Load: ballistics.Load{
				Drag:           ballistics.G1,
				Coefficient:    0.4 + 0.01*float64(i),
				MuzzleVelocity: 2700,
				SightHeight:    1.5,
				WeightGrains:   150,
			},
			ZeroRange: 100,
		})
	}
	return ds
}

func testStore(names ...string) *catalog.Store {
	store := catalog.NewStore()
	store.Set(testDataset(time.Now(), names...))
	return store
}

func testSolver() *solver.Solver {
	return solver.NewSolver(solver.Config{Workers: 2, MaxRange: 1000}, testLogger())
}

func testConfig() Config {
	return Config{
		TTL:         time.Minute,
		MaxEntries:  8,
		Sweep:       10 * time.Millisecond,
		GracePeriod: time.Second,
	}
}

// TestSolutionCache tests basic cache operations: miss, solve, hit.
func TestSolutionCache(t *testing.T) {
	store := testStore("a")
	c := NewSolutionCache(testConfig(), testSolver(), store, testLogger())
	req := store.Get().Profiles[0].Request()

	if got := c.Get(req); got != nil {
		t.Fatal("expected miss on empty cache")
	}

	res, err := c.GetOrSolve(context.Background(), req)
	if err != nil {
		t.Fatalf("GetOrSolve: %v", err)
	}
	if res.Solution.Len() == 0 {
		t.Fatal("solution has no samples")
	}

	again, err := c.GetOrSolve(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if again != res {
		t.Error("second GetOrSolve should return the cached result")
	}

	// Labels do not change the key.
	relabeled := req
	relabeled.Label = "other"
	if c.Get(relabeled) != res {
		t.Error("relabeled request should hit the same entry")
	}

	stats := c.Stats()
	if stats.Entries != 1 {
		t.Errorf("entries: got %d, want 1", stats.Entries)
	}
	if stats.Hits != 2 {
		t.Errorf("hits: got %d, want 2", stats.Hits)
	}
	if stats.Misses != 2 {
		t.Errorf("misses: got %d, want 2", stats.Misses)
	}
	if stats.SizeBytes <= 0 {
		t.Errorf("size bytes: got %d, want > 0", stats.SizeBytes)
	}
}

// TestGetOrSolveError verifies that failed solves are not cached.
func TestGetOrSolveError(t *testing.T) {
	c := NewSolutionCache(testConfig(), testSolver(), testStore(), testLogger())
	req := solver.Request{Load: ballistics.Load{Drag: ballistics.G3, Coefficient: 0.3, MuzzleVelocity: 2700}, ZeroRange: 100}

	if _, err := c.GetOrSolve(context.Background(), req); err == nil {
		t.Fatal("expected error for G3 request")
	}
	if n := c.Stats().Entries; n != 0 {
		t.Errorf("entries after failed solve = %d, want 0", n)
	}
}

// TestExpiry verifies that expired entries miss and are swept.
func TestExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = 20 * time.Millisecond
	store := testStore("a")
	c := NewSolutionCache(cfg, testSolver(), store, testLogger())
	req := store.Get().Profiles[0].Request()

	if _, err := c.GetOrSolve(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	time.Sleep(40 * time.Millisecond)

	if c.Get(req) != nil {
		t.Error("expired entry should miss")
	}
	if removed := c.evictExpired(); removed != 1 {
		t.Errorf("evictExpired removed %d, want 1", removed)
	}
	if stats := c.Stats(); stats.Entries != 0 || stats.Evictions != 1 {
		t.Errorf("stats after sweep = %+v", stats)
	}
}

// TestMaxEntries verifies the oldest entry is evicted when the cache is full.
func TestMaxEntries(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 2
	store := testStore("a", "b", "c")
	c := NewSolutionCache(cfg, testSolver(), store, testLogger())
	profiles := store.Get().Profiles

	for _, p := range profiles {
		if _, err := c.GetOrSolve(context.Background(), p.Request()); err != nil {
			t.Fatal(err)
		}
		time.Sleep(time.Millisecond)
	}

	stats := c.Stats()
	if stats.Entries != 2 {
		t.Errorf("entries = %d, want 2", stats.Entries)
	}
	if stats.Evictions != 1 {
		t.Errorf("evictions = %d, want 1", stats.Evictions)
	}
	if c.Get(profiles[0].Request()) != nil {
		t.Error("oldest entry should have been evicted")
	}
	if c.Get(profiles[2].Request()) == nil {
		t.Error("newest entry should be cached")
	}
}

// TestWarmupAndCutover verifies warmup fills every profile and that a new
// catalog replaces the entries.
func TestWarmupAndCutover(t *testing.T) {
	store := testStore("a", "b")
	c := NewSolutionCache(testConfig(), testSolver(), store, testLogger())
	ctx := context.Background()

	c.warmup(ctx)
	if n := c.Stats().Entries; n != 2 {
		t.Fatalf("entries after warmup = %d, want 2", n)
	}
	if c.catalogChanged() {
		t.Error("catalog should not be reported as changed after warmup")
	}

	// Ad-hoc entry that the cutover should drop.
	adhoc := store.Get().Profiles[0].Request()
	adhoc.HillAngle = 5
	if _, err := c.GetOrSolve(ctx, adhoc); err != nil {
		t.Fatal(err)
	}

	store.Set(testDataset(time.Now().Add(time.Second), "x", "y", "z"))
	if !c.catalogChanged() {
		t.Fatal("catalog change not detected")
	}
	c.tick(ctx)

	stats := c.Stats()
	if stats.Entries != 3 {
		t.Errorf("entries after cutover = %d, want 3", stats.Entries)
	}
	if stats.InGracePeriod {
		t.Error("grace period should be cleared after cutover")
	}
	if c.Get(adhoc) != nil {
		t.Error("ad-hoc entry should not survive cutover")
	}
	if c.catalogChanged() {
		t.Error("catalog still reported as changed after cutover")
	}
}

// TestStartStops verifies Start warms the cache and exits on cancellation.
func TestStartStops(t *testing.T) {
	store := testStore("a")
	c := NewSolutionCache(testConfig(), testSolver(), store, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for c.Stats().Entries == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Stats().Entries != 1 {
		t.Errorf("entries after start = %d, want 1", c.Stats().Entries)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

// TestStartWithoutCatalog verifies Start returns when cancelled before a catalog loads.
func TestStartWithoutCatalog(t *testing.T) {
	c := NewSolutionCache(testConfig(), testSolver(), catalog.NewStore(), testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return")
	}
}

// TestConcurrentAccess exercises reads and writes from many goroutines.
func TestConcurrentAccess(t *testing.T) {
	store := testStore("a", "b", "c", "d")
	c := NewSolutionCache(testConfig(), testSolver(), store, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := store.Get().Profiles[i%4]
			if _, err := c.GetOrSolve(context.Background(), p.Request()); err != nil {
				t.Error(err)
			}
			c.Stats()
		}(i)
	}
	wg.Wait()

	if n := c.Stats().Entries; n != 4 {
		t.Errorf("entries = %d, want 4", n)
	}
}
