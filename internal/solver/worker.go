package solver

import (
	"context"
	"log/slog"
	"sync"
)

// solveJob is a unit of work for the worker pool.
type solveJob struct {
	index   int
	request Request
}

// BatchItem is the outcome of one request in a batch.
type BatchItem struct {
	Index  int
	Result *Result
	Err    error
}

// WorkerPool manages a fixed number of goroutines for parallel solves.
type WorkerPool struct {
	workers int
	solver  *Solver
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, solver *Solver, logger *slog.Logger) *WorkerPool {
	return &WorkerPool{
		workers: workers,
		solver:  solver,
		logger:  logger,
	}
}

// SolveBatch solves all requests using the worker pool. Every request gets an
// item in the returned slice, at its own index; failures carry Err and are
// logged. Requests not reached before ctx is cancelled fail with ctx.Err().
func (wp *WorkerPool) SolveBatch(ctx context.Context, reqs []Request) ([]BatchItem, int, int) {
	if len(reqs) == 0 {
		return nil, 0, 0
	}

	jobs := make(chan solveJob, wp.workers*2)
	results := make(chan BatchItem, wp.workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res, err := wp.solver.Solve(ctx, job.request)
				select {
				case results <- BatchItem{Index: job.index, Result: res, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for i, r := range reqs {
			select {
			case jobs <- solveJob{index: i, request: r}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	items := make([]BatchItem, len(reqs))
	done := make([]bool, len(reqs))
	var successCount, errorCount int

	for item := range results {
		items[item.Index] = item
		done[item.Index] = true
		if item.Err != nil {
			errorCount++
			wp.logger.Warn("batch solve failed",
				"index", item.Index,
				"label", reqs[item.Index].Label,
				"error", item.Err,
			)
			continue
		}
		successCount++
	}

	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	for i := range items {
		if !done[i] {
			items[i] = BatchItem{Index: i, Err: cause}
			errorCount++
		}
	}

	return items, successCount, errorCount
}
