package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolConfig configures the AI call worker pool.
type WorkerPoolConfig struct {
	MaxConcurrent int // Maximum concurrent model calls (default: 4)
}

// DefaultWorkerPoolConfig returns sensible defaults.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{MaxConcurrent: 4}
}

// WorkerPool bounds concurrent model calls with a semaphore. Per-column
// jobs are independent, so completion order does not matter; results are
// collected before anything is written to the catalog. MaxConcurrent 1
// gives strictly sequential execution.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 4
	}
	return &WorkerPool{
		config: config,
		logger: logger.Named("worker-pool"),
	}
}

// Job is a unit of work, one per column.
type Job[T any] struct {
	ID      string
	Execute func(ctx context.Context) (T, error)
}

// JobResult pairs a job's ID with its outcome.
type JobResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process executes all jobs with bounded parallelism and returns results in
// completion order. Processing continues even when some jobs fail; a
// cancelled context fails the remaining jobs with ctx.Err().
func Process[T any](
	ctx context.Context,
	pool *WorkerPool,
	jobs []Job[T],
	onProgress func(completed, total int),
) []JobResult[T] {
	if len(jobs) == 0 {
		return nil
	}

	results := make([]JobResult[T], 0, len(jobs))
	resultsChan := make(chan JobResult[T], len(jobs))
	sem := make(chan struct{}, pool.config.MaxConcurrent)

	var wg sync.WaitGroup

	for _, job := range jobs {
		wg.Add(1)
		go func(job Job[T]) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				var zero T
				resultsChan <- JobResult[T]{ID: job.ID, Result: zero, Err: ctx.Err()}
				return
			}

			result, err := job.Execute(ctx)
			resultsChan <- JobResult[T]{ID: job.ID, Result: result, Err: err}
		}(job)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	completed := 0
	for result := range resultsChan {
		results = append(results, result)
		completed++
		if onProgress != nil {
			onProgress(completed, len(jobs))
		}
	}

	return results
}
