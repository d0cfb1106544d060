// Package worker runs independent file jobs on a fixed-size pool.
package worker

import (
	"context"
	"sync"
)

// Job is one unit of work. Jobs run to completion or failure
// synchronously within their worker and share no mutable state.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one job.
type Result interface {
	// Err returns the job's error, nil on success.
	Err() error

	// Fatal reports whether the error must abort the whole run.
	// Access faults (permission denials) are fatal; missing-data and
	// store faults are recoverable and the pool continues.
	Fatal() bool
}

// Pool executes jobs with bounded parallelism. A fatal result cancels
// the context shared by all workers; in-flight jobs finish, queued
// jobs are discarded.
type Pool struct {
	workers int
}

// NewPool creates a pool with the given worker count.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Run executes all jobs and returns their results in completion order.
// The returned results may be fewer than the jobs submitted when a
// fatal result stopped dispatch early. No ordering is guaranteed
// across jobs.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	if len(jobs) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan Job)
	results := make(chan Result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-queue:
					if !ok {
						return
					}
					result := job.Execute(ctx)
					results <- result
					if result.Fatal() {
						cancel()
						return
					}
				}
			}
		}()
	}

	go func() {
		defer close(queue)
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return
			case queue <- job:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var collected []Result
	for result := range results {
		collected = append(collected, result)
	}
	return collected
}
