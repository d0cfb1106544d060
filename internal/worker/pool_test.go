package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type mockResult struct {
	err   error
	fatal bool
}

func (r *mockResult) Err() error  { return r.err }
func (r *mockResult) Fatal() bool { return r.fatal }

type mockJob struct {
	duration time.Duration
	err      error
	fatal    bool
	executed *int32
}

func (j *mockJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &mockResult{err: ctx.Err()}
		}
	}
	return &mockResult{err: j.err, fatal: j.fatal}
}

func TestNewPool_ClampsWorkers(t *testing.T) {
	if p := NewPool(5); p.workers != 5 {
		t.Errorf("expected 5 workers, got %d", p.workers)
	}
	if p := NewPool(0); p.workers != 1 {
		t.Errorf("expected 1 worker for 0 input, got %d", p.workers)
	}
	if p := NewPool(-3); p.workers != 1 {
		t.Errorf("expected 1 worker for negative input, got %d", p.workers)
	}
}

func TestPool_RunsAllJobs(t *testing.T) {
	pool := NewPool(2)

	var executed int32
	count := 10
	jobs := make([]Job, count)
	for i := range jobs {
		jobs[i] = &mockJob{executed: &executed}
	}

	results := pool.Run(context.Background(), jobs)

	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}
	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executions, got %d", count, executed)
	}
}

func TestPool_EmptyJobList(t *testing.T) {
	pool := NewPool(2)
	if results := pool.Run(context.Background(), nil); results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
}

type concurrencyJob struct {
	start    func()
	end      func()
	duration time.Duration
}

func (j *concurrencyJob) Execute(ctx context.Context) Result {
	if j.start != nil {
		j.start()
	}
	time.Sleep(j.duration)
	if j.end != nil {
		j.end()
	}
	return &mockResult{}
}

func TestPool_BoundedConcurrency(t *testing.T) {
	workers := 4
	pool := NewPool(workers)

	var current int32
	var maxConcurrent int32
	var mu sync.Mutex

	totalJobs := 40
	jobs := make([]Job, totalJobs)
	for i := range jobs {
		jobs[i] = &concurrencyJob{
			start: func() {
				curr := atomic.AddInt32(&current, 1)
				mu.Lock()
				if curr > maxConcurrent {
					maxConcurrent = curr
				}
				mu.Unlock()
			},
			end: func() {
				atomic.AddInt32(&current, -1)
			},
			duration: 5 * time.Millisecond,
		}
	}

	results := pool.Run(context.Background(), jobs)

	if len(results) != totalJobs {
		t.Errorf("expected %d results, got %d", totalJobs, len(results))
	}

	mu.Lock()
	observed := maxConcurrent
	mu.Unlock()
	if observed > int32(workers) {
		t.Errorf("max concurrency %d exceeded %d workers", observed, workers)
	}
}

func TestPool_RecoverableErrorsContinue(t *testing.T) {
	pool := NewPool(2)

	jobs := []Job{
		&mockJob{err: errors.New("missing counterpart")},
		&mockJob{},
		&mockJob{err: errors.New("unreadable")},
		&mockJob{},
	}

	results := pool.Run(context.Background(), jobs)

	if len(results) != len(jobs) {
		t.Fatalf("recoverable errors must not stop the pool: %d results", len(results))
	}

	failed := 0
	for _, r := range results {
		if r.Err() != nil {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("expected 2 failed results, got %d", failed)
	}
}

func TestPool_FatalAbortsRun(t *testing.T) {
	pool := NewPool(1)

	var executed int32
	jobs := []Job{
		&mockJob{executed: &executed, err: errors.New("permission denied"), fatal: true},
		&mockJob{executed: &executed},
		&mockJob{executed: &executed},
		&mockJob{executed: &executed},
	}

	results := pool.Run(context.Background(), jobs)

	// With a single worker the fatal first job must prevent the rest.
	if atomic.LoadInt32(&executed) != 1 {
		t.Errorf("expected 1 execution before abort, got %d", executed)
	}

	foundFatal := false
	for _, r := range results {
		if r.Fatal() {
			foundFatal = true
		}
	}
	if !foundFatal {
		t.Error("expected the fatal result to be reported")
	}
}

func TestPool_ContextCancellation(t *testing.T) {
	pool := NewPool(2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job{
		&mockJob{duration: time.Second},
		&mockJob{duration: time.Second},
		&mockJob{duration: time.Second},
	}

	done := make(chan struct{})
	go func() {
		pool.Run(ctx, jobs)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
