package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	if p := NewPool[int](context.Background(), 5); p.workers != 5 {
		t.Errorf("expected 5 workers, got %d", p.workers)
	}
	if p := NewPool[int](context.Background(), 0); p.workers != 1 {
		t.Errorf("expected default 1 worker for 0 input, got %d", p.workers)
	}
	if p := NewPool[int](context.Background(), -1); p.workers != 1 {
		t.Errorf("expected default 1 worker for negative input, got %d", p.workers)
	}
}

func TestPool_ResultsInSubmissionOrder(t *testing.T) {
	pool := NewPool[int](context.Background(), 4)
	pool.Start()

	count := 40
	for i := 0; i < count; i++ {
		i := i
		pool.Submit(func(ctx context.Context) int {
			// Earlier jobs sleep longer so completion order is reversed
			time.Sleep(time.Duration(count-i) * 100 * time.Microsecond)
			return i * i
		})
	}

	results := pool.Wait()
	if len(results) != count {
		t.Fatalf("expected %d results, got %d", count, len(results))
	}
	for i, r := range results {
		if r != i*i {
			t.Errorf("result %d: expected %d, got %d", i, i*i, r)
		}
	}
}

func TestPool_Concurrency(t *testing.T) {
	workers := 10
	pool := NewPool[struct{}](context.Background(), workers)
	pool.Start()

	var current, completed int32
	var maxConcurrent int32
	var mu sync.Mutex

	totalJobs := 50
	for i := 0; i < totalJobs; i++ {
		pool.Submit(func(ctx context.Context) struct{} {
			curr := atomic.AddInt32(&current, 1)
			mu.Lock()
			if curr > maxConcurrent {
				maxConcurrent = curr
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			atomic.AddInt32(&current, -1)
			atomic.AddInt32(&completed, 1)
			return struct{}{}
		})
	}

	pool.Wait()

	if atomic.LoadInt32(&completed) != int32(totalJobs) {
		t.Errorf("expected %d completed jobs, got %d", totalJobs, completed)
	}

	mu.Lock()
	max := maxConcurrent
	mu.Unlock()
	if max > int32(workers) {
		t.Errorf("max concurrency %d exceeded workers %d", max, workers)
	}
}

func TestPool_ManyJobsDoNotDeadlock(t *testing.T) {
	pool := NewPool[int](context.Background(), 1)
	pool.Start()

	done := make(chan []int)
	go func() {
		for i := 0; i < 100; i++ {
			i := i
			pool.Submit(func(ctx context.Context) int { return i })
		}
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		if len(results) != 100 {
			t.Errorf("expected 100 results, got %d", len(results))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pool deadlocked with more jobs than buffer space")
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool[int](context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			pool.Submit(func(ctx context.Context) int { return 1 })
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}

func TestPool_ParentContextCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool[error](ctx, 1)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	cancel()

	finished := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(1 * time.Second):
		t.Fatal("Shutdown did not return after parent cancellation")
	}
}
