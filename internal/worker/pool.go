package worker

import (
	"context"
	"sync"
)

// Job is a unit of work producing a result of type R
type Job[R any] func(ctx context.Context) R

type indexedJob[R any] struct {
	index int
	run   Job[R]
}

type indexedResult[R any] struct {
	index  int
	result R
}

// Pool runs jobs on a fixed number of workers. Wait returns results in
// submission order regardless of completion order.
type Pool[R any] struct {
	workers    int
	jobQueue   chan indexedJob[R]
	results    chan indexedResult[R]
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	mu        sync.Mutex
	submitted int
	collected map[int]R
	collector chan struct{}
}

// NewPool creates a pool bound to ctx
func NewPool[R any](ctx context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Pool[R]{
		workers:    workers,
		jobQueue:   make(chan indexedJob[R], workers*2),
		results:    make(chan indexedResult[R], workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
		collected:  make(map[int]R),
		collector:  make(chan struct{}),
	}
}

// Start launches the workers and the result collector
func (p *Pool[R]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

// collect drains results as they arrive so workers never block on a full
// results channel
func (p *Pool[R]) collect() {
	defer close(p.collector)
	for res := range p.results {
		p.mu.Lock()
		p.collected[res.index] = res.result
		p.mu.Unlock()
	}
}

func (p *Pool[R]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			out := indexedResult[R]{index: job.index, result: job.run(p.ctx)}
			select {
			case p.results <- out:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It returns false if the pool was shut down.
func (p *Pool[R]) Submit(job Job[R]) bool {
	p.mu.Lock()
	index := p.submitted
	p.submitted++
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- indexedJob[R]{index: index, run: job}:
		return true
	}
}

// Wait closes the queue and collects every result. Slots of jobs that
// never ran (after Shutdown) hold the zero value.
func (p *Pool[R]) Wait() []R {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.collector

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]R, p.submitted)
	for index, result := range p.collected {
		out[index] = result
	}
	return out
}

// Shutdown stops the workers without waiting for queued jobs
func (p *Pool[R]) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool[R]) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
