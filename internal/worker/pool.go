package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Job is a unit of work executed by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one job
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of workers. Results are collected as
// they complete, so Submit never blocks on an unread result.
type Pool struct {
	workers   int
	jobQueue  chan Job
	results   chan Result
	collected []Result
	wg        sync.WaitGroup
	collector sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	startOnce sync.Once
	waitOnce  sync.Once
	closed    atomic.Bool
}

// NewPool creates a pool whose jobs run under a context derived from parent
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, workers*2),
		results:  make(chan Result, workers*2),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.collector.Add(1)
		go func() {
			defer p.collector.Done()
			for r := range p.results {
				p.collected = append(p.collected, r)
			}
		}()

		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

// Submit queues a job. It reports false once the pool is cancelled or
// waiting; it must not race with Wait.
func (p *Pool) Submit(job Job) bool {
	if p.closed.Load() {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Wait stops accepting jobs, waits for queued work and returns every result
// in completion order
func (p *Pool) Wait() []Result {
	p.waitOnce.Do(func() {
		p.closeQueue()
		p.wg.Wait()
		close(p.results)
		p.collector.Wait()
		p.cancel()
	})
	return p.collected
}

// Shutdown cancels outstanding work; queued jobs may be dropped or see a cancelled context
func (p *Pool) Shutdown() []Result {
	p.cancel()
	return p.Wait()
}

func (p *Pool) closeQueue() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.jobQueue)
	})
}
