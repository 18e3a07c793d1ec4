// Package workerpool provides a persistent, reusable worker pool for
// data-parallel delegate dispatch. Unlike per-call goroutine spawning, a
// Pool is created once and its workers are reused across every Run call,
// eliminating repeated spawn overhead in the hot path.
//
// Usage:
//
//	pool := workerpool.New(0) // 0 = runtime.GOMAXPROCS(0)
//	defer pool.Close()
//	err := pool.Run(len(jobs), func(i int) error {
//	    return process(jobs[i])
//	})
package workerpool

import (
	"runtime"
	"sync"
)

// State is a worker's position in its lifecycle.
type State uint8

const (
	Waiting State = iota
	Running
	Dying
	Dead
)

// Delegate is a unit of parallel work. It receives the index of the job
// within the current batch and returns an error if the work failed.
type Delegate func(i int) error

// Pool is a fixed-size set of persistent worker goroutines. Workers are
// spawned once at construction and block waiting for work until Close is
// called. A Pool must not be used after Close.
type Pool struct {
	n      int
	jobs   chan job
	wg     sync.WaitGroup
	mu     sync.Mutex
	states []State
	closed bool
}

type job struct {
	index    int
	delegate Delegate
	result   *sync.WaitGroup
	errSlot  *error
}

// New creates a Pool with n worker goroutines. If n <= 0, the platform's
// reported hardware parallelism (runtime.GOMAXPROCS(0)) is used instead.
// Every worker starts in the Waiting state.
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		n:      n,
		jobs:   make(chan job, n),
		states: make([]State, n),
	}
	p.wg.Add(n)
	for w := 0; w < n; w++ {
		go p.worker(w)
	}
	return p
}

// Workers reports the number of worker goroutines in the pool.
func (p *Pool) Workers() int {
	return p.n
}

// State reports worker w's current lifecycle state. Intended for tests
// and diagnostics; callers must not rely on the exact instant a
// transition is observed.
func (p *Pool) State(w int) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[w]
}

func (p *Pool) setState(w int, s State) {
	p.mu.Lock()
	p.states[w] = s
	p.mu.Unlock()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		p.setState(id, Running)
		if err := j.delegate(j.index); err != nil {
			*j.errSlot = err
		}
		p.setState(id, Waiting)
		j.result.Done()
	}
	p.setState(id, Dead)
}

// Run invokes delegate(i) for every i in [0, jobCount), fanning the calls
// out across the pool's workers. If jobCount exceeds the worker count,
// work runs in sequential batches of at most Workers() jobs; Run does not
// return until every job has completed or an error has been raised.
//
// There is no ordering guarantee between delegate invocations within a
// batch. A batch's completion happens-before the dispatch of the next
// batch. If one or more delegate invocations in a batch return an error,
// Run surfaces the first one observed (by job index) and stops: later
// batches are never dispatched once an earlier one has raised an error
// (thread_pool.cpp:44-50,64-77 wait_raise).
func (p *Pool) Run(jobCount int, delegate Delegate) error {
	if jobCount <= 0 {
		return nil
	}
	batch := p.n
	for start := 0; start < jobCount; start += batch {
		end := start + batch
		if end > jobCount {
			end = jobCount
		}
		size := end - start
		errs := make([]error, size)
		var wg sync.WaitGroup
		wg.Add(size)
		for i := 0; i < size; i++ {
			p.jobs <- job{
				index:    start + i,
				delegate: delegate,
				result:   &wg,
				errSlot:  &errs[i],
			}
		}
		wg.Wait()
		for _, e := range errs {
			if e != nil {
				return e
			}
		}
	}
	return nil
}

// Close signals every worker to exit once pending jobs have drained, then
// waits for them to terminate. Calls after the first return immediately;
// it is not safe to call Run concurrently with or after Close.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.jobs)
	p.wg.Wait()
}
