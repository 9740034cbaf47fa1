package generation

import (
	"context"
	"sync"
)

// DefaultCallPoolSize bounds concurrent backend calls when no explicit
// size is configured.
const DefaultCallPoolSize = 8

// CallPool is the bounded set of goroutines every blocking backend call
// runs on. Funneling SDK calls through one pool keeps a slow model from
// stalling the schedulers that submitted the work and puts a hard cap on
// concurrent outbound calls.
//
// The jobs channel is unbuffered: a successful submit means a worker has
// already accepted the job, so Do can safely wait for its completion.
type CallPool struct {
	jobs chan func()
	quit chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewCallPool starts a pool with the given number of workers.
// A non-positive size selects DefaultCallPoolSize.
func NewCallPool(size int) *CallPool {
	if size <= 0 {
		size = DefaultCallPoolSize
	}

	p := &CallPool{
		jobs: make(chan func()),
		quit: make(chan struct{}),
	}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}

	return p
}

func (p *CallPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			job()
		case <-p.quit:
			return
		}
	}
}

// Do runs fn on one of the pool's workers and waits for it to finish.
// If the context is done or the pool is closed before a worker accepts
// the job, Do returns without running fn. Once fn has started it always
// runs to completion; fn is responsible for honoring ctx internally.
func (p *CallPool) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan struct{})
	job := func() {
		defer close(done)
		fn()
	}

	select {
	case p.jobs <- job:
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	<-done
	return nil
}

// Close stops the workers. Jobs already accepted run to completion;
// subsequent Do calls return ErrPoolClosed. Close blocks until all
// workers have exited and is safe to call more than once.
func (p *CallPool) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}
