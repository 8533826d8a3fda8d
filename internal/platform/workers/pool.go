// Package workers runs background tasks with bounded concurrency.
package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker pool closed")

// Pool bounds the number of concurrently running tasks. Submit never waits for
// a free slot: queued tasks park on their own goroutine until one is released.
type Pool struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// New creates a pool running at most size tasks at once.
func New(size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Submit schedules task and returns immediately. The task receives the pool's
// context, which is cancelled by Close; tasks still waiting for a slot at that
// point are dropped.
func (p *Pool) Submit(task func(ctx context.Context)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			p.logger.Warn("worker task dropped", "error", ErrClosed)
			return
		}
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("worker task panicked", "panic", r)
			}
		}()
		task(p.ctx)
	}()
	return nil
}

// Go is Submit without the error; tasks submitted after Close are dropped.
func (p *Pool) Go(task func(ctx context.Context)) {
	if err := p.Submit(task); err != nil {
		p.logger.Warn("worker task dropped", "error", err)
	}
}

// Wait blocks until every submitted task has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close cancels the pool context and waits for running tasks.
func (p *Pool) Close() {
	p.cancel()
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
