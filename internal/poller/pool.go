package poller

import (
	"context"
	"sync"
)

type task func(ctx context.Context)

// workerPool runs submitted tasks on a fixed number of goroutines.
type workerPool struct {
	tasks   chan task
	wg      sync.WaitGroup
	workers sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	mu      sync.Mutex
}

func newWorkerPool(ctx context.Context, size int) *workerPool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	wp := &workerPool{
		tasks:  make(chan task, size*2),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < size; i++ {
		wp.workers.Add(1)
		go wp.worker()
	}
	return wp
}

// Submit queues t. It reports false once the pool is closed or its context
// is done.
func (wp *workerPool) Submit(t task) bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.closed {
		return false
	}

	wp.wg.Add(1)
	select {
	case wp.tasks <- t:
		return true
	case <-wp.ctx.Done():
		wp.wg.Done()
		return false
	}
}

// Close waits for queued tasks and stops the workers.
func (wp *workerPool) Close() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.tasks)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.workers.Wait()
	wp.cancel()
}

func (wp *workerPool) worker() {
	defer wp.workers.Done()
	for t := range wp.tasks {
		if wp.ctx.Err() == nil {
			t(wp.ctx)
		}
		wp.wg.Done()
	}
}
