package executor

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// BlockingPool bounds the number of OS threads concurrently running CPU-
// heavy blocking prover work ([SPEC 5] "a bounded pool of OS threads for
// CPU-heavy blocking work"). Every call into the pool runs on its own
// goroutine, locked to its OS thread with runtime.LockOSThread for the
// duration of the call.
type BlockingPool struct {
	sem *semaphore.Weighted
}

// NewBlockingPool builds a pool that runs at most size blocking calls
// concurrently.
func NewBlockingPool(size int64) *BlockingPool {
	return &BlockingPool{sem: semaphore.NewWeighted(size)}
}

// Run executes fn on a dedicated worker slot, blocking until one is free.
// A cancelled ctx aborts waiting for a slot, but once fn has started it is
// not cancellable -- a blocking prover thread must be allowed to finish,
// and Run waits for it and returns its result ([SPEC 5] "Cancellation").
func Run[T any](ctx context.Context, pool *BlockingPool, fn func() (T, error)) (T, error) {
	var zero T
	if err := pool.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	done := make(chan struct{})
	var val T
	var err error
	go func() {
		defer close(done)
		defer pool.sem.Release(1)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		val, err = fn()
	}()
	<-done
	return val, err
}
