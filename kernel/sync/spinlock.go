// Package sync provides synchronization primitives that are safe to use from
// both the idle loop and interrupt handlers of a single-core kernel.
package sync

import "sync/atomic"

var (
	// yieldFn is invoked by spinning tasks after attemptsBeforeYielding
	// failed acquisition attempts. It is nil on bare metal where there is
	// nothing to yield to.
	yieldFn func()
)

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	archAcquireSpinlock(&l.state, 64)
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}

// archAcquireSpinlock spins until state can be flipped from 0 to 1.
func archAcquireSpinlock(state *uint32, attemptsBeforeYielding uint32) {
	for attempt := uint32(1); !atomic.CompareAndSwapUint32(state, 0, 1); attempt++ {
		if attempt%attemptsBeforeYielding == 0 && yieldFn != nil {
			yieldFn()
		}
	}
}
