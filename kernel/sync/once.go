package sync

import "sync/atomic"

// Once runs an initialization function exactly once. Unlike the standard
// library version it does not depend on runtime semaphores so it can be used
// before the Go scheduler is available. Concurrent callers spin until the
// first call completes.
type Once struct {
	done uint32
	lock Spinlock
}

// Do calls fn if and only if this is the first call to Do for this Once.
func (o *Once) Do(fn func()) {
	if atomic.LoadUint32(&o.done) == 1 {
		return
	}

	o.lock.Acquire()
	defer o.lock.Release()

	if o.done == 0 {
		defer atomic.StoreUint32(&o.done, 1)
		fn()
	}
}

// Done returns true if a call to Do has completed.
func (o *Once) Done() bool {
	return atomic.LoadUint32(&o.done) == 1
}
