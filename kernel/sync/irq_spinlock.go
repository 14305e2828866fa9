package sync

import "constanos/kernel/cpu"

var (
	saveFlagsAndDisableFn = cpu.SaveFlagsAndDisableInterrupts
	restoreInterruptsFn   = cpu.RestoreInterrupts
)

// IRQSpinlock is a Spinlock that also masks hardware interrupts on the local
// CPU for as long as it is held. Shared state that is touched both by
// interrupt handlers and by the idle loop must be guarded by an IRQSpinlock:
// a handler can then never observe (or be preempted in the middle of) a
// partial update.
//
// Acquire saves the interrupt-enable state and Release restores it, so nested
// acquisition of *different* IRQSpinlocks is fine. Re-acquiring the same lock
// deadlocks.
type IRQSpinlock struct {
	lock  Spinlock
	flags uint64
}

// Acquire disables interrupts and then acquires the lock.
func (l *IRQSpinlock) Acquire() {
	flags := saveFlagsAndDisableFn()
	l.lock.Acquire()
	l.flags = flags
}

// Release drops the lock and re-enables interrupts if they were enabled when
// Acquire was called.
func (l *IRQSpinlock) Release() {
	flags := l.flags
	l.lock.Release()
	restoreInterruptsFn(flags)
}

// SetInterruptControl replaces the functions IRQSpinlock uses to mask and
// restore hardware interrupts. Code running outside ring 0, such as hosted
// tools driving an emulated machine, cannot execute CLI/STI and must install
// its own implementation before any IRQSpinlock is acquired. Passing nil for
// either argument restores the CPU implementation.
func SetInterruptControl(saveAndDisable func() uint64, restore func(uint64)) {
	if saveAndDisable == nil || restore == nil {
		saveAndDisable, restore = cpu.SaveFlagsAndDisableInterrupts, cpu.RestoreInterrupts
	}

	saveFlagsAndDisableFn, restoreInterruptsFn = saveAndDisable, restore
}
