package emu

import (
	"constanos/kernel/cpu"
	"constanos/kernel/sync"
)

// CPU models the interrupt enable flag of the processor so that code using
// sync.IRQSpinlock can run outside ring 0.
type CPU struct {
	interruptsEnabled bool

	// Disables counts the number of times interrupts were masked.
	Disables int
}

// SaveFlagsAndDisable returns the emulated RFLAGS value and clears IF.
func (c *CPU) SaveFlagsAndDisable() uint64 {
	var flags uint64
	if c.interruptsEnabled {
		flags = cpu.FlagInterruptEnable
	}

	c.interruptsEnabled = false
	c.Disables++
	return flags
}

// Restore sets IF if it is set in flags.
func (c *CPU) Restore(flags uint64) {
	if flags&cpu.FlagInterruptEnable != 0 {
		c.interruptsEnabled = true
	}
}

// EnableInterrupts sets IF.
func (c *CPU) EnableInterrupts() {
	c.interruptsEnabled = true
}

// DisableInterrupts clears IF.
func (c *CPU) DisableInterrupts() {
	c.interruptsEnabled = false
}

// InterruptsEnabled reports the state of IF.
func (c *CPU) InterruptsEnabled() bool {
	return c.interruptsEnabled
}

// Install routes the interrupt masking performed by sync.IRQSpinlock to c.
// The returned function restores the CPU implementation.
func (c *CPU) Install() func() {
	sync.SetInterruptControl(c.SaveFlagsAndDisable, c.Restore)
	return func() { sync.SetInterruptControl(nil, nil) }
}
