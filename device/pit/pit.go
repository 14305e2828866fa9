// Package pit drives channel 0 of the 8254 programmable interval timer which
// provides the periodic tick of the interrupt core.
package pit

import (
	"constanos/device/port"
	"constanos/kernel"
	"constanos/kernel/irq"
	"constanos/kernel/kfmt"
	"io"
	"sync/atomic"
)

const (
	// BaseFrequency is the input clock of the 8254 in Hz.
	BaseFrequency = 1193182

	// DefaultFrequency is the tick rate used when none is configured.
	DefaultFrequency = 100

	// Line is the PIC line the timer is wired to.
	Line = 0

	channel0Port uint16 = 0x40
	commandPort  uint16 = 0x43

	// Channel 0, lobyte/hibyte access, mode 2 (rate generator), binary.
	cmdChannel0RateGenerator = 0x34

	minDivisor = 2
	maxDivisor = 0xffff
)

var errInvalidFrequency = &kernel.Error{Module: "pit", Message: "timer frequency out of range"}

// Timer counts the interrupts raised by channel 0.
type Timer struct {
	ports port.Port

	// ticks is updated atomically by the IRQ handler.
	ticks uint64

	hz      uint32
	divisor uint16
}

// New returns an unconfigured timer that talks to the 8254 through p.
func New(p port.Port) *Timer {
	return &Timer{ports: p}
}

// Divisor returns the reload value that makes channel 0 fire hz times per
// second. The result is truncated; 100Hz yields 11931.
func Divisor(hz uint32) uint32 {
	if hz == 0 {
		return 0
	}
	return BaseFrequency / hz
}

// Configure programs channel 0 as a rate generator firing hz times per
// second. Frequencies whose divisor falls outside [2, 65535] are rejected
// without touching the hardware.
func (t *Timer) Configure(hz uint32) *kernel.Error {
	div := Divisor(hz)
	if div < minDivisor || div > maxDivisor {
		return errInvalidFrequency
	}

	t.ports.Write8(commandPort, cmdChannel0RateGenerator)
	t.ports.Write8(channel0Port, uint8(div))
	t.ports.Write8(channel0Port, uint8(div>>8))

	t.hz = hz
	t.divisor = uint16(div)
	return nil
}

// HandleIRQ records a timer tick. It is meant to be wrapped by the PIC
// manager which takes care of acknowledging the interrupt.
func (t *Timer) HandleIRQ(_ *irq.Registers) {
	atomic.AddUint64(&t.ticks, 1)
}

// Ticks returns the number of timer interrupts handled so far.
func (t *Timer) Ticks() uint64 {
	return atomic.LoadUint64(&t.ticks)
}

// Frequency returns the configured tick rate in Hz or 0 if Configure has not
// been called yet.
func (t *Timer) Frequency() uint32 {
	return t.hz
}

// Uptime returns the number of milliseconds represented by the ticks
// counted so far.
func (t *Timer) Uptime() uint64 {
	if t.hz == 0 {
		return 0
	}
	ticks, hz := t.Ticks(), uint64(t.hz)
	return ticks/hz*1000 + ticks%hz*1000/hz
}

// DriverName returns the name of this driver.
func (t *Timer) DriverName() string {
	return "pit8254"
}

// DriverVersion returns the version of this driver.
func (t *Timer) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit reports the programmed rate.
func (t *Timer) DriverInit(w io.Writer) *kernel.Error {
	kfmt.Fprintf(w, "channel 0 at %dHz (divisor %d)\n", t.hz, t.divisor)
	return nil
}
