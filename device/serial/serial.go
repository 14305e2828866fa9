// Package serial implements a polled driver for 16550-compatible UARTs. The
// kernel uses it to mirror diagnostic output to COM1 so it can be captured
// by an emulator.
package serial

import (
	"constanos/device/port"
	"constanos/kernel"
	"constanos/kernel/kfmt"
	"constanos/kernel/sync"
	"io"
)

// COM1 is the I/O base of the first serial port.
const COM1 uint16 = 0x3f8

// Register offsets relative to the port base.
const (
	regData       = 0
	regIntEnable  = 1
	regFIFOCtrl   = 2
	regLineCtrl   = 3
	regModemCtrl  = 4
	regLineStatus = 5

	// With DLAB set, offsets 0 and 1 access the baud rate divisor.
	regDivisorLow  = 0
	regDivisorHigh = 1
)

const (
	lineCtrlDLAB = 0x80
	lineCtrl8N1  = 0x03

	// Enable and clear both FIFOs, 14 byte threshold.
	fifoCtrlEnable = 0xc7

	// DTR, RTS and OUT2 set.
	modemCtrlNormal = 0x0b

	// RTS, OUT1, OUT2 and loopback.
	modemCtrlLoopback = 0x1e

	lineStatusTHREmpty = 0x20

	// The UART divides 115200 by this value; 3 selects 38400 baud.
	baudDivisor = 3

	loopbackProbe = 0xae

	// maxTxSpins bounds the busy-wait for the transmit holding register.
	maxTxSpins = 1 << 16
)

var errNotPresent = &kernel.Error{Module: "serial", Message: "UART did not pass the loopback test"}

// UART drives a single serial port. Output written before DriverInit
// succeeds is dropped.
type UART struct {
	lock    sync.IRQSpinlock
	ports   port.Port
	base    uint16
	present bool
}

// New returns a driver for the UART at base.
func New(p port.Port, base uint16) *UART {
	return &UART{ports: p, base: base}
}

// Present reports whether DriverInit found a working UART.
func (u *UART) Present() bool {
	return u.present
}

// Write implements io.Writer. Line feeds are expanded to CR LF.
func (u *UART) Write(p []byte) (int, error) {
	if !u.present {
		return len(p), nil
	}

	u.lock.Acquire()
	defer u.lock.Release()

	for _, b := range p {
		if b == '\n' {
			u.transmit('\r')
		}
		u.transmit(b)
	}

	return len(p), nil
}

func (u *UART) transmit(b byte) {
	for spins := 0; spins < maxTxSpins; spins++ {
		if u.ports.Read8(u.base+regLineStatus)&lineStatusTHREmpty != 0 {
			break
		}
	}

	u.ports.Write8(u.base+regData, b)
}

// DriverName returns the name of this driver.
func (u *UART) DriverName() string {
	return "uart16550"
}

// DriverVersion returns the version of this driver.
func (u *UART) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit programs the UART for 38400 baud 8N1 with interrupts disabled
// and verifies that it echoes a byte in loopback mode.
func (u *UART) DriverInit(w io.Writer) *kernel.Error {
	u.ports.Write8(u.base+regIntEnable, 0)

	u.ports.Write8(u.base+regLineCtrl, lineCtrlDLAB)
	u.ports.Write8(u.base+regDivisorLow, baudDivisor)
	u.ports.Write8(u.base+regDivisorHigh, 0)
	u.ports.Write8(u.base+regLineCtrl, lineCtrl8N1)

	u.ports.Write8(u.base+regFIFOCtrl, fifoCtrlEnable)

	u.ports.Write8(u.base+regModemCtrl, modemCtrlLoopback)
	u.ports.Write8(u.base+regData, loopbackProbe)
	if u.ports.Read8(u.base+regData) != loopbackProbe {
		return errNotPresent
	}

	u.ports.Write8(u.base+regModemCtrl, modemCtrlNormal)
	u.present = true

	dataBits, parity, stopBits := frameFormat(u.ports.Read8(u.base + regLineCtrl))
	kfmt.Fprintf(w, "port 0x%x at %d baud, %d%c%d\n", u.base, uint32(115200/baudDivisor), dataBits, parity, stopBits)
	return nil
}

// frameFormat decodes a line control register value into the usual
// shorthand, e.g. 8N1.
func frameFormat(lcr uint8) (dataBits uint8, parity byte, stopBits uint8) {
	dataBits = 5 + lcr&0x03
	stopBits = 1 + (lcr>>2)&0x01

	switch (lcr >> 3) & 0x07 {
	case 1:
		parity = 'O'
	case 3:
		parity = 'E'
	case 5:
		parity = 'M'
	case 7:
		parity = 'S'
	default:
		parity = 'N'
	}

	return dataBits, parity, stopBits
}
