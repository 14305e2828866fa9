package keyboard

import (
	"constanos/device/port"
	"constanos/kernel"
	"constanos/kernel/irq"
	"constanos/kernel/kfmt"
	"constanos/kernel/sync"
	"io"
)

const (
	// Line is the PIC line the keyboard controller is wired to.
	Line = 1

	dataPort   uint16 = 0x60
	statusPort uint16 = 0x64

	statusOutputFull = 1 << 0

	// maxFlush bounds the number of stale bytes discarded by DriverInit.
	maxFlush = 16
)

// Sink receives decoded key events. Sinks run in interrupt context and must
// not block.
type Sink func(KeyEvent)

// Driver reads scancodes from the i8042 data port whenever IRQ1 fires and
// hands the decoded events to its sink.
type Driver struct {
	lock    sync.IRQSpinlock
	ports   port.Port
	decoder Decoder
	sink    Sink
}

// NewDriver returns a keyboard driver that delivers events to sink.
func NewDriver(p port.Port, sink Sink) *Driver {
	return &Driver{ports: p, sink: sink}
}

// HandleIRQ reads one scancode and dispatches the resulting event, if any.
// The PIC manager wrapper acknowledges the interrupt.
func (d *Driver) HandleIRQ(_ *irq.Registers) {
	ev, ok := d.decodeNext()
	if ok && d.sink != nil {
		d.sink(ev)
	}
}

func (d *Driver) decodeNext() (KeyEvent, bool) {
	d.lock.Acquire()
	defer d.lock.Release()

	return d.decoder.Decode(d.ports.Read8(dataPort))
}

// Modifiers returns the current modifier state.
func (d *Driver) Modifiers() Modifiers {
	d.lock.Acquire()
	defer d.lock.Release()

	return d.decoder.Modifiers()
}

// DriverName returns the name of this driver.
func (d *Driver) DriverName() string {
	return "ps2kbd"
}

// DriverVersion returns the version of this driver.
func (d *Driver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit discards any scancodes left in the controller by the firmware
// so the first interrupt starts from a clean decoder state.
func (d *Driver) DriverInit(w io.Writer) *kernel.Error {
	flushed := 0
	for ; flushed < maxFlush && d.ports.Read8(statusPort)&statusOutputFull != 0; flushed++ {
		d.ports.Read8(dataPort)
	}

	kfmt.Fprintf(w, "US layout, scancode set 1; flushed %d bytes\n", flushed)
	return nil
}

// ConsoleSink returns a Sink that echoes the characters of key presses to w.
// Presses with ctrl or alt held are treated as shortcuts and not echoed.
func ConsoleSink(w io.Writer) Sink {
	var buf [1]byte
	return func(ev KeyEvent) {
		if !ev.Pressed || ev.Char == 0 || ev.Mods&(ModCtrl|ModAlt) != 0 {
			return
		}

		buf[0] = ev.Char
		w.Write(buf[:])
	}
}
