// Package emu provides software models of the PC chipset devices driven by
// the interrupt core: the cascaded 8259A pair, the 8254 timer, the i8042
// keyboard data port and a 16550 UART. The models are attached to a Bus that
// implements port.Port so drivers can be exercised without real hardware.
package emu

// Access describes a single port access observed by the bus.
type Access struct {
	Port  uint16
	Value uint8
	Write bool
}

// Device is implemented by emulated peripherals that respond to a fixed set
// of I/O ports.
type Device interface {
	// Ports returns the list of ports handled by the device.
	Ports() []uint16

	// In services a read from one of the device's ports.
	In(port uint16) uint8

	// Out services a write to one of the device's ports.
	Out(port uint16, val uint8)
}

// floatingBus is returned for reads from ports that no device claims.
const floatingBus = 0xff

// Bus routes port accesses to attached devices and records them.
type Bus struct {
	devices map[uint16]Device
	trace   []Access
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{devices: make(map[uint16]Device)}
}

// Attach connects d to every port it reports. A later attachment overrides
// an earlier one for the same port.
func (b *Bus) Attach(d Device) {
	for _, p := range d.Ports() {
		b.devices[p] = d
	}
}

// Read8 implements port.Port.
func (b *Bus) Read8(port uint16) uint8 {
	val := uint8(floatingBus)
	if d, ok := b.devices[port]; ok {
		val = d.In(port)
	}

	b.trace = append(b.trace, Access{Port: port, Value: val})
	return val
}

// Write8 implements port.Port. Writes to unclaimed ports are dropped.
func (b *Bus) Write8(port uint16, val uint8) {
	if d, ok := b.devices[port]; ok {
		d.Out(port, val)
	}

	b.trace = append(b.trace, Access{Port: port, Value: val, Write: true})
}

// Trace returns all accesses recorded since the last call to ResetTrace.
func (b *Bus) Trace() []Access {
	return b.trace
}

// Writes returns the recorded writes that targeted any of the supplied
// ports, in order.
func (b *Bus) Writes(ports ...uint16) []Access {
	var out []Access
	for _, a := range b.trace {
		if !a.Write {
			continue
		}
		for _, p := range ports {
			if a.Port == p {
				out = append(out, a)
				break
			}
		}
	}

	return out
}

// ResetTrace discards the recorded accesses.
func (b *Bus) ResetTrace() {
	b.trace = b.trace[:0]
}
