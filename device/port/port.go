// Package port defines the narrow capability that hardware-facing drivers use
// to access x86 I/O ports. Every driver receives a Port instead of calling the
// cpu package directly so that the same driver code runs against real
// hardware, the Linux /dev/port device or the emulated chipset in device/emu.
package port

import "constanos/kernel/cpu"

var (
	portReadByteFn  = cpu.PortReadByte
	portWriteByteFn = cpu.PortWriteByte
)

// IOWaitPort is the POST diagnostics port. Writing to it takes roughly one
// microsecond which gives slow devices (e.g. the 8259) time to settle between
// consecutive commands.
const IOWaitPort uint16 = 0x80

// Port is implemented by objects that can read and write 8-bit values at a
// fixed I/O port address.
type Port interface {
	// Read8 reads a byte from the specified I/O port.
	Read8(port uint16) uint8

	// Write8 writes a byte to the specified I/O port.
	Write8(port uint16, val uint8)
}

// Hardware accesses the I/O ports of the CPU it runs on using the IN and OUT
// instructions. It is only usable at ring 0.
type Hardware struct{}

// Read8 implements Port.
func (Hardware) Read8(port uint16) uint8 {
	return portReadByteFn(port)
}

// Write8 implements Port.
func (Hardware) Write8(port uint16, val uint8) {
	portWriteByteFn(port, val)
}

// IOWait issues a dummy write to IOWaitPort.
func IOWait(p Port) {
	p.Write8(IOWaitPort, 0)
}
