// Package pic drives the pair of cascaded 8259A programmable interrupt
// controllers found on every PC-compatible machine.
package pic

import (
	"constanos/device/port"
	"constanos/kernel"
	"constanos/kernel/irq"
	"constanos/kernel/kfmt"
	"constanos/kernel/sync"
	"io"
)

// I/O ports of the master and slave controllers.
const (
	MasterCommandPort uint16 = 0x20
	MasterDataPort    uint16 = 0x21
	SlaveCommandPort  uint16 = 0xa0
	SlaveDataPort     uint16 = 0xa1
)

// Command bytes.
const (
	// ICW1: initialization required, ICW4 follows, cascade mode,
	// edge-triggered.
	icw1Init = 0x11

	// ICW3 for the master: a slave is wired to input line 2.
	icw3MasterSlaveOnLine2 = 1 << CascadeLine

	// ICW3 for the slave: its cascade identity is 2.
	icw3SlaveIdentity = CascadeLine

	// ICW4: 8086/88 mode, normal EOI.
	icw48086Mode = 0x01

	// OCW2: non-specific end of interrupt.
	ocw2EOI = 0x20

	// OCW3: next read of the command port returns the in-service or the
	// request register.
	ocw3ReadISR = 0x0b
	ocw3ReadIRR = 0x0a
)

const (
	// NumLines is the number of interrupt lines provided by both
	// controllers.
	NumLines = 16

	// CascadeLine is the master input the slave controller is wired to.
	CascadeLine = 2

	// DefaultMasterOffset and DefaultSlaveOffset place the hardware lines
	// directly after the CPU exception vectors.
	DefaultMasterOffset = uint8(irq.FirstIRQVector)
	DefaultSlaveOffset  = DefaultMasterOffset + 8

	linesPerController = 8
)

var (
	errInvalidOffset   = &kernel.Error{Module: "pic", Message: "vector offsets must be 8-aligned, disjoint and above the CPU exception range"}
	errAlreadyRemapped = &kernel.Error{Module: "pic", Message: "controllers already remapped"}
	errNotRemapped     = &kernel.Error{Module: "pic", Message: "controllers must be remapped before unmasking lines"}
	errInvalidLine     = &kernel.Error{Module: "pic", Message: "invalid interrupt line"}
)

// Controller manages both 8259A chips. All mask updates are serialized by an
// IRQSpinlock so they are safe to issue both from the idle loop and from
// interrupt handlers.
type Controller struct {
	lock  sync.IRQSpinlock
	ports port.Port

	// Cached interrupt mask registers; a set bit disables the line.
	masks [2]uint8

	// Vector offsets programmed by Remap.
	offsets  [2]uint8
	remapped bool
}

// New returns a Controller that talks to the chips through p. Until Remap is
// called the controllers keep their BIOS configuration (vectors 8-15 and
// 0x70-0x77) which collides with the CPU exceptions.
func New(p port.Port) *Controller {
	return &Controller{
		ports:   p,
		offsets: [2]uint8{0x08, 0x70},
	}
}

// Remap reprograms both controllers so that lines 0-7 raise vectors
// masterOffset to masterOffset+7 and lines 8-15 raise slaveOffset to
// slaveOffset+7. The masks that were active before the call are preserved.
// Remap may only be called once.
func (c *Controller) Remap(masterOffset, slaveOffset uint8) *kernel.Error {
	if !validOffsets(masterOffset, slaveOffset) {
		return errInvalidOffset
	}

	c.lock.Acquire()
	defer c.lock.Release()

	if c.remapped {
		return errAlreadyRemapped
	}

	// Initialization clears the mask registers.
	c.masks[0] = c.ports.Read8(MasterDataPort)
	c.masks[1] = c.ports.Read8(SlaveDataPort)

	c.write(MasterCommandPort, icw1Init)
	c.write(SlaveCommandPort, icw1Init)

	c.write(MasterDataPort, masterOffset)
	c.write(SlaveDataPort, slaveOffset)

	c.write(MasterDataPort, icw3MasterSlaveOnLine2)
	c.write(SlaveDataPort, icw3SlaveIdentity)

	c.write(MasterDataPort, icw48086Mode)
	c.write(SlaveDataPort, icw48086Mode)

	c.ports.Write8(MasterDataPort, c.masks[0])
	c.ports.Write8(SlaveDataPort, c.masks[1])

	c.offsets = [2]uint8{masterOffset, slaveOffset}
	c.remapped = true
	return nil
}

// write sends a single initialization word followed by an I/O wait.
func (c *Controller) write(p uint16, val uint8) {
	c.ports.Write8(p, val)
	port.IOWait(c.ports)
}

func validOffsets(master, slave uint8) bool {
	switch {
	case master%linesPerController != 0 || slave%linesPerController != 0:
		return false
	case master < uint8(irq.FirstIRQVector) || slave < uint8(irq.FirstIRQVector):
		return false
	case master == slave:
		return false
	}

	return true
}

// Mask disables the supplied interrupt line. Masking an already masked line
// has no effect.
func (c *Controller) Mask(line uint8) *kernel.Error {
	if line >= NumLines {
		return errInvalidLine
	}

	c.lock.Acquire()
	defer c.lock.Release()

	c.setMask(line/linesPerController, c.masks[line/linesPerController]|1<<(line%linesPerController))
	return nil
}

// Unmask enables the supplied interrupt line. Unmasking a line that belongs
// to the slave controller also unmasks the cascade line on the master.
func (c *Controller) Unmask(line uint8) *kernel.Error {
	if line >= NumLines {
		return errInvalidLine
	}

	c.lock.Acquire()
	defer c.lock.Release()

	if !c.remapped {
		return errNotRemapped
	}

	if line >= linesPerController {
		c.setMask(0, c.masks[0]&^(1<<CascadeLine))
	}
	c.setMask(line/linesPerController, c.masks[line/linesPerController]&^(1<<(line%linesPerController)))
	return nil
}

func (c *Controller) setMask(chip, mask uint8) {
	if c.masks[chip] == mask {
		return
	}

	c.masks[chip] = mask
	if chip == 0 {
		c.ports.Write8(MasterDataPort, mask)
	} else {
		c.ports.Write8(SlaveDataPort, mask)
	}
}

// Masks returns the cached mask registers of the master and slave
// controllers.
func (c *Controller) Masks() (master, slave uint8) {
	c.lock.Acquire()
	defer c.lock.Release()

	return c.masks[0], c.masks[1]
}

// EndOfInterrupt acknowledges the interrupt currently being serviced on the
// supplied line. Lines that belong to the slave need to be acknowledged on
// both controllers, slave first. Until the acknowledgment is sent, the
// controller does not deliver interrupts with the same or lower priority.
func (c *Controller) EndOfInterrupt(line uint8) {
	if line >= linesPerController {
		c.ports.Write8(SlaveCommandPort, ocw2EOI)
	}
	c.ports.Write8(MasterCommandPort, ocw2EOI)
}

// IsSpurious checks whether an interrupt on line 7 or 15 was raised without
// the matching in-service bit being set. This happens when a device
// de-asserts its request before the CPU acknowledges it. Other lines are
// never spurious.
func (c *Controller) IsSpurious(line uint8) bool {
	var cmdPort uint16
	switch line {
	case 7:
		cmdPort = MasterCommandPort
	case 15:
		cmdPort = SlaveCommandPort
	default:
		return false
	}

	c.ports.Write8(cmdPort, ocw3ReadISR)
	return c.ports.Read8(cmdPort)&(1<<7) == 0
}

// Vector returns the vector raised for line.
func (c *Controller) Vector(line uint8) irq.Vector {
	return irq.Vector(c.offsets[line/linesPerController&1] + line%linesPerController)
}

// Line maps a vector back to the interrupt line that raises it.
func (c *Controller) Line(v irq.Vector) (uint8, bool) {
	for chip, offset := range c.offsets {
		if uint8(v) >= offset && uint8(v) < offset+linesPerController {
			return uint8(chip*linesPerController) + uint8(v) - offset, true
		}
	}

	return 0, false
}

// Handler wraps fn into an irq.Handler for the supplied line. The returned
// handler filters out spurious interrupts and acknowledges the line on every
// exit path, so fn never has to issue the EOI itself.
func (c *Controller) Handler(line uint8, fn func(*irq.Registers)) irq.Handler {
	return func(regs *irq.Registers) {
		if c.IsSpurious(line) {
			// The master did raise the cascade line for a spurious
			// slave interrupt and still expects an EOI for it.
			if line >= linesPerController {
				c.ports.Write8(MasterCommandPort, ocw2EOI)
			}
			return
		}

		defer c.EndOfInterrupt(line)
		fn(regs)
	}
}

// DriverName returns the name of this driver.
func (c *Controller) DriverName() string {
	return "pic8259"
}

// DriverVersion returns the version of this driver.
func (c *Controller) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit reports the current controller configuration.
func (c *Controller) DriverInit(w io.Writer) *kernel.Error {
	master, slave := c.Masks()
	kfmt.Fprintf(w, "vectors %d-%d, %d-%d; masks 0x%2x 0x%2x\n",
		c.offsets[0], c.offsets[0]+7, c.offsets[1], c.offsets[1]+7, master, slave)
	return nil
}
